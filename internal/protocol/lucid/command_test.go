package lucid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommands_UniqueOpcodes(t *testing.T) {
	seen := make(map[byte]Command)
	for _, c := range Commands() {
		prev, dup := seen[c.Opcode()]
		require.Falsef(t, dup, "opcode 0x%02X shared by %s and %s", c.Opcode(), prev, c)
		seen[c.Opcode()] = c
	}
	assert.Len(t, seen, 12)
}

func TestCommand_Pairs(t *testing.T) {
	pairs := map[Command]Command{
		GetMode:       SetMode,
		GetSync:       SetSync,
		GetOptSrc:     SetOptSrc,
		GetAnalogSrc:  SetAnalogSrc,
		GetAesSrc:     SetAesSrc,
		GetAnalogGain: SetAnalogGain,
	}
	for get, set := range pairs {
		assert.True(t, get.IsQuery(), get.String())
		assert.False(t, set.IsQuery(), set.String())
		assert.Equal(t, set, get.Setter())
		assert.Equal(t, get, set.Getter())
	}
}

func TestParseCommand(t *testing.T) {
	c, err := ParseCommand("GetAnalogGain")
	require.NoError(t, err)
	assert.Equal(t, byte(0x70), c.Opcode())

	c, err = ParseCommand("setsync")
	require.NoError(t, err)
	assert.Equal(t, SetSync, c)

	_, err = ParseCommand("BogusName")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestCommand_Unknown(t *testing.T) {
	c := Command(0x7E)
	assert.False(t, c.Known())
	assert.False(t, c.IsQuery())
	assert.Equal(t, "Command(0x7E)", c.String())
}
