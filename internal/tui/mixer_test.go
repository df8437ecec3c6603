package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmechanic/glucid/internal/device"
	"github.com/danmechanic/glucid/internal/simulator"
	"github.com/danmechanic/glucid/internal/state"
	"github.com/danmechanic/glucid/internal/transaction"
	"github.com/danmechanic/glucid/internal/transport"
)

func newModel(t *testing.T) (Model, *simulator.Device) {
	t.Helper()
	sim := simulator.New("sim0", 0)
	sess := device.NewSession(transaction.New(sim, transaction.Options{}), transport.FamilyRS232, state.Snapshot{}, nil)
	require.NoError(t, sess.Connect())
	m := New(sess)
	return step(t, m, m.Init()), sim
}

// step 同步执行命令并把结果送回模型
func step(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	next, _ := m.Update(cmd())
	return next.(Model)
}

func press(t *testing.T, m Model, key string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch key {
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func TestMixerLoadsGains(t *testing.T) {
	m, _ := newModel(t)
	require.NoError(t, m.err)
	assert.False(t, m.busy)
	require.Len(t, m.snap.gains, 16)
	assert.Equal(t, -8, m.snap.gains[0])
	assert.Equal(t, 1, m.snap.gains[15])
	assert.Contains(t, m.View(), "-8")
}

func TestMixerAdjustsSelectedChannel(t *testing.T) {
	m, sim := newModel(t)

	m, _ = press(t, m, "right")
	m, cmd := press(t, m, "k")
	assert.True(t, m.busy)
	m = step(t, m, cmd)

	require.NoError(t, m.err)
	assert.Equal(t, -7, m.snap.gains[1])
	assert.EqualValues(t, 0x59, sim.Gains()[1])
	assert.EqualValues(t, 0x58, sim.Gains()[0])
}

func TestMixerIgnoresChangesWhileBusy(t *testing.T) {
	m, _ := newModel(t)
	m, cmd := press(t, m, "k")
	require.NotNil(t, cmd)
	_, cmd = press(t, m, "k")
	assert.Nil(t, cmd)
}

func TestMixerLinkedOutputs(t *testing.T) {
	m, sim := newModel(t)

	m, cmd := press(t, m, "o")
	m = step(t, m, cmd)
	assert.True(t, m.snap.linkOut)

	m, _ = press(t, m, "tab")
	m, cmd = press(t, m, "0")
	m = step(t, m, cmd)
	for _, b := range sim.Gains()[8:] {
		assert.EqualValues(t, 96, b)
	}
	assert.EqualValues(t, 0x58, sim.Gains()[0])
}

func TestMixerPreset(t *testing.T) {
	m, sim := newModel(t)
	m, cmd := press(t, m, "c")
	m = step(t, m, cmd)
	require.NoError(t, m.err)
	assert.EqualValues(t, 100, sim.Gains()[0])
	assert.EqualValues(t, 85, sim.Gains()[8])
	assert.Equal(t, "preset -10 applied", m.status)
}

func TestMixerShowsDeviceErrors(t *testing.T) {
	m, sim := newModel(t)
	sim.Inject(simulator.FaultDrop)
	m, cmd := press(t, m, "k")
	m = step(t, m, cmd)
	assert.ErrorIs(t, m.err, transaction.ErrNoResponse)
	assert.Contains(t, m.View(), "Error:")
}
