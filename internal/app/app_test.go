package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	cfgpkg "github.com/danmechanic/glucid/internal/config"
	"github.com/danmechanic/glucid/internal/simulator"
	"github.com/danmechanic/glucid/internal/state"
	"github.com/danmechanic/glucid/internal/transaction"
	"github.com/danmechanic/glucid/internal/transport"
)

func TestMaskDSN(t *testing.T) {
	assert.Equal(t, "postgres://u:****@h:5432/db", MaskDSN("postgres://u:secret@h:5432/db"))
	assert.Equal(t, "postgres://u@h/db", MaskDSN("postgres://u@h/db"))
	assert.Equal(t, "host=h dbname=x", MaskDSN("host=h dbname=x"))
}

func TestNewTransport(t *testing.T) {
	tr, fam, err := NewTransport(cfgpkg.DeviceConfig{Port: "/dev/ttyS9", Family: "rs232"})
	require.NoError(t, err)
	assert.Equal(t, transport.FamilyRS232, fam)
	assert.IsType(t, &transport.Serial{}, tr)

	tr, fam, err = NewTransport(cfgpkg.DeviceConfig{Port: "sim", Family: "midi", Simulate: true})
	require.NoError(t, err)
	assert.Equal(t, transport.FamilyMIDI, fam)
	assert.IsType(t, &simulator.Device{}, tr)

	_, _, err = NewTransport(cfgpkg.DeviceConfig{Family: "usb"})
	assert.Error(t, err)
}

func TestNewDevicePrefersStoredSnapshot(t *testing.T) {
	ctx := context.Background()
	cfg := &cfgpkg.Config{Device: cfgpkg.DeviceConfig{Port: "sim", Simulate: true}}
	cfg.Defaults.Sync = 1

	store := state.NewMemoryStore()
	gains := make([]int, 16)
	for i := range gains {
		gains[i] = 96
	}
	require.NoError(t, store.Save(ctx, state.Snapshot{Port: "sim", Sync: 5, Gains: gains}))

	dev, err := NewDevice(ctx, cfg, DeviceDeps{Logger: zap.NewNop(), Store: store})
	require.NoError(t, err)
	assert.Equal(t, 5, dev.Session.Snapshot().Sync)
	assert.True(t, dev.Session.Gains().Full())
	assert.Equal(t, transaction.StateDisconnected, dev.Runner.State())

	// 存储中没有时回退到配置文件
	dev, err = NewDevice(ctx, cfg, DeviceDeps{Store: state.NewMemoryStore()})
	require.NoError(t, err)
	assert.Equal(t, 1, dev.Session.Snapshot().Sync)
}

func TestNewDeviceRejectsAddress(t *testing.T) {
	cfg := &cfgpkg.Config{Device: cfgpkg.DeviceConfig{Port: "sim", Simulate: true, Address: 8}}
	_, err := NewDevice(context.Background(), cfg, DeviceDeps{})
	assert.Error(t, err)
}

func TestNewStateStore(t *testing.T) {
	assert.IsType(t, &state.MemoryStore{}, NewStateStore(nil))
}
