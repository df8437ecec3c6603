package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	cfgpkg "github.com/danmechanic/glucid/internal/config"
	"github.com/danmechanic/glucid/internal/device"
	"github.com/danmechanic/glucid/internal/metrics"
	"github.com/danmechanic/glucid/internal/protocol/lucid"
	"github.com/danmechanic/glucid/internal/simulator"
	"github.com/danmechanic/glucid/internal/state"
	"github.com/danmechanic/glucid/internal/transaction"
	"github.com/danmechanic/glucid/internal/transport"
)

// DeviceDeps 设备栈的可选依赖
type DeviceDeps struct {
	Logger   *zap.Logger
	Metrics  *metrics.AppMetrics
	Recorder transaction.Recorder
	Store    state.Store
	// Transport 非 nil 时替代串口/模拟器
	Transport transport.Transport
}

// Device 一台设备的运行器与会话
type Device struct {
	Runner  *transaction.Runner
	Session *device.Session
	Family  transport.Family
}

// NewTransport 按配置创建串口或模拟设备
func NewTransport(cfg cfgpkg.DeviceConfig) (transport.Transport, transport.Family, error) {
	family, err := transport.ParseFamily(cfg.Family)
	if err != nil {
		return nil, "", err
	}
	if cfg.Simulate {
		return simulator.New(cfg.Port, byte(cfg.Address)).Silent(!family.Queryable()), family, nil
	}
	return transport.NewSerial(transport.Config{
		Port:        cfg.Port,
		Family:      family,
		ReadTimeout: cfg.ReadTimeout,
	}), family, nil
}

// LastKnown 最近已知取值：优先状态存储，其次配置文件 defaults 段
func LastKnown(ctx context.Context, cfg *cfgpkg.Config, store state.Store, logger *zap.Logger) state.Snapshot {
	fallback := state.FromConfig(cfg.Device, cfg.Defaults)
	if store == nil {
		return fallback
	}
	snap, err := store.Load(ctx, cfg.Device.Port)
	if err != nil {
		if !errors.Is(err, state.ErrNotFound) {
			logger.Warn("load device snapshot failed", zap.String("port", cfg.Device.Port), zap.Error(err))
		}
		return fallback
	}
	return snap
}

// NewDevice 组装传输、运行器与会话（不打开串口）
func NewDevice(ctx context.Context, cfg *cfgpkg.Config, deps DeviceDeps) (*Device, error) {
	if cfg.Device.Address < 0 || cfg.Device.Address > int(lucid.MaxAddress) {
		return nil, fmt.Errorf("device address %d out of range 0..%d", cfg.Device.Address, lucid.MaxAddress)
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	t, family, err := NewTransport(cfg.Device)
	if err != nil {
		return nil, err
	}
	if deps.Transport != nil {
		t = deps.Transport
	}

	last := LastKnown(ctx, cfg, deps.Store, logger)
	runner := transaction.New(t, transaction.Options{
		Address:       byte(cfg.Device.Address),
		StrictAddress: cfg.Device.StrictAddress,
		ReadAttempts:  cfg.Device.ReadAttempts,
		Logger:        logger,
		Metrics:       deps.Metrics,
		Recorder:      deps.Recorder,
	})
	sess := device.NewSession(runner, family, last, logger)
	if len(last.Gains) == device.Channels {
		if err := sess.SeedGainTable(last.Gains); err != nil {
			logger.Warn("ignore stored gain table", zap.Error(err))
		}
	}
	return &Device{Runner: runner, Session: sess, Family: family}, nil
}
