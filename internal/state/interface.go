package state

import (
	"context"
	"errors"
	"time"

	"github.com/danmechanic/glucid/internal/config"
)

// ErrNotFound 没有该设备的记录
var ErrNotFound = errors.New("snapshot not found")

// Snapshot 设备最近一次已知取值，供离线默认值与持久化使用
type Snapshot struct {
	Port         string    `json:"port" yaml:"port"`
	Address      int       `json:"address" yaml:"address"`
	Sync         int       `json:"sync" yaml:"sync"`
	Optical      int       `json:"optical" yaml:"optical"`
	Analog       int       `json:"analog" yaml:"analog"`
	AES          int       `json:"aes" yaml:"aes"`
	Meter        int       `json:"meter" yaml:"meter"`
	DigitalInput int       `json:"digital_input" yaml:"digital_input"`
	Gains        []int     `json:"gains,omitempty" yaml:"gains,omitempty"`
	LinkInputs   bool      `json:"link_inputs" yaml:"link_inputs"`
	LinkOutputs  bool      `json:"link_outputs" yaml:"link_outputs"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
}

// Store 快照存储接口，支持内存和Redis两种实现
type Store interface {
	// Load 读取设备快照，不存在时返回 ErrNotFound
	Load(ctx context.Context, port string) (Snapshot, error)

	// Save 写入设备快照
	Save(ctx context.Context, s Snapshot) error

	// Ports 已记录的设备列表
	Ports(ctx context.Context) ([]string, error)
}

// FromConfig 由配置文件中的默认值构造快照
func FromConfig(dev config.DeviceConfig, d config.DefaultsConfig) Snapshot {
	return Snapshot{
		Port:         dev.Port,
		Address:      dev.Address,
		Sync:         d.Sync,
		Optical:      d.Optical,
		Analog:       d.Analog,
		AES:          d.AES,
		Meter:        d.Meter,
		DigitalInput: d.DigitalInput,
		Gains:        append([]int(nil), d.Gains...),
		LinkInputs:   d.LinkInputs,
		LinkOutputs:  d.LinkOutputs,
	}
}

// Defaults 转回配置文件中的默认值段
func (s Snapshot) Defaults() config.DefaultsConfig {
	return config.DefaultsConfig{
		Sync:         s.Sync,
		Optical:      s.Optical,
		Analog:       s.Analog,
		AES:          s.AES,
		Meter:        s.Meter,
		DigitalInput: s.DigitalInput,
		Gains:        append([]int(nil), s.Gains...),
		LinkInputs:   s.LinkInputs,
		LinkOutputs:  s.LinkOutputs,
	}
}
