package device

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/danmechanic/glucid/internal/protocol/lucid"
	"github.com/danmechanic/glucid/internal/state"
	"github.com/danmechanic/glucid/internal/transaction"
	"github.com/danmechanic/glucid/internal/transport"
)

// Link 设备会话依赖的交互通道（由 transaction.Runner 实现）
type Link interface {
	Connect() error
	Disconnect()
	ClearError()
	Send(cmd lucid.Command, args ...byte) ([]byte, error)
	Post(cmd lucid.Command, args ...byte) error
	InterfaceName() string
	Address() byte
	Mismatch() bool
	State() transaction.State
}

// Session 一台 8824 的控制会话，持有增益表与最近已知取值。
// 非并发安全，调用方需串行化访问。
type Session struct {
	link   Link
	family transport.Family
	last   state.Snapshot
	gains  GainTable
	logger *zap.Logger
}

// NewSession 创建会话；last 为持久化的最近已知取值（离线默认值来源）
func NewSession(link Link, family transport.Family, last state.Snapshot, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	if family == "" {
		family = transport.FamilyRS232
	}
	last.Gains = append([]int(nil), last.Gains...)
	return &Session{link: link, family: family, last: last, logger: logger}
}

func (s *Session) Connect() error        { return s.link.Connect() }
func (s *Session) Disconnect()           { s.link.Disconnect() }
func (s *Session) ClearError()           { s.link.ClearError() }
func (s *Session) InterfaceName() string { return s.link.InterfaceName() }
func (s *Session) DeviceAddress() int    { return int(s.link.Address()) }
func (s *Session) Mismatch() bool        { return s.link.Mismatch() }
func (s *Session) State() transaction.State {
	return s.link.State()
}

// Family 传输类型
func (s *Session) Family() transport.Family { return s.family }

// Snapshot 返回更新后的最近已知取值，由调用方持久化
func (s *Session) Snapshot() state.Snapshot {
	out := s.last
	out.Port = s.link.InterfaceName()
	out.Address = int(s.link.Address())
	out.Gains = append([]int(nil), s.last.Gains...)
	return out
}

// SetLinks 记录输入/输出通道联动开关
func (s *Session) SetLinks(inputs, outputs bool) {
	s.last.LinkInputs = inputs
	s.last.LinkOutputs = outputs
	s.touch()
}

func (s *Session) touch() { s.last.UpdatedAt = time.Now() }

// query 发送 Get 命令并取第一个负载字节
func (s *Session) query(cmd lucid.Command) (byte, error) {
	if !s.family.Queryable() {
		return 0, fmt.Errorf("%s: %w", cmd, ErrNotQueryable)
	}
	payload, err := s.link.Send(cmd)
	if err != nil {
		return 0, err
	}
	if len(payload) < 1 {
		return 0, fmt.Errorf("%s: %w", cmd, ErrShortPayload)
	}
	return payload[0], nil
}

// apply 可查询链路走完整交互，MIDI 只下发
func (s *Session) apply(cmd lucid.Command, args ...byte) error {
	if s.family.Queryable() {
		_, err := s.link.Send(cmd, args...)
		return err
	}
	return s.link.Post(cmd, args...)
}

func (s *Session) SyncSource() (SyncSource, error) {
	b, err := s.query(lucid.GetSync)
	if err != nil {
		return 0, err
	}
	s.last.Sync = int(b)
	return SyncSource(b), nil
}

func (s *Session) SetSyncSource(v SyncSource) error {
	if err := checkRange(syncNames, byte(v)); err != nil {
		return err
	}
	if err := s.apply(lucid.SetSync, byte(v)); err != nil {
		return err
	}
	s.last.Sync = int(v)
	s.touch()
	return nil
}

func (s *Session) OpticalSource() (OpticalSource, error) {
	b, err := s.query(lucid.GetOptSrc)
	if err != nil {
		return 0, err
	}
	s.last.Optical = int(b)
	return OpticalSource(b), nil
}

func (s *Session) SetOpticalSource(v OpticalSource) error {
	if err := checkRange(opticalNames, byte(v)); err != nil {
		return err
	}
	if err := s.apply(lucid.SetOptSrc, byte(v)); err != nil {
		return err
	}
	s.last.Optical = int(v)
	s.touch()
	return nil
}

func (s *Session) AnalogSource() (AnalogSource, error) {
	b, err := s.query(lucid.GetAnalogSrc)
	if err != nil {
		return 0, err
	}
	s.last.Analog = int(b)
	return AnalogSource(b), nil
}

func (s *Session) SetAnalogSource(v AnalogSource) error {
	if err := checkRange(analogNames, byte(v)); err != nil {
		return err
	}
	if err := s.apply(lucid.SetAnalogSrc, byte(v)); err != nil {
		return err
	}
	s.last.Analog = int(v)
	s.touch()
	return nil
}

func (s *Session) AESSource() (AESSource, error) {
	b, err := s.query(lucid.GetAesSrc)
	if err != nil {
		return 0, err
	}
	s.last.AES = int(b)
	return AESSource(b), nil
}

func (s *Session) SetAESSource(v AESSource) error {
	if err := checkRange(aesNames, byte(v)); err != nil {
		return err
	}
	if err := s.apply(lucid.SetAesSrc, byte(v)); err != nil {
		return err
	}
	s.last.AES = int(v)
	s.touch()
	return nil
}

// Mode 读取模式字节（电平表源 + 数字输入格式）
func (s *Session) Mode() (Mode, error) {
	b, err := s.query(lucid.GetMode)
	if err != nil {
		return Mode{}, err
	}
	m := ModeFromByte(b)
	s.last.Meter = int(m.Meter)
	s.last.DigitalInput = int(m.DigitalInput)
	return m, nil
}

// SetMode 同时设置电平表源与数字输入格式
func (s *Session) SetMode(m Mode) error {
	if err := checkRange(meterNames, byte(m.Meter)); err != nil {
		return err
	}
	if err := checkRange(digitalNames, byte(m.DigitalInput)); err != nil {
		return err
	}
	if err := s.apply(lucid.SetMode, m.Byte()); err != nil {
		return err
	}
	s.last.Meter = int(m.Meter)
	s.last.DigitalInput = int(m.DigitalInput)
	s.touch()
	return nil
}

func (s *Session) MeterSource() (MeterSource, error) {
	m, err := s.Mode()
	if err != nil {
		return 0, err
	}
	return m.Meter, nil
}

func (s *Session) DigitalInput() (DigitalInput, error) {
	m, err := s.Mode()
	if err != nil {
		return 0, err
	}
	return m.DigitalInput, nil
}

// currentMode 可查询时回读设备，否则使用最近已知值
func (s *Session) currentMode() (Mode, error) {
	if s.family.Queryable() {
		return s.Mode()
	}
	return Mode{Meter: MeterSource(s.last.Meter), DigitalInput: DigitalInput(s.last.DigitalInput)}, nil
}

// SetMeterSource 只改电平表源，保留数字输入格式
func (s *Session) SetMeterSource(v MeterSource) error {
	if err := checkRange(meterNames, byte(v)); err != nil {
		return err
	}
	m, err := s.currentMode()
	if err != nil {
		return err
	}
	m.Meter = v
	return s.SetMode(m)
}

// SetDigitalInput 只改数字输入格式，保留电平表源
func (s *Session) SetDigitalInput(v DigitalInput) error {
	if err := checkRange(digitalNames, byte(v)); err != nil {
		return err
	}
	m, err := s.currentMode()
	if err != nil {
		return err
	}
	m.DigitalInput = v
	return s.SetMode(m)
}

// Get 按控制项读取取值
func (s *Session) Get(c Control) (int, error) {
	switch c {
	case ControlSync:
		v, err := s.SyncSource()
		return int(v), err
	case ControlOptical:
		v, err := s.OpticalSource()
		return int(v), err
	case ControlAnalog:
		v, err := s.AnalogSource()
		return int(v), err
	case ControlAES:
		v, err := s.AESSource()
		return int(v), err
	case ControlMeter:
		v, err := s.MeterSource()
		return int(v), err
	case ControlDigitalInput:
		v, err := s.DigitalInput()
		return int(v), err
	case ControlMode:
		m, err := s.Mode()
		return int(m.Byte()), err
	}
	return 0, fmt.Errorf("unknown control %q", c)
}

// Set 按控制项设置取值
func (s *Session) Set(c Control, v int) error {
	if v < 0 || v > 0x7F {
		return fmt.Errorf("%w: %d", ErrOutOfRange, v)
	}
	switch c {
	case ControlSync:
		return s.SetSyncSource(SyncSource(v))
	case ControlOptical:
		return s.SetOpticalSource(OpticalSource(v))
	case ControlAnalog:
		return s.SetAnalogSource(AnalogSource(v))
	case ControlAES:
		return s.SetAESSource(AESSource(v))
	case ControlMeter:
		return s.SetMeterSource(MeterSource(v))
	case ControlDigitalInput:
		return s.SetDigitalInput(DigitalInput(v))
	case ControlMode:
		if v > 7 {
			return fmt.Errorf("%w: mode %d (0..7)", ErrOutOfRange, v)
		}
		return s.SetMode(ModeFromByte(byte(v)))
	}
	return fmt.Errorf("unknown control %q", c)
}

// LastKnown 控制项的最近已知取值（离线显示）
func (s *Session) LastKnown(c Control) int {
	switch c {
	case ControlSync:
		return s.last.Sync
	case ControlOptical:
		return s.last.Optical
	case ControlAnalog:
		return s.last.Analog
	case ControlAES:
		return s.last.AES
	case ControlMeter:
		return s.last.Meter
	case ControlDigitalInput:
		return s.last.DigitalInput
	case ControlMode:
		return s.last.DigitalInput<<2 | s.last.Meter
	}
	return 0
}

// Describe 控制项取值的显示名称
func Describe(c Control, v int) string {
	names := c.Choices()
	if v >= 0 && v < len(names) {
		return names[v]
	}
	return fmt.Sprintf("unknown(%d)", v)
}
