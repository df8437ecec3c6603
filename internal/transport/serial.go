package transport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"go.bug.st/serial"
)

// Config 串口参数
type Config struct {
	Port        string
	Family      Family
	ReadTimeout time.Duration
}

// Serial 基于 go.bug.st/serial 的传输实现
type Serial struct {
	cfg  Config
	mu   sync.Mutex
	port serial.Port
}

// NewSerial 创建串口传输（未打开）
func NewSerial(cfg Config) *Serial {
	if cfg.Family == "" {
		cfg.Family = FamilyRS232
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}
	return &Serial{cfg: cfg}
}

func (s *Serial) Name() string { return s.cfg.Port }

// Family 传输类型
func (s *Serial) Family() Family { return s.cfg.Family }

// Open 以类型对应的固定波特率打开，8N1
func (s *Serial) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port != nil {
		return nil
	}
	port, err := serial.Open(s.cfg.Port, &serial.Mode{
		BaudRate: s.cfg.Family.BaudRate(),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", s.cfg.Port, err)
	}
	if err := port.SetReadTimeout(s.cfg.ReadTimeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("set read timeout on %s: %w", s.cfg.Port, err)
	}
	s.port = port
	return nil
}

func (s *Serial) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.port = nil
	return err
}

func (s *Serial) Write(p []byte) (int, error) {
	port, err := s.current()
	if err != nil {
		return 0, err
	}
	return port.Write(p)
}

func (s *Serial) ReadLine() ([]byte, error) {
	port, err := s.current()
	if err != nil {
		return nil, err
	}
	return readLine(port, maxLineLen)
}

func (s *Serial) current() (serial.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return nil, ErrClosed
	}
	return s.port, nil
}

// Ports 列出本机串口
func Ports() ([]string, error) {
	return serial.GetPortsList()
}

// Disconnected 判断错误是否意味着设备被拔出或端口失效
func Disconnected(err error) bool {
	var code serial.PortErrorCode
	var ptr *serial.PortError
	var val serial.PortError
	switch {
	case errors.As(err, &ptr):
		code = ptr.Code()
	case errors.As(err, &val):
		code = val.Code()
	default:
		return false
	}
	switch code {
	case serial.PortNotFound, serial.PortClosed, serial.InvalidSerialPort:
		return true
	}
	return false
}
