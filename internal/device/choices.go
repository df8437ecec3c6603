package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrOutOfRange   = errors.New("value out of range")
	ErrShortPayload = errors.New("response payload too short")
	ErrNotQueryable = errors.New("transport family cannot be queried")
)

// SyncSource 时钟同步源
type SyncSource byte

const (
	SyncADAT SyncSource = iota
	SyncWordClock
	SyncInternal441
	SyncInternal48
	SyncAESIn1
	SyncAESIn2
	SyncAESIn3
	SyncSPDIFIn
)

// OpticalSource 光纤输出源
type OpticalSource byte

const (
	OpticalFromAnalog OpticalSource = iota
	OpticalFromAES
)

// AnalogSource 模拟输出源
type AnalogSource byte

const (
	AnalogFromADAT AnalogSource = iota
	AnalogFromAES
)

// AESSource AES 输出源
type AESSource byte

const (
	AESFromADAT AESSource = iota
	AESFromAnalog
)

// MeterSource 前面板电平表显示源
type MeterSource byte

const (
	MeterAnalogIn MeterSource = iota
	MeterDigitalIn
	MeterAnalogOut
	MeterDigitalOut
)

// DigitalInput 数字输入 1 的格式
type DigitalInput byte

const (
	DigitalAES DigitalInput = iota
	DigitalSPDIF
)

var (
	syncNames    = []string{"ADAT", "WordClock", "44.1 Internal", "48 Internal", "AES In1", "AES In2", "AES In3", "S/PDIF In"}
	opticalNames = []string{"Analog In", "AES In"}
	analogNames  = []string{"ADAT In", "AES In"}
	aesNames     = []string{"ADAT In", "Analog In"}
	meterNames   = []string{"Analog In", "Digital In", "Analog Out", "Digital Out"}
	digitalNames = []string{"AES", "S/PDIF"}
)

func label(names []string, v byte) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("unknown(%d)", v)
}

func (s SyncSource) String() string    { return label(syncNames, byte(s)) }
func (s OpticalSource) String() string { return label(opticalNames, byte(s)) }
func (s AnalogSource) String() string  { return label(analogNames, byte(s)) }
func (s AESSource) String() string     { return label(aesNames, byte(s)) }
func (s MeterSource) String() string   { return label(meterNames, byte(s)) }
func (s DigitalInput) String() string  { return label(digitalNames, byte(s)) }

// Control 可设置的单字节控制项
type Control string

const (
	ControlSync         Control = "sync"
	ControlOptical      Control = "opt"
	ControlAnalog       Control = "analog"
	ControlAES          Control = "aes"
	ControlMeter        Control = "meter"
	ControlDigitalInput Control = "dig1"
	ControlMode         Control = "mode"
)

// Controls 全部控制项（按显示顺序）
func Controls() []Control {
	return []Control{ControlSync, ControlOptical, ControlAnalog, ControlAES, ControlMeter, ControlDigitalInput, ControlMode}
}

// Choices 控制项的可选值名称，下标即取值
func (c Control) Choices() []string {
	switch c {
	case ControlSync:
		return syncNames
	case ControlOptical:
		return opticalNames
	case ControlAnalog:
		return analogNames
	case ControlAES:
		return aesNames
	case ControlMeter:
		return meterNames
	case ControlDigitalInput:
		return digitalNames
	case ControlMode:
		out := make([]string, 0, 8)
		for d := range digitalNames {
			for m := range meterNames {
				out = append(out, Mode{Meter: MeterSource(m), DigitalInput: DigitalInput(d)}.String())
			}
		}
		return out
	}
	return nil
}

// ParseControl 解析控制项名称（兼容 optical / digital-input 等别名）
func ParseControl(s string) (Control, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sync":
		return ControlSync, nil
	case "opt", "optical":
		return ControlOptical, nil
	case "analog":
		return ControlAnalog, nil
	case "aes":
		return ControlAES, nil
	case "meter":
		return ControlMeter, nil
	case "dig1", "digital-input", "digital_input":
		return ControlDigitalInput, nil
	case "mode", "meter-and-dig1":
		return ControlMode, nil
	}
	return "", fmt.Errorf("unknown control %q", s)
}

// ParseChoice 接受下标或名称（不区分大小写）
func (c Control) ParseChoice(s string) (int, error) {
	names := c.Choices()
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		if n < 0 || n >= len(names) {
			return 0, fmt.Errorf("%w: %s accepts 0..%d, got %d", ErrOutOfRange, c, len(names)-1, n)
		}
		return n, nil
	}
	for i, name := range names {
		if strings.EqualFold(name, strings.TrimSpace(s)) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q is not a %s choice", ErrOutOfRange, s, c)
}

// Mode 模式字节：bit0-1 电平表源，bit2 数字输入格式
type Mode struct {
	Meter        MeterSource
	DigitalInput DigitalInput
}

// ModeFromByte 拆分模式字节
func ModeFromByte(b byte) Mode {
	return Mode{Meter: MeterSource(b & 0x03), DigitalInput: DigitalInput((b >> 2) & 0x01)}
}

// Byte 合成模式字节
func (m Mode) Byte() byte { return byte(m.DigitalInput)<<2 | byte(m.Meter) }

func (m Mode) String() string {
	return fmt.Sprintf("%s / %s", m.Meter, m.DigitalInput)
}

func checkRange(names []string, v byte) error {
	if int(v) >= len(names) {
		return fmt.Errorf("%w: %d (max %d)", ErrOutOfRange, v, len(names)-1)
	}
	return nil
}
