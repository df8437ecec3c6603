package lucid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownCommand 命令名或命令值不在命令表中
var ErrUnknownCommand = errors.New("unknown command")

// Command 8824 命令，取值即线上操作码
type Command byte

const (
	SetMode       Command = 0x20
	SetSync       Command = 0x21
	SetOptSrc     Command = 0x22
	SetAnalogSrc  Command = 0x23
	SetAesSrc     Command = 0x24
	SetAnalogGain Command = 0x30
	GetMode       Command = 0x60
	GetSync       Command = 0x61
	GetOptSrc     Command = 0x62
	GetAnalogSrc  Command = 0x63
	GetAesSrc     Command = 0x64
	GetAnalogGain Command = 0x70
)

const queryBit byte = 0x40

var commandNames = map[Command]string{
	GetMode:       "GetMode",
	SetMode:       "SetMode",
	GetSync:       "GetSync",
	SetSync:       "SetSync",
	GetOptSrc:     "GetOptSrc",
	SetOptSrc:     "SetOptSrc",
	GetAnalogSrc:  "GetAnalogSrc",
	SetAnalogSrc:  "SetAnalogSrc",
	GetAesSrc:     "GetAesSrc",
	SetAesSrc:     "SetAesSrc",
	GetAnalogGain: "GetAnalogGain",
	SetAnalogGain: "SetAnalogGain",
}

// Commands 全部已知命令（按操作码升序）
func Commands() []Command {
	return []Command{
		SetMode, SetSync, SetOptSrc, SetAnalogSrc, SetAesSrc, SetAnalogGain,
		GetMode, GetSync, GetOptSrc, GetAnalogSrc, GetAesSrc, GetAnalogGain,
	}
}

// Opcode 线上操作码
func (c Command) Opcode() byte { return byte(c) }

// Known 是否属于命令表
func (c Command) Known() bool {
	_, ok := commandNames[c]
	return ok
}

// IsQuery Get 类命令
func (c Command) IsQuery() bool { return c.Known() && byte(c)&queryBit != 0 }

// Setter 查询命令对应的设置命令；本身是设置命令时原样返回
func (c Command) Setter() Command { return Command(byte(c) &^ queryBit) }

// Getter 设置命令对应的查询命令
func (c Command) Getter() Command { return Command(byte(c) | queryBit) }

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Command(0x%02X)", byte(c))
}

// ParseCommand 按名称查找命令（不区分大小写）
func ParseCommand(name string) (Command, error) {
	for c, n := range commandNames {
		if strings.EqualFold(n, name) {
			return c, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
}
