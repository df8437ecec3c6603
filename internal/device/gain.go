package device

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// Channels 增益表长度：输入 1-8 + 输出 1-8
	Channels = 16
	// ChannelsPerStage 每级通道数
	ChannelsPerStage = 8

	gainOffset = 96 // raw = dB + 96
	MinGainDB  = -95
	MaxGainDB  = 32
	maxRaw     = 127
)

var ErrTableNotLoaded = errors.New("gain table not fully loaded")

// Stage 输入级或输出级
type Stage int

const (
	StageInput Stage = iota
	StageOutput
)

func (s Stage) String() string {
	if s == StageOutput {
		return "output"
	}
	return "input"
}

// ParseStage 解析 input/output（含 in/out 简写）
func ParseStage(s string) (Stage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in", "input", "inputs":
		return StageInput, nil
	case "out", "output", "outputs":
		return StageOutput, nil
	}
	return 0, fmt.Errorf("unknown stage %q", s)
}

// Index 通道号（1-8）在增益表中的下标
func (s Stage) Index(channel int) (int, error) {
	if channel < 1 || channel > ChannelsPerStage {
		return 0, fmt.Errorf("%w: channel %d (1..%d)", ErrOutOfRange, channel, ChannelsPerStage)
	}
	if s == StageOutput {
		return ChannelsPerStage + channel - 1, nil
	}
	return channel - 1, nil
}

// InputChannel 输入通道 n 的表下标
func InputChannel(n int) (int, error) { return StageInput.Index(n) }

// OutputChannel 输出通道 n 的表下标
func OutputChannel(n int) (int, error) { return StageOutput.Index(n) }

// GainToDBString 原始增益转带符号 dB 字符串（"+1"、"-8"、"+0"）
func GainToDBString(raw byte) string {
	db := int(raw) - gainOffset
	if db >= 0 {
		return "+" + strconv.Itoa(db)
	}
	return strconv.Itoa(db)
}

// DBToRaw dB 转原始值；超出 -95..+32 报错，+32 截断到 127
func DBToRaw(db int) (byte, error) {
	if db < MinGainDB || db > MaxGainDB {
		return 0, fmt.Errorf("%w: gain %d dB (%d..%+d)", ErrOutOfRange, db, MinGainDB, MaxGainDB)
	}
	raw := db + gainOffset
	if raw > maxRaw {
		raw = maxRaw
	}
	return byte(raw), nil
}

// ParseGain 解析 "+4"、"-10"、"0" 形式的 dB 值
func ParseGain(s string) (int, error) {
	db, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid gain %q", s)
	}
	if _, err := DBToRaw(db); err != nil {
		return 0, err
	}
	return db, nil
}

// GainTable 16 路原始增益；未完整读取前不可修改、不可回写
type GainTable struct {
	raw []byte
}

// NewGainTable 由 16 字节原始值构造
func NewGainTable(raw []byte) (GainTable, error) {
	if len(raw) != Channels {
		return GainTable{}, fmt.Errorf("%w: got %d entries", ErrTableNotLoaded, len(raw))
	}
	for i, b := range raw {
		if b > maxRaw {
			return GainTable{}, fmt.Errorf("%w: entry %d = %d", ErrOutOfRange, i, b)
		}
	}
	return GainTable{raw: append([]byte(nil), raw...)}, nil
}

// Full 是否已完整加载
func (g GainTable) Full() bool { return len(g.raw) == Channels }

// Raw 原始值副本（逻辑顺序：输入 1-8，输出 1-8）
func (g GainTable) Raw() []byte { return append([]byte(nil), g.raw...) }

// DB 下标 i 的 dB 值
func (g GainTable) DB(i int) (int, error) {
	if !g.Full() {
		return 0, ErrTableNotLoaded
	}
	if i < 0 || i >= Channels {
		return 0, fmt.Errorf("%w: index %d", ErrOutOfRange, i)
	}
	return int(g.raw[i]) - gainOffset, nil
}

// Strings 每路的 dB 字符串
func (g GainTable) Strings() []string {
	out := make([]string, len(g.raw))
	for i, b := range g.raw {
		out[i] = GainToDBString(b)
	}
	return out
}

// Ints 原始值的 int 形式（持久化用）
func (g GainTable) Ints() []int {
	out := make([]int, len(g.raw))
	for i, b := range g.raw {
		out[i] = int(b)
	}
	return out
}

// Set 修改一路；失败时表保持不变
func (g *GainTable) Set(i int, db int) error {
	if !g.Full() {
		return ErrTableNotLoaded
	}
	if i < 0 || i >= Channels {
		return fmt.Errorf("%w: index %d", ErrOutOfRange, i)
	}
	raw, err := DBToRaw(db)
	if err != nil {
		return err
	}
	g.raw[i] = raw
	return nil
}

// SetStage 整级设置
func (g *GainTable) SetStage(s Stage, db int) error {
	if !g.Full() {
		return ErrTableNotLoaded
	}
	raw, err := DBToRaw(db)
	if err != nil {
		return err
	}
	first, _ := s.Index(1)
	for i := first; i < first+ChannelsPerStage; i++ {
		g.raw[i] = raw
	}
	return nil
}

// WireBytes 回写设备的 16 个参数字节（通道升序：输入 1-8，输出 1-8）
func (g GainTable) WireBytes() ([]byte, error) {
	if !g.Full() {
		return nil, ErrTableNotLoaded
	}
	return g.Raw(), nil
}

// Preset 参考电平预设
type Preset struct {
	Name   string
	Input  int // dB
	Output int // dB
}

var (
	// PresetPro +4 dBu 专业电平
	PresetPro = Preset{Name: "+4", Input: -8, Output: 1}
	// PresetConsumer -10 dBV 民用电平
	PresetConsumer = Preset{Name: "-10", Input: 4, Output: -11}
)

// ParsePreset 解析 "+4"/"4"/"pro" 或 "-10"/"consumer"
func ParsePreset(s string) (Preset, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "+4", "4", "pro", "professional":
		return PresetPro, nil
	case "-10", "consumer":
		return PresetConsumer, nil
	}
	return Preset{}, fmt.Errorf("unknown preset %q (use +4 or -10)", s)
}
