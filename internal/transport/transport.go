package transport

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/danmechanic/glucid/internal/protocol/lucid"
)

// DefaultReadTimeout 单次读超时
const DefaultReadTimeout = time.Second

// maxLineLen 单行上限，一帧最长约 9+16 字节
const maxLineLen = 256

var ErrClosed = errors.New("transport closed")

// Transport 面向行的字节通道（一次 ReadLine 对应设备的一帧响应）
type Transport interface {
	Open() error
	Close() error
	Write(p []byte) (int, error)
	// ReadLine 读到 END 或读超时为止；超时且无数据时返回空切片和 nil
	ReadLine() ([]byte, error)
	Name() string
}

// Family 传输类型：RS-232 可查询，MIDI 只能下发
type Family string

const (
	FamilyRS232 Family = "rs232"
	FamilyMIDI  Family = "midi"
)

// ParseFamily 解析配置中的传输类型
func ParseFamily(s string) (Family, error) {
	switch Family(strings.ToLower(strings.TrimSpace(s))) {
	case "", FamilyRS232, "serial":
		return FamilyRS232, nil
	case FamilyMIDI:
		return FamilyMIDI, nil
	}
	return "", fmt.Errorf("unknown transport family %q", s)
}

// BaudRate 各类型的固定波特率
func (f Family) BaudRate() int {
	if f == FamilyMIDI {
		return 31250
	}
	return 9600
}

// Queryable 是否能同步读取设备响应
func (f Family) Queryable() bool { return f != FamilyMIDI }

// readLine 从 r 逐字节累积直到 END；Read 返回 0 字节视为超时
func readLine(r io.Reader, limit int) ([]byte, error) {
	line := make([]byte, 0, 32)
	buf := make([]byte, 1)
	for len(line) < limit {
		n, err := r.Read(buf)
		if n == 1 {
			line = append(line, buf[0])
			if buf[0] == lucid.EndByte {
				return line, nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return line, nil
			}
			return line, err
		}
		if n == 0 {
			return line, nil
		}
	}
	return line, nil
}
