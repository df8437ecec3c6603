package simulator

import (
	"bytes"
	"sync"

	"github.com/danmechanic/glucid/internal/protocol/lucid"
)

// Fault 注入的故障类型
type Fault int

const (
	FaultNone            Fault = iota
	FaultDrop                  // 不回复（读超时）
	FaultBadManufacturer       // 厂商ID错误
	FaultBadModel              // 型号错误
	FaultNotResponse           // 缺少响应标志
	FaultTruncate              // 丢掉 END
	FaultShortPayload          // 负载为空
	FaultLate                  // 前两次读取为空，第三次才有应答
)

// DefaultGains 出厂增益：输入 -8 dB，输出 +1 dB
var DefaultGains = []byte{
	0x58, 0x58, 0x58, 0x58, 0x58, 0x58, 0x58, 0x58,
	0x61, 0x61, 0x61, 0x61, 0x61, 0x61, 0x61, 0x61,
}

// Device 模拟一台 8824，实现 transport.Transport。
// 任何地址的命令都会以自身地址应答，便于覆盖地址不符的场景。
type Device struct {
	mu      sync.Mutex
	name    string
	address byte
	silent  bool // MIDI：只收不回
	open    bool

	mode    byte
	sync    byte
	optical byte
	analog  byte
	aes     byte
	gains   []byte

	faults  []Fault
	pending [][]byte
	frames  [][]byte
}

// New 创建模拟设备
func New(name string, address byte) *Device {
	return &Device{
		name:    name,
		address: address,
		gains:   append([]byte(nil), DefaultGains...),
	}
}

// Silent 模拟 MIDI 链路：不产生任何回复
func (d *Device) Silent(v bool) *Device {
	d.mu.Lock()
	d.silent = v
	d.mu.Unlock()
	return d
}

// Inject 为后续命令依次注入故障
func (d *Device) Inject(faults ...Fault) {
	d.mu.Lock()
	d.faults = append(d.faults, faults...)
	d.mu.Unlock()
}

func (d *Device) Name() string { return d.name }

func (d *Device) Open() error {
	d.mu.Lock()
	d.open = true
	d.mu.Unlock()
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	d.open = false
	d.pending = nil
	d.mu.Unlock()
	return nil
}

// Write 接收一帧命令并生成应答
func (d *Device) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	frame := append([]byte(nil), p...)
	d.frames = append(d.frames, frame)

	start := bytes.IndexByte(frame, lucid.StartByte)
	end := bytes.LastIndexByte(frame, lucid.EndByte)
	if start < 0 || end < start+7 {
		return len(p), nil
	}
	body := frame[start:end]
	if !bytes.Equal(body[1:4], lucid.ManufacturerID[:]) || body[4] != lucid.ModelID {
		return len(p), nil
	}
	opcode := body[6]
	args := body[7:]

	payload := d.handle(opcode, args)
	if d.silent {
		return len(p), nil
	}
	d.pending = append(d.pending, d.respond(opcode, payload))
	return len(p), nil
}

// ReadLine 返回下一条应答；没有应答时返回空行（等同读超时）
func (d *Device) ReadLine() ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.pending) == 0 {
		return nil, nil
	}
	line := d.pending[0]
	d.pending = d.pending[1:]
	return line, nil
}

func (d *Device) handle(opcode byte, args []byte) []byte {
	arg := byte(0)
	if len(args) > 0 {
		arg = args[0]
	}
	switch lucid.Command(opcode) {
	case lucid.GetMode:
		return []byte{d.mode}
	case lucid.GetSync:
		return []byte{d.sync}
	case lucid.GetOptSrc:
		return []byte{d.optical}
	case lucid.GetAnalogSrc:
		return []byte{d.analog}
	case lucid.GetAesSrc:
		return []byte{d.aes}
	case lucid.GetAnalogGain:
		return append([]byte(nil), d.gains...)
	case lucid.SetMode:
		d.mode = arg & 0x07
	case lucid.SetSync:
		d.sync = arg & 0x07
	case lucid.SetOptSrc:
		d.optical = arg & 0x01
	case lucid.SetAnalogSrc:
		d.analog = arg & 0x01
	case lucid.SetAesSrc:
		d.aes = arg & 0x01
	case lucid.SetAnalogGain:
		if len(args) >= len(d.gains) {
			copy(d.gains, args)
		}
	}
	return nil
}

func (d *Device) respond(opcode byte, payload []byte) []byte {
	fault := FaultNone
	if len(d.faults) > 0 {
		fault = d.faults[0]
		d.faults = d.faults[1:]
	}
	resp := lucid.BuildResponse(d.address, opcode, payload)
	switch fault {
	case FaultDrop:
		return nil
	case FaultBadManufacturer:
		resp[3] ^= 0x01
	case FaultBadModel:
		resp[4] = 0x59
	case FaultNotResponse:
		resp[6] = 0x00
	case FaultTruncate:
		resp = resp[:len(resp)-1]
	case FaultShortPayload:
		resp = lucid.BuildResponse(d.address, opcode, nil)
	case FaultLate:
		d.pending = append(d.pending, nil, nil)
	}
	return resp
}

// Frames 收到的全部命令帧
func (d *Device) Frames() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.frames))
	copy(out, d.frames)
	return out
}

// Gains 当前增益（原始值）
func (d *Device) Gains() []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]byte(nil), d.gains...)
}

// Registers 当前 mode/sync/optical/analog/aes
func (d *Device) Registers() (mode, sync, optical, analog, aes byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mode, d.sync, d.optical, d.analog, d.aes
}

// SetAddress 修改设备地址（模拟拨码开关）
func (d *Device) SetAddress(addr byte) {
	d.mu.Lock()
	d.address = addr
	d.mu.Unlock()
}
