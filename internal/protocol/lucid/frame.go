package lucid

// Lucid 8824 SysEx 风格帧
// 命令：  F0 | 00 00 5E | 58 | addr | opcode | args... | F7
// 响应：  F0 | 00 00 5E | 58 | addr | 05 | opcode | payload... | F7
const (
	StartByte      byte = 0xF0 // 帧起始
	EndByte        byte = 0xF7 // 帧结束
	ModelID        byte = 0x58 // 8824 型号
	ResponseMarker byte = 0x05 // 响应标志（START+6）

	// MaxAddress 设备地址上限（0..7）
	MaxAddress byte = 7

	offManufacturer = 1
	offModel        = 4
	offAddress      = 5
	offMarker       = 6
	offEcho         = 7
	offPayload      = 8
)

// ManufacturerID 厂商标识（3字节）
var ManufacturerID = [3]byte{0x00, 0x00, 0x5E}

// Response 解析后的响应帧
type Response struct {
	Address byte   // 设备上报的地址
	Opcode  byte   // 设备回显的操作码
	Payload []byte // START+8 .. END（不含）
}
