package lucid

// Build 组装命令帧：START、厂商ID、型号、地址、操作码、参数、END
// 纯函数，不校验参数个数，由调用方保证与命令匹配
func Build(opcode, address byte, args []byte) []byte {
	buf := make([]byte, 0, 8+len(args))
	buf = append(buf, StartByte)
	buf = append(buf, ManufacturerID[:]...)
	buf = append(buf, ModelID, address, opcode)
	buf = append(buf, args...)
	buf = append(buf, EndByte)
	return buf
}

// BuildResponse 组装设备侧的响应帧（模拟器与测试使用）
func BuildResponse(address, opcode byte, payload []byte) []byte {
	buf := make([]byte, 0, 9+len(payload))
	buf = append(buf, StartByte)
	buf = append(buf, ManufacturerID[:]...)
	buf = append(buf, ModelID, address, ResponseMarker, opcode)
	buf = append(buf, payload...)
	buf = append(buf, EndByte)
	return buf
}

// ValidateArgs 参数必须落在7位数据范围内，否则会与 START/END 混淆
func ValidateArgs(args []byte) error {
	for i, b := range args {
		if b&0x80 != 0 {
			return &ArgumentError{Index: i, Value: b}
		}
	}
	return nil
}
