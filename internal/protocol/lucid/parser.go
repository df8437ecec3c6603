package lucid

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrFrameNotFound   = errors.New("frame not found")
	ErrBadManufacturer = errors.New("bad manufacturer id")
	ErrBadModel        = errors.New("bad model id")
	ErrAddressMismatch = errors.New("device address mismatch")
	ErrNotAResponse    = errors.New("not a response frame")
	ErrInvalidArgument = errors.New("invalid argument byte")
)

// AddressMismatchError 响应地址与期望地址不一致，Reported 为设备实际地址
type AddressMismatchError struct {
	Expected byte
	Reported byte
}

func (e *AddressMismatchError) Error() string {
	return fmt.Sprintf("device address mismatch: expected %02d, device reported %02d", e.Expected, e.Reported)
}

func (e *AddressMismatchError) Is(target error) bool { return target == ErrAddressMismatch }

// ArgumentError 参数字节超出 0x00..0x7F
type ArgumentError struct {
	Index int
	Value byte
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid argument byte 0x%02X at %d", e.Value, e.Index)
}

func (e *ArgumentError) Is(target error) bool { return target == ErrInvalidArgument }

// Parse 解析一帧响应（逐步校验：START/END、厂商、型号、地址、响应标志）
// START 与 END 之间放不下地址与响应标志的截断帧按 ErrFrameNotFound 处理
func Parse(opcode byte, raw []byte, expected byte) (*Response, error) {
	start := bytes.IndexByte(raw, StartByte)
	if start < 0 {
		return nil, ErrFrameNotFound
	}
	frame := raw[start:]
	end := bytes.IndexByte(frame[1:], EndByte)
	if end < 0 {
		return nil, ErrFrameNotFound
	}
	body := frame[:end+1] // 不含 END
	if len(body) <= offMarker {
		return nil, ErrFrameNotFound
	}

	if !bytes.Equal(body[offManufacturer:offModel], ManufacturerID[:]) {
		return nil, ErrBadManufacturer
	}
	if body[offModel] != ModelID {
		return nil, ErrBadModel
	}
	if addr := body[offAddress]; addr != expected {
		return nil, &AddressMismatchError{Expected: expected, Reported: addr}
	}
	if body[offMarker] != ResponseMarker {
		return nil, ErrNotAResponse
	}

	resp := &Response{Address: body[offAddress], Opcode: opcode, Payload: []byte{}}
	if len(body) > offEcho {
		resp.Opcode = body[offEcho]
	}
	if len(body) > offPayload {
		resp.Payload = append(resp.Payload, body[offPayload:]...)
	}
	return resp, nil
}
