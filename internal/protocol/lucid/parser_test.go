package lucid

import (
	"bytes"
	"errors"
	"testing"
)

func TestBuild_Layout(t *testing.T) {
	got := Build(GetSync.Opcode(), 0x03, []byte{0x00})
	want := []byte{0xF0, 0x00, 0x00, 0x5E, 0x58, 0x03, 0x61, 0x00, 0xF7}
	if !bytes.Equal(got, want) {
		t.Fatalf("unexpected frame: % X", got)
	}
}

func TestParse_RoundTrip(t *testing.T) {
	cases := []struct {
		op   byte
		addr byte
		args []byte
	}{
		{0x61, 0, []byte{0x02}},
		{0x70, 7, bytes.Repeat([]byte{0x58}, 16)},
		{0x20, 1, []byte{}},
		{0x99, 4, []byte{0x0A, 0x0D, 0x7F}},
	}
	for _, c := range cases {
		resp, err := Parse(c.op, BuildResponse(c.addr, c.op, c.args), c.addr)
		if err != nil {
			t.Fatalf("op 0x%02X: unexpected error: %v", c.op, err)
		}
		if !bytes.Equal(resp.Payload, c.args) {
			t.Fatalf("op 0x%02X: payload % X, want % X", c.op, resp.Payload, c.args)
		}
		if resp.Opcode != c.op || resp.Address != c.addr {
			t.Fatalf("unexpected response: %+v", resp)
		}
	}
}

func TestParse_SkipsLeadingNoise(t *testing.T) {
	raw := append([]byte{0x00, 0x12, 0x0A}, BuildResponse(0, 0x61, []byte{0x05})...)
	resp, err := Parse(0x61, raw, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(resp.Payload, []byte{0x05}) {
		t.Fatalf("unexpected payload: % X", resp.Payload)
	}
}

func TestParse_FrameNotFound(t *testing.T) {
	inputs := [][]byte{
		nil,
		{},
		{0x00, 0x00, 0x5E, 0x58, 0x00, 0x05, 0x61, 0x01, 0xF7},
		{0xF0, 0x00, 0x00, 0x5E, 0x58, 0x00, 0x05, 0x61, 0x01},
		{0xF0},
		{0xF7, 0xF0},
		{0xF0, 0x00, 0x00, 0x5E, 0xF7},
		{0xF0, 0x00, 0x00, 0x5E, 0x58, 0x00, 0xF7},
	}
	for _, in := range inputs {
		if _, err := Parse(0x61, in, 0); !errors.Is(err, ErrFrameNotFound) {
			t.Fatalf("input % X: expected ErrFrameNotFound, got %v", in, err)
		}
	}
}

func TestParse_BadManufacturerAndModel(t *testing.T) {
	raw := BuildResponse(0, 0x61, []byte{0x01})
	raw[2] = 0x01
	if _, err := Parse(0x61, raw, 0); !errors.Is(err, ErrBadManufacturer) {
		t.Fatalf("expected ErrBadManufacturer, got %v", err)
	}

	raw = BuildResponse(0, 0x61, []byte{0x01})
	raw[4] = 0x59
	if _, err := Parse(0x61, raw, 0); !errors.Is(err, ErrBadModel) {
		t.Fatalf("expected ErrBadModel, got %v", err)
	}
}

func TestParse_AddressMismatch(t *testing.T) {
	for reported := byte(0); reported <= MaxAddress; reported++ {
		expected := (reported + 1) % (MaxAddress + 1)
		_, err := Parse(0x61, BuildResponse(reported, 0x61, []byte{0x01}), expected)
		if !errors.Is(err, ErrAddressMismatch) {
			t.Fatalf("expected ErrAddressMismatch, got %v", err)
		}
		var mm *AddressMismatchError
		if !errors.As(err, &mm) {
			t.Fatalf("expected *AddressMismatchError, got %T", err)
		}
		if mm.Reported != reported || mm.Expected != expected {
			t.Fatalf("unexpected mismatch: %+v", mm)
		}
	}
}

func TestParse_NotAResponse(t *testing.T) {
	// 命令帧回显（没有响应标志）
	raw := Build(0x61, 0, []byte{0x00})
	if _, err := Parse(0x61, raw, 0); !errors.Is(err, ErrNotAResponse) {
		t.Fatalf("expected ErrNotAResponse, got %v", err)
	}
}

func TestParse_EmptyPayload(t *testing.T) {
	resp, err := Parse(0x21, BuildResponse(2, 0x21, nil), 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Payload == nil || len(resp.Payload) != 0 {
		t.Fatalf("expected empty non-nil payload, got %#v", resp.Payload)
	}

	// 回显字节也缺失
	raw := []byte{0xF0, 0x00, 0x00, 0x5E, 0x58, 0x02, 0x05, 0xF7}
	resp, err = Parse(0x21, raw, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Opcode != 0x21 || len(resp.Payload) != 0 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestParse_PayloadIsCopied(t *testing.T) {
	raw := BuildResponse(0, 0x61, []byte{0x03})
	resp, err := Parse(0x61, raw, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw[8] = 0x7F
	if resp.Payload[0] != 0x03 {
		t.Fatalf("payload aliases input buffer")
	}
}

func TestValidateArgs(t *testing.T) {
	if err := ValidateArgs([]byte{0x00, 0x7F, 0x58}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := ValidateArgs([]byte{0x00, 0xF7})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}
	var ae *ArgumentError
	if !errors.As(err, &ae) || ae.Index != 1 || ae.Value != 0xF7 {
		t.Fatalf("unexpected argument error: %v", err)
	}
}
