// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// frame_codec_test.go — wire-level encode/decode, partial input, length forms.
package protocol_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/momentics/sansio-ws/api"
	"github.com/momentics/sansio-ws/protocol"
)

func TestEncodeMaskedTextFrame(t *testing.T) {
	// RFC 6455 §5.7: single-frame masked "Hello".
	f := &protocol.RawFrame{
		Fin:     true,
		Opcode:  protocol.OpcodeText,
		Masked:  true,
		MaskKey: [4]byte{0x37, 0xfa, 0x21, 0x3d},
		Payload: []byte("Hello"),
	}
	got, err := protocol.EncodeRawFrame(f)
	if err != nil {
		t.Fatalf("EncodeRawFrame: %v", err)
	}
	want := []byte{0x81, 0x85, 0x37, 0xfa, 0x21, 0x3d, 0x7f, 0x9f, 0x4d, 0x51, 0x58}
	if !bytes.Equal(got, want) {
		t.Errorf("encoded = % x, want % x", got, want)
	}
	if !bytes.Equal(f.Payload, []byte("Hello")) {
		t.Error("encode must not mutate the input payload")
	}
}

func TestEncodeHeaderLayout(t *testing.T) {
	key := [4]byte{0x37, 0xfa, 0x21, 0x3d}
	cases := []struct {
		size     int
		wantLen7 byte
		extraHdr int
	}{
		{0, 0, 0},
		{11, 11, 0},
		{125, 125, 0},
		{126, 126, 2},
		{65535, 126, 2},
		{65536, 127, 8},
	}
	for _, tc := range cases {
		f := &protocol.RawFrame{
			Fin:     true,
			Opcode:  protocol.OpcodeBinary,
			Masked:  true,
			MaskKey: key,
			Payload: make([]byte, tc.size),
		}
		out, err := protocol.EncodeRawFrame(f)
		if err != nil {
			t.Fatalf("size %d: %v", tc.size, err)
		}
		if out[0] != 0x82 {
			t.Errorf("size %d: byte0 = %#x, want 0x82", tc.size, out[0])
		}
		if out[1] != tc.wantLen7|protocol.MaskBit {
			t.Errorf("size %d: length byte = %#x", tc.size, out[1])
		}
		wantTotal := 2 + tc.extraHdr + 4 + tc.size
		if len(out) != wantTotal {
			t.Errorf("size %d: total = %d, want %d", tc.size, len(out), wantTotal)
		}
		switch tc.extraHdr {
		case 2:
			if int(binary.BigEndian.Uint16(out[2:])) != tc.size {
				t.Errorf("size %d: u16 length mismatch", tc.size)
			}
		case 8:
			if int(binary.BigEndian.Uint64(out[2:])) != tc.size {
				t.Errorf("size %d: u64 length mismatch", tc.size)
			}
		}
	}
}

func TestEncodeControlTooLarge(t *testing.T) {
	f := &protocol.RawFrame{
		Fin:     true,
		Opcode:  protocol.OpcodePing,
		Masked:  true,
		Payload: make([]byte, 126),
	}
	if _, err := protocol.EncodeRawFrame(f); !errors.Is(err, api.ErrPayloadTooLarge) {
		t.Errorf("err = %v, want ErrPayloadTooLarge", err)
	}
}

func TestDecodePing(t *testing.T) {
	raw := []byte{0x89, 0x04, 0x70, 0x69, 0x6e, 0x67}
	f, consumed, err := protocol.DecodeNextRawFrame(raw)
	if err != nil {
		t.Fatalf("DecodeNextRawFrame: %v", err)
	}
	if consumed != len(raw) {
		t.Errorf("consumed = %d, want %d", consumed, len(raw))
	}
	if f.Opcode != protocol.OpcodePing || !f.Fin {
		t.Errorf("frame = %+v", f)
	}
	if string(f.Payload) != "ping" {
		t.Errorf("payload = %q", f.Payload)
	}
}

func TestDecodePartialInput(t *testing.T) {
	full := []byte{0x81, 0x0b}
	full = append(full, []byte("hello world")...)
	for cut := 0; cut < len(full); cut++ {
		f, consumed, err := protocol.DecodeNextRawFrame(full[:cut])
		if err != nil {
			t.Fatalf("cut %d: %v", cut, err)
		}
		if f != nil || consumed != 0 {
			t.Errorf("cut %d: expected need-more, got frame=%v consumed=%d", cut, f, consumed)
		}
	}
	f, consumed, err := protocol.DecodeNextRawFrame(full)
	if err != nil || f == nil {
		t.Fatalf("full frame: f=%v err=%v", f, err)
	}
	if consumed != len(full) || string(f.Payload) != "hello world" {
		t.Errorf("consumed=%d payload=%q", consumed, f.Payload)
	}
}

func TestDecodeExtendedLengths(t *testing.T) {
	for _, size := range []int{126, 65535, 65536} {
		f := &protocol.RawFrame{Fin: true, Opcode: protocol.OpcodeBinary, Payload: make([]byte, size)}
		raw, err := protocol.EncodeRawFrame(f)
		if err != nil {
			t.Fatalf("size %d: encode: %v", size, err)
		}
		got, consumed, err := protocol.DecodeNextRawFrame(raw)
		if err != nil || got == nil {
			t.Fatalf("size %d: decode: %v", size, err)
		}
		if consumed != len(raw) || len(got.Payload) != size {
			t.Errorf("size %d: consumed=%d payloadLen=%d", size, consumed, len(got.Payload))
		}
	}
}

func TestDecodeRejectsMaskedFrame(t *testing.T) {
	raw := []byte{0x81, 0x85, 0x00, 0x00, 0x00, 0x00, 'H', 'e', 'l', 'l', 'o'}
	f, consumed, err := protocol.DecodeNextRawFrame(raw)
	if !errors.Is(err, api.ErrUnexpectedMask) {
		t.Fatalf("err = %v, want ErrUnexpectedMask", err)
	}
	if f != nil {
		t.Error("masked frame must not be returned")
	}
	if consumed != len(raw) {
		t.Errorf("consumed = %d, want %d (frame extent is known)", consumed, len(raw))
	}
}

func TestDecodeRejectsReservedOpcode(t *testing.T) {
	for _, op := range []byte{0x3, 0x7, 0xB, 0xF} {
		raw := []byte{0x80 | op, 0x01, 0xAA}
		f, consumed, err := protocol.DecodeNextRawFrame(raw)
		if !errors.Is(err, api.ErrUnsupportedOpcode) {
			t.Errorf("opcode %#x: err = %v", op, err)
		}
		if f != nil || consumed != 3 {
			t.Errorf("opcode %#x: f=%v consumed=%d", op, f, consumed)
		}
	}
}

func TestDecodeRejectsOversizedLength(t *testing.T) {
	raw := []byte{0x82, 127, 0x80, 0, 0, 0, 0, 0, 0, 1}
	_, consumed, err := protocol.DecodeNextRawFrame(raw)
	if !errors.Is(err, api.ErrMalformedPayloadLength) {
		t.Fatalf("err = %v, want ErrMalformedPayloadLength", err)
	}
	if consumed != 0 {
		t.Errorf("consumed = %d, want 0 (stream position untrusted)", consumed)
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		[]byte("x"),
		bytes.Repeat([]byte{0x5a}, 125),
		bytes.Repeat([]byte{0xa5}, 300),
	}
	for _, p := range payloads {
		f := &protocol.RawFrame{Fin: true, Opcode: protocol.OpcodeBinary, Payload: p}
		raw, err := protocol.EncodeRawFrame(f)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		got, consumed, err := protocol.DecodeNextRawFrame(raw)
		if err != nil || got == nil {
			t.Fatalf("decode: %v", err)
		}
		if consumed != len(raw) {
			t.Errorf("consumed = %d, want %d", consumed, len(raw))
		}
		if !bytes.Equal(got.Payload, p) || got.Opcode != f.Opcode || !got.Fin {
			t.Errorf("round trip mismatch for %d-byte payload", len(p))
		}
	}
}
