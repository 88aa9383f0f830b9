// File: protocol/frame_codec.go
// Package protocol implements the streaming-safe frame codec.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Encoding serializes one frame per call. Decoding consumes as many
// complete frames as the input holds and reports how many bytes it used,
// so the caller can buffer the unparsed tail between reads. A frame that
// is malformed but of known extent is reported as a frame-level error
// with its length consumed; only a length field that cannot be trusted
// poisons the stream position itself.

package protocol

import (
	"encoding/binary"

	"github.com/momentics/sansio-ws/api"
)

// EncodeRawFrame serializes f, masking the payload when f.Masked is set.
// The input payload is not modified.
func EncodeRawFrame(f *RawFrame) ([]byte, error) {
	plen := len(f.Payload)
	if f.IsControl() && plen > MaxControlPayloadLen {
		return nil, api.ErrPayloadTooLarge
	}

	b0 := f.Opcode & 0x0F
	if f.Fin {
		b0 |= FinBit
	}
	b0 |= f.RsvBits()

	var maskBit byte
	if f.Masked {
		maskBit = MaskBit
	}

	var hdr [MaxFrameHeaderLen]byte
	hdr[0] = b0
	n := 2
	switch {
	case plen <= MaxControlPayloadLen:
		hdr[1] = byte(plen) | maskBit
	case plen <= 0xFFFF:
		hdr[1] = 126 | maskBit
		binary.BigEndian.PutUint16(hdr[2:], uint16(plen))
		n += 2
	default:
		hdr[1] = 127 | maskBit
		binary.BigEndian.PutUint64(hdr[2:], uint64(plen))
		n += 8
	}
	if f.Masked {
		copy(hdr[n:], f.MaskKey[:])
		n += 4
	}

	out := make([]byte, n+plen)
	copy(out, hdr[:n])
	copy(out[n:], f.Payload)
	if f.Masked {
		ApplyMask(out[n:], f.MaskKey)
	}
	return out, nil
}

// DecodeNextRawFrame parses one frame from the head of raw.
//
// Returns (nil, 0, nil) when raw does not yet hold a complete frame.
// A frame-level violation of known extent (masked input, reserved
// opcode) is returned as an error together with the frame's full length
// in consumed, so the caller may skip it and continue. A length field
// whose 64-bit form has the high bit set returns ErrMalformedPayloadLength
// with consumed 0: the stream position is no longer trustworthy.
func DecodeNextRawFrame(raw []byte) (*RawFrame, int, error) {
	if len(raw) < 2 {
		return nil, 0, nil // incomplete
	}
	fin := raw[0]&FinBit != 0
	rsv1 := raw[0]&Rsv1Bit != 0
	rsv2 := raw[0]&Rsv2Bit != 0
	rsv3 := raw[0]&Rsv3Bit != 0
	opcode := raw[0] & 0x0F
	masked := raw[1]&MaskBit != 0
	length := uint64(raw[1] & 0x7F)
	offset := 2

	switch length {
	case 126:
		if len(raw) < offset+2 {
			return nil, 0, nil // incomplete
		}
		length = uint64(binary.BigEndian.Uint16(raw[offset:]))
		offset += 2
	case 127:
		if len(raw) < offset+8 {
			return nil, 0, nil // incomplete
		}
		length = binary.BigEndian.Uint64(raw[offset:])
		if length>>63 != 0 {
			return nil, 0, api.ErrMalformedPayloadLength
		}
		offset += 8
	}

	var maskKey [4]byte
	if masked {
		if len(raw) < offset+4 {
			return nil, 0, nil // incomplete
		}
		copy(maskKey[:], raw[offset:offset+4])
		offset += 4
	}

	if uint64(len(raw)-offset) < length {
		return nil, 0, nil // incomplete
	}
	total := offset + int(length)

	// The frame extent is known from here on; violations consume it.
	if masked {
		return nil, total, api.ErrUnexpectedMask
	}
	if !ValidOpcode(opcode) {
		return nil, total, api.ErrUnsupportedOpcode
	}

	payload := make([]byte, length)
	copy(payload, raw[offset:total])

	return &RawFrame{
		Fin:     fin,
		Rsv1:    rsv1,
		Rsv2:    rsv2,
		Rsv3:    rsv3,
		Opcode:  opcode,
		Masked:  false,
		MaskKey: maskKey,
		Payload: payload,
	}, total, nil
}
