// File: protocol/translate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Translation between the public frame model and wire frames. Lower runs
// before the extension pipeline on encode; Lift runs after it on decode,
// so it sees payloads with extension transforms already undone and any
// claimed reserved bits already cleared.

package protocol

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"

	"github.com/momentics/sansio-ws/api"
)

// Lower converts a public frame into a wire frame with a fresh random
// mask. Control payload bounds are enforced here so that encode rejects
// the frame before any extension state advances.
func Lower(f api.Frame) (*RawFrame, error) {
	raw := &RawFrame{Fin: true, Masked: true}

	switch f.Type {
	case api.FrameText:
		if !utf8.ValidString(f.Text) {
			return nil, api.ErrInvalidUTF8
		}
		raw.Opcode = OpcodeText
		raw.Payload = []byte(f.Text)
	case api.FrameBinary:
		raw.Opcode = OpcodeBinary
		raw.Payload = f.Data
	case api.FramePing:
		raw.Opcode = OpcodePing
		raw.Payload = f.Data
	case api.FramePong:
		raw.Opcode = OpcodePong
		raw.Payload = f.Data
	case api.FrameClose:
		raw.Opcode = OpcodeClose
		p, err := buildClosePayload(f)
		if err != nil {
			return nil, err
		}
		raw.Payload = p
	default:
		return nil, fmt.Errorf("%w: frame type %d", api.ErrUnsupportedOpcode, f.Type)
	}

	if raw.IsControl() && len(raw.Payload) > MaxControlPayloadLen {
		return nil, api.ErrPayloadTooLarge
	}

	key, err := NewMaskKey()
	if err != nil {
		return nil, err
	}
	raw.MaskKey = key
	return raw, nil
}

// buildClosePayload renders the close body: big-endian status code
// followed by the reason, or nothing at all for a bare close.
func buildClosePayload(f api.Frame) ([]byte, error) {
	if !f.HasCode {
		if f.Reason != "" {
			return nil, api.ErrInvalidClosePayload
		}
		return nil, nil
	}
	if !ValidCloseCode(f.Code) {
		return nil, fmt.Errorf("%w: code %d", api.ErrInvalidClosePayload, f.Code)
	}
	if len(f.Reason) > MaxCloseReasonLen {
		return nil, api.ErrPayloadTooLarge
	}
	if !utf8.ValidString(f.Reason) {
		return nil, api.ErrInvalidUTF8
	}
	p := make([]byte, 2+len(f.Reason))
	binary.BigEndian.PutUint16(p, uint16(f.Code))
	copy(p[2:], f.Reason)
	return p, nil
}

// Lift validates a fully assembled wire frame and converts it to the
// public model. Reserved bits must have been cleared by the extensions
// that claimed them; anything still set is a protocol violation.
func Lift(raw *RawFrame) (api.Frame, error) {
	if raw.Rsv1 || raw.Rsv2 || raw.Rsv3 {
		return api.Frame{}, fmt.Errorf("%w: rsv=%03b", api.ErrMalformedReserved, raw.RsvBits()>>4)
	}

	switch raw.Opcode {
	case OpcodeText:
		if !utf8.Valid(raw.Payload) {
			return api.Frame{}, api.ErrInvalidUTF8
		}
		return api.Frame{Type: api.FrameText, Text: string(raw.Payload)}, nil
	case OpcodeBinary:
		return api.Frame{Type: api.FrameBinary, Data: raw.Payload}, nil
	case OpcodePing:
		return api.Frame{Type: api.FramePing, Data: raw.Payload}, nil
	case OpcodePong:
		return api.Frame{Type: api.FramePong, Data: raw.Payload}, nil
	case OpcodeClose:
		return liftClose(raw.Payload)
	default:
		return api.Frame{}, fmt.Errorf("%w: 0x%X", api.ErrUnsupportedOpcode, raw.Opcode)
	}
}

// liftClose parses a close payload. An empty payload becomes the
// synthetic Close(1000, ""); a single byte can never be valid.
func liftClose(p []byte) (api.Frame, error) {
	switch {
	case len(p) == 0:
		return api.Frame{Type: api.FrameClose, Code: CloseNormalClosure, HasCode: true}, nil
	case len(p) == 1:
		return api.Frame{}, fmt.Errorf("%w: 1-byte payload", api.ErrInvalidClosePayload)
	}
	code := int(binary.BigEndian.Uint16(p))
	reason := p[2:]
	if len(reason) > MaxCloseReasonLen {
		return api.Frame{}, fmt.Errorf("%w: reason %d bytes", api.ErrInvalidClosePayload, len(reason))
	}
	if !ValidCloseCode(code) {
		return api.Frame{}, fmt.Errorf("%w: code %d", api.ErrInvalidClosePayload, code)
	}
	if !utf8.Valid(reason) {
		return api.Frame{}, fmt.Errorf("%w: reason not UTF-8", api.ErrInvalidClosePayload)
	}
	return api.Frame{
		Type:    api.FrameClose,
		Code:    code,
		HasCode: true,
		Reason:  string(reason),
	}, nil
}
