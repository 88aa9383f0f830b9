// File: protocol/rawframe.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// On-wire frame representation shared by the codec, the fragment
// assembler and the extension pipeline.

package protocol

// RawFrame is a decoded or to-be-encoded wire frame.
type RawFrame struct {
	Fin    bool // FIN bit
	Rsv1   bool // reserved bits; zero unless claimed by an extension
	Rsv2   bool
	Rsv3   bool
	Opcode byte

	Masked  bool // outbound frames are always masked, inbound never
	MaskKey [4]byte

	Payload []byte
}

// IsControl reports whether the frame is a control frame.
func (f *RawFrame) IsControl() bool {
	return IsControlOpcode(f.Opcode)
}

// IsData reports whether the frame is a data frame, including
// continuation fragments.
func (f *RawFrame) IsData() bool {
	return IsDataOpcode(f.Opcode)
}

// RsvBits packs the reserved bits into the header byte positions.
func (f *RawFrame) RsvBits() byte {
	var b byte
	if f.Rsv1 {
		b |= Rsv1Bit
	}
	if f.Rsv2 {
		b |= Rsv2Bit
	}
	if f.Rsv3 {
		b |= Rsv3Bit
	}
	return b
}
