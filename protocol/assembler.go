// File: protocol/assembler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fragment reassembly per RFC 6455 §5.4. Control frames bypass the
// assembler entirely and may interleave with an open fragment sequence;
// data fragments queue until the terminal continuation arrives.

package protocol

import (
	"fmt"

	"github.com/eapache/queue"

	"github.com/momentics/sansio-ws/api"
)

// Assembler holds the pending-fragments state of one connection. The
// queue is non-empty only while a text or binary frame with fin unset is
// awaiting its terminal continuation.
type Assembler struct {
	pending *queue.Queue // of *RawFrame
}

// NewAssembler returns an assembler with no open fragment sequence.
func NewAssembler() *Assembler {
	return &Assembler{pending: queue.New()}
}

// Pending returns the number of queued fragments.
func (a *Assembler) Pending() int {
	return a.pending.Length()
}

// Push feeds one decoded frame through the reassembly rules. It returns
// a complete frame when one becomes available, nil while a sequence is
// still open, or an error when the frame violates fragment ordering.
// Errored frames leave the pending queue untouched.
func (a *Assembler) Push(f *RawFrame) (*RawFrame, error) {
	if f.IsControl() {
		if !f.Fin {
			return nil, fmt.Errorf("%w: fragmented control frame", api.ErrOutOfOrderFragments)
		}
		if len(f.Payload) > MaxControlPayloadLen {
			return nil, fmt.Errorf("%w: control payload %d bytes", api.ErrPayloadTooLarge, len(f.Payload))
		}
		return f, nil
	}

	switch {
	case f.Opcode != OpcodeContinuation && f.Fin:
		if a.pending.Length() != 0 {
			return nil, api.ErrOutOfOrderFragments
		}
		return f, nil

	case f.Opcode != OpcodeContinuation: // first fragment
		if a.pending.Length() != 0 {
			return nil, api.ErrOutOfOrderFragments
		}
		a.pending.Add(f)
		return nil, nil

	case !f.Fin: // middle fragment
		if a.pending.Length() == 0 {
			return nil, api.ErrUninitiatedContinuation
		}
		if f.Rsv1 || f.Rsv2 || f.Rsv3 {
			return nil, api.ErrMalformedReserved
		}
		a.pending.Add(f)
		return nil, nil

	default: // terminal continuation
		if a.pending.Length() == 0 {
			return nil, api.ErrUninitiatedContinuation
		}
		if f.Rsv1 || f.Rsv2 || f.Rsv3 {
			return nil, api.ErrMalformedReserved
		}
		return a.assemble(f), nil
	}
}

// assemble drains the queue and concatenates all fragment payloads, in
// order, into the first fragment's opcode and reserved bits.
func (a *Assembler) assemble(last *RawFrame) *RawFrame {
	first := a.pending.Remove().(*RawFrame)

	size := len(first.Payload) + len(last.Payload)
	for i := 0; i < a.pending.Length(); i++ {
		size += len(a.pending.Get(i).(*RawFrame).Payload)
	}

	payload := make([]byte, 0, size)
	payload = append(payload, first.Payload...)
	for a.pending.Length() > 0 {
		payload = append(payload, a.pending.Remove().(*RawFrame).Payload...)
	}
	payload = append(payload, last.Payload...)

	return &RawFrame{
		Fin:     true,
		Rsv1:    first.Rsv1,
		Rsv2:    first.Rsv2,
		Rsv3:    first.Rsv3,
		Opcode:  first.Opcode,
		Payload: payload,
	}
}
