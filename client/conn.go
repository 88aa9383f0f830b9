// File: client/conn.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Connection state produced by the handshake and threaded through every
// encode and decode. A Conn is single-owner: two calls on the same Conn
// are serial by construction, and no state is shared between
// connections beyond the process-wide random source and buffer pools.

package client

import (
	"github.com/google/uuid"

	"github.com/momentics/sansio-ws/api"
	"github.com/momentics/sansio-ws/control"
	"github.com/momentics/sansio-ws/extension"
	"github.com/momentics/sansio-ws/pool"
	"github.com/momentics/sansio-ws/protocol"
)

// decodePool seeds per-connection decode buffers.
var decodePool = pool.NewBytePool(4096)

// Conn is the opaque connection state of one WebSocket session.
type Conn struct {
	id       uuid.UUID
	pipeline *extension.Pipeline
	asm      *protocol.Assembler

	decodeBuf []byte

	metrics       *control.MetricsRegistry
	debugProbes   *control.DebugProbes
	framesEncoded uint64
	framesDecoded uint64
}

// NewConn builds a fresh connection state over the accepted extensions.
// Normally reached through Handshake.Finalize.
func NewConn(exts ...extension.Extension) *Conn {
	return &Conn{
		id:        uuid.New(),
		pipeline:  extension.NewPipeline(exts...),
		asm:       protocol.NewAssembler(),
		decodeBuf: decodePool.Get()[:0],
	}
}

// ID returns the connection's identifier, stamped for observability.
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// Extensions returns the accepted extensions in negotiated order.
func (c *Conn) Extensions() []extension.Extension {
	return c.pipeline.Extensions()
}

// PendingFragments returns the number of fragments awaiting their
// terminal continuation.
func (c *Conn) PendingFragments() int {
	return c.asm.Pending()
}

// Buffered returns the number of unparsed bytes held from the last
// Decode call.
func (c *Conn) Buffered() int {
	return len(c.decodeBuf)
}

// Encode turns a public frame into transmit-ready bytes: translate,
// extension pipeline, serialize with a fresh mask. On error the frame
// is rejected and the connection state is left as it was.
func (c *Conn) Encode(f api.Frame) ([]byte, error) {
	raw, err := protocol.Lower(f)
	if err != nil {
		return nil, err
	}
	if err := c.pipeline.Encode(raw); err != nil {
		return nil, err
	}
	out, err := protocol.EncodeRawFrame(raw)
	if err != nil {
		return nil, err
	}
	c.framesEncoded++
	c.count("frames_encoded")
	return out, nil
}

// Decode consumes received bytes and returns one Result per complete
// inbound frame: codec, fragment assembly, extension pipeline,
// validation. Frame-level failures ride inline so later frames in the
// same buffer still surface; a corrupted stream position is returned as
// the top-level error and the connection should be closed with 1002.
func (c *Conn) Decode(data []byte) ([]api.Result[api.Frame], error) {
	buf := append(c.decodeBuf, data...)
	var results []api.Result[api.Frame]

	off := 0
	for {
		raw, consumed, err := protocol.DecodeNextRawFrame(buf[off:])
		if err != nil {
			if consumed == 0 {
				c.decodeBuf = c.decodeBuf[:0]
				return results, err
			}
			results = append(results, api.Fail[api.Frame](err))
			off += consumed
			continue
		}
		if raw == nil {
			break // need more data
		}
		off += consumed

		assembled, err := c.asm.Push(raw)
		if err != nil {
			results = append(results, api.Fail[api.Frame](err))
			continue
		}
		if assembled == nil {
			continue // fragment sequence still open
		}
		if err := c.pipeline.Decode(assembled); err != nil {
			results = append(results, api.Fail[api.Frame](err))
			continue
		}
		frame, err := protocol.Lift(assembled)
		if err != nil {
			results = append(results, api.Fail[api.Frame](err))
			continue
		}
		c.framesDecoded++
		c.count("frames_decoded")
		results = append(results, api.Ok(frame))
	}

	c.decodeBuf = append(c.decodeBuf[:0], buf[off:]...)
	return results, nil
}

// Observe attaches a metrics registry; frame counters are published
// under the connection id.
func (c *Conn) Observe(mr *control.MetricsRegistry) {
	c.metrics = mr
}

// RegisterProbes exposes the connection's live state for inspection.
// The probe is unregistered again by Release.
func (c *Conn) RegisterProbes(dp *control.DebugProbes) {
	c.debugProbes = dp
	dp.RegisterProbe("conn."+c.id.String(), func() any {
		return map[string]any{
			"frames_encoded":    c.framesEncoded,
			"frames_decoded":    c.framesDecoded,
			"pending_fragments": c.asm.Pending(),
			"buffered_bytes":    len(c.decodeBuf),
		}
	})
}

// Release drops owned resources: extension compression contexts, the
// pooled decode buffer, and any registered debug probe. The Conn must
// not be used afterwards.
func (c *Conn) Release() {
	c.pipeline.Release()
	if c.debugProbes != nil {
		c.debugProbes.UnregisterProbe("conn." + c.id.String())
		c.debugProbes = nil
	}
	if c.decodeBuf != nil {
		decodePool.Put(c.decodeBuf)
		c.decodeBuf = nil
	}
}

func (c *Conn) count(key string) {
	if c.metrics != nil {
		c.metrics.Add("conn."+c.id.String()+"."+key, 1)
	}
}
