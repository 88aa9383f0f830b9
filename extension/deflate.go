// File: extension/deflate.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// permessage-deflate (RFC 7692). Each compressed message travels as a
// raw DEFLATE stream with the trailing empty stored block removed; RSV1
// on the opening data frame marks the message as compressed. Compression
// context carries over between messages unless no_context_takeover was
// negotiated for that direction.

package extension

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/klauspost/compress/flate"

	"github.com/momentics/sansio-ws/pool"
	"github.com/momentics/sansio-ws/protocol"
)

// DeflateExtensionName is the wire token of the extension.
const DeflateExtensionName = "permessage-deflate"

// maxWindowSize is the DEFLATE sliding window the flate backend runs,
// regardless of the negotiated max_window_bits hint.
const maxWindowSize = 1 << 15

// deflateTail completes a stripped message for inflation: the removed
// empty stored block, then a final empty stored block so the inflate
// stream terminates cleanly.
var deflateTail = []byte{0x00, 0x00, 0xff, 0xff, 0x01, 0x00, 0x00, 0xff, 0xff}

// windowPool backs the decompressor's sliding-window dictionaries.
var windowPool = pool.NewBytePool(maxWindowSize)

// DeflateOptions configures the client side of the negotiation.
type DeflateOptions struct {
	// Level is the flate compression level; 0 means flate.DefaultCompression.
	Level int

	// RequestServerNoContextTakeover asks the server to reset its
	// compression context after every message.
	RequestServerNoContextTakeover bool

	// RequestClientNoContextTakeover announces that the client resets
	// its own context after every message.
	RequestClientNoContextTakeover bool
}

// PerMessageDeflate implements Extension for permessage-deflate.
type PerMessageDeflate struct {
	opts DeflateOptions

	serverNoContextTakeover bool
	clientNoContextTakeover bool
	serverMaxWindowBits     int
	clientMaxWindowBits     int

	fw   *flate.Writer
	wbuf bytes.Buffer

	dict    []byte
	dictBuf []byte
}

// NewPerMessageDeflate returns an unnegotiated extension instance.
func NewPerMessageDeflate(opts DeflateOptions) *PerMessageDeflate {
	if opts.Level == 0 {
		opts.Level = flate.DefaultCompression
	}
	return &PerMessageDeflate{
		opts:                opts,
		serverMaxWindowBits: 15,
		clientMaxWindowBits: 15,
	}
}

// Name implements Extension.
func (d *PerMessageDeflate) Name() string { return DeflateExtensionName }

// Offer implements Extension. client_max_window_bits is always offered
// bare so the server may pick any window hint.
func (d *PerMessageDeflate) Offer() Params {
	p := Params{"client_max_window_bits": ""}
	if d.opts.RequestServerNoContextTakeover {
		p["server_no_context_takeover"] = ""
	}
	if d.opts.RequestClientNoContextTakeover {
		p["client_no_context_takeover"] = ""
	}
	return p
}

// Accept implements Extension, consuming the server-selected parameters.
func (d *PerMessageDeflate) Accept(params Params) error {
	for k, v := range params {
		switch k {
		case "server_no_context_takeover":
			d.serverNoContextTakeover = true
		case "client_no_context_takeover":
			d.clientNoContextTakeover = true
		case "server_max_window_bits":
			bits, err := parseWindowBits(v)
			if err != nil {
				return fmt.Errorf("server_max_window_bits: %w", err)
			}
			d.serverMaxWindowBits = bits
		case "client_max_window_bits":
			if v == "" {
				continue
			}
			bits, err := parseWindowBits(v)
			if err != nil {
				return fmt.Errorf("client_max_window_bits: %w", err)
			}
			d.clientMaxWindowBits = bits
		default:
			return fmt.Errorf("unknown parameter %q", k)
		}
	}
	if d.opts.RequestClientNoContextTakeover {
		d.clientNoContextTakeover = true
	}
	return nil
}

func parseWindowBits(v string) (int, error) {
	bits, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("not an integer: %q", v)
	}
	if bits < 8 || bits > 15 {
		return 0, fmt.Errorf("out of range: %d", bits)
	}
	return bits, nil
}

// EncodeFrame implements Extension. Data frames are compressed and
// tagged with RSV1; control frames pass through untouched.
func (d *PerMessageDeflate) EncodeFrame(f *protocol.RawFrame) error {
	if f.Opcode != protocol.OpcodeText && f.Opcode != protocol.OpcodeBinary {
		return nil
	}

	if d.fw == nil {
		fw, err := flate.NewWriter(&d.wbuf, d.opts.Level)
		if err != nil {
			return fmt.Errorf("deflate init: %w", err)
		}
		d.fw = fw
	}

	if _, err := d.fw.Write(f.Payload); err != nil {
		return fmt.Errorf("deflate: %w", err)
	}
	if err := d.fw.Flush(); err != nil {
		return fmt.Errorf("deflate flush: %w", err)
	}

	out := d.wbuf.Bytes()
	if n := len(out); n >= 4 && bytes.Equal(out[n-4:], deflateTail[:4]) {
		out = out[:n-4]
	}
	if len(out) == 0 {
		// An empty DEFLATE block keeps the frame non-empty on the wire.
		out = []byte{0x00}
	}
	f.Payload = append([]byte(nil), out...)
	f.Rsv1 = true

	d.wbuf.Reset()
	if d.clientNoContextTakeover {
		d.fw.Reset(&d.wbuf)
	}
	return nil
}

// DecodeFrame implements Extension. A data frame carrying RSV1 is
// inflated and the bit cleared; everything else passes through, leaving
// stray reserved bits for the translate layer to reject.
func (d *PerMessageDeflate) DecodeFrame(f *protocol.RawFrame) error {
	if !f.Rsv1 || (f.Opcode != protocol.OpcodeText && f.Opcode != protocol.OpcodeBinary) {
		return nil
	}

	src := make([]byte, 0, len(f.Payload)+len(deflateTail))
	src = append(src, f.Payload...)
	src = append(src, deflateTail...)

	var fr io.ReadCloser
	if d.dict == nil {
		fr = flate.NewReader(bytes.NewReader(src))
	} else {
		fr = flate.NewReaderDict(bytes.NewReader(src), d.dict)
	}
	out, err := io.ReadAll(fr)
	fr.Close()
	if err != nil {
		return fmt.Errorf("inflate: %w", err)
	}

	f.Payload = out
	f.Rsv1 = false

	if d.serverNoContextTakeover {
		d.dict = nil
	} else {
		d.growDict(out)
	}
	return nil
}

// growDict appends decompressed output to the sliding window, keeping
// the final maxWindowSize bytes.
func (d *PerMessageDeflate) growDict(out []byte) {
	if d.dictBuf == nil {
		d.dictBuf = windowPool.Get()
	}
	if len(out) >= maxWindowSize {
		d.dict = d.dictBuf[:copy(d.dictBuf, out[len(out)-maxWindowSize:])]
		return
	}
	keep := maxWindowSize - len(out)
	if keep > len(d.dict) {
		keep = len(d.dict)
	}
	copy(d.dictBuf, d.dict[len(d.dict)-keep:])
	n := keep + copy(d.dictBuf[keep:], out)
	d.dict = d.dictBuf[:n]
}

// Release implements Extension, returning the window buffer to the pool.
func (d *PerMessageDeflate) Release() {
	if d.dictBuf != nil {
		windowPool.Put(d.dictBuf)
		d.dictBuf = nil
		d.dict = nil
	}
	d.fw = nil
}
