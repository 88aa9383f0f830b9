// File: extension/extension.go
// Package extension implements the middleware pipeline frames traverse
// on every encode and decode, plus the Sec-WebSocket-Extensions header
// grammar shared by offers and accepts.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package extension

import (
	"fmt"
	"sort"
	"strings"

	"github.com/momentics/sansio-ws/protocol"
)

// Params carries extension negotiation parameters. A parameter present
// without a value maps to the empty string.
type Params map[string]string

// Extension is one negotiated protocol extension. Per-connection state
// lives inside the instance; the connection owns the instance and every
// frame flows through it in server-accept order on both directions.
type Extension interface {
	// Name returns the wire token of the extension.
	Name() string

	// Offer returns the parameters sent in the client's offer.
	Offer() Params

	// Accept consumes the parameters the server echoed back and
	// instantiates the per-direction state. A parameter set the
	// extension cannot operate with is an error.
	Accept(Params) error

	// EncodeFrame transforms a wire frame before serialization. The
	// extension may set reserved bits it negotiated.
	EncodeFrame(f *protocol.RawFrame) error

	// DecodeFrame transforms an assembled inbound frame, clearing any
	// reserved bits it claimed.
	DecodeFrame(f *protocol.RawFrame) error

	// Release drops any owned state, such as compression contexts.
	Release()
}

// Pipeline applies extensions in the order the server accepted them.
// Extensions are self-symmetric: decode runs in the same forward order
// as encode.
type Pipeline struct {
	exts []Extension
}

// NewPipeline builds a pipeline over the accepted extensions.
func NewPipeline(exts ...Extension) *Pipeline {
	return &Pipeline{exts: exts}
}

// Extensions returns the accepted extensions in pipeline order.
func (p *Pipeline) Extensions() []Extension {
	return p.exts
}

// Encode runs the frame through every extension's encode transform.
func (p *Pipeline) Encode(f *protocol.RawFrame) error {
	for _, e := range p.exts {
		if err := e.EncodeFrame(f); err != nil {
			return fmt.Errorf("extension %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Decode runs the frame through every extension's decode transform.
func (p *Pipeline) Decode(f *protocol.RawFrame) error {
	for _, e := range p.exts {
		if err := e.DecodeFrame(f); err != nil {
			return fmt.Errorf("extension %s: %w", e.Name(), err)
		}
	}
	return nil
}

// Release releases every extension's owned state.
func (p *Pipeline) Release() {
	for _, e := range p.exts {
		e.Release()
	}
}

// FormatOffers renders the Sec-WebSocket-Extensions value for a list of
// extension offers: comma-separated entries of name plus ";"-separated
// parameters. A bare parameter is written without "=".
func FormatOffers(exts []Extension) string {
	var entries []string
	for _, e := range exts {
		entries = append(entries, formatEntry(e.Name(), e.Offer()))
	}
	return strings.Join(entries, ", ")
}

func formatEntry(name string, params Params) string {
	var sb strings.Builder
	sb.WriteString(name)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString("; ")
		sb.WriteString(k)
		if v := params[k]; v != "" {
			sb.WriteString("=")
			sb.WriteString(v)
		}
	}
	return sb.String()
}

// Accepted is one entry of a parsed Sec-WebSocket-Extensions value.
type Accepted struct {
	Name   string
	Params Params
}

// ParseHeader parses a Sec-WebSocket-Extensions value into its entries,
// preserving server order. A bare parameter and "param=true" both map
// to the empty-marker convention used by Offer/Accept.
func ParseHeader(v string) ([]Accepted, error) {
	var out []Accepted
	for _, entry := range strings.Split(v, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ";")
		name := strings.TrimSpace(parts[0])
		if name == "" {
			return nil, fmt.Errorf("extension entry with empty name: %q", entry)
		}
		params := make(Params)
		for _, p := range parts[1:] {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			k, val, found := strings.Cut(p, "=")
			k = strings.TrimSpace(k)
			if k == "" {
				return nil, fmt.Errorf("extension %s: empty parameter name", name)
			}
			if !found || strings.TrimSpace(val) == "true" {
				params[k] = ""
				continue
			}
			params[k] = strings.Trim(strings.TrimSpace(val), `"`)
		}
		out = append(out, Accepted{Name: name, Params: params})
	}
	return out, nil
}
