// File: client/adapter.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// HTTP/1 stream adapter. After a 101 response the HTTP/1 client
// considers the request finished and hands any further socket bytes
// over as raw SocketDataEvent values. The adapter re-routes them as
// DataEvent on the upgraded request, so the caller sees one uniform
// event stream across HTTP versions.

package client

import "github.com/momentics/sansio-ws/api"

// StreamAdapter rewrites the event stream of one upgraded HTTP/1 request.
type StreamAdapter struct {
	ref      api.RequestRef
	upgraded bool
}

// NewStreamAdapter tracks the request carrying the handshake.
func NewStreamAdapter(ref api.RequestRef) *StreamAdapter {
	return &StreamAdapter{ref: ref}
}

// Upgraded reports whether a 101 has been observed for the request.
func (s *StreamAdapter) Upgraded() bool {
	return s.upgraded
}

// Rewrite maps one delivered event to zero or more caller-facing
// events. Events of other requests pass through untouched.
func (s *StreamAdapter) Rewrite(ev api.Event) []api.Event {
	switch e := ev.(type) {
	case api.StatusEvent:
		if e.Ref == s.ref && e.Code == 101 {
			s.upgraded = true
		}
		return []api.Event{ev}
	case api.DoneEvent:
		// The upgraded stream outlives the HTTP request lifecycle.
		if e.Ref == s.ref && s.upgraded {
			return nil
		}
		return []api.Event{ev}
	case api.SocketDataEvent:
		if s.upgraded {
			return []api.Event{api.DataEvent{Ref: s.ref, Bytes: e.Bytes}}
		}
		return []api.Event{ev}
	default:
		return []api.Event{ev}
	}
}

// RewriteAll applies Rewrite over a batch, preserving order.
func (s *StreamAdapter) RewriteAll(evs []api.Event) []api.Event {
	out := make([]api.Event, 0, len(evs))
	for _, ev := range evs {
		out = append(out, s.Rewrite(ev)...)
	}
	return out
}
