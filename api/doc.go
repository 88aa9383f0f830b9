// Package api
// Author: momentics <momentics@gmail.com>
//
// Public contracts of the sansio-ws protocol engine.
//
// The engine owns no sockets, goroutines, or timers. Callers feed it
// handshake responses and received byte buffers and get back encoded
// bytes to transmit or decoded frames to consume. This package holds
// the types shared across that boundary:
//
//   - Frame, the caller-facing frame model
//   - Result, the per-frame value-or-error carrier used by decode
//   - the closed error taxonomy of the engine
//   - the HTTP client collaborator contract and its transport events
package api
