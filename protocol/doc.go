// Package protocol
// Author: momentics <momentics@gmail.com>
//
// Implements the core WebSocket wire logic (RFC 6455) for sansio-ws,
// client role.
//
// The package is purely computational: every entry point is a function
// from bytes and explicit state to bytes and new state. Partial input at
// any byte boundary is handled by returning the unconsumed tail to the
// caller instead of blocking.
//
// Includes:
//   - Frame encoding with mandatory client-side masking
//   - Streaming-safe decoding with unparsed-tail buffering
//   - Translation between wire frames and the public frame model
//   - Fragment reassembly with control-frame interleaving
package protocol
