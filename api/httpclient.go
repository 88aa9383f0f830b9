// File: api/httpclient.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Contract of the HTTP client collaborator. The engine issues its
// handshake request through this interface and consumes the structured
// events the client delivers; it never touches the wire itself.

package api

import "golang.org/x/net/http2"

// HTTPProtocol identifies the HTTP version the collaborator speaks.
type HTTPProtocol int

const (
	HTTP1 HTTPProtocol = iota + 1
	HTTP2
)

// String returns "http/1.1" or "h2".
func (p HTTPProtocol) String() string {
	switch p {
	case HTTP1:
		return "http/1.1"
	case HTTP2:
		return "h2"
	default:
		return "unknown"
	}
}

// BodyMode selects how the request body is supplied.
type BodyMode int

const (
	// BodyNone declares a request without a body.
	BodyNone BodyMode = iota
	// BodyStream declares that the caller will feed body chunks through
	// StreamRequestBody after the request is issued. Encoded frame bytes
	// travel this way.
	BodyStream
)

// RequestRef is the collaborator's opaque handle for an issued request.
type RequestRef uint64

// HeaderField is a single ordered header. HTTP/2 pseudo-headers keep
// their leading colon and precede all regular fields.
type HeaderField struct {
	Name  string
	Value string
}

// HTTPClient is the transport collaborator the engine drives. It is
// consumed, never provided: implementations live with the caller.
type HTTPClient interface {
	// SendRequest issues a request and returns its handle.
	SendRequest(method, path string, headers []HeaderField, body BodyMode) (RequestRef, error)

	// StreamRequestBody transmits a chunk of request body bytes.
	StreamRequestBody(ref RequestRef, p []byte) error

	// Protocol reports the negotiated HTTP version.
	Protocol() HTTPProtocol

	// ServerSetting returns the value of an HTTP/2 SETTINGS entry
	// announced by the server, and whether it was announced at all.
	ServerSetting(id http2.SettingID) (uint32, bool)

	// Socket exposes the underlying transport handle. Only the HTTP/1
	// stream adapter needs it; HTTP/2 callers may return nil.
	Socket() any
}

// Event is a structured transport event delivered by the HTTP client.
type Event interface {
	isEvent()
}

// StatusEvent carries the response status line of a request.
type StatusEvent struct {
	Ref  RequestRef
	Code int
}

// HeadersEvent carries response headers of a request.
type HeadersEvent struct {
	Ref     RequestRef
	Headers []HeaderField
}

// DataEvent carries response body bytes of a request. After a completed
// handshake these are frame bytes to feed into Conn.Decode.
type DataEvent struct {
	Ref   RequestRef
	Bytes []byte
}

// DoneEvent marks the end of a request's response.
type DoneEvent struct {
	Ref RequestRef
}

// SocketDataEvent carries raw socket bytes that arrived outside any
// request the HTTP/1 client is still tracking. The stream adapter
// re-routes these as DataEvent after a 101 upgrade.
type SocketDataEvent struct {
	Bytes []byte
}

func (StatusEvent) isEvent()     {}
func (HeadersEvent) isEvent()    {}
func (DataEvent) isEvent()       {}
func (DoneEvent) isEvent()       {}
func (SocketDataEvent) isEvent() {}
