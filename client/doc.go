// Package client
// Author: momentics <momentics@gmail.com>
//
// Client-side handshake and connection state for sansio-ws.
//
// The package builds upgrade requests for HTTP/1.1 (RFC 6455) and
// extended CONNECT over HTTP/2 (RFC 8441), validates the server's
// response, and yields a Conn through which all subsequent frame
// traffic is encoded and decoded. A Conn owns no transport: the caller
// ships the bytes Encode returns and feeds received bytes to Decode.
package client
