// File: client/handshake.go
// Package client implements the WebSocket opening handshake, client role.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Two variants share one entry point: the HTTP/1.1 upgrade with its
// key/accept nonce exchange, and the HTTP/2 extended CONNECT, which
// replaces the nonce with the :protocol pseudo-header and requires the
// server to have announced SETTINGS_ENABLE_CONNECT_PROTOCOL.

package client

import (
	"crypto/rand"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/net/http2"

	"github.com/momentics/sansio-ws/api"
	"github.com/momentics/sansio-ws/extension"
)

// HTTP header names and fixed values of the opening handshake.
const (
	HeaderUpgrade             = "upgrade"
	HeaderConnection          = "connection"
	HeaderSecWebSocketKey     = "sec-websocket-key"
	HeaderSecWebSocketVersion = "sec-websocket-version"
	HeaderSecWebSocketAccept  = "sec-websocket-accept"
	HeaderSecWebSocketExts    = "sec-websocket-extensions"

	ValueWebSocket = "websocket"
	ValueUpgrade   = "upgrade"

	WebSocketGUID    = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"
	WebSocketVersion = "13"
)

// HandshakeConfig carries everything needed to build the upgrade request.
type HandshakeConfig struct {
	Protocol api.HTTPProtocol

	// Scheme is the target scheme; ws/wss normalize to http/https.
	// Only the HTTP/2 variant puts it on the wire (":scheme").
	Scheme string
	Path   string

	// Headers are appended verbatim after the handshake headers.
	Headers []api.HeaderField

	// Extensions are offered to the server in order.
	Extensions []extension.Extension

	// ServerSetting reports HTTP/2 SETTINGS entries announced by the
	// server. Required for the HTTP/2 variant, ignored for HTTP/1.
	ServerSetting func(id http2.SettingID) (uint32, bool)
}

// Handshake is the in-flight handshake context between building the
// request and validating the response.
type Handshake struct {
	protocol api.HTTPProtocol
	key      string // empty for extended CONNECT
	offered  []extension.Extension
}

// Method returns the request method of the handshake: GET for the
// HTTP/1.1 upgrade, CONNECT for HTTP/2.
func (h *Handshake) Method() string {
	if h.protocol == api.HTTP2 {
		return "CONNECT"
	}
	return "GET"
}

// BuildHandshake builds the ordered request header list and the
// handshake context. For HTTP/2 it fails with ErrExtendedConnectDisabled
// before a request exists if the server has not enabled extended CONNECT.
func BuildHandshake(cfg HandshakeConfig) ([]api.HeaderField, *Handshake, error) {
	switch cfg.Protocol {
	case api.HTTP1:
		return buildHTTP1(cfg)
	case api.HTTP2:
		return buildHTTP2(cfg)
	default:
		return nil, nil, fmt.Errorf("unknown HTTP protocol %d", cfg.Protocol)
	}
}

func buildHTTP1(cfg HandshakeConfig) ([]api.HeaderField, *Handshake, error) {
	key, err := newNonce()
	if err != nil {
		return nil, nil, err
	}

	headers := []api.HeaderField{
		{Name: HeaderUpgrade, Value: ValueWebSocket},
		{Name: HeaderConnection, Value: ValueUpgrade},
		{Name: HeaderSecWebSocketVersion, Value: WebSocketVersion},
		{Name: HeaderSecWebSocketKey, Value: key},
	}
	headers = appendExtensionOffer(headers, cfg.Extensions)
	headers = append(headers, cfg.Headers...)

	return headers, &Handshake{
		protocol: api.HTTP1,
		key:      key,
		offered:  cfg.Extensions,
	}, nil
}

func buildHTTP2(cfg HandshakeConfig) ([]api.HeaderField, *Handshake, error) {
	if cfg.ServerSetting == nil {
		return nil, nil, api.ErrExtendedConnectDisabled
	}
	if v, ok := cfg.ServerSetting(http2.SettingEnableConnectProtocol); !ok || v != 1 {
		return nil, nil, api.ErrExtendedConnectDisabled
	}

	headers := []api.HeaderField{
		{Name: ":scheme", Value: normalizeScheme(cfg.Scheme)},
		{Name: ":path", Value: cfg.Path},
		{Name: ":protocol", Value: ValueWebSocket},
		{Name: HeaderSecWebSocketVersion, Value: WebSocketVersion},
	}
	headers = appendExtensionOffer(headers, cfg.Extensions)
	headers = append(headers, cfg.Headers...)

	return headers, &Handshake{
		protocol: api.HTTP2,
		offered:  cfg.Extensions,
	}, nil
}

// Start builds the handshake and issues it through the HTTP client
// collaborator, leaving the request body open for frame bytes.
func Start(hc api.HTTPClient, cfg HandshakeConfig) (api.RequestRef, *Handshake, error) {
	cfg.Protocol = hc.Protocol()
	if cfg.Protocol == api.HTTP2 && cfg.ServerSetting == nil {
		cfg.ServerSetting = hc.ServerSetting
	}
	headers, hs, err := BuildHandshake(cfg)
	if err != nil {
		return 0, nil, err
	}
	ref, err := hc.SendRequest(hs.Method(), cfg.Path, headers, api.BodyStream)
	if err != nil {
		return 0, nil, fmt.Errorf("handshake request: %w", err)
	}
	return ref, hs, nil
}

// Finalize validates the server's response and produces the connection
// state: accepted extensions in server order, no pending fragments, an
// empty decode buffer.
func (h *Handshake) Finalize(status int, respHeaders []api.HeaderField) (*Conn, error) {
	switch h.protocol {
	case api.HTTP1:
		if status != 101 {
			return nil, fmt.Errorf("%w: status %d", api.ErrConnectionNotUpgraded, status)
		}
		accept := headerValue(respHeaders, HeaderSecWebSocketAccept)
		if accept != ComputeAcceptKey(h.key) {
			return nil, api.ErrInvalidNonce
		}
	case api.HTTP2:
		if status < 200 || status > 299 {
			return nil, fmt.Errorf("%w: status %d", api.ErrConnectionNotUpgraded, status)
		}
	}

	accepted, err := h.negotiateExtensions(respHeaders)
	if err != nil {
		return nil, err
	}
	return NewConn(accepted...), nil
}

// negotiateExtensions matches the server's accepted extension list
// against the offer. Server order wins; unoffered names are an error;
// extensions the server stayed silent on are dropped.
func (h *Handshake) negotiateExtensions(respHeaders []api.HeaderField) ([]extension.Extension, error) {
	var values []string
	for _, f := range respHeaders {
		if strings.EqualFold(f.Name, HeaderSecWebSocketExts) {
			values = append(values, f.Value)
		}
	}
	if len(values) == 0 {
		return nil, nil
	}

	entries, err := extension.ParseHeader(strings.Join(values, ", "))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", api.ErrExtensionsMismatch, err)
	}

	used := make([]bool, len(h.offered))
	var accepted []extension.Extension
	for _, e := range entries {
		idx := -1
		for i, off := range h.offered {
			if !used[i] && off.Name() == e.Name {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("%w: %s", api.ErrExtensionsMismatch, e.Name)
		}
		if err := h.offered[idx].Accept(e.Params); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", api.ErrExtensionsMismatch, e.Name, err)
		}
		used[idx] = true
		accepted = append(accepted, h.offered[idx])
	}
	return accepted, nil
}

// ComputeAcceptKey computes the Sec-WebSocket-Accept value from the
// client's key per RFC 6455 §1.3.
func ComputeAcceptKey(clientKey string) string {
	hash := sha1.Sum([]byte(clientKey + WebSocketGUID))
	return base64.StdEncoding.EncodeToString(hash[:])
}

// newNonce returns the Sec-WebSocket-Key value: 16 random bytes, base64.
func newNonce() (string, error) {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("handshake nonce: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b[:]), nil
}

func appendExtensionOffer(headers []api.HeaderField, exts []extension.Extension) []api.HeaderField {
	if len(exts) == 0 {
		return headers
	}
	return append(headers, api.HeaderField{
		Name:  HeaderSecWebSocketExts,
		Value: extension.FormatOffers(exts),
	})
}

func normalizeScheme(scheme string) string {
	switch scheme {
	case "ws", "http", "":
		return "http"
	case "wss", "https":
		return "https"
	}
	return scheme
}

// headerValue returns the first value of a header, case-insensitive.
func headerValue(headers []api.HeaderField, name string) string {
	for _, f := range headers {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}
