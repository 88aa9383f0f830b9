// Copyright 2025 momentics@gmail.com
// License: Apache 2.0

// deflate_test.go — permessage-deflate negotiation and transforms.
package extension

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/momentics/sansio-ws/protocol"
)

func TestDeflateAcceptParams(t *testing.T) {
	d := NewPerMessageDeflate(DeflateOptions{})
	err := d.Accept(Params{
		"server_no_context_takeover": "",
		"client_max_window_bits":     "12",
		"server_max_window_bits":     "10",
	})
	require.NoError(t, err)
	assert.True(t, d.serverNoContextTakeover)
	assert.False(t, d.clientNoContextTakeover)
	assert.Equal(t, 12, d.clientMaxWindowBits)
	assert.Equal(t, 10, d.serverMaxWindowBits)
}

func TestDeflateAcceptRejectsBadParams(t *testing.T) {
	d := NewPerMessageDeflate(DeflateOptions{})
	assert.Error(t, d.Accept(Params{"who_knows": ""}))
	assert.Error(t, d.Accept(Params{"server_max_window_bits": "7"}))
	assert.Error(t, d.Accept(Params{"server_max_window_bits": "16"}))
	assert.Error(t, d.Accept(Params{"server_max_window_bits": "wide"}))
}

func TestDeflateEncodeSetsRSV1(t *testing.T) {
	d := NewPerMessageDeflate(DeflateOptions{})
	require.NoError(t, d.Accept(Params{}))
	defer d.Release()

	f := &protocol.RawFrame{Fin: true, Opcode: protocol.OpcodeText, Payload: []byte(strings.Repeat("compressible ", 50))}
	require.NoError(t, d.EncodeFrame(f))

	assert.True(t, f.Rsv1)
	assert.Less(t, len(f.Payload), 50*len("compressible "), "payload should shrink")
}

func TestDeflateControlFramesPassThrough(t *testing.T) {
	d := NewPerMessageDeflate(DeflateOptions{})
	require.NoError(t, d.Accept(Params{}))
	defer d.Release()

	ping := &protocol.RawFrame{Fin: true, Opcode: protocol.OpcodePing, Payload: []byte("hb")}
	require.NoError(t, d.EncodeFrame(ping))
	assert.False(t, ping.Rsv1)
	assert.Equal(t, []byte("hb"), ping.Payload)

	require.NoError(t, d.DecodeFrame(ping))
	assert.Equal(t, []byte("hb"), ping.Payload)
}

func TestDeflateDecodeSkipsUncompressed(t *testing.T) {
	d := NewPerMessageDeflate(DeflateOptions{})
	require.NoError(t, d.Accept(Params{}))
	defer d.Release()

	f := &protocol.RawFrame{Fin: true, Opcode: protocol.OpcodeText, Payload: []byte("plain")}
	require.NoError(t, d.DecodeFrame(f))
	assert.Equal(t, []byte("plain"), f.Payload)
}

// encodeThenDecode pushes a message through a compressing instance and
// an independent decompressing instance, mirroring the two ends of a
// connection.
func encodeThenDecode(t *testing.T, enc, dec *PerMessageDeflate, msg string) string {
	t.Helper()
	f := &protocol.RawFrame{Fin: true, Opcode: protocol.OpcodeText, Payload: []byte(msg)}
	require.NoError(t, enc.EncodeFrame(f))
	require.True(t, f.Rsv1)
	require.NoError(t, dec.DecodeFrame(f))
	require.False(t, f.Rsv1)
	return string(f.Payload)
}

func TestDeflateRoundTrip(t *testing.T) {
	enc := NewPerMessageDeflate(DeflateOptions{})
	dec := NewPerMessageDeflate(DeflateOptions{})
	require.NoError(t, enc.Accept(Params{}))
	require.NoError(t, dec.Accept(Params{}))
	defer enc.Release()
	defer dec.Release()

	for _, msg := range []string{
		"hello world",
		"",
		strings.Repeat("sliding window context ", 100),
	} {
		assert.Equal(t, msg, encodeThenDecode(t, enc, dec, msg))
	}
}

func TestDeflateContextTakeoverAcrossMessages(t *testing.T) {
	enc := NewPerMessageDeflate(DeflateOptions{})
	dec := NewPerMessageDeflate(DeflateOptions{})
	require.NoError(t, enc.Accept(Params{}))
	require.NoError(t, dec.Accept(Params{}))
	defer enc.Release()
	defer dec.Release()

	msg := strings.Repeat("the same phrase over and over ", 20)
	first := &protocol.RawFrame{Fin: true, Opcode: protocol.OpcodeText, Payload: []byte(msg)}
	require.NoError(t, enc.EncodeFrame(first))
	firstSize := len(first.Payload)
	require.NoError(t, dec.DecodeFrame(first))
	require.Equal(t, msg, string(first.Payload))

	// With retained context the second identical message back-references
	// the first and must come out smaller.
	second := &protocol.RawFrame{Fin: true, Opcode: protocol.OpcodeText, Payload: []byte(msg)}
	require.NoError(t, enc.EncodeFrame(second))
	assert.Less(t, len(second.Payload), firstSize)
	require.NoError(t, dec.DecodeFrame(second))
	assert.Equal(t, msg, string(second.Payload))
}

func TestDeflateNoContextTakeover(t *testing.T) {
	enc := NewPerMessageDeflate(DeflateOptions{})
	dec := NewPerMessageDeflate(DeflateOptions{})
	require.NoError(t, enc.Accept(Params{"client_no_context_takeover": "", "server_no_context_takeover": ""}))
	require.NoError(t, dec.Accept(Params{"client_no_context_takeover": "", "server_no_context_takeover": ""}))
	defer enc.Release()
	defer dec.Release()

	msg := strings.Repeat("independent messages ", 30)
	for i := 0; i < 3; i++ {
		assert.Equal(t, msg, encodeThenDecode(t, enc, dec, msg))
	}
	assert.Nil(t, dec.dict, "decoder context must reset after each message")
}
