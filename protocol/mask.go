// File: protocol/mask.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Payload masking per RFC 6455 §5.3. Applying the same key twice is the
// identity, so one routine serves both directions.

package protocol

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// ApplyMask XORs buf in place with the repeating 4-byte key, starting at
// key phase zero. Runs 8 bytes at a time while enough input remains.
func ApplyMask(buf []byte, key [4]byte) {
	i := 0
	if len(buf) >= 8 {
		var rep [8]byte
		copy(rep[:4], key[:])
		copy(rep[4:], key[:])
		kw := binary.LittleEndian.Uint64(rep[:])
		for ; i+8 <= len(buf); i += 8 {
			binary.LittleEndian.PutUint64(buf[i:], binary.LittleEndian.Uint64(buf[i:])^kw)
		}
	}
	for ; i < len(buf); i++ {
		buf[i] ^= key[i&3]
	}
}

// NewMaskKey draws four bytes from the platform's cryptographic source.
// Each outbound frame gets a fresh key.
func NewMaskKey() ([4]byte, error) {
	var key [4]byte
	if _, err := rand.Read(key[:]); err != nil {
		return key, fmt.Errorf("mask key generation: %w", err)
	}
	return key, nil
}
