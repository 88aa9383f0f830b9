// File: pool/bytepool.go
// Author: momentics <momentics@gmail.com>
//
// Fixed-size byte buffer pool backing the codec's per-connection
// scratch space. Buffers of the wrong capacity are dropped rather than
// pooled so every Get returns a full-size slice.

package pool

import "sync"

// BytePool hands out byte slices of a fixed capacity.
type BytePool struct {
	size int
	p    sync.Pool
}

// NewBytePool creates a pool of size-byte buffers.
func NewBytePool(size int) *BytePool {
	bp := &BytePool{size: size}
	bp.p.New = func() any {
		return make([]byte, size)
	}
	return bp
}

// Size returns the capacity of buffers managed by the pool.
func (b *BytePool) Size() int {
	return b.size
}

// Get returns a buffer of exactly Size bytes.
func (b *BytePool) Get() []byte {
	return b.p.Get().([]byte)
}

// Put returns a buffer to the pool. Slices that no longer span the
// pool's capacity are discarded.
func (b *BytePool) Put(buf []byte) {
	if cap(buf) != b.size {
		return
	}
	b.p.Put(buf[:b.size])
}
