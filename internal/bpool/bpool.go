// Package bpool provides a pool of reusable byte buffers, used by wirepb
// to avoid allocating a fresh buffer on every protobuf marshal.
package bpool

import (
	"bytes"
	"sync"
)

var pool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// Get returns a zeroed buffer from the pool.
func Get() *bytes.Buffer {
	return pool.Get().(*bytes.Buffer)
}

// Put resets b and returns it to the pool.
func Put(b *bytes.Buffer) {
	b.Reset()
	pool.Put(b)
}
