package engine

import (
	"sync"
)

// DefaultBufferSize is the default size of byte buffers allocated for
// stream-mode copies. 1MB is a good balance for network-bound I/O.
const DefaultBufferSize = 1 * 1024 * 1024

// BufferPool manages reusable byte buffers so repeated stream copies do not
// churn the garbage collector.
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool creates a BufferPool that allocates buffers of the given
// size. If size is <= 0, DefaultBufferSize is used.
func NewBufferPool(size int) *BufferPool {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				b := make([]byte, size)
				return &b
			},
		},
	}
}

// Get retrieves a reusable byte buffer from the pool. The caller should
// defer a matching Put.
func (bp *BufferPool) Get() *[]byte {
	return bp.pool.Get().(*[]byte)
}

// Put returns the byte buffer to the pool. The caller must not touch the
// buffer afterwards.
func (bp *BufferPool) Put(b *[]byte) {
	if b != nil {
		bp.pool.Put(b)
	}
}
