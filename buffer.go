package ember

import "sync"

// BufferPool is a bounded free-list recycler of fixed-size byte buffers used
// by the `ConnectionLoop` to read requests without round-tripping
// through the garbage collector on every request.
//
// `acquire`/`release` are wait-free in the common case: the free list is a
// channel, so both directions are a single non-blocking send/receive.
type BufferPool struct {
	size     int
	free     chan []byte
	fallback sync.Pool
}

// NewBufferPool returns a new `BufferPool` of buffers of the given byte
// size. The free list holds up to capacity buffers; `release` drops the
// excess ones instead of growing the list without bound, per spec §4.1.
func NewBufferPool(size, capacity int) *BufferPool {
	if size <= 0 {
		size = 262144
	}
	if capacity <= 0 {
		capacity = 1
	}
	p := &BufferPool{
		size: size,
		free: make(chan []byte, capacity),
	}
	p.fallback.New = func() interface{} {
		return make([]byte, size)
	}
	return p
}

// acquire returns a cleared buffer from the free list, or a freshly
// allocated one of the configured size if the free list is empty.
func (p *BufferPool) acquire() []byte {
	select {
	case b := <-p.free:
		return b[:p.size]
	default:
		return p.fallback.Get().([]byte)[:p.size]
	}
}

// release clears the buf and offers it back to the free list. If the free
// list is full, the buf is dropped so the pool can shrink under low load.
func (p *BufferPool) release(buf []byte) {
	if cap(buf) < p.size {
		return
	}
	buf = buf[:cap(buf)]
	for i := range buf {
		buf[i] = 0
	}
	select {
	case p.free <- buf[:p.size]:
	default:
	}
}
