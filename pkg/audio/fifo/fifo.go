// ABOUTME: Fixed-capacity byte ring buffer for decoded PCM
// ABOUTME: Decouples the decoder producer from the real-time render consumer
package fifo

import "github.com/cris-/squeezeos-squeezeplay/pkg/audio"

// Ring is a fixed-capacity circular byte store. It performs no locking of
// its own: both sides access it under the shared audio state lock, which
// keeps read and write index visibility coherent across the producer and
// the real-time consumer.
//
// Every operation is O(1), non-blocking and allocation-free. Any transfer
// that crosses the physical end of the buffer must be expressed as two
// contiguous segments (up to the wrap, then from index 0); ReadWrap and
// WriteWrap report the segment boundaries.
type Ring struct {
	buf  []byte
	rptr int
	wptr int
	used int
}

// New creates a ring buffer. The capacity is rounded down to a whole
// number of stereo frames so a frame can never straddle the wrap point.
func New(capacity int) *Ring {
	capacity -= capacity % audio.BytesPerFrame
	if capacity < audio.BytesPerFrame {
		capacity = audio.BytesPerFrame
	}
	return &Ring{buf: make([]byte, capacity)}
}

// Capacity returns the fixed byte capacity.
func (r *Ring) Capacity() int {
	return len(r.buf)
}

// Used returns the number of buffered bytes, always within [0, capacity].
func (r *Ring) Used() int {
	return r.used
}

// Free returns the number of writable bytes.
func (r *Ring) Free() int {
	return len(r.buf) - r.used
}

// ReadWrap returns the distance from the read index to the physical end
// of the buffer. A consumer taking n bytes reads min(n, ReadWrap) from
// the first segment and the remainder from index 0.
func (r *Ring) ReadWrap() int {
	return len(r.buf) - r.rptr
}

// WriteWrap returns the distance from the write index to the physical
// end of the buffer.
func (r *Ring) WriteWrap() int {
	return len(r.buf) - r.wptr
}

// ReadSlice returns a view of n contiguous readable bytes at the read
// index without consuming them. n must not exceed min(Used, ReadWrap).
func (r *Ring) ReadSlice(n int) []byte {
	return r.buf[r.rptr : r.rptr+n]
}

// WriteSlice returns a view of n contiguous writable bytes at the write
// index. n must not exceed min(Free, WriteWrap).
func (r *Ring) WriteSlice(n int) []byte {
	return r.buf[r.wptr : r.wptr+n]
}

// AdvanceRead consumes n bytes, clamped to Used so the read index can
// never pass the write index. All index arithmetic is modulo capacity.
// Returns the number of bytes actually consumed.
func (r *Ring) AdvanceRead(n int) int {
	if n > r.used {
		n = r.used
	}
	if n <= 0 {
		return 0
	}
	r.rptr = (r.rptr + n) % len(r.buf)
	r.used -= n
	return n
}

// AdvanceWrite publishes n written bytes, clamped to Free. Returns the
// number of bytes actually published.
func (r *Ring) AdvanceWrite(n int) int {
	if free := len(r.buf) - r.used; n > free {
		n = free
	}
	if n <= 0 {
		return 0
	}
	r.wptr = (r.wptr + n) % len(r.buf)
	r.used += n
	return n
}

// Write copies as much of p as fits, splitting across the wrap boundary
// when needed. Returns the number of bytes written.
func (r *Ring) Write(p []byte) int {
	n := len(p)
	if free := r.Free(); n > free {
		n = free
	}
	if n == 0 {
		return 0
	}

	first := n
	if wrap := r.WriteWrap(); first > wrap {
		first = wrap
	}
	copy(r.WriteSlice(first), p[:first])
	r.AdvanceWrite(first)

	if rest := n - first; rest > 0 {
		copy(r.WriteSlice(rest), p[first:n])
		r.AdvanceWrite(rest)
	}
	return n
}

// Reset empties the buffer and rewinds both indices.
func (r *Ring) Reset() {
	r.rptr = 0
	r.wptr = 0
	r.used = 0
}
