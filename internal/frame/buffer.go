package frame

import "bytes"

// Buffer is a bounded byte buffer holding the tail of the input stream.
// All operations are pure with respect to the transport and can be tested
// in isolation.
type Buffer struct {
	data []byte
}

// NewBuffer returns an empty buffer that holds up to size bytes.
func NewBuffer(size int) *Buffer {
	return &Buffer{data: make([]byte, 0, size)}
}

// Append adds c to the end of the buffer. It returns false if the buffer is full.
func (b *Buffer) Append(c byte) bool {
	if len(b.data) == cap(b.data) {
		return false
	}
	b.data = append(b.data, c)
	return true
}

// Index returns the offset of the first occurrence of sep, or -1.
func (b *Buffer) Index(sep []byte) int {
	return bytes.Index(b.data, sep)
}

// DrainPrefix removes the first n bytes and returns a copy of them.
func (b *Buffer) DrainPrefix(n int) []byte {
	if n > len(b.data) {
		n = len(b.data)
	}
	out := make([]byte, n)
	copy(out, b.data[:n])
	rest := copy(b.data, b.data[n:])
	b.data = b.data[:rest]
	return out
}

// RetainTail keeps only the last k bytes and returns how many were discarded.
func (b *Buffer) RetainTail(k int) int {
	if k >= len(b.data) {
		return 0
	}
	dropped := len(b.data) - k
	b.DrainPrefix(dropped)
	return dropped
}

// Bytes returns the buffered bytes. The slice is only valid until the next mutation.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of buffered bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int { return cap(b.data) }

// Full reports whether no more bytes can be appended.
func (b *Buffer) Full() bool { return len(b.data) == cap(b.data) }

// Reset discards all buffered bytes.
func (b *Buffer) Reset() { b.data = b.data[:0] }
