package buffer

import (
	"encoding/binary"
	"fmt"
)

// Reader is a bounded view of a message. Read* methods consume from a
// relative cursor; Get* methods address the view absolutely (offset 0 is the
// first byte of the view). The first out-of-bounds access is remembered and
// reported by Err; later accesses return zero values.
type Reader struct {
	buf   []byte
	start int
	size  int
	pos   int
	err   error
}

// NewReader creates a reader over the whole of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf, size: len(buf)}
}

// NewReaderAt creates a reader over buf[start:start+size].
func NewReaderAt(buf []byte, start, size int) *Reader {
	r := &Reader{buf: buf, start: start, size: size}
	if start < 0 || size < 0 || start+size > len(buf) {
		r.err = fmt.Errorf("%w: window [%d,%d) over %d bytes", ErrOutOfBounds, start, start+size, len(buf))
		r.size = 0
	}
	return r
}

func (r *Reader) Size() int { return r.size }

func (r *Reader) Position() int { return r.pos }

func (r *Reader) Remaining() int { return r.size - r.pos }

func (r *Reader) Err() error { return r.err }

// Bytes returns the whole view.
func (r *Reader) Bytes() []byte { return r.buf[r.start : r.start+r.size] }

func (r *Reader) Rewind() { r.pos = 0 }

func (r *Reader) ReadUint8() byte {
	v := r.GetUint8(r.pos)
	r.pos += SizeOfByte
	return v
}

func (r *Reader) ReadShort() int16 {
	v := r.GetShort(r.pos)
	r.pos += SizeOfShort
	return v
}

func (r *Reader) ReadInt() int32 {
	v := r.GetInt(r.pos)
	r.pos += SizeOfInt
	return v
}

func (r *Reader) ReadLong() int64 {
	v := r.GetLong(r.pos)
	r.pos += SizeOfLong
	return v
}

func (r *Reader) ReadUint64() uint64 {
	v := r.GetUint64(r.pos)
	r.pos += SizeOfLong
	return v
}

func (r *Reader) GetUint8(offset int) byte {
	if !r.check(offset, SizeOfByte) {
		return 0
	}
	return r.buf[r.start+offset]
}

func (r *Reader) GetBool(offset int) bool {
	return r.GetUint8(offset) != 0
}

func (r *Reader) GetShort(offset int) int16 {
	if !r.check(offset, SizeOfShort) {
		return 0
	}
	return int16(binary.LittleEndian.Uint16(r.buf[r.start+offset:]))
}

func (r *Reader) GetInt(offset int) int32 {
	if !r.check(offset, SizeOfInt) {
		return 0
	}
	return int32(binary.LittleEndian.Uint32(r.buf[r.start+offset:]))
}

func (r *Reader) GetLong(offset int) int64 {
	return int64(r.GetUint64(offset))
}

func (r *Reader) GetUint64(offset int) uint64 {
	if !r.check(offset, SizeOfLong) {
		return 0
	}
	return binary.LittleEndian.Uint64(r.buf[r.start+offset:])
}

func (r *Reader) check(offset, n int) bool {
	if offset >= 0 && offset+n <= r.size {
		return true
	}
	if r.err == nil {
		r.err = fmt.Errorf("%w: read of %d bytes at %d, size %d", ErrOutOfBounds, n, offset, r.size)
	}
	return false
}
