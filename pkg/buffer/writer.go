package buffer

import "encoding/binary"

// Writer is an append-only cursor over a growable byte region. Overwrite
// methods address the region absolutely and are meant for back-patching
// fields after a variable-length block was written.
type Writer struct {
	buf     []byte
	initial int
	pos     int
}

// NewWriter creates a writer with the given starting capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, capacity)}
}

// NewWriterAt creates a writer over buf that starts appending at
// initialPosition. buf is grown (reallocated) when needed.
func NewWriterAt(buf []byte, initialPosition int) *Writer {
	return &Writer{buf: buf, initial: initialPosition, pos: initialPosition}
}

func (w *Writer) InitialPosition() int { return w.initial }

func (w *Writer) Position() int { return w.pos }

// Len is the number of bytes written since the initial position.
func (w *Writer) Len() int { return w.pos - w.initial }

// Bytes returns the written region. The slice aliases the writer memory and
// is valid until the next write or Reset.
func (w *Writer) Bytes() []byte { return w.buf[w.initial:w.pos] }

// Buffer returns the whole underlying region, including bytes before the
// initial position.
func (w *Writer) Buffer() []byte { return w.buf }

func (w *Writer) Reset() { w.pos = w.initial }

func (w *Writer) Skip(n int) {
	w.ensure(w.pos + n)
	w.pos += n
}

// Reserve advances the cursor by n bytes and returns the skipped region for
// the caller to fill.
func (w *Writer) Reserve(n int) []byte {
	w.ensure(w.pos + n)
	b := w.buf[w.pos : w.pos+n]
	w.pos += n
	return b
}

func (w *Writer) AppendByte(b byte) {
	w.ensure(w.pos + SizeOfByte)
	w.buf[w.pos] = b
	w.pos += SizeOfByte
}

func (w *Writer) AppendBool(v bool) {
	if v {
		w.AppendByte(1)
	} else {
		w.AppendByte(0)
	}
}

func (w *Writer) AppendShort(v int16) {
	w.ensure(w.pos + SizeOfShort)
	binary.LittleEndian.PutUint16(w.buf[w.pos:], uint16(v))
	w.pos += SizeOfShort
}

func (w *Writer) AppendInt(v int32) {
	w.ensure(w.pos + SizeOfInt)
	binary.LittleEndian.PutUint32(w.buf[w.pos:], uint32(v))
	w.pos += SizeOfInt
}

func (w *Writer) AppendLong(v int64) {
	w.ensure(w.pos + SizeOfLong)
	binary.LittleEndian.PutUint64(w.buf[w.pos:], uint64(v))
	w.pos += SizeOfLong
}

func (w *Writer) AppendUint64(v uint64) {
	w.ensure(w.pos + SizeOfLong)
	binary.LittleEndian.PutUint64(w.buf[w.pos:], v)
	w.pos += SizeOfLong
}

func (w *Writer) OverwriteByte(offset int, b byte) {
	w.ensure(offset + SizeOfByte)
	w.buf[offset] = b
}

func (w *Writer) OverwriteShort(offset int, v int16) {
	w.ensure(offset + SizeOfShort)
	binary.LittleEndian.PutUint16(w.buf[offset:], uint16(v))
}

func (w *Writer) OverwriteInt(offset int, v int32) {
	w.ensure(offset + SizeOfInt)
	binary.LittleEndian.PutUint32(w.buf[offset:], uint32(v))
}

func (w *Writer) OverwriteLong(offset int, v int64) {
	w.ensure(offset + SizeOfLong)
	binary.LittleEndian.PutUint64(w.buf[offset:], uint64(v))
}

func (w *Writer) ensure(size int) {
	if size <= len(w.buf) {
		return
	}
	capacity := 2 * len(w.buf)
	if capacity < size {
		capacity = size
	}
	if capacity < 64 {
		capacity = 64
	}
	grown := make([]byte, capacity)
	copy(grown, w.buf)
	w.buf = grown
}
