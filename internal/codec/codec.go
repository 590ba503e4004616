// Package codec implements the length-prefixed wire framing shared by every
// protocol message: a utf-8 string, a little-endian signed 64-bit integer,
// and a length-prefixed opaque byte buffer (spec.md §4.1).
//
// The encoding mirrors consensus.c's Gears_BufferWriter/Gears_BufferReader:
// every frame begins with the log name, then the instance id, then (for
// every message except the CallbackTriggered and LastIDTriggered gossip)
// the proposal id, with message-specific fields following in the same
// order the C source writes them.
package codec

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrTruncated is returned when a frame ends before a field can be read in
// full. Handlers operating on a trusted transport should not see this in
// practice (spec.md treats a malformed frame from a trusted peer as a fatal
// assertion, not a recoverable error); callers that need that behavior use
// the Must* helpers below.
var ErrTruncated = errors.New("codec: truncated frame")

// Writer appends fields to an in-memory buffer in wire order.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the accumulated frame.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteString appends a length-prefixed utf-8 string.
func (w *Writer) WriteString(s string) {
	w.WriteBuff([]byte(s))
}

// WriteLong appends a little-endian signed 64-bit integer.
func (w *Writer) WriteLong(v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	w.buf = append(w.buf, tmp[:]...)
}

// WriteBuff appends a length-prefixed opaque byte buffer. A nil buffer is
// written as a zero-length buffer; readers cannot distinguish nil from
// empty, which matches consensus.c's buffer semantics (callers that need to
// distinguish "no value" wrap this field with their own has-value flag, as
// Recruited does for the optional previously-accepted value).
func (w *Writer) WriteBuff(b []byte) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(len(b)))
	w.buf = append(w.buf, tmp[:]...)
	w.buf = append(w.buf, b...)
}

// Reader consumes fields from a frame in wire order.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader over buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// ReadString reads a length-prefixed utf-8 string.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBuff()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadLong reads a little-endian signed 64-bit integer.
func (r *Reader) ReadLong() (int64, error) {
	if r.pos+8 > len(r.buf) {
		return 0, ErrTruncated
	}
	v := binary.LittleEndian.Uint64(r.buf[r.pos : r.pos+8])
	r.pos += 8
	return int64(v), nil
}

// ReadBuff reads a length-prefixed opaque byte buffer. The returned slice
// aliases the reader's backing array; callers that retain it past the
// current dispatch must copy it.
func (r *Reader) ReadBuff() ([]byte, error) {
	n, err := r.ReadLong()
	if err != nil {
		return nil, err
	}
	if n < 0 || r.pos+int(n) > len(r.buf) {
		return nil, ErrTruncated
	}
	b := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

// MustReadString reads a string and panics on a truncated frame. Used by
// handlers that trust the transport per spec.md §4.1/§7.
func (r *Reader) MustReadString() string {
	s, err := r.ReadString()
	if err != nil {
		panic(err)
	}
	return s
}

// MustReadLong reads an int64 and panics on a truncated frame.
func (r *Reader) MustReadLong() int64 {
	v, err := r.ReadLong()
	if err != nil {
		panic(err)
	}
	return v
}

// MustReadBuff reads a byte buffer and panics on a truncated frame.
func (r *Reader) MustReadBuff() []byte {
	b, err := r.ReadBuff()
	if err != nil {
		panic(err)
	}
	return b
}
