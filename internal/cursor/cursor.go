// Package cursor provides bounds-checked read and write cursors over the
// patch, source and target buffers handed to an applier.
package cursor

import (
	"errors"

	"github.com/bodgit/rompatch/internal/checksum"
)

var (
	// ErrShortBuffer is returned when a read runs past the end of the buffer.
	ErrShortBuffer = errors.New("cursor: read past end of buffer")
	// ErrBufferFull is returned when a write runs past the end of the buffer.
	ErrBufferFull = errors.New("cursor: write past end of buffer")
	// ErrOffset is returned for a negative offset or one beyond what has
	// been written.
	ErrOffset = errors.New("cursor: offset out of range")
)

// A Reader reads forward through a borrowed byte slice, folding every byte
// consumed into a running CRC32.
type Reader struct {
	buf []byte
	off int
	sum checksum.Accumulator
	pad bool
}

// NewReader returns a Reader over b that fails reads past the end of b.
func NewReader(b []byte) *Reader {
	return &Reader{
		buf: b,
		sum: checksum.New(),
	}
}

// NewPaddedReader returns a Reader over b that yields 0x00 once b is
// exhausted. Padding bytes are not checksummed and do not advance the
// offset.
func NewPaddedReader(b []byte) *Reader {
	r := NewReader(b)
	r.pad = true

	return r
}

// ReadByte implements io.ByteReader.
func (r *Reader) ReadByte() (byte, error) {
	if r.off >= len(r.buf) {
		if r.pad {
			return 0, nil
		}

		return 0, ErrShortBuffer
	}

	c := r.buf[r.off]
	r.off++
	r.sum = r.sum.Adjust(c)

	return c, nil
}

// Next returns the next n bytes and advances past them. The returned slice
// aliases the underlying buffer.
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 || n > r.Len() {
		return nil, ErrShortBuffer
	}

	p := r.buf[r.off : r.off+n]
	r.off += n
	r.sum = r.sum.Update(p)

	return p, nil
}

// Skip advances past n bytes, still folding them into the checksum.
func (r *Reader) Skip(n uint64) error {
	if n > uint64(r.Len()) {
		return ErrShortBuffer
	}

	_, err := r.Next(int(n))

	return err
}

// Uint16BE reads a big-endian 16-bit value.
func (r *Reader) Uint16BE() (uint16, error) {
	p, err := r.Next(2)
	if err != nil {
		return 0, err
	}

	return uint16(p[0])<<8 | uint16(p[1]), nil
}

// Uint24BE reads a big-endian 24-bit value.
func (r *Reader) Uint24BE() (uint32, error) {
	p, err := r.Next(3)
	if err != nil {
		return 0, err
	}

	return uint32(p[0])<<16 | uint32(p[1])<<8 | uint32(p[2]), nil
}

// Uint32LE reads a little-endian 32-bit value.
func (r *Reader) Uint32LE() (uint32, error) {
	p, err := r.Next(4)
	if err != nil {
		return 0, err
	}

	return uint32(p[0]) | uint32(p[1])<<8 | uint32(p[2])<<16 | uint32(p[3])<<24, nil
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int { return r.off }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.buf) - r.off }

// Size returns the length of the underlying buffer.
func (r *Reader) Size() int { return len(r.buf) }

// Sum32 returns the CRC32 of every byte consumed so far.
func (r *Reader) Sum32() uint32 { return r.sum.Sum32() }

// A Writer writes forward into a caller-allocated byte slice and never
// past its length. Bytes written through WriteByte and Write are folded
// into a running CRC32; WriteAt and Fill are positional and are not.
type Writer struct {
	buf []byte
	off int
	sum checksum.Accumulator
}

// NewWriter returns a Writer over b. The capacity of the Writer is len(b).
func NewWriter(b []byte) *Writer {
	return &Writer{
		buf: b,
		sum: checksum.New(),
	}
}

// WriteByte implements io.ByteWriter.
func (w *Writer) WriteByte(c byte) error {
	if w.off >= len(w.buf) {
		return ErrBufferFull
	}

	w.buf[w.off] = c
	w.off++
	w.sum = w.sum.Adjust(c)

	return nil
}

// Write implements io.Writer. Nothing is written unless all of p fits.
func (w *Writer) Write(p []byte) (int, error) {
	if len(p) > w.Available() {
		return 0, ErrBufferFull
	}

	n := copy(w.buf[w.off:], p)
	w.off += n
	w.sum = w.sum.Update(p)

	return n, nil
}

// WriteAt implements io.WriterAt. It does not move the cursor.
func (w *Writer) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, ErrOffset
	}

	if off > int64(len(w.buf)) || int64(len(p)) > int64(len(w.buf))-off {
		return 0, ErrBufferFull
	}

	return copy(w.buf[off:], p), nil
}

// Fill writes n copies of c starting at off. It does not move the cursor.
func (w *Writer) Fill(c byte, n int, off int64) error {
	if off < 0 || n < 0 {
		return ErrOffset
	}

	if off > int64(len(w.buf)) || int64(n) > int64(len(w.buf))-off {
		return ErrBufferFull
	}

	p := w.buf[off : off+int64(n)]
	for i := range p {
		p[i] = c
	}

	return nil
}

// At returns a byte already written through the cursor.
func (w *Writer) At(i int) (byte, error) {
	if i < 0 || i >= w.off {
		return 0, ErrOffset
	}

	return w.buf[i], nil
}

// Offset returns the number of bytes written through the cursor.
func (w *Writer) Offset() int { return w.off }

// Available returns how many more bytes fit.
func (w *Writer) Available() int { return len(w.buf) - w.off }

// Sum32 returns the CRC32 of every byte written through the cursor.
func (w *Writer) Sum32() uint32 { return w.sum.Sum32() }
