// Package ips implements the IPS patch format.
//
// An IPS patch is a sparse overlay on a copy of the source: a "PATCH"
// signature, a sequence of records each with a 3-byte big-endian address
// and 2-byte big-endian length, and an "EOF" marker optionally followed by
// a 3-byte final length. A record with a zero length is a run of a single
// fill byte.
package ips

import (
	"bytes"
	"errors"

	"github.com/bodgit/rompatch/internal/cursor"
	"github.com/bodgit/rompatch/internal/patcherr"
)

const (
	name      = "ips"
	eofMarker = 0x454f46
	minSize   = 8
)

// Magic is the signature at the start of every IPS patch.
var Magic = []byte("PATCH") //nolint:gochecknoglobals

// A Record is a single write described by the patch.
type Record struct {
	Address uint32
	// Length is the number of bytes written.
	Length int
	RLE    bool
	// Fill is the run value when RLE is set.
	Fill byte
	// Data is the literal payload when RLE is not set. It aliases the
	// patch.
	Data []byte
}

// End returns the offset one past the last byte the record writes.
func (r Record) End() int {
	return int(r.Address) + r.Length
}

// A Trailer describes what followed the EOF marker.
type Trailer struct {
	// Resize is set when the patch declares a final target length.
	Resize bool
	Length int
}

func checkHeader(patch []byte) error {
	if len(patch) < minSize || !bytes.HasPrefix(patch, Magic) {
		return patcherr.New(name, patcherr.PatchInvalid, nil)
	}

	return nil
}

func truncated(r *cursor.Reader, err error) error {
	return patcherr.Newf(name, patcherr.PatchInvalid, "truncated record at offset %d: %w", r.Offset(), err)
}

// Walk calls fn for every record in patch, in order, and returns the
// trailer. An error returned by fn stops the walk and is returned
// unchanged.
func Walk(patch []byte, fn func(Record) error) (Trailer, error) {
	if err := checkHeader(patch); err != nil {
		return Trailer{}, err
	}

	r := cursor.NewReader(patch)
	_ = r.Skip(uint64(len(Magic)))

	for {
		address, err := r.Uint24BE()
		if err != nil {
			return Trailer{}, truncated(r, err)
		}

		if address == eofMarker {
			break
		}

		length, err := r.Uint16BE()
		if err != nil {
			return Trailer{}, truncated(r, err)
		}

		rec := Record{
			Address: address,
			Length:  int(length),
		}

		if length > 0 {
			if rec.Data, err = r.Next(int(length)); err != nil {
				return Trailer{}, truncated(r, err)
			}
		} else {
			if length, err = r.Uint16BE(); err != nil {
				return Trailer{}, truncated(r, err)
			}

			if length == 0 {
				return Trailer{}, patcherr.Newf(name, patcherr.PatchInvalid, "zero length run at %#06x", address)
			}

			if rec.Fill, err = r.ReadByte(); err != nil {
				return Trailer{}, truncated(r, err)
			}

			rec.RLE, rec.Length = true, int(length)
		}

		if err = fn(rec); err != nil {
			return Trailer{}, err
		}
	}

	if r.Len() != 3 {
		return Trailer{}, nil
	}

	length, err := r.Uint24BE()
	if err != nil {
		return Trailer{}, truncated(r, err)
	}

	return Trailer{Resize: true, Length: int(length)}, nil
}

// TargetSize returns the length of the target that applying patch to
// source would produce.
func TargetSize(patch, source []byte) (int, error) {
	length := len(source)

	trailer, err := Walk(patch, func(rec Record) error {
		if end := rec.End(); end > length {
			length = end
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if trailer.Resize {
		length = trailer.Length
	}

	return length, nil
}

// Capacity returns the smallest target Apply accepts for patch and
// source. It can exceed TargetSize when the patch ends by truncating.
func Capacity(patch, source []byte) (int, error) {
	capacity := len(source)

	trailer, err := Walk(patch, func(rec Record) error {
		if end := rec.End(); end > capacity {
			capacity = end
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if trailer.Resize && trailer.Length > capacity {
		capacity = trailer.Length
	}

	return capacity, nil
}

// Apply applies patch to source, writing the result into target, and
// returns the length of the result. The capacity of target is len(target).
// Bytes of target beyond the copy of source that no record writes are
// zeroed.
func Apply(patch, source, target []byte) (int, error) {
	if err := checkHeader(patch); err != nil {
		return 0, err
	}

	if len(source) > len(target) {
		return 0, patcherr.Newf(name, patcherr.TargetTooSmall, "source needs %d bytes, have %d", len(source), len(target))
	}

	copy(target, source)
	clear(target[len(source):])

	w := cursor.NewWriter(target)
	length := len(source)

	trailer, err := Walk(patch, func(rec Record) error {
		var err error
		if rec.RLE {
			err = w.Fill(rec.Fill, rec.Length, int64(rec.Address))
		} else {
			_, err = w.WriteAt(rec.Data, int64(rec.Address))
		}

		if err != nil {
			if errors.Is(err, cursor.ErrBufferFull) {
				return patcherr.Newf(name, patcherr.TargetTooSmall, "record at %#06x needs %d bytes, have %d", rec.Address, rec.End(), len(target))
			}

			return patcherr.New(name, patcherr.PatchInvalid, err)
		}

		if end := rec.End(); end > length {
			length = end
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if trailer.Resize {
		if trailer.Length > len(target) {
			return 0, patcherr.Newf(name, patcherr.TargetTooSmall, "final length %d exceeds %d", trailer.Length, len(target))
		}

		length = trailer.Length
	}

	return length, nil
}
