// Package ups implements the UPS patch format.
//
// A UPS patch stores the XOR difference between two files, so the same
// patch converts either file into the other. Which way it is applied is
// decided by matching the length of the supplied source against the two
// lengths in the header.
package ups

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/bodgit/rompatch/internal/cursor"
	"github.com/bodgit/rompatch/internal/patcherr"
	"github.com/bodgit/rompatch/internal/varint"
)

const (
	name        = "ups"
	minSize     = 18
	trailerSize = 12
)

// Magic is the signature at the start of every UPS patch.
var Magic = []byte("UPS1") //nolint:gochecknoglobals

// Header holds the declared lengths and the stored checksums of a patch.
type Header struct {
	SourceSize     uint64
	TargetSize     uint64
	SourceChecksum uint32
	TargetChecksum uint32
	PatchChecksum  uint32
}

func open(patch []byte) (*cursor.Reader, uint64, uint64, error) {
	if len(patch) < minSize || !bytes.HasPrefix(patch, Magic) {
		return nil, 0, 0, patcherr.New(name, patcherr.PatchInvalid, nil)
	}

	r := cursor.NewReader(patch)
	_ = r.Skip(uint64(len(Magic)))

	sourceSize, err := varint.Decode(r)
	if err != nil {
		return nil, 0, 0, patcherr.Newf(name, patcherr.PatchInvalid, "error reading source size: %w", err)
	}

	targetSize, err := varint.Decode(r)
	if err != nil {
		return nil, 0, 0, patcherr.Newf(name, patcherr.PatchInvalid, "error reading target size: %w", err)
	}

	return r, sourceSize, targetSize, nil
}

// ReadHeader returns the declared lengths and stored checksums of patch
// without applying it.
func ReadHeader(patch []byte) (Header, error) {
	_, sourceSize, targetSize, err := open(patch)
	if err != nil {
		return Header{}, err
	}

	trailer := patch[len(patch)-trailerSize:]

	return Header{
		SourceSize:     sourceSize,
		TargetSize:     targetSize,
		SourceChecksum: binary.LittleEndian.Uint32(trailer[0:]),
		TargetChecksum: binary.LittleEndian.Uint32(trailer[4:]),
		PatchChecksum:  binary.LittleEndian.Uint32(trailer[8:]),
	}, nil
}

// outputSize picks the direction from the source length and returns the
// length of the result.
func outputSize(source []byte, sourceSize, targetSize uint64) (uint64, error) {
	switch uint64(len(source)) {
	case sourceSize:
		return targetSize, nil
	case targetSize:
		return sourceSize, nil
	default:
		return 0, patcherr.Newf(name, patcherr.SourceInvalid, "source length %d matches neither %d nor %d", len(source), sourceSize, targetSize)
	}
}

// TargetSize returns the length of the target that applying patch to
// source would produce.
func TargetSize(patch, source []byte) (int, error) {
	_, sourceSize, targetSize, err := open(patch)
	if err != nil {
		return 0, err
	}

	size, err := outputSize(source, sourceSize, targetSize)
	if err != nil {
		return 0, err
	}

	if size > math.MaxInt {
		return 0, patcherr.Newf(name, patcherr.PatchInvalid, "output size %d too large", size)
	}

	return int(size), nil
}

type applier struct {
	patch  *cursor.Reader
	source *cursor.Reader
	target *cursor.Writer
	size   uint64
	offset uint64
}

// write stores c at the current output offset. Bytes beyond the output
// length are dropped but still advance the offset.
func (a *applier) write(c byte) {
	if a.offset < a.size {
		_ = a.target.WriteByte(c)
	}

	a.offset++
}

func (a *applier) copyThrough() {
	c, _ := a.source.ReadByte()
	a.write(c)
}

func (a *applier) xorRun() error {
	for {
		x, err := a.patch.ReadByte()
		if err != nil {
			return err
		}

		c, _ := a.source.ReadByte()
		a.write(x ^ c)

		if x == 0 {
			return nil
		}
	}
}

// Apply applies patch to source, writing the result into target, and
// returns the length of the result. The capacity of target is len(target).
func Apply(patch, source, target []byte) (int, error) {
	r, sourceSize, targetSize, err := open(patch)
	if err != nil {
		return 0, err
	}

	size, err := outputSize(source, sourceSize, targetSize)
	if err != nil {
		return 0, err
	}

	if size > uint64(len(target)) {
		return 0, patcherr.Newf(name, patcherr.TargetTooSmall, "need %d bytes, have %d", size, len(target))
	}

	a := &applier{
		patch:  r,
		source: cursor.NewPaddedReader(source),
		target: cursor.NewWriter(target[:size]),
		size:   size,
	}

	limit := size
	if uint64(len(source)) > limit {
		limit = uint64(len(source))
	}

	for end := len(patch) - trailerSize; r.Offset() < end; {
		length, err := varint.Decode(r)
		if err != nil {
			return 0, patcherr.Newf(name, patcherr.PatchInvalid, "error reading copy length at offset %d: %w", r.Offset(), err)
		}

		if length > 0 && (a.offset >= limit || length > limit-a.offset) {
			return 0, patcherr.Newf(name, patcherr.PatchInvalid, "copy of %d bytes at %d runs past %d", length, a.offset, limit)
		}

		for ; length > 0; length-- {
			a.copyThrough()
		}

		if err = a.xorRun(); err != nil {
			return 0, patcherr.Newf(name, patcherr.PatchInvalid, "unterminated xor run: %w", err)
		}
	}

	for a.source.Len() > 0 {
		a.copyThrough()
	}

	for a.offset < a.size {
		a.copyThrough()
	}

	storedSource, err := r.Uint32LE()
	if err != nil {
		return 0, patcherr.Newf(name, patcherr.PatchInvalid, "error reading source checksum: %w", err)
	}

	storedTarget, err := r.Uint32LE()
	if err != nil {
		return 0, patcherr.Newf(name, patcherr.PatchInvalid, "error reading target checksum: %w", err)
	}

	patchSum := r.Sum32()

	storedPatch, err := r.Uint32LE()
	if err != nil {
		return 0, patcherr.Newf(name, patcherr.PatchInvalid, "error reading patch checksum: %w", err)
	}

	if patchSum != storedPatch {
		return 0, patcherr.Newf(name, patcherr.PatchInvalid, "patch checksum %08x, expected %08x", patchSum, storedPatch)
	}

	sourceSum, targetSum := a.source.Sum32(), a.target.Sum32()

	switch {
	case sourceSum == storedSource && uint64(len(source)) == sourceSize:
		if targetSum != storedTarget || size != targetSize {
			return 0, patcherr.Newf(name, patcherr.TargetInvalid, "target checksum %08x, expected %08x", targetSum, storedTarget)
		}
	case sourceSum == storedTarget && uint64(len(source)) == targetSize:
		if targetSum != storedSource || size != sourceSize {
			return 0, patcherr.Newf(name, patcherr.TargetInvalid, "target checksum %08x, expected %08x", targetSum, storedSource)
		}
	default:
		return 0, patcherr.Newf(name, patcherr.SourceInvalid, "source checksum %08x matches neither %08x nor %08x", sourceSum, storedSource, storedTarget)
	}

	return int(size), nil
}
