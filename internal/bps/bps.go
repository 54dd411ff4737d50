// Package bps implements the BPS patch format.
//
// A BPS patch is a "BPS1" signature, the source size, target size and an
// opaque metadata block, followed by a stream of commands that build the
// target from the source, the patch and the already written target. A
// trailer holds the CRC32 of the source, the target and the patch itself.
package bps

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	"github.com/bodgit/rompatch/internal/checksum"
	"github.com/bodgit/rompatch/internal/cursor"
	"github.com/bodgit/rompatch/internal/patcherr"
	"github.com/bodgit/rompatch/internal/varint"
)

const (
	name        = "bps"
	minSize     = 19
	trailerSize = 12
)

// Magic is the signature at the start of every BPS patch.
var Magic = []byte("BPS1") //nolint:gochecknoglobals

// Mode selects where a command copies its bytes from.
type Mode int

// Command modes, as packed into the low two bits of a command.
const (
	SourceRead Mode = iota
	TargetRead
	SourceCopy
	TargetCopy
)

var modeNames = [...]string{
	SourceRead: "source read",
	TargetRead: "target read",
	SourceCopy: "source copy",
	TargetCopy: "target copy",
}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(m))
	}

	return modeNames[m]
}

// A Command is one decoded operation.
type Command struct {
	Mode   Mode
	Length uint64
	// Delta adjusts the relative offset before a SourceCopy or TargetCopy.
	Delta int64
	// Data is the payload of a TargetRead. It aliases the patch.
	Data []byte
}

// Header holds the declared sizes, metadata and stored checksums of a
// patch.
type Header struct {
	SourceSize uint64
	TargetSize uint64
	// Metadata is opaque to the applier, it aliases the patch.
	Metadata       []byte
	SourceChecksum uint32
	TargetChecksum uint32
	PatchChecksum  uint32
}

func open(patch []byte) (*cursor.Reader, Header, error) {
	if len(patch) < minSize {
		return nil, Header{}, patcherr.New(name, patcherr.PatchTooSmall, nil)
	}

	if !bytes.HasPrefix(patch, Magic) {
		return nil, Header{}, patcherr.New(name, patcherr.PatchInvalidHeader, nil)
	}

	r := cursor.NewReader(patch)
	_ = r.Skip(uint64(len(Magic)))

	var (
		h   Header
		err error
	)

	if h.SourceSize, err = varint.Decode(r); err != nil {
		return nil, Header{}, patcherr.Newf(name, patcherr.PatchInvalid, "error reading source size: %w", err)
	}

	if h.TargetSize, err = varint.Decode(r); err != nil {
		return nil, Header{}, patcherr.Newf(name, patcherr.PatchInvalid, "error reading target size: %w", err)
	}

	size, err := varint.Decode(r)
	if err != nil {
		return nil, Header{}, patcherr.Newf(name, patcherr.PatchInvalid, "error reading metadata size: %w", err)
	}

	if size > uint64(r.Len()) {
		return nil, Header{}, patcherr.Newf(name, patcherr.PatchInvalid, "metadata of %d bytes exceeds patch", size)
	}

	if h.Metadata, err = r.Next(int(size)); err != nil {
		return nil, Header{}, patcherr.New(name, patcherr.PatchInvalid, err)
	}

	return r, h, nil
}

// ReadHeader returns the declared sizes, metadata and stored checksums of
// patch without applying it.
func ReadHeader(patch []byte) (Header, error) {
	_, h, err := open(patch)
	if err != nil {
		return Header{}, err
	}

	trailer := patch[len(patch)-trailerSize:]
	h.SourceChecksum = binary.LittleEndian.Uint32(trailer[0:])
	h.TargetChecksum = binary.LittleEndian.Uint32(trailer[4:])
	h.PatchChecksum = binary.LittleEndian.Uint32(trailer[8:])

	return h, nil
}

func decodeCommand(r *cursor.Reader) (Command, error) {
	v, err := varint.Decode(r)
	if err != nil {
		return Command{}, err
	}

	cmd := Command{
		Mode:   Mode(v & 3),
		Length: v>>2 + 1,
	}

	switch cmd.Mode {
	case TargetRead:
		if cmd.Length > uint64(r.Len()) {
			return Command{}, cursor.ErrShortBuffer
		}

		cmd.Data, err = r.Next(int(cmd.Length))
	case SourceCopy, TargetCopy:
		var raw uint64
		if raw, err = varint.Decode(r); err != nil {
			return Command{}, err
		}

		cmd.Delta = int64(raw >> 1)
		if raw&1 != 0 {
			cmd.Delta = -cmd.Delta
		}
	case SourceRead:
	}

	return cmd, err
}

func walk(r *cursor.Reader, end int, fn func(Command) error) error {
	for r.Offset() < end {
		offset := r.Offset()

		cmd, err := decodeCommand(r)
		if err != nil {
			return patcherr.Newf(name, patcherr.PatchInvalid, "error reading command at offset %d: %w", offset, err)
		}

		if err = fn(cmd); err != nil {
			return err
		}
	}

	return nil
}

// Walk calls fn for every command in patch, in order. An error returned
// by fn stops the walk and is returned unchanged.
func Walk(patch []byte, fn func(Command) error) error {
	r, _, err := open(patch)
	if err != nil {
		return err
	}

	return walk(r, len(patch)-trailerSize, fn)
}

// TargetSize returns the length of the target that applying patch to
// source would produce. The commands must write exactly the declared
// target size.
func TargetSize(patch, source []byte) (int, error) {
	r, h, err := open(patch)
	if err != nil {
		return 0, err
	}

	if h.SourceSize > uint64(len(source)) {
		return 0, patcherr.Newf(name, patcherr.SourceTooSmall, "need %d bytes, have %d", h.SourceSize, len(source))
	}

	var written uint64

	if err = walk(r, len(patch)-trailerSize, func(cmd Command) error {
		if cmd.Length > h.TargetSize-written {
			return patcherr.Newf(name, patcherr.PatchInvalid, "%s of %d bytes at %d runs past end of target", cmd.Mode, cmd.Length, written)
		}

		written += cmd.Length

		return nil
	}); err != nil {
		return 0, err
	}

	if written != h.TargetSize {
		return 0, patcherr.Newf(name, patcherr.PatchInvalid, "commands write %d of %d bytes", written, h.TargetSize)
	}

	if h.TargetSize > math.MaxInt {
		return 0, patcherr.Newf(name, patcherr.PatchInvalid, "target size %d too large", h.TargetSize)
	}

	return int(h.TargetSize), nil
}

// decoder carries the state of one Apply call.
type decoder struct {
	source         []byte
	target         *cursor.Writer
	sourceRelative int64
	targetRelative int64
}

func (d *decoder) sourceSlice(start int64, n uint64) ([]byte, bool) {
	if start < 0 || start > int64(len(d.source)) || n > uint64(int64(len(d.source))-start) {
		return nil, false
	}

	return d.source[start : start+int64(n)], true
}

func (d *decoder) execute(cmd Command) error {
	if cmd.Length > uint64(d.target.Available()) {
		return patcherr.Newf(name, patcherr.PatchInvalid, "%s of %d bytes at %d runs past end of target", cmd.Mode, cmd.Length, d.target.Offset())
	}

	switch cmd.Mode {
	case SourceRead:
		p, ok := d.sourceSlice(int64(d.target.Offset()), cmd.Length)
		if !ok {
			return patcherr.Newf(name, patcherr.PatchInvalid, "%s of %d bytes at %d runs past end of source", cmd.Mode, cmd.Length, d.target.Offset())
		}

		_, _ = d.target.Write(p)
	case TargetRead:
		_, _ = d.target.Write(cmd.Data)
	case SourceCopy:
		d.sourceRelative += cmd.Delta

		p, ok := d.sourceSlice(d.sourceRelative, cmd.Length)
		if !ok {
			return patcherr.Newf(name, patcherr.PatchInvalid, "%s of %d bytes from %d outside source", cmd.Mode, cmd.Length, d.sourceRelative)
		}

		_, _ = d.target.Write(p)
		d.sourceRelative += int64(cmd.Length)
	case TargetCopy:
		d.targetRelative += cmd.Delta

		if d.targetRelative < 0 || d.targetRelative >= int64(d.target.Offset()) {
			return patcherr.Newf(name, patcherr.PatchInvalid, "%s from %d outside written target", cmd.Mode, d.targetRelative)
		}

		// Byte by byte, the run may overlap what it is writing
		for n := cmd.Length; n > 0; n-- {
			c, _ := d.target.At(int(d.targetRelative))
			_ = d.target.WriteByte(c)
			d.targetRelative++
		}
	}

	return nil
}

// Apply applies patch to source, writing the result into target, and
// returns the length of the result. The capacity of target is len(target).
func Apply(patch, source, target []byte) (int, error) {
	r, h, err := open(patch)
	if err != nil {
		return 0, err
	}

	if h.SourceSize > uint64(len(source)) {
		return 0, patcherr.Newf(name, patcherr.SourceTooSmall, "need %d bytes, have %d", h.SourceSize, len(source))
	}

	if h.TargetSize > uint64(len(target)) {
		return 0, patcherr.Newf(name, patcherr.TargetTooSmall, "need %d bytes, have %d", h.TargetSize, len(target))
	}

	d := &decoder{
		source: source,
		target: cursor.NewWriter(target[:h.TargetSize]),
	}

	if err = walk(r, len(patch)-trailerSize, d.execute); err != nil {
		return 0, err
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

	if sum := checksum.Sum(source); sum != storedSource {
		return 0, patcherr.Newf(name, patcherr.SourceChecksumInvalid, "%08x, expected %08x", sum, storedSource)
	}

	if sum := d.target.Sum32(); sum != storedTarget {
		return 0, patcherr.Newf(name, patcherr.TargetChecksumInvalid, "%08x, expected %08x", sum, storedTarget)
	}

	if patchSum != storedPatch {
		return 0, patcherr.Newf(name, patcherr.PatchChecksumInvalid, "%08x, expected %08x", patchSum, storedPatch)
	}

	if uint64(d.target.Offset()) != h.TargetSize {
		return 0, patcherr.Newf(name, patcherr.PatchInvalid, "wrote %d of %d bytes", d.target.Offset(), h.TargetSize)
	}

	return int(h.TargetSize), nil
}
