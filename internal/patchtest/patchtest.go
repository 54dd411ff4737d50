// Package patchtest builds IPS, UPS and BPS patches for tests.
package patchtest

import (
	"encoding/binary"

	"github.com/bodgit/rompatch/internal/checksum"
	"github.com/bodgit/rompatch/internal/varint"
)

// IPS builds an IPS patch record by record.
type IPS struct {
	buf []byte
}

// NewIPS starts an IPS patch.
func NewIPS() *IPS {
	return &IPS{buf: []byte("PATCH")}
}

func (p *IPS) address(addr uint32) {
	p.buf = append(p.buf, byte(addr>>16), byte(addr>>8), byte(addr))
}

// Record appends a literal record writing data at addr.
func (p *IPS) Record(addr uint32, data []byte) *IPS {
	p.address(addr)
	p.buf = binary.BigEndian.AppendUint16(p.buf, uint16(len(data)))
	p.buf = append(p.buf, data...)

	return p
}

// RLE appends a run of n copies of c at addr.
func (p *IPS) RLE(addr uint32, n uint16, c byte) *IPS {
	p.address(addr)
	p.buf = append(p.buf, 0x00, 0x00)
	p.buf = binary.BigEndian.AppendUint16(p.buf, n)
	p.buf = append(p.buf, c)

	return p
}

// Raw appends arbitrary bytes.
func (p *IPS) Raw(b ...byte) *IPS {
	p.buf = append(p.buf, b...)

	return p
}

// Unterminated returns the patch without an EOF marker.
func (p *IPS) Unterminated() []byte {
	return append([]byte(nil), p.buf...)
}

// Bytes returns the patch terminated with an EOF marker.
func (p *IPS) Bytes() []byte {
	return append(p.Unterminated(), 'E', 'O', 'F')
}

// Truncate returns the patch terminated with an EOF marker followed by a
// final target length.
func (p *IPS) Truncate(n uint32) []byte {
	b := p.Bytes()

	return append(b, byte(n>>16), byte(n>>8), byte(n))
}

func at(b []byte, i int) byte {
	if i < len(b) {
		return b[i]
	}

	return 0
}

func appendTrailer(b []byte, source, target []byte) []byte {
	b = binary.LittleEndian.AppendUint32(b, checksum.Sum(source))
	b = binary.LittleEndian.AppendUint32(b, checksum.Sum(target))

	return binary.LittleEndian.AppendUint32(b, checksum.Sum(b))
}

// UPS returns a UPS patch transforming source into target.
func UPS(source, target []byte) []byte {
	b := []byte("UPS1")
	b = varint.Append(b, uint64(len(source)))
	b = varint.Append(b, uint64(len(target)))

	size := len(source)
	if len(target) > size {
		size = len(target)
	}

	for relative, offset := 0, 0; offset < size; {
		x := at(source, offset) ^ at(target, offset)
		offset++

		if x == 0 {
			continue
		}

		b = varint.Append(b, uint64(offset-1-relative))
		b = append(b, x)

		for {
			if offset >= size {
				b = append(b, 0x00)

				break
			}

			x = at(source, offset) ^ at(target, offset)
			offset++
			b = append(b, x)

			if x == 0 {
				break
			}
		}

		relative = offset
	}

	return appendTrailer(b, source, target)
}

// BPS builds a BPS patch command by command.
type BPS struct {
	buf []byte
}

// NewBPS starts a BPS patch declaring the given sizes and metadata.
func NewBPS(sourceSize, targetSize int, metadata []byte) *BPS {
	b := []byte("BPS1")
	b = varint.Append(b, uint64(sourceSize))
	b = varint.Append(b, uint64(targetSize))
	b = varint.Append(b, uint64(len(metadata)))
	b = append(b, metadata...)

	return &BPS{buf: b}
}

func (p *BPS) command(mode uint64, n int) {
	p.buf = varint.Append(p.buf, uint64(n-1)<<2|mode)
}

func (p *BPS) offset(delta int) {
	if delta < 0 {
		p.buf = varint.Append(p.buf, uint64(-delta)<<1|1)
	} else {
		p.buf = varint.Append(p.buf, uint64(delta)<<1)
	}
}

// SourceRead copies n bytes from the source at the current output offset.
func (p *BPS) SourceRead(n int) *BPS {
	p.command(0, n)

	return p
}

// TargetRead inserts data.
func (p *BPS) TargetRead(data []byte) *BPS {
	p.command(1, len(data))
	p.buf = append(p.buf, data...)

	return p
}

// SourceCopy moves the source offset by delta and copies n bytes from it.
func (p *BPS) SourceCopy(n, delta int) *BPS {
	p.command(2, n)
	p.offset(delta)

	return p
}

// TargetCopy moves the target offset by delta and copies n bytes from it.
func (p *BPS) TargetCopy(n, delta int) *BPS {
	p.command(3, n)
	p.offset(delta)

	return p
}

// Bytes returns the patch with its checksum trailer, computed from source
// and the expected target.
func (p *BPS) Bytes(source, target []byte) []byte {
	return appendTrailer(append([]byte(nil), p.buf...), source, target)
}

// LinearBPS returns a BPS patch transforming source into target using only
// SourceRead and TargetRead commands.
func LinearBPS(source, target []byte, metadata []byte) []byte {
	p := NewBPS(len(source), len(target), metadata)

	for offset := 0; offset < len(target); {
		start := offset

		if offset < len(source) && source[offset] == target[offset] {
			for offset < len(target) && offset < len(source) && source[offset] == target[offset] {
				offset++
			}

			p.SourceRead(offset - start)

			continue
		}

		for offset < len(target) && (offset >= len(source) || source[offset] != target[offset]) {
			offset++
		}

		p.TargetRead(target[start:offset])
	}

	return p.Bytes(source, target)
}

// FlipBit returns a copy of b with one bit inverted.
func FlipBit(b []byte, offset int, bit uint) []byte {
	c := append([]byte(nil), b...)
	c[offset] ^= 1 << bit

	return c
}

// Reseal returns a copy of a UPS or BPS patch with the trailing patch
// checksum recomputed over the preceding bytes.
func Reseal(b []byte) []byte {
	c := append([]byte(nil), b[:len(b)-4]...)

	return binary.LittleEndian.AppendUint32(c, checksum.Sum(c))
}
