// Package varint implements the variable-length integer encoding shared by
// UPS and BPS patches.
//
// Each byte carries seven bits of payload, least significant group first,
// and the high bit marks the final byte. Unlike LEB128 every continuation
// adds one unit of the next group, so each value has exactly one encoding.
package varint

import (
	"errors"
	"io"
	"math/bits"
)

// MaxLen is the longest encoding of a 64-bit value.
const MaxLen = 10

// ErrOverflow is returned when an encoded value does not fit in 64 bits.
var ErrOverflow = errors.New("varint: value overflows 64 bits")

// Decode reads one value from r.
func Decode(r io.ByteReader) (uint64, error) {
	var v, shift uint64 = 0, 1

	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}

		hi, lo := bits.Mul64(uint64(b&0x7f), shift)
		if hi != 0 {
			return 0, ErrOverflow
		}

		var carry uint64
		if v, carry = bits.Add64(v, lo, 0); carry != 0 {
			return 0, ErrOverflow
		}

		if b&0x80 != 0 {
			return v, nil
		}

		if shift > 1<<56 {
			return 0, ErrOverflow
		}

		shift <<= 7

		if v, carry = bits.Add64(v, shift, 0); carry != 0 {
			return 0, ErrOverflow
		}
	}
}

// Append appends the encoding of v to dst and returns the extended slice.
func Append(dst []byte, v uint64) []byte {
	for {
		x := byte(v & 0x7f)
		v >>= 7

		if v == 0 {
			return append(dst, 0x80|x)
		}

		dst = append(dst, x)
		v--
	}
}
