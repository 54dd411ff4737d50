// Package checksum implements the running CRC32 used to verify UPS and BPS
// patches.
package checksum

import "hash/crc32"

// An Accumulator holds a running CRC32 state. The zero value is not ready
// for use, call New.
type Accumulator uint32

const seed Accumulator = 0xffffffff

// New returns an Accumulator seeded to ~0.
func New() Accumulator {
	return seed
}

// Adjust folds a single byte into the accumulator.
func (a Accumulator) Adjust(b byte) Accumulator {
	return Accumulator(crc32.IEEETable[byte(a)^b]) ^ a>>8
}

// Update folds p into the accumulator.
func (a Accumulator) Update(p []byte) Accumulator {
	// crc32.Update complements on the way in and out
	return ^Accumulator(crc32.Update(^uint32(a), crc32.IEEETable, p))
}

// Sum32 returns the finalized checksum.
func (a Accumulator) Sum32() uint32 {
	return ^uint32(a)
}

// Sum returns the CRC32 of p.
func Sum(p []byte) uint32 {
	return New().Update(p).Sum32()
}
