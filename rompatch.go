// Package rompatch applies IPS, UPS and BPS patches.
//
// Patches, sources and targets are plain byte slices owned by the caller.
// The package never allocates a target unless asked to via [Patch], never
// writes past len(target) and keeps no state between calls, so
// independent calls may run concurrently.
package rompatch

import (
	"errors"
	"math"

	"github.com/bodgit/rompatch/internal/patcherr"
)

// ErrUnknownFormat is returned when a patch starts with no registered magic.
var ErrUnknownFormat = errors.New("rompatch: unknown patch format")

// MaxTargetSize is the largest target Patch will allocate. Larger targets
// can still be produced with Apply into a caller-supplied buffer.
const MaxTargetSize = math.MaxInt32

func detect(patch []byte) (Format, error) {
	f, ok := Detect(patch)
	if !ok {
		return Format{}, ErrUnknownFormat
	}

	return f, nil
}

// Apply applies patch to source, writing the result into target, and
// returns the length of the result. The format is detected from the magic
// bytes of patch. On error the contents of target are undefined.
func Apply(patch, source, target []byte) (int, error) {
	f, err := detect(patch)
	if err != nil {
		return 0, err
	}

	return f.Apply(patch, source, target)
}

// Capacity returns the smallest target that Apply accepts for patch and
// source.
func Capacity(patch, source []byte) (int, error) {
	f, err := detect(patch)
	if err != nil {
		return 0, err
	}

	return f.Capacity(patch, source)
}

// Patch applies patch to source and returns a newly allocated target.
func Patch(patch, source []byte) ([]byte, error) {
	f, err := detect(patch)
	if err != nil {
		return nil, err
	}

	capacity, err := f.Capacity(patch, source)
	if err != nil {
		return nil, err
	}

	if capacity < 0 || capacity > MaxTargetSize {
		return nil, patcherr.Newf(f.Name, patcherr.TargetTooSmall, "capacity %d outside 0 to %d", capacity, MaxTargetSize)
	}

	target := make([]byte, capacity)

	n, err := f.Apply(patch, source, target)
	if err != nil {
		return nil, err
	}

	return target[:n], nil
}
