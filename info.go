package rompatch

import (
	"fmt"

	"github.com/bodgit/rompatch/internal/bps"
	"github.com/bodgit/rompatch/internal/checksum"
	"github.com/bodgit/rompatch/internal/ips"
	"github.com/bodgit/rompatch/internal/ups"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Info describes a patch without applying it. Fields a format does not
// carry are left as their zero value.
type Info struct {
	Format string

	SourceSize uint64
	TargetSize uint64

	SourceChecksum uint32
	TargetChecksum uint32
	PatchChecksum  uint32
	// PatchChecksumValid reports whether PatchChecksum matches the
	// patch contents.
	PatchChecksumValid bool

	// Metadata is the BPS metadata block. A leading byte order mark is
	// honoured and invalid UTF-8 is replaced.
	Metadata string

	// Records is the number of IPS records or BPS commands.
	Records int
	// Resize is set if the IPS patch carries a truncation length, which
	// is then stored in TargetSize.
	Resize bool
}

// ReadInfo detects the format of patch and describes it.
func ReadInfo(patch []byte) (*Info, error) {
	f, err := detect(patch)
	if err != nil {
		return nil, err
	}

	if f.Inspect == nil {
		return &Info{Format: f.Name}, nil
	}

	return f.Inspect(patch)
}

func inspectIPS(patch []byte) (*Info, error) {
	info := &Info{Format: "ips"}

	trailer, err := ips.Walk(patch, func(ips.Record) error {
		info.Records++

		return nil
	})
	if err != nil {
		return nil, err
	}

	if trailer.Resize {
		info.Resize = true
		info.TargetSize = uint64(trailer.Length)
	}

	return info, nil
}

func patchChecksumValid(patch []byte, stored uint32) bool {
	return checksum.Sum(patch[:len(patch)-4]) == stored
}

func inspectUPS(patch []byte) (*Info, error) {
	h, err := ups.ReadHeader(patch)
	if err != nil {
		return nil, err
	}

	return &Info{
		Format:             "ups",
		SourceSize:         h.SourceSize,
		TargetSize:         h.TargetSize,
		SourceChecksum:     h.SourceChecksum,
		TargetChecksum:     h.TargetChecksum,
		PatchChecksum:      h.PatchChecksum,
		PatchChecksumValid: patchChecksumValid(patch, h.PatchChecksum),
	}, nil
}

func decodeMetadata(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}

	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), b)
	if err != nil {
		return "", fmt.Errorf("rompatch: error decoding metadata: %w", err)
	}

	return string(out), nil
}

func inspectBPS(patch []byte) (*Info, error) {
	h, err := bps.ReadHeader(patch)
	if err != nil {
		return nil, err
	}

	info := &Info{
		Format:             "bps",
		SourceSize:         h.SourceSize,
		TargetSize:         h.TargetSize,
		SourceChecksum:     h.SourceChecksum,
		TargetChecksum:     h.TargetChecksum,
		PatchChecksum:      h.PatchChecksum,
		PatchChecksumValid: patchChecksumValid(patch, h.PatchChecksum),
	}

	if info.Metadata, err = decodeMetadata(h.Metadata); err != nil {
		return nil, err
	}

	if err = bps.Walk(patch, func(bps.Command) error {
		info.Records++

		return nil
	}); err != nil {
		return nil, err
	}

	return info, nil
}
