package rompatch_test

import (
	"testing"

	"github.com/bodgit/rompatch"
	"github.com/bodgit/rompatch/internal/checksum"
	"github.com/bodgit/rompatch/internal/patchtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInfo(t *testing.T) {
	t.Parallel()

	source := []byte("abcdefgh")
	target := []byte("abcXefghij")

	upsPatch := patchtest.UPS(source, target)
	bpsPatch := patchtest.LinearBPS(source, target, []byte("<?xml version=\"1.0\"?>"))
	badPatch := patchtest.FlipBit(bpsPatch, len(bpsPatch)-1, 0)

	tables := map[string]struct {
		patch []byte
		want  rompatch.Info
	}{
		"ips": {
			patch: patchtest.NewIPS().Record(0, []byte{0x01}).RLE(4, 2, 0xff).Bytes(),
			want:  rompatch.Info{Format: "ips", Records: 2},
		},
		"ips resize": {
			patch: patchtest.NewIPS().Truncate(0x123456),
			want:  rompatch.Info{Format: "ips", Resize: true, TargetSize: 0x123456},
		},
		"ups": {
			patch: upsPatch,
			want: rompatch.Info{
				Format:             "ups",
				SourceSize:         8,
				TargetSize:         10,
				SourceChecksum:     checksum.Sum(source),
				TargetChecksum:     checksum.Sum(target),
				PatchChecksum:      checksum.Sum(upsPatch[:len(upsPatch)-4]),
				PatchChecksumValid: true,
			},
		},
		"bps": {
			patch: bpsPatch,
			want: rompatch.Info{
				Format:             "bps",
				SourceSize:         8,
				TargetSize:         10,
				SourceChecksum:     checksum.Sum(source),
				TargetChecksum:     checksum.Sum(target),
				PatchChecksum:      checksum.Sum(bpsPatch[:len(bpsPatch)-4]),
				PatchChecksumValid: true,
				Metadata:           "<?xml version=\"1.0\"?>",
				Records:            4,
			},
		},
		"bps bad checksum": {
			patch: badPatch,
			want: rompatch.Info{
				Format:         "bps",
				SourceSize:     8,
				TargetSize:     10,
				SourceChecksum: checksum.Sum(source),
				TargetChecksum: checksum.Sum(target),
				PatchChecksum:  checksum.Sum(bpsPatch[:len(bpsPatch)-4]) ^ 1<<24,
				Metadata:       "<?xml version=\"1.0\"?>",
				Records:        4,
			},
		},
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			info, err := rompatch.ReadInfo(table.patch)
			require.NoError(t, err)
			assert.Equal(t, table.want, *info)
		})
	}
}

func TestReadInfoMetadataBOM(t *testing.T) {
	t.Parallel()

	patch := patchtest.LinearBPS(nil, nil, []byte("\xef\xbb\xbftitle"))

	info, err := rompatch.ReadInfo(patch)
	require.NoError(t, err)
	assert.Equal(t, "title", info.Metadata)
}

func TestReadInfoUnknown(t *testing.T) {
	t.Parallel()

	_, err := rompatch.ReadInfo([]byte("garbage"))
	assert.ErrorIs(t, err, rompatch.ErrUnknownFormat)
}
