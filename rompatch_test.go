package rompatch_test

import (
	"errors"
	"testing"

	"github.com/bodgit/rompatch"
	"github.com/bodgit/rompatch/internal/patchtest"
	"github.com/bodgit/rompatch/internal/varint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPatch(t *testing.T) {
	t.Parallel()

	source := []byte("The quick brown fox jumps over the lazy dog")
	target := []byte("The quick red fox leapt over the lazy dogs!")

	tables := map[string]struct {
		patch  []byte
		source []byte
		want   []byte
	}{
		"ips": {
			patch:  []byte("PATCH\x00\x00\x01\x00\x01\xffEOF"),
			source: []byte{0x00, 0x00, 0x00, 0x00},
			want:   []byte{0x00, 0xff, 0x00, 0x00},
		},
		"ips truncate": {
			patch:  patchtest.NewIPS().Record(0, []byte{0xff}).Truncate(3),
			source: []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06},
			want:   []byte{0xff, 0x02, 0x03},
		},
		"ups": {
			patch:  patchtest.UPS(source, target),
			source: source,
			want:   target,
		},
		"ups reverse": {
			patch:  patchtest.UPS(source, target),
			source: target,
			want:   source,
		},
		"bps": {
			patch:  patchtest.LinearBPS(source, target, nil),
			source: source,
			want:   target,
		},
		"bps empty": {
			patch:  patchtest.LinearBPS(nil, nil, nil),
			source: nil,
			want:   []byte{},
		},
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := rompatch.Patch(table.patch, table.source)
			require.NoError(t, err)
			assert.Equal(t, table.want, got)

			capacity, err := rompatch.Capacity(table.patch, table.source)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, capacity, len(table.want))

			buf := make([]byte, capacity)
			n, err := rompatch.Apply(table.patch, table.source, buf)
			require.NoError(t, err)
			assert.Equal(t, table.want, buf[:n])
		})
	}
}

func TestPatchErrors(t *testing.T) {
	t.Parallel()

	source := []byte("abcdefgh")
	target := []byte("abcXefghij")
	bpsPatch := patchtest.LinearBPS(source, target, nil)

	tables := map[string]struct {
		patch  []byte
		source []byte
		err    error
		code   rompatch.Code
	}{
		"unknown format": {
			patch:  []byte("NOTAPATCH"),
			source: source,
			err:    rompatch.ErrUnknownFormat,
			code:   rompatch.Unknown,
		},
		"empty patch": {
			patch:  nil,
			source: source,
			err:    rompatch.ErrUnknownFormat,
			code:   rompatch.Unknown,
		},
		"ips truncated record": {
			patch:  patchtest.NewIPS().Raw(0x00, 0x00, 0x01, 0x00, 0x04, 0x01).Unterminated(),
			source: source,
			err:    rompatch.PatchInvalid,
			code:   rompatch.PatchInvalid,
		},
		"ups wrong source": {
			patch:  patchtest.UPS(source, target),
			source: []byte("abc"),
			err:    rompatch.SourceInvalid,
			code:   rompatch.SourceInvalid,
		},
		"bps source checksum": {
			patch:  bpsPatch,
			source: []byte("ABCDEFGH"),
			err:    rompatch.SourceChecksumInvalid,
			code:   rompatch.SourceChecksumInvalid,
		},
		"bps patch checksum": {
			patch:  patchtest.FlipBit(bpsPatch, len(bpsPatch)-1, 0),
			source: source,
			err:    rompatch.PatchChecksumInvalid,
			code:   rompatch.PatchChecksumInvalid,
		},
		"bps source too small": {
			patch:  bpsPatch,
			source: source[:4],
			err:    rompatch.SourceTooSmall,
			code:   rompatch.SourceTooSmall,
		},
		"bps corrupt target size": {
			patch:  patchtest.NewBPS(0, 1<<62, nil).Bytes(nil, nil),
			source: nil,
			err:    rompatch.PatchInvalid,
			code:   rompatch.PatchInvalid,
		},
		"ups target too large to allocate": {
			patch:  append(varint.Append([]byte("UPS1\x80"), 1<<40), make([]byte, 12)...),
			source: nil,
			err:    rompatch.TargetTooSmall,
			code:   rompatch.TargetTooSmall,
		},
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := rompatch.Patch(table.patch, table.source)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, table.err)
			assert.Equal(t, table.code, rompatch.CodeOf(err))
		})
	}
}

func TestApplyTargetTooSmall(t *testing.T) {
	t.Parallel()

	source := []byte("abcdefgh")
	target := []byte("abcXefghij")

	for _, patch := range [][]byte{
		patchtest.NewIPS().Record(8, []byte("ij")).Bytes(),
		patchtest.LinearBPS(source, target, nil),
	} {
		_, err := rompatch.Apply(patch, source, make([]byte, len(source)))
		assert.ErrorIs(t, err, rompatch.TargetTooSmall)
	}
}

func TestErrorType(t *testing.T) {
	t.Parallel()

	patch := patchtest.LinearBPS([]byte("abc"), []byte("abd"), nil)

	_, err := rompatch.Patch(patch, []byte("abz"))
	require.Error(t, err)

	var perr *rompatch.Error
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "bps", perr.Format)
	assert.Equal(t, rompatch.SourceChecksumInvalid, perr.Code)
}

func TestCodeOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, rompatch.Success, rompatch.CodeOf(nil))
	assert.Equal(t, rompatch.Unknown, rompatch.CodeOf(errors.New("boom")))
}

func BenchmarkPatch(b *testing.B) {
	source := make([]byte, 1<<20)
	target := make([]byte, len(source))

	for i := range target {
		target[i] = byte(i)
	}

	patches := map[string][]byte{
		"ups": patchtest.UPS(source, target),
		"bps": patchtest.LinearBPS(source, target, nil),
	}

	for name, patch := range patches {
		b.Run(name, func(b *testing.B) {
			b.SetBytes(int64(len(target)))

			for i := 0; i < b.N; i++ {
				if _, err := rompatch.Patch(patch, source); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
