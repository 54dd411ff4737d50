package manifest_test

import (
	"testing"

	"github.com/bodgit/rompatch/internal/manifest"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := manifest.Parse([]byte(`
concurrency: 2
jobs:
  - source: game.sfc
    patch: fix.ips
    output: out.sfc
`))
	require.NoError(t, err)
	assert.Equal(t, &manifest.Manifest{
		Concurrency: 2,
		Jobs: []manifest.Job{
			{Source: "game.sfc", Patch: "fix.ips", Output: "out.sfc"},
		},
	}, m)

	_, err = manifest.Parse([]byte("jobs:\n  - source: a\n    target: b\n"))
	assert.Error(t, err)

	_, err = manifest.Parse([]byte("jobs: [\n"))
	assert.Error(t, err)

	m, err = manifest.Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, m.Jobs)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tables := map[string]struct {
		manifest manifest.Manifest
		errors   int
	}{
		"ok": {
			manifest: manifest.Manifest{Jobs: []manifest.Job{
				{Source: "a", Patch: "b", Output: "c"},
				{Source: "a", Patch: "d", Output: "e"},
			}},
		},
		"no jobs": {
			errors: 1,
		},
		"missing fields": {
			manifest: manifest.Manifest{Jobs: []manifest.Job{
				{Source: "a"},
				{Patch: "b", Output: "c"},
			}},
			errors: 3,
		},
		"duplicate output": {
			manifest: manifest.Manifest{Jobs: []manifest.Job{
				{Source: "a", Patch: "b", Output: "out/c"},
				{Source: "a", Patch: "d", Output: "out/./c"},
			}},
			errors: 1,
		},
		"negative concurrency": {
			manifest: manifest.Manifest{Concurrency: -1, Jobs: []manifest.Job{
				{Source: "a", Patch: "b", Output: "c"},
			}},
			errors: 1,
		},
	}

	for name, table := range tables {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := table.manifest.Validate()
			if table.errors == 0 {
				assert.NoError(t, err)

				return
			}

			var merr *multierror.Error
			require.ErrorAs(t, err, &merr)
			assert.Len(t, merr.Errors, table.errors)
		})
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/work/batch.yaml", []byte(`
jobs:
  - source: roms/game.sfc
    patch: /patches/fix.bps
    output: ../out/game.sfc
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/empty.yaml", []byte("concurrency: 1\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/dup.yaml", []byte(`
jobs:
  - source: game.sfc
    patch: a.ips
    output: out/game.sfc
  - source: game.sfc
    patch: b.ips
    output: /work/out/game.sfc
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/work/missing-output.yaml", []byte(`
jobs:
  - source: game.sfc
    patch: a.ips
`), 0o644))

	m, err := manifest.Load(fs, "/work/batch.yaml")
	require.NoError(t, err)
	assert.Equal(t, []manifest.Job{
		{Source: "/work/roms/game.sfc", Patch: "/patches/fix.bps", Output: "/out/game.sfc"},
	}, m.Jobs)

	_, err = manifest.Load(fs, "/work/empty.yaml")
	assert.ErrorIs(t, err, manifest.ErrNoJobs)

	_, err = manifest.Load(fs, "/work/missing.yaml")
	assert.Error(t, err)

	_, err = manifest.Load(fs, "/work/dup.yaml")
	assert.ErrorContains(t, err, "already written by jobs[0]")

	_, err = manifest.Load(fs, "/work/missing-output.yaml")
	assert.ErrorContains(t, err, "output is required")
}
