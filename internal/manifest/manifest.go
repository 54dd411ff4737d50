// Package manifest reads the YAML file describing a batch of patch jobs.
//
// A manifest looks like:
//
//	concurrency: 4
//	jobs:
//	  - source: roms/game.sfc
//	    patch: patches/translation.bps
//	    output: out/game-en.sfc
//
// Relative paths are resolved against the directory holding the manifest.
package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// ErrNoJobs is returned by Validate when the manifest lists no jobs.
var ErrNoJobs = errors.New("manifest: no jobs")

// Job is a single source, patch and output triple.
type Job struct {
	Source string `yaml:"source"`
	Patch  string `yaml:"patch"`
	Output string `yaml:"output"`
}

// Manifest is the decoded manifest document.
type Manifest struct {
	// Concurrency limits how many jobs run at once. Zero means
	// unlimited.
	Concurrency int   `yaml:"concurrency"`
	Jobs        []Job `yaml:"jobs"`
}

// Parse decodes a manifest. Unknown keys are an error.
func Parse(b []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	m := new(Manifest)
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("manifest: error decoding: %w", err)
	}

	return m, nil
}

// Load reads the manifest called name from fs, resolves its paths and
// validates it. Outputs are compared after resolving.
func Load(fs afero.Fs, name string) (*Manifest, error) {
	b, err := afero.ReadFile(fs, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: error reading: %w", err)
	}

	m, err := Parse(b)
	if err != nil {
		return nil, err
	}

	m.resolve(filepath.Dir(name))

	if err = m.Validate(); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *Manifest) resolve(dir string) {
	join := func(p string) string {
		if p == "" {
			return p
		}

		if filepath.IsAbs(p) {
			return filepath.Clean(p)
		}

		return filepath.Join(dir, p)
	}

	for i := range m.Jobs {
		m.Jobs[i].Source = join(m.Jobs[i].Source)
		m.Jobs[i].Patch = join(m.Jobs[i].Patch)
		m.Jobs[i].Output = join(m.Jobs[i].Output)
	}
}

// Validate checks every job has a source, patch and output, and that no
// two jobs write the same output.
func (m *Manifest) Validate() error {
	var merr *multierror.Error

	if m.Concurrency < 0 {
		merr = multierror.Append(merr, fmt.Errorf("manifest: concurrency must be >= 0, got %d", m.Concurrency))
	}

	if len(m.Jobs) == 0 {
		merr = multierror.Append(merr, ErrNoJobs)
	}

	outputs := make(map[string]int, len(m.Jobs))

	for i, job := range m.Jobs {
		if job.Source == "" {
			merr = multierror.Append(merr, fmt.Errorf("manifest: jobs[%d]: source is required", i))
		}

		if job.Patch == "" {
			merr = multierror.Append(merr, fmt.Errorf("manifest: jobs[%d]: patch is required", i))
		}

		if job.Output == "" {
			merr = multierror.Append(merr, fmt.Errorf("manifest: jobs[%d]: output is required", i))

			continue
		}

		output := filepath.Clean(job.Output)
		if j, ok := outputs[output]; ok {
			merr = multierror.Append(merr, fmt.Errorf("manifest: jobs[%d]: output %q already written by jobs[%d]", i, job.Output, j))
		}

		outputs[output] = i
	}

	return merr.ErrorOrNil()
}
