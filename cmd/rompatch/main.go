// rompatch applies IPS, UPS and BPS patches to ROM images.
//
// Usage:
//
//	rompatch [flags] apply [-o OUTPUT] SOURCE PATCH [PATCH...]
//	rompatch [flags] info PATCH [PATCH...]
//	rompatch [flags] batch MANIFEST
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/bodgit/rompatch"
	"github.com/bodgit/rompatch/internal/manifest"
	"github.com/bodgit/rompatch/internal/romfile"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

var (
	errUsage          = errors.New("usage error")
	errUnknownCommand = errors.New("unknown command")
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, afero.NewOsFs(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1) //nolint:gocritic
	}
}

type app struct {
	fs     afero.Fs
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("%w: invalid log level %q", errUsage, level)
	}

	opts := &slog.HandlerOptions{Level: l}

	switch strings.ToLower(format) {
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("%w: invalid log format %q", errUsage, format)
	}
}

func run(ctx context.Context, fs afero.Fs, args []string, stdout, stderr io.Writer) error {
	var logLevel, logFormat string

	flagSet := pflag.NewFlagSet("rompatch", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flagSet.StringVar(&logFormat, "log-format", "text", "log format (text, json)")
	flagSet.Usage = func() { printHelp(stderr, flagSet) }

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}

		return fmt.Errorf("%w: %w", errUsage, err)
	}

	logger, err := newLogger(stderr, logLevel, logFormat)
	if err != nil {
		return err
	}

	a := &app{
		fs:     fs,
		stdout: stdout,
		stderr: stderr,
		logger: logger,
	}

	args = flagSet.Args()
	if len(args) == 0 {
		printHelp(stderr, flagSet)

		return fmt.Errorf("%w: no command given", errUsage)
	}

	switch args[0] {
	case "apply":
		return a.apply(args[1:])
	case "info":
		return a.info(args[1:])
	case "batch":
		return a.batch(ctx, args[1:])
	default:
		return fmt.Errorf("%w: %s", errUnknownCommand, args[0])
	}
}

func printHelp(w io.Writer, flagSet *pflag.FlagSet) {
	fmt.Fprint(w, `rompatch applies IPS, UPS and BPS patches.

Usage:
  rompatch [flags] apply [-o OUTPUT] SOURCE PATCH [PATCH...]
  rompatch [flags] info PATCH [PATCH...]
  rompatch [flags] batch MANIFEST

Flags:
`)
	flagSet.PrintDefaults()
}

// defaultOutput names the result after the last patch, keeping the
// extension of the source.
func defaultOutput(source, patch string) string {
	base := strings.TrimSuffix(filepath.Base(patch), filepath.Ext(patch))

	return filepath.Join(filepath.Dir(patch), base+filepath.Ext(source))
}

func (a *app) apply(args []string) error {
	var output string

	flagSet := pflag.NewFlagSet("apply", pflag.ContinueOnError)
	flagSet.SetOutput(a.stderr)
	flagSet.StringVarP(&output, "output", "o", "", "write the result to `file`")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}

		return fmt.Errorf("%w: %w", errUsage, err)
	}

	args = flagSet.Args()
	if len(args) < 2 { //nolint:mnd
		return fmt.Errorf("%w: apply needs a source and at least one patch", errUsage)
	}

	source, err := romfile.Load(a.fs, args[0])
	if err != nil {
		return err
	}

	a.logger.Debug("loaded source", "file", source.Name, "size", len(source.Data), "crc32", fmt.Sprintf("%08x", source.CRC32))

	data := source.Data

	for _, name := range args[1:] {
		patch, err := romfile.Load(a.fs, name)
		if err != nil {
			return err
		}

		if data, err = rompatch.Patch(patch.Data, data); err != nil {
			return fmt.Errorf("%s: %w", patch.Name, err)
		}

		a.logger.Info("applied patch", "patch", patch.Name, "size", len(data))
	}

	if output == "" {
		output = defaultOutput(args[0], args[len(args)-1])
	}

	if err = romfile.Save(a.fs, output, data); err != nil {
		return err
	}

	a.logger.Info("wrote output", "file", output, "size", len(data))

	return nil
}

func (a *app) info(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: info needs at least one patch", errUsage)
	}

	var merr *multierror.Error

	for _, name := range args {
		patch, err := romfile.Load(a.fs, name)
		if err != nil {
			merr = multierror.Append(merr, err)

			continue
		}

		info, err := rompatch.ReadInfo(patch.Data)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", patch.Name, err))

			continue
		}

		printInfo(a.stdout, patch.Name, info)
	}

	return merr.ErrorOrNil()
}

func printInfo(w io.Writer, name string, info *rompatch.Info) {
	fmt.Fprintf(w, "%s:\n", name)
	fmt.Fprintf(w, "  format: %s\n", info.Format)

	switch info.Format {
	case "ips":
		fmt.Fprintf(w, "  records: %d\n", info.Records)

		if info.Resize {
			fmt.Fprintf(w, "  target size: %d\n", info.TargetSize)
		}
	default:
		fmt.Fprintf(w, "  source size: %d\n", info.SourceSize)
		fmt.Fprintf(w, "  target size: %d\n", info.TargetSize)
		fmt.Fprintf(w, "  source crc32: %08x\n", info.SourceChecksum)
		fmt.Fprintf(w, "  target crc32: %08x\n", info.TargetChecksum)
		fmt.Fprintf(w, "  patch crc32: %08x (valid: %t)\n", info.PatchChecksum, info.PatchChecksumValid)

		if info.Records > 0 {
			fmt.Fprintf(w, "  commands: %d\n", info.Records)
		}

		if info.Metadata != "" {
			fmt.Fprintf(w, "  metadata: %q\n", info.Metadata)
		}
	}
}

func (a *app) batch(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("%w: batch needs exactly one manifest", errUsage)
	}

	m, err := manifest.Load(a.fs, args[0])
	if err != nil {
		return err
	}

	cache, err := romfile.NewCache(a.fs, len(m.Jobs))
	if err != nil {
		return err
	}

	jobs := make([]rompatch.Job, 0, len(m.Jobs))

	for _, job := range m.Jobs {
		source, err := cache.Load(job.Source)
		if err != nil {
			return err
		}

		patch, err := romfile.Load(a.fs, job.Patch)
		if err != nil {
			return err
		}

		jobs = append(jobs, rompatch.Job{Name: job.Output, Patch: patch.Data, Source: source.Data})
	}

	a.logger.Debug("running batch", "jobs", len(jobs), "sources", cache.Len(), "concurrency", m.Concurrency)

	results, err := rompatch.ApplyAll(ctx, jobs, m.Concurrency)

	var merr *multierror.Error
	if err != nil {
		merr = multierror.Append(merr, err)
	}

	for _, result := range results {
		if result.Err != nil {
			a.logger.Error("patch failed", "output", result.Name, "code", rompatch.CodeOf(result.Err).String())

			continue
		}

		if err := romfile.Save(a.fs, result.Name, result.Target); err != nil {
			merr = multierror.Append(merr, err)

			continue
		}

		a.logger.Info("wrote output", "file", result.Name, "size", len(result.Target))
	}

	return merr.ErrorOrNil()
}
