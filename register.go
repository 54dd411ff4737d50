package rompatch

import (
	"bytes"
	"strings"
	"sync"

	"github.com/bodgit/rompatch/internal/bps"
	"github.com/bodgit/rompatch/internal/ips"
	"github.com/bodgit/rompatch/internal/ups"
)

// Applier applies patch to source, writing into target, and returns the
// length of the result. The capacity of target is len(target).
type Applier func(patch, source, target []byte) (int, error)

// Sizer returns the smallest target capacity an Applier accepts for the
// given patch and source.
type Sizer func(patch, source []byte) (int, error)

// Inspector describes a patch without applying it.
type Inspector func(patch []byte) (*Info, error)

// A Format is a patch format recognised by its leading magic bytes.
type Format struct {
	Name     string
	Magic    []byte
	Apply    Applier
	Capacity Sizer
	Inspect  Inspector
}

//nolint:gochecknoglobals
var formats sync.Map

//nolint:gochecknoinits
func init() {
	// International Patching System
	RegisterFormat(Format{Name: "ips", Magic: ips.Magic, Apply: ips.Apply, Capacity: ips.Capacity, Inspect: inspectIPS})
	// Universal Patching System
	RegisterFormat(Format{Name: "ups", Magic: ups.Magic, Apply: ups.Apply, Capacity: ups.TargetSize, Inspect: inspectUPS})
	// Beat Patching System
	RegisterFormat(Format{Name: "bps", Magic: bps.Magic, Apply: bps.Apply, Capacity: bps.TargetSize, Inspect: inspectBPS})
}

// RegisterFormat registers a patch format. It panics if a format with the
// same magic bytes is already registered.
func RegisterFormat(f Format) {
	if len(f.Magic) == 0 || f.Apply == nil || f.Capacity == nil {
		panic("incomplete format")
	}

	if _, dup := formats.LoadOrStore(string(f.Magic), f); dup {
		panic("format already registered")
	}
}

// Detect returns the registered format whose magic bytes prefix patch. The
// longest matching magic wins.
func Detect(patch []byte) (Format, bool) {
	var (
		found Format
		ok    bool
	)

	formats.Range(func(_, v interface{}) bool {
		f, _ := v.(Format)
		if bytes.HasPrefix(patch, f.Magic) && len(f.Magic) > len(found.Magic) {
			found, ok = f, true
		}

		return true
	})

	return found, ok
}

// FormatByName returns the registered format with the given name. A file
// extension such as ".BPS" is accepted.
func FormatByName(name string) (Format, bool) {
	name = strings.ToLower(strings.TrimPrefix(name, "."))

	var (
		found Format
		ok    bool
	)

	formats.Range(func(_, v interface{}) bool {
		if f, _ := v.(Format); f.Name == name {
			found, ok = f, true

			return false
		}

		return true
	})

	return found, ok
}
