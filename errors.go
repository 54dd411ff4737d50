package rompatch

import "github.com/bodgit/rompatch/internal/patcherr"

// Code is the reason an Applier rejected its input. A Code is itself an
// error so it can be matched with errors.Is.
type Code = patcherr.Code

// Error is the error type returned by the built-in formats.
type Error = patcherr.Error

// Error codes. Each format returns a subset: IPS only reports patch and
// target problems, UPS folds checksum failures into SourceInvalid,
// TargetInvalid and PatchInvalid, BPS names each checksum.
const (
	Success               = patcherr.Success
	PatchTooSmall         = patcherr.PatchTooSmall
	PatchInvalidHeader    = patcherr.PatchInvalidHeader
	PatchInvalid          = patcherr.PatchInvalid
	SourceTooSmall        = patcherr.SourceTooSmall
	SourceInvalid         = patcherr.SourceInvalid
	TargetTooSmall        = patcherr.TargetTooSmall
	TargetInvalid         = patcherr.TargetInvalid
	SourceChecksumInvalid = patcherr.SourceChecksumInvalid
	TargetChecksumInvalid = patcherr.TargetChecksumInvalid
	PatchChecksumInvalid  = patcherr.PatchChecksumInvalid
	Unknown               = patcherr.Unknown
)

// CodeOf returns the Code carried by err, Success if err is nil and
// Unknown if err carries no Code.
func CodeOf(err error) Code {
	return patcherr.CodeOf(err)
}
