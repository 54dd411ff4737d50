// Package patcherr defines the error codes shared by the patch appliers.
package patcherr

import (
	"errors"
	"fmt"
)

// Code identifies why an applier rejected its input. Each format only
// returns a subset of the codes.
type Code int

// Error codes.
const (
	Success Code = iota
	PatchTooSmall
	PatchInvalidHeader
	PatchInvalid
	SourceTooSmall
	SourceInvalid
	TargetTooSmall
	TargetInvalid
	SourceChecksumInvalid
	TargetChecksumInvalid
	PatchChecksumInvalid
	Unknown
)

var codeNames = [...]string{
	Success:               "success",
	PatchTooSmall:         "patch too small",
	PatchInvalidHeader:    "patch header invalid",
	PatchInvalid:          "patch invalid",
	SourceTooSmall:        "source too small",
	SourceInvalid:         "source invalid",
	TargetTooSmall:        "target too small",
	TargetInvalid:         "target invalid",
	SourceChecksumInvalid: "source checksum invalid",
	TargetChecksumInvalid: "target checksum invalid",
	PatchChecksumInvalid:  "patch checksum invalid",
	Unknown:               "unknown error",
}

func (c Code) String() string {
	if c < 0 || int(c) >= len(codeNames) {
		return fmt.Sprintf("code(%d)", int(c))
	}

	return codeNames[c]
}

// Error allows a Code to be used as a sentinel with errors.Is.
func (c Code) Error() string {
	return c.String()
}

// Error is returned by the appliers. It carries the format that rejected
// the patch, the code and optionally the underlying cause.
type Error struct {
	Format string
	Code   Code
	Err    error
}

// New returns an *Error for format with the given code and optional cause.
func New(format string, code Code, err error) *Error {
	return &Error{
		Format: format,
		Code:   code,
		Err:    err,
	}
}

// Newf is like New but formats a detail message as the cause.
func Newf(format string, code Code, msg string, args ...interface{}) *Error {
	return New(format, code, fmt.Errorf(msg, args...)) //nolint:err113
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Format, e.Code)
	}

	return fmt.Sprintf("%s: %s: %v", e.Format, e.Code, e.Err)
}

// Unwrap returns both the code and the cause so either matches errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Code}
	}

	return []error{e.Code, e.Err}
}

// CodeOf returns the code carried by err: Success for nil, Unknown for an
// error that carries no code.
func CodeOf(err error) Code {
	if err == nil {
		return Success
	}

	var code Code
	if errors.As(err, &code) {
		return code
	}

	return Unknown
}
