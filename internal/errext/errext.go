// Package errext contains extensions for normal Go errors: an attached exit
// code and an attached human-readable hint.
//
// Adapted from k6's errext package (go.k6.io/k6/errext, AGPL-3.0).
package errext

import (
	"errors"

	"github.com/devbydaniel/a11yverify/internal/errext/exitcodes"
)

// HasExitCode is an error with an attached exit code.
type HasExitCode interface {
	error
	ExitCode() exitcodes.ExitCode
}

// HasHint is an error with an attached user hint, usually a suggestion on how
// the failure can be fixed.
type HasHint interface {
	error
	Hint() string
}

// WithExitCodeIfNone attaches exitCode to err unless something in its chain
// already carries one. A nil err stays nil.
func WithExitCodeIfNone(err error, exitCode exitcodes.ExitCode) error {
	if err == nil {
		return nil
	}
	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		return err
	}
	return withExitCode{err, exitCode}
}

type withExitCode struct {
	error
	exitCode exitcodes.ExitCode
}

func (we withExitCode) Unwrap() error {
	return we.error
}

func (we withExitCode) ExitCode() exitcodes.ExitCode {
	return we.exitCode
}

// WithHint attaches a hint to err. If err already had a hint the result reads
// "new hint (old hint)".
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return withHint{err, hint}
}

type withHint struct {
	error
	hint string
}

func (wh withHint) Unwrap() error {
	return wh.error
}

func (wh withHint) Hint() string {
	hint := wh.hint
	var old HasHint
	if errors.As(wh.error, &old) {
		hint = hint + " (" + old.Hint() + ")"
	}
	return hint
}

// ExitCodeOf returns the exit code carried by err, Generic when there is none
// and 0 for a nil error.
func ExitCodeOf(err error) exitcodes.ExitCode {
	if err == nil {
		return 0
	}
	var ecerr HasExitCode
	if errors.As(err, &ecerr) {
		return ecerr.ExitCode()
	}
	return exitcodes.Generic
}

// Format splits err into a message and a map of log fields. A hint, if any,
// becomes the "hint" field.
func Format(err error) (string, map[string]interface{}) {
	if err == nil {
		return "", nil
	}
	fields := make(map[string]interface{})
	var herr HasHint
	if errors.As(err, &herr) {
		fields["hint"] = herr.Hint()
	}
	return err.Error(), fields
}

var (
	_ HasExitCode = withExitCode{}
	_ HasHint     = withHint{}
)
