package verify

import (
	"errors"
	"fmt"
	"strings"

	"github.com/devbydaniel/a11yverify/internal/driver"
	"github.com/devbydaniel/a11yverify/internal/errext"
	"github.com/devbydaniel/a11yverify/internal/errext/exitcodes"
)

// Kind classifies an AssertionError.
type Kind string

const (
	Visibility        Kind = "visibility"
	Focus             Kind = "focus"
	AttributeMismatch Kind = "attribute mismatch"
	Ordering          Kind = "ordering"
)

// LaunchError means no browser could be started.
type LaunchError struct {
	Driver string
	Err    error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s: %s driver: %v", StepLaunch, e.Driver, e.Err)
}

func (e *LaunchError) Unwrap() error                { return e.Err }
func (e *LaunchError) ExitCode() exitcodes.ExitCode { return exitcodes.LaunchFailed }

func (e *LaunchError) Hint() string {
	return "is Chrome or Chromium installed? set VERIFY_BROWSER_BIN or --browser-bin to point at it"
}

// NavigationError means the page could not be opened or loaded.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("%s: %s: %v", StepNavigate, e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error                { return e.Err }
func (e *NavigationError) ExitCode() exitcodes.ExitCode { return exitcodes.NavigationFailed }

func (e *NavigationError) Hint() string {
	return "is the site being served? `a11yverify serve` serves a local directory on :8000"
}

// AssertionError means a check on the page did not hold in time.
type AssertionError struct {
	Kind     Kind
	Step     string
	Locator  string
	Expected string
	// Observed is the last state seen before giving up, when known.
	Observed string
	Err      error
}

func (e *AssertionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s assertion failed", e.Step, e.Kind)
	if e.Locator != "" {
		fmt.Fprintf(&b, " on %s", e.Locator)
	}
	fmt.Fprintf(&b, ": expected %s", e.Expected)
	switch {
	case e.Observed != "":
		fmt.Fprintf(&b, ", got %s", e.Observed)
	case e.Err != nil:
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *AssertionError) Unwrap() error                { return e.Err }
func (e *AssertionError) ExitCode() exitcodes.ExitCode { return exitcodes.AssertionFailed }

// ArtifactError means the screenshot could not be taken or saved.
type ArtifactError struct {
	Path string
	Err  error
}

func (e *ArtifactError) Error() string {
	return fmt.Sprintf("%s: %s: %v", StepScreenshot, e.Path, e.Err)
}

func (e *ArtifactError) Unwrap() error                { return e.Err }
func (e *ArtifactError) ExitCode() exitcodes.ExitCode { return exitcodes.ArtifactFailed }

// assertionFailed builds an AssertionError for a failed wait on loc, lifting
// the last observed state out of a driver.ConditionError.
func assertionFailed(kind Kind, step string, loc driver.Locator, expected string, err error) *AssertionError {
	aerr := &AssertionError{
		Kind:     kind,
		Step:     step,
		Locator:  loc.String(),
		Expected: expected,
		Err:      err,
	}
	var cerr *driver.ConditionError
	if errors.As(err, &cerr) {
		aerr.Observed = cerr.Observed
	}
	return aerr
}

// FailedStep returns the step err was raised by, or "" when err did not come
// from a run.
func FailedStep(err error) string {
	var (
		lerr *LaunchError
		nerr *NavigationError
		aerr *AssertionError
		ferr *ArtifactError
	)
	switch {
	case errors.As(err, &aerr):
		return aerr.Step
	case errors.As(err, &lerr):
		return StepLaunch
	case errors.As(err, &nerr):
		return StepNavigate
	case errors.As(err, &ferr):
		return StepScreenshot
	}
	return ""
}

var (
	_ errext.HasExitCode = (*LaunchError)(nil)
	_ errext.HasHint     = (*LaunchError)(nil)
	_ errext.HasExitCode = (*NavigationError)(nil)
	_ errext.HasHint     = (*NavigationError)(nil)
	_ errext.HasExitCode = (*AssertionError)(nil)
	_ errext.HasExitCode = (*ArtifactError)(nil)
)
