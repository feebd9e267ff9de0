// Package verify runs the Episodes accessibility check against a live page:
// the Episodes tab is visible, "Add Episode" puts a focused input at the top
// of the list, and its delete button is labelled for screen readers.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/devbydaniel/a11yverify/internal/config"
	"github.com/devbydaniel/a11yverify/internal/diagnose"
	"github.com/devbydaniel/a11yverify/internal/driver"
	"github.com/devbydaniel/a11yverify/internal/errext"
)

// Step names, in run order. They appear in logs, console output and errors.
const (
	StepLaunch          = "launch browser"
	StepNavigate        = "open page"
	StepEpisodesVisible = "episodes tab visible"
	StepOpenEpisodes    = "open episodes tab"
	StepAddEpisode      = "add episode"
	StepOrdering        = "new episode listed first"
	StepFocus           = "new episode input focused"
	StepDeleteLabel     = "delete button labelled"
	StepScreenshot      = "save screenshot"
)

// What the page is checked for.
const (
	RoleButton     = "button"
	EpisodesName   = "Episodes"
	AddEpisodeName = "Add Episode"
	DeleteLabel    = "Delete Episode"

	EpisodeInputsSelector = "#episode-list > .list-item > .row > input.inline-input"
	FirstInputSelector    = ".list-item:nth-child(1) input.inline-input"
	FirstDeleteSelector   = ".list-item:nth-child(1) button[data-action='del']"

	// LastInputFocusedSelector matches the last episode input only while it
	// has focus.
	LastInputFocusedSelector = "#episode-list > .list-item:last-child > .row > input.inline-input:focus"
)

const diagnosticsTimeout = 5 * time.Second

// Reporter is told about every step as it finishes.
type Reporter interface {
	StepPassed(step string, took time.Duration)
	StepFailed(step string, err error)
}

type nopReporter struct{}

func (nopReporter) StepPassed(string, time.Duration) {}
func (nopReporter) StepFailed(string, error)         {}

// Runner performs one verification per Run call.
type Runner struct {
	conf     config.Config
	driver   driver.Driver
	fs       afero.Fs
	logger   logrus.FieldLogger
	reporter Reporter
}

// Option customizes a Runner.
type Option func(*Runner)

// WithFs sets the filesystem the screenshot is written to.
func WithFs(fs afero.Fs) Option {
	return func(r *Runner) { r.fs = fs }
}

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Runner) { r.logger = logger }
}

// WithReporter sets the step reporter.
func WithReporter(rep Reporter) Option {
	return func(r *Runner) { r.reporter = rep }
}

// New returns a Runner for conf using d. Without options it writes to the OS
// filesystem, logs nowhere and reports nothing.
func New(conf config.Config, d driver.Driver, opts ...Option) *Runner {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	r := &Runner{
		conf:     conf,
		driver:   d,
		fs:       afero.NewOsFs(),
		logger:   discard,
		reporter: nopReporter{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run performs the verification once. It returns the first failure as one of
// *LaunchError, *NavigationError, *AssertionError or *ArtifactError. The
// browser is closed before Run returns, whatever the outcome.
func (r *Runner) Run(ctx context.Context) error {
	log := r.logger.WithField("run_id", uuid.NewString())
	log.WithFields(logrus.Fields{
		"url":    r.conf.URL,
		"driver": r.driver.Name(),
		"output": r.conf.Output,
	}).Info("Starting verification")

	start := time.Now()
	if err := r.run(ctx, log); err != nil {
		return err
	}
	log.WithField("duration", time.Since(start)).Info("Verification passed")
	return nil
}

func (r *Runner) run(ctx context.Context, log logrus.FieldLogger) error {
	var browser driver.Browser
	err := r.step(ctx, log, StepLaunch, r.conf.ActionTimeout, func(ctx context.Context) error {
		b, err := r.driver.Launch(ctx, driver.LaunchOptions{
			Headless: r.conf.Headless,
			Bin:      r.conf.BrowserBin,
			Stealth:  r.conf.Stealth,
		})
		if err != nil {
			return &LaunchError{Driver: r.driver.Name(), Err: err}
		}
		browser = b
		return nil
	})
	if err != nil {
		r.logFailure(ctx, log, nil, err)
		return err
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.WithError(err).Warn("Failed to close browser")
			return
		}
		log.Debug("Browser closed")
	}()

	var page driver.Page
	err = r.step(ctx, log, StepNavigate, r.conf.ActionTimeout, func(ctx context.Context) error {
		p, err := browser.NewPage(ctx)
		if err != nil {
			return &NavigationError{URL: r.conf.URL, Err: err}
		}
		page = p
		if err := p.Navigate(ctx, r.conf.URL); err != nil {
			return &NavigationError{URL: r.conf.URL, Err: err}
		}
		return nil
	})
	if err == nil {
		err = r.check(ctx, log, page)
	}
	if err != nil {
		r.logFailure(ctx, log, page, err)
	}
	return err
}

// check runs the page steps in order and stops at the first failure.
func (r *Runner) check(ctx context.Context, log logrus.FieldLogger, page driver.Page) error {
	episodes := page.GetByRole(RoleButton, EpisodesName)
	add := page.GetByRole(RoleButton, AddEpisodeName)
	inputs := page.Locator(EpisodeInputsSelector)
	firstInput := page.Locator(FirstInputSelector)
	firstDelete := page.Locator(FirstDeleteSelector)
	lastFocused := page.Locator(LastInputFocusedSelector)

	var before []string
	steps := []struct {
		name    string
		timeout time.Duration
		fn      func(ctx context.Context) error
	}{
		{StepEpisodesVisible, r.conf.Timeout, func(ctx context.Context) error {
			if err := episodes.WaitVisible(ctx); err != nil {
				return assertionFailed(Visibility, StepEpisodesVisible, episodes, "visible", err)
			}
			return nil
		}},
		{StepOpenEpisodes, r.conf.ActionTimeout, func(ctx context.Context) error {
			if err := episodes.Click(ctx); err != nil {
				return assertionFailed(Visibility, StepOpenEpisodes, episodes, "clickable", err)
			}
			return nil
		}},
		{StepAddEpisode, r.conf.ActionTimeout, func(ctx context.Context) error {
			var err error
			if before, err = inputs.Values(ctx); err != nil {
				return assertionFailed(Ordering, StepAddEpisode, inputs, "readable episode list", err)
			}
			if err := add.Click(ctx); err != nil {
				return assertionFailed(Visibility, StepAddEpisode, add, "clickable", err)
			}
			return nil
		}},
		{StepOrdering, r.conf.Timeout, func(ctx context.Context) error {
			return checkOrdering(ctx, inputs, lastFocused, before)
		}},
		{StepFocus, r.conf.Timeout, func(ctx context.Context) error {
			if err := firstInput.WaitFocused(ctx); err != nil {
				return assertionFailed(Focus, StepFocus, firstInput, "focused", err)
			}
			return nil
		}},
		{StepDeleteLabel, r.conf.Timeout, func(ctx context.Context) error {
			if err := firstDelete.WaitAttribute(ctx, "aria-label", DeleteLabel); err != nil {
				return assertionFailed(AttributeMismatch, StepDeleteLabel, firstDelete,
					fmt.Sprintf("aria-label=%q", DeleteLabel), err)
			}
			return nil
		}},
		{StepScreenshot, r.conf.ActionTimeout, func(ctx context.Context) error {
			img, err := page.Screenshot(ctx, true)
			if err != nil {
				return &ArtifactError{Path: r.conf.Output, Err: err}
			}
			if err := writeArtifact(r.fs, r.conf.Output, img); err != nil {
				return &ArtifactError{Path: r.conf.Output, Err: err}
			}
			log.WithField("bytes", len(img)).Debug("Screenshot written")
			return nil
		}},
	}

	for _, s := range steps {
		if err := r.step(ctx, log, s.name, s.timeout, s.fn); err != nil {
			return err
		}
	}
	return nil
}

// checkOrdering waits for the list to grow by one and requires the new item
// to be first, with the old items unchanged behind it. When the titles cannot
// tell front from back, focus on the last input means the item was appended.
func checkOrdering(ctx context.Context, inputs, lastFocused driver.Locator, before []string) error {
	want := len(before) + 1
	if err := inputs.WaitCount(ctx, want); err != nil {
		return assertionFailed(Ordering, StepOrdering, inputs, fmt.Sprintf("%d matches", want), err)
	}
	after, err := inputs.Values(ctx)
	if err != nil {
		return assertionFailed(Ordering, StepOrdering, inputs, "new item at index 0", err)
	}
	if ok, observed := checkPrepended(before, after); !ok {
		return &AssertionError{
			Kind:     Ordering,
			Step:     StepOrdering,
			Locator:  inputs.String(),
			Expected: "new item at index 0",
			Observed: observed,
		}
	}
	if !positionUnknown(before, after) {
		return nil
	}
	focused, err := lastFocused.Values(ctx)
	if err != nil {
		return assertionFailed(Ordering, StepOrdering, lastFocused, "new item at index 0", err)
	}
	if len(focused) > 0 {
		return &AssertionError{
			Kind:     Ordering,
			Step:     StepOrdering,
			Locator:  inputs.String(),
			Expected: "new item at index 0",
			Observed: fmt.Sprintf("new item appended at index %d instead of index 0 (titles all %q, focus on the last input)",
				len(before), after[0]),
		}
	}
	return nil
}

// step runs fn under its own timeout and reports the outcome.
func (r *Runner) step(
	ctx context.Context, log logrus.FieldLogger, name string, timeout time.Duration, fn func(context.Context) error,
) error {
	log = log.WithField("step", name)
	log.Debug("Step started")

	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	err := fn(stepCtx)
	took := time.Since(start)
	if err != nil {
		r.reporter.StepFailed(name, err)
		return err
	}
	log.WithField("duration", took).Info("Step passed")
	r.reporter.StepPassed(name, took)
	return nil
}

// logFailure logs err once with its step, kind and hint. With diagnostics on
// and a page open, a summary of the page is attached.
func (r *Runner) logFailure(ctx context.Context, log logrus.FieldLogger, page driver.Page, err error) {
	msg, fields := errext.Format(err)
	fields["step"] = FailedStep(err)
	var aerr *AssertionError
	if errors.As(err, &aerr) {
		fields["kind"] = string(aerr.Kind)
	}
	if page != nil && r.conf.Diagnostics {
		if snap := r.snapshot(ctx, log, page); snap != nil {
			fields["page_title"] = snap.Title
			fields["page_excerpt"] = snap.Excerpt
			fields["list_items"] = snap.Outline()
		}
	}
	log.WithFields(fields).Error(msg)
}

// snapshot never fails the run: its errors are logged at debug and dropped.
func (r *Runner) snapshot(ctx context.Context, log logrus.FieldLogger, page driver.Page) *diagnose.Snapshot {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), diagnosticsTimeout)
	defer cancel()

	html, err := page.HTML(ctx)
	if err != nil {
		log.WithError(err).Debug("Diagnostics: cannot read page HTML")
		return nil
	}
	snap, err := diagnose.Capture(ctx, html, r.conf.URL)
	if err != nil {
		log.WithError(err).Debug("Diagnostics: cannot summarise page")
		return nil
	}
	return snap
}
