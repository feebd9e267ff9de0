// Package config holds the settings of a verification run. Values are layered:
// built-in defaults first, then VERIFY_* environment variables, then whatever
// command-line flags the user explicitly set (that last layer lives in cmd).
package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/mstoykov/envconfig"
)

// Supported browser drivers.
const (
	DriverRod        = "rod"
	DriverPlaywright = "playwright"
)

const (
	DefaultURL           = "http://localhost:8000/public/index.html"
	DefaultOutput        = "accessibility_verification.png"
	DefaultTimeout       = 5 * time.Second
	DefaultActionTimeout = 30 * time.Second
)

// Config holds all run configuration.
type Config struct {
	URL    string `envconfig:"VERIFY_URL"`
	Output string `envconfig:"VERIFY_OUTPUT"`

	// Browser
	Driver     string `envconfig:"VERIFY_DRIVER"`
	Headless   bool   `envconfig:"VERIFY_HEADLESS"`
	BrowserBin string `envconfig:"VERIFY_BROWSER_BIN"`
	Stealth    bool   `envconfig:"VERIFY_STEALTH"` // rod only

	// Timeout bounds every assertion wait. ActionTimeout bounds launch,
	// navigation, clicks and the screenshot.
	Timeout       time.Duration `envconfig:"VERIFY_TIMEOUT"`
	ActionTimeout time.Duration `envconfig:"VERIFY_ACTION_TIMEOUT"`

	Diagnostics bool `envconfig:"VERIFY_DIAGNOSTICS"`
}

// Default returns the configuration that reproduces the plain verification:
// headless rod against localhost:8000, 5s assertion waits.
func Default() Config {
	return Config{
		URL:           DefaultURL,
		Output:        DefaultOutput,
		Driver:        DriverRod,
		Headless:      true,
		Timeout:       DefaultTimeout,
		ActionTimeout: DefaultActionTimeout,
		Diagnostics:   true,
	}
}

// FromEnv overlays the VERIFY_* variables found in env on top of base.
// Variables that are not present leave the base value untouched.
func FromEnv(base Config, env map[string]string) (Config, error) {
	conf := base
	err := envconfig.Process("", &conf, func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	})
	if err != nil {
		return base, err
	}
	return conf, nil
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks c and reports every problem at once.
func (c Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.URL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Sprintf("url %q must be an absolute http(s) URL", c.URL))
	}

	switch {
	case strings.TrimSpace(c.Output) == "":
		errs = append(errs, "output path must not be empty")
	case !strings.EqualFold(filepath.Ext(c.Output), ".png"):
		errs = append(errs, fmt.Sprintf("output path %q must end in .png", c.Output))
	}

	switch c.Driver {
	case DriverRod:
	case DriverPlaywright:
		if c.Stealth {
			errs = append(errs, "stealth is only supported by the rod driver")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown driver %q (want %s or %s)", c.Driver, DriverRod, DriverPlaywright))
	}

	if c.Timeout <= 0 {
		errs = append(errs, "timeout must be positive")
	}
	if c.ActionTimeout <= 0 {
		errs = append(errs, "action timeout must be positive")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}
