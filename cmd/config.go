package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/devbydaniel/a11yverify/internal/config"
	"github.com/devbydaniel/a11yverify/internal/errext"
	"github.com/devbydaniel/a11yverify/internal/errext/exitcodes"
)

// configFlagSet returns the flags that override config fields. Defaults are
// shown for the usage message only; a flag counts when it was changed.
func configFlagSet() *pflag.FlagSet {
	def := config.Default()

	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.SortFlags = false
	flags.String("url", def.URL, "page to verify")
	flags.StringP("output", "o", def.Output, "where the screenshot is written")
	flags.String("driver", def.Driver, "browser driver: rod or playwright")
	flags.Bool("headless", def.Headless, "run the browser without a window")
	flags.String("browser-bin", def.BrowserBin, "browser executable, instead of the driver's default")
	flags.Duration("timeout", def.Timeout, "how long each assertion waits for its condition")
	flags.Duration("action-timeout", def.ActionTimeout, "how long launch, navigation, clicks and the screenshot may take")
	flags.Bool("stealth", def.Stealth, "hide automation fingerprints (rod only)")
	flags.Bool("diagnostics", def.Diagnostics, "log a summary of the page when a check fails")
	return flags
}

// getConfig layers defaults, then VERIFY_* environment variables, then the
// flags the user set, and validates the result.
func getConfig(flags *pflag.FlagSet, env map[string]string) (config.Config, error) {
	conf, err := config.FromEnv(config.Default(), env)
	if err != nil {
		return conf, invalidConfig(fmt.Errorf("invalid environment: %w", err))
	}

	conf, err = applyFlags(conf, flags)
	if err != nil {
		return conf, invalidConfig(err)
	}

	if err := conf.Validate(); err != nil {
		return conf, invalidConfig(err)
	}
	return conf, nil
}

func applyFlags(conf config.Config, flags *pflag.FlagSet) (config.Config, error) {
	var err error
	setString := func(name string, dst *string) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetString(name)
		}
	}
	setBool := func(name string, dst *bool) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetBool(name)
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if err == nil && flags.Changed(name) {
			*dst, err = flags.GetDuration(name)
		}
	}

	setString("url", &conf.URL)
	setString("output", &conf.Output)
	setString("driver", &conf.Driver)
	setBool("headless", &conf.Headless)
	setString("browser-bin", &conf.BrowserBin)
	setDuration("timeout", &conf.Timeout)
	setDuration("action-timeout", &conf.ActionTimeout)
	setBool("stealth", &conf.Stealth)
	setBool("diagnostics", &conf.Diagnostics)
	return conf, err
}

func invalidConfig(err error) error {
	return errext.WithHint(
		errext.WithExitCodeIfNone(err, exitcodes.InvalidConfig),
		"see `a11yverify run --help` for the flags and VERIFY_* variables",
	)
}
