// Package cmd implements the a11yverify command line.
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-colorable"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/devbydaniel/a11yverify/internal/errext"
	"github.com/devbydaniel/a11yverify/internal/errext/exitcodes"
	"github.com/devbydaniel/a11yverify/internal/verify"
)

// This is to keep all fields needed for the main/root command
type rootCommand struct {
	gs  *globalState
	cmd *cobra.Command

	logLevel  string
	logFormat string
	noColor   bool
	quiet     bool
}

func newRootCommand(gs *globalState) *rootCommand {
	c := &rootCommand{gs: gs}

	runCmd := getRunCmd(c)
	// the base command when called without any subcommands runs the
	// verification, with the same flags as `run`
	c.cmd = &cobra.Command{
		Use:   "a11yverify",
		Short: "verify the Episodes panel of Script Studio is accessible",
		Long: `a11yverify drives a headless browser through the Episodes panel: the tab is
visible, "Add Episode" puts a focused input at the top of the list, and its
delete button is labelled "Delete Episode". A full-page screenshot is saved
when every check passes.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.persistentPreRunE,
		RunE:              runCmd.RunE,
	}
	c.cmd.Flags().AddFlagSet(configFlagSet())
	c.cmd.PersistentFlags().AddFlagSet(c.rootCmdPersistentFlagSet())
	c.cmd.SetArgs(gs.args[1:])
	c.cmd.SetOut(gs.stdOut)
	c.cmd.SetErr(gs.stdErr)

	c.cmd.AddCommand(
		runCmd,
		getInspectCmd(c),
		getServeCmd(c),
		getVersionCmd(c),
	)
	return c
}

func (c *rootCommand) rootCmdPersistentFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.StringVar(&c.logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flags.StringVar(&c.logFormat, "log-format", "text", "log output format: text or json")
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	flags.BoolVarP(&c.quiet, "quiet", "q", false, "do not print step results")
	return flags
}

func (c *rootCommand) persistentPreRunE(_ *cobra.Command, _ []string) error {
	if c.noColor {
		c.gs.stdOut.Writer = colorable.NewNonColorable(c.gs.stdOut.Writer)
		c.gs.stdErr.Writer = colorable.NewNonColorable(c.gs.stdErr.Writer)
	}
	return c.setupLogger()
}

func (c *rootCommand) setupLogger() error {
	level, err := logrus.ParseLevel(c.logLevel)
	if err != nil {
		return invalidConfig(err)
	}
	logger := c.gs.logger
	logger.SetLevel(level)
	logger.SetOutput(c.gs.stdErr)

	switch c.logFormat {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{ForceColors: c.gs.stderrTTY && !c.noColor, DisableColors: c.noColor})
	default:
		return invalidConfig(fmt.Errorf("unsupported log format %q", c.logFormat))
	}
	logger.WithField("format", c.logFormat).Debug("Logger configured")
	return nil
}

// colorize reports whether step results get colors.
func (c *rootCommand) colorize() bool {
	return c.gs.stdoutTTY && !c.noColor
}

// stepOutput is where step results go; nowhere with --quiet.
func (c *rootCommand) stepOutput() io.Writer {
	if c.quiet {
		return io.Discard
	}
	return c.gs.stdOut
}

// execute runs the command line and returns the process exit code. Errors
// raised by a verification run were already logged by the runner.
func (c *rootCommand) execute() exitcodes.ExitCode {
	err := c.cmd.ExecuteContext(c.gs.ctx)
	if err == nil {
		return 0
	}
	if verify.FailedStep(err) == "" {
		msg, fields := errext.Format(err)
		c.gs.logger.WithFields(fields).Error(msg)
	}
	return errext.ExitCodeOf(err)
}

// Execute adds all child commands to the root command and runs it. This is
// called by main.main(); it does not return.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := newRootCommand(newGlobalState(ctx)).execute()
	stop()
	os.Exit(int(code))
}
