package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
)

// consoleReporter prints one line per finished step.
type consoleReporter struct {
	w          io.Writer
	pass, fail *color.Color
}

func newConsoleReporter(w io.Writer, colorize bool) *consoleReporter {
	return &consoleReporter{
		w:    w,
		pass: newColor(colorize, color.FgGreen),
		fail: newColor(colorize, color.FgRed, color.Bold),
	}
}

func (r *consoleReporter) StepPassed(step string, took time.Duration) {
	fprintf(r.w, "%s %s %s\n", r.pass.Sprint("✓"), step, elapsed(took))
}

func (r *consoleReporter) StepFailed(step string, err error) {
	reason := strings.TrimPrefix(err.Error(), step+": ")
	fprintf(r.w, "%s %s: %s\n", r.fail.Sprint("✗"), step, reason)
}

func elapsed(d time.Duration) string {
	return fmt.Sprintf("(%s)", d.Round(time.Millisecond))
}

// newColor returns the requested color, forced on or off regardless of what
// fatih/color guessed from the process's own stdout.
func newColor(colorize bool, attributes ...color.Attribute) *color.Color {
	c := color.New(attributes...)
	if colorize {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}

// fprintf panics when there's an error writing to the supplied io.Writer.
func fprintf(w io.Writer, format string, a ...interface{}) (n int) {
	n, err := fmt.Fprintf(w, format, a...)
	if err != nil {
		panic(err.Error())
	}
	return n
}
