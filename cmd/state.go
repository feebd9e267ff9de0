package cmd

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/devbydaniel/a11yverify/internal/config"
	"github.com/devbydaniel/a11yverify/internal/driver"
	"github.com/devbydaniel/a11yverify/internal/driver/pwdriver"
	"github.com/devbydaniel/a11yverify/internal/driver/roddriver"
)

// globalState holds everything the commands touch outside their own flags,
// so that tests can swap the process environment for buffers and fakes.
type globalState struct {
	ctx context.Context

	fs      afero.Fs
	args    []string
	envVars map[string]string

	stdOut, stdErr       *consoleWriter
	stdoutTTY, stderrTTY bool
	logger               *logrus.Logger

	newDriver func(name string) (driver.Driver, error)
}

func newGlobalState(ctx context.Context) *globalState {
	stdoutTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	stderrTTY := isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
	outMutex := &sync.Mutex{}
	stdOut := &consoleWriter{colorable.NewColorableStdout(), stdoutTTY, outMutex}
	stdErr := &consoleWriter{colorable.NewColorableStderr(), stderrTTY, outMutex}

	return &globalState{
		ctx:       ctx,
		fs:        afero.NewOsFs(),
		args:      append(make([]string, 0, len(os.Args)), os.Args...),
		envVars:   buildEnvMap(os.Environ()),
		stdOut:    stdOut,
		stdErr:    stdErr,
		stdoutTTY: stdoutTTY,
		stderrTTY: stderrTTY,
		logger: &logrus.Logger{
			Out:       stdErr,
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
		newDriver: newDriver,
	}
}

func newDriver(name string) (driver.Driver, error) {
	switch name {
	case config.DriverRod:
		return roddriver.New(), nil
	case config.DriverPlaywright:
		return pwdriver.New(), nil
	}
	return nil, &config.ValidationError{Errors: []string{"unknown driver " + name}}
}

func buildEnvMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	return env
}

// A writer that syncs writes with a mutex and, if the output is a TTY, clears
// till the end of the line before newlines.
//
// Adapted from k6's ui/console writer (go.k6.io/k6, AGPL-3.0).
type consoleWriter struct {
	io.Writer
	isTTY bool
	mutex *sync.Mutex
}

func (w *consoleWriter) Write(p []byte) (n int, err error) {
	origLen := len(p)
	if w.isTTY {
		p = bytes.ReplaceAll(p, []byte{'\n'}, []byte{'\x1b', '[', '0', 'K', '\n'})
	}

	w.mutex.Lock()
	n, err = w.Writer.Write(p)
	w.mutex.Unlock()

	if err != nil && n < origLen {
		return n, err
	}
	return origLen, err
}
