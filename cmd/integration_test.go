package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbydaniel/a11yverify/internal/config"
	"github.com/devbydaniel/a11yverify/internal/driver"
	"github.com/devbydaniel/a11yverify/internal/errext/exitcodes"
	"github.com/devbydaniel/a11yverify/internal/testsite"
)

// requireBrowser skips unless name can launch a browser here.
func requireBrowser(t *testing.T, name string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping browser tests in short mode")
	}
	d, err := newDriver(name)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	b, err := d.Launch(ctx, driver.LaunchOptions{Headless: true})
	if err != nil {
		t.Skipf("skipping %s integration tests: %v", name, err)
	}
	_ = b.Close()
}

// runAgainst verifies the page v with a real browser and returns the exit
// code and the screenshot path.
func runAgainst(t *testing.T, drv string, v testsite.Variant, extra ...string) (exitcodes.ExitCode, string, *globalTestState) {
	t.Helper()

	out := filepath.Join(t.TempDir(), config.DefaultOutput)
	args := append([]string{
		"run", "--no-color",
		"--driver", drv,
		"--url", testsite.Start(t, v),
		"--output", out,
		"--timeout", "2s",
	}, extra...)

	ts := newGlobalTestState(t, args...)
	ts.fs = afero.NewOsFs()
	ts.newDriver = newDriver
	return ts.execute(), out, ts
}

func testIntegration(t *testing.T, drv string) {
	requireBrowser(t, drv)

	t.Run("correct page passes", func(t *testing.T) {
		t.Parallel()

		code, out, ts := runAgainst(t, drv, testsite.Correct())
		require.Equal(t, exitcodes.ExitCode(0), code, ts.stdErr.String())

		img, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG\r\n\x1a\n")))
	})

	t.Run("hidden episodes tab", func(t *testing.T) {
		t.Parallel()

		v := testsite.Correct()
		v.HideEpisodesTab = true
		code, out, ts := runAgainst(t, drv, v)
		assert.Equal(t, exitcodes.AssertionFailed, code)
		assert.Contains(t, ts.stdErr.String(), "kind=visibility")
		_, err := os.Stat(out)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("appended episode", func(t *testing.T) {
		t.Parallel()

		v := testsite.Correct()
		v.AppendNew = true
		code, _, ts := runAgainst(t, drv, v)
		assert.Equal(t, exitcodes.AssertionFailed, code)
		assert.Contains(t, ts.stdErr.String(), "kind=ordering")
		assert.Contains(t, ts.stdOut.String(), "appended")
	})

	t.Run("appended episode with the default title", func(t *testing.T) {
		t.Parallel()

		v := testsite.Correct()
		v.Seed = []string{"New Episode"}
		v.AppendNew = true
		code, _, ts := runAgainst(t, drv, v)
		assert.Equal(t, exitcodes.AssertionFailed, code)
		assert.Contains(t, ts.stdErr.String(), "kind=ordering")
		assert.Contains(t, ts.stdOut.String(), "focus on the last input")
	})

	t.Run("unfocused input", func(t *testing.T) {
		t.Parallel()

		v := testsite.Correct()
		v.NoFocus = true
		code, _, ts := runAgainst(t, drv, v)
		assert.Equal(t, exitcodes.AssertionFailed, code)
		assert.Contains(t, ts.stdErr.String(), "kind=focus")
	})

	t.Run("wrong delete label", func(t *testing.T) {
		t.Parallel()

		v := testsite.Correct()
		v.DeleteLabel = "Delete"
		code, _, ts := runAgainst(t, drv, v)
		assert.Equal(t, exitcodes.AssertionFailed, code)
		assert.Contains(t, ts.stdErr.String(), `kind="attribute mismatch"`)
		assert.Contains(t, ts.stdErr.String(), "list_items=")
	})

	t.Run("unreachable page", func(t *testing.T) {
		t.Parallel()

		ts := newGlobalTestState(t, "run", "--driver", drv, "--url", "http://127.0.0.1:1/public/index.html",
			"--output", filepath.Join(t.TempDir(), "x.png"), "--action-timeout", "10s")
		ts.fs = afero.NewOsFs()
		ts.newDriver = newDriver
		assert.Equal(t, exitcodes.NavigationFailed, ts.execute())
	})

	t.Run("two runs overwrite the same file", func(t *testing.T) {
		t.Parallel()

		code, out, _ := runAgainst(t, drv, testsite.Correct())
		require.Equal(t, exitcodes.ExitCode(0), code)
		first, err := os.Stat(out)
		require.NoError(t, err)

		ts := newGlobalTestState(t, "run", "--driver", drv, "--url", testsite.Start(t, testsite.Correct()), "--output", out)
		ts.fs = afero.NewOsFs()
		ts.newDriver = newDriver
		require.Equal(t, exitcodes.ExitCode(0), ts.execute())
		second, err := os.Stat(out)
		require.NoError(t, err)
		assert.False(t, second.ModTime().Before(first.ModTime()))
	})
}

func TestIntegrationRod(t *testing.T) {
	testIntegration(t, config.DriverRod)
}

func TestIntegrationPlaywright(t *testing.T) {
	testIntegration(t, config.DriverPlaywright)
}

func TestInspectIntegration(t *testing.T) {
	requireBrowser(t, config.DriverRod)

	ts := newGlobalTestState(t, "inspect", "--url", testsite.Start(t, testsite.Correct()))
	ts.newDriver = newDriver
	require.Equal(t, exitcodes.ExitCode(0), ts.execute(), ts.stdErr.String())
	assert.Contains(t, ts.stdOut.String(), `[button] "Episodes"`)
}
