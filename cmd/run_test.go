package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/devbydaniel/a11yverify/internal/config"
	"github.com/devbydaniel/a11yverify/internal/driver"
	"github.com/devbydaniel/a11yverify/internal/errext/exitcodes"
	"github.com/devbydaniel/a11yverify/internal/verify"
)

var testPNG = append([]byte("\x89PNG\r\n\x1a\n"), "fake"...)

type mockSite struct {
	drv     *driver.MockDriver
	browser *driver.MockBrowser
	page    *driver.MockPage
	loc     *driver.MockLocator
	inputs  *driver.MockLocator
	del     *driver.MockLocator
}

// newMockSite returns a driver whose page passes every check. Tests override
// single expectations by registering theirs first.
func newMockSite(t *testing.T) *mockSite {
	t.Helper()

	ctrl := gomock.NewController(t)
	s := &mockSite{
		drv:     driver.NewMockDriver(ctrl),
		browser: driver.NewMockBrowser(ctrl),
		page:    driver.NewMockPage(ctrl),
		loc:     driver.NewMockLocator(ctrl),
		inputs:  driver.NewMockLocator(ctrl),
		del:     driver.NewMockLocator(ctrl),
	}
	return s
}

func (s *mockSite) passing() *mockSite {
	s.drv.EXPECT().Name().Return("mock").AnyTimes()
	s.drv.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(s.browser, nil).AnyTimes()
	s.browser.EXPECT().NewPage(gomock.Any()).Return(s.page, nil).AnyTimes()
	s.browser.EXPECT().Close().Return(nil).AnyTimes()
	s.page.EXPECT().Navigate(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	s.page.EXPECT().GetByRole(gomock.Any(), gomock.Any()).Return(s.loc).AnyTimes()
	s.page.EXPECT().Locator(verify.EpisodeInputsSelector).Return(s.inputs).AnyTimes()
	s.page.EXPECT().Locator(verify.FirstDeleteSelector).Return(s.del).AnyTimes()
	s.page.EXPECT().Locator(gomock.Any()).Return(s.loc).AnyTimes()
	s.page.EXPECT().Screenshot(gomock.Any(), true).Return(testPNG, nil).AnyTimes()
	s.page.EXPECT().HTML(gomock.Any()).Return("<html></html>", nil).AnyTimes()

	for _, l := range []*driver.MockLocator{s.loc, s.inputs, s.del} {
		l.EXPECT().String().Return("locator").AnyTimes()
		l.EXPECT().Click(gomock.Any()).Return(nil).AnyTimes()
		l.EXPECT().WaitVisible(gomock.Any()).Return(nil).AnyTimes()
		l.EXPECT().WaitFocused(gomock.Any()).Return(nil).AnyTimes()
		l.EXPECT().WaitCount(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
		l.EXPECT().WaitAttribute(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	}
	// each run reads the list before and after adding
	before := true
	s.inputs.EXPECT().Values(gomock.Any()).DoAndReturn(func(context.Context) ([]string, error) {
		defer func() { before = !before }()
		if before {
			return []string{"Pilot"}, nil
		}
		return []string{"New Episode", "Pilot"}, nil
	}).AnyTimes()
	return s
}

func jsonField(t *testing.T, data []byte, key string) string {
	t.Helper()

	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &m))
	return string(m[key])
}

func TestRunCmdPasses(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run", "--no-color", "-o", "shots/out.png")
	ts.useDriver(newMockSite(t).passing().drv)

	require.Equal(t, exitcodes.ExitCode(0), ts.execute())
	assert.Equal(t, []string{config.DriverRod}, ts.drivers)

	got, err := afero.ReadFile(ts.fs, "shots/out.png")
	require.NoError(t, err)
	assert.Equal(t, testPNG, got)

	out := ts.stdOut.String()
	for _, step := range []string{verify.StepEpisodesVisible, verify.StepFocus, verify.StepDeleteLabel, verify.StepScreenshot} {
		assert.Contains(t, out, "✓ "+step)
	}
	assert.NotContains(t, out, "\x1b[")
}

func TestRootCmdRunsVerification(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t)
	ts.useDriver(newMockSite(t).passing().drv)

	require.Equal(t, exitcodes.ExitCode(0), ts.execute())
	exists, err := afero.Exists(ts.fs, config.DefaultOutput)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunCmdQuiet(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run", "--quiet")
	ts.useDriver(newMockSite(t).passing().drv)

	require.Equal(t, exitcodes.ExitCode(0), ts.execute())
	assert.Empty(t, ts.stdOut.String())
}

func TestRunCmdColors(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run")
	ts.stdoutTTY = true
	ts.useDriver(newMockSite(t).passing().drv)

	require.Equal(t, exitcodes.ExitCode(0), ts.execute())
	assert.Contains(t, ts.stdOut.String(), "\x1b[32m✓\x1b[0m")
}

func TestRunCmdConfigLayering(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run", "--driver", "playwright")
	ts.envVars["VERIFY_OUTPUT"] = "from-env.png"
	ts.envVars["VERIFY_DRIVER"] = "rod"
	ts.useDriver(newMockSite(t).passing().drv)

	require.Equal(t, exitcodes.ExitCode(0), ts.execute())
	assert.Equal(t, []string{config.DriverPlaywright}, ts.drivers)
	exists, err := afero.Exists(ts.fs, "from-env.png")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestRunCmdInvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
		env  map[string]string
		want string
	}{
		{"bad output", []string{"run", "-o", "shot.jpg"}, nil, "must end in .png"},
		{"bad url", []string{"run", "--url", "localhost:8000"}, nil, "absolute http(s) URL"},
		{"bad driver", []string{"run", "--driver", "selenium"}, nil, "unknown driver"},
		{"stealth with playwright", []string{"run", "--driver", "playwright", "--stealth"}, nil, "stealth"},
		{"zero timeout", []string{"run", "--timeout", "0s"}, nil, "timeout must be positive"},
		{"bad env", []string{"run"}, map[string]string{"VERIFY_TIMEOUT": "soon"}, "invalid environment"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ts := newGlobalTestState(t, tc.args...)
			for k, v := range tc.env {
				ts.envVars[k] = v
			}
			assert.Equal(t, exitcodes.InvalidConfig, ts.execute())
			assert.Contains(t, ts.stdErr.String(), tc.want)
			assert.Contains(t, ts.stdErr.String(), "hint=")
		})
	}
}

func TestRunCmdAssertionFailure(t *testing.T) {
	t.Parallel()

	s := newMockSite(t)
	s.del.EXPECT().WaitAttribute(gomock.Any(), "aria-label", verify.DeleteLabel).Return(&driver.ConditionError{
		Locator:  verify.FirstDeleteSelector,
		Observed: `aria-label="Remove"`,
		Err:      errors.New("context deadline exceeded"),
	})
	s.passing()

	ts := newGlobalTestState(t, "run", "--no-color", "--timeout", "100ms")
	ts.useDriver(s.drv)

	assert.Equal(t, exitcodes.AssertionFailed, ts.execute())
	assert.Contains(t, ts.stdOut.String(), "✗ "+verify.StepDeleteLabel+": attribute mismatch assertion failed")
	assert.NotContains(t, ts.stdOut.String(), "✓ "+verify.StepScreenshot)

	// the runner logs the failure once; the root does not repeat it
	assert.Equal(t, 1, bytes.Count(ts.stdErr.Bytes(), []byte("level=error")))
	exists, err := afero.Exists(ts.fs, config.DefaultOutput)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunCmdLaunchFailure(t *testing.T) {
	t.Parallel()

	s := newMockSite(t)
	s.drv.EXPECT().Name().Return("mock").AnyTimes()
	s.drv.EXPECT().Launch(gomock.Any(), gomock.Any()).Return(nil, errors.New("no chrome"))

	ts := newGlobalTestState(t, "run", "--no-color")
	ts.useDriver(s.drv)

	assert.Equal(t, exitcodes.LaunchFailed, ts.execute())
	assert.Contains(t, ts.stdOut.String(), "✗ "+verify.StepLaunch)
	assert.Contains(t, ts.stdErr.String(), "browser-bin")
}

func TestRunCmdJSONLogs(t *testing.T) {
	t.Parallel()

	ts := newGlobalTestState(t, "run", "--log-format", "json", "--log-level", "debug", "--quiet")
	ts.useDriver(newMockSite(t).passing().drv)

	require.Equal(t, exitcodes.ExitCode(0), ts.execute())

	var runIDs []string
	sc := bufio.NewScanner(bytes.NewReader(ts.stdErr.Bytes()))
	for sc.Scan() {
		var entry map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &entry), sc.Text())
		if id, ok := entry["run_id"].(string); ok {
			runIDs = append(runIDs, id)
		}
		if entry["msg"] == "Step passed" {
			assert.Contains(t, entry, "step")
			assert.Contains(t, entry, "duration")
		}
	}
	require.NotEmpty(t, runIDs)
	for _, id := range runIDs {
		assert.Equal(t, runIDs[0], id)
	}
}
