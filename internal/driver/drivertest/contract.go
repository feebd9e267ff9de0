// Package drivertest holds the behaviour every driver implementation must
// show against the fixture site. Driver packages call RunContract from their
// own tests.
package drivertest

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devbydaniel/a11yverify/internal/driver"
	"github.com/devbydaniel/a11yverify/internal/testsite"
)

const (
	episodeInputs = "#episode-list > .list-item > .row > input.inline-input"
	firstInput    = ".list-item:nth-child(1) input.inline-input"
	firstDelete   = ".list-item:nth-child(1) button[data-action='del']"
	lastFocused   = "#episode-list > .list-item:last-child > .row > input.inline-input:focus"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Launch starts a headless browser with d, skipping the test when none can
// be started on this machine. The browser is closed when the test ends.
func Launch(t *testing.T, d driver.Driver) driver.Browser {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	b, err := d.Launch(ctx, driver.LaunchOptions{Headless: true})
	if err != nil {
		t.Skipf("skipping %s driver tests: cannot launch browser: %v", d.Name(), err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// OpenPage serves v and opens it in a new page of b.
func OpenPage(t *testing.T, b driver.Browser, v testsite.Variant) driver.Page {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	page, err := b.NewPage(ctx)
	require.NoError(t, err)
	require.NoError(t, page.Navigate(ctx, testsite.Start(t, v)))
	return page
}

func withTimeout(t *testing.T, d time.Duration) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	t.Cleanup(cancel)
	return ctx
}

func openEpisodes(t *testing.T, page driver.Page) {
	t.Helper()

	ctx := withTimeout(t, 10*time.Second)
	require.NoError(t, page.GetByRole("button", "Episodes").Click(ctx))
}

func addEpisode(t *testing.T, page driver.Page) {
	t.Helper()

	ctx := withTimeout(t, 10*time.Second)
	require.NoError(t, page.GetByRole("button", "Add Episode").Click(ctx))
}

func requireConditionError(t *testing.T, err error) *driver.ConditionError {
	t.Helper()

	var cerr *driver.ConditionError
	require.Error(t, err)
	require.True(t, errors.As(err, &cerr), "want *driver.ConditionError, got %T: %v", err, err)
	return cerr
}

// RunContract checks d against the fixture site. Subtests share a single
// browser and open a fresh page each.
func RunContract(t *testing.T, d driver.Driver) {
	b := Launch(t, d)

	t.Run("role lookup is exact and lazy", func(t *testing.T) {
		page := OpenPage(t, b, testsite.Correct())

		require.NoError(t, page.GetByRole("button", "Episodes").WaitVisible(withTimeout(t, 5*time.Second)))

		// the locator is created while its pane is hidden and used after
		add := page.GetByRole("button", "Add Episode")
		requireConditionError(t, add.WaitVisible(withTimeout(t, 500*time.Millisecond)))

		// "Episode" is a substring of both button names and matches neither
		requireConditionError(t, page.GetByRole("button", "Episode").WaitVisible(withTimeout(t, 500*time.Millisecond)))

		openEpisodes(t, page)
		assert.NoError(t, add.WaitVisible(withTimeout(t, 5*time.Second)))
	})

	t.Run("hidden control is not visible", func(t *testing.T) {
		v := testsite.Correct()
		v.HideEpisodesTab = true
		page := OpenPage(t, b, v)

		err := page.GetByRole("button", "Episodes").WaitVisible(withTimeout(t, 500*time.Millisecond))
		cerr := requireConditionError(t, err)
		assert.Equal(t, "visible", cerr.Condition)
		assert.Equal(t, driver.RoleString("button", "Episodes"), cerr.Locator)
	})

	t.Run("add episode prepends and focuses", func(t *testing.T) {
		page := OpenPage(t, b, testsite.Correct())
		openEpisodes(t, page)

		inputs := page.Locator(episodeInputs)
		before, err := inputs.Values(withTimeout(t, 5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, []string{"Pilot"}, before)

		addEpisode(t, page)

		ctx := withTimeout(t, 5*time.Second)
		require.NoError(t, inputs.WaitCount(ctx, 2))
		after, err := inputs.Values(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"New Episode", "Pilot"}, after)

		assert.NoError(t, page.Locator(firstInput).WaitFocused(ctx))
		assert.NoError(t, page.Locator(firstDelete).WaitAttribute(ctx, "aria-label", "Delete Episode"))
	})

	t.Run("delayed render is waited for", func(t *testing.T) {
		v := testsite.Correct()
		v.RenderDelayMS = 300
		page := OpenPage(t, b, v)
		openEpisodes(t, page)
		addEpisode(t, page)

		ctx := withTimeout(t, 5*time.Second)
		assert.NoError(t, page.Locator(episodeInputs).WaitCount(ctx, 2))
		assert.NoError(t, page.Locator(firstInput).WaitFocused(ctx))
	})

	t.Run("append is observable", func(t *testing.T) {
		v := testsite.Correct()
		v.AppendNew = true
		page := OpenPage(t, b, v)
		openEpisodes(t, page)
		addEpisode(t, page)

		inputs := page.Locator(episodeInputs)
		ctx := withTimeout(t, 5*time.Second)
		require.NoError(t, inputs.WaitCount(ctx, 2))
		after, err := inputs.Values(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"Pilot", "New Episode"}, after)
	})

	t.Run("focus tells an append from a prepend", func(t *testing.T) {
		for _, appendNew := range []bool{false, true} {
			v := testsite.Correct()
			v.Seed = []string{"New Episode"}
			v.AppendNew = appendNew
			page := OpenPage(t, b, v)
			openEpisodes(t, page)
			addEpisode(t, page)

			ctx := withTimeout(t, 5*time.Second)
			require.NoError(t, page.Locator(episodeInputs).WaitCount(ctx, 2))
			newInput := firstInput
			if appendNew {
				newInput = "#episode-list > .list-item:last-child input.inline-input"
			}
			require.NoError(t, page.Locator(newInput).WaitFocused(ctx))
			focused, err := page.Locator(lastFocused).Values(ctx)
			require.NoError(t, err)
			if appendNew {
				assert.Equal(t, []string{"New Episode"}, focused)
			} else {
				assert.Empty(t, focused)
			}
		}
	})

	t.Run("focus elsewhere fails", func(t *testing.T) {
		v := testsite.Correct()
		v.NoFocus = true
		page := OpenPage(t, b, v)
		openEpisodes(t, page)
		addEpisode(t, page)

		err := page.Locator(firstInput).WaitFocused(withTimeout(t, time.Second))
		cerr := requireConditionError(t, err)
		assert.Equal(t, "focused", cerr.Condition)
		assert.Equal(t, firstInput, cerr.Locator)
	})

	t.Run("attribute mismatch reports the value seen", func(t *testing.T) {
		v := testsite.Correct()
		v.DeleteLabel = "Delete episode"
		page := OpenPage(t, b, v)
		openEpisodes(t, page)

		err := page.Locator(firstDelete).WaitAttribute(withTimeout(t, time.Second), "aria-label", "Delete Episode")
		cerr := requireConditionError(t, err)
		assert.Contains(t, cerr.Observed, `"Delete episode"`)
	})

	t.Run("absent attribute fails", func(t *testing.T) {
		v := testsite.Correct()
		v.OmitDeleteLabel = true
		page := OpenPage(t, b, v)
		openEpisodes(t, page)

		err := page.Locator(firstDelete).WaitAttribute(withTimeout(t, time.Second), "aria-label", "Delete Episode")
		requireConditionError(t, err)
	})

	t.Run("values of nothing is empty", func(t *testing.T) {
		v := testsite.Correct()
		v.Seed = nil
		page := OpenPage(t, b, v)

		values, err := page.Locator(episodeInputs).Values(withTimeout(t, 5*time.Second))
		require.NoError(t, err)
		assert.Empty(t, values)
	})

	t.Run("full page screenshot is a png", func(t *testing.T) {
		page := OpenPage(t, b, testsite.Correct())

		img, err := page.Screenshot(withTimeout(t, 10*time.Second), true)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(img, pngSignature), "screenshot is not a PNG")
	})

	t.Run("html is the live document", func(t *testing.T) {
		page := OpenPage(t, b, testsite.Correct())
		openEpisodes(t, page)

		html, err := page.HTML(withTimeout(t, 5*time.Second))
		require.NoError(t, err)
		assert.Contains(t, html, "<title>Script Studio</title>")
		assert.Contains(t, html, `value="Pilot"`)
	})

	t.Run("accessibility tree", func(t *testing.T) {
		page := OpenPage(t, b, testsite.Correct())
		dumper, ok := page.(driver.AXTreeDumper)
		if !ok {
			t.Skipf("%s pages do not expose the accessibility tree", d.Name())
		}

		nodes, err := dumper.AXTree(withTimeout(t, 10*time.Second), 0)
		require.NoError(t, err)
		require.NotEmpty(t, nodes)
		assert.Equal(t, 0, nodes[0].Depth)

		var roles []string
		for _, n := range nodes {
			if n.Name == "Episodes" {
				roles = append(roles, n.Role)
			}
		}
		assert.Equal(t, []string{"button"}, roles)
	})
}
