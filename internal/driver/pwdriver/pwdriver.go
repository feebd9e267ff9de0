// Package pwdriver implements the driver capability set with playwright-go.
// Waits are Playwright's own web-first assertions; the context deadline is
// translated into their millisecond timeouts.
package pwdriver

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/devbydaniel/a11yverify/internal/driver"
)

const (
	viewportWidth  = 1280
	viewportHeight = 720

	// probeTimeoutMS bounds the follow-up reads that describe a failed wait.
	probeTimeoutMS = 250
)

// Driver starts the Playwright node driver and one Chromium per launch.
type Driver struct{}

// New returns a Driver. The Playwright driver and browsers must already be
// installed (see playwright.Install).
func New() *Driver {
	return &Driver{}
}

func (d *Driver) Name() string { return "playwright" }

func (d *Driver) Launch(ctx context.Context, opts driver.LaunchOptions) (driver.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Timeout:  timeoutMS(ctx),
	}
	if opts.Bin != "" {
		launchOpts.ExecutablePath = playwright.String(opts.Bin)
	}
	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	return &Browser{pw: pw, browser: browser}, nil
}

// Browser owns both the Chromium instance and the Playwright driver process.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
}

func (b *Browser) NewPage(ctx context.Context) (driver.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	page, err := b.browser.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: viewportWidth, Height: viewportHeight},
	})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &Page{page: page}, nil
}

func (b *Browser) Close() error {
	err := b.browser.Close()
	if stopErr := b.pw.Stop(); err == nil {
		err = stopErr
	}
	return err
}

// Page wraps a Playwright page.
type Page struct {
	page playwright.Page
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   timeoutMS(ctx),
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	return err
}

func (p *Page) GetByRole(role, name string) driver.Locator {
	loc := p.page.GetByRole(playwright.AriaRole(role), playwright.PageGetByRoleOptions{
		Name:  name,
		Exact: playwright.Bool(true),
	})
	return &Locator{page: p.page, loc: loc, desc: driver.RoleString(role, name)}
}

func (p *Page) Locator(selector string) driver.Locator {
	return &Locator{page: p.page, loc: p.page.Locator(selector), desc: selector}
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(fullPage),
		Timeout:  timeoutMS(ctx),
		Type:     playwright.ScreenshotTypePng,
	})
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

// timeoutMS converts the remaining time on ctx into a Playwright timeout.
// Playwright reads 0 as "no timeout", so an expired deadline maps to 1ms.
// Without a deadline Playwright's own default applies.
func timeoutMS(ctx context.Context) *float64 {
	deadline, ok := ctx.Deadline()
	if !ok {
		return nil
	}
	ms := float64(time.Until(deadline).Milliseconds())
	if ms < 1 {
		ms = 1
	}
	return playwright.Float(ms)
}

var (
	_ driver.Driver  = (*Driver)(nil)
	_ driver.Browser = (*Browser)(nil)
	_ driver.Page    = (*Page)(nil)
)
