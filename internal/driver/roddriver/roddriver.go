// Package roddriver implements the driver capability set with go-rod, talking
// to a locally launched Chrome over the DevTools protocol.
package roddriver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/devbydaniel/a11yverify/internal/driver"
)

// Viewport used for every page; matches Playwright's default so both drivers
// produce comparable screenshots.
const (
	viewportWidth  = 1280
	viewportHeight = 720
)

// Driver launches Chrome through rod's launcher.
type Driver struct {
	// PollInterval is the first pause between condition checks. Pauses double
	// up to eight times this value.
	PollInterval time.Duration
}

// New returns a Driver with the default poll interval.
func New() *Driver {
	return &Driver{PollInterval: 50 * time.Millisecond}
}

func (d *Driver) Name() string { return "rod" }

// Launch starts a fresh browser with a throwaway profile. The launcher is not
// bound to ctx: a cancelled launch context must not kill a browser that
// outlives the launch step.
func (d *Driver) Launch(ctx context.Context, opts driver.LaunchOptions) (driver.Browser, error) {
	l := launcher.New().
		Set("no-sandbox").
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("password-store", "basic").
		Headless(opts.Headless).
		Leakless(false)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}

	type launched struct {
		url string
		err error
	}
	ch := make(chan launched, 1)
	go func() {
		u, err := l.Launch()
		ch <- launched{u, err}
	}()

	var controlURL string
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("start browser: %w", r.err)
		}
		controlURL = r.url
	case <-ctx.Done():
		go func() {
			<-ch
			l.Kill()
			l.Cleanup()
		}()
		return nil, fmt.Errorf("start browser: %w", ctx.Err())
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	return &Browser{
		launcher: l,
		browser:  browser,
		stealth:  opts.Stealth,
		poll:     d.pollInterval(),
	}, nil
}

func (d *Driver) pollInterval() time.Duration {
	if d.PollInterval <= 0 {
		return 50 * time.Millisecond
	}
	return d.PollInterval
}

// Browser is a connected Chrome process.
type Browser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	stealth  bool
	poll     time.Duration
}

func (b *Browser) NewPage(ctx context.Context) (driver.Page, error) {
	var (
		page *rod.Page
		err  error
	)
	if b.stealth {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	err = proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}.Call(page.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	return &Page{page: page, poll: b.poll}, nil
}

// Close shuts the browser down, killing the process if the polite close
// fails, and removes the temporary profile.
func (b *Browser) Close() error {
	err := b.browser.Close()
	if err != nil {
		b.launcher.Kill()
	}
	b.launcher.Cleanup()
	return err
}

// Page wraps a rod page. Every call rebinds the page to the caller's context.
type Page struct {
	page *rod.Page
	poll time.Duration
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx)
	if err := page.Navigate(url); err != nil {
		return err
	}
	return page.WaitLoad()
}

func (p *Page) GetByRole(role, name string) driver.Locator {
	return &Locator{page: p.page, poll: p.poll, role: role, name: name}
}

func (p *Page) Locator(selector string) driver.Locator {
	return &Locator{page: p.page, poll: p.poll, selector: selector}
}

func (p *Page) Screenshot(ctx context.Context, fullPage bool) ([]byte, error) {
	return p.page.Context(ctx).Screenshot(fullPage, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

var (
	_ driver.Driver       = (*Driver)(nil)
	_ driver.Browser      = (*Browser)(nil)
	_ driver.Page         = (*Page)(nil)
	_ driver.AXTreeDumper = (*Page)(nil)
)
