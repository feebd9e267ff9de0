// Package driver defines the capability set a verification needs from a
// browser-automation backend: launch, navigate, locate by role or selector,
// wait for visibility, focus or an attribute value, click, screenshot, close.
//
// Every blocking method takes a context. Its deadline is the implicit wait:
// Wait* methods poll until their condition holds or the context is done.
//
//go:generate mockgen -destination=mock_driver.go -package=driver . Driver,Browser,Page,Locator
package driver

import (
	"context"
	"errors"
	"fmt"
)

// LaunchOptions configure a browser launch.
type LaunchOptions struct {
	Headless bool
	// Bin overrides the browser executable. Empty means the driver default.
	Bin string
	// Stealth hides the usual automation fingerprints, where supported.
	Stealth bool
}

// Driver starts browsers.
type Driver interface {
	Name() string
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
}

// Browser is a running browser instance. It is owned by whoever launched it
// and must be closed on every path.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is a single document inside a Browser.
type Page interface {
	Navigate(ctx context.Context, url string) error
	// GetByRole locates elements by accessible role and exact accessible name.
	GetByRole(role, name string) Locator
	// Locator locates elements by CSS selector.
	Locator(selector string) Locator
	Screenshot(ctx context.Context, fullPage bool) ([]byte, error)
	// HTML returns the serialized document, for diagnostics.
	HTML(ctx context.Context) (string, error)
}

// Locator is a lazy reference to the elements matching a query. Nothing is
// resolved until a method runs, and every method resolves again. Single
// element methods act on the first match.
type Locator interface {
	fmt.Stringer

	Click(ctx context.Context) error
	WaitVisible(ctx context.Context) error
	WaitFocused(ctx context.Context) error
	WaitAttribute(ctx context.Context, name, value string) error
	// WaitCount waits until exactly n elements match.
	WaitCount(ctx context.Context, n int) error
	// Values returns the value property of every match in document order.
	Values(ctx context.Context) ([]string, error)
}

// ErrNotFound is returned when a locator resolves to nothing.
var ErrNotFound = errors.New("no element matches")

// ConditionError reports a wait whose condition never held before the
// context ended. Observed is the last state seen, when one could be read.
type ConditionError struct {
	Locator   string
	Condition string
	Observed  string
	Err       error
}

func (e *ConditionError) Error() string {
	msg := fmt.Sprintf("%s: timed out waiting for %s", e.Locator, e.Condition)
	if e.Observed != "" {
		msg += " (last observed: " + e.Observed + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConditionError) Unwrap() error {
	return e.Err
}

// RoleString renders a role query the way locators print themselves.
func RoleString(role, name string) string {
	return fmt.Sprintf("role=%s[name=%q]", role, name)
}

// AXNode is one non-ignored node of a flattened accessibility tree.
type AXNode struct {
	Depth      int      `json:"depth"`
	Role       string   `json:"role"`
	Name       string   `json:"name,omitempty"`
	Properties []string `json:"properties,omitempty"`
}

// AXTreeDumper is implemented by pages that can expose their accessibility
// tree. A depth of 0 or less means the whole tree.
type AXTreeDumper interface {
	AXTree(ctx context.Context, depth int) ([]AXNode, error)
}
