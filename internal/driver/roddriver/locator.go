package roddriver

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/rod/lib/utils"

	"github.com/devbydaniel/a11yverify/internal/driver"
)

// focusProbe returns "" when the element has focus, otherwise a short
// description of whatever does.
const focusProbe = `() => {
	if (this === document.activeElement) return "";
	const a = document.activeElement;
	if (!a || a === document.body) return "nothing focused";
	const cls = typeof a.className === "string" && a.className.trim()
		? "." + a.className.trim().split(/\s+/).join(".")
		: "";
	return "focus on <" + a.tagName.toLowerCase() + cls + ">";
}`

// Locator is a lazy role or selector query. Nothing is cached between calls.
type Locator struct {
	page *rod.Page
	poll time.Duration

	role, name string
	selector   string
}

func (l *Locator) String() string {
	if l.role != "" {
		return driver.RoleString(l.role, l.name)
	}
	return l.selector
}

// resolve returns the current matches without waiting for any.
func (l *Locator) resolve(ctx context.Context) ([]*rod.Element, error) {
	page := l.page.Context(ctx)
	if l.role == "" {
		return page.Elements(l.selector)
	}

	nodes, err := queryAXNodes(page, l.name, l.role)
	if err != nil {
		return nil, err
	}
	var els []*rod.Element
	for _, n := range nodes {
		if n.Ignored || n.BackendDOMNodeID == 0 {
			continue
		}
		el, err := page.ElementFromNode(&proto.DOMNode{BackendNodeID: n.BackendDOMNodeID})
		if err != nil {
			return nil, err
		}
		els = append(els, el)
	}
	return els, nil
}

// check inspects the current matches. It reports whether the condition
// holds and, when it does not, what was seen instead.
type check func(els []*rod.Element) (ok bool, observed string, err error)

// waitFor re-resolves the locator and runs fn until it holds or ctx ends.
// Errors from a single attempt count as "not yet": the page may be
// re-rendering underneath us.
func (l *Locator) waitFor(ctx context.Context, condition string, fn check) error {
	var observed string
	sleeper := utils.BackoffSleeper(l.poll, 8*l.poll, func(d time.Duration) time.Duration { return d * 2 })

	err := utils.Retry(ctx, sleeper, func() (bool, error) {
		els, err := l.resolve(ctx)
		if err != nil {
			observed = err.Error()
			return false, nil
		}
		ok, obs, err := fn(els)
		switch {
		case err != nil:
			observed = err.Error()
		case !ok:
			observed = obs
		}
		return ok && err == nil, nil
	})
	if err != nil {
		return &driver.ConditionError{
			Locator:   l.String(),
			Condition: condition,
			Observed:  observed,
			Err:       err,
		}
	}
	return nil
}

func (l *Locator) first(ctx context.Context) (*rod.Element, error) {
	var el *rod.Element
	err := l.waitFor(ctx, "element to exist", func(els []*rod.Element) (bool, string, error) {
		if len(els) == 0 {
			return false, driver.ErrNotFound.Error(), nil
		}
		el = els[0]
		return true, "", nil
	})
	return el, err
}

func (l *Locator) Click(ctx context.Context) error {
	el, err := l.first(ctx)
	if err != nil {
		return err
	}
	if err := el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click %s: %w", l, err)
	}
	return nil
}

func (l *Locator) WaitVisible(ctx context.Context) error {
	return l.waitFor(ctx, "visible", func(els []*rod.Element) (bool, string, error) {
		if len(els) == 0 {
			return false, driver.ErrNotFound.Error(), nil
		}
		visible, err := els[0].Visible()
		if err != nil {
			return false, "", err
		}
		return visible, "hidden", nil
	})
}

func (l *Locator) WaitFocused(ctx context.Context) error {
	return l.waitFor(ctx, "focused", func(els []*rod.Element) (bool, string, error) {
		if len(els) == 0 {
			return false, driver.ErrNotFound.Error(), nil
		}
		res, err := els[0].Eval(focusProbe)
		if err != nil {
			return false, "", err
		}
		other := res.Value.Str()
		return other == "", other, nil
	})
}

func (l *Locator) WaitAttribute(ctx context.Context, name, value string) error {
	condition := fmt.Sprintf("%s=%q", name, value)
	return l.waitFor(ctx, condition, func(els []*rod.Element) (bool, string, error) {
		if len(els) == 0 {
			return false, driver.ErrNotFound.Error(), nil
		}
		got, err := els[0].Attribute(name)
		if err != nil {
			return false, "", err
		}
		if got == nil {
			return false, name + " absent", nil
		}
		return *got == value, fmt.Sprintf("%s=%q", name, *got), nil
	})
}

func (l *Locator) WaitCount(ctx context.Context, n int) error {
	return l.waitFor(ctx, fmt.Sprintf("%d matches", n), func(els []*rod.Element) (bool, string, error) {
		return len(els) == n, fmt.Sprintf("%d matches", len(els)), nil
	})
}

func (l *Locator) Values(ctx context.Context) ([]string, error) {
	els, err := l.resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", l, err)
	}
	values := make([]string, 0, len(els))
	for _, el := range els {
		v, err := el.Property("value")
		if err != nil {
			return nil, fmt.Errorf("read value of %s: %w", l, err)
		}
		values = append(values, v.Str())
	}
	return values, nil
}

var _ driver.Locator = (*Locator)(nil)
