package pwdriver

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/devbydaniel/a11yverify/internal/driver"
)

const activeElementProbe = `() => {
	const a = document.activeElement;
	if (!a || a === document.body) return "nothing focused";
	const cls = typeof a.className === "string" && a.className.trim()
		? "." + a.className.trim().split(/\s+/).join(".")
		: "";
	return "focus on <" + a.tagName.toLowerCase() + cls + ">";
}`

// Locator wraps a Playwright locator. Playwright locators are already lazy,
// so this only adds the timeout plumbing and failure descriptions.
type Locator struct {
	page playwright.Page
	loc  playwright.Locator
	desc string
}

func (l *Locator) String() string { return l.desc }

func (l *Locator) expect() playwright.LocatorAssertions {
	return playwright.NewPlaywrightAssertions().Locator(l.loc.First())
}

func (l *Locator) conditionError(condition, observed string, err error) error {
	return &driver.ConditionError{
		Locator:   l.desc,
		Condition: condition,
		Observed:  observed,
		Err:       err,
	}
}

// missing reports whether the locator currently matches nothing.
func (l *Locator) missing() bool {
	n, err := l.loc.Count()
	return err == nil && n == 0
}

func (l *Locator) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := l.loc.First().Click(playwright.LocatorClickOptions{Timeout: timeoutMS(ctx)})
	if err != nil {
		return fmt.Errorf("click %s: %w", l.desc, err)
	}
	return nil
}

func (l *Locator) WaitVisible(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return l.conditionError("visible", "", err)
	}
	err := l.expect().ToBeVisible(playwright.LocatorAssertionsToBeVisibleOptions{Timeout: timeoutMS(ctx)})
	if err == nil {
		return nil
	}
	observed := "hidden"
	if l.missing() {
		observed = driver.ErrNotFound.Error()
	}
	return l.conditionError("visible", observed, err)
}

func (l *Locator) WaitFocused(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return l.conditionError("focused", "", err)
	}
	err := l.expect().ToBeFocused(playwright.LocatorAssertionsToBeFocusedOptions{Timeout: timeoutMS(ctx)})
	if err == nil {
		return nil
	}
	var observed string
	if l.missing() {
		observed = driver.ErrNotFound.Error()
	} else if v, perr := l.page.Evaluate(activeElementProbe); perr == nil {
		observed, _ = v.(string)
	}
	return l.conditionError("focused", observed, err)
}

func (l *Locator) WaitAttribute(ctx context.Context, name, value string) error {
	condition := fmt.Sprintf("%s=%q", name, value)
	if err := ctx.Err(); err != nil {
		return l.conditionError(condition, "", err)
	}
	err := l.expect().ToHaveAttribute(name, value, playwright.LocatorAssertionsToHaveAttributeOptions{
		Timeout: timeoutMS(ctx),
	})
	if err == nil {
		return nil
	}
	var observed string
	if l.missing() {
		observed = driver.ErrNotFound.Error()
	} else {
		got, gerr := l.loc.First().GetAttribute(name, playwright.LocatorGetAttributeOptions{
			Timeout: playwright.Float(probeTimeoutMS),
		})
		switch {
		case gerr != nil:
		case got == "":
			// GetAttribute cannot tell an empty attribute from a missing one
			observed = fmt.Sprintf("%s empty or absent", name)
		default:
			observed = fmt.Sprintf("%s=%q", name, got)
		}
	}
	return l.conditionError(condition, observed, err)
}

func (l *Locator) WaitCount(ctx context.Context, n int) error {
	condition := fmt.Sprintf("%d matches", n)
	if err := ctx.Err(); err != nil {
		return l.conditionError(condition, "", err)
	}
	err := playwright.NewPlaywrightAssertions().Locator(l.loc).ToHaveCount(n, playwright.LocatorAssertionsToHaveCountOptions{
		Timeout: timeoutMS(ctx),
	})
	if err == nil {
		return nil
	}
	var observed string
	if got, cerr := l.loc.Count(); cerr == nil {
		observed = fmt.Sprintf("%d matches", got)
	}
	return l.conditionError(condition, observed, err)
}

func (l *Locator) Values(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := l.loc.EvaluateAll(`els => els.map(e => String(e.value ?? ""))`)
	if err != nil {
		return nil, fmt.Errorf("read values of %s: %w", l.desc, err)
	}
	if res == nil {
		return []string{}, nil
	}
	raw, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("read values of %s: unexpected result %T", l.desc, res)
	}
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		s, _ := v.(string)
		values = append(values, s)
	}
	return values, nil
}

var _ driver.Locator = (*Locator)(nil)
