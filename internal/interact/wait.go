package interact

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// PollInterval is how often WaitFor re-evaluates its condition
const PollInterval = 100 * time.Millisecond

// WaitCondition is something WaitFor can wait on: an element becoming
// visible, or a JS predicate becoming truthy
type WaitCondition struct {
	desc     string
	selector string
	expr     string
}

// Selector waits for the first element matching sel to be present and visible
func Selector(sel string) WaitCondition {
	return WaitCondition{
		desc:     "visible " + sel,
		selector: sel,
		expr:     fmt.Sprintf(`(() => { const el = document.querySelector(%s); return !!el && (%s)(el); })()`, quote(sel), visibleJS),
	}
}

// Hidden waits for sel to match nothing, or only an element that is not rendered
func Hidden(sel string) WaitCondition {
	return WaitCondition{
		desc:     "hidden " + sel,
		selector: sel,
		expr:     fmt.Sprintf(`(() => { const el = document.querySelector(%s); return !el || !(%s)(el); })()`, quote(sel), visibleJS),
	}
}

// Condition waits for a JS predicate. js may be an expression or a function
// expression taking no arguments. A predicate that throws counts as false.
func Condition(js string) WaitCondition {
	return WaitCondition{
		desc: abbreviate(js, 80),
		expr: fmt.Sprintf(`(() => {
  try {
    const __c = (%s);
    return !!(typeof __c === 'function' ? __c() : __c);
  } catch (e) {
    return false;
  }
})()`, js),
	}
}

// String describes the condition for logs and assertion text
func (c WaitCondition) String() string {
	return c.desc
}

// WaitFor blocks until cond holds. With timeout 0 the condition is checked
// exactly once and a false result fails immediately; otherwise it is polled
// every PollInterval until timeout passes. Both failures are Timeout errors.
func (p *Page) WaitFor(ctx context.Context, cond WaitCondition, timeout time.Duration) error {
	start := time.Now()

	var ok bool
	var err error
	if timeout <= 0 {
		err = p.run(ctx, p.timeout, chromedp.Evaluate(cond.expr, &ok))
	} else {
		err = p.run(ctx, timeout+time.Second, chromedp.Poll(cond.expr, &ok,
			chromedp.WithPollingTimeout(timeout),
			chromedp.WithPollingInterval(PollInterval),
		))
	}

	if err != nil {
		return classify("wait", cond.selector, withDetail(err, cond, timeout))
	}
	if !ok {
		return &Error{
			Kind:     KindTimeout,
			Op:       "wait",
			Selector: cond.selector,
			Detail:   fmt.Sprintf("%s not met within %s", cond.desc, timeout),
		}
	}

	p.logger.Trace().Str("condition", cond.desc).Dur("waited", time.Since(start)).Msg("Condition met")
	return nil
}

// WaitHidden blocks until selector is absent or not rendered
func (p *Page) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	return p.WaitFor(ctx, Hidden(selector), timeout)
}

func withDetail(err error, cond WaitCondition, timeout time.Duration) error {
	return fmt.Errorf("%s not met within %s: %w", cond.desc, timeout, err)
}
