package interact

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// Runner executes chromedp actions against one tab. *browser.Session
// satisfies it.
type Runner interface {
	Run(ctx context.Context, actions ...chromedp.Action) error
}

// Page drives one tab through DOM-level helpers. Calls are sequential; a Page
// must not be shared between goroutines.
type Page struct {
	runner  Runner
	timeout time.Duration
	logger  arbor.ILogger
}

// NewPage wraps runner. actionTimeout bounds each individual action.
func NewPage(runner Runner, actionTimeout time.Duration, logger arbor.ILogger) *Page {
	if actionTimeout <= 0 {
		actionTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Page{runner: runner, timeout: actionTimeout, logger: logger}
}

// run executes actions bounded by timeout
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.runner.Run(runCtx, actions...)
}

func awaitPromise(p *runtime.EvaluateParams) *runtime.EvaluateParams {
	return p.WithAwaitPromise(true)
}

// evalJSON evaluates an expression that resolves to a JSON string and decodes
// it into out. Decoding happens here rather than in chromedp so struct tags
// behave the same for every caller.
func (p *Page) evalJSON(ctx context.Context, timeout time.Duration, expr string, out interface{}) error {
	var raw string
	if err := p.run(ctx, timeout, chromedp.Evaluate(expr, &raw, awaitPromise)); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("failed to decode script result: %w", err)
	}
	return nil
}

// Evaluate runs script in the page and decodes its result into out (may be
// nil). script is a function expression called with args, or a plain
// expression when it does not evaluate to a function. Promises are awaited.
func (p *Page) Evaluate(ctx context.Context, script string, args []interface{}, out interface{}) error {
	expr, err := callExpression(script, args)
	if err != nil {
		return &Error{Kind: KindScript, Op: "evaluate", Err: err}
	}

	p.logger.Trace().Str("script", abbreviate(script, 120)).Msg("Evaluate")

	if err := p.evalJSON(ctx, p.timeout, expr, out); err != nil {
		return classify("evaluate", "", err)
	}
	return nil
}

// callExpression builds an expression that invokes script with JSON-encoded
// args and resolves to the JSON-encoded result
func callExpression(script string, args []interface{}) (string, error) {
	encoded := make([]string, 0, len(args))
	for i, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return "", fmt.Errorf("argument %d is not JSON encodable: %w", i, err)
		}
		encoded = append(encoded, string(b))
	}

	return fmt.Sprintf(`(async () => {
  const __fn = (%s);
  const __v = typeof __fn === 'function' ? await __fn(%s) : __fn;
  return JSON.stringify(__v === undefined ? null : __v);
})()`, strings.TrimSpace(script), strings.Join(encoded, ", ")), nil
}

// quote renders s as a JavaScript string literal
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func abbreviate(s string, n int) string {
	return truncate(strings.Join(strings.Fields(s), " "), n)
}
