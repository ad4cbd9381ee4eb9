package scenario

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ternarybob/barcheck/internal/interact"
	"github.com/ternarybob/barcheck/internal/models"
)

// Script runs a declarative scenario loaded from YAML
type Script struct {
	def    models.ScenarioDefinition
	source string
}

// NewScript wraps an already validated definition
func NewScript(def models.ScenarioDefinition, source string) *Script {
	return &Script{def: def, source: source}
}

func (s *Script) Name() string { return s.def.Name }

func (s *Script) Description() string {
	if s.def.Description != "" {
		return s.def.Description
	}
	return fmt.Sprintf("declarative scenario (%d steps)", len(s.def.Steps))
}

// Source returns the file the scenario was loaded from
func (s *Script) Source() string { return s.source }

// Definition returns the parsed definition
func (s *Script) Definition() models.ScenarioDefinition { return s.def }

// Run executes every step in order. The first interaction error stops the
// script; expectations are recorded and never stop it.
func (s *Script) Run(ctx context.Context, env *Env) error {
	if s.def.Path != "" {
		target, err := resolveURL(env.BaseURL, s.def.Path)
		if err != nil {
			return err
		}
		if err := env.Session.Navigate(ctx, target); err != nil {
			return err
		}
	}

	for i, step := range s.def.Steps {
		env.Report.Step(stepLabel(i, step))
		if err := runStep(ctx, env, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Kind, err)
		}
	}
	return nil
}

func stepLabel(i int, step models.Step) string {
	if step.Name != "" {
		return fmt.Sprintf("%d. %s", i+1, step.Name)
	}
	return fmt.Sprintf("%d. %s %s", i+1, step.Kind, step.Selector)
}

func runStep(ctx context.Context, env *Env, step models.Step) error {
	page := env.Page
	timeout := stepTimeout(step, env.Timeout)

	switch step.Kind {
	case models.StepKindNavigate:
		target, err := resolveURL(env.BaseURL, step.Value)
		if err != nil {
			return err
		}
		return env.Session.Navigate(ctx, target)

	case models.StepKindSelect:
		return page.SelectOption(ctx, step.Selector, step.Value)

	case models.StepKindFill:
		return page.Fill(ctx, step.Selector, step.Value)

	case models.StepKindClick:
		return page.Click(ctx, step.Selector)

	case models.StepKindWait:
		if step.Script != "" {
			return page.WaitFor(ctx, interact.Condition(step.Script), timeout)
		}
		return page.WaitFor(ctx, interact.Selector(step.Selector), timeout)

	case models.StepKindWaitHidden:
		return page.WaitHidden(ctx, step.Selector, timeout)

	case models.StepKindEvaluate:
		return page.Evaluate(ctx, step.Script, nil, nil)

	case models.StepKindScreenshot:
		name := step.Name
		if name == "" {
			name = "screenshot"
		}
		return env.Shot(ctx, name)

	case models.StepKindUpload:
		return page.Upload(ctx, step.Selector, step.Value)

	case models.StepKindSleep:
		select {
		case <-time.After(timeout):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

	case models.StepKindExpectCanvasContent:
		stats, err := page.CanvasStats(ctx, step.Selector)
		if err != nil && interact.KindOf(err) != interact.KindElementNotFound {
			return err
		}
		payload := stats.Payload()
		if err != nil {
			payload["error"] = err.Error()
		}
		env.Report.Check(describe(step), err == nil && stats.HasContent(), payload)
		return nil

	default:
		cond, err := expectation(step)
		if err != nil {
			return err
		}
		ok, err := env.Expect(ctx, describe(step), cond, timeout)
		if err != nil {
			return err
		}
		if !ok && step.Selector != "" {
			env.Report.Check(describe(step)+" (snapshot)", false, page.Snapshot(ctx, step.Selector))
		}
		return nil
	}
}

// stepTimeout resolves a step's wait budget. An explicit timeout, zero
// included, always wins; otherwise assertions are checked once and other
// steps get the action timeout.
func stepTimeout(step models.Step, actionTimeout time.Duration) time.Duration {
	switch {
	case step.Timeout != nil:
		return *step.Timeout
	case step.Kind.IsAssertion():
		return 0
	default:
		return actionTimeout
	}
}

// expectation turns an expect_* step into a wait condition. Assertion steps
// with no timeout are checked exactly once.
func expectation(step models.Step) (interact.WaitCondition, error) {
	sel := jsString(step.Selector)
	val := jsString(step.Value)

	switch step.Kind {
	case models.StepKindExpectVisible:
		return interact.Selector(step.Selector), nil
	case models.StepKindExpectHidden:
		return interact.Hidden(step.Selector), nil
	case models.StepKindExpectText:
		if step.Value == "" {
			return interact.Condition(fmt.Sprintf(
				`() => { const el = document.querySelector(%s); return !!el && (el.textContent || '').trim() !== ''; }`, sel)), nil
		}
		return interact.Condition(fmt.Sprintf(
			`() => { const el = document.querySelector(%s); return !!el && (el.textContent || '').includes(%s); }`, sel, val)), nil
	case models.StepKindExpectClass:
		return interact.Condition(fmt.Sprintf(
			`() => { const el = document.querySelector(%s); return !!el && el.classList.contains(%s); }`, sel, val)), nil
	case models.StepKindExpectNoClass:
		return interact.Condition(fmt.Sprintf(
			`() => { const el = document.querySelector(%s); return !!el && !el.classList.contains(%s); }`, sel, val)), nil
	case models.StepKindExpectTruthy:
		return interact.Condition(step.Script), nil
	}
	return interact.WaitCondition{}, fmt.Errorf("unsupported step kind %q", step.Kind)
}

func describe(step models.Step) string {
	if step.Description != "" {
		return step.Description
	}
	switch step.Kind {
	case models.StepKindExpectVisible:
		return step.Selector + " is visible"
	case models.StepKindExpectHidden:
		return step.Selector + " is hidden"
	case models.StepKindExpectText:
		if step.Value == "" {
			return step.Selector + " has text"
		}
		return fmt.Sprintf("%s contains %q", step.Selector, step.Value)
	case models.StepKindExpectClass:
		return fmt.Sprintf("%s has class %q", step.Selector, step.Value)
	case models.StepKindExpectNoClass:
		return fmt.Sprintf("%s lacks class %q", step.Selector, step.Value)
	case models.StepKindExpectCanvasContent:
		return step.Selector + " canvas has content"
	case models.StepKindExpectTruthy:
		return "script is truthy: " + strings.Join(strings.Fields(step.Script), " ")
	}
	return string(step.Kind)
}

// resolveURL resolves ref against base; an empty ref is base itself
func resolveURL(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if ref == "" {
		return b.String(), nil
	}
	r, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid page path %q: %w", ref, err)
	}
	return b.ResolveReference(r).String(), nil
}

func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
