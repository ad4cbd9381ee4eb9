// Package scenario holds the scripted checks the harness runs against the
// application: the built-in scenarios and the declarative YAML engine.
package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/barcheck/internal/browser"
	"github.com/ternarybob/barcheck/internal/contract"
	"github.com/ternarybob/barcheck/internal/interact"
	"github.com/ternarybob/barcheck/internal/report"
)

// Scenario is one scripted check. Run returns an error only for interaction
// or environment failures; assertion failures are recorded on env.Report.
type Scenario interface {
	Name() string
	Description() string
	Run(ctx context.Context, env *Env) error
}

// Session is the part of a browser session scenarios use directly
type Session interface {
	Navigate(ctx context.Context, pageURL string) error
	ConsoleErrors() []string
	PageErrors() []string
	EnableDownloads(ctx context.Context, dir string) error
	WaitDownload(ctx context.Context) (browser.Download, error)
}

// Env is everything a running scenario can touch
type Env struct {
	Page     *interact.Page
	Session  Session
	Report   *report.Scenario
	Contract contract.Contract
	BaseURL  string
	Dir      string        // Artifacts for this scenario
	Timeout  time.Duration // Bound for condition waits
	FullPage bool
	Logger   arbor.ILogger

	shots int
}

var unsafeName = regexp.MustCompile(`[^a-z0-9]+`)

func slug(s string) string {
	s = unsafeName.ReplaceAllString(strings.ToLower(s), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "shot"
	}
	return s
}

// ShotPath returns the next screenshot path, <dir>/<NN>_<step>.png
func (e *Env) ShotPath(step string) string {
	e.shots++
	return filepath.Join(e.Dir, fmt.Sprintf("%02d_%s.png", e.shots, slug(step)))
}

// Shot captures a screenshot for step and records it on the report
func (e *Env) Shot(ctx context.Context, step string) error {
	path := e.ShotPath(step)
	if err := e.Page.Screenshot(ctx, path, e.FullPage); err != nil {
		return err
	}
	e.Report.Screenshot(path)
	return nil
}

// ScratchDir returns a directory for temporary files owned by the scenario
func (e *Env) ScratchDir() (string, error) {
	dir := filepath.Join(e.Dir, "scratch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return dir, nil
}

// Hook reads a value from the application's diagnostic object into out.
// A missing path decodes as null.
func (e *Env) Hook(ctx context.Context, path string, out interface{}) error {
	expr, err := e.Contract.HookExpression(path)
	if err != nil {
		return err
	}
	return e.Page.Evaluate(ctx, "() => "+expr, nil, out)
}

// Wait polls cond with the environment's timeout
func (e *Env) Wait(ctx context.Context, cond interact.WaitCondition) error {
	return e.Page.WaitFor(ctx, cond, e.Timeout)
}

func (e *Env) logger() arbor.ILogger {
	if e.Logger == nil {
		return arbor.NewNoOpLogger()
	}
	return e.Logger
}

// base is embedded by the built-in scenarios
type base struct {
	name        string
	description string
}

func (b base) Name() string        { return b.name }
func (b base) Description() string { return b.description }
