// Package runner executes scenarios against the served application, one
// isolated server and browser per scenario, and collects the run record.
package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/ternarybob/barcheck/internal/browser"
	"github.com/ternarybob/barcheck/internal/common"
	"github.com/ternarybob/barcheck/internal/contract"
	"github.com/ternarybob/barcheck/internal/interact"
	"github.com/ternarybob/barcheck/internal/interfaces"
	"github.com/ternarybob/barcheck/internal/models"
	"github.com/ternarybob/barcheck/internal/report"
	"github.com/ternarybob/barcheck/internal/scenario"
	"github.com/ternarybob/barcheck/internal/server"
)

const (
	failureShot   = "failure.png"
	eventsLogName = "browser-events.log"
	runDirLayout  = "2006-01-02T15-04-05"

	// Teardown and history writes run on their own budget after cancellation
	teardownTimeout = 10 * time.Second
)

// Runner owns the configuration shared by every scenario of a run
type Runner struct {
	config   *common.Config
	logger   arbor.ILogger
	out      io.Writer
	history  interfaces.RunStorage
	contract contract.Contract
}

// New creates a runner. history may be nil when run history is disabled.
func New(config *common.Config, logger arbor.ILogger, out io.Writer, history interfaces.RunStorage) *Runner {
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Runner{
		config:   config,
		logger:   logger,
		out:      out,
		history:  history,
		contract: contract.V1,
	}
}

// Run executes scenarios and returns the run record. Scenario failures are
// part of the record; the error is reserved for failures of the run itself.
func (r *Runner) Run(ctx context.Context, scenarios []scenario.Scenario) (*models.RunRecord, error) {
	if len(scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios selected")
	}

	record := &models.RunRecord{
		ID:        common.NewRunID(),
		StartedAt: time.Now(),
	}

	runDir, err := r.createRunDir(record.StartedAt)
	if err != nil {
		return nil, err
	}
	record.ResultsDir = runDir

	concurrency := r.config.Runner.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	rep := report.New(r.out, r.logger)
	rep.SetTagged(concurrency > 1 && len(scenarios) > 1)

	r.logger.Info().
		Str("run_id", record.ID).
		Str("results_dir", runDir).
		Int("scenarios", len(scenarios)).
		Int("concurrency", concurrency).
		Msg("Run started")

	var g errgroup.Group
	g.SetLimit(concurrency)
	for _, s := range scenarios {
		s := s
		g.Go(func() error {
			r.runScenario(ctx, rep, s, runDir)
			return nil // Scenario outcomes live in the reporter
		})
	}
	_ = g.Wait()

	summary := rep.PrintSummary()
	record.FinishedAt = time.Now()
	record.Scenarios = rep.Results()
	record.Passed = summary.Passed()

	paths, err := report.WriteArtifacts(runDir, record)
	if err != nil {
		r.logger.Error().Err(err).Str("results_dir", runDir).Msg("Failed to write run summary")
	} else {
		r.logger.Debug().Strs("files", paths).Msg("Run summary written")
	}

	if r.history != nil {
		// A cancelled run is still recorded
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
		if saveErr := r.history.SaveRun(saveCtx, record); saveErr != nil {
			r.logger.Warn().Err(saveErr).Str("run_id", record.ID).Msg("Failed to save run history")
		}
		cancel()
	}

	if err != nil {
		return record, err
	}
	return record, ctx.Err()
}

// createRunDir makes <results_dir>/<timestamp>, suffixed when two runs start
// in the same second
func (r *Runner) createRunDir(started time.Time) (string, error) {
	base := filepath.Join(r.config.Output.ResultsDir, started.Format(runDirLayout))
	dir := base
	for i := 2; ; i++ {
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return dir, nil
		}
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(dir), 0755); err != nil {
				return "", fmt.Errorf("failed to create results directory: %w", err)
			}
			continue
		}
		if !os.IsExist(err) {
			return "", fmt.Errorf("failed to create run directory: %w", err)
		}
		dir = fmt.Sprintf("%s_%d", base, i)
	}
}

// runScenario gives s its own server and browser. Teardown runs in reverse
// order of setup: the session closes before the server stops.
func (r *Runner) runScenario(ctx context.Context, rep *report.Reporter, s scenario.Scenario, runDir string) {
	logger := r.logger.WithCorrelationId(s.Name())
	dir := filepath.Join(runDir, s.Name())

	srv, srvErr := server.Start(ctx, r.config.Server.Root, r.config.Server.Host, r.config.Server.Port, logger)
	baseURL := ""
	if srvErr == nil {
		baseURL = srv.URL()
	}

	rs := rep.Begin(s.Name(), baseURL)
	defer rs.End()

	if srvErr != nil {
		rs.Fail(srvErr, "")
		return
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), teardownTimeout)
		defer cancel()
		if err := srv.Stop(stopCtx); err != nil {
			logger.Warn().Err(err).Msg("Static server did not stop cleanly")
		}
	}()

	if err := os.MkdirAll(dir, 0755); err != nil {
		rs.Fail(fmt.Errorf("failed to create scenario directory: %w", err), "")
		return
	}

	if _, err := r.contract.Verify(ctx, baseURL); err != nil {
		rs.Fail(err, "")
		return
	}

	opts := browser.OptionsFromConfig(r.config.Browser)
	if r.config.Logging.BrowserEvents {
		opts.EventsPath = filepath.Join(dir, eventsLogName)
	}
	session, err := browser.Open(ctx, baseURL, opts, logger)
	if err != nil {
		rs.Fail(err, "")
		return
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Warn().Err(err).Msg("Browser session did not close cleanly")
		}
	}()

	page := interact.NewPage(session, r.config.Browser.ActionTimeout.Std(), logger)

	if err := r.checkRuntimeIDs(ctx, page, baseURL); err != nil {
		rs.Fail(err, r.failureScreenshot(ctx, page, dir))
		return
	}

	env := &scenario.Env{
		Page:     page,
		Session:  session,
		Report:   rs,
		Contract: r.contract,
		BaseURL:  baseURL,
		Dir:      dir,
		Timeout:  r.config.Browser.ActionTimeout.Std(),
		FullPage: r.config.Output.FullPageScreenshots,
		Logger:   logger,
	}

	if err := execute(ctx, s, env); err != nil {
		rs.Fail(err, r.failureScreenshot(ctx, page, dir))
	}
}

// checkRuntimeIDs confirms the elements the application creates at startup
// exist once the page is ready
func (r *Runner) checkRuntimeIDs(ctx context.Context, page *interact.Page, pageURL string) error {
	var missing []string
	if err := page.Evaluate(ctx, "() => "+r.contract.RuntimeCheckExpression(), nil, &missing); err != nil {
		return fmt.Errorf("runtime contract check failed: %w", err)
	}
	if len(missing) > 0 {
		return &contract.ContractError{Version: r.contract.Version, URL: pageURL, MissingIDs: missing}
	}
	return nil
}

// execute runs the scenario, converting a panic into an error with a crash
// report beside the scenario's screenshots
func execute(ctx context.Context, s scenario.Scenario, env *scenario.Env) (err error) {
	defer func() {
		if p := recover(); p != nil {
			crash := common.WriteCrashFile(env.Dir, s.Name(), p, common.GetStackTrace())
			err = fmt.Errorf("scenario panicked: %v (crash report: %s)", p, crash)
		}
	}()
	return s.Run(ctx, env)
}

// failureScreenshot captures the page as it was when the scenario aborted.
// Returns "" when the capture itself fails.
func (r *Runner) failureScreenshot(ctx context.Context, page *interact.Page, dir string) string {
	shotCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()

	path := filepath.Join(dir, failureShot)
	if err := page.Screenshot(shotCtx, path, r.config.Output.FullPageScreenshots); err != nil {
		r.logger.Warn().Err(err).Str("path", path).Msg("Failed to capture failure screenshot")
		return ""
	}
	return path
}
