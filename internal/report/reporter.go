package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/barcheck/internal/models"
)

const (
	markPass = "✓"
	markFail = "✗"
)

// Reporter prints assertion results as they happen and collects them per
// scenario. It is safe for concurrent scenarios; each one records through its
// own *Scenario.
type Reporter struct {
	mu      sync.Mutex
	out     io.Writer
	logger  arbor.ILogger
	tagged  bool // Prefix lines with the scenario name when scenarios interleave
	results []models.ScenarioResult
}

// New creates a reporter writing its transcript to out
func New(out io.Writer, logger arbor.ILogger) *Reporter {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = arbor.NewNoOpLogger()
	}
	return &Reporter{out: out, logger: logger}
}

// SetTagged prefixes every transcript line with its scenario name
func (r *Reporter) SetTagged(tagged bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tagged = tagged
}

func (r *Reporter) printf(scenario, format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text := fmt.Sprintf(format, args...)
	if r.tagged {
		lines := strings.Split(text, "\n")
		for i, line := range lines {
			if line != "" {
				lines[i] = "[" + scenario + "] " + line
			}
		}
		text = strings.Join(lines, "\n")
	}
	fmt.Fprintln(r.out, text)
}

// Begin starts recording a scenario
func (r *Reporter) Begin(name, url string) *Scenario {
	r.printf(name, "\n=== %s ===", name)
	r.logger.Info().Str("scenario", name).Str("url", url).Msg("Scenario started")
	return &Scenario{
		reporter: r,
		result: models.ScenarioResult{
			Scenario:  name,
			URL:       url,
			StartedAt: time.Now(),
		},
	}
}

func (r *Reporter) finish(result models.ScenarioResult) {
	r.mu.Lock()
	r.results = append(r.results, result)
	r.mu.Unlock()
}

// Results returns finished scenarios ordered by name
func (r *Reporter) Results() []models.ScenarioResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]models.ScenarioResult(nil), r.results...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Scenario < out[j].Scenario })
	return out
}

// Passed reports whether every finished scenario passed
func (r *Reporter) Passed() bool {
	return ExitCode(r.Results()) == 0
}

// Summary tallies the finished scenarios
func (r *Reporter) Summary() Summary {
	return Summarize(r.Results())
}

// PrintSummary writes the final summary block
func (r *Reporter) PrintSummary() Summary {
	summary := r.Summary()

	r.mu.Lock()
	defer r.mu.Unlock()

	fmt.Fprintln(r.out)
	for _, res := range r.results {
		if !res.Passed() {
			passed, total := res.Counts()
			fmt.Fprintf(r.out, "  %s %s (%d/%d checks) %s\n", markFail, res.Scenario, passed, total, res.Error)
		}
	}
	fmt.Fprintln(r.out, summary.Line())

	r.logger.Info().
		Int("scenarios", summary.Scenarios).
		Int("failed_scenarios", summary.FailedScenarios).
		Int("checks", summary.Checks).
		Int("passed_checks", summary.PassedChecks).
		Msg("Run finished")

	return summary
}

// Scenario records one scenario's steps, assertions and artifacts
type Scenario struct {
	reporter *Reporter
	mu       sync.Mutex
	result   models.ScenarioResult
	step     string
}

// Name returns the scenario name
func (s *Scenario) Name() string {
	return s.result.Scenario
}

// Step prints a section header; subsequent checks are logged under it
func (s *Scenario) Step(name string) {
	s.mu.Lock()
	s.step = name
	s.mu.Unlock()

	s.reporter.printf(s.result.Scenario, "--- %s", name)
	s.reporter.logger.Debug().Str("scenario", s.result.Scenario).Str("step", name).Msg("Step")
}

// Check records an assertion and prints it immediately. Failures do not stop
// the scenario. Returns pass so callers can branch on it.
func (s *Scenario) Check(description string, pass bool, payload map[string]interface{}) bool {
	s.mu.Lock()
	s.result.Assertions = append(s.result.Assertions, models.AssertionResult{
		Description: description,
		Passed:      pass,
		Payload:     payload,
		Timestamp:   time.Now(),
	})
	step := s.step
	s.mu.Unlock()

	mark := markPass
	if !pass {
		mark = markFail
	}
	line := fmt.Sprintf("  %s %s", mark, description)
	if !pass && len(payload) > 0 {
		line += "  " + formatPayload(payload)
	}
	s.reporter.printf(s.result.Scenario, "%s", line)

	event := s.reporter.logger.Info()
	if !pass {
		event = s.reporter.logger.Warn()
	}
	event.
		Str("scenario", s.result.Scenario).
		Str("step", step).
		Bool("passed", pass).
		Str("payload", formatPayload(payload)).
		Msg(description)

	return pass
}

// Screenshot records an artifact path
func (s *Scenario) Screenshot(path string) {
	s.mu.Lock()
	s.result.Screenshots = append(s.result.Screenshots, path)
	s.mu.Unlock()

	s.reporter.printf(s.result.Scenario, "  [screenshot] %s", path)
}

// Fail marks the scenario as aborted by err. screenshot may be empty.
func (s *Scenario) Fail(err error, screenshot string) {
	s.mu.Lock()
	s.result.Status = models.ScenarioStatusError
	s.result.Error = err.Error()
	if screenshot != "" {
		s.result.Screenshots = append(s.result.Screenshots, screenshot)
	}
	s.mu.Unlock()

	s.reporter.printf(s.result.Scenario, "  %s aborted: %v", markFail, err)
	s.reporter.logger.Error().
		Err(err).
		Str("scenario", s.result.Scenario).
		Str("screenshot", screenshot).
		Msg("Scenario aborted")
}

// End finalises the scenario and hands the result to the reporter
func (s *Scenario) End() models.ScenarioResult {
	s.mu.Lock()
	s.result.Duration = time.Since(s.result.StartedAt)
	if s.result.Status == "" {
		s.result.Status = models.ScenarioStatusPassed
		for _, a := range s.result.Assertions {
			if !a.Passed {
				s.result.Status = models.ScenarioStatusFailed
				break
			}
		}
	}
	result := s.result
	s.mu.Unlock()

	passed, total := result.Counts()
	s.reporter.printf(result.Scenario, "%s %s: %d/%d checks (%s)",
		statusMark(result.Passed()), strings.ToUpper(string(result.Status)), passed, total, result.Duration.Round(time.Millisecond))

	s.reporter.logger.Info().
		Str("scenario", result.Scenario).
		Str("status", string(result.Status)).
		Int("passed_checks", passed).
		Int("checks", total).
		Dur("duration", result.Duration).
		Msg("Scenario finished")

	s.reporter.finish(result)
	return result
}

func statusMark(pass bool) string {
	if pass {
		return markPass
	}
	return markFail
}

// formatPayload renders diagnostics as sorted key=value pairs
func formatPayload(payload map[string]interface{}) string {
	if len(payload) == 0 {
		return ""
	}
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, payload[k]))
	}
	return "{" + strings.Join(parts, " ") + "}"
}
