package models

import "time"

// AssertionResult records one checked condition and the diagnostics captured with it
type AssertionResult struct {
	Description string                 `json:"description"`
	Passed      bool                   `json:"passed"`
	Payload     map[string]interface{} `json:"payload,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

// ScenarioStatus is the terminal state of a scenario
type ScenarioStatus string

const (
	ScenarioStatusPassed ScenarioStatus = "passed"
	ScenarioStatusFailed ScenarioStatus = "failed" // One or more assertions failed
	ScenarioStatusError  ScenarioStatus = "error"  // Environment or interaction error aborted the scenario
)

// ScenarioResult aggregates everything one scenario produced
type ScenarioResult struct {
	Scenario    string            `json:"scenario"`
	Status      ScenarioStatus    `json:"status"`
	Assertions  []AssertionResult `json:"assertions"`
	Screenshots []string          `json:"screenshots,omitempty"`
	Error       string            `json:"error,omitempty"`
	URL         string            `json:"url,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	Duration    time.Duration     `json:"duration"`
}

// Passed reports whether the scenario completed with every assertion passing
func (r *ScenarioResult) Passed() bool {
	return r.Status == ScenarioStatusPassed
}

// Counts returns the number of passed and total assertions
func (r *ScenarioResult) Counts() (passed, total int) {
	for _, a := range r.Assertions {
		if a.Passed {
			passed++
		}
	}
	return passed, len(r.Assertions)
}

// RunRecord is one invocation of the harness over a set of scenarios
type RunRecord struct {
	ID         string           `json:"id" badgerhold:"key"`
	StartedAt  time.Time        `json:"started_at" badgerhold:"index"`
	FinishedAt time.Time        `json:"finished_at"`
	Passed     bool             `json:"passed"`
	ResultsDir string           `json:"results_dir"`
	Scenarios  []ScenarioResult `json:"scenarios"`
}

// Failed returns the names of scenarios that did not pass
func (r *RunRecord) Failed() []string {
	var names []string
	for _, s := range r.Scenarios {
		if !s.Passed() {
			names = append(names, s.Scenario)
		}
	}
	return names
}
