package report

import (
	"fmt"

	"github.com/ternarybob/barcheck/internal/models"
)

// Summary tallies scenarios and checks for the final report line
type Summary struct {
	Scenarios       int `json:"scenarios"`
	FailedScenarios int `json:"failed_scenarios"`
	Checks          int `json:"checks"`
	PassedChecks    int `json:"passed_checks"`
}

// Summarize tallies results
func Summarize(results []models.ScenarioResult) Summary {
	var s Summary
	for i := range results {
		passed, total := results[i].Counts()
		s.Scenarios++
		s.Checks += total
		s.PassedChecks += passed
		if !results[i].Passed() {
			s.FailedScenarios++
		}
	}
	return s
}

// Passed reports whether at least one scenario ran and none failed
func (s Summary) Passed() bool {
	return s.Scenarios > 0 && s.FailedScenarios == 0
}

// Line renders "PASS  n/m checks passed (k scenarios)"
func (s Summary) Line() string {
	verdict := "FAIL"
	if s.Passed() {
		verdict = "PASS"
	}
	return fmt.Sprintf("%s  %d/%d checks passed (%d scenarios)", verdict, s.PassedChecks, s.Checks, s.Scenarios)
}

// ExitCode is 0 when every scenario passed and 1 otherwise. An empty run
// counts as a failure.
func ExitCode(results []models.ScenarioResult) int {
	if Summarize(results).Passed() {
		return 0
	}
	return 1
}
