package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/barcheck/internal/models"
)

func sampleRecord(dir string) *models.RunRecord {
	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return &models.RunRecord{
		ID:         "run_test",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		ResultsDir: dir,
		Scenarios: []models.ScenarioResult{
			{
				Scenario: "code128-aspect",
				Status:   models.ScenarioStatusFailed,
				URL:      "http://localhost:5555/",
				Assertions: []models.AssertionResult{
					{Description: "container is not square", Passed: true},
					{Description: "aspect ratio above 1.2", Passed: false, Payload: map[string]interface{}{"aspect_ratio": 1.0}},
				},
				Screenshots: []string{filepath.Join(dir, "code128-aspect", "01_generated.png")},
				Duration:    1500 * time.Millisecond,
			},
			{
				Scenario:   "qr-padding",
				Status:     models.ScenarioStatusPassed,
				Assertions: []models.AssertionResult{{Description: "canvas has content", Passed: true}},
				Duration:   time.Second,
			},
		},
	}
}

func TestMarkdown(t *testing.T) {
	md := Markdown(sampleRecord("/results/run"))

	assert.Contains(t, md, "# barcheck run run_test")
	assert.Contains(t, md, "**FAIL  2/3 checks passed (2 scenarios)**")
	assert.Contains(t, md, "| code128-aspect | FAILED | 1/2 | 1.5s |")
	assert.Contains(t, md, "- ✗ aspect ratio above 1.2 `{\"aspect_ratio\":1}`")
	assert.Contains(t, md, "- [01_generated.png](code128-aspect/01_generated.png)")
	assert.Contains(t, md, "URL: `http://localhost:5555/`")
}

func TestHTML(t *testing.T) {
	html, err := HTML("# Title\n\n| a | b |\n|---|---|\n| 1 | 2 |\n", "run")
	require.NoError(t, err)

	s := string(html)
	assert.Contains(t, s, "<title>run</title>")
	assert.Contains(t, s, `<h1 id="title">Title</h1>`)
	assert.Contains(t, s, "<table>")
}

func TestPDF(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
	}{
		{"transcript", Markdown(sampleRecord("/results/run"))},
		{"empty", ""},
		{"long table cell", "| a |\n|---|\n| " + strings.Repeat("very long cell ", 40) + " |\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pdf, err := PDF(tt.markdown, "barcheck")
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(string(pdf), "%PDF-"))
		})
	}
}

func TestWriteArtifacts(t *testing.T) {
	dir := t.TempDir()
	record := sampleRecord(dir)

	paths, err := WriteArtifacts(dir, record)
	require.NoError(t, err)
	require.Len(t, paths, 4)

	data, err := os.ReadFile(filepath.Join(dir, SummaryJSON))
	require.NoError(t, err)

	var decoded struct {
		ID        string                  `json:"id"`
		Scenarios []models.ScenarioResult `json:"scenarios"`
		Summary   Summary                 `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run_test", decoded.ID)
	assert.Len(t, decoded.Scenarios, 2)
	assert.Equal(t, Summary{Scenarios: 2, FailedScenarios: 1, Checks: 3, PassedChecks: 2}, decoded.Summary)

	md, err := os.ReadFile(filepath.Join(dir, SummaryMarkdown))
	require.NoError(t, err)
	assert.Equal(t, Markdown(record), string(md))

	html, err := os.ReadFile(filepath.Join(dir, SummaryHTML))
	require.NoError(t, err)
	assert.Contains(t, string(html), "code128-aspect")

	pdfCtx, err := api.ReadContextFile(filepath.Join(dir, SummaryPDF))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pdfCtx.PageCount, 1)
}
