package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/ternarybob/barcheck/internal/models"
)

// Artifact file names written into a run's results directory
const (
	SummaryJSON     = "summary.json"
	SummaryMarkdown = "summary.md"
	SummaryHTML     = "summary.html"
	SummaryPDF      = "summary.pdf"
)

// Markdown renders a run as a markdown transcript
func Markdown(record *models.RunRecord) string {
	var b strings.Builder
	summary := Summarize(record.Scenarios)

	fmt.Fprintf(&b, "# barcheck run %s\n\n", record.ID)
	fmt.Fprintf(&b, "Started %s, finished in %s.\n\n",
		record.StartedAt.Format(time.RFC3339),
		record.FinishedAt.Sub(record.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(&b, "**%s**\n\n", summary.Line())

	b.WriteString("| Scenario | Status | Checks | Duration |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, s := range record.Scenarios {
		passed, total := s.Counts()
		fmt.Fprintf(&b, "| %s | %s | %d/%d | %s |\n",
			s.Scenario, strings.ToUpper(string(s.Status)), passed, total, s.Duration.Round(time.Millisecond))
	}
	b.WriteString("\n")

	for _, s := range record.Scenarios {
		fmt.Fprintf(&b, "## %s\n\n", s.Scenario)
		if s.URL != "" {
			fmt.Fprintf(&b, "URL: `%s`\n\n", s.URL)
		}
		if s.Error != "" {
			fmt.Fprintf(&b, "**Aborted:** `%s`\n\n", escapeCode(s.Error))
		}
		for _, a := range s.Assertions {
			mark := markPass
			if !a.Passed {
				mark = markFail
			}
			fmt.Fprintf(&b, "- %s %s", mark, a.Description)
			if !a.Passed && len(a.Payload) > 0 {
				fmt.Fprintf(&b, " `%s`", escapeCode(payloadJSON(a.Payload)))
			}
			b.WriteString("\n")
		}
		if len(s.Assertions) > 0 {
			b.WriteString("\n")
		}
		if len(s.Screenshots) > 0 {
			b.WriteString("Screenshots:\n\n")
			for _, shot := range s.Screenshots {
				rel := shot
				if r, err := filepath.Rel(record.ResultsDir, shot); err == nil && !strings.HasPrefix(r, "..") {
					rel = filepath.ToSlash(r)
				}
				fmt.Fprintf(&b, "- [%s](%s)\n", filepath.Base(shot), rel)
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// markdownEngine matches the extensions the transcript relies on
func markdownEngine() goldmark.Markdown {
	return goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough, extension.Linkify),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
	)
}

// HTML renders the markdown transcript as a standalone HTML page
func HTML(markdown, title string) ([]byte, error) {
	var body bytes.Buffer
	if err := markdownEngine().Convert([]byte(markdown), &body); err != nil {
		return nil, fmt.Errorf("failed to render summary HTML: %w", err)
	}

	var page bytes.Buffer
	fmt.Fprintf(&page, `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: sans-serif; max-width: 960px; margin: 2em auto; }
table { border-collapse: collapse; }
th, td { border: 1px solid #ccc; padding: 4px 8px; }
code { background: #f4f4f4; }
</style>
</head>
<body>
`, title)
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}

// WriteArtifacts writes summary.json, summary.md, summary.html and
// summary.pdf into dir and returns their paths
func WriteArtifacts(dir string, record *models.RunRecord) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	data, err := json.MarshalIndent(struct {
		*models.RunRecord
		Summary Summary `json:"summary"`
	}{record, Summarize(record.Scenarios)}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode summary: %w", err)
	}

	markdown := Markdown(record)
	html, err := HTML(markdown, "barcheck run "+record.ID)
	if err != nil {
		return nil, err
	}
	pdf, err := PDF(markdown, "barcheck run "+record.ID)
	if err != nil {
		return nil, err
	}

	files := []struct {
		name string
		data []byte
	}{
		{SummaryJSON, data},
		{SummaryMarkdown, []byte(markdown)},
		{SummaryHTML, html},
		{SummaryPDF, pdf},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.data, 0644); err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func payloadJSON(payload map[string]interface{}) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return formatPayload(payload)
	}
	return string(data)
}

func escapeCode(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "`", "'"), "\n", " ")
}
