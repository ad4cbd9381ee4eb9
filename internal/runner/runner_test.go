package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/barcheck/internal/browser"
	"github.com/ternarybob/barcheck/internal/common"
	"github.com/ternarybob/barcheck/internal/interact"
	"github.com/ternarybob/barcheck/internal/models"
	"github.com/ternarybob/barcheck/internal/report"
	"github.com/ternarybob/barcheck/internal/scenario"
)

const (
	fixtureRoot = "../../test/fixtures/barcode-app"
	brokenRoot  = "../contract/testdata/broken"
)

type fakeScenario struct {
	name string
	run  func(ctx context.Context, env *scenario.Env) error
}

func (f *fakeScenario) Name() string        { return f.name }
func (f *fakeScenario) Description() string { return "test scenario " + f.name }
func (f *fakeScenario) Run(ctx context.Context, env *scenario.Env) error {
	return f.run(ctx, env)
}

type memoryHistory struct {
	mu   sync.Mutex
	runs []*models.RunRecord
}

func (m *memoryHistory) SaveRun(ctx context.Context, run *models.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, run)
	return nil
}

func (m *memoryHistory) GetRun(ctx context.Context, id string) (*models.RunRecord, error) {
	return nil, errors.New("not implemented")
}

func (m *memoryHistory) ListRuns(ctx context.Context, limit int) ([]*models.RunRecord, error) {
	return m.runs, nil
}

func (m *memoryHistory) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return 0, nil
}

func testConfig(t *testing.T, root string) *common.Config {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Server.Root = root
	cfg.Server.Host = "127.0.0.1"
	cfg.Output.ResultsDir = t.TempDir()
	cfg.Browser.ReadySelector = "#textInput"
	cfg.Browser.ActionTimeout = common.Duration(10 * time.Second)
	return cfg
}

func requireChrome(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test skipped in short mode")
	}
	if _, ok := browser.LocateChrome(); !ok {
		t.Skip("Chrome not found on PATH")
	}
}

func TestRun_NoScenarios(t *testing.T) {
	r := New(testConfig(t, fixtureRoot), arbor.NewNoOpLogger(), nil, nil)
	_, err := r.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestRun_ContractFailureIsEnvironmentError(t *testing.T) {
	cfg := testConfig(t, brokenRoot)
	history := &memoryHistory{}
	var out bytes.Buffer
	r := New(cfg, arbor.NewNoOpLogger(), &out, history)

	called := false
	record, err := r.Run(context.Background(), []scenario.Scenario{
		&fakeScenario{name: "never-runs", run: func(ctx context.Context, env *scenario.Env) error {
			called = true
			return nil
		}},
	})
	require.NoError(t, err)
	assert.False(t, called, "scenario must not run against a page that fails the contract")

	assert.False(t, record.Passed)
	assert.True(t, strings.HasPrefix(record.ID, "run_"))
	require.Len(t, record.Scenarios, 1)
	result := record.Scenarios[0]
	assert.Equal(t, models.ScenarioStatusError, result.Status)
	assert.Contains(t, result.Error, "missing tab buttons")
	assert.Equal(t, []string{"never-runs"}, record.Failed())
	assert.Equal(t, 1, report.ExitCode(record.Scenarios))

	assert.Equal(t, cfg.Output.ResultsDir, filepath.Dir(record.ResultsDir))
	for _, name := range []string{report.SummaryJSON, report.SummaryMarkdown, report.SummaryHTML, report.SummaryPDF} {
		assert.FileExists(t, filepath.Join(record.ResultsDir, name))
	}

	data, err := os.ReadFile(filepath.Join(record.ResultsDir, report.SummaryJSON))
	require.NoError(t, err)
	var summary struct {
		ID      string         `json:"id"`
		Summary report.Summary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(data, &summary))
	assert.Equal(t, record.ID, summary.ID)

	require.Len(t, history.runs, 1)
	assert.Equal(t, record.ID, history.runs[0].ID)
	assert.Contains(t, out.String(), "FAIL")
}

func TestRun_MissingRootIsEnvironmentError(t *testing.T) {
	cfg := testConfig(t, filepath.Join(t.TempDir(), "absent"))
	r := New(cfg, arbor.NewNoOpLogger(), nil, nil)

	record, err := r.Run(context.Background(), []scenario.Scenario{
		&fakeScenario{name: "no-page", run: func(ctx context.Context, env *scenario.Env) error { return nil }},
	})
	require.NoError(t, err)
	require.Len(t, record.Scenarios, 1)
	assert.Equal(t, models.ScenarioStatusError, record.Scenarios[0].Status)
	assert.Contains(t, record.Scenarios[0].Error, "HTTP 404")
}

func TestCreateRunDir_SameSecond(t *testing.T) {
	cfg := testConfig(t, fixtureRoot)
	cfg.Output.ResultsDir = filepath.Join(t.TempDir(), "nested", "results")
	r := New(cfg, nil, nil, nil)

	started := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	first, err := r.createRunDir(started)
	require.NoError(t, err)
	second, err := r.createRunDir(started)
	require.NoError(t, err)

	assert.Equal(t, "2026-03-01T12-30-45", filepath.Base(first))
	assert.Equal(t, "2026-03-01T12-30-45_2", filepath.Base(second))
	assert.DirExists(t, first)
	assert.DirExists(t, second)
}

func TestExecute_RecoversPanic(t *testing.T) {
	dir := t.TempDir()
	rep := report.New(nil, arbor.NewNoOpLogger())
	env := &scenario.Env{Dir: dir, Report: rep.Begin("boom", "")}

	err := execute(context.Background(), &fakeScenario{name: "boom", run: func(ctx context.Context, env *scenario.Env) error {
		var m map[string]int
		m["x"] = 1
		return nil
	}}, env)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scenario panicked")

	crashes, err := filepath.Glob(filepath.Join(dir, "crash-boom-*.log"))
	require.NoError(t, err)
	require.Len(t, crashes, 1)
	data, err := os.ReadFile(crashes[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "assignment to entry in nil map")
}

func TestRun_AgainstFixture(t *testing.T) {
	requireChrome(t)

	cfg := testConfig(t, fixtureRoot)
	cfg.Runner.Concurrency = 2
	history := &memoryHistory{}
	var out bytes.Buffer
	r := New(cfg, arbor.NewNoOpLogger(), &out, history)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	builtins := scenario.Builtins()
	qr, ok := builtins.Lookup("qr-padding")
	require.True(t, ok)
	tabs, ok := builtins.Lookup("tab-navigation")
	require.True(t, ok)

	aborts := &fakeScenario{name: "aborts", run: func(ctx context.Context, env *scenario.Env) error {
		env.Report.Check("page is served", env.BaseURL != "", nil)
		return env.Page.Click(ctx, "#doesNotExist")
	}}
	panics := &fakeScenario{name: "panics", run: func(ctx context.Context, env *scenario.Env) error {
		panic("scenario bug")
	}}

	record, err := r.Run(ctx, []scenario.Scenario{qr, tabs, aborts, panics})
	require.NoError(t, err)
	t.Log("\n" + out.String())

	byName := make(map[string]models.ScenarioResult)
	for _, res := range record.Scenarios {
		byName[res.Scenario] = res
	}
	require.Len(t, byName, 4)

	assert.Equal(t, models.ScenarioStatusPassed, byName["qr-padding"].Status)
	assert.Equal(t, models.ScenarioStatusPassed, byName["tab-navigation"].Status)
	assert.NotEqual(t, byName["qr-padding"].URL, byName["tab-navigation"].URL, "each scenario gets its own server")

	aborted := byName["aborts"]
	assert.Equal(t, models.ScenarioStatusError, aborted.Status)
	assert.Contains(t, aborted.Error, "#doesNotExist")
	require.NotEmpty(t, aborted.Screenshots)
	assert.Equal(t, failureShot, filepath.Base(aborted.Screenshots[len(aborted.Screenshots)-1]))
	assert.FileExists(t, filepath.Join(record.ResultsDir, "aborts", failureShot))
	assert.FileExists(t, filepath.Join(record.ResultsDir, "aborts", eventsLogName))

	assert.Equal(t, models.ScenarioStatusError, byName["panics"].Status)
	assert.Contains(t, byName["panics"].Error, "scenario bug")
	crashes, _ := filepath.Glob(filepath.Join(record.ResultsDir, "panics", "crash-panics-*.log"))
	assert.Len(t, crashes, 1)

	assert.False(t, record.Passed)
	assert.ElementsMatch(t, []string{"aborts", "panics"}, record.Failed())
	require.Len(t, history.runs, 1)
	assert.Contains(t, out.String(), "[qr-padding]", "concurrent runs tag transcript lines")
}

func TestRun_ReleasesPortAfterAbort(t *testing.T) {
	requireChrome(t)

	cfg := testConfig(t, fixtureRoot)
	cfg.Server.Port = freePort(t)
	r := New(cfg, arbor.NewNoOpLogger(), nil, nil)

	aborts := &fakeScenario{name: "aborts", run: func(ctx context.Context, env *scenario.Env) error {
		return env.Page.WaitFor(ctx, interact.Selector("#neverThere"), 0)
	}}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for i := 0; i < 2; i++ {
		record, err := r.Run(ctx, []scenario.Scenario{aborts})
		require.NoError(t, err)
		require.Len(t, record.Scenarios, 1)
		res := record.Scenarios[0]
		assert.Equal(t, models.ScenarioStatusError, res.Status, "run %d", i+1)
		assert.NotContains(t, res.Error, "failed to bind", "run %d", i+1)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}
