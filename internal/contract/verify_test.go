package contract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/barcheck/internal/server"
)

func serve(t *testing.T, root string) string {
	t.Helper()
	srv, err := server.Start(context.Background(), root, "127.0.0.1", 0, arbor.NewNoOpLogger())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	})
	return srv.URL()
}

func TestVerify_FixtureSatisfiesV1(t *testing.T) {
	url := serve(t, "../../test/fixtures/barcode-app")

	report, err := V1.Verify(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "v1", report.Version)
	assert.Equal(t, "Barcode Fixture", report.Title)
	assert.GreaterOrEqual(t, report.Elements, len(V1.RequiredIDs))
}

func TestVerify_ReportsMissingIDsAndTabs(t *testing.T) {
	url := serve(t, "testdata/broken")

	_, err := V1.Verify(context.Background(), url)
	require.Error(t, err)

	var cerr *ContractError
	require.True(t, errors.As(err, &cerr))
	assert.Contains(t, cerr.MissingIDs, "qrCanvas")
	assert.Contains(t, cerr.MissingIDs, "generatorMessages")
	assert.NotContains(t, cerr.MissingIDs, "barcodeType")
	assert.Equal(t, []string{"scanner", "savedData"}, cerr.MissingTabs)
	assert.Contains(t, err.Error(), "missing ids: ")
	assert.Contains(t, err.Error(), "missing tab buttons: scanner, savedData")
}

func TestVerify_HTTPError(t *testing.T) {
	url := serve(t, "testdata/broken")

	_, err := V1.Verify(context.Background(), url+"nope.html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 404")
}

func TestCheck_IgnoresRuntimeIDs(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, id := range V1.RequiredIDs {
		b.WriteString(`<div id="` + id + `"></div>`)
	}
	for _, tab := range V1.Tabs {
		b.WriteString(`<button onclick="switchTab('` + tab.Name + `')"></button>`)
	}
	b.WriteString("</body></html>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(b.String()))
	require.NoError(t, err)

	report, err := V1.Check(doc, "inline")
	require.NoError(t, err)
	assert.Equal(t, len(V1.RequiredIDs), report.Elements)
}
