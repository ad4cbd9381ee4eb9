package interact

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/barcheck/internal/browser"
	"github.com/ternarybob/barcheck/internal/server"
)

// openFixture serves testdata/site and opens a headless session on it
func openFixture(t *testing.T) (context.Context, *Page, *browser.Session) {
	t.Helper()
	if testing.Short() {
		t.Skip("browser test skipped in short mode")
	}
	if _, ok := browser.LocateChrome(); !ok {
		t.Skip("Chrome not found on PATH")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	t.Cleanup(cancel)

	logger := arbor.NewNoOpLogger()

	srv, err := server.Start(ctx, "testdata/site", "127.0.0.1", 0, logger)
	require.NoError(t, err)

	session, err := browser.Open(ctx, srv.URL(), browser.Options{
		Headless:      true,
		NoSandbox:     true,
		DisableGPU:    true,
		ReadySelector: "#generateBarcodeBtn",
	}, logger)
	if err != nil {
		_ = srv.Stop(context.Background())
		require.NoError(t, err)
	}

	// Browser first, then server
	t.Cleanup(func() {
		_ = session.Close()
		_ = srv.Stop(context.Background())
	})

	return ctx, NewPage(session, 5*time.Second, logger), session
}
