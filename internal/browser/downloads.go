package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	cdpbrowser "github.com/chromedp/cdproto/browser"
)

// Download is a file the page asked the browser to save
type Download struct {
	GUID              string
	URL               string
	SuggestedFilename string
	Path              string // Saved file; Chrome names it by GUID inside the download dir
	Bytes             float64
}

type downloadTracker struct {
	mu        sync.Mutex
	dir       string
	pending   map[string]*Download
	completed chan Download
}

func newDownloadTracker() *downloadTracker {
	return &downloadTracker{
		pending:   make(map[string]*Download),
		completed: make(chan Download, 16),
	}
}

func (t *downloadTracker) handle(ev interface{}, events *eventRecorder) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case *cdpbrowser.EventDownloadWillBegin:
		t.pending[e.GUID] = &Download{
			GUID:              e.GUID,
			URL:               e.URL,
			SuggestedFilename: e.SuggestedFilename,
			Path:              filepath.Join(t.dir, e.GUID),
		}
		events.logf("download", "begin %s (%s)", e.SuggestedFilename, e.GUID)

	case *cdpbrowser.EventDownloadProgress:
		d, ok := t.pending[e.GUID]
		if !ok {
			return
		}
		switch e.State {
		case cdpbrowser.DownloadProgressStateCompleted:
			d.Bytes = e.ReceivedBytes
			delete(t.pending, e.GUID)
			events.logf("download", "completed %s (%.0f bytes)", d.SuggestedFilename, d.Bytes)
			select {
			case t.completed <- *d:
			default:
			}
		case cdpbrowser.DownloadProgressStateCanceled:
			delete(t.pending, e.GUID)
			events.logf("download", "canceled %s", d.SuggestedFilename)
		}
	}
}

// EnableDownloads lets the page save files into dir and turns on download
// progress events so WaitDownload can observe them
func (s *Session) EnableDownloads(ctx context.Context, dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("invalid download directory %s: %w", dir, err)
	}

	s.downloads.mu.Lock()
	s.downloads.dir = abs
	s.downloads.mu.Unlock()

	err = s.Run(ctx, cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllowAndName).
		WithDownloadPath(abs).
		WithEventsEnabled(true))
	if err != nil {
		return fmt.Errorf("failed to enable downloads: %w", err)
	}
	return nil
}

// WaitDownload blocks until a download completes or ctx ends
func (s *Session) WaitDownload(ctx context.Context) (Download, error) {
	select {
	case d := <-s.downloads.completed:
		return d, nil
	case <-ctx.Done():
		return Download{}, fmt.Errorf("no download completed: %w", ctx.Err())
	}
}
