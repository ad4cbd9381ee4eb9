package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// Session is one Chrome instance with one tab, isolated from every other
// session. It owns the allocator, browser and tab contexts.
type Session struct {
	ctx         context.Context // tab context; chromedp actions run under it
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	opts      Options
	logger    arbor.ILogger
	events    *eventRecorder
	idle      chan struct{}
	downloads *downloadTracker

	mu        sync.Mutex
	url       string
	mainFrame cdp.FrameID

	closeOnce sync.Once
	closeErr  error
}

// Open launches Chrome, grants the configured permissions for the page's
// origin, installs the event listeners and navigates to pageURL. On error any
// partially started browser is shut down before returning.
func Open(ctx context.Context, pageURL string, opts Options, logger arbor.ILogger) (*Session, error) {
	opts = opts.withDefaults()

	pageOrigin, err := origin(pageURL)
	if err != nil {
		return nil, err
	}
	permissions, err := permissionList(opts.Permissions)
	if err != nil {
		return nil, err
	}

	events, err := newEventRecorder(logger, opts.EventsPath)
	if err != nil {
		return nil, err
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			logger.Debug().Msgf("chromedp: "+format, args...)
		}),
	)

	s := &Session{
		ctx:         tabCtx,
		cancel:      tabCancel,
		allocCancel: allocCancel,
		opts:        opts,
		logger:      logger,
		events:      events,
		idle:        make(chan struct{}, 1),
		downloads:   newDownloadTracker(),
	}

	chromedp.ListenTarget(tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *page.EventLifecycleEvent:
			if s.mainFrameIdle(e) {
				select {
				case s.idle <- struct{}{}:
				default:
				}
			}
		case *cdpbrowser.EventDownloadWillBegin, *cdpbrowser.EventDownloadProgress:
			s.downloads.handle(e, s.events)
		default:
			s.events.handle(ev)
		}
	})

	startTime := time.Now()

	// The first Run allocates the browser and ties its lifetime to tabCtx, so
	// it must not carry a deadline. The timer bounds a hung launch instead.
	launchTimer := time.AfterFunc(opts.NavigationTimeout, tabCancel)
	stopWatch := context.AfterFunc(ctx, tabCancel)

	err = chromedp.Run(tabCtx,
		network.Enable(),
		page.SetLifecycleEventsEnabled(true),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			s.mu.Lock()
			s.mainFrame = tree.Frame.ID
			s.mu.Unlock()
			return nil
		}),
		chromedp.EmulateViewport(int64(opts.ViewportWidth), int64(opts.ViewportHeight)),
	)
	if err == nil && len(permissions) > 0 {
		err = chromedp.Run(tabCtx, cdpbrowser.GrantPermissions(permissions).WithOrigin(pageOrigin))
	}

	launchTimer.Stop()
	stopWatch()

	if err != nil {
		_ = s.Close()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("browser launch cancelled: %w", ctxErr)
		}
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	s.events.logf("session", "browser started in %s", time.Since(startTime))
	logger.Debug().
		Bool("headless", opts.Headless).
		Strs("permissions", opts.Permissions).
		Dur("startup_time", time.Since(startTime)).
		Msg("Browser session started")

	if err := s.Navigate(ctx, pageURL); err != nil {
		_ = s.Close()
		return nil, err
	}

	return s, nil
}

// mainFrameIdle reports whether e is the tab's top-level document going
// network idle. Idle iframes do not count.
func (s *Session) mainFrameIdle(e *page.EventLifecycleEvent) bool {
	if e.Name != "networkIdle" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mainFrame != "" && e.FrameID == s.mainFrame
}

// Run executes chromedp actions against the session's tab. The actions stop
// when ctx is cancelled or its deadline passes; the tab itself stays open.
func (s *Session) Run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	if deadline, ok := ctx.Deadline(); ok {
		var cancelDeadline context.CancelFunc
		runCtx, cancelDeadline = context.WithDeadline(runCtx, deadline)
		defer cancelDeadline()
	}

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// Navigate loads pageURL in the tab and waits until the page is ready: the
// ready selector is visible when one is configured, otherwise the network has
// gone idle. Bounded by Options.NavigationTimeout.
func (s *Session) Navigate(ctx context.Context, pageURL string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	// Drop any idle signal left over from the previous document
	select {
	case <-s.idle:
	default:
	}

	start := time.Now()

	actions := []chromedp.Action{chromedp.Navigate(pageURL)}
	if s.opts.ReadySelector != "" {
		actions = append(actions, chromedp.WaitVisible(s.opts.ReadySelector, chromedp.ByQuery))
	}

	if err := s.Run(navCtx, actions...); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", pageURL, err)
	}

	if s.opts.ReadySelector == "" {
		select {
		case <-s.idle:
		case <-navCtx.Done():
			return fmt.Errorf("page %s did not reach network idle within %s: %w", pageURL, s.opts.NavigationTimeout, navCtx.Err())
		}
	}

	s.mu.Lock()
	s.url = pageURL
	s.mu.Unlock()

	s.events.logf("navigate", "%s ready in %s", pageURL, time.Since(start))
	s.logger.Debug().Str("url", pageURL).Dur("duration", time.Since(start)).Msg("Page ready")
	return nil
}

// URL returns the last successfully navigated URL
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

// ConsoleMessages returns every console call observed so far
func (s *Session) ConsoleMessages() []ConsoleMessage {
	return s.events.consoleMessages()
}

// ConsoleErrors returns the text of console.error calls observed so far
func (s *Session) ConsoleErrors() []string {
	var out []string
	for _, m := range s.events.consoleMessages() {
		if m.Type == "error" {
			out = append(out, m.Text)
		}
	}
	return out
}

// PageErrors returns uncaught exceptions and unhandled promise rejections
func (s *Session) PageErrors() []string {
	return s.events.pageErrors()
}

// NetworkEvents returns completed and failed requests observed so far
func (s *Session) NetworkEvents() []NetworkEvent {
	return s.events.networkEvents()
}

// Close closes the tab and browser and terminates Chrome. Safe to call more
// than once; only the first call does any work.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.allocCancel()

		if err := s.events.close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close browser event log: %w", err)
		}

		s.logger.Debug().Msg("Browser session closed")
	})
	return s.closeErr
}
