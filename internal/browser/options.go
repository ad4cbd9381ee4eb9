package browser

import (
	"fmt"
	"net/url"
	"os/exec"
	"time"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"github.com/ternarybob/barcheck/internal/common"
)

// Options controls how a session's Chrome instance is launched and how
// navigation decides the page is ready
type Options struct {
	Headless          bool
	ExecPath          string
	NoSandbox         bool
	DisableGPU        bool
	ViewportWidth     int
	ViewportHeight    int
	Permissions       []string
	NavigationTimeout time.Duration
	ReadySelector     string
	EventsPath        string // JSON-lines browser event log; empty disables it
}

// OptionsFromConfig maps the [browser] config section onto session options
func OptionsFromConfig(cfg common.BrowserConfig) Options {
	return Options{
		Headless:          cfg.Headless,
		ExecPath:          cfg.ExecPath,
		NoSandbox:         cfg.NoSandbox,
		DisableGPU:        cfg.DisableGPU,
		ViewportWidth:     cfg.ViewportWidth,
		ViewportHeight:    cfg.ViewportHeight,
		Permissions:       append([]string(nil), cfg.Permissions...),
		NavigationTimeout: cfg.NavigationTimeout.Std(),
		ReadySelector:     cfg.ReadySelector,
	}
}

func (o Options) withDefaults() Options {
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = 1280
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = 720
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	return o
}

func (o Options) wantsMedia() bool {
	for _, p := range o.Permissions {
		if p == "camera" || p == "microphone" {
			return true
		}
	}
	return false
}

// allocatorOptions builds the Chrome command line for the session
func (o Options) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("disable-gpu", o.DisableGPU),
		chromedp.Flag("no-sandbox", o.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(o.ViewportWidth, o.ViewportHeight),
	)

	if o.wantsMedia() {
		// Chrome answers getUserMedia with a synthetic device instead of prompting
		opts = append(opts,
			chromedp.Flag("use-fake-ui-for-media-stream", true),
			chromedp.Flag("use-fake-device-for-media-stream", true),
		)
	}

	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}

	return opts
}

var permissionTypes = map[string]cdpbrowser.PermissionType{
	"camera":          cdpbrowser.PermissionTypeVideoCapture,
	"microphone":      cdpbrowser.PermissionTypeAudioCapture,
	"geolocation":     cdpbrowser.PermissionTypeGeolocation,
	"clipboard-read":  cdpbrowser.PermissionTypeClipboardReadWrite,
	"clipboard-write": cdpbrowser.PermissionTypeClipboardSanitizedWrite,
	"notifications":   cdpbrowser.PermissionTypeNotifications,
}

// permissionList converts configured permission names into CDP permission types
func permissionList(names []string) ([]cdpbrowser.PermissionType, error) {
	out := make([]cdpbrowser.PermissionType, 0, len(names))
	for _, name := range names {
		pt, ok := permissionTypes[name]
		if !ok {
			return nil, fmt.Errorf("unknown browser permission: %s", name)
		}
		out = append(out, pt)
	}
	return out, nil
}

// origin returns scheme://host[:port] of a page URL
func origin(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid page URL %s: %w", pageURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("page URL %s has no origin", pageURL)
	}
	return u.Scheme + "://" + u.Host, nil
}

var chromeNames = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
}

// LocateChrome returns the first Chrome or Chromium binary on PATH
func LocateChrome() (string, bool) {
	for _, name := range chromeNames {
		if path, err := exec.LookPath(name); err == nil {
			return path, true
		}
	}
	return "", false
}
