package browser

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	plog "github.com/phuslu/log"
	"github.com/ternarybob/arbor"
)

// ConsoleMessage is one console API call made by the page
type ConsoleMessage struct {
	Type      string    `json:"type"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkEvent is one completed or failed request issued by the page
type NetworkEvent struct {
	URL       string    `json:"url"`
	Method    string    `json:"method,omitempty"`
	Status    int64     `json:"status,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	ErrorText string    `json:"error_text,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// eventRecorder keeps page events in memory for assertions and forwards each
// one to the session event log. Listener callbacks run on chromedp's event
// goroutine, so all state is guarded by mu.
type eventRecorder struct {
	logger arbor.ILogger
	sink   *plog.Logger
	file   *os.File

	mu       sync.Mutex
	console  []ConsoleMessage
	errors   []string
	network  []NetworkEvent
	requests map[network.RequestID]*network.Request
}

func newEventRecorder(logger arbor.ILogger, path string) (*eventRecorder, error) {
	r := &eventRecorder{
		logger:   logger,
		requests: make(map[network.RequestID]*network.Request),
	}

	if path == "" {
		return r, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create browser event log directory: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser event log: %w", err)
	}

	r.file = file
	r.sink = &plog.Logger{
		Level:      plog.DebugLevel,
		TimeFormat: time.RFC3339Nano,
		Writer:     &plog.IOWriter{Writer: file},
	}
	return r, nil
}

// handle dispatches one CDP target event
func (r *eventRecorder) handle(ev interface{}) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		r.recordConsole(ev)
	case *runtime.EventExceptionThrown:
		r.recordException(ev)
	case *network.EventRequestWillBeSent:
		r.mu.Lock()
		r.requests[ev.RequestID] = ev.Request
		r.mu.Unlock()
	case *network.EventResponseReceived:
		r.recordResponse(ev)
	case *network.EventLoadingFailed:
		r.recordFailure(ev)
	}
}

func (r *eventRecorder) recordConsole(ev *runtime.EventConsoleAPICalled) {
	args := make([]string, 0, len(ev.Args))
	for _, arg := range ev.Args {
		args = append(args, remoteObjectText(arg))
	}

	msg := ConsoleMessage{
		Type:      string(ev.Type),
		Text:      strings.Join(args, " "),
		Timestamp: time.Now(),
	}

	r.mu.Lock()
	r.console = append(r.console, msg)
	r.mu.Unlock()

	if r.sink != nil {
		consoleEntry(r.sink, ev.Type).
			Str("event", "console").
			Str("type", msg.Type).
			Msg(msg.Text)
	}
	r.logger.Debug().Str("type", msg.Type).Str("text", msg.Text).Msg("Browser console")
}

func (r *eventRecorder) recordException(ev *runtime.EventExceptionThrown) {
	if ev.ExceptionDetails == nil {
		return
	}

	text := ev.ExceptionDetails.Text
	if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
		text = ev.ExceptionDetails.Exception.Description
	}

	r.mu.Lock()
	r.errors = append(r.errors, text)
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.Error().
			Str("event", "exception").
			Str("url", ev.ExceptionDetails.URL).
			Int64("line", ev.ExceptionDetails.LineNumber).
			Msg(text)
	}
	r.logger.Warn().Str("error", text).Msg("Uncaught exception in page")
}

func (r *eventRecorder) recordResponse(ev *network.EventResponseReceived) {
	if ev.Response == nil {
		return
	}

	r.mu.Lock()
	method := ""
	if req, ok := r.requests[ev.RequestID]; ok {
		method = req.Method
		delete(r.requests, ev.RequestID)
	}
	entry := NetworkEvent{
		URL:       ev.Response.URL,
		Method:    method,
		Status:    ev.Response.Status,
		Timestamp: time.Now(),
	}
	r.network = append(r.network, entry)
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.Info().
			Str("event", "response").
			Str("method", entry.Method).
			Str("url", entry.URL).
			Int64("status", entry.Status).
			Msg("")
	}
}

func (r *eventRecorder) recordFailure(ev *network.EventLoadingFailed) {
	r.mu.Lock()
	entry := NetworkEvent{
		Failed:    true,
		ErrorText: ev.ErrorText,
		Timestamp: time.Now(),
	}
	if req, ok := r.requests[ev.RequestID]; ok {
		entry.URL = req.URL
		entry.Method = req.Method
		delete(r.requests, ev.RequestID)
	}
	r.network = append(r.network, entry)
	r.mu.Unlock()

	if r.sink != nil {
		r.sink.Warn().
			Str("event", "request_failed").
			Str("method", entry.Method).
			Str("url", entry.URL).
			Bool("canceled", ev.Canceled).
			Msg(entry.ErrorText)
	}
	r.logger.Debug().Str("url", entry.URL).Str("error", entry.ErrorText).Msg("Browser request failed")
}

// logf writes a free-form line to the event log (session lifecycle, downloads)
func (r *eventRecorder) logf(event, format string, args ...interface{}) {
	if r.sink == nil {
		return
	}
	r.sink.Info().Str("event", event).Msgf(format, args...)
}

func (r *eventRecorder) consoleMessages() []ConsoleMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ConsoleMessage(nil), r.console...)
}

func (r *eventRecorder) pageErrors() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

func (r *eventRecorder) networkEvents() []NetworkEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]NetworkEvent(nil), r.network...)
}

func (r *eventRecorder) close() error {
	if r.file == nil {
		return nil
	}
	return r.file.Close()
}

// consoleEntry picks the event log level matching a console call type
func consoleEntry(sink *plog.Logger, t runtime.APIType) *plog.Entry {
	switch t {
	case runtime.APITypeError, runtime.APITypeAssert:
		return sink.Error()
	case runtime.APITypeWarning:
		return sink.Warn()
	case runtime.APITypeDebug, runtime.APITypeTrace:
		return sink.Debug()
	default:
		return sink.Info()
	}
}

// remoteObjectText renders a console argument the way DevTools would show it
func remoteObjectText(obj *runtime.RemoteObject) string {
	if obj == nil {
		return ""
	}
	if len(obj.Value) > 0 {
		var s string
		if err := json.Unmarshal([]byte(obj.Value), &s); err == nil {
			return s
		}
		return string(obj.Value)
	}
	if obj.Description != "" {
		return obj.Description
	}
	return string(obj.Type)
}
