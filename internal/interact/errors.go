package interact

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ErrorKind classifies why an interaction could not be carried out
type ErrorKind string

const (
	KindElementNotFound        ErrorKind = "element_not_found"
	KindElementNotInteractable ErrorKind = "element_not_interactable"
	KindOptionNotFound         ErrorKind = "option_not_found"
	KindTimeout                ErrorKind = "timeout"
	KindScript                 ErrorKind = "script"
)

// Sentinels matched by errors.Is against any *Error of the same kind
var (
	ErrElementNotFound        = errors.New("element not found")
	ErrElementNotInteractable = errors.New("element not interactable")
	ErrOptionNotFound         = errors.New("option not found")
	ErrTimeout                = errors.New("timed out")
	ErrScript                 = errors.New("script error")
)

var sentinels = map[ErrorKind]error{
	KindElementNotFound:        ErrElementNotFound,
	KindElementNotInteractable: ErrElementNotInteractable,
	KindOptionNotFound:         ErrOptionNotFound,
	KindTimeout:                ErrTimeout,
	KindScript:                 ErrScript,
}

// Error is returned by every failed interaction. Selector is empty for
// page-level operations such as Evaluate.
type Error struct {
	Kind     ErrorKind
	Op       string
	Selector string
	Detail   string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + sentinels[e.Kind].Error()
	if e.Selector != "" {
		msg += fmt.Sprintf(" (%s)", e.Selector)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func newError(kind ErrorKind, op, selector, detail string) *Error {
	return &Error{Kind: kind, Op: op, Selector: selector, Detail: detail}
}

// classify wraps a failure from chromedp into an *Error
func classify(op, selector string, err error) error {
	if err == nil {
		return nil
	}

	var ie *Error
	if errors.As(err, &ie) {
		return err
	}

	kind := KindScript
	var exception *runtime.ExceptionDetails
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, chromedp.ErrPollingTimeout):
		kind = KindTimeout
	case errors.As(err, &exception):
		kind = KindScript
	case errors.Is(err, context.Canceled):
		// Cancellation is not an interaction failure; pass it through
		return fmt.Errorf("%s: %w", op, err)
	}

	return &Error{Kind: kind, Op: op, Selector: selector, Err: err}
}

// KindOf returns the kind of an interaction error, or "" for other errors
func KindOf(err error) ErrorKind {
	var ie *Error
	if errors.As(err, &ie) {
		return ie.Kind
	}
	return ""
}
