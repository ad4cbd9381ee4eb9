package interact

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"unicode/utf8"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
)

func TestError_IsMatchesKindSentinel(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		sentinel error
	}{
		{KindElementNotFound, ErrElementNotFound},
		{KindElementNotInteractable, ErrElementNotInteractable},
		{KindOptionNotFound, ErrOptionNotFound},
		{KindTimeout, ErrTimeout},
		{KindScript, ErrScript},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fmt.Errorf("step 3: %w", newError(tt.kind, "click", "#btn", ""))

			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(err))

			for _, other := range sentinels {
				if other != tt.sentinel {
					assert.NotErrorIs(t, err, other)
				}
			}
		})
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{
		Kind:     KindOptionNotFound,
		Op:       "select",
		Selector: "#barcodeType",
		Detail:   `no option with value "nope"`,
	}
	assert.Equal(t, `select: option not found (#barcodeType): no option with value "nope"`, err.Error())

	wrapped := &Error{Kind: KindScript, Op: "evaluate", Err: errors.New("boom")}
	assert.Equal(t, "evaluate: script error: boom", wrapped.Error())
	assert.Equal(t, "boom", errors.Unwrap(wrapped).Error())
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"wrapped deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), KindTimeout},
		{"polling timeout", chromedp.ErrPollingTimeout, KindTimeout},
		{"exception", &runtime.ExceptionDetails{Text: "ReferenceError: x is not defined"}, KindScript},
		{"other", errors.New("websocket closed"), KindScript},
		{"cancelled", context.Canceled, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classify("op", "#sel", tt.err)
			assert.Error(t, err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, classify("op", "", nil))

	already := newError(KindOptionNotFound, "select", "#a", "")
	assert.Same(t, already, classify("op", "#b", already))
}

func TestKindOf_PlainError(t *testing.T) {
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))

	// "é" is two bytes; a cut at byte 2 lands inside it
	got := truncate("aé€b", 2)
	assert.Equal(t, "a...", got)
	assert.True(t, utf8.ValidString(got))

	got = truncate("€€€", 4)
	assert.Equal(t, "€...", got)
	assert.True(t, utf8.ValidString(got))

	assert.Equal(t, "a b...", abbreviate("  a\n\tb   cdef", 3))
	got = abbreviate("Übergröße Strichcode", 3)
	assert.True(t, utf8.ValidString(got), got)
}
