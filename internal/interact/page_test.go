package interact

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPage_InteractionErrors(t *testing.T) {
	ctx, page, _ := openFixture(t)

	err := page.SelectOption(ctx, "#missing", "qrcode")
	assert.ErrorIs(t, err, ErrElementNotFound)

	err = page.SelectOption(ctx, "#barcodeType", "klingon")
	assert.ErrorIs(t, err, ErrOptionNotFound)

	err = page.SelectOption(ctx, "#textInput", "qrcode")
	assert.ErrorIs(t, err, ErrElementNotInteractable)

	err = page.Fill(ctx, "#missing", "x")
	assert.ErrorIs(t, err, ErrElementNotFound)

	for _, sel := range []string{"#readonlyInput", "#disabledInput", "#checkbox", "#hiddenBox"} {
		err = page.Fill(ctx, sel, "x")
		assert.ErrorIs(t, err, ErrElementNotInteractable, sel)
	}

	err = page.Click(ctx, "#hiddenBox")
	assert.ErrorIs(t, err, ErrElementNotInteractable)

	err = page.Click(ctx, "#disabledBtn")
	assert.ErrorIs(t, err, ErrElementNotInteractable)

	err = page.Click(ctx, "#nothing-here")
	assert.ErrorIs(t, err, ErrElementNotFound)
}

func TestPage_WaitForZeroTimeoutFailsImmediately(t *testing.T) {
	ctx, page, _ := openFixture(t)

	start := time.Now()
	err := page.WaitFor(ctx, Condition("document.getElementById('never') !== null"), 0)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, elapsed, time.Second)

	// A condition already true passes even with zero timeout
	assert.NoError(t, page.WaitFor(ctx, Selector("#generateBarcodeBtn"), 0))
}

func TestPage_WaitForPolls(t *testing.T) {
	ctx, page, _ := openFixture(t)

	require.NoError(t, page.Evaluate(ctx, `() => { setTimeout(() => { window.lateFlag = true; }, 300); }`, nil, nil))
	assert.NoError(t, page.WaitFor(ctx, Condition("window.lateFlag === true"), 3*time.Second))

	err := page.WaitFor(ctx, Selector("#hiddenBox"), 300*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)

	// Throwing predicates count as false rather than script errors
	err = page.WaitFor(ctx, Condition("document.querySelector('#nope').value === 'x'"), 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestPage_StepOrderChangesOutcome(t *testing.T) {
	ctx, page, _ := openFixture(t)

	// Generate before filling: the application reports the missing input
	require.NoError(t, page.SelectOption(ctx, "#barcodeType", "code128"))
	require.NoError(t, page.Click(ctx, "#generateBarcodeBtn"))
	require.NoError(t, page.WaitFor(ctx, Selector("#generatorMessages"), 2*time.Second))

	hasErr, err := page.HasClass(ctx, "#generatorMessages", "error")
	require.NoError(t, err)
	assert.True(t, hasErr)

	_, err = page.CanvasStats(ctx, "#generatedBarcodeContainer")
	assert.ErrorIs(t, err, ErrElementNotFound)

	// Fill first, then generate: a barcode is drawn
	require.NoError(t, page.Fill(ctx, "#textInput", "ORDER TEST"))
	require.NoError(t, page.Click(ctx, "#generateBarcodeBtn"))
	require.NoError(t, page.WaitFor(ctx, Selector("#generatedBarcodeContainer canvas"), 2*time.Second))

	stats, err := page.CanvasStats(ctx, "#generatedBarcodeContainer")
	require.NoError(t, err)
	assert.True(t, stats.HasContent())
	assert.Equal(t, 300, stats.Width)
	assert.Equal(t, 100, stats.Height)
	assert.Equal(t, stats.Width*stats.Height, stats.Total)

	box, err := page.BoundingBox(ctx, "#generatedBarcodeContainer canvas")
	require.NoError(t, err)
	assert.Greater(t, box.AspectRatio(), 1.2)
}

func TestPage_SelectThenAssertIsIdempotent(t *testing.T) {
	ctx, page, _ := openFixture(t)

	require.NoError(t, page.Fill(ctx, "#textInput", "IDEMPOTENT"))

	var results [][]string
	for i := 0; i < 2; i++ {
		require.NoError(t, page.SelectOption(ctx, "#barcodeType", "qrcode"))
		require.NoError(t, page.Click(ctx, "#generateBarcodeBtn"))
		require.NoError(t, page.WaitFor(ctx, Condition(`document.querySelector('#generatedBarcodeContainer canvas') !== null`), 2*time.Second))

		classes, err := page.ClassList(ctx, "#generatedBarcodeContainer")
		require.NoError(t, err)
		results = append(results, classes)
	}

	assert.Equal(t, results[0], results[1])
	assert.Contains(t, results[0], "square-barcode-container")

	var changes int
	require.NoError(t, page.Evaluate(ctx, `() => window.barcodeApp.state.changes`, nil, &changes))
	assert.Equal(t, 2, changes)
}

func TestPage_WaitHiddenAfterAutoHide(t *testing.T) {
	ctx, page, _ := openFixture(t)

	require.NoError(t, page.Fill(ctx, "#textInput", "HIDE"))
	require.NoError(t, page.Click(ctx, "#generateBarcodeBtn"))
	require.NoError(t, page.WaitFor(ctx, Selector("#generatorMessages.success"), 2*time.Second))
	assert.NoError(t, page.WaitHidden(ctx, "#generatorMessages", 3*time.Second))

	visible, err := page.IsVisible(ctx, "#generatorMessages")
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestPage_EvaluateWithArgsAndPromises(t *testing.T) {
	ctx, page, _ := openFixture(t)

	var sum int
	require.NoError(t, page.Evaluate(ctx, `(a, b) => a + b`, []interface{}{2, 3}, &sum))
	assert.Equal(t, 5, sum)

	var resolved map[string]interface{}
	require.NoError(t, page.Evaluate(ctx, `(name) => new Promise(r => setTimeout(() => r({hello: name}), 50))`, []interface{}{"barcheck"}, &resolved))
	assert.Equal(t, "barcheck", resolved["hello"])

	var title string
	require.NoError(t, page.Evaluate(ctx, `document.title`, nil, &title))
	assert.Equal(t, "interact fixture", title)

	err := page.Evaluate(ctx, `() => { throw new Error('kaput'); }`, nil, nil)
	assert.ErrorIs(t, err, ErrScript)
}

func TestPage_Probes(t *testing.T) {
	ctx, page, _ := openFixture(t)

	value, ok, err := page.Attribute(ctx, "#padding", "type")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "number", value)

	_, ok, err = page.Attribute(ctx, "#padding", "data-missing")
	require.NoError(t, err)
	assert.False(t, ok)

	disabled, err := page.IsDisabled(ctx, "#disabledInput")
	require.NoError(t, err)
	assert.True(t, disabled)

	padding, err := page.Value(ctx, "#padding")
	require.NoError(t, err)
	assert.Equal(t, "10", padding)

	style, err := page.ComputedStyle(ctx, "#hiddenBox", "display")
	require.NoError(t, err)
	assert.Equal(t, "none", style["display"])

	text, err := page.TextContent(ctx, "#hiddenBox")
	require.NoError(t, err)
	assert.Equal(t, "secret", text)

	n, err := page.Count(ctx, "input")
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	visible, err := page.IsVisible(ctx, "#doesNotExist")
	require.NoError(t, err)
	assert.False(t, visible)

	snapshot := page.Snapshot(ctx, "#hiddenBox")
	assert.Equal(t, false, snapshot["visible"])
	assert.Equal(t, "secret", snapshot["text"])
}

func TestPage_ScreenshotAndCanvasDataURL(t *testing.T) {
	ctx, page, _ := openFixture(t)

	require.NoError(t, page.Fill(ctx, "#textInput", "SHOT"))
	require.NoError(t, page.Click(ctx, "#generateBarcodeBtn"))
	require.NoError(t, page.WaitFor(ctx, Selector("#generatedBarcodeContainer canvas"), 2*time.Second))

	dir := t.TempDir()
	for _, full := range []bool{false, true} {
		path := filepath.Join(dir, "shots", map[bool]string{false: "viewport.png", true: "full.png"}[full])
		require.NoError(t, page.Screenshot(ctx, path, full))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")), path)
	}

	url, err := page.CanvasDataURL(ctx, "#generatedBarcodeContainer")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "data:image/png;base64,"))
}

func TestPage_Upload(t *testing.T) {
	ctx, page, _ := openFixture(t)

	path := filepath.Join(t.TempDir(), "plain.png")
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.Black)
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	require.NoError(t, page.Upload(ctx, "#imageUpload", path))
	require.NoError(t, page.WaitFor(ctx, Condition(`document.getElementById('uploadName').textContent === 'plain.png'`), 2*time.Second))

	err = page.Upload(ctx, "#textInput", path)
	assert.ErrorIs(t, err, ErrElementNotInteractable)

	err = page.Upload(ctx, "#imageUpload", filepath.Join(t.TempDir(), "missing.png"))
	assert.ErrorIs(t, err, ErrScript)
}
