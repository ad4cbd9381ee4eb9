package scenario

import (
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"strings"
	"time"

	"github.com/ternarybob/barcheck/internal/contract"
	"github.com/ternarybob/barcheck/internal/interact"
)

const (
	generatedCountHook = "barcodeApp.state.generatedCount"
	outputCanvas       = "#generatedBarcodeContainer canvas"
)

var (
	barcodeTypeSelect = contract.ID("barcodeType")
	generateButton    = contract.ID("generateBarcodeBtn")
	generatorMessages = contract.ID("generatorMessages")
	outputContainer   = contract.ID("generatedBarcodeContainer")
)

// Generate selects barcodeType, enters text and clicks generate
func (e *Env) Generate(ctx context.Context, barcodeType, text string) error {
	if err := e.Page.SelectOption(ctx, barcodeTypeSelect, barcodeType); err != nil {
		return err
	}
	if err := e.Page.Fill(ctx, contract.TextInput, text); err != nil {
		return err
	}
	return e.ClickGenerate(ctx)
}

// ClickGenerate clicks the generate button and waits until the application
// has either rendered a new barcode or reported an error
func (e *Env) ClickGenerate(ctx context.Context) error {
	var before *int
	if err := e.Hook(ctx, generatedCountHook, &before); err != nil {
		return err
	}
	count := -1
	if before != nil {
		count = *before
	}

	if err := e.Page.Click(ctx, generateButton); err != nil {
		return err
	}

	hook, err := e.Contract.HookExpression(generatedCountHook)
	if err != nil {
		return err
	}
	return e.Wait(ctx, interact.Condition(fmt.Sprintf(`() => {
  const msg = document.querySelector(%q);
  if (msg && msg.classList.contains('error')) return true;
  const count = %s;
  if (typeof count === 'number' && %d >= 0) return count > %d;
  return !!document.querySelector('#generatedBarcodeContainer canvas, #generatedBarcodeContainer svg');
}`, generatorMessages, hook, count, count)))
}

// SwitchTab clicks a tab button and waits for its panel to show
func (e *Env) SwitchTab(ctx context.Context, name string) error {
	tab, ok := e.Contract.Tab(name)
	if !ok {
		return fmt.Errorf("contract %s has no tab %q", e.Contract.Version, name)
	}
	if err := e.Page.Click(ctx, tab.Button); err != nil {
		return err
	}
	return e.Wait(ctx, interact.Selector(tab.Panel))
}

// Expect waits up to timeout for cond and records the outcome as an
// assertion. Only errors other than a timeout are returned.
func (e *Env) Expect(ctx context.Context, what string, cond interact.WaitCondition, timeout time.Duration) (bool, error) {
	err := e.Page.WaitFor(ctx, cond, timeout)
	if err != nil && interact.KindOf(err) != interact.KindTimeout {
		return false, err
	}

	payload := map[string]interface{}{"condition": cond.String(), "timeout": timeout.String()}
	if err != nil {
		payload["error"] = err.Error()
	}
	return e.Report.Check(what, err == nil, payload), nil
}

// CheckMessage asserts that selector is showing a message of the given kind
// (error, success, info) and returns its text
func (e *Env) CheckMessage(ctx context.Context, what, selector, kind string) string {
	snap := e.Page.Snapshot(ctx, selector)
	visible, _ := snap["visible"].(bool)
	text, _ := snap["text"].(string)
	classes, _ := snap["classes"].(string)

	e.Report.Check(what+" is visible", visible, snap)
	e.Report.Check(fmt.Sprintf("%s has %q class", what, kind), hasWord(classes, kind), snap)
	e.Report.Check(what+" has text", strings.TrimSpace(text) != "", snap)
	return text
}

// CheckNoPageErrors asserts that no uncaught exception or unhandled
// rejection reached the console
func (e *Env) CheckNoPageErrors(what string) {
	errs := e.Session.PageErrors()
	var rejections []string
	for _, msg := range e.Session.ConsoleErrors() {
		lower := strings.ToLower(msg)
		if strings.Contains(lower, "unhandled") || strings.Contains(lower, "rejection") {
			rejections = append(rejections, msg)
		}
	}
	e.Report.Check(what, len(errs) == 0 && len(rejections) == 0, map[string]interface{}{
		"page_errors":       errs,
		"console_rejection": rejections,
	})
}

func hasWord(list, word string) bool {
	for _, w := range strings.Fields(list) {
		if w == word {
			return true
		}
	}
	return false
}

// writePlainPNG writes a solid-colour image with no barcode in it
func writePlainPNG(path string, width, height int, fill color.Color) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, fill)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return nil
}

// writeDataURL decodes a base64 data URL and writes its bytes to path
func writeDataURL(path, dataURL string) error {
	idx := strings.Index(dataURL, ";base64,")
	if !strings.HasPrefix(dataURL, "data:") || idx < 0 {
		return fmt.Errorf("not a base64 data URL")
	}
	raw, err := base64.StdEncoding.DecodeString(dataURL[idx+len(";base64,"):])
	if err != nil {
		return fmt.Errorf("failed to decode data URL: %w", err)
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// lightBlue is the CSS lightblue used for the plain upload image
var lightBlue = color.RGBA{R: 173, G: 216, B: 230, A: 255}
