package interact

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chromedp/chromedp"
)

const selectJS = `(el, value) => {
  if (el.tagName.toLowerCase() !== 'select' || el.disabled) return 'not_interactable';
  const option = Array.from(el.options).find(o => o.value === value);
  if (!option) return 'option_not_found';
  el.value = value;
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return 'ok';
}`

// SelectOption sets a <select> to the option carrying value and fires input
// and change events
func (p *Page) SelectOption(ctx context.Context, selector, value string) error {
	var outcome string
	if err := p.elementCall(ctx, "select", selector, selectJS, []interface{}{value}, &outcome); err != nil {
		return err
	}

	switch outcome {
	case "ok":
		p.logger.Debug().Str("selector", selector).Str("value", value).Msg("Selected option")
		return nil
	case "option_not_found":
		return newError(KindOptionNotFound, "select", selector, fmt.Sprintf("no option with value %q", value))
	default:
		return newError(KindElementNotInteractable, "select", selector, "not an enabled <select>")
	}
}

const fillJS = `(el, text) => {
  el.focus();
  if (el.isContentEditable) {
    el.textContent = text;
  } else {
    const proto = el.tagName.toLowerCase() === 'textarea' ? HTMLTextAreaElement.prototype : HTMLInputElement.prototype;
    Object.getOwnPropertyDescriptor(proto, 'value').set.call(el, text);
  }
  el.dispatchEvent(new Event('input', {bubbles: true}));
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return true;
}`

// Fill replaces the content of a visible, enabled text control and fires
// input and change events
func (p *Page) Fill(ctx context.Context, selector, text string) error {
	st, err := p.state(ctx, "fill", selector)
	if err != nil {
		return err
	}

	switch {
	case !st.Visible:
		return newError(KindElementNotInteractable, "fill", selector, "element is hidden")
	case st.Disabled:
		return newError(KindElementNotInteractable, "fill", selector, "element is disabled")
	case st.ReadOnly:
		return newError(KindElementNotInteractable, "fill", selector, "element is read-only")
	case !st.Editable:
		return newError(KindElementNotInteractable, "fill", selector, fmt.Sprintf("<%s type=%q> is not a text control", st.Tag, st.Type))
	}

	if err := p.elementCall(ctx, "fill", selector, fillJS, []interface{}{text}, nil); err != nil {
		return err
	}

	p.logger.Debug().Str("selector", selector).Int("length", len(text)).Msg("Filled input")
	return nil
}

// Click dispatches a real mouse click at the centre of a visible, enabled
// element
func (p *Page) Click(ctx context.Context, selector string) error {
	st, err := p.state(ctx, "click", selector)
	if err != nil {
		return err
	}
	if !st.Visible {
		return newError(KindElementNotInteractable, "click", selector, "element is hidden")
	}
	if st.Disabled {
		return newError(KindElementNotInteractable, "click", selector, "element is disabled")
	}

	if err := p.run(ctx, p.timeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return classify("click", selector, err)
	}

	p.logger.Debug().Str("selector", selector).Msg("Clicked")
	return nil
}

// Upload sets the files of an <input type=file> and lets the page see the
// resulting change event
func (p *Page) Upload(ctx context.Context, selector string, files ...string) error {
	st, err := p.state(ctx, "upload", selector)
	if err != nil {
		return err
	}
	if st.Tag != "input" || st.Type != "file" {
		return newError(KindElementNotInteractable, "upload", selector, "not a file input")
	}

	abs := make([]string, 0, len(files))
	for _, f := range files {
		path, err := filepath.Abs(f)
		if err != nil {
			return &Error{Kind: KindScript, Op: "upload", Selector: selector, Err: err}
		}
		if _, err := os.Stat(path); err != nil {
			return &Error{Kind: KindScript, Op: "upload", Selector: selector, Detail: "upload file missing", Err: err}
		}
		abs = append(abs, path)
	}

	if err := p.run(ctx, p.timeout, chromedp.SetUploadFiles(selector, abs, chromedp.ByQuery)); err != nil {
		return classify("upload", selector, err)
	}

	p.logger.Debug().Str("selector", selector).Strs("files", abs).Msg("Uploaded files")
	return nil
}

// Screenshot writes a PNG of the viewport, or of the whole page when
// fullPage is set, to path
func (p *Page) Screenshot(ctx context.Context, path string, fullPage bool) error {
	var buf []byte
	var action chromedp.Action = chromedp.CaptureScreenshot(&buf)
	if fullPage {
		// Quality 100 keeps the capture lossless PNG
		action = chromedp.FullScreenshot(&buf, 100)
	}

	if err := p.run(ctx, p.timeout, action); err != nil {
		return classify("screenshot", "", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return fmt.Errorf("failed to write screenshot %s: %w", path, err)
	}

	p.logger.Debug().Str("path", path).Int("bytes", len(buf)).Msg("Screenshot saved")
	return nil
}
