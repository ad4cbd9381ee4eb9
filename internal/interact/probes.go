package interact

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Box is an element's bounding client rect in CSS pixels
type Box struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// AspectRatio returns width / height, or 0 for a zero-height box
func (b Box) AspectRatio() float64 {
	if b.Height == 0 {
		return 0
	}
	return b.Width / b.Height
}

// CenterX returns the horizontal centre of the box
func (b Box) CenterX() float64 {
	return b.X + b.Width/2
}

// IsVisible reports whether selector matches a rendered element. A missing
// element is simply not visible.
func (p *Page) IsVisible(ctx context.Context, selector string) (bool, error) {
	var visible bool
	err := p.elementCall(ctx, "is_visible", selector, `(el) => __isVisible(el)`, nil, &visible)
	if KindOf(err) == KindElementNotFound {
		return false, nil
	}
	return visible, err
}

// Exists reports whether selector matches any element
func (p *Page) Exists(ctx context.Context, selector string) (bool, error) {
	n, err := p.Count(ctx, selector)
	return n > 0, err
}

// Count returns the number of elements matching selector
func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	var n int
	expr := fmt.Sprintf(`JSON.stringify(document.querySelectorAll(%s).length)`, quote(selector))
	if err := p.evalJSON(ctx, p.timeout, expr, &n); err != nil {
		return 0, classify("count", selector, err)
	}
	return n, nil
}

// TextContent returns the trimmed text content of the element
func (p *Page) TextContent(ctx context.Context, selector string) (string, error) {
	var text string
	err := p.elementCall(ctx, "text", selector, `(el) => (el.textContent || '').trim()`, nil, &text)
	return text, err
}

// Value returns the current value property of a form control
func (p *Page) Value(ctx context.Context, selector string) (string, error) {
	var value string
	err := p.elementCall(ctx, "value", selector, `(el) => el.value === undefined ? '' : String(el.value)`, nil, &value)
	return value, err
}

// IsDisabled reports whether a form control is disabled
func (p *Page) IsDisabled(ctx context.Context, selector string) (bool, error) {
	var disabled bool
	err := p.elementCall(ctx, "is_disabled", selector, `(el) => !!el.disabled`, nil, &disabled)
	return disabled, err
}

// Attribute returns the named attribute and whether it is present
func (p *Page) Attribute(ctx context.Context, selector, name string) (string, bool, error) {
	var attr *string
	err := p.elementCall(ctx, "attribute", selector, `(el, name) => el.getAttribute(name)`, []interface{}{name}, &attr)
	if err != nil || attr == nil {
		return "", false, err
	}
	return *attr, true, nil
}

// ClassList returns the element's classes in document order
func (p *Page) ClassList(ctx context.Context, selector string) ([]string, error) {
	var classes []string
	err := p.elementCall(ctx, "class_list", selector, `(el) => Array.from(el.classList)`, nil, &classes)
	return classes, err
}

// HasClass reports whether the element carries class
func (p *Page) HasClass(ctx context.Context, selector, class string) (bool, error) {
	classes, err := p.ClassList(ctx, selector)
	if err != nil {
		return false, err
	}
	for _, c := range classes {
		if c == class {
			return true, nil
		}
	}
	return false, nil
}

// ComputedStyle returns the resolved values of the requested CSS properties
func (p *Page) ComputedStyle(ctx context.Context, selector string, properties ...string) (map[string]string, error) {
	style := make(map[string]string)
	err := p.elementCall(ctx, "computed_style", selector, `(el, props) => {
  const cs = window.getComputedStyle(el);
  const out = {};
  for (const prop of props) out[prop] = cs.getPropertyValue(prop);
  return out;
}`, []interface{}{properties}, &style)
	return style, err
}

// BoundingBox returns the element's bounding client rect
func (p *Page) BoundingBox(ctx context.Context, selector string) (Box, error) {
	var box Box
	err := p.elementCall(ctx, "bounding_box", selector, `(el) => {
  const r = el.getBoundingClientRect();
  return {x: r.x, y: r.y, width: r.width, height: r.height};
}`, nil, &box)
	return box, err
}

// Contains reports whether an element matching child exists inside parent
func (p *Page) Contains(ctx context.Context, parent, child string) (bool, error) {
	var found bool
	err := p.elementCall(ctx, "contains", parent, `(el, child) => el.querySelector(child) !== null`, []interface{}{child}, &found)
	return found, err
}

// Snapshot captures the state most assertions want to attach as diagnostics
func (p *Page) Snapshot(ctx context.Context, selector string) map[string]interface{} {
	payload := map[string]interface{}{"selector": selector}

	visible, err := p.IsVisible(ctx, selector)
	if err != nil {
		payload["error"] = err.Error()
		return payload
	}
	payload["visible"] = visible

	if text, err := p.TextContent(ctx, selector); err == nil {
		payload["text"] = truncate(text, 200)
	} else {
		payload["found"] = false
		return payload
	}
	if classes, err := p.ClassList(ctx, selector); err == nil {
		payload["classes"] = strings.Join(classes, " ")
	}
	if style, err := p.ComputedStyle(ctx, selector, "display", "visibility", "opacity"); err == nil {
		payload["style"] = style
	}
	return payload
}

// truncate cuts s to at most n bytes without splitting a rune
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
