package interact

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// visibleJS is a JS function deciding whether an element is rendered: it has
// a non-empty box and is not visibility:hidden
const visibleJS = `(el) => {
  const style = window.getComputedStyle(el);
  const rect = el.getBoundingClientRect();
  return rect.width > 0 && rect.height > 0 && style.visibility !== 'hidden' && style.display !== 'none';
}`

type probeResult struct {
	Found bool            `json:"found"`
	Value json.RawMessage `json:"value"`
}

// elementCall runs fn(el, ...args) against the first element matching
// selector and decodes its result into out. A missing element is reported as
// ElementNotFound.
func (p *Page) elementCall(ctx context.Context, op, selector, fn string, args []interface{}, out interface{}) error {
	encoded := make([]string, 0, len(args))
	for _, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			return &Error{Kind: KindScript, Op: op, Selector: selector, Err: err}
		}
		encoded = append(encoded, string(b))
	}

	expr := fmt.Sprintf(`(() => {
  const el = document.querySelector(%s);
  if (!el) return JSON.stringify({found: false});
  const __isVisible = %s;
  const __fn = %s;
  const __v = __fn(el, %s);
  return JSON.stringify({found: true, value: __v === undefined ? null : __v});
})()`, quote(selector), visibleJS, fn, strings.Join(encoded, ", "))

	var res probeResult
	if err := p.evalJSON(ctx, p.timeout, expr, &res); err != nil {
		return classify(op, selector, err)
	}
	if !res.Found {
		return newError(KindElementNotFound, op, selector, "")
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(res.Value, out); err != nil {
		return &Error{Kind: KindScript, Op: op, Selector: selector, Err: err}
	}
	return nil
}

// elementState is what actions need to know before touching an element
type elementState struct {
	Tag      string `json:"tag"`
	Type     string `json:"type"`
	Visible  bool   `json:"visible"`
	Disabled bool   `json:"disabled"`
	ReadOnly bool   `json:"readOnly"`
	Editable bool   `json:"editable"`
}

const stateJS = `(el) => {
  const tag = el.tagName.toLowerCase();
  const type = (el.getAttribute('type') || '').toLowerCase();
  const textTypes = ['', 'text', 'search', 'url', 'tel', 'email', 'password', 'number'];
  const editable = el.isContentEditable || tag === 'textarea' || (tag === 'input' && textTypes.includes(type));
  return {
    tag: tag,
    type: type,
    visible: __isVisible(el),
    disabled: !!el.disabled || el.closest('fieldset[disabled]') !== null,
    readOnly: !!el.readOnly,
    editable: editable,
  };
}`

func (p *Page) state(ctx context.Context, op, selector string) (elementState, error) {
	var st elementState
	err := p.elementCall(ctx, op, selector, stateJS, nil, &st)
	return st, err
}
