package interact

import (
	"context"
)

// CanvasStats summarises the pixels of a rendered canvas
type CanvasStats struct {
	Width          int    `json:"width"`
	Height         int    `json:"height"`
	Total          int    `json:"total"`
	NonWhite       int    `json:"nonWhite"`       // Opaque-ish pixels darker than near-white
	NonTransparent int    `json:"nonTransparent"` // Alpha above zero
	Dark           int    `json:"dark"`           // Luminance below 128
	Histogram      [8]int `json:"histogram"`      // Luminance in eight equal buckets
}

// HasContent reports whether anything was drawn
func (s CanvasStats) HasContent() bool {
	return s.NonWhite > 0
}

// Payload renders the stats as assertion diagnostics
func (s CanvasStats) Payload() map[string]interface{} {
	return map[string]interface{}{
		"width":           s.Width,
		"height":          s.Height,
		"total":           s.Total,
		"non_white":       s.NonWhite,
		"non_transparent": s.NonTransparent,
		"dark":            s.Dark,
		"histogram":       s.Histogram,
	}
}

// canvasJS resolves selector to a canvas (the element itself or the first
// canvas inside it) and scans every pixel
const canvasJS = `(el) => {
  const canvas = el.tagName.toLowerCase() === 'canvas' ? el : el.querySelector('canvas');
  if (!canvas) return null;
  const out = {width: canvas.width, height: canvas.height, total: 0, nonWhite: 0, nonTransparent: 0, dark: 0, histogram: [0,0,0,0,0,0,0,0]};
  if (canvas.width === 0 || canvas.height === 0) return out;
  const data = canvas.getContext('2d').getImageData(0, 0, canvas.width, canvas.height).data;
  for (let i = 0; i < data.length; i += 4) {
    const r = data[i], g = data[i + 1], b = data[i + 2], a = data[i + 3];
    out.total++;
    if (a > 0) out.nonTransparent++;
    if (a > 0 && (r < 250 || g < 250 || b < 250)) out.nonWhite++;
    const lum = 0.2126 * r + 0.7152 * g + 0.0722 * b;
    if (a > 0 && lum < 128) out.dark++;
    out.histogram[Math.min(7, Math.floor(lum / 32))]++;
  }
  return out;
}`

// CanvasStats scans the canvas at selector (or the first canvas inside it).
// Fails with ElementNotFound when no canvas exists.
func (p *Page) CanvasStats(ctx context.Context, selector string) (CanvasStats, error) {
	var stats *CanvasStats
	if err := p.elementCall(ctx, "canvas_stats", selector, canvasJS, nil, &stats); err != nil {
		return CanvasStats{}, err
	}
	if stats == nil {
		return CanvasStats{}, newError(KindElementNotFound, "canvas_stats", selector, "no canvas inside element")
	}
	return *stats, nil
}

// CanvasDataURL returns the canvas contents as a PNG data URL
func (p *Page) CanvasDataURL(ctx context.Context, selector string) (string, error) {
	var url *string
	err := p.elementCall(ctx, "canvas_data_url", selector, `(el) => {
  const canvas = el.tagName.toLowerCase() === 'canvas' ? el : el.querySelector('canvas');
  return canvas ? canvas.toDataURL('image/png') : null;
}`, nil, &url)
	if err != nil {
		return "", err
	}
	if url == nil {
		return "", newError(KindElementNotFound, "canvas_data_url", selector, "no canvas inside element")
	}
	return *url, nil
}
