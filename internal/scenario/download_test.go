package scenario

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func filled(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func TestWhiteBackground(t *testing.T) {
	white := filled(40, 20, color.White)
	// Symbol data in the top-left corner and the interior
	white.Set(0, 0, color.Black)
	white.Set(20, 10, color.Black)

	ok, details := whiteBackground(encodePNG(t, white))
	assert.True(t, ok, details)
	assert.Equal(t, 0, details["translucent_border_pixels"])

	ok, details = whiteBackground(encodePNG(t, filled(40, 20, color.Transparent)))
	assert.False(t, ok)
	assert.Equal(t, 2*40+2*18, details["translucent_border_pixels"])
	assert.NotEmpty(t, details["non_white_samples"])

	// Opaque but not white
	ok, details = whiteBackground(encodePNG(t, filled(40, 20, color.NRGBA{R: 240, G: 240, B: 240, A: 255})))
	assert.False(t, ok)
	assert.Equal(t, 0, details["translucent_border_pixels"])
	assert.Len(t, details["non_white_samples"], 5)

	// One half-transparent edge pixel is enough to fail
	edge := filled(40, 20, color.White)
	edge.Set(0, 10, color.NRGBA{R: 255, G: 255, B: 255, A: 128})
	ok, details = whiteBackground(encodePNG(t, edge))
	assert.False(t, ok)
	assert.Equal(t, 1, details["translucent_border_pixels"])
}

func TestWhiteBackground_NotPNG(t *testing.T) {
	ok, details := whiteBackground([]byte("GIF89a"))
	assert.False(t, ok)
	assert.Contains(t, details, "decode_error")
}
