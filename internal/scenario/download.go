package scenario

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"

	"github.com/ternarybob/barcheck/internal/contract"
	"github.com/ternarybob/barcheck/internal/interact"
)

const downloadButton = ".secondary-button"

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

type downloadPNG struct{ base }

func newDownloadPNG() Scenario {
	return &downloadPNG{base{
		name:        "download-png",
		description: "the download button saves the generated barcode as a PNG file and follows the output format",
	}}
}

func (s *downloadPNG) Run(ctx context.Context, env *Env) error {
	scratch, err := env.ScratchDir()
	if err != nil {
		return err
	}
	if err := env.Session.EnableDownloads(ctx, scratch); err != nil {
		return err
	}

	env.Report.Step("download PNG")
	if err := env.Page.SelectOption(ctx, contract.ID("outputFormat"), "canvas"); err != nil {
		return err
	}
	if err := env.Generate(ctx, "qrcode", "Download Test"); err != nil {
		return err
	}
	if err := env.Wait(ctx, interact.Selector(downloadButton)); err != nil {
		return err
	}

	label, err := env.Page.TextContent(ctx, downloadButton)
	if err != nil {
		return err
	}
	env.Report.Check("download button offers PNG", strings.Contains(label, "PNG"), map[string]interface{}{"label": label})

	if err := env.Page.Click(ctx, downloadButton); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, env.Timeout)
	download, err := env.Session.WaitDownload(waitCtx)
	cancel()
	env.Report.Check("a download completes", err == nil, map[string]interface{}{"error": errText(err)})
	if err == nil {
		payload := map[string]interface{}{
			"filename": download.SuggestedFilename,
			"path":     download.Path,
			"bytes":    download.Bytes,
		}
		env.Report.Check("download is named *.png", strings.HasSuffix(strings.ToLower(download.SuggestedFilename), ".png"), payload)

		data, readErr := os.ReadFile(download.Path)
		if readErr != nil {
			payload["read_error"] = readErr.Error()
		}
		isPNG := readErr == nil && bytes.HasPrefix(data, pngMagic)
		env.Report.Check("downloaded file is a PNG image", isPNG, payload)
		if isPNG {
			white, details := whiteBackground(data)
			env.Report.Check("downloaded PNG has an opaque white background", white, details)
		}
	}

	errs := env.Session.ConsoleErrors()
	env.Report.Check("no console errors while downloading", len(errs) == 0, map[string]interface{}{"console_errors": errs})
	if err := env.Shot(ctx, "download_png"); err != nil {
		return err
	}

	env.Report.Step("SVG output")
	if err := env.Page.SelectOption(ctx, contract.ID("outputFormat"), "svg"); err != nil {
		return err
	}
	if err := env.ClickGenerate(ctx); err != nil {
		return err
	}
	_, err = env.Expect(ctx, "download button offers SVG",
		interact.Condition(`() => Array.from(document.querySelectorAll('.secondary-button')).some((b) => b.textContent.includes('SVG'))`),
		env.Timeout)
	return err
}

// whiteBackground decodes a PNG and checks its background: every border
// pixel must be opaque, and the sampled corners and edge midpoints must be
// white. The top-left corner is skipped since unpadded symbols start there.
func whiteBackground(data []byte) (bool, map[string]interface{}) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return false, map[string]interface{}{"decode_error": err.Error()}
	}

	b := img.Bounds()
	details := map[string]interface{}{"width": b.Dx(), "height": b.Dy()}
	if b.Empty() {
		return false, details
	}

	translucent := 0
	for x := b.Min.X; x < b.Max.X; x++ {
		translucent += alphaGap(img, x, b.Min.Y) + alphaGap(img, x, b.Max.Y-1)
	}
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		translucent += alphaGap(img, b.Min.X, y) + alphaGap(img, b.Max.X-1, y)
	}
	details["translucent_border_pixels"] = translucent

	samples := []image.Point{
		{b.Max.X - 1, b.Min.Y},
		{b.Min.X, b.Max.Y - 1},
		{b.Max.X - 1, b.Max.Y - 1},
		{(b.Min.X + b.Max.X) / 2, b.Max.Y - 1},
		{b.Max.X - 1, (b.Min.Y + b.Max.Y) / 2},
	}
	var notWhite []string
	for _, p := range samples {
		r, g, bl, a := img.At(p.X, p.Y).RGBA()
		if r != 0xffff || g != 0xffff || bl != 0xffff || a != 0xffff {
			notWhite = append(notWhite, fmt.Sprintf("(%d,%d)=rgba(%d,%d,%d,%d)", p.X, p.Y, r>>8, g>>8, bl>>8, a>>8))
		}
	}
	if len(notWhite) > 0 {
		details["non_white_samples"] = notWhite
	}

	return translucent == 0 && len(notWhite) == 0, details
}

func alphaGap(img image.Image, x, y int) int {
	if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
		return 1
	}
	return 0
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
