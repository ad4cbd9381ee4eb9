package scenario

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ternarybob/barcheck/internal/contract"
	"github.com/ternarybob/barcheck/internal/interact"
)

const roundTripText = "ROUNDTRIP 42"

// noBarcodeMessage is true once any message area tells the user nothing was found
const noBarcodeMessage = `() => ['#mainMessageArea', '#scannerMessages', '#errorDisplay'].some((sel) => {
  const el = document.querySelector(sel);
  if (!el) return false;
  const style = window.getComputedStyle(el);
  const rect = el.getBoundingClientRect();
  return rect.width > 0 && rect.height > 0 && style.display !== 'none' &&
    /no barcode|not found/i.test(el.textContent || '');
})`

type uploadNoBarcode struct{ base }

func newUploadNoBarcode() Scenario {
	return &uploadNoBarcode{base{
		name:        "upload-no-barcode",
		description: "uploading an image without a barcode fails gracefully; a generated QR code decodes back to its input",
	}}
}

func (s *uploadNoBarcode) Run(ctx context.Context, env *Env) error {
	scratch, err := env.ScratchDir()
	if err != nil {
		return err
	}
	upload := contract.ID("imageUpload")
	qrCanvas := contract.ID("qrCanvas")

	env.Report.Step("upload plain image")
	if err := env.SwitchTab(ctx, "scanner"); err != nil {
		return err
	}
	plain := filepath.Join(scratch, "test_plain.png")
	if err := writePlainPNG(plain, 300, 200, lightBlue); err != nil {
		return err
	}
	if err := env.Page.Upload(ctx, upload, plain); err != nil {
		return err
	}
	if _, err := env.Expect(ctx, "a 'no barcode found' message is shown", interact.Condition(noBarcodeMessage), env.Timeout); err != nil {
		return err
	}
	if err := env.Shot(ctx, "upload_plain"); err != nil {
		return err
	}

	visible, err := env.Page.IsVisible(ctx, qrCanvas)
	if err != nil {
		return err
	}
	env.Report.Check("#qrCanvas stays visible", visible, env.Page.Snapshot(ctx, qrCanvas))

	stats, err := env.Page.CanvasStats(ctx, qrCanvas)
	if err != nil {
		return err
	}
	env.Report.Check("#qrCanvas shows the uploaded image", stats.NonTransparent > 0, stats.Payload())
	env.CheckNoPageErrors("no unhandled promise rejection")

	env.Report.Step("round-trip a generated QR code")
	if err := env.SwitchTab(ctx, "generator"); err != nil {
		return err
	}
	if err := env.Page.SelectOption(ctx, contract.ID("outputFormat"), "canvas"); err != nil {
		return err
	}
	if err := env.Generate(ctx, "qrcode", roundTripText); err != nil {
		return err
	}
	dataURL, err := env.Page.CanvasDataURL(ctx, outputContainer)
	if err != nil {
		return err
	}
	generated := filepath.Join(scratch, "generated_qr.png")
	if err := writeDataURL(generated, dataURL); err != nil {
		return err
	}

	if err := env.SwitchTab(ctx, "scanner"); err != nil {
		return err
	}
	if err := env.Page.Upload(ctx, upload, generated); err != nil {
		return err
	}
	decoded := interact.Condition(fmt.Sprintf(
		`() => (document.getElementById('scanResult')?.textContent || '').trim() === %q`, roundTripText))
	ok, err := env.Expect(ctx, "decoded text matches the generated input", decoded, env.Timeout)
	if err != nil {
		return err
	}
	if !ok {
		env.Report.Check("scan result snapshot", false, env.Page.Snapshot(ctx, contract.ID("scanResult")))
	}
	return env.Shot(ctx, "upload_generated")
}

type tabNavigation struct{ base }

func newTabNavigation() Scenario {
	return &tabNavigation{base{
		name:        "tab-navigation",
		description: "each tab button shows its own panel and hides the others",
	}}
}

func (s *tabNavigation) Run(ctx context.Context, env *Env) error {
	for _, tab := range env.Contract.Tabs {
		env.Report.Step("open " + tab.Name)
		if err := env.Page.Click(ctx, tab.Button); err != nil {
			return err
		}
		if _, err := env.Expect(ctx, tab.Name+" panel is visible", interact.Selector(tab.Panel), env.Timeout); err != nil {
			return err
		}

		for _, other := range env.Contract.Tabs {
			if other.Name == tab.Name {
				continue
			}
			visible, err := env.Page.IsVisible(ctx, other.Panel)
			if err != nil {
				return err
			}
			env.Report.Check(other.Name+" panel is hidden", !visible, env.Page.Snapshot(ctx, other.Panel))
		}

		if err := env.Shot(ctx, "tab_"+tab.Name); err != nil {
			return err
		}
	}
	return nil
}
