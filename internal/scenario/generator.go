package scenario

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/ternarybob/barcheck/internal/contract"
	"github.com/ternarybob/barcheck/internal/interact"
)

const (
	squareClass       = "square-barcode-container"
	centerTolerancePx = 5.0
	minLinearAspect   = 1.2
)

type qrPadding struct{ base }

func newQRPadding() Scenario {
	return &qrPadding{base{
		name:        "qr-padding",
		description: "QR code generated with padding 20 renders a non-blank canvas inside the output container",
	}}
}

func (s *qrPadding) Run(ctx context.Context, env *Env) error {
	env.Report.Step("generate QR code with padding 20")
	if err := env.Page.SelectOption(ctx, barcodeTypeSelect, "qrcode"); err != nil {
		return err
	}
	if err := env.Page.Fill(ctx, contract.TextInput, "PADDING TEST"); err != nil {
		return err
	}
	if err := env.Page.Fill(ctx, contract.ID("padding"), "20"); err != nil {
		return err
	}
	if err := env.ClickGenerate(ctx); err != nil {
		return err
	}
	if err := env.Wait(ctx, interact.Selector(outputCanvas)); err != nil {
		return err
	}
	if err := env.Shot(ctx, "qr_padding"); err != nil {
		return err
	}

	env.Report.Step("inspect rendered canvas")
	padding, err := env.Page.Value(ctx, contract.ID("padding"))
	if err != nil {
		return err
	}
	env.Report.Check("padding input holds 20", padding == "20", map[string]interface{}{"value": padding})

	inside, err := env.Page.Contains(ctx, outputContainer, "canvas")
	if err != nil {
		return err
	}
	env.Report.Check("canvas is inside #generatedBarcodeContainer", inside, env.Page.Snapshot(ctx, outputContainer))

	stats, err := env.Page.CanvasStats(ctx, outputContainer)
	if err != nil {
		return err
	}
	env.Report.Check("canvas has non-white pixels", stats.HasContent(), stats.Payload())
	return nil
}

type code128Aspect struct{ base }

func newCode128Aspect() Scenario {
	return &code128Aspect{base{
		name:        "code128-aspect",
		description: "switching from QR code to Code 128 drops the square container and renders a wide barcode",
	}}
}

func (s *code128Aspect) Run(ctx context.Context, env *Env) error {
	env.Report.Step("generate QR code")
	if err := env.Generate(ctx, "qrcode", "Test QR Code"); err != nil {
		return err
	}
	square, err := env.Page.HasClass(ctx, outputContainer, squareClass)
	if err != nil {
		return err
	}
	env.Report.Check("QR code container is square", square, env.Page.Snapshot(ctx, outputContainer))

	env.Report.Step("generate Code 128")
	if err := env.Generate(ctx, "code128", "Test123"); err != nil {
		return err
	}
	if err := env.Shot(ctx, "code128"); err != nil {
		return err
	}

	square, err = env.Page.HasClass(ctx, outputContainer, squareClass)
	if err != nil {
		return err
	}
	env.Report.Check("Code 128 container is not square", !square, env.Page.Snapshot(ctx, outputContainer))

	box, err := env.Page.BoundingBox(ctx, outputCanvas)
	if err != nil {
		return err
	}
	env.Report.Check(fmt.Sprintf("Code 128 aspect ratio above %.1f", minLinearAspect), box.AspectRatio() > minLinearAspect, map[string]interface{}{
		"width":  box.Width,
		"height": box.Height,
		"ratio":  box.AspectRatio(),
	})
	return nil
}

type humanReadableText struct{ base }

func newHumanReadableText() Scenario {
	return &humanReadableText{base{
		name:        "human-readable-text",
		description: "the human-readable text option is disabled exactly for 2D symbologies",
	}}
}

func (s *humanReadableText) Run(ctx context.Context, env *Env) error {
	includetext := contract.ID("includetext")
	group := ".form-group:has(#includetext)"

	env.Report.Step("toggle every barcode type")
	for _, bt := range contract.BarcodeTypes {
		if err := env.Page.SelectOption(ctx, barcodeTypeSelect, bt.Name); err != nil {
			return err
		}

		disabled, err := env.Page.IsDisabled(ctx, includetext)
		if err != nil {
			return err
		}
		greyed, err := env.Page.HasClass(ctx, group, "disabled-option")
		if err != nil {
			return err
		}
		value, err := env.Page.Value(ctx, includetext)
		if err != nil {
			return err
		}
		payload := map[string]interface{}{"type": bt.Name, "disabled": disabled, "disabled_option": greyed, "value": value}

		if bt.HumanReadable() {
			env.Report.Check(bt.Name+": text option enabled", !disabled && !greyed, payload)
			continue
		}

		env.Report.Check(bt.Name+": text option disabled", disabled && greyed, payload)
		env.Report.Check(bt.Name+": text option reset to false", value == "false", payload)

		info, err := env.Page.TextContent(ctx, group+" .info-message")
		if err != nil && interact.KindOf(err) != interact.KindElementNotFound {
			return err
		}
		env.Report.Check(bt.Name+": explains why text is unavailable",
			strings.Contains(info, "encodes text within the pattern itself"),
			map[string]interface{}{"type": bt.Name, "info": info})
	}
	if err := env.Shot(ctx, "includetext_2d"); err != nil {
		return err
	}

	env.Report.Step("text below a linear barcode adds height")
	heights := make(map[string]int)
	for _, show := range []string{"false", "true"} {
		if err := env.Page.SelectOption(ctx, barcodeTypeSelect, "ean13"); err != nil {
			return err
		}
		if err := env.Page.SelectOption(ctx, includetext, show); err != nil {
			return err
		}
		if err := env.Page.Fill(ctx, contract.TextInput, "123456789012"); err != nil {
			return err
		}
		if err := env.ClickGenerate(ctx); err != nil {
			return err
		}
		stats, err := env.Page.CanvasStats(ctx, outputContainer)
		if err != nil {
			return err
		}
		heights[show] = stats.Height
	}
	env.Report.Check("EAN-13 with text is taller than without", heights["true"] > heights["false"], map[string]interface{}{
		"with_text":    heights["true"],
		"without_text": heights["false"],
	})
	return env.Shot(ctx, "includetext_ean13")
}

type barcodeCentering struct{ base }

func newBarcodeCentering() Scenario {
	return &barcodeCentering{base{
		name:        "barcode-centering",
		description: "generated barcodes are horizontally centred in the output area and square types get the square container",
	}}
}

func (s *barcodeCentering) Run(ctx context.Context, env *Env) error {
	for _, name := range []string{"qrcode", "code128", "ean13"} {
		bt, _ := contract.Lookup(name)
		env.Report.Step("centre " + bt.Label)

		if err := env.Generate(ctx, bt.Name, bt.SampleInput); err != nil {
			return err
		}

		canvas, err := env.Page.BoundingBox(ctx, outputCanvas)
		if err != nil {
			return err
		}
		area, err := env.Page.BoundingBox(ctx, contract.ID("barcodeOutput"))
		if err != nil {
			return err
		}
		offset := math.Abs(canvas.CenterX() - area.CenterX())
		env.Report.Check(fmt.Sprintf("%s centred within %.0fpx", bt.Name, centerTolerancePx), offset <= centerTolerancePx, map[string]interface{}{
			"canvas_center": canvas.CenterX(),
			"output_center": area.CenterX(),
			"offset":        offset,
		})

		square, err := env.Page.HasClass(ctx, outputContainer, squareClass)
		if err != nil {
			return err
		}
		env.Report.Check(fmt.Sprintf("%s square container is %t", bt.Name, bt.Square), square == bt.Square, map[string]interface{}{
			"has_square_class": square,
			"aspect_ratio":     canvas.AspectRatio(),
		})

		if err := env.Shot(ctx, "centering_"+bt.Name); err != nil {
			return err
		}
	}
	return nil
}

type encoderMapping struct{ base }

func newEncoderMapping() Scenario {
	return &encoderMapping{base{
		name:        "encoder-mapping",
		description: "every pinned barcode type renders with content through its pinned encoder",
	}}
}

func (s *encoderMapping) Run(ctx context.Context, env *Env) error {
	if err := env.Page.SelectOption(ctx, contract.ID("outputFormat"), "canvas"); err != nil {
		return err
	}

	for _, bt := range contract.BarcodeTypes {
		env.Report.Step(bt.Label)
		if err := env.Generate(ctx, bt.Name, bt.SampleInput); err != nil {
			return err
		}

		errored, err := env.Page.HasClass(ctx, generatorMessages, "error")
		if err != nil {
			return err
		}
		env.Report.Check(bt.Name+": accepted sample input", !errored, env.Page.Snapshot(ctx, generatorMessages))
		if errored {
			continue
		}

		stats, err := env.Page.CanvasStats(ctx, outputContainer)
		if err != nil {
			return err
		}
		env.Report.Check(bt.Name+": canvas has content", stats.HasContent(), stats.Payload())

		// Applications without the hook only get the rendering check
		var encoder *string
		if err := env.Hook(ctx, "barcodeApp.state.lastGenerated.encoder", &encoder); err != nil {
			return err
		}
		if encoder != nil {
			env.Report.Check(fmt.Sprintf("%s: rendered by %s", bt.Name, bt.Encoder), *encoder == bt.Encoder, map[string]interface{}{
				"expected": bt.Encoder,
				"actual":   *encoder,
			})
		}
	}
	return env.Shot(ctx, "encoders")
}
