package scenario

import (
	"context"
	"time"

	"github.com/ternarybob/barcheck/internal/contract"
	"github.com/ternarybob/barcheck/internal/interact"
)

// successHideWindow is how long a success message may stay up before the
// auto-hide check fails
const successHideWindow = 5 * time.Second

type contextualMessages struct{ base }

func newContextualMessages() Scenario {
	return &contextualMessages{base{
		name:        "contextual-messages",
		description: "messages appear next to the action that caused them, with styling for their kind",
	}}
}

func (s *contextualMessages) Run(ctx context.Context, env *Env) error {
	env.Report.Step("generator error")
	if err := env.SwitchTab(ctx, "generator"); err != nil {
		return err
	}
	if err := env.Page.Fill(ctx, contract.TextInput, ""); err != nil {
		return err
	}
	if err := env.ClickGenerate(ctx); err != nil {
		return err
	}
	env.CheckMessage(ctx, "generator message", generatorMessages, "error")
	if err := env.Shot(ctx, "generator_error"); err != nil {
		return err
	}

	env.Report.Step("scanner camera failure")
	if err := env.SwitchTab(ctx, "scanner"); err != nil {
		return err
	}
	err := env.Page.Evaluate(ctx, `() => {
  navigator.mediaDevices.getUserMedia = async () => {
    throw new Error('Camera access denied for testing');
  };
  return true;
}`, nil, nil)
	if err != nil {
		return err
	}
	if err := env.Page.Click(ctx, contract.ID("scanButton")); err != nil {
		return err
	}
	scanner := contract.ID("scannerMessages")
	if _, err := env.Expect(ctx, "scanner reports the camera failure",
		interact.Condition(`() => document.getElementById('scannerMessages').classList.contains('error')`), env.Timeout); err != nil {
		return err
	}
	env.CheckMessage(ctx, "scanner message", scanner, "error")
	if err := env.Shot(ctx, "scanner_error"); err != nil {
		return err
	}

	env.Report.Step("saved data")
	if err := env.SwitchTab(ctx, "savedData"); err != nil {
		return err
	}
	if err := env.Page.Click(ctx, contract.ID("clearSavedData")); err != nil {
		return err
	}
	if _, err := env.Expect(ctx, "storage message appears after clearing", interact.Selector(contract.ID("storageMessages")), env.Timeout); err != nil {
		return err
	}

	env.Report.Step("success message auto-hides")
	if err := env.SwitchTab(ctx, "generator"); err != nil {
		return err
	}
	if err := env.Generate(ctx, "qrcode", "Test QR Code"); err != nil {
		return err
	}
	env.CheckMessage(ctx, "generator message", generatorMessages, "success")
	if _, err := env.Expect(ctx, "success message hides on its own", interact.Hidden(generatorMessages), successHideWindow); err != nil {
		return err
	}

	env.Report.Step("legacy error containers")
	for _, id := range []string{"errorDisplay", "errorMessage"} {
		present, err := env.Page.Exists(ctx, contract.ID(id))
		if err != nil {
			return err
		}
		env.Report.Check("#"+id+" is still present", present, nil)
	}
	return env.Shot(ctx, "messages")
}
