// Package contract pins the parts of the application under test that the
// harness depends on: element IDs, the diagnostic hook object and the
// barcode-type to encoder mapping.
package contract

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Tab is one top-level panel and the button that switches to it
type Tab struct {
	Name   string
	Button string
	Panel  string
}

// Contract is one version of the DOM surface the application promises.
// RequiredIDs must appear in the served markup; RuntimeIDs are created by the
// application's scripts and can only be checked in a live page.
type Contract struct {
	Version     string
	RequiredIDs []string
	RuntimeIDs  []string
	Tabs        []Tab
	HookRoots   []string
}

// TextInput matches the generator's text field under either of its ids
const TextInput = "#textInput, #contentInput"

// V1 is the contract the built-in scenarios are written against
var V1 = Contract{
	Version: "v1",
	RequiredIDs: []string{
		"barcodeType",
		"inputContainer",
		"generateBarcodeBtn",
		"generatedBarcodeContainer",
		"barcodeOutput",
		"generatorMessages",
		"scannerMessages",
		"storageMessages",
		"errorDisplay",
		"errorMessage",
		"qrCanvas",
		"imageUpload",
		"scanButton",
		"scanResult",
		"scanResultContainer",
		"includetext",
		"padding",
		"outputFormat",
		"clearSavedData",
		"generator",
		"scanner",
		"savedData",
	},
	RuntimeIDs: []string{
		"textInput",
		"mainMessageArea",
	},
	Tabs: []Tab{
		{Name: "generator", Button: `button[onclick="switchTab('generator')"]`, Panel: "#generator"},
		{Name: "scanner", Button: `button[onclick="switchTab('scanner')"]`, Panel: "#scanner"},
		{Name: "savedData", Button: `button[onclick="switchTab('savedData')"]`, Panel: "#savedData"},
	},
	HookRoots: []string{"barcodeApp", "appModules"},
}

// ID returns the CSS selector for a contract element ID
func ID(id string) string {
	return "#" + id
}

// Tab returns the tab with the given name
func (c Contract) Tab(name string) (Tab, bool) {
	for _, t := range c.Tabs {
		if t.Name == name {
			return t, true
		}
	}
	return Tab{}, false
}

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// HookExpression builds a guarded JS expression reading a property path under
// one of the contract's hook roots, e.g. "barcodeApp.state.lastScan". Missing
// links evaluate to undefined instead of throwing.
func (c Contract) HookExpression(path string) (string, error) {
	parts := strings.Split(path, ".")
	if len(parts) == 0 || parts[0] == "" {
		return "", fmt.Errorf("empty hook path")
	}

	allowed := false
	for _, root := range c.HookRoots {
		if parts[0] == root {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf("hook path %q must start with one of %s", path, strings.Join(c.HookRoots, ", "))
	}

	for _, p := range parts {
		if !identifier.MatchString(p) {
			return "", fmt.Errorf("hook path %q has invalid segment %q", path, p)
		}
	}

	return "window?." + strings.Join(parts, "?."), nil
}

// RuntimeCheckExpression evaluates in the page to the runtime IDs that are
// missing; the text input counts as present under either id
func (c Contract) RuntimeCheckExpression() string {
	checks := make([]string, 0, len(c.RuntimeIDs))
	for _, id := range c.RuntimeIDs {
		cond := fmt.Sprintf("document.getElementById(%q)", id)
		if id == "textInput" {
			cond = fmt.Sprintf("document.querySelector(%q)", TextInput)
		}
		checks = append(checks, fmt.Sprintf("[%q, %s]", id, cond))
	}
	return fmt.Sprintf("[%s].filter(([, el]) => !el).map(([id]) => id)", strings.Join(checks, ", "))
}

// MissingIDs returns required IDs not present in ids
func (c Contract) MissingIDs(ids map[string]bool) []string {
	var missing []string
	for _, id := range c.RequiredIDs {
		if !ids[id] {
			missing = append(missing, id)
		}
	}
	sort.Strings(missing)
	return missing
}
