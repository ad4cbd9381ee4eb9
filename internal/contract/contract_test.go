package contract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHookExpression(t *testing.T) {
	expr, err := V1.HookExpression("barcodeApp.state.lastScan")
	require.NoError(t, err)
	assert.Equal(t, "window?.barcodeApp?.state?.lastScan", expr)

	expr, err = V1.HookExpression("appModules")
	require.NoError(t, err)
	assert.Equal(t, "window?.appModules", expr)
}

func TestHookExpression_Rejects(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"empty", ""},
		{"unknown root", "document.cookie"},
		{"call", "barcodeApp.state.reset()"},
		{"empty segment", "barcodeApp..state"},
		{"index", "barcodeApp.state[0]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := V1.HookExpression(tt.path)
			assert.Error(t, err)
		})
	}
}

func TestRuntimeCheckExpression(t *testing.T) {
	expr := V1.RuntimeCheckExpression()

	assert.Contains(t, expr, `document.querySelector("#textInput, #contentInput")`)
	assert.Contains(t, expr, `document.getElementById("mainMessageArea")`)
	assert.Contains(t, expr, ".filter(")
}

func TestMissingIDs(t *testing.T) {
	ids := make(map[string]bool)
	for _, id := range V1.RequiredIDs {
		ids[id] = true
	}
	assert.Empty(t, V1.MissingIDs(ids))

	delete(ids, "qrCanvas")
	delete(ids, "barcodeType")
	assert.Equal(t, []string{"barcodeType", "qrCanvas"}, V1.MissingIDs(ids))
}

func TestTab(t *testing.T) {
	tab, ok := V1.Tab("scanner")
	require.True(t, ok)
	assert.Equal(t, "#scanner", tab.Panel)
	assert.Equal(t, `button[onclick="switchTab('scanner')"]`, tab.Button)

	_, ok = V1.Tab("settings")
	assert.False(t, ok)
}

func TestRuntimeIDsAreNotStatic(t *testing.T) {
	for _, id := range V1.RuntimeIDs {
		assert.NotContains(t, V1.RequiredIDs, id)
	}
	assert.Equal(t, "#generatorMessages", ID("generatorMessages"))
}
