package scenario

import (
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/barcheck/internal/models"
)

func TestBuiltins(t *testing.T) {
	r := Builtins()

	assert.Equal(t, []string{
		"barcode-centering",
		"code128-aspect",
		"contextual-messages",
		"download-png",
		"encoder-mapping",
		"human-readable-text",
		"qr-padding",
		"tab-navigation",
		"upload-no-barcode",
	}, r.Names())

	for _, s := range r.All() {
		assert.NotEmpty(t, s.Description(), s.Name())
	}
}

func TestRegistry_RegisterAndSelect(t *testing.T) {
	r := Builtins()

	script := NewScript(models.ScenarioDefinition{Name: "custom", Steps: []models.Step{{Kind: models.StepKindClick, Selector: "#x"}}}, "custom.yaml")
	require.NoError(t, r.Register(script))
	assert.Error(t, r.Register(script), "duplicate name")

	got, ok := r.Lookup("custom")
	require.True(t, ok)
	assert.Same(t, script, got)

	selected, err := r.Select([]string{"qr-padding", "custom"})
	require.NoError(t, err)
	require.Len(t, selected, 2)
	assert.Equal(t, "qr-padding", selected[0].Name())
	assert.Equal(t, "custom", selected[1].Name())

	all, err := r.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 10)

	_, err = r.Select([]string{"qr-padding", "nope"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestEnv_ShotPath(t *testing.T) {
	env := &Env{Dir: "/results/run/qr-padding"}

	assert.Equal(t, filepath.Join("/results/run/qr-padding", "01_qr_padding.png"), env.ShotPath("QR padding"))
	assert.Equal(t, filepath.Join("/results/run/qr-padding", "02_tab_saveddata.png"), env.ShotPath("tab_savedData"))
	assert.Equal(t, filepath.Join("/results/run/qr-padding", "03_shot.png"), env.ShotPath("!!"))
}

func TestWritePlainPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.png")
	require.NoError(t, writePlainPNG(path, 300, 200, lightBlue))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 300, img.Bounds().Dx())
	assert.Equal(t, 200, img.Bounds().Dy())

	r, g, b, a := img.At(150, 100).RGBA()
	assert.Equal(t, []uint32{173, 216, 230, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
}

func TestWriteDataURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bin")

	require.NoError(t, writeDataURL(path, "data:image/png;base64,aGVsbG8="))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	assert.Error(t, writeDataURL(path, "http://example.com/x.png"))
	assert.Error(t, writeDataURL(path, "data:image/png;base64,@@@"))
}
