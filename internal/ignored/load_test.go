package ignored

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/vdup/internal/sampler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// patternPNG writes a 160x90 grayscale PNG whose 16x9 box-downsample
// exactly reproduces patternImage's column-parity scheme from
// internal/sampler's hash tests: column block c alternates between 200
// and 50 by downsampled-row parity, so the resulting hash is fully
// deterministic and large enough to survive the one-color/emptiness
// preprocessing rejections.
func patternPNG(t *testing.T, path string, startHigh [16]bool) {
	t.Helper()
	const w, h = 160, 90
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := y * 9 / h // which of the 9 downsampled rows this source row lands in
		for x := 0; x < w; x++ {
			col := x * 16 / w
			high := startHigh[col] == (row%2 == 0)
			v := uint8(50)
			if high {
				v = 200
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func allHigh(n int) (out [16]bool) {
	for i := 0; i < n && i < 16; i++ {
		out[i] = true
	}
	return out
}

func TestLoadHashesEveryImageAndItsMirror(t *testing.T) {
	dir := t.TempDir()
	patB := allHigh(8)
	for i := range patB {
		patB[i] = !patB[i]
	}
	patternPNG(t, filepath.Join(dir, "a.png"), allHigh(8))
	patternPNG(t, filepath.Join(dir, "b.png"), patB)

	cfg := sampler.DefaultConfig()
	set, err := Load(dir, cfg)
	require.NoError(t, err)

	// a's mirror is bitwise-complementary to a's original, which is
	// exactly b's original pattern; b's mirror in turn reconstructs
	// a's original pattern, so it collides with a's already-loaded
	// non-mirror hash and is skipped: 2 + 2 - 1 = 3 stored hashes. Only
	// non-mirror hashes are checked for collisions, so b's original is
	// stored even though it equals a's mirror (2 distinct values).
	assert.Equal(t, 3, set.Len())
}

func TestLoadRejectsDirectoryEntries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
	patternPNG(t, filepath.Join(dir, "a.png"), allHigh(8))

	cfg := sampler.DefaultConfig()
	set, err := Load(dir, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())
}

func TestLoadErrorsOnUndecodableFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("not an image"), 0o644))

	cfg := sampler.DefaultConfig()
	_, err := Load(dir, cfg)
	assert.Error(t, err)
}

func TestIgnoredSetFlagsLoadedImageHash(t *testing.T) {
	dir := t.TempDir()
	patternPNG(t, filepath.Join(dir, "a.png"), allHigh(8))

	cfg := sampler.DefaultConfig()
	set, err := Load(dir, cfg)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "a.png"))
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)

	cropped, reason := sampler.Preprocess(img, cfg)
	require.Equal(t, sampler.RejectNone, reason)
	h, ok := sampler.Hash(cropped)
	require.True(t, ok)

	assert.True(t, set.IsIgnored(h))
}
