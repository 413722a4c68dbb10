package main

import (
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/vdup/internal/bktree"
	"github.com/grailbio/vdup/internal/sampler"
	"github.com/stretchr/testify/require"
)

func writeSolidFrame(t *testing.T, dir, name string, gray uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			v := gray
			if (x+y)%3 == 0 {
				v = gray + 40
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	f, err := os.Create(filepath.Join(dir, name))
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, jpeg.Encode(f, img, nil))
}

// TestRunIndexesVideosAndPersistsTree exercises the whole wiring end to
// end: two frame directories under -src-root are sampled, hashed and
// inserted into the tree file named by -database-file.
func TestRunIndexesVideosAndPersistsTree(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()

	srcRoot := filepath.Join(tmpDir, "videos")
	for _, video := range []string{"a", "b"} {
		dir := filepath.Join(srcRoot, video)
		require.NoError(t, os.MkdirAll(dir, 0o755))
		for i := 0; i < 3; i++ {
			writeSolidFrame(t, dir, "frame_"+string(rune('0'+i))+".jpg", uint8(30*i+10))
		}
	}

	database := filepath.Join(tmpDir, "hashes.tree")
	dupDir := filepath.Join(tmpDir, "dups")

	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()
	os.Args = []string{
		"videodup",
		"-src-root", srcRoot,
		"-dup-dir", dupDir,
		"-database-file", database,
		"-min-frames", "3",
		"-keyframe-step", "1s",
	}

	require.NoError(t, run())

	tree, err := bktree.Open(database, sourceIdentifier, sampler.VidSrcPayload)
	require.NoError(t, err)
	defer tree.Close()

	alive, _, err := tree.CountNodes()
	require.NoError(t, err)
	require.Greater(t, alive, 0, "expected at least one stored hash across both videos")
}
