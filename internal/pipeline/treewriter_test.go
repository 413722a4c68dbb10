package pipeline

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/grailbio/vdup/internal/bktree"
	"github.com/grailbio/vdup/internal/hashval"
	"github.com/grailbio/vdup/internal/sampler"
	"github.com/grailbio/vdup/internal/simplepath"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openVidSrcTree(t *testing.T) *bktree.Tree[sampler.VidSrc] {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tree.dat")
	tree, err := bktree.Open(path, "pipeline-test:1", sampler.VidSrcPayload)
	require.NoError(t, err)
	t.Cleanup(func() { tree.Close() })
	return tree
}

type recordingDupRecorder struct {
	newPath    simplepath.Path
	collisions []Collision
}

func (r *recordingDupRecorder) RecordDup(newPath simplepath.Path, collisions []Collision) error {
	r.newPath = newPath
	r.collisions = collisions
	return nil
}

func storableFrame(bits uint64) sampler.Frame {
	return sampler.Frame{TS: time.Second, Hash: hashval.Hamming{Lo: bits}, Mirror: sampler.Normal, Phantom: false}
}

func storedPaths(t *testing.T, tree *bktree.Tree[sampler.VidSrc]) []string {
	t.Helper()
	var out []string
	require.NoError(t, tree.ForEach(func(h hashval.Hamming, v sampler.VidSrc) error {
		out = append(out, v.Path.String())
		return nil
	}))
	return out
}

func TestTreeWriterInsertsWithNoPriorCollision(t *testing.T) {
	tree := openVidSrcTree(t)
	dups := &recordingDupRecorder{}
	w := &TreeWriter{Tree: tree, Threshold: 0, Dups: dups}

	err := w.Process(Message{VideoPath: "first.mp4", Frames: []sampler.Frame{storableFrame(0b101)}})
	require.NoError(t, err)
	assert.Nil(t, dups.collisions)

	stored := storedPaths(t, tree)
	require.Len(t, stored, 1)
	assert.Equal(t, "first.mp4", stored[0])
}

func TestTreeWriterRecordsCollisionAgainstEarlierVideo(t *testing.T) {
	tree := openVidSrcTree(t)
	dups := &recordingDupRecorder{}
	w := &TreeWriter{Tree: tree, Threshold: 0, Dups: dups}

	require.NoError(t, w.Process(Message{VideoPath: "first.mp4", Frames: []sampler.Frame{storableFrame(0b101)}}))
	require.NoError(t, w.Process(Message{VideoPath: "second.mp4", Frames: []sampler.Frame{storableFrame(0b101)}}))

	require.Len(t, dups.collisions, 1)
	assert.Equal(t, "first.mp4", dups.collisions[0].Other.Path.String())
	assert.Equal(t, sampler.Normal, dups.collisions[0].Other.Mirrored)
	assert.Equal(t, "second.mp4", dups.newPath.String())

	assert.Len(t, storedPaths(t, tree), 2)
}

func TestTreeWriterSkipsNonStorableFrames(t *testing.T) {
	tree := openVidSrcTree(t)
	w := &TreeWriter{Tree: tree, Threshold: 0}

	mirrored := storableFrame(0b1)
	mirrored.Mirror = sampler.Mirrored
	phantom := storableFrame(0b10)
	phantom.Phantom = true

	require.NoError(t, w.Process(Message{VideoPath: "a.mp4", Frames: []sampler.Frame{mirrored, phantom}}))

	assert.Empty(t, storedPaths(t, tree))
}

func TestTreeWriterMirroredAndPhantomFramesStillMatch(t *testing.T) {
	tree := openVidSrcTree(t)
	dups := &recordingDupRecorder{}
	w := &TreeWriter{Tree: tree, Threshold: 0, Dups: dups}

	require.NoError(t, w.Process(Message{VideoPath: "first.mp4", Frames: []sampler.Frame{storableFrame(0b101)}}))

	mirrored := storableFrame(0b101)
	mirrored.Mirror = sampler.Mirrored
	phantom := storableFrame(0b101)
	phantom.Phantom = true
	require.NoError(t, w.Process(Message{VideoPath: "second.mp4", Frames: []sampler.Frame{mirrored, phantom}}))

	require.Len(t, dups.collisions, 2)

	stored := storedPaths(t, tree)
	assert.Len(t, stored, 1, "mirrored/phantom frames of second.mp4 must not be inserted")
}
