package pipeline

import (
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/vdup/internal/bktree"
	"github.com/grailbio/vdup/internal/hashval"
	"github.com/grailbio/vdup/internal/sampler"
	"github.com/grailbio/vdup/internal/simplepath"
	"github.com/pkg/errors"
)

// Collision is one frame-level match discovered while processing a
// video: the new video's frame against an already-indexed frame, named
// by the source video it came from (§4.J's Frame = {hash, vidsrc}).
type Collision struct {
	Reference sampler.Frame
	OtherHash hashval.Hamming
	Other     sampler.VidSrc
}

// DupRecorder is notified whenever a video's frames collide with
// anything already in the tree (§4.I/§4.J). A nil recorder means
// collisions are discovered but not persisted.
type DupRecorder interface {
	RecordDup(newPath simplepath.Path, collisions []Collision) error
}

// TreeWriter is the single consumer of a pipeline's message channel
// (§4.H): for each video it searches the tree for every sampled
// frame's matches (in parallel, read-only, via traverse.Each, §5),
// records any collisions, then inserts the video's storable hashes.
// Query and insert for one video happen without any other tree access
// interleaved, since Process is only ever called from one goroutine.
type TreeWriter struct {
	Tree      *bktree.Tree[sampler.VidSrc]
	Threshold int
	Dups      DupRecorder // optional
}

// Process implements Consumer.
func (w *TreeWriter) Process(msg Message) error {
	path, err := simplepath.New(msg.VideoPath)
	if err != nil {
		return errors.Wrapf(err, "pipeline: %s is not a valid repo-relative path", msg.VideoPath)
	}

	if len(msg.Frames) == 0 {
		return nil
	}

	// Every sampled frame (storable or not) widens the query-time match
	// set; mirrored and phantom frames are never inserted below, but
	// they still participate in collision detection here.
	perFrame := make([][]Collision, len(msg.Frames))
	if err := traverse.Each(len(msg.Frames), func(i int) error {
		frame := msg.Frames[i]
		return w.Tree.FindWithin(frame.Hash, w.Threshold, func(h hashval.Hamming, other sampler.VidSrc) error {
			perFrame[i] = append(perFrame[i], Collision{Reference: frame, OtherHash: h, Other: other})
			return nil
		})
	}); err != nil {
		return errors.Wrap(err, "pipeline: find_within")
	}

	var collisions []Collision
	for _, c := range perFrame {
		collisions = append(collisions, c...)
	}
	if len(collisions) > 0 && w.Dups != nil {
		if err := w.Dups.RecordDup(path, collisions); err != nil {
			return errors.Wrap(err, "pipeline: record dup")
		}
	}

	var storable []sampler.Frame
	for _, f := range msg.Frames {
		if f.Storable() {
			storable = append(storable, f)
		}
	}
	if len(storable) == 0 {
		return nil
	}

	hashes := make([]hashval.Hamming, len(storable))
	values := make([]sampler.VidSrc, len(storable))
	for i, f := range storable {
		hashes[i] = f.Hash
		values[i] = sampler.VidSrc{FramePos: f.TS, Path: path, Mirrored: f.Mirror}
	}
	if err := w.Tree.AddAll(hashes, values); err != nil {
		return errors.Wrap(err, "pipeline: insert")
	}
	return nil
}
