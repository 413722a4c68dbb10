package sampler

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/grailbio/vdup/internal/bktree"
	"github.com/grailbio/vdup/internal/simplepath"
	"github.com/pkg/errors"
)

// VidSrc is the payload a video tree stores per indexed hash (§3): the
// timestamp the frame was pulled from, the video it came from, and
// whether the hash came from the mirror pass. Storable frames (see
// Frame.Storable) are always inserted with Mirrored == Normal; the
// field exists on the type because queries still need to describe
// which half of a match was mirrored in debug output.
type VidSrc struct {
	FramePos time.Duration
	Path     simplepath.Path
	Mirrored Mirror
}

// String matches the original's "{path}:{frame_pos}:{N|M}" Display.
func (v VidSrc) String() string {
	tag := "N"
	if v.Mirrored == Mirrored {
		tag = "M"
	}
	return fmt.Sprintf("%s:%s:%s", v.Path.String(), v.FramePos, tag)
}

// vidSrcRecord is the gob wire shape for VidSrc: simplepath.Path isn't
// itself gob-friendly (it carries a cached, recomputable hash), so it
// is flattened to its string form around the wire, matching the
// plain-gob encoding debuginfo uses for its own records.
type vidSrcRecord struct {
	FramePos time.Duration
	Path     string
	Mirrored Mirror
}

// VidSrcPayload is the bktree.PayloadCodec for VidSrc.
var VidSrcPayload = bktree.PayloadCodec[VidSrc]{
	Marshal: func(v VidSrc) []byte {
		var buf bytes.Buffer
		// gob.Encode on a plain struct of comparable scalars never
		// fails; the error is only reachable through a broken Gob
		// registration, which this record never triggers.
		_ = gob.NewEncoder(&buf).Encode(vidSrcRecord{FramePos: v.FramePos, Path: v.Path.String(), Mirrored: v.Mirrored})
		return buf.Bytes()
	},
	Unmarshal: func(buf []byte) (VidSrc, error) {
		var rec vidSrcRecord
		if err := gob.NewDecoder(bytes.NewReader(buf)).Decode(&rec); err != nil {
			return VidSrc{}, errors.Wrap(err, "sampler: decode VidSrc")
		}
		path, err := simplepath.New(rec.Path)
		if err != nil {
			return VidSrc{}, errors.Wrap(err, "sampler: decode VidSrc path")
		}
		return VidSrc{FramePos: rec.FramePos, Path: path, Mirrored: rec.Mirrored}, nil
	},
}
