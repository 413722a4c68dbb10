// Package sampler drives a frame decoder across a video, turning its
// frames into perceptual-hash samples: adaptive step selection,
// intro/outro skipping, preprocessing (border-crop, one-color and
// emptiness rejection), mirror augmentation, and consecutive-similarity
// suppression.
package sampler

import (
	"image"
	"io"
	"time"

	"github.com/grailbio/vdup/internal/hashval"
)

// Decoder is the minimal contract the sampler needs from a video
// decoder. Next returns io.EOF once no more frames are available.
type Decoder interface {
	Next() (ts time.Duration, img image.Image, err error)
	SeekForward(d time.Duration) error
	SeekTo(ts time.Duration) error
	ApproxLength() time.Duration
}

// ErrEOF is returned by a Decoder's Next when the stream is exhausted.
// Decoders may also return the stdlib io.EOF directly; the sampler
// treats both identically.
var ErrEOF = io.EOF

// Mirror marks whether a Frame's hash comes from the original sampled
// image or its horizontal mirror.
type Mirror int

const (
	Normal Mirror = iota
	Mirrored
)

func (m Mirror) String() string {
	if m == Mirrored {
		return "mirrored"
	}
	return "normal"
}

// Frame is one kept sample. Only Normal, non-phantom frames are meant
// to be inserted into the tree; the rest exist solely for query-time
// matching against the decoded video.
type Frame struct {
	TS      time.Duration
	Hash    hashval.Hamming
	Mirror  Mirror
	Phantom bool
}

// Storable reports whether f should be inserted into the index, as
// opposed to being used only to widen the query-time match set.
func (f Frame) Storable() bool {
	return f.Mirror == Normal && !f.Phantom
}
