package sampler

import (
	"image"
	"io"
	"time"

	"github.com/grailbio/vdup/internal/hashval"
	"github.com/grailbio/vdup/internal/timeline"
	"github.com/pkg/errors"
)

const (
	reasonIgnored    = "ignored"
	reasonSimilar    = "similar"
	reasonHashFailed = "hash_failed"
)

// IgnoredChecker answers whether a hash should be treated as known-bad
// (§4.G). A nil checker is treated as "nothing is ignored".
type IgnoredChecker interface {
	IsIgnored(h hashval.Hamming) bool
}

// RejectSink optionally records a rejected frame (for the graveyard). A
// nil sink means rejections are simply dropped.
type RejectSink interface {
	SaveRejected(ts time.Duration, img image.Image, reason string) error
}

// introSkipCurve is the pinned, non-configurable curve from §4.L used
// symmetrically for both the beginning and end skip.
var introSkipCurve = timeline.NewIntroSkipCurve()

// Sample drives d to completion, returning every kept Frame in the
// order produced. See §4.F for the full algorithm.
func Sample(d Decoder, cfg Config, ignored IgnoredChecker, graveyard RejectSink) ([]Frame, error) {
	approxLen := d.ApproxLength()
	step := cfg.step(approxLen)

	skip := introSkipCurve.Sample(approxLen)
	if skip > 0 {
		if err := d.SeekForward(skip); err != nil {
			return nil, errors.Wrap(err, "sampler: seek past intro")
		}
	}
	endCutoff := approxLen - skip
	hasCutoff := endCutoff >= 0

	steps := make([]time.Duration, 0, 1+len(cfg.PhantomSteps))
	steps = append(steps, step)
	steps = append(steps, cfg.PhantomSteps...)
	stepper := timeline.NewStepper(steps)

	var frames []Frame
	var lastKept hashval.Hamming
	havePrev := false

	reject := func(ts time.Duration, img image.Image, reason string) error {
		if graveyard == nil {
			return nil
		}
		return graveyard.SaveRejected(ts, img, reason)
	}

	for {
		index, elapsed := stepper.StepNonZero()
		if elapsed > 0 {
			if err := d.SeekForward(elapsed); err != nil {
				return frames, errors.Wrap(err, "sampler: advance")
			}
		}
		// index 0 is always the primary keyframe schedule; every other
		// index is a phantom_steps schedule (query-only, never stored).
		phantom := index != 0

		ts, img, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return frames, errors.Wrap(err, "sampler: decode")
		}
		if hasCutoff && ts > endCutoff {
			break
		}

		cropped, rejectReason := Preprocess(img, cfg)
		if rejectReason != RejectNone {
			if err := reject(ts, img, string(rejectReason)); err != nil {
				return frames, err
			}
			continue
		}

		h, ok := Hash(cropped)
		if !ok {
			if err := reject(ts, img, reasonHashFailed); err != nil {
				return frames, err
			}
			continue
		}

		if ignored != nil && ignored.IsIgnored(h) {
			if err := reject(ts, img, reasonIgnored); err != nil {
				return frames, err
			}
			continue
		}

		if havePrev && hashval.Distance(lastKept, h) <= cfg.SimilarityThreshold {
			if err := reject(ts, img, reasonSimilar); err != nil {
				return frames, err
			}
			continue
		}

		frames = append(frames, Frame{TS: ts, Hash: h, Mirror: Normal, Phantom: phantom})
		lastKept, havePrev = h, true

		if !phantom && cfg.MirrorEnabled {
			mirrored := FlipHorizontal(img)
			mCropped, mReason := Preprocess(mirrored, cfg)
			if mReason == RejectNone {
				if mh, mok := Hash(mCropped); mok {
					if hashval.Distance(h, mh) > cfg.SimilarityThreshold {
						frames = append(frames, Frame{TS: ts, Hash: mh, Mirror: Mirrored, Phantom: false})
					}
				}
			}
		}
	}

	return frames, nil
}
