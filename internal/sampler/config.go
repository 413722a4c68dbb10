package sampler

import "time"

// Config enumerates every knob §4.F names. Zero-value Config is not
// usable; callers should start from DefaultConfig and override.
type Config struct {
	// MinFrames is the minimum number of hash samples to take per
	// video (at least 1).
	MinFrames int
	// KeyframeStep bounds the distance between stored samples.
	KeyframeStep time.Duration
	// PhantomSteps are extra sampling schedules interleaved with the
	// keyframe step; their results are used only for query-time
	// matching, never stored.
	PhantomSteps []time.Duration
	// ProgressLogEvery is carried in the configuration only; Sample
	// does not read it and logs no progress lines.
	ProgressLogEvery time.Duration

	// OneColorThreshold is the percentage (0..100) of pixels that must
	// fall within Tolerance of the most common gray value before a
	// frame is rejected as a single color.
	OneColorThreshold float64
	// Tolerance is the per-channel gray distance used by the
	// one-color check.
	Tolerance uint8
	// MaskifyThreshold: a pixel darker than or equal to this gray
	// value is considered part of the border mask.
	MaskifyThreshold uint8
	// MaximumWhites: a row/column whose count of unmasked (white)
	// pixels, as a fraction (0..1) of the busiest row/column's count, is
	// at or below this value is considered part of the border.
	MaximumWhites float64
	// EmptinessThreshold: a cropped subimage whose fractional
	// coverage of the original is at or below this value is rejected
	// as empty.
	EmptinessThreshold float64

	// SimilarityThreshold is the inclusive Hamming distance below
	// which two consecutive kept hashes are considered duplicates.
	SimilarityThreshold int
	// MirrorEnabled toggles the horizontal-mirror augmentation pass.
	MirrorEnabled bool
}

// DefaultConfig returns reasonable defaults grounded in the
// thresholds named by the original implementation (imghash::SIMILARITY_THRESHOLD
// and the preprocess default border/one-color cutoffs).
func DefaultConfig() Config {
	return Config{
		MinFrames:           10,
		KeyframeStep:        10 * time.Second,
		PhantomSteps:        nil,
		ProgressLogEvery:    30 * time.Second,
		OneColorThreshold:   95,
		Tolerance:           8,
		MaskifyThreshold:    16,
		MaximumWhites:       0.02,
		EmptinessThreshold:  0.10,
		SimilarityThreshold: 23,
		MirrorEnabled:       true,
	}
}

// step computes the adaptive sampling step from §4.F.1: the smaller of
// the configured keyframe step and the approximate length spread over
// at least MinFrames samples.
func (c Config) step(approxLength time.Duration) time.Duration {
	minFrames := c.MinFrames
	if minFrames < 1 {
		minFrames = 1
	}
	adaptive := approxLength / time.Duration(minFrames)
	if adaptive < c.KeyframeStep {
		return adaptive
	}
	return c.KeyframeStep
}
