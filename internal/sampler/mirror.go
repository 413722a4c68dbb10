package sampler

import "image"

// FlipHorizontal returns a horizontally-mirrored copy of img. The
// standard library has no mirror/flip helper, so this is a direct pixel
// copy, the Go equivalent of the original's
// image::imageops::flip_horizontal_in_place. Exported so
// internal/ignored can hash the same mirror augmentation used for
// sampled video frames.
func FlipHorizontal(img image.Image) image.Image {
	b := img.Bounds()
	out := image.NewRGBA(b)
	w := b.Dx()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			mirroredX := b.Min.X + (w - 1 - (x - b.Min.X))
			out.Set(mirroredX, y, img.At(x, y))
		}
	}
	return out
}
