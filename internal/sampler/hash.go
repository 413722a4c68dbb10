package sampler

import (
	"image"

	"github.com/grailbio/vdup/internal/hashval"
)

// hashGridWidth and hashGridHeight size the downsample grid the hash is
// computed from: width*height = 128 bits, matching the vertical-
// gradient hash the spec assumes is supplied externally (§1). The exact
// hash algorithm is out of this repository's scope; what follows is a
// concrete, deterministic, locality-preserving stand-in built entirely
// from the standard library, since no perceptual-hash or image-resize
// library appears anywhere in the example pack.
const (
	hashGridWidth  = 16
	hashGridHeight = 8
)

// Hash computes a 128-bit vertical-gradient hash of g: downsample to a
// (hashGridWidth)x(hashGridHeight+1) grid by box-averaging, then set bit
// (row,col) when the pixel directly above is brighter than the one
// below it. Reports false for a degenerate (zero-area) image.
func Hash(g *image.Gray) (hashval.Hamming, bool) {
	b := g.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return hashval.Hamming{}, false
	}

	grid := boxResize(g, hashGridWidth, hashGridHeight+1)

	var bytes [16]byte
	bit := 0
	for row := 0; row < hashGridHeight; row++ {
		for col := 0; col < hashGridWidth; col++ {
			above := grid[row*hashGridWidth+col]
			below := grid[(row+1)*hashGridWidth+col]
			if above > below {
				bytes[bit/8] |= 1 << uint(7-bit%8)
			}
			bit++
		}
	}
	return hashval.FromBytes(bytes), true
}

// boxResize downsamples g to a w*h grid (row-major), each output cell
// being the average gray level of the source pixels its box covers.
func boxResize(g *image.Gray, w, h int) []float64 {
	b := g.Bounds()
	srcW, srcH := b.Dx(), b.Dy()
	out := make([]float64, w*h)

	for row := 0; row < h; row++ {
		y0 := row * srcH / h
		y1 := (row + 1) * srcH / h
		if y1 <= y0 {
			y1 = y0 + 1
		}
		for col := 0; col < w; col++ {
			x0 := col * srcW / w
			x1 := (col + 1) * srcW / w
			if x1 <= x0 {
				x1 = x0 + 1
			}
			var sum float64
			count := 0
			for y := y0; y < y1 && y < srcH; y++ {
				srcRow := g.Pix[y*g.Stride:]
				for x := x0; x < x1 && x < srcW; x++ {
					sum += float64(srcRow[x])
					count++
				}
			}
			if count > 0 {
				out[row*w+col] = sum / float64(count)
			}
		}
	}
	return out
}
