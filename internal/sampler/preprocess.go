package sampler

import (
	"image"
)

// RejectReason names why a frame was not kept, for graveyard filenames
// and logging. The empty reason means "kept".
type RejectReason string

const (
	RejectNone     RejectReason = ""
	RejectOneColor RejectReason = "one_color"
	RejectEmpty    RejectReason = "empty"
)

const (
	maskBlack = 0
	maskWhite = 255
)

// toGray converts img to grayscale using the standard luma formula
// (stdlib color.GrayModel), the same conversion the original tool's
// grayscale step performs.
func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g.Set(x, y, img.At(x, y))
		}
	}
	return g
}

// mostCommonGray returns the most frequent gray level in g. Ties break
// toward the highest level seen, matching Rust's Iterator::max_by
// returning the last of equal maxima.
func mostCommonGray(g *image.Gray) uint8 {
	var counts [256]int
	b := g.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride:]
		for x := 0; x < b.Dx(); x++ {
			counts[row[x]]++
		}
	}
	best, bestCount := 0, -1
	for level, count := range counts {
		if count >= bestCount {
			best, bestCount = level, count
		}
	}
	return uint8(best)
}

// percentGray returns the percentage (0..100) of g's pixels within
// tolerance of target.
func percentGray(g *image.Gray, target, tolerance uint8) float64 {
	b := g.Bounds()
	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}
	within := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if absDiff(row[x], target) <= tolerance {
				within++
			}
		}
	}
	return 100 * float64(within) / float64(total)
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// maskify marks every pixel at or below threshold as border (black),
// everything else as foreground (white).
func maskify(g *image.Gray, threshold uint8) *image.Gray {
	b := g.Bounds()
	mask := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		srcRow := g.Pix[(y-b.Min.Y)*g.Stride:]
		dstRow := mask.Pix[(y-b.Min.Y)*mask.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if srcRow[x] <= threshold {
				dstRow[x] = maskBlack
			} else {
				dstRow[x] = maskWhite
			}
		}
	}
	return mask
}

// watermarkBBox finds the bounding box of the foreground (white) region
// of mask, treating a row or column as "all border" once the fraction
// of white pixels in it falls at or below maximumWhites. It is a direct
// port of the original's row/column watermark-removal bounding box
// search.
func watermarkBBox(mask *image.Gray, maximumWhites float64) image.Rectangle {
	b := mask.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return image.Rectangle{}
	}
	if maximumWhites < 0 {
		maximumWhites = 0
	}

	columns := make([]int, w)
	rows := make([]int, h)
	for y := 0; y < h; y++ {
		row := mask.Pix[y*mask.Stride:]
		for x := 0; x < w; x++ {
			if row[x] == maskWhite {
				columns[x]++
				rows[y]++
			}
		}
	}

	maxCol := maxInt(columns)
	maxRow := maxInt(rows)

	findBorder := func(axis []int, axisMax int) (int, bool) {
		if len(axis) == 0 || axisMax == 0 {
			return 0, false
		}
		m := float64(axisMax)
		for i, v := range axis {
			if float64(v)/m > maximumWhites {
				return i, true
			}
		}
		return 0, false
	}
	reversed := func(s []int) []int {
		r := make([]int, len(s))
		for i, v := range s {
			r[len(s)-1-i] = v
		}
		return r
	}

	left, _ := findBorder(columns, maxCol)
	right, ok := findBorder(reversed(columns), maxCol)
	width := 0
	if ok {
		width = w - right - left
	}

	top, _ := findBorder(rows, maxRow)
	bottom, ok := findBorder(reversed(rows), maxRow)
	height := 0
	if ok {
		height = h - bottom - top
	}
	if width <= 0 || height <= 0 {
		return image.Rectangle{}
	}
	return image.Rect(b.Min.X+left, b.Min.Y+top, b.Min.X+left+width, b.Min.Y+top+height)
}

func maxInt(s []int) int {
	m := 0
	for _, v := range s {
		if v > m {
			m = v
		}
	}
	return m
}

// cropGray returns the subimage of g within r, sharing g's backing
// array (no recomputation of grayscale): this is what the original
// implementation's own comments say a "proper" crop should do instead
// of grayscaling the cropped region a second time.
func cropGray(g *image.Gray, r image.Rectangle) *image.Gray {
	sub := g.SubImage(r).(*image.Gray)
	return sub
}

// Preprocess runs the full per-frame pipeline from §4.F step 4:
// grayscale, one-color rejection, border-crop, emptiness rejection, and
// a one-color recheck on the cropped result. On success it returns the
// cropped grayscale image ready for hashing.
func Preprocess(img image.Image, cfg Config) (*image.Gray, RejectReason) {
	gray := toGray(img)
	common := mostCommonGray(gray)
	if percentGray(gray, common, cfg.Tolerance) >= cfg.OneColorThreshold {
		return nil, RejectOneColor
	}

	mask := maskify(gray, cfg.MaskifyThreshold)
	bbox := watermarkBBox(mask, cfg.MaximumWhites)
	if bbox.Dx() == 0 || bbox.Dy() == 0 {
		return nil, RejectEmpty
	}

	total := float64(gray.Bounds().Dx()) * float64(gray.Bounds().Dy())
	cropped := float64(bbox.Dx()) * float64(bbox.Dy())
	if total == 0 || cropped/total <= cfg.EmptinessThreshold {
		return nil, RejectEmpty
	}

	sub := cropGray(gray, bbox)
	if percentGray(sub, common, cfg.Tolerance) >= cfg.OneColorThreshold {
		return nil, RejectOneColor
	}
	return sub, RejectNone
}
