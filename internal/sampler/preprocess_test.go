package sampler

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
)

func constructGray(rows [][]uint8) *image.Gray {
	h := len(rows)
	w := 0
	if h > 0 {
		w = len(rows[0])
	}
	g := image.NewGray(image.Rect(0, 0, w, h))
	for y, row := range rows {
		for x, v := range row {
			g.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return g
}

func TestWatermarkBBoxAllBlack(t *testing.T) {
	mask := constructGray([][]uint8{
		{maskBlack, maskBlack, maskBlack},
		{maskBlack, maskBlack, maskBlack},
	})
	box := watermarkBBox(mask, 0.0)
	assert.Equal(t, image.Rectangle{}, box)
}

func TestWatermarkBBoxAllWhite(t *testing.T) {
	mask := constructGray([][]uint8{{maskWhite, maskWhite, maskWhite}})
	box := watermarkBBox(mask, 0.0)
	assert.Equal(t, image.Rect(0, 0, 3, 1), box)
}

func TestWatermarkBBoxLeftEdge(t *testing.T) {
	mask := constructGray([][]uint8{
		{maskBlack, maskWhite, maskWhite, maskWhite},
		{maskBlack, maskWhite, maskWhite, maskWhite},
		{maskBlack, maskWhite, maskWhite, maskWhite},
		{maskBlack, maskWhite, maskWhite, maskWhite},
	})
	box := watermarkBBox(mask, 0.0)
	assert.Equal(t, image.Rect(1, 0, 4, 4), box)
}

func TestWatermarkBBoxRightEdge(t *testing.T) {
	mask := constructGray([][]uint8{
		{maskWhite, maskWhite, maskWhite, maskBlack},
		{maskWhite, maskWhite, maskWhite, maskBlack},
		{maskWhite, maskWhite, maskWhite, maskBlack},
		{maskWhite, maskWhite, maskWhite, maskBlack},
	})
	box := watermarkBBox(mask, 0.0)
	assert.Equal(t, image.Rect(0, 0, 3, 4), box)
}

func TestWatermarkBBoxSurrounded(t *testing.T) {
	mask := constructGray([][]uint8{
		{maskBlack, maskBlack, maskBlack, maskBlack},
		{maskBlack, maskWhite, maskWhite, maskBlack},
		{maskBlack, maskWhite, maskWhite, maskBlack},
		{maskBlack, maskBlack, maskBlack, maskBlack},
	})
	box := watermarkBBox(mask, 0.0)
	assert.Equal(t, image.Rect(1, 1, 3, 3), box)
}

func TestMostCommonGray(t *testing.T) {
	g := constructGray([][]uint8{
		{10, 10, 10, 200},
	})
	assert.Equal(t, uint8(10), mostCommonGray(g))
}

func TestPercentGray(t *testing.T) {
	g := constructGray([][]uint8{
		{10, 10, 10, 200},
	})
	assert.Equal(t, 75.0, percentGray(g, 10, 2))
	assert.Equal(t, 100.0, percentGray(g, 10, 255))
}

func TestPreprocessRejectsOneColor(t *testing.T) {
	rows := make([][]uint8, 20)
	for y := range rows {
		rows[y] = make([]uint8, 20)
		for x := range rows[y] {
			rows[y][x] = 128
		}
	}
	g := constructGray(rows)
	cfg := DefaultConfig()
	_, reason := Preprocess(g, cfg)
	assert.Equal(t, RejectOneColor, reason)
}

func TestPreprocessKeepsVariedImage(t *testing.T) {
	rows := make([][]uint8, 20)
	for y := range rows {
		rows[y] = make([]uint8, 20)
		for x := range rows[y] {
			if (x+y)%2 == 0 {
				rows[y][x] = 200
			} else {
				rows[y][x] = 50
			}
		}
	}
	g := constructGray(rows)
	cfg := DefaultConfig()
	sub, reason := Preprocess(g, cfg)
	assert.Equal(t, RejectNone, reason)
	assert.NotNil(t, sub)
}
