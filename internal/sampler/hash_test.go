package sampler

import (
	"image"
	"image/color"
	"testing"

	"github.com/grailbio/vdup/internal/hashval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// patternImage builds a 16x9 grayscale image whose vertical-gradient
// hash bits are fully controlled: column c alternates between 200 and
// 50 starting high (if startHigh[c]) or low, so Hash's row-vs-row+1
// comparison for that column is a fixed, known bit for every row.
func patternImage(startHigh [hashGridWidth]bool) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, hashGridWidth, hashGridHeight+1))
	for row := 0; row <= hashGridHeight; row++ {
		for col := 0; col < hashGridWidth; col++ {
			high := startHigh[col] == (row%2 == 0)
			v := uint8(50)
			if high {
				v = 200
			}
			g.SetGray(col, row, color.Gray{Y: v})
		}
	}
	return g
}

func allTrue(n int) (out [hashGridWidth]bool) {
	for i := 0; i < n && i < hashGridWidth; i++ {
		out[i] = true
	}
	return out
}

func TestHashRejectsDegenerateImage(t *testing.T) {
	empty := image.NewGray(image.Rect(0, 0, 0, 0))
	_, ok := Hash(empty)
	assert.False(t, ok)
}

func TestHashIsDeterministic(t *testing.T) {
	pat := allTrue(8)
	a, ok := Hash(patternImage(pat))
	require.True(t, ok)
	b, ok := Hash(patternImage(pat))
	require.True(t, ok)
	assert.Equal(t, a, b)
}

func TestHashDistanceBetweenComplementaryColumnPatterns(t *testing.T) {
	patA := allTrue(8) // first 8 columns start high, rest start low
	var patB [hashGridWidth]bool
	for i := range patB {
		patB[i] = !patA[i]
	}
	a, ok := Hash(patternImage(patA))
	require.True(t, ok)
	b, ok := Hash(patternImage(patB))
	require.True(t, ok)
	assert.Equal(t, hashval.MaxDistance, hashval.Distance(a, b))
}
