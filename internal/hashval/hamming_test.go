package hashval

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistanceIdentityAndSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 200; i++ {
		a := Random(rng)
		b := Random(rng)
		assert.Equal(t, 0, Distance(a, a))
		assert.Equal(t, Distance(a, b), Distance(b, a))
	}
}

func TestRandomAtDistance(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	base := Random(rng)
	for d := 0; d <= MaxDistance; d += 7 {
		h := RandomAtDistance(rng, base, d)
		assert.Equal(t, d, Distance(base, h))
	}
}

func TestStringRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		h := Random(rng)
		s := h.String()
		assert.Len(t, s, 22)
		parsed, err := ParseHamming(s)
		assert.NoError(t, err)
		assert.Equal(t, h, parsed)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	for i := 0; i < 50; i++ {
		h := Random(rng)
		assert.Equal(t, h, FromBytes(h.Bytes()))
	}
}
