package timeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntroSkipCurveScenario(t *testing.T) {
	c := NewIntroSkipCurve()

	assert.Equal(t, time.Duration(0), c.Sample(5*time.Second))
	assert.Equal(t, 5*time.Second, c.Sample(50*time.Second))

	mid := c.Sample(time.Minute + 50*time.Second)
	assert.Greater(t, mid, 5*time.Second)
	assert.Less(t, mid, time.Minute+15*time.Second)

	assert.Equal(t, time.Minute+15*time.Second, c.Sample(10*time.Minute))
	assert.Equal(t, 4*time.Minute, c.Sample(40*time.Minute))
	assert.Equal(t, 10*time.Minute, c.Sample(2*time.Hour))
}

func TestSampleBeforeOriginAndPastLast(t *testing.T) {
	c := NewIntroSkipCurve()
	assert.Equal(t, time.Duration(0), c.Sample(0))
	assert.Equal(t, time.Duration(0), c.Sample(-time.Second))
	assert.Equal(t, 10*time.Minute, c.Sample(24*time.Hour))
}

func TestSampleExactlyAtKnots(t *testing.T) {
	c := NewIntroSkipCurve()
	assert.Equal(t, 5*time.Second, c.Sample(30*time.Second))
	assert.Equal(t, 5*time.Second, c.Sample(time.Minute))
	assert.Equal(t, time.Minute+15*time.Second, c.Sample(5*time.Minute))
	assert.Equal(t, 4*time.Minute, c.Sample(35*time.Minute))
	assert.Equal(t, 10*time.Minute, c.Sample(time.Hour))
}

func TestSampleIsMonotonicNonDecreasing(t *testing.T) {
	c := NewIntroSkipCurve()
	prev := c.Sample(0)
	for s := 1; s <= int(2*time.Hour/time.Second); s += 7 {
		x := time.Duration(s) * time.Second
		y := c.Sample(x)
		assert.GreaterOrEqual(t, y, prev, "sample at %v regressed", x)
		prev = y
	}
}

func TestAddRejectsNonIncreasingX(t *testing.T) {
	tl := New(0, 0)
	require.NoError(t, tl.AddFlat(time.Second, time.Second))
	assert.Error(t, tl.AddFlat(time.Second, 2*time.Second))
	assert.Error(t, tl.AddLinear(0, time.Second))
}

func TestSingleKnotIsFlatEverywhere(t *testing.T) {
	tl := New(5*time.Second, time.Minute)
	assert.Equal(t, time.Minute, tl.Sample(0))
	assert.Equal(t, time.Minute, tl.Sample(5*time.Second))
	assert.Equal(t, time.Minute, tl.Sample(10*time.Second))
}
