package plot

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistogramBucketsAscending(t *testing.T) {
	bars := Histogram([]int{0, 1, 1, 15, 20, 21}, 10)
	require.Len(t, bars, 3)
	assert.Equal(t, "0-9", bars[0].Label)
	assert.Equal(t, 3, bars[0].Value)
	assert.Equal(t, "20-29", bars[2].Label)
	assert.Equal(t, 2, bars[2].Value)
}

func TestHistogramSkipsEmptyBuckets(t *testing.T) {
	bars := Histogram([]int{0, 30}, 10)
	require.Len(t, bars, 2)
	assert.Equal(t, "0-9", bars[0].Label)
	assert.Equal(t, "30-39", bars[1].Label)
}

func TestWriteTextScalesLargestBarToMax(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, "distances", []Bar{{Label: "a", Value: 10}, {Label: "b", Value: 5}}))
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	barLen := func(line string) int {
		return strings.Count(line, "#")
	}
	assert.Equal(t, maxBarWidth, barLen(lines[1]))
	assert.Equal(t, maxBarWidth/2, barLen(lines[2]))
}

func TestWriteTextHandlesEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, "empty", nil))
	assert.Contains(t, buf.String(), "no data")
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []Bar{{Label: "0-9", Value: 3}}))
	assert.Equal(t, "0-9,3\n", buf.String())
}
