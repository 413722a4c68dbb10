// Package plot renders the hash-distance histograms videodup-debug reports
// when invoked with --plot. The original drew these with an SVG bar-chart
// library (imgdup-common/src/utils/plot.rs); no plotting library appears
// anywhere in the example pack, so this is a small stdlib-only text/CSV
// renderer instead of a GUI.
package plot

import (
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
)

// Bar is one labeled count, the Go analogue of the original's (X, u32)
// tuple.
type Bar struct {
	Label string
	Value int
}

// maxBarWidth bounds the widest rendered bar so a single huge count doesn't
// blow out terminal output; every other bar is scaled relative to it.
const maxBarWidth = 60

// Histogram buckets distances (hamming distances between 0 and
// hashval.MaxDistance, inclusive) into bucketSize-wide buckets and returns
// one Bar per non-empty bucket, in ascending bucket order, labeled "lo-hi"
// with the bucket's inclusive bounds (e.g. "0-9" for bucketSize 10).
func Histogram(distances []int, bucketSize int) []Bar {
	if bucketSize <= 0 {
		bucketSize = 1
	}
	counts := make(map[int]int)
	maxBucket := 0
	for _, d := range distances {
		if d < 0 {
			continue
		}
		bucket := (d / bucketSize) * bucketSize
		counts[bucket]++
		if bucket > maxBucket {
			maxBucket = bucket
		}
	}
	var bars []Bar
	for bucket := 0; bucket <= maxBucket; bucket += bucketSize {
		if n, ok := counts[bucket]; ok {
			bars = append(bars, Bar{Label: fmt.Sprintf("%d-%d", bucket, bucket+bucketSize-1), Value: n})
		}
	}
	return bars
}

// WriteText renders bars as a left-to-right ASCII bar chart, one line per
// bar, scaled so the largest value fills maxBarWidth characters.
func WriteText(w io.Writer, title string, bars []Bar) error {
	if len(bars) == 0 {
		_, err := fmt.Fprintf(w, "%s: (no data)\n", title)
		return errors.Wrap(err, "plot: write empty histogram")
	}
	max := 0
	labelWidth := 0
	for _, b := range bars {
		if b.Value > max {
			max = b.Value
		}
		if len(b.Label) > labelWidth {
			labelWidth = len(b.Label)
		}
	}
	if max == 0 {
		max = 1
	}
	if _, err := fmt.Fprintf(w, "%s\n", title); err != nil {
		return errors.Wrap(err, "plot: write title")
	}
	for _, b := range bars {
		width := b.Value * maxBarWidth / max
		if b.Value > 0 && width == 0 {
			width = 1
		}
		if _, err := fmt.Fprintf(w, "%-*s | %s %d\n", labelWidth, b.Label, strings.Repeat("#", width), b.Value); err != nil {
			return errors.Wrap(err, "plot: write bar")
		}
	}
	return nil
}

// WriteCSV renders bars as "label,value" lines, one per bar, for
// spreadsheet import. Matches the original's TODO'd desire for a
// machine-readable export alongside the rendered chart.
func WriteCSV(w io.Writer, bars []Bar) error {
	for _, b := range bars {
		if _, err := fmt.Fprintf(w, "%s,%d\n", b.Label, b.Value); err != nil {
			return errors.Wrap(err, "plot: write csv row")
		}
	}
	return nil
}
