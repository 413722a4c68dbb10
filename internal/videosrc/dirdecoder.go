// Package videosrc provides the one concrete sampler.Decoder this repo
// ships: a frame decoder is explicitly out of scope (the spec only fixes
// the Next/SeekForward/SeekTo/ApproxLength contract it needs), and no video
// decoding library appears anywhere in the example pack. DirDecoder treats
// a directory of already-extracted, lexicographically-ordered frame images
// as the video's frame stream at a fixed sampling interval, giving cmd/videodup
// something real to drive end to end while leaving pipeline.DecoderFactory
// as the seam a real video backend would plug into.
package videosrc

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/grailbio/vdup/internal/sampler"
	"github.com/pkg/errors"
)

// DirDecoder implements sampler.Decoder by walking a directory of frame
// images in name order, one fixed-size Interval apart.
type DirDecoder struct {
	dir      string
	paths    []string
	interval time.Duration
	pos      int
}

var _ sampler.Decoder = (*DirDecoder)(nil)

// OpenDir lists dir's regular files, sorts them by name, and returns a
// DirDecoder that reports each one interval apart starting at zero.
func OpenDir(dir string, interval time.Duration) (*DirDecoder, error) {
	if interval <= 0 {
		return nil, errors.Errorf("videosrc: interval must be positive, got %s", interval)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "videosrc: read %s", dir)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	if len(paths) == 0 {
		return nil, errors.Errorf("videosrc: %s contains no frame images", dir)
	}
	return &DirDecoder{dir: dir, paths: paths, interval: interval}, nil
}

// Next decodes the next frame image in order.
func (d *DirDecoder) Next() (time.Duration, image.Image, error) {
	if d.pos >= len(d.paths) {
		return 0, nil, io.EOF
	}
	path := d.paths[d.pos]
	ts := time.Duration(d.pos) * d.interval
	d.pos++

	f, err := os.Open(path)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "videosrc: open %s", path)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "videosrc: decode %s", path)
	}
	return ts, img, nil
}

// SeekForward advances the read position by delta, rounding down to a
// whole frame.
func (d *DirDecoder) SeekForward(delta time.Duration) error {
	return d.SeekTo(time.Duration(d.pos)*d.interval + delta)
}

// SeekTo positions the decoder at the last frame at or before ts.
func (d *DirDecoder) SeekTo(ts time.Duration) error {
	if ts < 0 {
		ts = 0
	}
	idx := int(ts / d.interval)
	if idx < 0 {
		idx = 0
	}
	if idx > len(d.paths) {
		idx = len(d.paths)
	}
	d.pos = idx
	return nil
}

// ApproxLength returns the decoder's total nominal duration.
func (d *DirDecoder) ApproxLength() time.Duration {
	return time.Duration(len(d.paths)) * d.interval
}
