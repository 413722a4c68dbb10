// Package debuginfo records, for a single detected duplicate, which
// frame(s) of the new video collided with which frame(s) of an
// earlier-seen video. It backs the debug/edit tooling's "why were
// these flagged as dups" question (§4.J).
package debuginfo

import (
	"bytes"
	"encoding/gob"
	"io"
	"time"

	"github.com/grailbio/vdup/internal/hashval"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// Collision is one (reference frame, matched frame) pair recorded for
// a duplicate entry, matching §4.J's Frame = {hash, vidsrc} on both
// sides. debuginfo deliberately stays decoupled from package sampler's
// VidSrc type (a plain bool mirror flag instead of sampler.Mirror) so
// it only depends on hashval, the same way the original's debug record
// only needs the matched timestamp, path and mirror tag to re-extract
// frames, not the full source-type machinery.
type Collision struct {
	ReferenceTS       time.Duration
	ReferenceHash     hashval.Hamming
	ReferenceMirrored bool
	OtherHash         hashval.Hamming
	OtherTS           time.Duration
	OtherPath         string
	OtherMirrored     bool
}

// Write gob-encodes collisions and writes them to w zstd-compressed,
// matching the teacher's gob-for-structure, zstd-for-bytes split
// (cmd/bio-fusion's GOB trailers, encoding/pam's default "zstd"
// transformer).
func Write(w io.Writer, collisions []Collision) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(collisions); err != nil {
		return errors.Wrap(err, "debuginfo: encode")
	}
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "debuginfo: new zstd writer")
	}
	if _, err := zw.Write(buf.Bytes()); err != nil {
		zw.Close()
		return errors.Wrap(err, "debuginfo: write")
	}
	return errors.Wrap(zw.Close(), "debuginfo: close zstd writer")
}

// Read decompresses and gob-decodes a stream written by Write.
func Read(r io.Reader) ([]Collision, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "debuginfo: new zstd reader")
	}
	defer zr.Close()

	var collisions []Collision
	if err := gob.NewDecoder(zr).Decode(&collisions); err != nil {
		return nil, errors.Wrap(err, "debuginfo: decode")
	}
	return collisions, nil
}
