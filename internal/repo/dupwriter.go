package repo

import (
	"fmt"
	"io"

	"github.com/grailbio/vdup/internal/debuginfo"
	"github.com/grailbio/vdup/internal/pipeline"
	"github.com/grailbio/vdup/internal/sampler"
	"github.com/grailbio/vdup/internal/simplepath"
	"github.com/pkg/errors"
)

// DupWriter implements pipeline.DupRecorder: each detected duplicate
// gets its own numbered entry containing a symlink to the new video, a
// symlink to every video it collided with, and a single debuginfo
// artifact recording the colliding frame pairs.
type DupWriter struct {
	Repo *Repo
}

var _ pipeline.DupRecorder = (*DupWriter)(nil)

// RecordDup creates a new entry under w.Repo for newPath, linking to
// newPath itself and to every distinct OtherPath in collisions.
func (w *DupWriter) RecordDup(newPath simplepath.Path, collisions []pipeline.Collision) error {
	entry, err := w.Repo.NewEntry()
	if err != nil {
		return errors.Wrap(err, "repo: new dup entry")
	}
	if err := entry.CreateRelativeSymlink("new", newPath); err != nil {
		return err
	}

	seen := simplepath.NewSet()
	var infos []debuginfo.Collision
	for _, c := range collisions {
		infos = append(infos, debuginfo.Collision{
			ReferenceTS:       c.Reference.TS,
			ReferenceHash:     c.Reference.Hash,
			ReferenceMirrored: c.Reference.Mirror == sampler.Mirrored,
			OtherHash:         c.OtherHash,
			OtherTS:           c.Other.FramePos,
			OtherPath:         c.Other.Path.String(),
			OtherMirrored:     c.Other.Mirrored == sampler.Mirrored,
		})
		if seen.Contains(c.Other.Path) {
			continue
		}
		seen.Add(c.Other.Path)
		name := fmt.Sprintf("match_%s", sanitizeName(c.Other.Path.String()))
		if err := entry.CreateRelativeSymlink(name, c.Other.Path); err != nil {
			return err
		}
	}

	return entry.CreateFile("debuginfo.bin", func(w2 writerFunc) error {
		return debuginfo.Write(w2, infos)
	})
}

// writerFunc aliases io.Writer to avoid importing it just for this
// signature adapter.
type writerFunc = interface {
	Write(p []byte) (int, error)
}

func sanitizeName(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
