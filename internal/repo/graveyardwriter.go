package repo

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/grailbio/vdup/internal/sampler"
	"github.com/grailbio/vdup/internal/simplepath"
	"github.com/pkg/errors"
)

// GraveyardWriter implements sampler.RejectSink: it batches every
// rejected frame of one video into a single graveyard entry (§4.I),
// created lazily on the first rejection so that videos with nothing to
// reject never leave an empty directory behind.
type GraveyardWriter struct {
	Repo      *Repo
	VideoPath simplepath.Path
	// Mirror, if set, also uploads every rejected JPEG to S3 under
	// VideoPath's sanitized name (--graveyard-s3-bucket).
	Mirror *S3Mirror

	mu    sync.Mutex
	entry *Entry
}

var _ sampler.RejectSink = (*GraveyardWriter)(nil)

// SaveRejected implements sampler.RejectSink. Repos are shared mutable
// state across concurrent decoder workers (§5), so entry allocation is
// guarded by mu; the JPEG write itself runs on the calling goroutine.
func (w *GraveyardWriter) SaveRejected(ts time.Duration, img image.Image, reason string) error {
	w.mu.Lock()
	entry := w.entry
	var err error
	if entry == nil {
		entry, err = w.Repo.NewEntry()
		if err != nil {
			w.mu.Unlock()
			return errors.Wrap(err, "repo: new graveyard entry")
		}
		if err := entry.CreateRelativeSymlink("video", w.VideoPath); err != nil {
			w.mu.Unlock()
			return err
		}
		w.entry = entry
	}
	w.mu.Unlock()

	name := fmt.Sprintf("%s_%s", reason, ts)
	if err := entry.CreateJPEG(name, img); err != nil {
		return err
	}
	if w.Mirror != nil {
		key := fmt.Sprintf("%s/%s_%s.jpg", sanitizeName(w.VideoPath.String()), reason, ts)
		if err := w.Mirror.upload(key, img); err != nil {
			return err
		}
	}
	return nil
}
