package ignored

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"

	"github.com/grailbio/vdup/internal/hashval"
	"github.com/grailbio/vdup/internal/sampler"
	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// Load reads every regular file directly inside dir (not recursive,
// matching the original fsutils::all_files), and for each, preprocesses
// and hashes both the image and its horizontal mirror with cfg. A file
// that fails to decode as an image is an error; a file that decodes but
// is rejected by preprocessing, or whose hash collides with an
// already-loaded non-mirror hash, is skipped and logged.
func Load(dir string, cfg sampler.Config) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "ignored: read dir %s", dir)
	}

	set := &Set{tolerance: cfg.SimilarityThreshold}
	var nonMirror []hashval.Hamming

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		f, err := os.Open(path)
		if err != nil {
			return nil, errors.Wrapf(err, "ignored: open %s", path)
		}
		img, _, err := image.Decode(f)
		closeErr := f.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "ignored: could not open %s as an image", path)
		}
		if closeErr != nil {
			return nil, errors.Wrapf(closeErr, "ignored: close %s", path)
		}

		for _, mirrored := range [2]bool{false, true} {
			subject := img
			if mirrored {
				subject = sampler.FlipHorizontal(img)
			}

			cropped, reason := sampler.Preprocess(subject, cfg)
			if reason != sampler.RejectNone {
				vlog.Errorf("ignored: %s is empty after preprocessing (mirror=%v): %s", path, mirrored, reason)
				continue
			}
			h, ok := sampler.Hash(cropped)
			if !ok {
				vlog.Errorf("ignored: %s produced no hash (mirror=%v)", path, mirrored)
				continue
			}

			if collidesWithNonMirror(nonMirror, cfg.SimilarityThreshold, h) {
				vlog.Infof("ignored: %s (mirror=%v) is the same as an already-loaded hash, skipping", path, mirrored)
				continue
			}

			set.add(h)
			if !mirrored {
				nonMirror = append(nonMirror, h)
			}
		}
	}

	return set, nil
}

func collidesWithNonMirror(nonMirror []hashval.Hamming, tolerance int, h hashval.Hamming) bool {
	for _, ign := range nonMirror {
		if hashval.Distance(ign, h) <= tolerance {
			return true
		}
	}
	return false
}
