package repo

import (
	"bufio"
	"image"
	"image/jpeg"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/vdup/internal/simplepath"
	"github.com/pkg/errors"
)

// jpegQuality matches the original's ImageOutputFormat::Jpeg(95).
const jpegQuality = 95

// Entry is one numbered sub-directory of a Repo (or of another Entry,
// for nested sub-entries). Every artifact written into it is
// automatically prefixed with the next zero-padded artifact number.
type Entry struct {
	dir       string
	depth     int // directory levels from the owning repo's root to dir
	nextEntry uint32
}

func openEntry(dir string, depth int) (*Entry, error) {
	next, err := findNextEntry(dir, func(name string) (uint32, bool) {
		if len(name) < entryPadding+1 || name[entryPadding] != '_' {
			return 0, false
		}
		return parseEntryPrefix(name)
	})
	if err != nil {
		return nil, err
	}
	return &Entry{dir: dir, depth: depth, nextEntry: next}, nil
}

func parseEntryPrefix(name string) (uint32, bool) {
	var n uint32
	for i := 0; i < entryPadding; i++ {
		c := name[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + uint32(c-'0')
	}
	return n, true
}

// Path returns the entry's directory.
func (e *Entry) Path() string {
	return e.dir
}

func (e *Entry) nextPath(name string) string {
	path := filepath.Join(e.dir, pad(uint64(e.nextEntry), entryPadding)+"_"+name)
	e.nextEntry++
	return path
}

// SubEntry creates and returns a nested numbered entry directory inside
// e, artifact-numbered like any other artifact.
func (e *Entry) SubEntry(name string) (*Entry, error) {
	path := e.nextPath(name)
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, errors.Wrapf(err, "repo: create sub-entry %s", path)
	}
	return &Entry{dir: path, depth: e.depth + 1}, nil
}

// CreateFile writes a new artifact named name (numbered and placed
// inside e) by calling write with a buffered writer.
func (e *Entry) CreateFile(name string, write func(io.Writer) error) error {
	path := e.nextPath(name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return errors.Wrapf(err, "repo: create %s", path)
	}
	buf := bufio.NewWriter(f)
	if err := write(buf); err != nil {
		f.Close()
		return errors.Wrapf(err, "repo: write %s", path)
	}
	if err := buf.Flush(); err != nil {
		f.Close()
		return errors.Wrapf(err, "repo: flush %s", path)
	}
	return errors.Wrapf(f.Close(), "repo: close %s", path)
}

// CreateJPEG writes img as a JPEG artifact named jpgName+".jpg".
func (e *Entry) CreateJPEG(jpgName string, img image.Image) error {
	return e.CreateFile(withExt(jpgName, ".jpg"), func(w io.Writer) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: jpegQuality})
	})
}

// CreateTextFile writes contents as a text artifact named txtName+".txt".
func (e *Entry) CreateTextFile(txtName, contents string) error {
	return e.CreateFile(withExt(txtName, ".txt"), func(w io.Writer) error {
		_, err := io.WriteString(w, contents)
		return err
	})
}

func withExt(name, ext string) string {
	if strings.HasSuffix(name, ext) {
		return name
	}
	return name + ext
}

// CreateSymlink creates a symlink artifact named linkName pointing at
// target. A relative target is resolved against the current working
// directory, matching the original's ln-like symlink() helper.
func (e *Entry) CreateSymlink(linkName, target string) error {
	if !filepath.IsAbs(target) {
		abs, err := filepath.Abs(target)
		if err != nil {
			return errors.Wrapf(err, "repo: resolve %s", target)
		}
		target = abs
	}
	path := e.nextPath(linkName)
	return errors.Wrapf(os.Symlink(target, path), "repo: symlink %s -> %s", path, target)
}

// CreateRelativeSymlink creates a symlink artifact named linkName whose
// target is target (a path relative to the repo root containing e),
// expressed relative to the artifact's own location by prepending the
// right number of ".." jumps for e's depth, matching the original's
// symlink_relative.
func (e *Entry) CreateRelativeSymlink(linkName string, target simplepath.Path) error {
	path := e.nextPath(linkName)
	rel := strings.Repeat("../", e.depth) + target.String()
	return errors.Wrapf(os.Symlink(rel, path), "repo: relative symlink %s -> %s", path, rel)
}

// ReadFile locates the artifact whose name, after the NNNN_ prefix,
// equals name, and calls read with it opened for reading.
func (e *Entry) ReadFile(name string, read func(io.Reader) error) error {
	children, err := os.ReadDir(e.dir)
	if err != nil {
		return errors.Wrapf(err, "repo: read %s", e.dir)
	}
	for _, child := range children {
		n := child.Name()
		if len(n) < entryPadding+1 || n[entryPadding] != '_' {
			continue
		}
		if n[entryPadding+1:] == name {
			path := filepath.Join(e.dir, n)
			f, err := os.Open(path)
			if err != nil {
				return errors.Wrapf(err, "repo: open %s", path)
			}
			defer f.Close()
			return errors.Wrapf(read(bufio.NewReader(f)), "repo: read %s", path)
		}
	}
	return errors.Errorf("repo: no artifact named %q in %s", name, e.dir)
}
