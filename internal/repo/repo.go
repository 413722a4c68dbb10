// Package repo implements the numbered-entry directory layout used by
// both the dup repo and the graveyard repo (§4.I): a directory of
// zero-padded 4-digit sub-entries, each itself a directory of
// `NNNN_name[.ext]` artifacts (symlinks or regular files).
package repo

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"v.io/x/lib/vlog"
)

// entryPadding is the width of a zero-padded entry number, matching
// the original's ENTRY_PADDING.
const entryPadding = 4

// Repo is a directory of numbered entries.
type Repo struct {
	dir       string
	nextEntry uint32
}

// Open computes the next free entry number from dir's existing
// sub-entries (max+1, or 0 if empty) and returns a Repo rooted there.
// dir is created if it does not already exist.
func Open(dir string) (*Repo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "repo: create %s", dir)
	}
	next, err := findNextEntry(dir, func(name string) (uint32, bool) {
		n, err := strconv.ParseUint(name, 10, 32)
		if err != nil {
			return 0, false
		}
		return uint32(n), true
	})
	if err != nil {
		return nil, err
	}
	return &Repo{dir: dir, nextEntry: next}, nil
}

// Path returns the repo's root directory.
func (r *Repo) Path() string {
	return r.dir
}

// NewEntry creates and returns the next numbered entry directory.
func (r *Repo) NewEntry() (*Entry, error) {
	name := entryName(r.nextEntry)
	path := filepath.Join(r.dir, name)
	if err := os.Mkdir(path, 0o755); err != nil {
		return nil, errors.Wrapf(err, "repo: create entry %s", path)
	}
	r.nextEntry++
	return openEntry(path, 1)
}

// Entries opens every existing numbered sub-entry, in ascending order.
func (r *Repo) Entries() ([]*Entry, error) {
	var entries []*Entry
	for n := uint32(0); n < r.nextEntry; n++ {
		path := filepath.Join(r.dir, entryName(n))
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.Wrapf(err, "repo: stat %s", path)
		}
		if !info.IsDir() {
			continue
		}
		entry, err := openEntry(path, 1)
		if err != nil {
			return nil, errors.Wrapf(err, "repo: open entry %s", path)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func entryName(n uint32) string {
	return pad(uint64(n), entryPadding)
}

func pad(n uint64, width int) string {
	s := strconv.FormatUint(n, 10)
	for len(s) < width {
		s = "0" + s
	}
	return s
}

// findNextEntry lists dir's immediate children, extracts a number from
// each name via extract (a name that doesn't parse is skipped with a
// warning, not an error — matching the original's tolerance of stray
// files), and returns one past the maximum seen.
func findNextEntry(dir string, extract func(name string) (uint32, bool)) (uint32, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return 0, errors.Wrapf(err, "repo: read %s", dir)
	}
	var max uint32
	seen := false
	for _, child := range children {
		n, ok := extract(child.Name())
		if !ok {
			vlog.Infof("repo: ignoring %s/%s: not a numbered entry", dir, child.Name())
			continue
		}
		if !seen || n > max {
			max = n
		}
		seen = true
	}
	if !seen {
		return 0, nil
	}
	return max + 1, nil
}
