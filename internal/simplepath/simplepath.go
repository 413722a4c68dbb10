// Package simplepath implements the validated relative-path type used
// everywhere a path is stored in the index or a repo entry: non-empty
// UTF-8, relative, no "." or ".." components, no "//" or trailing "/".
package simplepath

import (
	"strings"
	"unicode/utf8"

	"github.com/dgryski/go-farm"
	"github.com/pkg/errors"
)

// Path is a validated simple-relative path. The zero value is not a
// valid Path; always construct one with New.
type Path struct {
	s    string
	hash uint64 // cached FarmHash64 of s, for O(1) dedup/set membership.
}

// New validates s and returns a Path, or an error describing why s is
// not a simple relative path.
func New(s string) (Path, error) {
	if s == "" {
		return Path{}, errors.New("simplepath: empty path")
	}
	if !utf8.ValidString(s) {
		return Path{}, errors.New("simplepath: not valid UTF-8")
	}
	if strings.HasPrefix(s, "/") {
		return Path{}, errors.Errorf("simplepath: %q is absolute", s)
	}
	if strings.Contains(s, "//") {
		return Path{}, errors.Errorf("simplepath: %q contains a repeated slash", s)
	}
	if strings.HasSuffix(s, "/") || strings.HasSuffix(s, "/.") {
		return Path{}, errors.Errorf("simplepath: %q has a trailing slash or dot component", s)
	}
	for _, part := range strings.Split(s, "/") {
		switch part {
		case "", ".", "..":
			return Path{}, errors.Errorf("simplepath: %q contains an empty, %q or %q component", s, ".", "..")
		}
	}
	return Path{s: s, hash: farm.Hash64([]byte(s))}, nil
}

// MustNew is New, panicking on error. Intended for tests and literal
// paths baked into tooling, never for untrusted input.
func MustNew(s string) Path {
	p, err := New(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the underlying path string.
func (p Path) String() string {
	return p.s
}

// IsZero reports whether p is the zero value (not a validated path).
func (p Path) IsZero() bool {
	return p.s == ""
}

// FarmHash returns the cached FarmHash64 of the path string, suitable
// as a map key or a fast pre-filter before a string comparison.
func (p Path) FarmHash() uint64 {
	return p.hash
}

// Depth returns the number of (non-".") path components.
func (p Path) Depth() int {
	if p.s == "" {
		return 0
	}
	return strings.Count(p.s, "/") + 1
}

// ResolveFileTo converts an absolute-like symlink target into a
// relative link suitable for placing at this path's location: it
// prepends Depth()-1 "../" parent jumps, since the link lives one
// level below its own directory depth.
func (p Path) ResolveFileTo(target string) string {
	jumps := p.Depth() - 1
	if jumps <= 0 {
		return target
	}
	return strings.Repeat("../", jumps) + target
}

// Set is a small helper over map[uint64][]Path used by callers (e.g.
// edit:purge) that need to accumulate a set of paths and test
// membership without repeated full-string compares across a large
// union; the FarmHash bucket narrows the candidate list to (almost
// always) one entry before the string equality check.
type Set struct {
	buckets map[uint64][]Path
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{buckets: make(map[uint64][]Path)}
}

// Add inserts p into the set. Adding an already-present path is a
// no-op.
func (s *Set) Add(p Path) {
	bucket := s.buckets[p.hash]
	for _, existing := range bucket {
		if existing.s == p.s {
			return
		}
	}
	s.buckets[p.hash] = append(bucket, p)
}

// Contains reports whether p is in the set.
func (s *Set) Contains(p Path) bool {
	for _, existing := range s.buckets[p.hash] {
		if existing.s == p.s {
			return true
		}
	}
	return false
}

// Len returns the number of distinct paths in the set.
func (s *Set) Len() int {
	n := 0
	for _, bucket := range s.buckets {
		n += len(bucket)
	}
	return n
}

// Each calls fn once per path in the set, in unspecified order.
func (s *Set) Each(fn func(Path)) {
	for _, bucket := range s.buckets {
		for _, p := range bucket {
			fn(p)
		}
	}
}
