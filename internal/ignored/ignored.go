// Package ignored implements the known-bad hash set (§4.G): a
// directory of reference images is preprocessed and hashed once at
// startup, and every sampled video frame is checked against it before
// being matched or stored.
package ignored

import (
	"blainsmith.com/go/seahash"
	"github.com/grailbio/vdup/internal/hashval"
)

// Set answers IsIgnored queries against a fixed collection of hashes
// loaded by Load. The zero Set ignores nothing.
type Set struct {
	tolerance int
	buckets   map[uint64][]hashval.Hamming
	count     int
}

// Len returns the number of hashes held by the set (original and
// mirrored images each contribute up to one).
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return s.count
}

// IsIgnored reports whether any stored hash is within s's tolerance of
// query, per §4.G's is_ignored(query) = any stored hash within
// threshold of query.
func (s *Set) IsIgnored(query hashval.Hamming) bool {
	if s == nil {
		return false
	}
	key := bucketKey(query)
	if bucketHasMatch(s.buckets[key], s.tolerance, query) {
		return true
	}
	// Fall back to every other bucket: bucketing is a fast path for
	// the common case of a near-exact top-byte match, not a partition
	// that Hamming-distance neighbors are guaranteed to respect.
	for k, bucket := range s.buckets {
		if k == key {
			continue
		}
		if bucketHasMatch(bucket, s.tolerance, query) {
			return true
		}
	}
	return false
}

func bucketHasMatch(bucket []hashval.Hamming, tolerance int, query hashval.Hamming) bool {
	for _, ign := range bucket {
		if hashval.Distance(ign, query) <= tolerance {
			return true
		}
	}
	return false
}

// bucketKey buckets a hash by a SeaHash of its top byte, so that
// IsIgnored's common case (a query equal or near-equal to a known-bad
// hash) resolves without scanning every ignored hash unconditionally.
func bucketKey(h hashval.Hamming) uint64 {
	topByte := byte(h.Hi >> 56)
	return seahash.Sum64([]byte{topByte})
}

func (s *Set) add(h hashval.Hamming) {
	if s.buckets == nil {
		s.buckets = make(map[uint64][]hashval.Hamming)
	}
	key := bucketKey(h)
	s.buckets[key] = append(s.buckets[key], h)
	s.count++
}
