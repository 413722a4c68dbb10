package ignored

import (
	"testing"

	"github.com/grailbio/vdup/internal/hashval"
	"github.com/stretchr/testify/assert"
)

func TestZeroSetIgnoresNothing(t *testing.T) {
	var s *Set
	assert.False(t, s.IsIgnored(hashval.Hamming{Hi: 1, Lo: 2}))
	assert.Equal(t, 0, s.Len())
}

func TestIsIgnoredSameBucketExactMatch(t *testing.T) {
	s := &Set{tolerance: 0}
	known := hashval.Hamming{Hi: 0x1100000000000000, Lo: 0xabcd}
	s.add(known)

	assert.True(t, s.IsIgnored(known))
	assert.Equal(t, 1, s.Len())
}

func TestIsIgnoredFallsBackAcrossBuckets(t *testing.T) {
	s := &Set{tolerance: 4}
	// Two hashes with different top bytes (so different buckets), two
	// bits apart: a query close to the second must still be found even
	// though its own top byte selects a bucket holding neither hash.
	a := hashval.Hamming{Hi: 0x0100000000000000}
	b := hashval.Hamming{Hi: 0x0200000000000000}
	s.add(a)
	s.add(b)

	query := hashval.Hamming{Hi: 0x0600000000000000} // distance 1 from b, empty bucket
	assert.True(t, s.IsIgnored(query))
}

func TestIsIgnoredRejectsFarQuery(t *testing.T) {
	s := &Set{tolerance: 2}
	s.add(hashval.Hamming{Hi: 0, Lo: 0})

	far := hashval.Hamming{Hi: 0, Lo: 0xff} // distance 8
	assert.False(t, s.IsIgnored(far))
}

func TestBucketKeyIsDeterministic(t *testing.T) {
	h := hashval.Hamming{Hi: 0xAB00000000000000}
	assert.Equal(t, bucketKey(h), bucketKey(h))
}
