package simplepath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatorAcceptsSimpleComponents(t *testing.T) {
	ok := []string{"a", "a/b", "a/b/c", "a.mp4", "dir/sub.dir/file.mkv"}
	for _, s := range ok {
		_, err := New(s)
		assert.NoError(t, err, "expected %q to be valid", s)
	}
}

func TestValidatorRejectsClosedSet(t *testing.T) {
	bad := []string{"", "/abs", "a//b", "a/./b", "a/../b", "a/", "a/.", ".", "..", "a/b/"}
	for _, s := range bad {
		_, err := New(s)
		assert.Error(t, err, "expected %q to be invalid", s)
	}
}

func TestDepth(t *testing.T) {
	require.Equal(t, 1, MustNew("a").Depth())
	require.Equal(t, 3, MustNew("a/b/c").Depth())
}

func TestResolveFileTo(t *testing.T) {
	p := MustNew("videos/sub/entry/link")
	assert.Equal(t, "../../../target.mp4", p.ResolveFileTo("target.mp4"))
	assert.Equal(t, "target.mp4", MustNew("link").ResolveFileTo("target.mp4"))
}

func TestSet(t *testing.T) {
	s := NewSet()
	a := MustNew("a/b")
	b := MustNew("a/c")
	s.Add(a)
	s.Add(a)
	s.Add(b)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(a))
	assert.True(t, s.Contains(b))
	assert.False(t, s.Contains(MustNew("a/d")))
}
