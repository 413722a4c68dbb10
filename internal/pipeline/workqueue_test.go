package pipeline

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkQueueHandsOutEachItemOnce(t *testing.T) {
	q := NewWorkQueue([]string{"a", "b", "c"})
	assert.Equal(t, 3, q.Len())

	seen := make([]string, 0, 3)
	for {
		_, v, ok := q.Next()
		if !ok {
			break
		}
		seen = append(seen, v)
	}
	assert.ElementsMatch(t, []string{"a", "b", "c"}, seen)

	_, _, ok := q.Next()
	assert.False(t, ok)
	assert.True(t, q.IsStopped())
}

func TestWorkQueueConcurrentClaimsAreDisjoint(t *testing.T) {
	const n = 200
	work := make([]int, n)
	for i := range work {
		work[i] = i
	}
	q := NewWorkQueue(work)

	var mu sync.Mutex
	claimed := make(map[int]int) // index -> count

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx, _, ok := q.Next()
				if !ok {
					return
				}
				mu.Lock()
				claimed[idx]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, claimed, n)
	for idx, count := range claimed {
		assert.Equal(t, 1, count, "index %d claimed %d times", idx, count)
	}
}

func TestWorkQueueStopShortCircuits(t *testing.T) {
	q := NewWorkQueue([]string{"a", "b", "c"})
	_, _, ok := q.Next()
	require.True(t, ok)

	q.Stop()
	assert.True(t, q.IsStopped())
	_, _, ok = q.Next()
	assert.False(t, ok)
}
