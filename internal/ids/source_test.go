package ids

import (
	"sync"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSource_Increasing(t *testing.T) {
	s := NewSource()
	prev := s.Next()
	for i := 0; i < 100; i++ {
		id := s.Next()
		require.Len(t, id, 26)
		_, err := ulid.Parse(id)
		require.NoError(t, err)
		require.Less(t, prev, id)
		prev = id
	}
}

func TestSource_ClockStepsBack(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_000)
	s := NewSource()
	s.now = func() time.Time { return now }

	first := s.Next()
	now = now.Add(-time.Minute)
	second := s.Next()

	assert.Less(t, first, second)
	parsed, err := ulid.Parse(second)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_700_000_000_000), parsed.Time())
}

func TestSource_Concurrent(t *testing.T) {
	const goroutines, perGoroutine = 8, 50
	s := NewSource()

	var (
		mu   sync.Mutex
		seen = make(map[string]struct{}, goroutines*perGoroutine)
		wg   sync.WaitGroup
	)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				id := s.Next()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, goroutines*perGoroutine)
}

func TestSources_Independent(t *testing.T) {
	a, b := NewSource(), NewSource()
	assert.NotEqual(t, a.Next(), b.Next())
}
