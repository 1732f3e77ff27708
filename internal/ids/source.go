// Package ids mints the values of the bridge-message-id record header.
package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Source mints ULIDs for a single forwarding worker. Ids taken from one
// Source are strictly increasing, even when the wall clock steps back, so
// consumers can order an instance's records by id alone.
type Source struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	last    uint64
	now     func() time.Time
}

func NewSource() *Source {
	return &Source{entropy: ulid.Monotonic(rand.Reader, 0), now: time.Now}
}

// Next returns the next id as a 26-character string.
func (s *Source) Next() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms := ulid.Timestamp(s.now())
	if ms < s.last {
		ms = s.last
	}
	id, err := ulid.New(ms, s.entropy)
	if err != nil {
		// Entropy for this millisecond is exhausted; borrow the next one.
		ms++
		id = ulid.MustNew(ms, s.entropy)
	}
	s.last = ms
	return id.String()
}
