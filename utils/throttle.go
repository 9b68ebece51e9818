package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Throttle spaces out requests by a random delay drawn from [Min, Max].
// The crawl is sequential, so the delay is about politeness, not ordering.
type Throttle struct {
	min time.Duration
	max time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewThrottle creates a Throttle. A max below min is raised to min.
func NewThrottle(min, max time.Duration) *Throttle {
	if max < min {
		max = min
	}
	return &Throttle{
		min: min,
		max: max,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next randomized delay without sleeping.
func (t *Throttle) Next() time.Duration {
	if t.max <= t.min {
		return t.min
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.min + time.Duration(t.rnd.Int63n(int64(t.max-t.min)+1))
}

// Wait sleeps for a randomized delay, returning early if ctx is cancelled.
func (t *Throttle) Wait(ctx context.Context) error {
	return Sleep(ctx, t.Next())
}

// StringSet is a thread-safe set of strings.
type StringSet struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

// NewStringSet creates an empty StringSet.
func NewStringSet() *StringSet {
	return &StringSet{seen: make(map[string]struct{})}
}

// Add returns true if s was newly added, false if already present.
func (s *StringSet) Add(v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.seen[v]; exists {
		return false
	}
	s.seen[v] = struct{}{}
	return true
}

// Size returns the number of unique entries.
func (s *StringSet) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.seen)
}
