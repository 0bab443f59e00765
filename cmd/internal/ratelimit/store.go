package ratelimit

import (
	"context"
	"sync"
	"time"
)

// CounterStore counts hits per key within fixed windows.
type CounterStore interface {
	// Incr records one hit for key in the window containing now and
	// returns the updated count plus the instant the window resets.
	// The count includes the hit just recorded and is never reset or
	// decremented because a request was rejected.
	Incr(ctx context.Context, key string, window time.Duration, now time.Time) (count int, reset time.Time, err error)
}

type windowCounter struct {
	start time.Time
	count int
}

// MemoryStore is an in-process CounterStore. Stale windows are evicted
// lazily whenever the map grows past a small threshold.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
}

// NewMemoryStore creates an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*windowCounter)}
}

// Incr implements CounterStore.
func (s *MemoryStore) Incr(_ context.Context, key string, window time.Duration, now time.Time) (int, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !now.Before(c.start.Add(window)) {
		c = &windowCounter{start: now}
		s.counters[key] = c
	}
	c.count++

	if len(s.counters) > 1024 {
		s.evictStaleLocked(now, window)
	}

	return c.count, c.start.Add(window), nil
}

func (s *MemoryStore) evictStaleLocked(now time.Time, window time.Duration) {
	for k, c := range s.counters {
		if !now.Before(c.start.Add(window)) {
			delete(s.counters, k)
		}
	}
}
