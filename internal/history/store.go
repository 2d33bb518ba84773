// Package history provides bounded per-consumer track exclusion sets using
// LRU eviction with a Bloom-filter fast path.
package history

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

const bloomFalsePositiveRate = 0.001

// Store tracks recently served track identifiers per consumer so the same
// track is not served twice within the history window.
type Store struct {
	mu         sync.RWMutex
	maxEntries int
	consumers  map[string]*consumerSet
}

type consumerSet struct {
	lru   *lru.Cache[string, struct{}]
	bloom *bloom.BloomFilter
}

// New creates a store whose per-consumer sets hold at most maxEntries
// identifiers, evicting oldest-first.
func New(maxEntries int) *Store {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &Store{
		maxEntries: maxEntries,
		consumers:  make(map[string]*consumerSet),
	}
}

// Has checks whether the consumer was recently served the track.
func (s *Store) Has(consumerID, trackID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.consumers[consumerID]
	if !ok {
		return false
	}
	if !set.bloom.TestString(trackID) {
		return false
	}
	return set.lru.Contains(trackID)
}

// Add records a served track for the consumer, evicting the oldest entry
// when the set is at capacity.
func (s *Store) Add(consumerID, trackID string) {
	if consumerID == "" || trackID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.consumers[consumerID]
	if !ok {
		set = s.newSet()
		s.consumers[consumerID] = set
	}
	set.lru.Add(trackID, struct{}{})
	set.bloom.AddString(trackID)
}

// Snapshot returns a copy of the consumer's current exclusion set. The
// returned map is safe for callers to read without further locking.
func (s *Store) Snapshot(consumerID string) map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.consumers[consumerID]
	if !ok {
		return map[string]struct{}{}
	}
	out := make(map[string]struct{}, set.lru.Len())
	for _, key := range set.lru.Keys() {
		out[key] = struct{}{}
	}
	return out
}

// Clear removes the exclusion sets for the given consumers, or every
// consumer when none are named.
func (s *Store) Clear(consumerIDs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(consumerIDs) == 0 {
		s.consumers = make(map[string]*consumerSet)
		return
	}
	for _, id := range consumerIDs {
		delete(s.consumers, id)
	}
}

// Size returns the number of identifiers held for a consumer.
func (s *Store) Size(consumerID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if set, ok := s.consumers[consumerID]; ok {
		return set.lru.Len()
	}
	return 0
}

// Consumers lists the consumer IDs with a non-empty history.
func (s *Store) Consumers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.consumers))
	for id := range s.consumers {
		out = append(out, id)
	}
	return out
}

// SetMaxEntries changes the capacity for consumer sets created after the
// call; existing sets keep their capacity until cleared.
func (s *Store) SetMaxEntries(n int) {
	if n < 1 {
		n = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.maxEntries = n
}

func (s *Store) newSet() *consumerSet {
	cache, _ := lru.New[string, struct{}](s.maxEntries)
	return &consumerSet{
		lru:   cache,
		bloom: bloom.NewWithEstimates(uint(s.maxEntries), bloomFalsePositiveRate),
	}
}
