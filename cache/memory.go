package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// DefaultMaxSize is the capacity bound applied when a MemoryStore is
// constructed with a non-positive size.
const DefaultMaxSize = 128

// MemoryStore is an in-process Store bounded by entry count and per-entry
// TTL. Expiry is lazy: an expired entry is detected and removed by the next
// lookup that touches it, so an idle expired entry may occupy a slot until
// then. When an insert would exceed capacity, the least-recently-accessed
// entry is evicted; recency is updated on both Get and Set.
type MemoryStore struct {
	mu      sync.Mutex
	maxSize int
	ll      *list.List // front = most recently accessed
	items   map[string]*list.Element
	hits    int64
	misses  int64

	now func() time.Time // injectable for tests
}

type memoryEntry struct {
	key        string
	value      []byte
	insertedAt time.Time
	ttl        time.Duration
}

// NewMemoryStore creates a memory store holding at most maxSize entries.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &MemoryStore{
		maxSize: maxSize,
		ll:      list.New(),
		items:   make(map[string]*list.Element, maxSize),
		now:     time.Now,
	}
}

// Get retrieves a value. An entry whose TTL has elapsed is removed and
// reported as absent.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	elem, ok := s.items[key]
	if !ok {
		s.misses++
		return nil, false, nil
	}

	entry := elem.Value.(*memoryEntry)
	if s.now().Sub(entry.insertedAt) >= entry.ttl {
		s.removeLocked(elem)
		s.misses++
		return nil, false, nil
	}

	s.ll.MoveToFront(elem)
	s.hits++
	return entry.value, true, nil
}

// Set stores a value with the given TTL, overwriting any existing entry for
// the key. A non-positive TTL is a no-op. Entries are replace-only: an
// overwrite installs a fresh entry with a fresh insertion time.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &memoryEntry{
		key:        key,
		value:      value,
		insertedAt: s.now(),
		ttl:        ttl,
	}

	if elem, ok := s.items[key]; ok {
		elem.Value = entry
		s.ll.MoveToFront(elem)
		return nil
	}

	s.items[key] = s.ll.PushFront(entry)
	if s.ll.Len() > s.maxSize {
		if oldest := s.ll.Back(); oldest != nil {
			s.removeLocked(oldest)
		}
	}
	return nil
}

// Clear removes every entry and returns how many were removed.
func (s *MemoryStore) Clear(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := int64(len(s.items))
	s.ll.Init()
	s.items = make(map[string]*list.Element, s.maxSize)
	return removed, nil
}

// Stats returns hit/miss counters and the current entry count. Size is an
// upper bound; lazily-expired entries still count until next touched.
func (s *MemoryStore) Stats(_ context.Context) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Hits:   s.hits,
		Misses: s.misses,
		Size:   int64(len(s.items)),
	}
}

func (s *MemoryStore) removeLocked(elem *list.Element) {
	entry := elem.Value.(*memoryEntry)
	delete(s.items, entry.key)
	s.ll.Remove(elem)
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
