package htmlentry

import (
	"sync"

	"github.com/entrykit/htmlentry/internal/monitoring"
	"golang.org/x/sync/singleflight"
)

// Store memoizes resolved text by location. The first resolution for a key,
// success or failure, is shared by every concurrent and future requester for
// the Store's lifetime; a location is fetched over the network at most once.
// There is no eviction.
type Store struct {
	group   singleflight.Group
	mu      sync.RWMutex
	entries map[string]*storeEntry

	kind    string
	metrics *monitoring.Metrics
}

type storeEntry struct {
	text string
	err  error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{entries: make(map[string]*storeEntry)}
}

// instrument attaches a resource kind and metrics sink. The first attachment
// wins; loaders sharing a store family cannot override each other's sink.
func (s *Store) instrument(kind string, m *monitoring.Metrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.metrics != nil {
		return
	}
	s.kind = kind
	s.metrics = m
}

// Resolve returns the memoized text for key, invoking resolve at most once
// per key across all callers. A failed resolution is memoized too and
// returned to every later caller without retrying. One call records at most
// one cache metric.
func (s *Store) Resolve(key string, resolve func() (string, error)) (string, error) {
	s.mu.RLock()
	kind, metrics := s.kind, s.metrics
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		metrics.RecordCacheHit(kind)
		return e.text, e.err
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		// Re-check under the write path: a previous flight may have
		// completed between the read above and this call. The outer check
		// already decides hit accounting, so no metric here.
		s.mu.RLock()
		e, ok := s.entries[key]
		s.mu.RUnlock()
		if ok {
			return e.text, e.err
		}

		metrics.RecordCacheMiss(kind)
		text, err := resolve()
		s.mu.Lock()
		s.entries[key] = &storeEntry{text: text, err: err}
		s.mu.Unlock()
		return text, err
	})

	text, _ := v.(string)
	return text, err
}

// Stores groups the three process-lifetime caches: stylesheet text, script
// text, and fetched entry documents.
type Stores struct {
	Styles  *Store
	Scripts *Store
	Pages   *Store
}

// NewStores creates a fresh cache family. Tests use this instead of the
// shared process-wide set.
func NewStores() *Stores {
	return &Stores{
		Styles:  NewStore(),
		Scripts: NewStore(),
		Pages:   NewStore(),
	}
}

// defaultStores backs loaders that are not given their own cache family.
var defaultStores = NewStores()
