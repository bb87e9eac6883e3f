package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Store is a process-wide memo cache for expensive lookups (embeddings,
// per-document similarity scores, page numbers). Entries are recomputed with
// identical values, so concurrent overwrites are harmless; go-cache is safe
// for concurrent use and evicts by TTL.
type Store struct {
	cache  *gocache.Cache
	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports cache usage counters.
type Stats struct {
	Entries int
	Hits    int64
	Misses  int64
}

// New creates a Store whose entries expire after ttl and are swept every
// cleanupInterval.
func New(ttl, cleanupInterval time.Duration) *Store {
	return &Store{
		cache: gocache.New(ttl, cleanupInterval),
	}
}

// Key derives a cache key from arbitrary text content.
func Key(text string) string {
	hash := sha256.Sum256([]byte(text))
	return hex.EncodeToString(hash[:])
}

// CompositeKey derives a cache key from text content plus a document id.
func CompositeKey(text, sourceID string) string {
	return Key(text) + ":" + sourceID
}

// Get retrieves a value from the cache.
func (s *Store) Get(key string) (any, bool) {
	val, found := s.cache.Get(key)
	if found {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return val, found
}

// Set stores a value with the default TTL.
func (s *Store) Set(key string, value any) {
	s.cache.SetDefault(key, value)
}

// GetOrCompute returns the cached value for key, computing and caching it if
// absent. Concurrent callers for the same key share one computation.
// Compute failures are not cached.
func (s *Store) GetOrCompute(key string, compute func() (any, error)) (any, error) {
	if val, found := s.Get(key); found {
		return val, nil
	}
	val, err, _ := s.group.Do(key, func() (any, error) {
		if val, found := s.cache.Get(key); found {
			return val, nil
		}
		val, err := compute()
		if err != nil {
			return nil, err
		}
		s.cache.SetDefault(key, val)
		return val, nil
	})
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Clear removes all entries.
func (s *Store) Clear() {
	s.cache.Flush()
}

// Stats returns current usage counters.
func (s *Store) Stats() Stats {
	return Stats{
		Entries: s.cache.ItemCount(),
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
	}
}
