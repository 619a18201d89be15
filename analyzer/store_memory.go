package analyzer

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// memoryStore is a bounded in-process LRU.
type memoryStore struct {
	entries *lru.Cache[string, cacheEntry]
}

func newMemoryStore(maxEntries int) (*memoryStore, error) {
	entries, err := lru.New[string, cacheEntry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis cache: %w", err)
	}
	return &memoryStore{entries: entries}, nil
}

func (m *memoryStore) get(_ context.Context, key string) (cacheEntry, bool, error) {
	e, ok := m.entries.Get(key)
	return e, ok, nil
}

func (m *memoryStore) peek(_ context.Context, key string) (cacheEntry, bool, error) {
	e, ok := m.entries.Peek(key)
	return e, ok, nil
}

// add ignores ttl; expiry is checked by the cache on read.
func (m *memoryStore) add(_ context.Context, key string, entry cacheEntry, _ time.Duration) error {
	m.entries.Add(key, entry)
	return nil
}

func (m *memoryStore) remove(_ context.Context, key string) error {
	m.entries.Remove(key)
	return nil
}

func (m *memoryStore) len(context.Context) (int, error) {
	return m.entries.Len(), nil
}

func (m *memoryStore) purge(context.Context) error {
	m.entries.Purge()
	return nil
}

func (m *memoryStore) name() string { return "memory" }
