package cache

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"ContentEnricher/internal/ports"
)

const cleanupInterval = 10 * time.Minute

// MemoryStore is a process-local store shared by every Memory handle opened on it.
type MemoryStore struct {
	items *gocache.Cache
}

// NewMemoryStore builds an empty store with periodic cleanup of expired entries.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

// Open returns a handle scoped to namespace.
func (s *MemoryStore) Open(namespace string) *Memory {
	return &Memory{store: s, prefix: prefix(namespace)}
}

// Memory is a namespaced view of a MemoryStore.
type Memory struct {
	store  *MemoryStore
	prefix string
}

var _ ports.Cache = (*Memory)(nil)

// Get returns a copy of the stored value.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.store.items.Get(m.prefix + key)
	if !ok {
		return nil, false, nil
	}
	raw, ok := v.([]byte)
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, true, nil
}

// Set stores a copy of value; a non-positive ttl never expires.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	raw := make([]byte, len(value))
	copy(raw, value)
	m.store.items.Set(m.prefix+key, raw, ttl)
	return nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.store.items.Delete(m.prefix + key)
	return nil
}

// Flush removes every key of the namespace, leaving other namespaces intact.
func (m *Memory) Flush(_ context.Context) error {
	for k := range m.store.items.Items() {
		if strings.HasPrefix(k, m.prefix) {
			m.store.items.Delete(k)
		}
	}
	return nil
}

func prefix(namespace string) string {
	namespace = strings.TrimSpace(namespace)
	if namespace == "" {
		return ""
	}
	return namespace + ":"
}
