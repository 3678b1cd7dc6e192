package storage

import (
	"maps"
	"slices"
	"sync"
)

// Memory is an in-process Backend. Contents are lost on exit.
type Memory struct {
	mu          sync.Mutex
	collections map[string]*memCollection
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]*memCollection)}
}

// Collection returns the named collection, creating it on first use.
func (m *Memory) Collection(name string) (Provider, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collections[name]
	if !ok {
		c = &memCollection{entries: make(map[string][]byte)}
		m.collections[name] = c
	}
	return c, nil
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

type memCollection struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

func (c *memCollection) Insert(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = slices.Clone(value)
	return nil
}

func (c *memCollection) Get(key string) ([]byte, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (c *memCollection) Remove(key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	delete(c.entries, key)
	return v, true, nil
}

func (c *memCollection) Values() ([][]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := slices.Sorted(maps.Keys(c.entries))
	out := make([][]byte, len(keys))
	for i, k := range keys {
		out[i] = slices.Clone(c.entries[k])
	}
	return out, nil
}
