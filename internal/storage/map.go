package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrKeyTooLarge   = errors.New("storage: key exceeds size limit")
	ErrValueTooLarge = errors.New("storage: value exceeds size limit")
)

// Limits bounds encoded key and value sizes in bytes. Zero means unbounded.
type Limits struct {
	MaxKeySize   int
	MaxValueSize int
}

// Map is a typed view over a Provider that stores values as JSON.
type Map[V any] struct {
	p      Provider
	limits Limits
}

// NewMap wraps p with a JSON codec and the given size limits.
func NewMap[V any](p Provider, limits Limits) *Map[V] {
	return &Map[V]{p: p, limits: limits}
}

// Insert encodes v and stores it under key. Oversized keys or values are
// rejected before anything is written.
func (m *Map[V]) Insert(key string, v V) error {
	if m.limits.MaxKeySize > 0 && len(key) > m.limits.MaxKeySize {
		return fmt.Errorf("%w: %d > %d", ErrKeyTooLarge, len(key), m.limits.MaxKeySize)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("storage: encode %s: %w", key, err)
	}
	if m.limits.MaxValueSize > 0 && len(data) > m.limits.MaxValueSize {
		return fmt.Errorf("%w: %d > %d", ErrValueTooLarge, len(data), m.limits.MaxValueSize)
	}
	return m.p.Insert(key, data)
}

// Get returns the decoded value under key.
func (m *Map[V]) Get(key string) (V, bool, error) {
	var v V
	data, ok, err := m.p.Get(key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	return v, true, nil
}

// Remove deletes key and returns the decoded value it held.
func (m *Map[V]) Remove(key string) (V, bool, error) {
	var v V
	data, ok, err := m.p.Remove(key)
	if err != nil || !ok {
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, true, fmt.Errorf("storage: decode %s: %w", key, err)
	}
	return v, true, nil
}

// Values returns every decoded value in ascending key order.
func (m *Map[V]) Values() ([]V, error) {
	raw, err := m.p.Values()
	if err != nil {
		return nil, err
	}
	out := make([]V, 0, len(raw))
	for _, data := range raw {
		var v V
		if err := json.Unmarshal(data, &v); err != nil {
			return nil, fmt.Errorf("storage: decode value: %w", err)
		}
		out = append(out, v)
	}
	return out, nil
}
