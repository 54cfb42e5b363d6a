package store

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process Backend used by tests and by standalone
// domain adapters that do not need durability across restarts.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryBackend returns an empty, ready-to-use MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Get(_ context.Context, key []byte) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryBackend) Set(_ context.Context, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[string(key)] = v
	return nil
}

func (m *MemoryBackend) Has(_ context.Context, key []byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[string(key)]
	return ok, nil
}

func (m *MemoryBackend) Iterate(_ context.Context, prefix []byte, fn func(key, value []byte) error) error {
	m.mu.RLock()
	type kv struct {
		k, v []byte
	}
	snapshot := make([]kv, 0, len(m.data))
	for k, v := range m.data {
		kb := []byte(k)
		if len(prefix) > 0 && (len(kb) < len(prefix) || string(kb[:len(prefix)]) != string(prefix)) {
			continue
		}
		snapshot = append(snapshot, kv{k: kb, v: v})
	}
	m.mu.RUnlock()

	for _, e := range snapshot {
		if err := fn(e.k, e.v); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryBackend) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	return nil
}
