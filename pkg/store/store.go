// Package store implements the content-addressed store: every entity is
// written under the key H(canonical_bytes) and re-hashed on every
// retrieval to catch corruption before it reaches a caller. Backends are
// pluggable the way pkg/kvdb.KVAdapter lets pkg/ledger swap storage
// engines without touching call sites.
package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/causalityco/causality/pkg/causalityhash"
)

// Backend is the minimal key-value contract a storage engine must provide.
// Implementations never interpret keys or values; all content-addressing
// semantics live in Store.
type Backend interface {
	Get(ctx context.Context, key []byte) ([]byte, error) // nil, nil if absent
	Set(ctx context.Context, key, value []byte) error
	Has(ctx context.Context, key []byte) (bool, error)
	Iterate(ctx context.Context, prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// Store is the content-addressed façade over a Backend. The zero value is
// not usable; construct with New.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	closed  bool
}

// New wraps backend in a Store.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Put writes canonicalBytes under its content hash and returns that hash.
// Writing the same bytes twice is idempotent: the second call observes the
// same key already present and still succeeds.
func (s *Store) Put(ctx context.Context, canonicalBytes []byte) (causalityhash.Hash, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return causalityhash.Hash{}, ErrClosed
	}
	h := causalityhash.Sum(canonicalBytes)
	if err := s.backend.Set(ctx, h.Bytes(), canonicalBytes); err != nil {
		return causalityhash.Hash{}, fmt.Errorf("store: put %s: %w", h, err)
	}
	return h, nil
}

// Get retrieves the canonical bytes stored under h and verifies that
// re-hashing them reproduces h exactly. A backend that has silently
// corrupted data surfaces as ErrIntegrity here, not as a decode failure
// further up the stack.
func (s *Store) Get(ctx context.Context, h causalityhash.Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	raw, err := s.backend.Get(ctx, h.Bytes())
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", h, err)
	}
	if raw == nil {
		return nil, ErrNotFound
	}
	got := causalityhash.Sum(raw)
	if !got.Equal(h) {
		return nil, fmt.Errorf("%w: key %s recomputed %s", ErrIntegrity, h, got)
	}
	return raw, nil
}

// Exists reports whether h is present, without paying for a re-hash.
func (s *Store) Exists(ctx context.Context, h causalityhash.Hash) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return false, ErrClosed
	}
	ok, err := s.backend.Has(ctx, h.Bytes())
	if err != nil {
		return false, fmt.Errorf("store: has %s: %w", h, err)
	}
	return ok, nil
}

// List calls fn with every (hash, bytes) pair currently stored. Iteration
// order is backend-defined; callers needing a stable order sort the
// results themselves.
func (s *Store) List(ctx context.Context, fn func(h causalityhash.Hash, raw []byte) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.backend.Iterate(ctx, nil, func(key, value []byte) error {
		h, err := causalityhash.FromBytes(key)
		if err != nil {
			return fmt.Errorf("store: list: malformed key: %w", err)
		}
		return fn(h, value)
	})
}

// Close releases the underlying backend. Subsequent operations return
// ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.backend.Close()
}
