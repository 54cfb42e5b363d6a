package store

import (
	"context"

	dbm "github.com/cometbft/cometbft-db"
)

// CometBFTBackend wraps a cometbft-db dbm.DB as a Backend. Any dbm.DB
// implementation works here (goleveldb, badger, boltdb, memdb) — the
// caller picks the engine when constructing db.
type CometBFTBackend struct {
	db dbm.DB
}

// NewCometBFTBackend wraps db.
func NewCometBFTBackend(db dbm.DB) *CometBFTBackend {
	return &CometBFTBackend{db: db}
}

func (b *CometBFTBackend) Get(_ context.Context, key []byte) ([]byte, error) {
	v, err := b.db.Get(key)
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Set uses SetSync so that a Put is durable by the time it returns.
func (b *CometBFTBackend) Set(_ context.Context, key, value []byte) error {
	return b.db.SetSync(key, value)
}

func (b *CometBFTBackend) Has(_ context.Context, key []byte) (bool, error) {
	return b.db.Has(key)
}

func (b *CometBFTBackend) Iterate(_ context.Context, prefix []byte, fn func(key, value []byte) error) error {
	var it dbm.Iterator
	var err error
	if len(prefix) == 0 {
		it, err = b.db.Iterator(nil, nil)
	} else {
		it, err = dbm.IteratePrefix(b.db, prefix)
	}
	if err != nil {
		return err
	}
	defer it.Close()

	for ; it.Valid(); it.Next() {
		key := append([]byte(nil), it.Key()...)
		value := append([]byte(nil), it.Value()...)
		if err := fn(key, value); err != nil {
			return err
		}
	}
	return it.Error()
}

func (b *CometBFTBackend) Close() error {
	return b.db.Close()
}
