// Package badgerstore persists artifacts in an embedded BadgerDB, the local
// low-latency tier of the memoization cache. Keys are the canonical
// kind/subject/analysis triple; values are JSON.
package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"godecode/domain/core"
	"godecode/domain/decoding"
)

// Config holds configuration for a Badger-backed store.
type Config struct {
	// Path is the directory for the database files; ignored when InMemory.
	Path string
	// InMemory disables disk persistence, for tests.
	InMemory bool
	// SyncWrites trades write latency for durability.
	SyncWrites bool
	// GCInterval is how often value-log garbage collection runs; 0 disables it.
	GCInterval time.Duration
}

// DefaultConfig returns durable on-disk settings.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true, GCInterval: 5 * time.Minute}
}

// InMemoryConfig returns settings for tests: no disk I/O, no GC.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store implements ports.ArtifactStore on BadgerDB.
type Store struct {
	db     *badger.DB
	stopGC chan struct{}
}

// Open creates or opens the database.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}
	s := &Store{db: db, stopGC: make(chan struct{})}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		go s.runGC(cfg.GCInterval)
	}
	return s, nil
}

func (s *Store) runGC(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			// Rerun until there is nothing left to collect.
			for s.db.RunValueLogGC(0.5) == nil {
			}
		case <-s.stopGC:
			return
		}
	}
}

func storeKey(key decoding.Key) []byte {
	return []byte(fmt.Sprintf("%s/%s/%s", key.Kind, key.Subject, key.Analysis))
}

// Has reports whether an artifact exists at the key.
func (s *Store) Has(ctx context.Context, key decoding.Key) (bool, error) {
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(storeKey(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("badger get: %w", err)
	}
	return true, nil
}

// Load unmarshals the artifact at the key into out.
func (s *Store) Load(ctx context.Context, key decoding.Key, out any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(storeKey(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return core.NewMissingArtifactError(string(key.Kind), string(key.Subject), string(key.Analysis))
	}
	if err != nil {
		return fmt.Errorf("badger load: %w", err)
	}
	return nil
}

// Save serializes the artifact under the key, overwriting any previous value.
func (s *Store) Save(ctx context.Context, key decoding.Key, artifact any) error {
	payload, err := json.Marshal(artifact)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(storeKey(key), payload)
	})
	if err != nil {
		return fmt.Errorf("badger save: %w", err)
	}
	return nil
}

// Close stops GC and closes the database.
func (s *Store) Close() error {
	close(s.stopGC)
	return s.db.Close()
}
