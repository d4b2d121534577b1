package testkit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"godecode/domain/core"
	"godecode/domain/decoding"
)

// MemStore is an in-memory artifact store for tests. Values are kept as JSON
// so load/save behaves exactly like the persistent backends.
type MemStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func memKey(key decoding.Key) string {
	return fmt.Sprintf("%s/%s/%s", key.Kind, key.Subject, key.Analysis)
}

// Has reports whether an artifact exists at the key.
func (m *MemStore) Has(ctx context.Context, key decoding.Key) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[memKey(key)]
	return ok, nil
}

// Load unmarshals the artifact at the key into out.
func (m *MemStore) Load(ctx context.Context, key decoding.Key, out any) error {
	m.mu.RLock()
	payload, ok := m.data[memKey(key)]
	m.mu.RUnlock()
	if !ok {
		return core.NewMissingArtifactError(string(key.Kind), string(key.Subject), string(key.Analysis))
	}
	return json.Unmarshal(payload, out)
}

// Save serializes the artifact under the key.
func (m *MemStore) Save(ctx context.Context, key decoding.Key, artifact any) error {
	payload, err := json.Marshal(artifact)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[memKey(key)] = payload
	m.mu.Unlock()
	return nil
}

// Close is a no-op.
func (m *MemStore) Close() error { return nil }

// Len returns the number of stored artifacts.
func (m *MemStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
