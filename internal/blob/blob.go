package blob

import (
	"context"
	"sync"

	"github.com/joseph-ayodele/docuextract/internal/common"
)

// Store keeps uploaded payloads so a failed document can be retried without re-uploading.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	// Get returns a NOT_FOUND app error for unknown keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
}

func notFound(key string) error {
	return common.NotFoundError("payload " + key + " not found")
}

// Memory is a process-local Store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Put(_ context.Context, key string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.data[key] = cp
	m.mu.Unlock()
	return nil
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.data[key]
	if !ok {
		return nil, notFound(key)
	}
	return b, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}
