package store

import (
	"context"
	"sync"

	"github.com/Brownie44l1/cancer-api/internal/prediction"
)

// Memory is a process-local store, used by default and in tests.
type Memory struct {
	mu      sync.RWMutex
	records map[string]prediction.Record
}

func NewMemory() *Memory {
	return &Memory{records: make(map[string]prediction.Record)}
}

func (m *Memory) Save(ctx context.Context, r prediction.Record) error {
	if err := ctx.Err(); err != nil {
		return saveError(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.records[r.ID]; exists {
		return duplicateError(r.ID)
	}
	m.records[r.ID] = r
	return nil
}

func (m *Memory) ListAll(ctx context.Context) ([]prediction.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, listError(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]prediction.Record, 0, len(m.records))
	for _, r := range m.records {
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) Close() error { return nil }
