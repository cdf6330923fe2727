package history

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/fanify/hype-flow/pkg/types"
)

// MemoryStore keeps history in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records []*Record
	logger  *zap.Logger
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	logger.Info("memory-history-initialized")
	return &MemoryStore{logger: logger}
}

// Record stores a copy of rec.
func (m *MemoryStore) Record(_ context.Context, rec *Record) error {
	cp := *rec
	m.mu.Lock()
	m.records = append(m.records, &cp)
	m.mu.Unlock()

	RecordsTotal.WithLabelValues(string(rec.Type)).Inc()
	return nil
}

// UpdateStatus changes the status of the record with hash.
func (m *MemoryStore) UpdateStatus(_ context.Context, hash string, status types.TxStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.records {
		if r.Hash == hash {
			r.Status = status
			StatusUpdatesTotal.WithLabelValues(string(status)).Inc()
			return nil
		}
	}
	return ErrNotFound
}

// List returns matching records, newest first.
func (m *MemoryStore) List(_ context.Context, filter Filter) ([]*Record, error) {
	m.mu.RLock()
	out := make([]*Record, 0, len(m.records))
	for _, r := range m.records {
		if filter.Matches(r) {
			cp := *r
			out = append(out, &cp)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	m.logger.Info("closing-memory-history")
	return nil
}
