package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/aretw0/signoff/pkg/domain"
)

// History implements ports.HistoryStore in memory.
type History struct {
	records map[string][]domain.HistoryRecord
	mu      sync.RWMutex
}

// NewHistory creates an empty in-memory audit trail.
func NewHistory() *History {
	return &History{
		records: make(map[string][]domain.HistoryRecord),
	}
}

// Append adds a record to the trail of its instance.
func (h *History) Append(ctx context.Context, record domain.HistoryRecord) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[record.InstanceID] = append(h.records[record.InstanceID], record)
	return nil
}

// List returns a copy of the instance's records ordered by Seq.
func (h *History) List(ctx context.Context, instanceID string) ([]domain.HistoryRecord, error) {
	h.mu.RLock()
	out := slices.Clone(h.records[instanceID])
	h.mu.RUnlock()

	if out == nil {
		return []domain.HistoryRecord{}, nil
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}
