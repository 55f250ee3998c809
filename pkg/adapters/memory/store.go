package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/signoff/pkg/domain"
)

// Store implements ports.InstanceStore in memory.
// Safe for concurrent use.
type Store struct {
	data map[string]*domain.Instance
	mu   sync.RWMutex
}

// NewStore creates a new in-memory instance store.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.Instance),
	}
}

// Save stores a copy of the instance, replacing any previous version.
func (s *Store) Save(ctx context.Context, instance *domain.Instance) error {
	copied := instance.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[instance.ID] = copied
	return nil
}

// Get returns a copy so callers can't mutate the stored instance by pointer.
func (s *Store) Get(ctx context.Context, id string) (*domain.Instance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.data[id]
	if !ok {
		return nil, domain.ErrInstanceNotFound
	}
	return inst.Clone(), nil
}

// List returns stored instance ids in lexical order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
