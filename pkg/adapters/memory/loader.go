package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/signoff/pkg/domain"
)

// Loader implements ports.WorkflowStore using an in-memory map.
type Loader struct {
	workflows map[string]*domain.Workflow
	mu        sync.RWMutex
}

// NewLoader creates a Loader holding the given workflows.
func NewLoader(workflows ...*domain.Workflow) (*Loader, error) {
	l := &Loader{workflows: make(map[string]*domain.Workflow)}
	for _, wf := range workflows {
		if err := l.Put(wf); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// Put registers or replaces a workflow.
// Instances already running against the previous version see the new one on their next call.
func (l *Loader) Put(wf *domain.Workflow) error {
	if wf == nil || wf.ID == "" {
		return fmt.Errorf("workflow missing ID")
	}
	copied := *wf

	l.mu.Lock()
	defer l.mu.Unlock()
	l.workflows[wf.ID] = &copied
	return nil
}

// Get returns the workflow with the given id. The result must be treated as read-only.
func (l *Loader) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	wf, ok := l.workflows[id]
	if !ok {
		return nil, domain.ErrWorkflowNotFound
	}
	return wf, nil
}

// List returns all workflow ids in lexical order.
func (l *Loader) List(ctx context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.workflows))
	for id := range l.workflows {
		ids = append(ids, id)
	}
	sort.Strings(ids) // Deterministic order
	return ids, nil
}
