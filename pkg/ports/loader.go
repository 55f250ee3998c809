package ports

import (
	"context"

	"github.com/aretw0/signoff/pkg/domain"
)

// WorkflowStore gives the engine read-only access to workflow definitions.
type WorkflowStore interface {
	// Get returns the workflow with the given id.
	// Returns domain.ErrWorkflowNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Workflow, error)

	// List returns the ids of all known workflows.
	List(ctx context.Context) ([]string, error)
}

// Watchable defines an interface for workflow stores that can notify about backend changes.
type Watchable interface {
	// Watch returns a channel that receives the id (or file name) of a changed workflow.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
