package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/aretw0/signoff/internal/dto"
	"github.com/aretw0/signoff/internal/validator"
	"github.com/aretw0/signoff/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// Workflows implements ports.WorkflowStore on Redis, for replicas that share definitions.
// Workflow keys never expire.
type Workflows struct {
	client *backend.Client
	opts   options
}

// NewWorkflows creates a workflow store from an existing client.
func NewWorkflows(client *backend.Client, opts ...Option) *Workflows {
	return &Workflows{client: client, opts: newOptions(opts)}
}

func (w *Workflows) key(id string) string {
	return w.opts.prefix + "workflow:" + id
}

func (w *Workflows) indexKey() string {
	return w.opts.prefix + "workflow:index"
}

// Put validates and publishes a workflow, replacing any previous version.
func (w *Workflows) Put(ctx context.Context, wf *domain.Workflow) error {
	if err := validator.Validate(wf); err != nil {
		return fmt.Errorf("refusing to store workflow: %w", err)
	}
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	pipe := w.client.TxPipeline()
	pipe.Set(ctx, w.key(wf.ID), data, 0)
	pipe.SAdd(ctx, w.indexKey(), wf.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save workflow: %w", err)
	}
	return nil
}

// Get loads a workflow.
func (w *Workflows) Get(ctx context.Context, id string) (*domain.Workflow, error) {
	val, err := w.client.Get(ctx, w.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}
	return dto.ParseWorkflow(val)
}

// List returns the ids of all published workflows.
func (w *Workflows) List(ctx context.Context) ([]string, error) {
	ids, err := w.client.SMembers(ctx, w.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}
