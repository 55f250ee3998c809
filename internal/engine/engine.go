// Package engine implements the approval state machine.
//
// The engine is stateless between calls: every operation loads the instance and
// its workflow from the stores, computes the transition on a private copy and
// persists the result before returning. Callers that allow concurrent access to
// the same instance must serialize calls per instance id (see pkg/session).
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/signoff/internal/logging"
	"github.com/aretw0/signoff/pkg/condition"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/aretw0/signoff/pkg/ports"
	"github.com/google/uuid"
)

// maxConditionHops bounds automatic routing through consecutive condition nodes.
const maxConditionHops = 64

// Engine drives instances through their workflow graph.
type Engine struct {
	workflows ports.WorkflowStore
	instances ports.InstanceStore
	history   ports.HistoryStore

	evaluator *condition.Evaluator
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
// Hooks fire only after a transition was persisted.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithEvaluator replaces the condition evaluator.
func WithEvaluator(ev *condition.Evaluator) Option {
	return func(e *Engine) {
		if ev != nil {
			e.evaluator = ev
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides the generator of instance and history record ids.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// New creates an Engine on top of the given stores.
func New(workflows ports.WorkflowStore, instances ports.InstanceStore, history ports.HistoryStore, opts ...Option) *Engine {
	e := &Engine{
		workflows: workflows,
		instances: instances,
		history:   history,
		logger:    logging.NewNop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.evaluator == nil {
		e.evaluator = condition.New(condition.WithLogger(e.logger))
	}
	return e
}

// Apply creates and stores a new, not yet initialized instance.
func (e *Engine) Apply(ctx context.Context, workflowID, applicantID string, data map[string]any) (*domain.Instance, error) {
	if _, err := e.loadWorkflow(ctx, workflowID); err != nil {
		return nil, err
	}

	inst := domain.NewInstance(e.newID(), workflowID, applicantID, data)
	inst.CreatedAt = e.now()
	inst.UpdatedAt = inst.CreatedAt
	if err := e.instances.Save(ctx, inst); err != nil {
		return nil, fmt.Errorf("failed to save instance: %w", err)
	}

	e.logger.Info("instance applied", "instance_id", inst.ID, "workflow_id", workflowID, "applicant_id", applicantID)
	return inst, nil
}

// Initialize moves a freshly applied instance onto the node after start.
// A condition or end node reached this way is resolved immediately.
// Configuration errors are detected before anything is persisted.
func (e *Engine) Initialize(ctx context.Context, instanceID string) (domain.Status, error) {
	inst, wf, err := e.load(ctx, instanceID)
	if err != nil {
		return "", err
	}
	if inst.Status.IsTerminal() {
		return inst.Status, fmt.Errorf("instance %s: %w", inst.ID, domain.ErrInstanceClosed)
	}
	if inst.CurrentNodeID != "" {
		return inst.Status, fmt.Errorf("instance %s: %w", inst.ID, domain.ErrAlreadyInitialized)
	}

	starts := wf.StartNodes()
	switch len(starts) {
	case 0:
		return "", &domain.ConfigError{WorkflowID: wf.ID, Err: domain.ErrNoStartNode}
	case 1:
	default:
		return "", &domain.ConfigError{WorkflowID: wf.ID, Detail: fmt.Sprintf("%d start nodes", len(starts)), Err: domain.ErrMultipleStartNodes}
	}
	start := starts[0]

	s := e.newStep(wf, inst)
	s.inst.Status = domain.StatusPending
	s.record(start, s.inst.ApplicantID, "", domain.ActionSubmit, "", "")
	s.nodeEvent(domain.EventNodeEnter, start)

	if err := s.moveToNextNode(start, 0); err != nil {
		return "", err
	}
	if err := e.commit(ctx, s); err != nil {
		return "", err
	}

	e.logger.Info("instance initialized", "instance_id", inst.ID, "node_id", s.inst.CurrentNodeID, "status", s.inst.Status)
	return s.inst.Status, nil
}

// Withdraw closes a pending instance on behalf of an external actor.
// It overwrites the status directly and is not a transition of the graph.
func (e *Engine) Withdraw(ctx context.Context, instanceID, actorID, comment string) error {
	inst, err := e.loadInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	if inst.Status.IsTerminal() {
		return fmt.Errorf("instance %s: %w", inst.ID, domain.ErrInstanceClosed)
	}

	s := e.newStep(nil, inst)
	s.inst.ClearGate(s.inst.CurrentNodeID)
	s.inst.Status = domain.StatusWithdrawn
	s.record(nil, actorID, "", domain.ActionWithdraw, comment, "")

	if err := e.commit(ctx, s); err != nil {
		return err
	}
	e.logger.Info("instance withdrawn", "instance_id", inst.ID, "actor_id", actorID)
	return nil
}

// Instance returns the stored instance.
func (e *Engine) Instance(ctx context.Context, instanceID string) (*domain.Instance, error) {
	return e.loadInstance(ctx, instanceID)
}

// Workflow returns the stored workflow.
func (e *Engine) Workflow(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	return e.loadWorkflow(ctx, workflowID)
}

// History returns the audit trail of an instance ordered by sequence number.
func (e *Engine) History(ctx context.Context, instanceID string) ([]domain.HistoryRecord, error) {
	if _, err := e.loadInstance(ctx, instanceID); err != nil {
		return nil, err
	}
	records, err := e.history.List(ctx, instanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

func (e *Engine) loadInstance(ctx context.Context, id string) (*domain.Instance, error) {
	inst, err := e.instances.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrInstanceNotFound) {
			return nil, fmt.Errorf("instance %s: %w", id, err)
		}
		return nil, fmt.Errorf("failed to load instance %s: %w", id, err)
	}
	return inst, nil
}

func (e *Engine) loadWorkflow(ctx context.Context, id string) (*domain.Workflow, error) {
	wf, err := e.workflows.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrWorkflowNotFound) {
			return nil, fmt.Errorf("workflow %s: %w", id, err)
		}
		return nil, fmt.Errorf("failed to load workflow %s: %w", id, err)
	}
	return wf, nil
}

func (e *Engine) load(ctx context.Context, instanceID string) (*domain.Instance, *domain.Workflow, error) {
	inst, err := e.loadInstance(ctx, instanceID)
	if err != nil {
		return nil, nil, err
	}
	wf, err := e.loadWorkflow(ctx, inst.WorkflowID)
	if err != nil {
		return nil, nil, err
	}
	return inst, wf, nil
}

// commit persists the instance first, then the history records it reserved
// sequence numbers for, then fires the hooks collected by the step.
func (e *Engine) commit(ctx context.Context, s *step) error {
	s.inst.UpdatedAt = e.now()
	if err := e.instances.Save(ctx, s.inst); err != nil {
		return fmt.Errorf("failed to save instance: %w", err)
	}
	for _, rec := range s.records {
		if err := e.history.Append(ctx, rec); err != nil {
			e.logger.Error("history append failed after instance save",
				"instance_id", s.inst.ID,
				"seq", rec.Seq,
				"err", err,
			)
			return fmt.Errorf("failed to append history: %w", err)
		}
	}
	s.flushEvents(ctx)
	return nil
}
