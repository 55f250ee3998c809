package signoff

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/signoff/internal/engine"
	"github.com/aretw0/signoff/internal/logging"
	"github.com/aretw0/signoff/internal/validator"
	"github.com/aretw0/signoff/pkg/adapters/memory"
	"github.com/aretw0/signoff/pkg/condition"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/aretw0/signoff/pkg/ports"
	"github.com/aretw0/signoff/pkg/session"
)

// Engine is the high-level entry point of the library.
// It wraps the internal engine and serializes every write per instance id.
type Engine struct {
	engine   *engine.Engine
	sessions *session.Manager

	workflows ports.WorkflowStore
	instances ports.InstanceStore
	history   ports.HistoryStore

	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	evaluator  *condition.Evaluator
	locker     ports.DistributedLocker
	lockTTL    time.Duration
	engineOpts []engine.Option
}

var _ ports.Service = (*Engine)(nil)

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithInstanceStore replaces the default in-memory instance store.
func WithInstanceStore(store ports.InstanceStore) Option {
	return func(e *Engine) {
		e.instances = store
	}
}

// WithHistoryStore replaces the default in-memory history store.
func WithHistoryStore(store ports.HistoryStore) Option {
	return func(e *Engine) {
		e.history = store
	}
}

// WithLocker enables distributed per-instance locking, for replicas sharing one store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithConditionEvaluator sets a custom evaluator for condition nodes.
func WithConditionEvaluator(ev *condition.Evaluator) Option {
	return func(e *Engine) {
		e.evaluator = ev
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.engineOpts = append(e.engineOpts, engine.WithClock(now))
	}
}

// WithIDGenerator overrides instance and history id generation. Intended for tests.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		e.engineOpts = append(e.engineOpts, engine.WithIDGenerator(gen))
	}
}

// New initializes an Engine reading workflows from the given store.
// Instances and history default to in-memory stores.
func New(workflows ports.WorkflowStore, opts ...Option) (*Engine, error) {
	if workflows == nil {
		return nil, fmt.Errorf("a workflow store is required")
	}
	eng := &Engine{workflows: workflows}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.instances == nil {
		eng.instances = memory.NewStore()
	}
	if eng.history == nil {
		eng.history = memory.NewHistory()
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	sessionOpts := []session.Option{session.WithLogger(eng.logger), session.WithLockTTL(eng.lockTTL)}
	if eng.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(eng.locker))
	}
	eng.sessions = session.NewManager(sessionOpts...)

	engineOpts := []engine.Option{
		engine.WithLogger(eng.logger),
		engine.WithLifecycleHooks(eng.hooks),
		engine.WithEvaluator(eng.evaluator),
	}
	engineOpts = append(engineOpts, eng.engineOpts...)
	eng.engine = engine.New(eng.workflows, eng.instances, eng.history, engineOpts...)

	return eng, nil
}

// Apply creates a new instance of a workflow. Call Initialize to start it.
func (e *Engine) Apply(ctx context.Context, workflowID, applicantID string, data map[string]any) (*domain.Instance, error) {
	return e.engine.Apply(ctx, workflowID, applicantID, data)
}

// Submit applies and initializes an instance in one call.
func (e *Engine) Submit(ctx context.Context, workflowID, applicantID string, data map[string]any) (*domain.Instance, error) {
	inst, err := e.Apply(ctx, workflowID, applicantID, data)
	if err != nil {
		return nil, err
	}
	if _, err := e.Initialize(ctx, inst.ID); err != nil {
		return inst, err
	}
	return e.Instance(ctx, inst.ID)
}

// Initialize enters the first node of an applied instance.
func (e *Engine) Initialize(ctx context.Context, instanceID string) (domain.Status, error) {
	var status domain.Status
	err := e.sessions.WithLock(ctx, instanceID, func(ctx context.Context) error {
		var err error
		status, err = e.engine.Initialize(ctx, instanceID)
		return err
	})
	return status, err
}

// Approve applies one approve or reject decision.
func (e *Engine) Approve(ctx context.Context, instanceID string, decision domain.Decision) (*domain.Outcome, error) {
	var out *domain.Outcome
	err := e.sessions.WithLock(ctx, instanceID, func(ctx context.Context) error {
		var err error
		out, err = e.engine.Approve(ctx, instanceID, decision)
		return err
	})
	return out, err
}

// Reject is shorthand for Approve with a reject result.
func (e *Engine) Reject(ctx context.Context, instanceID, actorID, actorName, comment string) (*domain.Outcome, error) {
	return e.Approve(ctx, instanceID, domain.Decision{
		ActorID:   actorID,
		ActorName: actorName,
		Comment:   comment,
		Result:    domain.ResultReject,
	})
}

// Withdraw closes a pending instance without a decision.
func (e *Engine) Withdraw(ctx context.Context, instanceID, actorID, comment string) error {
	return e.sessions.WithLock(ctx, instanceID, func(ctx context.Context) error {
		return e.engine.Withdraw(ctx, instanceID, actorID, comment)
	})
}

// CurrentApprovers returns the actors allowed to act on the instance right now.
func (e *Engine) CurrentApprovers(ctx context.Context, instanceID string) ([]string, error) {
	return e.engine.CurrentApprovers(ctx, instanceID)
}

// CurrentNodeInfo returns a read-only snapshot of the node the instance waits at.
func (e *Engine) CurrentNodeInfo(ctx context.Context, instanceID string) (*domain.NodeInfo, error) {
	return e.engine.CurrentNodeInfo(ctx, instanceID)
}

// History returns the audit trail of an instance.
func (e *Engine) History(ctx context.Context, instanceID string) ([]domain.HistoryRecord, error) {
	return e.engine.History(ctx, instanceID)
}

// Instance returns the stored instance.
func (e *Engine) Instance(ctx context.Context, instanceID string) (*domain.Instance, error) {
	return e.engine.Instance(ctx, instanceID)
}

// Instances lists the ids of all stored instances.
func (e *Engine) Instances(ctx context.Context) ([]string, error) {
	return e.instances.List(ctx)
}

// Workflow returns a workflow definition.
func (e *Engine) Workflow(ctx context.Context, workflowID string) (*domain.Workflow, error) {
	return e.engine.Workflow(ctx, workflowID)
}

// Workflows lists the ids of all known workflows.
func (e *Engine) Workflows(ctx context.Context) ([]string, error) {
	return e.workflows.List(ctx)
}

// Watch returns a channel that signals when the underlying workflows change.
// Returns error if the workflow store does not support watching.
func (e *Engine) Watch(ctx context.Context) (<-chan string, error) {
	if w, ok := e.workflows.(ports.Watchable); ok {
		return w.Watch(ctx)
	}
	return nil, fmt.Errorf("current workflow store does not support watching")
}

// Validate checks a workflow for structural errors, including ambiguous routes.
func Validate(wf *domain.Workflow) error {
	return validator.Validate(wf)
}
