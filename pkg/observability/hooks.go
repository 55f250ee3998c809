package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/signoff/pkg/domain"
)

// LoggingHooks returns lifecycle hooks that log every event at Info level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "node_enter",
				"instance_id", e.InstanceID,
				"node_id", e.NodeID,
				"type", e.NodeType,
			)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.InfoContext(ctx, "node_leave",
				"instance_id", e.InstanceID,
				"node_id", e.NodeID,
			)
		},
		OnDecision: func(ctx context.Context, e *domain.DecisionEvent) {
			logger.InfoContext(ctx, "decision",
				"instance_id", e.InstanceID,
				"node_id", e.NodeID,
				"actor_id", e.ActorID,
				"result", e.Result,
				"status", e.Status,
			)
		},
	}
}

// Combine fans every event out to all given hooks, in order.
func Combine(all ...domain.LifecycleHooks) domain.LifecycleHooks {
	var combined domain.LifecycleHooks
	for _, h := range all {
		combined.OnNodeEnter = chainNode(combined.OnNodeEnter, h.OnNodeEnter)
		combined.OnNodeLeave = chainNode(combined.OnNodeLeave, h.OnNodeLeave)
		combined.OnDecision = chainDecision(combined.OnDecision, h.OnDecision)
	}
	return combined
}

func chainNode(a, b func(context.Context, *domain.NodeEvent)) func(context.Context, *domain.NodeEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *domain.NodeEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainDecision(a, b func(context.Context, *domain.DecisionEvent)) func(context.Context, *domain.DecisionEvent) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *domain.DecisionEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
