package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/aretw0/signoff"
	"github.com/aretw0/signoff/pkg/domain"
	"github.com/aretw0/signoff/pkg/dsl"
	"github.com/aretw0/signoff/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordsLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	b := dsl.New("expense")
	b.Start("start").Go("manager")
	b.Single("manager", "alice").Go("end")
	b.End("end")
	loader, err := b.Loader()
	require.NoError(t, err)

	eng, err := signoff.New(loader, signoff.WithLifecycleHooks(
		observability.Combine(metrics.Hooks(), observability.LoggingHooks(logger)),
	))
	require.NoError(t, err)

	ctx := context.Background()
	inst, err := eng.Submit(ctx, "expense", "bob", nil)
	require.NoError(t, err)
	_, err = eng.Approve(ctx, inst.ID, domain.Decision{ActorID: "alice", Result: "approve"})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.NodeVisits.WithLabelValues("expense", "manager", "single")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Decisions.WithLabelValues("expense", "manager", "approve")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Completed.WithLabelValues("expense", "approved")))

	assert.Contains(t, logs.String(), "msg=decision")
	assert.Contains(t, logs.String(), "actor_id=alice")
}

func TestMetrics_RejectCountsCompletion(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	hooks := metrics.Hooks()
	hooks.OnDecision(context.Background(), &domain.DecisionEvent{
		EventBase: domain.EventBase{WorkflowID: "expense"},
		NodeID:    "manager",
		Result:    "reject",
		Status:    domain.StatusRejected,
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Completed.WithLabelValues("expense", "rejected")))
}

func TestNewMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := observability.NewMetrics(reg)
	require.NoError(t, err)
	second, err := observability.NewMetrics(reg)
	require.NoError(t, err)

	assert.Same(t, first.NodeVisits, second.NodeVisits)
}

func TestCombine_SkipsNilHooks(t *testing.T) {
	calls := 0
	hooks := observability.Combine(
		domain.LifecycleHooks{},
		domain.LifecycleHooks{OnNodeLeave: func(context.Context, *domain.NodeEvent) { calls++ }},
		domain.LifecycleHooks{OnNodeLeave: func(context.Context, *domain.NodeEvent) { calls++ }},
	)

	assert.Nil(t, hooks.OnNodeEnter)
	hooks.OnNodeLeave(context.Background(), &domain.NodeEvent{})
	assert.Equal(t, 2, calls)
}
