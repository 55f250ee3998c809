package observability

import (
	"context"
	"errors"

	"github.com/aretw0/signoff/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors fed by lifecycle hooks.
type Metrics struct {
	NodeVisits *prometheus.CounterVec
	Decisions  *prometheus.CounterVec
	Completed  *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Collectors already registered by a previous call are reused.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signoff_node_visits_total",
				Help: "Total number of node entries",
			},
			[]string{"workflow_id", "node_id", "node_type"},
		),
		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signoff_decisions_total",
				Help: "Total number of approve and reject decisions",
			},
			[]string{"workflow_id", "node_id", "result"},
		),
		Completed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signoff_instances_completed_total",
				Help: "Total number of instances that reached a final status",
			},
			[]string{"workflow_id", "status"},
		),
	}

	var err error
	if m.NodeVisits, err = register(reg, m.NodeVisits); err != nil {
		return nil, err
	}
	if m.Decisions, err = register(reg, m.Decisions); err != nil {
		return nil, err
	}
	if m.Completed, err = register(reg, m.Completed); err != nil {
		return nil, err
	}
	return m, nil
}

func register(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, err
	}
	return c, nil
}

// Hooks returns lifecycle hooks that record into the collectors.
// An instance counts as completed when it enters an end node or a decision rejects it.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.WorkflowID, e.NodeID, string(e.NodeType)).Inc()
			if e.NodeType == domain.NodeTypeEnd {
				m.Completed.WithLabelValues(e.WorkflowID, string(domain.StatusApproved)).Inc()
			}
		},
		OnDecision: func(ctx context.Context, e *domain.DecisionEvent) {
			m.Decisions.WithLabelValues(e.WorkflowID, e.NodeID, e.Result).Inc()
			if e.Status == domain.StatusRejected {
				m.Completed.WithLabelValues(e.WorkflowID, string(domain.StatusRejected)).Inc()
			}
		},
	}
}
