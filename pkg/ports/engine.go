package ports

import (
	"context"

	"github.com/aretw0/signoff/pkg/domain"
)

// Service is the driving port of the approval engine.
// It is implemented by the root signoff package and consumed by the HTTP and MCP adapters.
type Service interface {
	// Apply creates a new instance of a workflow. It does not initialize it.
	Apply(ctx context.Context, workflowID, applicantID string, data map[string]any) (*domain.Instance, error)

	// Initialize enters the node after start and returns the resulting status.
	Initialize(ctx context.Context, instanceID string) (domain.Status, error)

	// Approve applies one sign-off decision at the current node.
	Approve(ctx context.Context, instanceID string, decision domain.Decision) (*domain.Outcome, error)

	// Withdraw closes a pending instance on behalf of its applicant.
	Withdraw(ctx context.Context, instanceID, actorID, comment string) error

	CurrentApprovers(ctx context.Context, instanceID string) ([]string, error)
	CurrentNodeInfo(ctx context.Context, instanceID string) (*domain.NodeInfo, error)
	History(ctx context.Context, instanceID string) ([]domain.HistoryRecord, error)

	Instance(ctx context.Context, instanceID string) (*domain.Instance, error)
	Workflow(ctx context.Context, workflowID string) (*domain.Workflow, error)
}
