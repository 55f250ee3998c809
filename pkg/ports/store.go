package ports

import (
	"context"

	"github.com/aretw0/signoff/pkg/domain"
)

// InstanceStore persists instances. Save is a full-overwrite upsert.
// The engine never deletes instances.
type InstanceStore interface {
	// Get returns the instance with the given id.
	// Returns domain.ErrInstanceNotFound if it does not exist.
	Get(ctx context.Context, id string) (*domain.Instance, error)

	Save(ctx context.Context, instance *domain.Instance) error

	// List returns the ids of all stored instances.
	List(ctx context.Context) ([]string, error)
}

// HistoryStore is the append-only audit trail.
type HistoryStore interface {
	// Append stores a record. Records are never updated or removed.
	Append(ctx context.Context, record domain.HistoryRecord) error

	// List returns the records of one instance ordered by Seq.
	// An unknown instance yields an empty list.
	List(ctx context.Context, instanceID string) ([]domain.HistoryRecord, error)
}
