package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RepositoryInterface defines the persistence operations for alerts
type RepositoryInterface interface {
	// UpsertByNaturalKey inserts a unless an alert with the same platform and
	// source id exists. It reports whether a new row was written; a is filled
	// from the stored row either way.
	UpsertByNaturalKey(ctx context.Context, a *Alert) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Alert, error)
	GetByNaturalKey(ctx context.Context, platform, sourceID string) (*Alert, error)
	List(ctx context.Context, filter *ListFilter) ([]*Alert, int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status, resolvedAt *time.Time) error
	Assign(ctx context.Context, id uuid.UUID, officer string) error
	GetStats(ctx context.Context, since time.Time) (*Stats, error)
}
