package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
)

// StatsStore produces per-owner aggregate views over the task table.
type StatsStore interface {
	// Summary computes the owner's aggregate counts in a fixed number of
	// statements regardless of how many categories exist: one aggregate row
	// plus one zero-filled per-category query. Soft-deleted tasks are
	// excluded from every figure.
	Summary(ctx context.Context, ownerID uuid.UUID) (*domain.StatsSummary, error)
}
