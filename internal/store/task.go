package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
)

// TaskStore defines the interface for task persistence. Every read and write
// is owner-scoped: a task that exists but belongs to a different owner is
// indistinguishable from one that does not exist.
type TaskStore interface {
	// Create saves a new task. The caller is responsible for having resolved
	// SortOrder (see MaxSortOrder); Create performs no ordering logic.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a live task by id for the given owner.
	// Returns ErrTaskNotFound if the task does not exist, is soft-deleted,
	// or belongs to a different owner.
	GetByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)

	// List returns one page of the owner's tasks matching the filter,
	// together with the total count over the identical predicate sequence.
	// The count and data queries are issued concurrently.
	List(
		ctx context.Context,
		ownerID uuid.UUID,
		filter FilterSpec,
		sort SortSpec,
		page Pagination,
	) (*PageResult[*domain.Task], error)

	// Update applies the supplied fields of upd to the owner's task and
	// returns the updated row. Returns ErrTaskNotFound if the task does not
	// exist, is soft-deleted, or belongs to a different owner. Completion
	// bookkeeping must already be resolved on upd (see
	// domain.TaskUpdate.ResolveCompletion).
	Update(ctx context.Context, id, ownerID uuid.UUID, upd *domain.TaskUpdate) (*domain.Task, error)

	// SoftDelete sets the deletion marker on the owner's task without
	// removing the row. Returns ErrTaskNotFound if no live owned row exists.
	SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error

	// HardDelete physically removes the owner's task row, soft-deleted or
	// not. This is a distinct administrative operation; the regular delete
	// path never implies it. Returns ErrTaskNotFound if no owned row exists.
	HardDelete(ctx context.Context, id, ownerID uuid.UUID) error

	// FilterOwnedIDs partitions ids into those that reference a live task
	// owned by ownerID and the rest. Order within each partition follows the
	// input order. Used by bulk mutations to exclude unauthorized ids before
	// any write begins.
	FilterOwnedIDs(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (owned, rejected []uuid.UUID, err error)

	// UpdateMany applies upd to every listed task of the owner in one
	// statement and returns the number of rows written. Callers run it
	// inside a transaction via WithTx.
	UpdateMany(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, upd *domain.TaskUpdate) (int64, error)

	// SoftDeleteMany marks every listed task of the owner deleted in one
	// statement and returns the number of rows written.
	SoftDeleteMany(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (int64, error)

	// SetSortOrder assigns the manual ordering hint for one owned task.
	// A row not owned by the caller is skipped: the method returns false
	// rather than an error, so reorder batches stay best-effort per row.
	SetSortOrder(ctx context.Context, ownerID, id uuid.UUID, sortOrder int) (bool, error)

	// MaxSortOrder returns the highest sort_order among the owner's live
	// tasks, or 0 when the owner has none.
	MaxSortOrder(ctx context.Context, ownerID uuid.UUID) (int, error)

	// WithTx returns a TaskStore bound to the given transaction, for use
	// with RunInTransaction.
	WithTx(tx *sql.Tx) TaskStore
}
