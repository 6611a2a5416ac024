package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
)

// CategoryStore defines the interface for category persistence.
type CategoryStore interface {
	// Create saves a new category.
	// Returns ErrCategoryNameExists if the owner already has a category
	// with the same name.
	Create(ctx context.Context, category *domain.Category) error

	// GetByID retrieves a category by id for the given owner.
	// Returns ErrCategoryNotFound if it does not exist or is not owned.
	GetByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Category, error)

	// ListByOwner returns all of the owner's categories ordered by name.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.Category, error)

	// Delete removes a category. Tasks filed under it keep their rows; the
	// schema clears their category reference.
	// Returns ErrCategoryNotFound if it does not exist or is not owned.
	Delete(ctx context.Context, id, ownerID uuid.UUID) error

	// WithTx returns a CategoryStore bound to the given transaction.
	WithTx(tx *sql.Tx) CategoryStore
}
