package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/cache"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// CategoryService provides category-related operations. Deleting a category
// touches the owner's cached task views because tasks filed under it lose
// their reference, so mutations here invalidate the owner's tags as well.
type CategoryService interface {
	// CreateCategory creates a category for the owner. Names are unique per
	// owner; a duplicate returns store.ErrCategoryNameExists.
	CreateCategory(ctx context.Context, ownerID uuid.UUID, name string) (*domain.Category, error)

	// GetCategory retrieves one category. Returns store.ErrCategoryNotFound
	// when it does not exist or belongs to someone else.
	GetCategory(ctx context.Context, id, ownerID uuid.UUID) (*domain.Category, error)

	// ListCategories returns all of the owner's categories ordered by name.
	ListCategories(ctx context.Context, ownerID uuid.UUID) ([]*domain.Category, error)

	// DeleteCategory removes the category. Tasks filed under it survive
	// with their category reference cleared.
	DeleteCategory(ctx context.Context, id, ownerID uuid.UUID) error
}

type categoryServiceImpl struct {
	categories store.CategoryStore
	cache      *cache.Cache
	logger     *slog.Logger
}

// NewCategoryService creates a new CategoryService.
func NewCategoryService(
	categories store.CategoryStore,
	c *cache.Cache,
	logger *slog.Logger,
) (CategoryService, error) {
	if categories == nil {
		return nil, domain.NewValidationError("categories", "cannot be nil", domain.ErrValidation)
	}
	if c == nil {
		return nil, domain.NewValidationError("cache", "cannot be nil", domain.ErrValidation)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &categoryServiceImpl{
		categories: categories,
		cache:      c,
		logger:     logger.With(slog.String("component", "category_service")),
	}, nil
}

// CreateCategory implements CategoryService.CreateCategory.
func (s *categoryServiceImpl) CreateCategory(
	ctx context.Context,
	ownerID uuid.UUID,
	name string,
) (*domain.Category, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	category, err := domain.NewCategory(ownerID, name)
	if err != nil {
		return nil, err
	}

	if err := s.categories.Create(ctx, category); err != nil {
		if errors.Is(err, store.ErrCategoryNameExists) {
			return nil, err
		}
		log.Error("failed to create category",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, NewTaskServiceError("create_category", "failed to save category", err)
	}

	// Stats render zero-count rows for empty categories, so the owner's
	// cached stats view is stale the moment a category exists.
	_ = s.cache.InvalidateTags(ctx, cache.StatsTag(ownerID))

	log.Info("category created",
		slog.String("category_id", category.ID.String()),
		slog.String("user_id", ownerID.String()))
	return category, nil
}

// GetCategory implements CategoryService.GetCategory.
func (s *categoryServiceImpl) GetCategory(ctx context.Context, id, ownerID uuid.UUID) (*domain.Category, error) {
	return s.categories.GetByID(ctx, id, ownerID)
}

// ListCategories implements CategoryService.ListCategories.
func (s *categoryServiceImpl) ListCategories(ctx context.Context, ownerID uuid.UUID) ([]*domain.Category, error) {
	return s.categories.ListByOwner(ctx, ownerID)
}

// DeleteCategory implements CategoryService.DeleteCategory.
func (s *categoryServiceImpl) DeleteCategory(ctx context.Context, id, ownerID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.categories.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, store.ErrCategoryNotFound) {
			return err
		}
		log.Error("failed to delete category",
			slog.String("error", err.Error()),
			slog.String("category_id", id.String()),
			slog.String("user_id", ownerID.String()))
		return NewTaskServiceError("delete_category", "failed to delete category", err)
	}

	_ = s.cache.InvalidateTags(ctx,
		cache.OwnerTag(ownerID),
		cache.SearchTag(ownerID),
		cache.StatsTag(ownerID))

	log.Info("category deleted",
		slog.String("category_id", id.String()),
		slog.String("user_id", ownerID.String()))
	return nil
}
