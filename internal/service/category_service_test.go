package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/cache"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCategoryStore struct {
	categories []*domain.Category
}

func (f *fakeCategoryStore) Create(_ context.Context, category *domain.Category) error {
	for _, existing := range f.categories {
		if existing.UserID == category.UserID && existing.Name == category.Name {
			return store.ErrCategoryNameExists
		}
	}
	f.categories = append(f.categories, category)
	return nil
}

func (f *fakeCategoryStore) GetByID(_ context.Context, id, ownerID uuid.UUID) (*domain.Category, error) {
	for _, category := range f.categories {
		if category.ID == id && category.UserID == ownerID {
			return category, nil
		}
	}
	return nil, store.ErrCategoryNotFound
}

func (f *fakeCategoryStore) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]*domain.Category, error) {
	var out []*domain.Category
	for _, category := range f.categories {
		if category.UserID == ownerID {
			out = append(out, category)
		}
	}
	return out, nil
}

func (f *fakeCategoryStore) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	for i, category := range f.categories {
		if category.ID == id && category.UserID == ownerID {
			f.categories = append(f.categories[:i], f.categories[i+1:]...)
			return nil
		}
	}
	return store.ErrCategoryNotFound
}

func (f *fakeCategoryStore) WithTx(*sql.Tx) store.CategoryStore { return f }

func newTestCategoryService(t *testing.T) (CategoryService, *fakeCategoryStore) {
	t.Helper()

	categories := &fakeCategoryStore{}
	svc, err := NewCategoryService(categories,
		cache.New(cache.NewMemoryBackend(), discardLogger(), nil), discardLogger())
	require.NoError(t, err)
	return svc, categories
}

func TestCreateCategory(t *testing.T) {
	t.Parallel()

	svc, _ := newTestCategoryService(t)
	ownerID := uuid.New()
	ctx := context.Background()

	category, err := svc.CreateCategory(ctx, ownerID, "Work")
	require.NoError(t, err)
	assert.Equal(t, "Work", category.Name)
	assert.Equal(t, ownerID, category.UserID)
}

func TestCreateCategoryDuplicateName(t *testing.T) {
	t.Parallel()

	svc, _ := newTestCategoryService(t)
	ownerID := uuid.New()
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, ownerID, "Work")
	require.NoError(t, err)

	_, err = svc.CreateCategory(ctx, ownerID, "Work")
	assert.ErrorIs(t, err, store.ErrCategoryNameExists)

	// The same name under a different owner is fine.
	_, err = svc.CreateCategory(ctx, uuid.New(), "Work")
	assert.NoError(t, err)
}

func TestGetCategoryScopedToOwner(t *testing.T) {
	t.Parallel()

	svc, _ := newTestCategoryService(t)
	ownerID := uuid.New()
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, ownerID, "Home")
	require.NoError(t, err)

	got, err := svc.GetCategory(ctx, created.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetCategory(ctx, created.ID, uuid.New())
	assert.ErrorIs(t, err, store.ErrCategoryNotFound)
}

func TestDeleteCategory(t *testing.T) {
	t.Parallel()

	svc, categories := newTestCategoryService(t)
	ownerID := uuid.New()
	ctx := context.Background()

	created, err := svc.CreateCategory(ctx, ownerID, "Errands")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, created.ID, ownerID))
	assert.Empty(t, categories.categories)

	err = svc.DeleteCategory(ctx, created.ID, ownerID)
	assert.ErrorIs(t, err, store.ErrCategoryNotFound)
}
