package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/cache"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/platform/metrics"
	"github.com/phrazzld/taskdeck-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTaskStore is an in-memory store.TaskStore for service tests. It keeps
// tasks in insertion order and counts reads so caching behavior is
// observable.
type fakeTaskStore struct {
	tasks      []*domain.Task
	getCalls   int
	listCalls  int
	failWrites bool
}

var errWriteFailed = sql.ErrConnDone

func (f *fakeTaskStore) find(id, ownerID uuid.UUID) *domain.Task {
	for _, task := range f.tasks {
		if task.ID == id && task.UserID == ownerID && !task.IsDeleted() {
			return task
		}
	}
	return nil
}

func (f *fakeTaskStore) Create(_ context.Context, task *domain.Task) error {
	if f.failWrites {
		return errWriteFailed
	}
	f.tasks = append(f.tasks, task)
	return nil
}

func (f *fakeTaskStore) GetByID(_ context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	f.getCalls++
	if task := f.find(id, ownerID); task != nil {
		copied := *task
		return &copied, nil
	}
	return nil, store.ErrTaskNotFound
}

func (f *fakeTaskStore) List(
	_ context.Context,
	ownerID uuid.UUID,
	_ store.FilterSpec,
	_ store.SortSpec,
	page store.Pagination,
) (*store.PageResult[*domain.Task], error) {
	f.listCalls++
	limit, offset := page.Normalize()
	var items []*domain.Task
	for _, task := range f.tasks {
		if task.UserID == ownerID && !task.IsDeleted() {
			items = append(items, task)
		}
	}
	return &store.PageResult[*domain.Task]{
		Items: items, Total: len(items), Limit: limit, Offset: offset,
	}, nil
}

func (f *fakeTaskStore) Update(
	_ context.Context,
	id, ownerID uuid.UUID,
	upd *domain.TaskUpdate,
) (*domain.Task, error) {
	if f.failWrites {
		return nil, errWriteFailed
	}
	task := f.find(id, ownerID)
	if task == nil {
		return nil, store.ErrTaskNotFound
	}
	f.apply(task, upd)
	copied := *task
	return &copied, nil
}

func (f *fakeTaskStore) apply(task *domain.Task, upd *domain.TaskUpdate) {
	if upd.Title != nil {
		task.Title = *upd.Title
	}
	if upd.Status != nil {
		task.Status = *upd.Status
	}
	if upd.Priority != nil {
		task.Priority = *upd.Priority
	}
	switch {
	case upd.SetCompletedAt != nil:
		if task.CompletedAt == nil {
			task.CompletedAt = upd.SetCompletedAt
			task.CompletedBy = upd.SetCompletedBy
		}
	case upd.ClearCompletion:
		task.CompletedAt = nil
		task.CompletedBy = nil
	}
	task.UpdatedAt = time.Now().UTC()
}

func (f *fakeTaskStore) SoftDelete(_ context.Context, id, ownerID uuid.UUID) error {
	task := f.find(id, ownerID)
	if task == nil {
		return store.ErrTaskNotFound
	}
	now := time.Now().UTC()
	task.DeletedAt = &now
	return nil
}

func (f *fakeTaskStore) HardDelete(_ context.Context, id, ownerID uuid.UUID) error {
	for i, task := range f.tasks {
		if task.ID == id && task.UserID == ownerID {
			f.tasks = append(f.tasks[:i], f.tasks[i+1:]...)
			return nil
		}
	}
	return store.ErrTaskNotFound
}

func (f *fakeTaskStore) FilterOwnedIDs(
	_ context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
) (owned, rejected []uuid.UUID, err error) {
	for _, id := range ids {
		if f.find(id, ownerID) != nil {
			owned = append(owned, id)
		} else {
			rejected = append(rejected, id)
		}
	}
	return owned, rejected, nil
}

func (f *fakeTaskStore) UpdateMany(
	_ context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
	upd *domain.TaskUpdate,
) (int64, error) {
	if f.failWrites {
		return 0, errWriteFailed
	}
	var n int64
	for _, id := range ids {
		if task := f.find(id, ownerID); task != nil {
			f.apply(task, upd)
			n++
		}
	}
	return n, nil
}

func (f *fakeTaskStore) SoftDeleteMany(
	_ context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
) (int64, error) {
	if f.failWrites {
		return 0, errWriteFailed
	}
	var n int64
	now := time.Now().UTC()
	for _, id := range ids {
		if task := f.find(id, ownerID); task != nil {
			task.DeletedAt = &now
			n++
		}
	}
	return n, nil
}

func (f *fakeTaskStore) SetSortOrder(
	_ context.Context,
	ownerID, id uuid.UUID,
	sortOrder int,
) (bool, error) {
	task := f.find(id, ownerID)
	if task == nil {
		return false, nil
	}
	task.SortOrder = sortOrder
	return true, nil
}

func (f *fakeTaskStore) MaxSortOrder(_ context.Context, ownerID uuid.UUID) (int, error) {
	max := 0
	for _, task := range f.tasks {
		if task.UserID == ownerID && !task.IsDeleted() && task.SortOrder > max {
			max = task.SortOrder
		}
	}
	return max, nil
}

func (f *fakeTaskStore) WithTx(*sql.Tx) store.TaskStore { return f }

// fakeStatsStore counts calls so cache hits are observable.
type fakeStatsStore struct {
	tasks *fakeTaskStore
	calls int
}

func (f *fakeStatsStore) Summary(_ context.Context, ownerID uuid.UUID) (*domain.StatsSummary, error) {
	f.calls++
	summary := &domain.StatsSummary{
		ByStatus:   map[domain.TaskStatus]int{},
		ByPriority: map[domain.TaskPriority]int{},
	}
	for _, task := range f.tasks.tasks {
		if task.UserID == ownerID && !task.IsDeleted() {
			summary.Total++
			summary.ByStatus[task.Status]++
			summary.ByPriority[task.Priority]++
		}
	}
	return summary, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*taskServiceImpl, *fakeTaskStore, *fakeStatsStore) {
	t.Helper()

	tasks := &fakeTaskStore{}
	stats := &fakeStatsStore{tasks: tasks}
	return &taskServiceImpl{
		tasks:   tasks,
		stats:   stats,
		cache:   cache.New(cache.NewMemoryBackend(), nil, nil),
		metrics: metrics.NewNop(),
		logger:  discardLogger(),
		runTx: func(ctx context.Context, _ *sql.DB, fn store.TxFn) error {
			return fn(ctx, nil)
		},
	}, tasks, stats
}

func seedTask(t *testing.T, tasks *fakeTaskStore, ownerID uuid.UUID, title string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(ownerID, title)
	require.NoError(t, err)
	tasks.tasks = append(tasks.tasks, task)
	return task
}

func TestCreateTaskAssignsNextSortOrder(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()

	existing := seedTask(t, tasks, ownerID, "first")
	existing.SortOrder = 7

	created, err := svc.CreateTask(ctx, ownerID, CreateTaskInput{Title: "second"})
	require.NoError(t, err)
	assert.Equal(t, 8, created.SortOrder)

	explicit := 3
	pinned, err := svc.CreateTask(ctx, ownerID, CreateTaskInput{Title: "third", SortOrder: &explicit})
	require.NoError(t, err)
	assert.Equal(t, 3, pinned.SortOrder)
}

func TestCreateTaskValidation(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)

	_, err := svc.CreateTask(context.Background(), uuid.New(), CreateTaskInput{Title: ""})
	assert.ErrorIs(t, err, domain.ErrTaskTitleEmpty)
	assert.Empty(t, tasks.tasks)
}

func TestCreateTaskCompletedStatusStampsCompletion(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ownerID := uuid.New()

	created, err := svc.CreateTask(context.Background(), ownerID, CreateTaskInput{
		Title:  "already done",
		Status: domain.TaskStatusCompleted,
	})
	require.NoError(t, err)
	require.NotNil(t, created.CompletedAt)
	require.NotNil(t, created.CompletedBy)
	assert.Equal(t, ownerID, *created.CompletedBy)
}

func TestFindByIDCachesWithinTTL(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()
	task := seedTask(t, tasks, ownerID, "cached read")

	first, err := svc.FindByID(ctx, task.ID, ownerID)
	require.NoError(t, err)
	second, err := svc.FindByID(ctx, task.ID, ownerID)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, tasks.getCalls)
}

func TestFindByIDOwnershipMissIsNotFound(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	stranger := uuid.New()
	ctx := context.Background()
	task := seedTask(t, tasks, ownerID, "private")

	_, err := svc.FindByID(ctx, task.ID, stranger)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	// The miss is not cached: a second read consults the store again.
	_, err = svc.FindByID(ctx, task.ID, stranger)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.Equal(t, 2, tasks.getCalls)
}

func TestUpdateTaskCompletionTransition(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()
	task := seedTask(t, tasks, ownerID, "to complete")

	completed := domain.TaskStatusCompleted
	updated, err := svc.UpdateTask(ctx, task.ID, ownerID, &domain.TaskUpdate{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, updated.CompletedAt)
	require.NotNil(t, updated.CompletedBy)
	assert.Equal(t, ownerID, *updated.CompletedBy)

	// Moving back out of completed clears the stamp.
	pending := domain.TaskStatusPending
	reopened, err := svc.UpdateTask(ctx, task.ID, ownerID, &domain.TaskUpdate{Status: &pending})
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)
	assert.Nil(t, reopened.CompletedBy)
}

func TestUpdateTaskInvalidatesCachedRead(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()
	task := seedTask(t, tasks, ownerID, "stale read")

	_, err := svc.FindByID(ctx, task.ID, ownerID)
	require.NoError(t, err)

	title := "fresh title"
	_, err = svc.UpdateTask(ctx, task.ID, ownerID, &domain.TaskUpdate{Title: &title})
	require.NoError(t, err)

	fresh, err := svc.FindByID(ctx, task.ID, ownerID)
	require.NoError(t, err)
	assert.Equal(t, "fresh title", fresh.Title)
}

func TestUpdateTaskCrossOwnerWritesNothing(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	stranger := uuid.New()
	ctx := context.Background()
	task := seedTask(t, tasks, ownerID, "untouchable")

	title := "hijacked"
	_, err := svc.UpdateTask(ctx, task.ID, stranger, &domain.TaskUpdate{Title: &title})
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.Equal(t, "untouchable", task.Title)
}

func TestUpdateTaskEmptyUpdateRejected(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)

	_, err := svc.UpdateTask(context.Background(), uuid.New(), uuid.New(), &domain.TaskUpdate{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteTaskHidesFromReads(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()
	task := seedTask(t, tasks, ownerID, "to delete")

	require.NoError(t, svc.DeleteTask(ctx, task.ID, ownerID))

	_, err := svc.FindByID(ctx, task.ID, ownerID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	// The row itself survives a soft delete.
	assert.Len(t, tasks.tasks, 1)
	assert.True(t, tasks.tasks[0].IsDeleted())
}

func TestHardDeleteRemovesRow(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()
	task := seedTask(t, tasks, ownerID, "to purge")

	require.NoError(t, svc.HardDeleteTask(ctx, task.ID, ownerID))
	assert.Empty(t, tasks.tasks)
}

func TestBulkUpdateMixedOwnership(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()

	mine1 := seedTask(t, tasks, ownerID, "mine 1")
	theirs := seedTask(t, tasks, uuid.New(), "theirs")
	mine2 := seedTask(t, tasks, ownerID, "mine 2")
	ghost := uuid.New()

	prio := domain.TaskPriorityHigh
	result, err := svc.BulkUpdate(ctx, ownerID,
		[]uuid.UUID{mine1.ID, theirs.ID, mine2.ID, ghost},
		&domain.TaskUpdate{Priority: &prio})
	require.NoError(t, err)

	// Partition preserves request order within each bucket.
	assert.Equal(t, []uuid.UUID{mine1.ID, mine2.ID}, result.Succeeded)
	assert.Equal(t, []uuid.UUID{theirs.ID, ghost}, result.Failed)
	assert.Equal(t, 2, result.SuccessCount)
	assert.Equal(t, 2, result.FailureCount)
	assert.Equal(t, domain.BulkReasonNotOwned, result.FailReasons[theirs.ID])

	assert.Equal(t, domain.TaskPriorityHigh, mine1.Priority)
	assert.Equal(t, domain.TaskPriorityHigh, mine2.Priority)
	assert.NotEqual(t, domain.TaskPriorityHigh, theirs.Priority)
}

func TestBulkUpdateClearsCompletionOnReopen(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()
	task := seedTask(t, tasks, ownerID, "done then reopened")

	completed := domain.TaskStatusCompleted
	_, err := svc.UpdateTask(ctx, task.ID, ownerID, &domain.TaskUpdate{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, task.CompletedAt)

	pending := domain.TaskStatusPending
	result, err := svc.BulkUpdate(ctx, ownerID, []uuid.UUID{task.ID},
		&domain.TaskUpdate{Status: &pending})
	require.NoError(t, err)
	require.Equal(t, 1, result.SuccessCount)

	assert.Equal(t, domain.TaskStatusPending, task.Status)
	assert.Nil(t, task.CompletedAt)
	assert.Nil(t, task.CompletedBy)
}

func TestBulkUpdateKeepsExistingCompletionStamp(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()

	fresh := seedTask(t, tasks, ownerID, "not yet done")
	already := seedTask(t, tasks, ownerID, "done earlier")

	completed := domain.TaskStatusCompleted
	_, err := svc.UpdateTask(ctx, already.ID, ownerID, &domain.TaskUpdate{Status: &completed})
	require.NoError(t, err)
	require.NotNil(t, already.CompletedAt)
	originalStamp := *already.CompletedAt

	result, err := svc.BulkUpdate(ctx, ownerID, []uuid.UUID{fresh.ID, already.ID},
		&domain.TaskUpdate{Status: &completed})
	require.NoError(t, err)
	require.Equal(t, 2, result.SuccessCount)

	require.NotNil(t, fresh.CompletedAt)
	require.NotNil(t, fresh.CompletedBy)
	assert.Equal(t, ownerID, *fresh.CompletedBy)

	// The row completed before the batch keeps its original stamp.
	require.NotNil(t, already.CompletedAt)
	assert.Equal(t, originalStamp, *already.CompletedAt)
}

func TestBulkUpdateWriteFailureDiscardsResult(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	task := seedTask(t, tasks, ownerID, "doomed batch")

	tasks.failWrites = true
	prio := domain.TaskPriorityLow
	result, err := svc.BulkUpdate(context.Background(), ownerID,
		[]uuid.UUID{task.ID}, &domain.TaskUpdate{Priority: &prio})

	// A write error aborts the whole batch rather than reporting partial
	// success.
	assert.Error(t, err)
	assert.Nil(t, result)
	var svcErr *TaskServiceError
	assert.ErrorAs(t, err, &svcErr)
}

func TestBulkDeleteSoftDeletesOwned(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()

	mine := seedTask(t, tasks, ownerID, "mine")
	theirs := seedTask(t, tasks, uuid.New(), "theirs")

	result, err := svc.BulkDelete(ctx, ownerID, []uuid.UUID{mine.ID, theirs.ID})
	require.NoError(t, err)

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailureCount)
	assert.True(t, mine.IsDeleted())
	assert.False(t, theirs.IsDeleted())
}

func TestBulkMutateEmptyInput(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)

	result, err := svc.BulkDelete(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 0, result.FailureCount)
}

func TestReorderAppliesOwnedAndSkipsForeign(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()

	a := seedTask(t, tasks, ownerID, "a")
	b := seedTask(t, tasks, ownerID, "b")
	theirs := seedTask(t, tasks, uuid.New(), "theirs")
	theirs.SortOrder = 99

	err := svc.Reorder(ctx, ownerID, []ReorderItem{
		{ID: b.ID, SortOrder: 1},
		{ID: theirs.ID, SortOrder: 2},
		{ID: a.ID, SortOrder: 3},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, b.SortOrder)
	assert.Equal(t, 3, a.SortOrder)
	// The foreign row is skipped, not failed.
	assert.Equal(t, 99, theirs.SortOrder)
}

func TestGetStatsCachedUntilMutation(t *testing.T) {
	t.Parallel()

	svc, _, stats := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()

	first, err := svc.GetStats(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Total)

	_, err = svc.GetStats(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.calls)

	_, err = svc.CreateTask(ctx, ownerID, CreateTaskInput{Title: "bump"})
	require.NoError(t, err)

	// Creation invalidated the owner's stats view.
	fresh, err := svc.GetStats(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 1, fresh.Total)
	assert.Equal(t, 2, stats.calls)
}

func TestListReflectsMutations(t *testing.T) {
	t.Parallel()

	svc, tasks, _ := newTestService(t)
	ownerID := uuid.New()
	ctx := context.Background()
	seedTask(t, tasks, ownerID, "one")

	page, err := svc.List(ctx, ownerID, store.FilterSpec{}, store.SortSpec{}, store.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	_, err = svc.CreateTask(ctx, ownerID, CreateTaskInput{Title: "two"})
	require.NoError(t, err)

	page, err = svc.List(ctx, ownerID, store.FilterSpec{}, store.SortSpec{}, store.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 2, tasks.listCalls)
}
