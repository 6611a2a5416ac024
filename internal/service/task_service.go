package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/cache"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
	"github.com/phrazzld/taskdeck-api/internal/platform/metrics"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// Cache lifetimes. List and search results churn with every mutation, so
// they live shorter than single-task and stats reads, which are precisely
// invalidated by tag.
const (
	taskTTL  = 5 * time.Minute
	listTTL  = 1 * time.Minute
	statsTTL = 5 * time.Minute
)

// CreateTaskInput carries the caller-supplied fields of a new task. Zero
// values mean "unset": priority defaults to none, status to pending, and a
// nil SortOrder places the task after the owner's current last position.
type CreateTaskInput struct {
	Title            string
	Description      string
	CategoryID       *uuid.UUID
	Priority         domain.TaskPriority
	Status           domain.TaskStatus
	DueDate          *time.Time
	ReminderAt       *time.Time
	StartDate        *time.Time
	EstimatedMinutes *int
	Tags             []string
	SortOrder        *int
	Metadata         map[string]any
}

// ReorderItem assigns one task its new manual position.
type ReorderItem struct {
	ID        uuid.UUID
	SortOrder int
}

// TaskService provides task-related operations. Every operation is scoped to
// an owner: a task belonging to another owner behaves exactly like a missing
// one. Reads go through the tag-indexed cache; mutations invalidate the
// affected tags synchronously before returning.
type TaskService interface {
	// CreateTask creates a task for the owner. When input.SortOrder is nil
	// the task is placed after the owner's current last position.
	CreateTask(ctx context.Context, ownerID uuid.UUID, input CreateTaskInput) (*domain.Task, error)

	// FindByID retrieves one live task. Returns store.ErrTaskNotFound when
	// the task does not exist, is soft-deleted, or belongs to someone else.
	FindByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error)

	// List returns one page of the owner's tasks matching the filter, with
	// the total count over the same predicate sequence.
	List(
		ctx context.Context,
		ownerID uuid.UUID,
		filter store.FilterSpec,
		sort store.SortSpec,
		page store.Pagination,
	) (*store.PageResult[*domain.Task], error)

	// Search is List constrained to a case-insensitive term over title,
	// description, and tags.
	Search(
		ctx context.Context,
		ownerID uuid.UUID,
		term string,
		sort store.SortSpec,
		page store.Pagination,
	) (*store.PageResult[*domain.Task], error)

	// UpdateTask applies a partial update and returns the updated task.
	// Status transitions into and out of completed maintain the
	// completed_at/completed_by pair automatically.
	UpdateTask(ctx context.Context, id, ownerID uuid.UUID, upd *domain.TaskUpdate) (*domain.Task, error)

	// DeleteTask soft-deletes the task. The row survives for audit and
	// recovery; every regular read stops seeing it.
	DeleteTask(ctx context.Context, id, ownerID uuid.UUID) error

	// HardDeleteTask physically removes the row, soft-deleted or not.
	HardDeleteTask(ctx context.Context, id, ownerID uuid.UUID) error

	// BulkUpdate applies one partial update to many tasks. Ids the owner
	// does not hold a live task for are reported as failures; the rest are
	// written atomically.
	BulkUpdate(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID, upd *domain.TaskUpdate) (*domain.BulkMutationResult, error)

	// BulkDelete soft-deletes many tasks with the same partition semantics
	// as BulkUpdate.
	BulkDelete(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) (*domain.BulkMutationResult, error)

	// Reorder assigns new manual positions in one transaction. Rows the
	// owner does not hold are skipped, not failed.
	Reorder(ctx context.Context, ownerID uuid.UUID, items []ReorderItem) error

	// GetStats computes the owner's aggregate view.
	GetStats(ctx context.Context, ownerID uuid.UUID) (*domain.StatsSummary, error)
}

// taskServiceImpl implements the TaskService interface.
type taskServiceImpl struct {
	db      *sql.DB
	tasks   store.TaskStore
	stats   store.StatsStore
	cache   *cache.Cache
	metrics *metrics.Metrics
	logger  *slog.Logger

	// runTx wraps store.RunInTransaction. Injectable for testing.
	runTx func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	db *sql.DB,
	tasks store.TaskStore,
	stats store.StatsStore,
	c *cache.Cache,
	m *metrics.Metrics,
	logger *slog.Logger,
) (TaskService, error) {
	if db == nil {
		return nil, domain.NewValidationError("db", "cannot be nil", domain.ErrValidation)
	}
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", domain.ErrValidation)
	}
	if stats == nil {
		return nil, domain.NewValidationError("stats", "cannot be nil", domain.ErrValidation)
	}
	if c == nil {
		return nil, domain.NewValidationError("cache", "cannot be nil", domain.ErrValidation)
	}
	if m == nil {
		m = metrics.NewNop()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		db:      db,
		tasks:   tasks,
		stats:   stats,
		cache:   c,
		metrics: m,
		logger:  logger.With(slog.String("component", "task_service")),
		runTx:   store.RunInTransaction,
	}, nil
}

// CreateTask implements TaskService.CreateTask.
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	ownerID uuid.UUID,
	input CreateTaskInput,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(ownerID, input.Title)
	if err != nil {
		return nil, err
	}
	task.Description = input.Description
	task.CategoryID = input.CategoryID
	if input.Priority != "" {
		task.Priority = input.Priority
	}
	if input.Status != "" {
		task.Status = input.Status
	}
	task.DueDate = input.DueDate
	task.ReminderAt = input.ReminderAt
	task.StartDate = input.StartDate
	task.EstimatedMinutes = input.EstimatedMinutes
	if input.Tags != nil {
		task.Tags = input.Tags
	}
	if input.Metadata != nil {
		task.Metadata = input.Metadata
	}
	if task.Status == domain.TaskStatusCompleted {
		now := time.Now().UTC()
		task.CompletedAt = &now
		actor := ownerID
		task.CompletedBy = &actor
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	// Resolving the default position and inserting run in one transaction
	// so two concurrent creates cannot claim the same slot.
	err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		if input.SortOrder != nil {
			task.SortOrder = *input.SortOrder
		} else {
			maxOrder, err := txTasks.MaxSortOrder(ctx, ownerID)
			if err != nil {
				return NewTaskServiceError("create_task", "failed to resolve sort order", err)
			}
			task.SortOrder = maxOrder + 1
		}
		if err := txTasks.Create(ctx, task); err != nil {
			return NewTaskServiceError("create_task", "failed to save task", err)
		}
		return nil
	})
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		s.metrics.RecordMutation("create", metrics.OutcomeError)
		return nil, err
	}

	s.invalidate(ctx, ownerTags(ownerID))
	s.metrics.RecordMutation("create", metrics.OutcomeOK)

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", ownerID.String()))
	return task, nil
}

// FindByID implements TaskService.FindByID.
func (s *taskServiceImpl) FindByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	key := cache.Key("task", id, ownerID)
	tags := []string{cache.TaskTag(id), cache.OwnerTag(ownerID)}

	return cache.Query(ctx, s.cache, key, taskTTL, tags,
		func(ctx context.Context) (*domain.Task, error) {
			return s.tasks.GetByID(ctx, id, ownerID)
		})
}

// List implements TaskService.List.
func (s *taskServiceImpl) List(
	ctx context.Context,
	ownerID uuid.UUID,
	filter store.FilterSpec,
	sort store.SortSpec,
	page store.Pagination,
) (*store.PageResult[*domain.Task], error) {
	key := cache.Key("tasks:list", ownerID, filter, sort, page)
	tags := []string{cache.OwnerTag(ownerID), cache.SearchTag(ownerID)}

	return cache.Query(ctx, s.cache, key, listTTL, tags,
		func(ctx context.Context) (*store.PageResult[*domain.Task], error) {
			return s.tasks.List(ctx, ownerID, filter, sort, page)
		})
}

// Search implements TaskService.Search.
func (s *taskServiceImpl) Search(
	ctx context.Context,
	ownerID uuid.UUID,
	term string,
	sort store.SortSpec,
	page store.Pagination,
) (*store.PageResult[*domain.Task], error) {
	return s.List(ctx, ownerID, store.FilterSpec{Search: term}, sort, page)
}

// UpdateTask implements TaskService.UpdateTask.
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	id, ownerID uuid.UUID,
	upd *domain.TaskUpdate,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if upd == nil || upd.IsEmpty() {
		return nil, domain.NewValidationError("update", "no fields supplied", domain.ErrValidation)
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	// The current status is read inside the same transaction as the write
	// so the completed_at/completed_by bookkeeping is derived from the row
	// actually being updated.
	var updated *domain.Task
	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)

		current, err := txTasks.GetByID(ctx, id, ownerID)
		if err != nil {
			return err
		}
		upd.ResolveCompletion(current.Status, ownerID, time.Now().UTC())

		updated, err = txTasks.Update(ctx, id, ownerID, upd)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, err
		}
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()),
			slog.String("user_id", ownerID.String()))
		s.metrics.RecordMutation("update", metrics.OutcomeError)
		return nil, NewTaskServiceError("update_task", "failed to update task", err)
	}

	s.invalidate(ctx, append(ownerTags(ownerID), cache.TaskTag(id)))
	s.metrics.RecordMutation("update", metrics.OutcomeOK)

	log.Info("task updated",
		slog.String("task_id", id.String()),
		slog.String("user_id", ownerID.String()))
	return updated, nil
}

// DeleteTask implements TaskService.DeleteTask.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id, ownerID uuid.UUID) error {
	return s.deleteTask(ctx, id, ownerID, "delete", s.tasks.SoftDelete)
}

// HardDeleteTask implements TaskService.HardDeleteTask.
func (s *taskServiceImpl) HardDeleteTask(ctx context.Context, id, ownerID uuid.UUID) error {
	return s.deleteTask(ctx, id, ownerID, "hard_delete", s.tasks.HardDelete)
}

func (s *taskServiceImpl) deleteTask(
	ctx context.Context,
	id, ownerID uuid.UUID,
	operation string,
	del func(ctx context.Context, id, ownerID uuid.UUID) error,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := del(ctx, id, ownerID); err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return err
		}
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("operation", operation),
			slog.String("task_id", id.String()),
			slog.String("user_id", ownerID.String()))
		s.metrics.RecordMutation(operation, metrics.OutcomeError)
		return NewTaskServiceError(operation, "failed to delete task", err)
	}

	s.invalidate(ctx, append(ownerTags(ownerID), cache.TaskTag(id)))
	s.metrics.RecordMutation(operation, metrics.OutcomeOK)

	log.Info("task deleted",
		slog.String("operation", operation),
		slog.String("task_id", id.String()),
		slog.String("user_id", ownerID.String()))
	return nil
}

// BulkUpdate implements TaskService.BulkUpdate.
func (s *taskServiceImpl) BulkUpdate(
	ctx context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
	upd *domain.TaskUpdate,
) (*domain.BulkMutationResult, error) {
	if upd == nil || upd.IsEmpty() {
		return nil, domain.NewValidationError("update", "no fields supplied", domain.ErrValidation)
	}
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	// Bulk updates have no per-row prior status to consult, so every row is
	// treated as crossing the completed boundary in the direction the target
	// implies. Both directions are idempotent at the store: the COALESCE
	// stamp keeps an already-completed row's original pair, and clearing
	// NULLs on a row that never completed is a no-op.
	if upd.Status != nil {
		current := domain.TaskStatusCompleted
		if *upd.Status == domain.TaskStatusCompleted {
			current = domain.TaskStatusPending
		}
		upd.ResolveCompletion(current, ownerID, time.Now().UTC())
	}

	return s.bulkMutate(ctx, ownerID, ids, "bulk_update",
		func(ctx context.Context, txTasks store.TaskStore, owned []uuid.UUID) (int64, error) {
			return txTasks.UpdateMany(ctx, ownerID, owned, upd)
		})
}

// BulkDelete implements TaskService.BulkDelete.
func (s *taskServiceImpl) BulkDelete(
	ctx context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
) (*domain.BulkMutationResult, error) {
	return s.bulkMutate(ctx, ownerID, ids, "bulk_delete",
		func(ctx context.Context, txTasks store.TaskStore, owned []uuid.UUID) (int64, error) {
			return txTasks.SoftDeleteMany(ctx, ownerID, owned)
		})
}

// bulkMutate partitions ids by ownership, applies mutate to the owned
// partition in one transaction, and reports per-id outcomes. Unauthorized
// ids become failures without aborting the batch; a write error aborts the
// whole batch and discards the result.
func (s *taskServiceImpl) bulkMutate(
	ctx context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
	operation string,
	mutate func(ctx context.Context, txTasks store.TaskStore, owned []uuid.UUID) (int64, error),
) (*domain.BulkMutationResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result := domain.NewBulkMutationResult()
	if len(ids) == 0 {
		return result, nil
	}

	owned, rejected, err := s.tasks.FilterOwnedIDs(ctx, ownerID, ids)
	if err != nil {
		s.metrics.RecordMutation(operation, metrics.OutcomeError)
		return nil, NewTaskServiceError(operation, "failed to check task ownership", err)
	}
	for _, id := range rejected {
		result.AddFailure(id, domain.BulkReasonNotOwned)
	}

	if len(owned) > 0 {
		err = s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
			_, err := mutate(ctx, s.tasks.WithTx(tx), owned)
			return err
		})
		if err != nil {
			log.Error("bulk mutation failed, batch rolled back",
				slog.String("error", err.Error()),
				slog.String("operation", operation),
				slog.String("user_id", ownerID.String()),
				slog.Int("id_count", len(owned)))
			s.metrics.RecordMutation(operation, metrics.OutcomeError)
			return nil, NewTaskServiceError(operation, "failed to apply bulk mutation", err)
		}
		for _, id := range owned {
			result.AddSuccess(id)
		}

		tags := ownerTags(ownerID)
		for _, id := range owned {
			tags = append(tags, cache.TaskTag(id))
		}
		s.invalidate(ctx, tags)
	}

	outcome := metrics.OutcomeOK
	if len(rejected) > 0 {
		outcome = metrics.OutcomePartial
	}
	s.metrics.RecordMutation(operation, outcome)

	log.Info("bulk mutation applied",
		slog.String("operation", operation),
		slog.String("user_id", ownerID.String()),
		slog.Int("succeeded", result.SuccessCount),
		slog.Int("failed", result.FailureCount))
	return result, nil
}

// Reorder implements TaskService.Reorder.
func (s *taskServiceImpl) Reorder(ctx context.Context, ownerID uuid.UUID, items []ReorderItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(items) == 0 {
		return nil
	}

	applied := make([]uuid.UUID, 0, len(items))
	err := s.runTx(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txTasks := s.tasks.WithTx(tx)
		for _, item := range items {
			ok, err := txTasks.SetSortOrder(ctx, ownerID, item.ID, item.SortOrder)
			if err != nil {
				return err
			}
			if ok {
				applied = append(applied, item.ID)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("failed to reorder tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()),
			slog.Int("item_count", len(items)))
		s.metrics.RecordMutation("reorder", metrics.OutcomeError)
		return NewTaskServiceError("reorder", "failed to reorder tasks", err)
	}

	if len(applied) > 0 {
		tags := ownerTags(ownerID)
		for _, id := range applied {
			tags = append(tags, cache.TaskTag(id))
		}
		s.invalidate(ctx, tags)
	}

	outcome := metrics.OutcomeOK
	if len(applied) < len(items) {
		outcome = metrics.OutcomePartial
	}
	s.metrics.RecordMutation("reorder", outcome)

	log.Info("tasks reordered",
		slog.String("user_id", ownerID.String()),
		slog.Int("applied", len(applied)),
		slog.Int("requested", len(items)))
	return nil
}

// GetStats implements TaskService.GetStats.
func (s *taskServiceImpl) GetStats(ctx context.Context, ownerID uuid.UUID) (*domain.StatsSummary, error) {
	key := cache.Key("stats", ownerID)
	tags := []string{cache.OwnerTag(ownerID), cache.StatsTag(ownerID)}

	return cache.Query(ctx, s.cache, key, statsTTL, tags,
		func(ctx context.Context) (*domain.StatsSummary, error) {
			return s.stats.Summary(ctx, ownerID)
		})
}

// ownerTags is the invalidation set every mutation shares: the owner's
// single-task entries keyed by owner, plus the derived list/search and
// stats views.
func ownerTags(ownerID uuid.UUID) []string {
	return []string{
		cache.OwnerTag(ownerID),
		cache.SearchTag(ownerID),
		cache.StatsTag(ownerID),
	}
}

// invalidate evicts tags synchronously. The database write has already
// committed, so a backend failure only means stale reads until TTL expiry;
// it is logged by the cache layer and not surfaced to the caller.
func (s *taskServiceImpl) invalidate(ctx context.Context, tags []string) {
	_ = s.cache.InvalidateTags(ctx, tags...)
}
