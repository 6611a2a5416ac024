package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// taskColumns is the canonical column list for task rows. Scan order in
// scanTask must match it.
const taskColumns = `id, user_id, title, description, category_id, priority, status,
	due_date, reminder_at, start_date, estimated_minutes, actual_minutes,
	completed_at, completed_by, tags, sort_order, metadata,
	created_at, updated_at, deleted_at`

// TaskStore implements store.TaskStore using a PostgreSQL database as the
// storage backend.
type TaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewTaskStore creates a new PostgreSQL implementation of store.TaskStore.
// It accepts a database connection or transaction managed by the caller.
// If logger is nil, a default logger will be used.
func NewTaskStore(db store.DBTX, logger *slog.Logger) *TaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &TaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure TaskStore implements store.TaskStore
var _ store.TaskStore = (*TaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *TaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &TaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskStore.Create
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	tagsJSON, metadataJSON, err := encodeTaskDocuments(task.Tags, task.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		nullableUUID(task.CategoryID),
		task.Priority,
		task.Status,
		task.DueDate,
		task.ReminderAt,
		task.StartDate,
		task.EstimatedMinutes,
		task.ActualMinutes,
		task.CompletedAt,
		nullableUUID(task.CompletedBy),
		tagsJSON,
		task.SortOrder,
		metadataJSON,
		task.CreatedAt,
		task.UpdatedAt,
		task.DeletedAt,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return MapError(err)
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()))
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *TaskStore) GetByID(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE id = $1 AND user_id = $2 AND deleted_at IS NULL
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// List implements store.TaskStore.List
// The count and the page are read concurrently over the shared predicate
// sequence produced by store.BuildPredicates; the data query appends its
// limit and offset parameters after the shared sequence.
func (s *TaskStore) List(
	ctx context.Context,
	ownerID uuid.UUID,
	filter store.FilterSpec,
	sort store.SortSpec,
	page store.Pagination,
) (*store.PageResult[*domain.Task], error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	preds := store.BuildPredicates(ownerID, filter, time.Now().UTC())
	where, args := renderPredicates(preds, 1)
	limit, offset := page.Normalize()

	countQuery := `SELECT COUNT(*) FROM tasks WHERE ` + where
	dataQuery := fmt.Sprintf(
		`SELECT `+taskColumns+` FROM tasks WHERE `+where+` %s LIMIT $%d OFFSET $%d`,
		orderByClause(sort), len(args)+1, len(args)+2)
	dataArgs := append(append([]any{}, args...), limit, offset)

	var (
		total int
		tasks []*domain.Task
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.db.QueryRowContext(gctx, countQuery, args...).Scan(&total)
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, dataQuery, dataArgs...)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				return err
			}
			tasks = append(tasks, task)
		}
		return rows.Err()
	})

	if err := g.Wait(); err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, MapError(err)
	}

	if tasks == nil {
		tasks = []*domain.Task{}
	}

	return &store.PageResult[*domain.Task]{
		Items:  tasks,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// Update implements store.TaskStore.Update
// The SET list is assembled dynamically from the supplied fields with a
// running parameter index; the completion fields bind NULL through the same
// positional scheme as every other parameter when the transition clears them.
func (s *TaskStore) Update(
	ctx context.Context,
	id, ownerID uuid.UUID,
	upd *domain.TaskUpdate,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := upd.Validate(); err != nil {
		log.Warn("task update validation failed",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, err
	}

	setClause, args, err := buildUpdateSet(upd, 1)
	if err != nil {
		return nil, err
	}

	idIdx := len(args) + 1
	query := fmt.Sprintf(`
		UPDATE tasks
		SET %s
		WHERE id = $%d AND user_id = $%d AND deleted_at IS NULL
		RETURNING `+taskColumns,
		setClause, idIdx, idIdx+1)
	args = append(args, id, ownerID)

	task, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found for update",
				slog.String("task_id", id.String()),
				slog.String("user_id", ownerID.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return task, nil
}

// SoftDelete implements store.TaskStore.SoftDelete
func (s *TaskStore) SoftDelete(ctx context.Context, id, ownerID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	query := `
		UPDATE tasks
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND user_id = $3 AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, now, id, ownerID)
	if err != nil {
		log.Error("failed to soft-delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, "task")
}

// HardDelete implements store.TaskStore.HardDelete
// Unlike SoftDelete it also targets rows that already carry a deletion
// marker, since it exists to physically clean them up.
func (s *TaskStore) HardDelete(ctx context.Context, id, ownerID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := s.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		log.Error("failed to hard-delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return err
	}

	log.Info("task hard-deleted",
		slog.String("task_id", id.String()),
		slog.String("user_id", ownerID.String()))
	return nil
}

// FilterOwnedIDs implements store.TaskStore.FilterOwnedIDs
func (s *TaskStore) FilterOwnedIDs(
	ctx context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
) (owned, rejected []uuid.UUID, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	owned = []uuid.UUID{}
	rejected = []uuid.UUID{}
	if len(ids) == 0 {
		return owned, rejected, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, ownerID)
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+2)
		args = append(args, id)
	}

	query := `
		SELECT id FROM tasks
		WHERE user_id = $1 AND deleted_at IS NULL AND id IN (` + strings.Join(placeholders, ", ") + `)
	`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to filter owned task ids",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()),
			slog.Int("id_count", len(ids)))
		return nil, nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	ownedSet := make(map[uuid.UUID]bool, len(ids))
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, nil, MapError(err)
		}
		ownedSet[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, nil, MapError(err)
	}

	for _, id := range ids {
		if ownedSet[id] {
			owned = append(owned, id)
		} else {
			rejected = append(rejected, id)
		}
	}

	return owned, rejected, nil
}

// UpdateMany implements store.TaskStore.UpdateMany
func (s *TaskStore) UpdateMany(
	ctx context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
	upd *domain.TaskUpdate,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(ids) == 0 {
		return 0, nil
	}

	if err := upd.Validate(); err != nil {
		return 0, err
	}

	setClause, args, err := buildUpdateSet(upd, 1)
	if err != nil {
		return 0, err
	}

	ownerIdx := len(args) + 1
	args = append(args, ownerID)
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", ownerIdx+1+i)
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		UPDATE tasks
		SET %s
		WHERE user_id = $%d AND deleted_at IS NULL AND id IN (%s)
	`, setClause, ownerIdx, strings.Join(placeholders, ", "))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to bulk-update tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()),
			slog.Int("id_count", len(ids)))
		return 0, MapError(err)
	}

	return result.RowsAffected()
}

// SoftDeleteMany implements store.TaskStore.SoftDeleteMany
func (s *TaskStore) SoftDeleteMany(
	ctx context.Context,
	ownerID uuid.UUID,
	ids []uuid.UUID,
) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(ids) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	args := []any{now, ownerID}
	placeholders := make([]string, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+3)
		args = append(args, id)
	}

	query := `
		UPDATE tasks
		SET deleted_at = $1, updated_at = $1
		WHERE user_id = $2 AND deleted_at IS NULL AND id IN (` + strings.Join(placeholders, ", ") + `)
	`

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to bulk-delete tasks",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()),
			slog.Int("id_count", len(ids)))
		return 0, MapError(err)
	}

	return result.RowsAffected()
}

// SetSortOrder implements store.TaskStore.SetSortOrder
func (s *TaskStore) SetSortOrder(
	ctx context.Context,
	ownerID, id uuid.UUID,
	sortOrder int,
) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET sort_order = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND deleted_at IS NULL
	`

	result, err := s.db.ExecContext(ctx, query, sortOrder, time.Now().UTC(), id, ownerID)
	if err != nil {
		log.Error("failed to set task sort order",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return false, MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, MapError(err)
	}
	return affected > 0, nil
}

// MaxSortOrder implements store.TaskStore.MaxSortOrder
func (s *TaskStore) MaxSortOrder(ctx context.Context, ownerID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(MAX(sort_order), 0)
		FROM tasks
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	var max int
	if err := s.db.QueryRowContext(ctx, query, ownerID).Scan(&max); err != nil {
		return 0, MapError(err)
	}
	return max, nil
}

// buildUpdateSet assembles the SET clause for a partial update with a running
// positional index starting at startIndex. updated_at is always included.
// Returns the clause, its argument list, and an error if a document field
// fails to encode.
func buildUpdateSet(upd *domain.TaskUpdate, startIndex int) (string, []any, error) {
	clauses := []string{}
	args := []any{}
	idx := startIndex

	add := func(column string, value any) {
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}

	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.CategoryID != nil {
		// uuid.Nil clears the category.
		if *upd.CategoryID == uuid.Nil {
			add("category_id", nil)
		} else {
			add("category_id", *upd.CategoryID)
		}
	}
	if upd.Priority != nil {
		add("priority", string(*upd.Priority))
	}
	if upd.Status != nil {
		add("status", string(*upd.Status))
	}
	if upd.DueDate != nil {
		add("due_date", nullableTime(*upd.DueDate))
	}
	if upd.ReminderAt != nil {
		add("reminder_at", nullableTime(*upd.ReminderAt))
	}
	if upd.StartDate != nil {
		add("start_date", nullableTime(*upd.StartDate))
	}
	if upd.EstimatedMinutes != nil {
		add("estimated_minutes", *upd.EstimatedMinutes)
	}
	if upd.ActualMinutes != nil {
		add("actual_minutes", *upd.ActualMinutes)
	}
	if upd.Tags != nil {
		tagsJSON, err := json.Marshal(normalizeTags(*upd.Tags))
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		add("tags", tagsJSON)
	}
	if upd.SortOrder != nil {
		add("sort_order", *upd.SortOrder)
	}
	if upd.Metadata != nil {
		metadataJSON, err := json.Marshal(*upd.Metadata)
		if err != nil {
			return "", nil, fmt.Errorf("failed to encode metadata: %w", err)
		}
		add("metadata", metadataJSON)
	}

	switch {
	case upd.SetCompletedAt != nil:
		// COALESCE keeps an existing stamp: a row completed before this
		// statement (possible in bulk updates) retains its original
		// completed_at/completed_by pair.
		clauses = append(clauses, fmt.Sprintf("completed_at = COALESCE(completed_at, $%d)", idx))
		args = append(args, *upd.SetCompletedAt)
		idx++
		clauses = append(clauses, fmt.Sprintf("completed_by = COALESCE(completed_by, $%d)", idx))
		args = append(args, *upd.SetCompletedBy)
		idx++
	case upd.ClearCompletion:
		add("completed_at", nil)
		add("completed_by", nil)
	}

	add("updated_at", time.Now().UTC())

	return strings.Join(clauses, ", "), args, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask decodes one task row into the domain entity. All document
// decoding (tag set, metadata) happens here at the store boundary; the rest
// of the system never sees raw rows.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task             domain.Task
		description      sql.NullString
		categoryID       uuid.NullUUID
		priority         string
		status           string
		dueDate          sql.NullTime
		reminderAt       sql.NullTime
		startDate        sql.NullTime
		estimatedMinutes sql.NullInt64
		actualMinutes    sql.NullInt64
		completedAt      sql.NullTime
		completedBy      uuid.NullUUID
		tagsJSON         []byte
		metadataJSON     []byte
		deletedAt        sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&description,
		&categoryID,
		&priority,
		&status,
		&dueDate,
		&reminderAt,
		&startDate,
		&estimatedMinutes,
		&actualMinutes,
		&completedAt,
		&completedBy,
		&tagsJSON,
		&task.SortOrder,
		&metadataJSON,
		&task.CreatedAt,
		&task.UpdatedAt,
		&deletedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Description = description.String
	task.Priority = domain.TaskPriority(priority)
	task.Status = domain.TaskStatus(status)

	if categoryID.Valid {
		id := categoryID.UUID
		task.CategoryID = &id
	}
	if dueDate.Valid {
		t := dueDate.Time
		task.DueDate = &t
	}
	if reminderAt.Valid {
		t := reminderAt.Time
		task.ReminderAt = &t
	}
	if startDate.Valid {
		t := startDate.Time
		task.StartDate = &t
	}
	if estimatedMinutes.Valid {
		v := int(estimatedMinutes.Int64)
		task.EstimatedMinutes = &v
	}
	if actualMinutes.Valid {
		v := int(actualMinutes.Int64)
		task.ActualMinutes = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		task.CompletedAt = &t
	}
	if completedBy.Valid {
		id := completedBy.UUID
		task.CompletedBy = &id
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		task.DeletedAt = &t
	}

	if len(tagsJSON) > 0 {
		if err := json.Unmarshal(tagsJSON, &task.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode task tags: %w", err)
		}
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &task.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode task metadata: %w", err)
		}
	}

	return &task, nil
}

// encodeTaskDocuments marshals the tag set and metadata map for storage.
// Nil inputs encode as an empty array and empty object so the columns stay
// NOT NULL.
func encodeTaskDocuments(tags []string, metadata map[string]any) ([]byte, []byte, error) {
	tagsJSON, err := json.Marshal(normalizeTags(tags))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode tags: %w", err)
	}

	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	return tagsJSON, metadataJSON, nil
}

func normalizeTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

// nullableUUID maps a nil pointer to SQL NULL.
func nullableUUID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return *id
}

// nullableTime maps the zero time to SQL NULL so a supplied zero value
// clears the column.
func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
