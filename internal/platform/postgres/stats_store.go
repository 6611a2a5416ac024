package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// StatsStore implements store.StatsStore using a PostgreSQL database.
type StatsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewStatsStore creates a new PostgreSQL implementation of store.StatsStore.
func NewStatsStore(db store.DBTX, logger *slog.Logger) *StatsStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &StatsStore{
		db:     db,
		logger: logger.With(slog.String("component", "stats_store")),
	}
}

// Ensure StatsStore implements store.StatsStore
var _ store.StatsStore = (*StatsStore)(nil)

// Summary implements store.StatsStore.Summary
// It runs exactly two statements: one aggregate row over the owner's live
// tasks, and one LEFT JOIN over the owner's categories so empty categories
// appear with zero counts. Per-category counts are never fetched one query
// at a time.
func (s *StatsStore) Summary(ctx context.Context, ownerID uuid.UUID) (*domain.StatsSummary, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	weekOut := now.Add(7 * 24 * time.Hour)

	aggregateQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'archived'),
			COUNT(*) FILTER (WHERE priority = 'high'),
			COUNT(*) FILTER (WHERE priority = 'medium'),
			COUNT(*) FILTER (WHERE priority = 'low'),
			COUNT(*) FILTER (WHERE priority = 'none'),
			COUNT(*) FILTER (WHERE due_date < $2 AND status NOT IN ('completed', 'archived')),
			COUNT(*) FILTER (WHERE due_date >= $2 AND due_date < $3 AND status NOT IN ('completed', 'archived')),
			AVG(EXTRACT(EPOCH FROM (completed_at - created_at)) / 60.0)
				FILTER (WHERE completed_at IS NOT NULL)
		FROM tasks
		WHERE user_id = $1 AND deleted_at IS NULL
	`

	summary := &domain.StatsSummary{
		ByStatus:   map[domain.TaskStatus]int{},
		ByPriority: map[domain.TaskPriority]int{},
		ByCategory: []domain.CategoryCount{},
	}

	var (
		pending, inProgress, completed, archived int
		high, medium, low, none                  int
		avgMinutes                               sql.NullFloat64
	)

	err := s.db.QueryRowContext(ctx, aggregateQuery, ownerID, now, weekOut).Scan(
		&summary.Total,
		&pending,
		&inProgress,
		&completed,
		&archived,
		&high,
		&medium,
		&low,
		&none,
		&summary.Overdue,
		&summary.DueWithinWeek,
		&avgMinutes,
	)
	if err != nil {
		log.Error("failed to aggregate task stats",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, MapError(err)
	}

	summary.ByStatus[domain.TaskStatusPending] = pending
	summary.ByStatus[domain.TaskStatusInProgress] = inProgress
	summary.ByStatus[domain.TaskStatusCompleted] = completed
	summary.ByStatus[domain.TaskStatusArchived] = archived
	summary.ByPriority[domain.TaskPriorityHigh] = high
	summary.ByPriority[domain.TaskPriorityMedium] = medium
	summary.ByPriority[domain.TaskPriorityLow] = low
	summary.ByPriority[domain.TaskPriorityNone] = none

	if avgMinutes.Valid {
		v := avgMinutes.Float64
		summary.AvgCompletionMinutes = &v
	}

	categoryQuery := `
		SELECT c.id, c.name, COUNT(t.id)
		FROM categories c
		LEFT JOIN tasks t ON t.category_id = c.id AND t.deleted_at IS NULL
		WHERE c.user_id = $1
		GROUP BY c.id, c.name
		ORDER BY c.name ASC
	`

	rows, err := s.db.QueryContext(ctx, categoryQuery, ownerID)
	if err != nil {
		log.Error("failed to aggregate category stats",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var cc domain.CategoryCount
		if err := rows.Scan(&cc.CategoryID, &cc.Name, &cc.Count); err != nil {
			return nil, MapError(err)
		}
		summary.ByCategory = append(summary.ByCategory, cc)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return summary, nil
}
