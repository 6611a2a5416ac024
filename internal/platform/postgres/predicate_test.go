package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestRenderPredicatesPlaceholders(t *testing.T) {
	t.Parallel()

	ownerID := uuid.New()
	preds := []store.Predicate{
		{Kind: store.PredEq, Column: "user_id", Values: []any{ownerID}},
		{Kind: store.PredIsNull, Column: "deleted_at"},
		{Kind: store.PredIn, Column: "status", Values: []any{"pending", "in_progress"}},
	}

	clause, args := renderPredicates(preds, 1)

	assert.Equal(t,
		"user_id = $1 AND deleted_at IS NULL AND status IN ($2, $3)",
		clause)
	assert.Equal(t, []any{ownerID, "pending", "in_progress"}, args)
}

func TestRenderPredicatesStartIndex(t *testing.T) {
	t.Parallel()

	preds := []store.Predicate{
		{Kind: store.PredEq, Column: "user_id", Values: []any{"u"}},
		{Kind: store.PredGte, Column: "due_date", Values: []any{"d"}},
	}

	clause, args := renderPredicates(preds, 5)

	assert.Equal(t, "user_id = $5 AND due_date >= $6", clause)
	assert.Len(t, args, 2)
}

func TestRenderPredicatesTextSearchBindsOnce(t *testing.T) {
	t.Parallel()

	preds := []store.Predicate{
		{Kind: store.PredTextSearch, Values: []any{"%report%"}},
	}

	clause, args := renderPredicates(preds, 1)

	// One bound pattern reused across all three match targets.
	assert.Equal(t,
		"(title ILIKE $1 OR description ILIKE $1 OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) t(tag) WHERE t.tag ILIKE $1))",
		clause)
	assert.Equal(t, []any{"%report%"}, args)
}

func TestRenderPredicatesHasTag(t *testing.T) {
	t.Parallel()

	preds := []store.Predicate{
		{Kind: store.PredHasTag, Values: []any{"urgent"}},
		{Kind: store.PredHasTag, Values: []any{"home"}},
	}

	clause, args := renderPredicates(preds, 1)

	assert.Equal(t,
		"EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) t(tag) WHERE t.tag = $1)"+
			" AND EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) t(tag) WHERE t.tag = $2)",
		clause)
	assert.Equal(t, []any{"urgent", "home"}, args)
}

func TestRenderPredicatesOverdue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	preds := []store.Predicate{
		{Kind: store.PredOverdue, Column: "due_date", Values: []any{now, "completed", "archived"}},
	}

	clause, args := renderPredicates(preds, 2)

	assert.Equal(t, "(due_date < $2 AND status NOT IN ($3, $4))", clause)
	assert.Equal(t, []any{now, "completed", "archived"}, args)
}

func TestRenderPredicatesEmpty(t *testing.T) {
	t.Parallel()

	clause, args := renderPredicates(nil, 1)
	assert.Equal(t, "TRUE", clause)
	assert.Empty(t, args)
}

func TestRenderPredicatesNeverEmbedsValues(t *testing.T) {
	t.Parallel()

	// A hostile search term must appear in the args, never in the clause.
	hostile := "'; DROP TABLE tasks; --"
	preds := store.BuildPredicates(uuid.New(), store.FilterSpec{Search: hostile}, time.Now())

	clause, args := renderPredicates(preds, 1)

	assert.NotContains(t, clause, "DROP TABLE")
	found := false
	for _, a := range args {
		if s, ok := a.(string); ok && s == store.SearchPattern(hostile) {
			found = true
		}
	}
	assert.True(t, found, "escaped pattern should be bound as an argument")
}

func TestOrderByClause(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		sort store.SortSpec
		want string
	}{
		{
			"default",
			store.SortSpec{},
			"ORDER BY created_at DESC, id ASC",
		},
		{
			"due date ascending",
			store.SortSpec{Field: store.SortFieldDueDate, Direction: store.SortAsc},
			"ORDER BY due_date ASC, id ASC",
		},
		{
			"priority uses rank ordinals, not labels",
			store.SortSpec{Field: store.SortFieldPriority, Direction: store.SortAsc},
			"ORDER BY CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END ASC, id ASC",
		},
		{
			"unknown field falls back",
			store.SortSpec{Field: "evil; --", Direction: store.SortAsc},
			"ORDER BY created_at ASC, id ASC",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, orderByClause(tc.sort))
		})
	}
}
