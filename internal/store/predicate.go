package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
)

// PredicateKind discriminates the predicate variants the boundary renderer
// understands. Predicates are data, not query text: no caller-supplied value
// ever appears anywhere but in Values, where it is bound positionally.
type PredicateKind string

const (
	// PredEq matches Column = value.
	PredEq PredicateKind = "eq"

	// PredNotEq matches Column <> value.
	PredNotEq PredicateKind = "not_eq"

	// PredIn matches Column IN (values...). Values must be non-empty.
	PredIn PredicateKind = "in"

	// PredGte matches Column >= value (inclusive range lower bound).
	PredGte PredicateKind = "gte"

	// PredLte matches Column <= value (inclusive range upper bound).
	PredLte PredicateKind = "lte"

	// PredIsNull matches Column IS NULL. Carries no values.
	PredIsNull PredicateKind = "is_null"

	// PredNotNull matches Column IS NOT NULL. Carries no values.
	PredNotNull PredicateKind = "not_null"

	// PredHasTag matches tasks whose tag set contains the value.
	// Column is unused; the renderer targets the tags document.
	PredHasTag PredicateKind = "has_tag"

	// PredTextSearch matches the value case-insensitively against title,
	// description, and tags. Carries a single pre-escaped pattern value.
	PredTextSearch PredicateKind = "text_search"

	// PredOverdue matches tasks whose due date precedes the first value and
	// whose status is in neither of the two trailing status values.
	PredOverdue PredicateKind = "overdue"
)

// Predicate is one compiled filter condition. Column is always one of the
// fixed task column names chosen by the builder, never caller input.
type Predicate struct {
	Kind   PredicateKind
	Column string
	Values []any
}

// BuildPredicates compiles a FilterSpec into the ordered predicate list for
// one owner. The same list backs both the count query and the data query, so
// their parameter sequences can never diverge.
//
// The owner predicate always comes first. Soft-deleted rows are excluded
// unless the filter says otherwise, and archived tasks are excluded from
// default listings unless IncludeArchived is set or an explicit status
// filter is present.
func BuildPredicates(ownerID uuid.UUID, f FilterSpec, now time.Time) []Predicate {
	preds := []Predicate{
		{Kind: PredEq, Column: "user_id", Values: []any{ownerID}},
	}

	if !f.IncludeDeleted {
		preds = append(preds, Predicate{Kind: PredIsNull, Column: "deleted_at"})
	}

	if len(f.Statuses) > 0 {
		values := make([]any, len(f.Statuses))
		for i, s := range f.Statuses {
			values[i] = string(s)
		}
		preds = append(preds, Predicate{Kind: PredIn, Column: "status", Values: values})
	} else if !f.IncludeArchived {
		preds = append(preds, Predicate{
			Kind:   PredNotEq,
			Column: "status",
			Values: []any{string(domain.TaskStatusArchived)},
		})
	}

	if len(f.Priorities) > 0 {
		values := make([]any, len(f.Priorities))
		for i, p := range f.Priorities {
			values[i] = string(p)
		}
		preds = append(preds, Predicate{Kind: PredIn, Column: "priority", Values: values})
	}

	if len(f.Categories) > 0 {
		values := make([]any, len(f.Categories))
		for i, c := range f.Categories {
			values[i] = c
		}
		preds = append(preds, Predicate{Kind: PredIn, Column: "category_id", Values: values})
	}

	// Tag intersection: one predicate per required tag.
	for _, tag := range f.Tags {
		preds = append(preds, Predicate{Kind: PredHasTag, Values: []any{tag}})
	}

	if f.DueAfter != nil {
		preds = append(preds, Predicate{Kind: PredGte, Column: "due_date", Values: []any{*f.DueAfter}})
	}
	if f.DueBefore != nil {
		preds = append(preds, Predicate{Kind: PredLte, Column: "due_date", Values: []any{*f.DueBefore}})
	}
	if f.CreatedAfter != nil {
		preds = append(preds, Predicate{Kind: PredGte, Column: "created_at", Values: []any{*f.CreatedAfter}})
	}
	if f.CreatedBefore != nil {
		preds = append(preds, Predicate{Kind: PredLte, Column: "created_at", Values: []any{*f.CreatedBefore}})
	}
	if f.CompletedAfter != nil {
		preds = append(preds, Predicate{Kind: PredGte, Column: "completed_at", Values: []any{*f.CompletedAfter}})
	}
	if f.CompletedBefore != nil {
		preds = append(preds, Predicate{Kind: PredLte, Column: "completed_at", Values: []any{*f.CompletedBefore}})
	}

	if f.HasDueDate != nil {
		if *f.HasDueDate {
			preds = append(preds, Predicate{Kind: PredNotNull, Column: "due_date"})
		} else {
			preds = append(preds, Predicate{Kind: PredIsNull, Column: "due_date"})
		}
	}
	if f.HasCategory != nil {
		if *f.HasCategory {
			preds = append(preds, Predicate{Kind: PredNotNull, Column: "category_id"})
		} else {
			preds = append(preds, Predicate{Kind: PredIsNull, Column: "category_id"})
		}
	}

	if f.IsOverdue {
		preds = append(preds, Predicate{
			Kind:   PredOverdue,
			Column: "due_date",
			Values: []any{
				now.UTC(),
				string(domain.TaskStatusCompleted),
				string(domain.TaskStatusArchived),
			},
		})
	}

	if f.Search != "" {
		preds = append(preds, Predicate{
			Kind:   PredTextSearch,
			Values: []any{SearchPattern(f.Search)},
		})
	}

	return preds
}

// SearchPattern turns a raw search term into an ILIKE pattern, escaping the
// wildcard characters so the term matches literally.
func SearchPattern(term string) string {
	escaped := make([]rune, 0, len(term)+2)
	for _, r := range term {
		if r == '%' || r == '_' || r == '\\' {
			escaped = append(escaped, '\\')
		}
		escaped = append(escaped, r)
	}
	return "%" + string(escaped) + "%"
}
