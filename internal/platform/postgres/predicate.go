package postgres

import (
	"fmt"
	"strings"

	"github.com/phrazzld/taskdeck-api/internal/store"
)

// renderPredicates is the single boundary where the typed predicate list
// becomes query text. Every value is bound positionally starting at
// startIndex; the returned clause contains placeholders only, never literals
// from the predicate values. Column names come from the fixed set chosen by
// store.BuildPredicates, so they are safe to interpolate.
//
// Both the count query and the data query must be rendered from one call so
// their predicate/parameter sequences are identical.
func renderPredicates(preds []store.Predicate, startIndex int) (string, []any) {
	if len(preds) == 0 {
		return "TRUE", nil
	}

	clauses := make([]string, 0, len(preds))
	args := make([]any, 0, len(preds))
	idx := startIndex

	for _, p := range preds {
		switch p.Kind {
		case store.PredEq:
			clauses = append(clauses, fmt.Sprintf("%s = $%d", p.Column, idx))
			args = append(args, p.Values[0])
			idx++

		case store.PredNotEq:
			clauses = append(clauses, fmt.Sprintf("%s <> $%d", p.Column, idx))
			args = append(args, p.Values[0])
			idx++

		case store.PredIn:
			placeholders := make([]string, len(p.Values))
			for i, v := range p.Values {
				placeholders[i] = fmt.Sprintf("$%d", idx)
				args = append(args, v)
				idx++
			}
			clauses = append(clauses,
				fmt.Sprintf("%s IN (%s)", p.Column, strings.Join(placeholders, ", ")))

		case store.PredGte:
			clauses = append(clauses, fmt.Sprintf("%s >= $%d", p.Column, idx))
			args = append(args, p.Values[0])
			idx++

		case store.PredLte:
			clauses = append(clauses, fmt.Sprintf("%s <= $%d", p.Column, idx))
			args = append(args, p.Values[0])
			idx++

		case store.PredIsNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NULL", p.Column))

		case store.PredNotNull:
			clauses = append(clauses, fmt.Sprintf("%s IS NOT NULL", p.Column))

		case store.PredHasTag:
			clauses = append(clauses, fmt.Sprintf(
				"EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) t(tag) WHERE t.tag = $%d)",
				idx))
			args = append(args, p.Values[0])
			idx++

		case store.PredTextSearch:
			// A single bound pattern reused across the three match targets.
			clauses = append(clauses, fmt.Sprintf(
				"(title ILIKE $%d OR description ILIKE $%d OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) t(tag) WHERE t.tag ILIKE $%d))",
				idx, idx, idx))
			args = append(args, p.Values[0])
			idx++

		case store.PredOverdue:
			clauses = append(clauses, fmt.Sprintf(
				"(%s < $%d AND status NOT IN ($%d, $%d))",
				p.Column, idx, idx+1, idx+2))
			args = append(args, p.Values[0], p.Values[1], p.Values[2])
			idx += 3
		}
	}

	return strings.Join(clauses, " AND "), args
}

// orderByClause resolves a sort spec into an ORDER BY fragment. The field has
// already passed the allow-list in SortSpec.Resolve, and priority sorts by
// its explicit ordinal rather than lexically. A fixed id tie-break keeps
// pagination stable when the primary key compares equal across rows.
func orderByClause(sort store.SortSpec) string {
	resolved := sort.Resolve()

	direction := "DESC"
	if resolved.Direction == store.SortAsc {
		direction = "ASC"
	}

	column := string(resolved.Field)
	if resolved.Field == store.SortFieldPriority {
		column = "CASE priority WHEN 'high' THEN 1 WHEN 'medium' THEN 2 WHEN 'low' THEN 3 ELSE 4 END"
	}

	return fmt.Sprintf("ORDER BY %s %s, id ASC", column, direction)
}
