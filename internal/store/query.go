package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
)

// Pagination limits. Limit is clamped to MaxPageLimit on every read path so a
// caller can never request an unbounded page.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// FilterSpec describes which tasks a listing or search should include.
// The zero value selects every live task for the owner: soft-deleted tasks
// are excluded unless IncludeDeleted is set, and archived tasks are excluded
// unless IncludeArchived is set or an explicit status filter names them.
type FilterSpec struct {
	// Search is a free-text term matched case-insensitively against
	// title, description, and tags.
	Search string

	Statuses   []domain.TaskStatus
	Priorities []domain.TaskPriority
	Categories []uuid.UUID

	// Tags is an intersection filter: a task matches only if it carries
	// every listed tag.
	Tags []string

	DueAfter        *time.Time
	DueBefore       *time.Time
	CreatedAfter    *time.Time
	CreatedBefore   *time.Time
	CompletedAfter  *time.Time
	CompletedBefore *time.Time

	// Tri-state presence filters: nil applies no filter, true requires the
	// field to be present, false requires it to be absent.
	HasDueDate  *bool
	HasCategory *bool

	// IsOverdue restricts results to tasks whose due date has passed and
	// whose status is still actionable.
	IsOverdue bool

	IncludeArchived bool
	IncludeDeleted  bool
}

// SortDirection is the direction of a sort.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// SortField identifies a sortable column. Only fields in the allow-list below
// are ever passed through to the store; anything else falls back to
// SortFieldCreatedAt.
type SortField string

const (
	SortFieldCreatedAt SortField = "created_at"
	SortFieldUpdatedAt SortField = "updated_at"
	SortFieldDueDate   SortField = "due_date"
	SortFieldPriority  SortField = "priority"
	SortFieldStatus    SortField = "status"
	SortFieldTitle     SortField = "title"
	SortFieldSortOrder SortField = "sort_order"
)

var sortFieldAllowList = map[SortField]bool{
	SortFieldCreatedAt: true,
	SortFieldUpdatedAt: true,
	SortFieldDueDate:   true,
	SortFieldPriority:  true,
	SortFieldStatus:    true,
	SortFieldTitle:     true,
	SortFieldSortOrder: true,
}

// SortSpec describes the requested ordering of a listing.
type SortSpec struct {
	Field     SortField
	Direction SortDirection
}

// Resolve maps the sort request onto the allow-list. An unrecognized field resolves
// to created_at rather than being passed through, and an unrecognized
// direction resolves to descending.
func (s SortSpec) Resolve() SortSpec {
	resolved := SortSpec{Field: SortFieldCreatedAt, Direction: SortDesc}
	if sortFieldAllowList[SortField(strings.ToLower(string(s.Field)))] {
		resolved.Field = SortField(strings.ToLower(string(s.Field)))
	}
	if strings.EqualFold(string(s.Direction), string(SortAsc)) {
		resolved.Direction = SortAsc
	}
	return resolved
}

// Pagination is a 1-based page request.
type Pagination struct {
	Page  int
	Limit int
}

// Normalize clamps the request to sane bounds and returns the effective
// limit and offset. Page defaults to 1 and Limit to DefaultPageLimit; Limit
// never exceeds MaxPageLimit.
func (p Pagination) Normalize() (limit, offset int) {
	page := p.Page
	if page < 1 {
		page = 1
	}
	limit = p.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return limit, (page - 1) * limit
}

// PageResult is one bounded slice of a filtered, sorted result set together
// with the total count over the same predicate sequence.
type PageResult[T any] struct {
	Items  []T `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// HasNext reports whether another page exists after this one.
func (p PageResult[T]) HasNext() bool {
	return p.Offset+p.Limit < p.Total
}

// HasPrevious reports whether a page exists before this one.
func (p PageResult[T]) HasPrevious() bool {
	return p.Offset > 0
}
