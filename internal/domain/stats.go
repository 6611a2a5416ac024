package domain

import "github.com/google/uuid"

// CategoryCount is one per-category slot in a stats summary. Categories with
// no tasks are included with a zero count.
type CategoryCount struct {
	CategoryID uuid.UUID `json:"category_id"`
	Name       string    `json:"name"`
	Count      int       `json:"count"`
}

// StatsSummary is the per-owner aggregate view produced by the stats store.
// AvgCompletionMinutes is nil when the owner has no completed tasks with
// both timestamps recorded.
type StatsSummary struct {
	Total                int                  `json:"total"`
	ByStatus             map[TaskStatus]int   `json:"tasks_by_status"`
	ByPriority           map[TaskPriority]int `json:"tasks_by_priority"`
	Overdue              int                  `json:"overdue"`
	DueWithinWeek        int                  `json:"due_within_week"`
	AvgCompletionMinutes *float64             `json:"avg_completion_minutes,omitempty"`
	ByCategory           []CategoryCount      `json:"tasks_by_category"`
}
