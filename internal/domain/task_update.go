package domain

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskUpdate is a partial update of a task. A nil pointer means "leave the
// field unchanged"; a non-nil pointer carries the new value, which may be the
// zero value to clear an optional field.
//
// The completion fields are never supplied by callers directly. They are
// derived from the status transition by ResolveCompletion so that the
// completed_at/completed_by pair is stamped exactly once when a task moves
// into completed and cleared exactly once when it moves out.
type TaskUpdate struct {
	Title            *string
	Description      *string
	CategoryID       *uuid.UUID
	Priority         *TaskPriority
	Status           *TaskStatus
	DueDate          *time.Time
	ReminderAt       *time.Time
	StartDate        *time.Time
	EstimatedMinutes *int
	ActualMinutes    *int
	Tags             *[]string
	SortOrder        *int
	Metadata         *map[string]any

	// Completion bookkeeping, populated by ResolveCompletion.
	SetCompletedAt  *time.Time
	SetCompletedBy  *uuid.UUID
	ClearCompletion bool
}

// IsEmpty reports whether the update carries no field changes at all.
func (u *TaskUpdate) IsEmpty() bool {
	return u.Title == nil &&
		u.Description == nil &&
		u.CategoryID == nil &&
		u.Priority == nil &&
		u.Status == nil &&
		u.DueDate == nil &&
		u.ReminderAt == nil &&
		u.StartDate == nil &&
		u.EstimatedMinutes == nil &&
		u.ActualMinutes == nil &&
		u.Tags == nil &&
		u.SortOrder == nil &&
		u.Metadata == nil
}

// Validate checks the supplied fields against the same rules the Task entity
// enforces. Unsupplied fields are not checked.
func (u *TaskUpdate) Validate() error {
	if u.Title != nil {
		if *u.Title == "" {
			return ErrTaskTitleEmpty
		}
		if utf8.RuneCountInString(*u.Title) > MaxTitleLength {
			return ErrTaskTitleTooLong
		}
	}

	if u.Status != nil && !u.Status.IsValid() {
		return ErrInvalidTaskStatus
	}

	if u.Priority != nil && !u.Priority.IsValid() {
		return ErrInvalidTaskPriority
	}

	return nil
}

// ResolveCompletion derives the completion bookkeeping from the requested
// status change. Given the task's current status, it stamps the completion
// fields when the update moves the task into completed and marks them for
// clearing when it moves the task away from completed. A status change that
// does not cross the completed boundary, or an update with no status change,
// leaves the completion fields untouched.
func (u *TaskUpdate) ResolveCompletion(current TaskStatus, actor uuid.UUID, now time.Time) {
	if u.Status == nil {
		return
	}

	next := *u.Status
	switch {
	case next == TaskStatusCompleted && current != TaskStatusCompleted:
		completedAt := now.UTC()
		u.SetCompletedAt = &completedAt
		u.SetCompletedBy = &actor
		u.ClearCompletion = false
	case next != TaskStatusCompleted && current == TaskStatusCompleted:
		u.SetCompletedAt = nil
		u.SetCompletedBy = nil
		u.ClearCompletion = true
	}
}
