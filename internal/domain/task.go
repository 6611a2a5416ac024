package domain

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskUserIDEmpty is returned when a task's user ID is empty or nil.
	ErrTaskUserIDEmpty = errors.New("task user ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task's title is empty.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskTitleTooLong is returned when a task's title exceeds MaxTitleLength.
	ErrTaskTitleTooLong = errors.New("task title exceeds maximum length")

	// ErrInvalidTaskStatus is returned when a task status is not one of the
	// recognized status values.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrInvalidTaskPriority is returned when a task priority is not one of
	// the recognized priority values.
	ErrInvalidTaskPriority = errors.New("invalid task priority")
)

// MaxTitleLength is the maximum number of characters allowed in a task title.
const MaxTitleLength = 255

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusArchived   TaskStatus = "archived"
)

// IsValid checks if the status is one of the recognized values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted, TaskStatusArchived:
		return true
	}
	return false
}

// TaskPriority represents the urgency of a task.
type TaskPriority string

const (
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityNone   TaskPriority = "none"
)

// IsValid checks if the priority is one of the recognized values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityHigh, TaskPriorityMedium, TaskPriorityLow, TaskPriorityNone:
		return true
	}
	return false
}

// Rank returns the sort ordinal for the priority. Sorting by priority uses
// this mapping (high first), never the lexical order of the labels.
func (p TaskPriority) Rank() int {
	switch p {
	case TaskPriorityHigh:
		return 1
	case TaskPriorityMedium:
		return 2
	case TaskPriorityLow:
		return 3
	default:
		return 4
	}
}

// Task represents a single tracked task owned by a user.
// Tags are stored as a text array and Metadata as a JSONB document; both are
// decoded at the store boundary so the rest of the system never sees raw rows.
type Task struct {
	ID               uuid.UUID      `json:"id"`
	UserID           uuid.UUID      `json:"user_id"`
	Title            string         `json:"title"`
	Description      string         `json:"description,omitempty"`
	CategoryID       *uuid.UUID     `json:"category_id,omitempty"`
	Priority         TaskPriority   `json:"priority"`
	Status           TaskStatus     `json:"status"`
	DueDate          *time.Time     `json:"due_date,omitempty"`
	ReminderAt       *time.Time     `json:"reminder_at,omitempty"`
	StartDate        *time.Time     `json:"start_date,omitempty"`
	EstimatedMinutes *int           `json:"estimated_minutes,omitempty"`
	ActualMinutes    *int           `json:"actual_minutes,omitempty"`
	CompletedAt      *time.Time     `json:"completed_at,omitempty"`
	CompletedBy      *uuid.UUID     `json:"completed_by,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	SortOrder        int            `json:"sort_order"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        *time.Time     `json:"deleted_at,omitempty"`
}

// NewTask creates a new Task with the given owner and title.
// It generates a new UUID, defaults status to pending and priority to none,
// and sets the creation/update timestamps. Returns an error if validation fails.
func NewTask(userID uuid.UUID, title string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Priority:  TaskPriorityNone,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.UserID == uuid.Nil {
		return ErrTaskUserIDEmpty
	}

	if t.Title == "" {
		return ErrTaskTitleEmpty
	}

	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return ErrTaskTitleTooLong
	}

	if !t.Status.IsValid() {
		return ErrInvalidTaskStatus
	}

	if !t.Priority.IsValid() {
		return ErrInvalidTaskPriority
	}

	return nil
}

// IsDeleted reports whether the task carries a soft-delete marker.
func (t *Task) IsDeleted() bool {
	return t.DeletedAt != nil
}

// IsOverdue reports whether the task's due date has passed while the task is
// still actionable. Completed and archived tasks are never overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == TaskStatusCompleted || t.Status == TaskStatusArchived {
		return false
	}
	return t.DueDate.Before(now)
}
