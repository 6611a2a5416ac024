package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// Common request/response structures

// CreateTaskRequest defines the payload for the task creation endpoint.
type CreateTaskRequest struct {
	Title            string         `json:"title" validate:"required,max=255"`
	Description      string         `json:"description"`
	CategoryID       *uuid.UUID     `json:"category_id,omitempty"`
	Priority         string         `json:"priority,omitempty" validate:"omitempty,oneof=high medium low none"`
	Status           string         `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed archived"`
	DueDate          *time.Time     `json:"due_date,omitempty"`
	ReminderAt       *time.Time     `json:"reminder_at,omitempty"`
	StartDate        *time.Time     `json:"start_date,omitempty"`
	EstimatedMinutes *int           `json:"estimated_minutes,omitempty" validate:"omitempty,gte=0"`
	Tags             []string       `json:"tags,omitempty"`
	SortOrder        *int           `json:"sort_order,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// UpdateTaskRequest defines the payload for the partial task update
// endpoint. Absent fields are left unchanged; null-equivalent zero values
// clear optional fields.
type UpdateTaskRequest struct {
	Title            *string         `json:"title,omitempty" validate:"omitempty,max=255"`
	Description      *string         `json:"description,omitempty"`
	CategoryID       *uuid.UUID      `json:"category_id,omitempty"`
	Priority         *string         `json:"priority,omitempty" validate:"omitempty,oneof=high medium low none"`
	Status           *string         `json:"status,omitempty" validate:"omitempty,oneof=pending in_progress completed archived"`
	DueDate          *time.Time      `json:"due_date,omitempty"`
	ReminderAt       *time.Time      `json:"reminder_at,omitempty"`
	StartDate        *time.Time      `json:"start_date,omitempty"`
	EstimatedMinutes *int            `json:"estimated_minutes,omitempty" validate:"omitempty,gte=0"`
	ActualMinutes    *int            `json:"actual_minutes,omitempty" validate:"omitempty,gte=0"`
	Tags             *[]string       `json:"tags,omitempty"`
	SortOrder        *int            `json:"sort_order,omitempty"`
	Metadata         *map[string]any `json:"metadata,omitempty"`
}

// ToTaskUpdate converts the request into the domain's partial update form.
func (req *UpdateTaskRequest) ToTaskUpdate() *domain.TaskUpdate {
	upd := &domain.TaskUpdate{
		Title:            req.Title,
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		DueDate:          req.DueDate,
		ReminderAt:       req.ReminderAt,
		StartDate:        req.StartDate,
		EstimatedMinutes: req.EstimatedMinutes,
		ActualMinutes:    req.ActualMinutes,
		Tags:             req.Tags,
		SortOrder:        req.SortOrder,
		Metadata:         req.Metadata,
	}
	if req.Priority != nil {
		p := domain.TaskPriority(*req.Priority)
		upd.Priority = &p
	}
	if req.Status != nil {
		s := domain.TaskStatus(*req.Status)
		upd.Status = &s
	}
	return upd
}

// BulkUpdateRequest defines the payload for the bulk task update endpoint.
type BulkUpdateRequest struct {
	IDs    []uuid.UUID       `json:"ids" validate:"required,min=1,max=500"`
	Update UpdateTaskRequest `json:"update" validate:"required"`
}

// BulkDeleteRequest defines the payload for the bulk task delete endpoint.
type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=500"`
}

// ReorderRequest defines the payload for the manual reordering endpoint.
type ReorderRequest struct {
	Items []ReorderItemRequest `json:"items" validate:"required,min=1,max=500,dive"`
}

// ReorderItemRequest assigns one task its new position.
type ReorderItemRequest struct {
	ID        uuid.UUID `json:"id" validate:"required"`
	SortOrder int       `json:"sort_order"`
}

// CreateCategoryRequest defines the payload for the category creation endpoint.
type CreateCategoryRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// TaskListResponse is one page of tasks with pagination bookkeeping.
type TaskListResponse struct {
	Items       []*domain.Task `json:"items"`
	Total       int            `json:"total"`
	Limit       int            `json:"limit"`
	Offset      int            `json:"offset"`
	HasNext     bool           `json:"has_next"`
	HasPrevious bool           `json:"has_previous"`
}

// NewTaskListResponse converts a store page into the response form.
func NewTaskListResponse(page *store.PageResult[*domain.Task]) TaskListResponse {
	return TaskListResponse{
		Items:       page.Items,
		Total:       page.Total,
		Limit:       page.Limit,
		Offset:      page.Offset,
		HasNext:     page.HasNext(),
		HasPrevious: page.HasPrevious(),
	}
}
