package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/api/shared"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
	"github.com/phrazzld/taskdeck-api/internal/service"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}

	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// CreateTask handles POST /tasks requests.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), userID, service.CreateTaskInput{
		Title:            req.Title,
		Description:      req.Description,
		CategoryID:       req.CategoryID,
		Priority:         domain.TaskPriority(req.Priority),
		Status:           domain.TaskStatus(req.Status),
		DueDate:          req.DueDate,
		ReminderAt:       req.ReminderAt,
		StartDate:        req.StartDate,
		EstimatedMinutes: req.EstimatedMinutes,
		Tags:             req.Tags,
		SortOrder:        req.SortOrder,
		Metadata:         req.Metadata,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

// GetTask handles GET /tasks/{id} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	task, err := h.taskService.FindByID(r.Context(), taskID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// ListTasks handles GET /tasks requests. Filters, sorting, and pagination
// all arrive as query parameters; unrecognized sort fields fall back to
// creation order rather than failing the request.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	filter, err := parseFilterSpec(r.URL.Query())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	page, err := h.taskService.List(r.Context(), userID, filter,
		parseSortSpec(r.URL.Query()), parsePagination(r.URL.Query()))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewTaskListResponse(page))
}

// SearchTasks handles GET /tasks/search requests.
func (h *TaskHandler) SearchTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Query parameter q is required")
		return
	}

	page, err := h.taskService.Search(r.Context(), userID, term,
		parseSortSpec(r.URL.Query()), parsePagination(r.URL.Query()))
	if err != nil {
		HandleAPIError(w, r, err, "Failed to search tasks")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, NewTaskListResponse(page))
}

// UpdateTask handles PATCH /tasks/{id} requests.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), taskID, userID, req.ToTaskUpdate())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// DeleteTask handles DELETE /tasks/{id} requests. The task is soft-deleted;
// the row remains recoverable.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), taskID, userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HardDeleteTask handles DELETE /tasks/{id}/permanent requests. The row is
// physically removed, soft-deleted or not.
func (h *TaskHandler) HardDeleteTask(w http.ResponseWriter, r *http.Request) {
	userID, taskID, ok := handleUserIDAndPathUUID(w, r, "id", h.logger)
	if !ok {
		return
	}

	if err := h.taskService.HardDeleteTask(r.Context(), taskID, userID); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BulkUpdateTasks handles POST /tasks/bulk-update requests. The response
// itemizes success and failure per requested id.
func (h *TaskHandler) BulkUpdateTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req BulkUpdateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.taskService.BulkUpdate(r.Context(), userID, req.IDs, req.Update.ToTaskUpdate())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// BulkDeleteTasks handles POST /tasks/bulk-delete requests.
func (h *TaskHandler) BulkDeleteTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req BulkDeleteRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.taskService.BulkDelete(r.Context(), userID, req.IDs)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, result)
}

// ReorderTasks handles POST /tasks/reorder requests.
func (h *TaskHandler) ReorderTasks(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	var req ReorderRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	items := make([]service.ReorderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = service.ReorderItem{ID: item.ID, SortOrder: item.SortOrder}
	}

	if err := h.taskService.Reorder(r.Context(), userID, items); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetStats handles GET /tasks/stats requests.
func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := getUserIDFromContext(r)
	if !ok {
		log.Warn("user ID not found or invalid in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "User ID not found or invalid")
		return
	}

	stats, err := h.taskService.GetStats(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to compute statistics")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, stats)
}

// parseFilterSpec maps listing query parameters onto a FilterSpec. Repeated
// status, priority, category, and tag parameters accumulate; timestamps are
// RFC 3339.
func parseFilterSpec(q url.Values) (store.FilterSpec, error) {
	filter := store.FilterSpec{
		Search: strings.TrimSpace(q.Get("search")),
	}

	for _, s := range q["status"] {
		status := domain.TaskStatus(s)
		if !status.IsValid() {
			return store.FilterSpec{}, domain.NewValidationError("status", "has invalid value", domain.ErrValidation)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, p := range q["priority"] {
		priority := domain.TaskPriority(p)
		if !priority.IsValid() {
			return store.FilterSpec{}, domain.NewValidationError("priority", "has invalid value", domain.ErrValidation)
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	for _, c := range q["category"] {
		id, err := uuid.Parse(c)
		if err != nil {
			return store.FilterSpec{}, domain.NewValidationError("category", "has invalid format", domain.ErrInvalidID)
		}
		filter.Categories = append(filter.Categories, id)
	}
	filter.Tags = append(filter.Tags, q["tag"]...)

	timeParams := map[string]**time.Time{
		"due_after":        &filter.DueAfter,
		"due_before":       &filter.DueBefore,
		"created_after":    &filter.CreatedAfter,
		"created_before":   &filter.CreatedBefore,
		"completed_after":  &filter.CompletedAfter,
		"completed_before": &filter.CompletedBefore,
	}
	for name, dst := range timeParams {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return store.FilterSpec{}, domain.NewValidationError(name, "must be an RFC 3339 timestamp", domain.ErrValidation)
		}
		*dst = &t
	}

	boolParams := map[string]**bool{
		"has_due_date": &filter.HasDueDate,
		"has_category": &filter.HasCategory,
	}
	for name, dst := range boolParams {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return store.FilterSpec{}, domain.NewValidationError(name, "must be a boolean", domain.ErrValidation)
		}
		*dst = &v
	}

	filter.IsOverdue = q.Get("overdue") == "true"
	filter.IncludeArchived = q.Get("include_archived") == "true"

	return filter, nil
}

// parseSortSpec reads sort and order parameters. Validation happens in
// SortSpec.Resolve, which falls back rather than rejecting.
func parseSortSpec(q url.Values) store.SortSpec {
	return store.SortSpec{
		Field:     store.SortField(q.Get("sort")),
		Direction: store.SortDirection(q.Get("order")),
	}
}

// parsePagination reads page and limit parameters; Normalize clamps them.
func parsePagination(q url.Values) store.Pagination {
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	return store.Pagination{Page: page, Limit: limit}
}
