package api

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/taskforest/taskforest-api/internal/api/middleware"
	"github.com/taskforest/taskforest-api/internal/api/shared"
	"github.com/taskforest/taskforest-api/internal/domain"
	"github.com/taskforest/taskforest-api/internal/platform/logger"
	"github.com/taskforest/taskforest-api/internal/redact"
	"github.com/taskforest/taskforest-api/internal/service"
)

// TaskHandler handles task-related HTTP requests.
type TaskHandler struct {
	taskService service.TaskService
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService service.TaskService, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &TaskHandler{
		taskService: taskService,
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// requireUserID extracts the authenticated user's ID from the request
// context, responding 401 if it is absent.
func (h *TaskHandler) requireUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(r)
	if !ok || userID == uuid.Nil {
		h.logger.Warn("user ID not found or invalid in request context")
		shared.RespondWithError(w, r, http.StatusUnauthorized, "User ID not found or invalid")
		return uuid.Nil, false
	}
	return userID, true
}

// taskIDFromPath parses the {id} path parameter, responding 400 on failure.
func (h *TaskHandler) taskIDFromPath(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	pathID := chi.URLParam(r, "id")
	id, err := uuid.Parse(pathID)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", domain.ErrInvalidID, err)
		shared.RespondWithError(w, r, MapErrorToStatusCode(wrapped), "Invalid task ID")
		return uuid.Nil, false
	}
	return id, true
}

// statusFromQuery parses the optional status query parameter.
// Returns nil when the parameter is absent. Responds 400 and returns
// ok=false for an unknown status value.
func (h *TaskHandler) statusFromQuery(
	w http.ResponseWriter,
	r *http.Request,
) (*domain.TaskStatus, bool) {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil, true
	}

	status := domain.TaskStatus(raw)
	if !domain.IsValidTaskStatus(status) {
		shared.RespondWithError(w, r, http.StatusBadRequest, `Status must be "completed" or "pending"`)
		return nil, false
	}
	return &status, true
}

// respondServiceError maps a service error to an HTTP response.
func (h *TaskHandler) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}

// CreateTask handles POST /task requests.
// It creates a task owned by the authenticated user, optionally attached to
// a parent task.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		log.Warn("invalid request format", slog.String("error", redact.Error(err)))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.Validate.Struct(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	var parentTaskID *uuid.UUID
	if req.ParentTaskID != nil && *req.ParentTaskID != "" {
		parsed, err := uuid.Parse(*req.ParentTaskID)
		if err != nil {
			wrapped := fmt.Errorf("%w: %v", domain.ErrInvalidID, err)
			shared.RespondWithError(w, r, MapErrorToStatusCode(wrapped), "Invalid parent task ID")
			return
		}
		parentTaskID = &parsed
	}

	task, err := h.taskService.CreateTask(r.Context(), userID, req.Title, req.Description, parentTaskID)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", userID.String()))
	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

// ListTasks handles GET /task requests.
// It returns the authenticated user's tasks with one level of subtasks,
// optionally filtered by the status query parameter.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	status, ok := h.statusFromQuery(w, r)
	if !ok {
		return
	}

	tasks, err := h.taskService.ListForOwner(r.Context(), userID, status)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}

// ListTaskTrees handles GET /task/tree requests.
// It returns every root task with its fully expanded subtask tree.
func (h *TaskHandler) ListTaskTrees(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUserID(w, r); !ok {
		return
	}

	forest, err := h.taskService.ListAllTrees(r.Context())
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, forest)
}

// UpdateTask handles PUT /task/{id} requests.
// Only supplied, non-empty fields overwrite the stored values.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.requireUserID(w, r); !ok {
		return
	}

	id, ok := h.taskIDFromPath(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), id, service.UpdateTaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// DeleteTask handles DELETE /task/{id} requests.
// Deletion cascades to all transitive subtasks.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	if _, ok := h.requireUserID(w, r); !ok {
		return
	}

	id, ok := h.taskIDFromPath(w, r)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), id); err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	log.Debug("task deleted", slog.String("task_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// MarkCompleted handles PATCH /task/{id}/complete requests.
func (h *TaskHandler) MarkCompleted(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.TaskStatusCompleted)
}

// MarkPending handles PATCH /task/{id}/pending requests.
func (h *TaskHandler) MarkPending(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.TaskStatusPending)
}

// setStatus is the shared implementation of the two status-transition
// endpoints. The transition is unconditional: re-marking a task with its
// current status succeeds and changes nothing.
func (h *TaskHandler) setStatus(w http.ResponseWriter, r *http.Request, status domain.TaskStatus) {
	if _, ok := h.requireUserID(w, r); !ok {
		return
	}

	id, ok := h.taskIDFromPath(w, r)
	if !ok {
		return
	}

	var task *domain.Task
	var err error
	if status == domain.TaskStatusCompleted {
		task, err = h.taskService.MarkCompleted(r.Context(), id)
	} else {
		task, err = h.taskService.MarkPending(r.Context(), id)
	}
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// FilterByStatus handles GET /task/status requests.
// Unlike ListTasks, the status query parameter is required here.
func (h *TaskHandler) FilterByStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.requireUserID(w, r)
	if !ok {
		return
	}

	raw := r.URL.Query().Get("status")
	if raw == "" {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Status is required")
		return
	}

	status := domain.TaskStatus(raw)
	if !domain.IsValidTaskStatus(status) {
		shared.RespondWithError(w, r, http.StatusBadRequest, `Status must be "completed" or "pending"`)
		return
	}

	tasks, err := h.taskService.FilterByStatus(r.Context(), userID, status)
	if err != nil {
		h.respondServiceError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, tasks)
}
