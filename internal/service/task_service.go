package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/taskforest/taskforest-api/internal/domain"
	"github.com/taskforest/taskforest-api/internal/platform/logger"
	"github.com/taskforest/taskforest-api/internal/store"
	"github.com/taskforest/taskforest-api/internal/tasktree"
)

// UpdateTaskPatch describes the fields a client may change on a task.
// Nil means the field was absent from the request. A present-but-empty string
// is deliberately treated the same as absent: it does NOT clear the field.
// Clients depend on this merge rule; do not replace it with explicit-null
// semantics.
type UpdateTaskPatch struct {
	Title       *string
	Description *string
	Status      *string
}

// TaskService provides task-related operations: creation with ownership
// checks, listing, partial updates, status transitions, and cascade deletion.
type TaskService interface {
	// CreateTask creates a new task owned by ownerID, optionally attached to
	// a parent task. Returns store.ErrUserNotFound if the owner does not
	// exist and store.ErrTaskNotFound if the parent does not exist.
	CreateTask(
		ctx context.Context,
		ownerID uuid.UUID,
		title string,
		description *string,
		parentTaskID *uuid.UUID,
	) (*domain.Task, error)

	// ListForOwner returns the owner's tasks with one level of subtasks
	// populated, optionally filtered by status.
	ListForOwner(ctx context.Context, ownerID uuid.UUID, status *domain.TaskStatus) ([]*domain.Task, error)

	// ListAllTrees returns every root task with its full recursively
	// expanded descendant tree, independent of ownership.
	ListAllTrees(ctx context.Context) ([]*domain.Task, error)

	// UpdateTask applies a partial update to the task.
	// Returns store.ErrTaskNotFound if the task does not exist and
	// domain.ErrInvalidTaskStatus if the patch carries an unknown status.
	UpdateTask(ctx context.Context, id uuid.UUID, patch UpdateTaskPatch) (*domain.Task, error)

	// MarkCompleted sets the task's status to completed. Idempotent.
	MarkCompleted(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// MarkPending sets the task's status to pending. Idempotent.
	MarkPending(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// DeleteTask deletes the task and, transitively, all its subtasks.
	DeleteTask(ctx context.Context, id uuid.UUID) error

	// FilterByStatus returns the owner's tasks with the given status, with
	// one level of subtasks populated.
	FilterByStatus(ctx context.Context, ownerID uuid.UUID, status domain.TaskStatus) ([]*domain.Task, error)
}

// taskService is the store-backed TaskService implementation.
type taskService struct {
	db        *sql.DB
	taskStore store.TaskStore
	userStore store.UserStore
	assembler tasktree.Assembler
	logger    *slog.Logger
}

// Ensure taskService implements TaskService interface
var _ TaskService = (*taskService)(nil)

// NewTaskService creates a new TaskService with the given dependencies.
// If logger is nil, a default logger will be used.
func NewTaskService(
	db *sql.DB,
	taskStore store.TaskStore,
	userStore store.UserStore,
	assembler tasktree.Assembler,
	logger *slog.Logger,
) TaskService {
	if db == nil {
		panic("db cannot be nil")
	}
	if taskStore == nil {
		panic("taskStore cannot be nil")
	}
	if userStore == nil {
		panic("userStore cannot be nil")
	}
	if assembler == nil {
		panic("assembler cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &taskService{
		db:        db,
		taskStore: taskStore,
		userStore: userStore,
		assembler: assembler,
		logger:    logger.With(slog.String("component", "task_service")),
	}
}

// CreateTask implements TaskService.CreateTask
// The owner lookup and the insert run in one transaction so the task cannot
// be attached to a user deleted between the two statements.
func (s *taskService) CreateTask(
	ctx context.Context,
	ownerID uuid.UUID,
	title string,
	description *string,
	parentTaskID *uuid.UUID,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var task *domain.Task
	err := store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		txUsers := s.userStore.WithTx(tx)
		txTasks := s.taskStore.WithTx(tx)

		// Resolve the owner first so a missing user is reported as such
		// rather than surfacing as a foreign key failure on insert.
		owner, err := txUsers.GetByID(ctx, ownerID)
		if err != nil {
			return err
		}

		created, err := domain.NewTask(owner.ID, title, description, parentTaskID)
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
		}

		if err := txTasks.Create(ctx, created); err != nil {
			return err
		}

		task = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", ownerID.String()))
	return task, nil
}

// ListForOwner implements TaskService.ListForOwner
// Only one level of subtasks is resolved on this path; the full recursive
// expansion is reserved for ListAllTrees.
func (s *taskService) ListForOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	status *domain.TaskStatus,
) ([]*domain.Task, error) {
	tasks, err := s.taskStore.FindByOwner(ctx, ownerID, status)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}

	if err := s.populateDirectSubtasks(ctx, tasks); err != nil {
		return nil, err
	}

	return tasks, nil
}

// ListAllTrees implements TaskService.ListAllTrees
func (s *taskService) ListAllTrees(ctx context.Context) ([]*domain.Task, error) {
	return s.assembler.ExpandForest(ctx)
}

// UpdateTask implements TaskService.UpdateTask
// The merge is falsy-skip: only fields that are present AND non-empty
// overwrite the stored value.
func (s *taskService) UpdateTask(
	ctx context.Context,
	id uuid.UUID,
	patch UpdateTaskPatch,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var update store.TaskUpdate

	if patch.Title != nil && *patch.Title != "" {
		update.Title = patch.Title
	}
	if patch.Description != nil && *patch.Description != "" {
		update.Description = patch.Description
	}
	if patch.Status != nil && *patch.Status != "" {
		status := domain.TaskStatus(*patch.Status)
		if !domain.IsValidTaskStatus(status) {
			return nil, domain.ErrInvalidTaskStatus
		}
		update.Status = &status
	}

	task, err := s.taskStore.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	log.Info("task updated", slog.String("task_id", id.String()))
	return task, nil
}

// MarkCompleted implements TaskService.MarkCompleted
func (s *taskService) MarkCompleted(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.taskStore.UpdateStatus(ctx, id, domain.TaskStatusCompleted)
}

// MarkPending implements TaskService.MarkPending
func (s *taskService) MarkPending(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return s.taskStore.UpdateStatus(ctx, id, domain.TaskStatusPending)
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskService) DeleteTask(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.taskStore.Delete(ctx, id); err != nil {
		return err
	}

	log.Info("task deleted", slog.String("task_id", id.String()))
	return nil
}

// FilterByStatus implements TaskService.FilterByStatus
func (s *taskService) FilterByStatus(
	ctx context.Context,
	ownerID uuid.UUID,
	status domain.TaskStatus,
) ([]*domain.Task, error) {
	if !domain.IsValidTaskStatus(status) {
		return nil, domain.ErrInvalidTaskStatus
	}

	return s.ListForOwner(ctx, ownerID, &status)
}

// populateDirectSubtasks fills each task's Subtasks slice with its direct
// children only (no recursion). Leaves get an empty slice, never nil, so
// they serialize as "subtasks": [].
func (s *taskService) populateDirectSubtasks(ctx context.Context, tasks []*domain.Task) error {
	for _, task := range tasks {
		children, err := s.taskStore.FindByParent(ctx, task.ID)
		if err != nil {
			return err
		}
		if children == nil {
			children = []*domain.Task{}
		}
		task.Subtasks = children
	}
	return nil
}
