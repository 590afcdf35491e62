package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/taskforest/taskforest-api/internal/domain"
)

// TaskUpdate describes a partial update to a task. Nil fields are left
// unchanged; the merge rule for present-but-empty values is owned by the
// service layer.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
}

// TaskStore defines the interface for task data persistence, including the
// self-referencing parent/subtask relation.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns ErrUserNotFound if the owner does not exist.
	// Returns ErrTaskNotFound if a parent task ID is supplied but no such
	// task exists.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID. The returned task's Subtasks
	// slice is not populated; use FindByParent or the tree assembler.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// FindRoots returns all tasks with no parent, in insertion order.
	// These are the entry points for tree assembly.
	// The returned slice is non-nil even when no tasks match.
	FindRoots(ctx context.Context) ([]*domain.Task, error)

	// FindByOwner returns all tasks owned by the given user, in insertion
	// order, optionally filtered by status. Subtasks are not populated.
	// The returned slice is non-nil even when no tasks match.
	FindByOwner(ctx context.Context, ownerID uuid.UUID, status *domain.TaskStatus) ([]*domain.Task, error)

	// FindByParent returns the direct children of the given task, in
	// insertion order. Subtasks of the children are not populated.
	// The returned slice is non-nil even when no tasks match.
	FindByParent(ctx context.Context, parentID uuid.UUID) ([]*domain.Task, error)

	// Update applies a partial update to the task and returns the updated
	// task. Only non-nil fields of the update are applied. The owner and
	// parent references are immutable after creation.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, id uuid.UUID, update TaskUpdate) (*domain.Task, error)

	// UpdateStatus sets the task's status unconditionally and returns the
	// updated task. Setting the current status again is a no-op status-wise.
	// Returns ErrTaskNotFound if the task does not exist.
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.TaskStatus) (*domain.Task, error)

	// Delete removes the task. All tasks transitively referencing it as
	// parent are removed as well (cascade, enforced by the schema).
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
