package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the completion state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
)

// Common validation errors for Task
var (
	ErrEmptyTaskID     = errors.New("task ID cannot be empty")
	ErrEmptyTaskUserID = errors.New("task user ID cannot be empty")
	ErrEmptyTaskTitle  = errors.New("task title cannot be empty")
	ErrTaskOwnParent   = errors.New("task cannot be its own parent")
)

// Task represents a unit of work owned by a user. Tasks form a forest:
// a task may reference another task as its parent, and the set of tasks
// referencing it back are its subtasks.
type Task struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	Description  *string    `json:"description,omitempty"`
	Status       TaskStatus `json:"status"`
	UserID       uuid.UUID  `json:"user_id"`
	ParentTaskID *uuid.UUID `json:"parent_task_id,omitempty"`
	Subtasks     []*Task    `json:"subtasks"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// NewTask creates a new Task with the given owner, title, optional description,
// and optional parent task. It generates a new UUID for the task ID, sets the
// status to pending, and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTask(userID uuid.UUID, title string, description *string, parentTaskID *uuid.UUID) (*Task, error) {
	task := &Task{
		ID:           uuid.New(),
		Title:        title,
		Description:  description,
		Status:       TaskStatusPending,
		UserID:       userID,
		ParentTaskID: parentTaskID,
		Subtasks:     []*Task{},
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
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
		return ErrEmptyTaskID
	}

	if t.UserID == uuid.Nil {
		return ErrEmptyTaskUserID
	}

	if t.Title == "" {
		return ErrEmptyTaskTitle
	}

	if !IsValidTaskStatus(t.Status) {
		return ErrInvalidTaskStatus
	}

	if t.ParentTaskID != nil && *t.ParentTaskID == t.ID {
		return ErrTaskOwnParent
	}

	return nil
}

// SetStatus updates the task's status and the UpdatedAt timestamp.
// Returns an error if the new status is invalid.
func (t *Task) SetStatus(status TaskStatus) error {
	if !IsValidTaskStatus(status) {
		return ErrInvalidTaskStatus
	}

	t.Status = status
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// IsValidTaskStatus checks if the given status is a valid TaskStatus.
func IsValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusCompleted:
		return true
	default:
		return false
	}
}
