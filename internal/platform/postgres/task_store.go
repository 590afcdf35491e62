package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/taskforest/taskforest-api/internal/domain"
	"github.com/taskforest/taskforest-api/internal/platform/logger"
	"github.com/taskforest/taskforest-api/internal/store"
)

// Foreign key constraint names from the tasks migration. Used to tell a
// missing owner apart from a missing parent task on insert.
const (
	tasksUserFKConstraint   = "tasks_user_id_fkey"
	tasksParentFKConstraint = "tasks_parent_task_id_fkey"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller. If logger is nil, a
// default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// Create implements store.TaskStore.Create
// It saves a new task to the database, handling domain validation.
// Returns store.ErrUserNotFound if the owner does not exist and
// store.ErrTaskNotFound if the referenced parent task does not exist
// (both detected via foreign key violations).
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, title, description, status, user_id, parent_task_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.UserID,
		task.ParentTaskID,
		task.CreatedAt,
		task.UpdatedAt,
	)

	if err != nil {
		switch {
		case isForeignKeyViolation(err, tasksUserFKConstraint):
			log.Warn("owner does not exist during task creation",
				slog.String("task_id", task.ID.String()),
				slog.String("user_id", task.UserID.String()))
			return store.ErrUserNotFound
		case isForeignKeyViolation(err, tasksParentFKConstraint):
			log.Warn("parent task does not exist during task creation",
				slog.String("task_id", task.ID.String()))
			return store.ErrTaskNotFound
		}

		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.String("user_id", task.UserID.String()))
		return err
	}

	log.Info("task created successfully",
		slog.String("task_id", task.ID.String()),
		slog.String("user_id", task.UserID.String()),
		slog.String("status", string(task.Status)))
	return nil
}

const taskColumns = `id, title, description, status, user_id, parent_task_id, created_at, updated_at`

// scanTask scans a single task row. The Subtasks slice is initialized empty;
// populating it is the tree assembler's job.
func scanTask(row interface{ Scan(dest ...any) error }) (*domain.Task, error) {
	var task domain.Task
	var description sql.NullString
	var parentTaskID uuid.NullUUID
	var status string

	err := row.Scan(
		&task.ID,
		&task.Title,
		&description,
		&status,
		&task.UserID,
		&parentTaskID,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.Subtasks = []*domain.Task{}
	if description.Valid {
		task.Description = &description.String
	}
	if parentTaskID.Valid {
		id := parentTaskID.UUID
		task.ParentTaskID = &id
	}

	return &task, nil
}

// collectTasks drains rows into a task slice.
func collectTasks(rows *sql.Rows) ([]*domain.Task, error) {
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tasks, nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, err
	}

	return task, nil
}

// FindRoots implements store.TaskStore.FindRoots
// It returns all tasks with no parent, in insertion order.
func (s *PostgresTaskStore) FindRoots(ctx context.Context) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE parent_task_id IS NULL ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		log.Error("failed to query root tasks", slog.String("error", err.Error()))
		return nil, err
	}

	return collectTasks(rows)
}

// FindByOwner implements store.TaskStore.FindByOwner
// It returns the owner's tasks in insertion order, optionally filtered by status.
func (s *PostgresTaskStore) FindByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	status *domain.TaskStatus,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var rows *sql.Rows
	var err error
	if status != nil {
		query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 AND status = $2 ORDER BY created_at ASC`
		rows, err = s.db.QueryContext(ctx, query, ownerID, *status)
	} else {
		query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1 ORDER BY created_at ASC`
		rows, err = s.db.QueryContext(ctx, query, ownerID)
	}

	if err != nil {
		log.Error("failed to query tasks by owner",
			slog.String("error", err.Error()),
			slog.String("user_id", ownerID.String()))
		return nil, err
	}

	return collectTasks(rows)
}

// FindByParent implements store.TaskStore.FindByParent
// It returns the direct children of the given task, in insertion order.
func (s *PostgresTaskStore) FindByParent(ctx context.Context, parentID uuid.UUID) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE parent_task_id = $1 ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, parentID)
	if err != nil {
		log.Error("failed to query tasks by parent",
			slog.String("error", err.Error()),
			slog.String("parent_task_id", parentID.String()))
		return nil, err
	}

	return collectTasks(rows)
}

// Update implements store.TaskStore.Update
// It applies the non-nil fields of the update and returns the updated task.
// The merge policy for present-but-empty values belongs to the service layer;
// the store writes whatever fields it is handed.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Update(
	ctx context.Context,
	id uuid.UUID,
	update store.TaskUpdate,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = update.Description
	}
	if update.Status != nil {
		task.Status = *update.Status
	}
	task.UpdatedAt = time.Now().UTC()

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, status = $3, updated_at = $4
		WHERE id = $5
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		task.Title,
		task.Description,
		task.Status,
		task.UpdatedAt,
		id,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, err
	}
	if rowsAffected == 0 {
		// The task was deleted between the read and the write.
		log.Debug("task not found during update", slog.String("task_id", id.String()))
		return nil, store.ErrTaskNotFound
	}

	log.Info("task updated successfully", slog.String("task_id", id.String()))
	return task, nil
}

// UpdateStatus implements store.TaskStore.UpdateStatus
// It sets the task's status unconditionally and returns the updated task.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !domain.IsValidTaskStatus(status) {
		return nil, domain.ErrInvalidTaskStatus
	}

	updatedAt := time.Now().UTC()

	query := `
		UPDATE tasks
		SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING ` + taskColumns

	task, err := scanTask(s.db.QueryRowContext(ctx, query, status, updatedAt, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task not found during status update",
				slog.String("task_id", id.String()))
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to update task status",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()),
			slog.String("status", string(status)))
		return nil, err
	}

	log.Info("task status updated",
		slog.String("task_id", id.String()),
		slog.String("status", string(status)))
	return task, nil
}

// Delete implements store.TaskStore.Delete
// The ON DELETE CASCADE constraint on parent_task_id removes all transitive
// descendants along with the task itself.
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `DELETE FROM tasks WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return err
	}
	if rowsAffected == 0 {
		log.Debug("task not found during delete", slog.String("task_id", id.String()))
		return store.ErrTaskNotFound
	}

	log.Info("task deleted successfully", slog.String("task_id", id.String()))
	return nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}
