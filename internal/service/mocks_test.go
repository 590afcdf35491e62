package service

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/taskforest/taskforest-api/internal/domain"
	"github.com/taskforest/taskforest-api/internal/store"
)

// mockUserStore is an in-memory UserStore keyed by user ID.
type mockUserStore struct {
	users  map[uuid.UUID]*domain.User
	getErr error
}

var _ store.UserStore = (*mockUserStore)(nil)

func newMockUserStore(users ...*domain.User) *mockUserStore {
	m := &mockUserStore{users: map[uuid.UUID]*domain.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	user, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *mockUserStore) Update(ctx context.Context, user *domain.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

// mockTaskStore is an in-memory TaskStore that preserves insertion order and
// applies the nil-field merge rule of store.TaskUpdate.
type mockTaskStore struct {
	tasks     []*domain.Task
	createErr error
	updateErr error
}

var _ store.TaskStore = (*mockTaskStore)(nil)

func (m *mockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if m.createErr != nil {
		return m.createErr
	}
	if task.ParentTaskID != nil {
		if _, err := m.GetByID(ctx, *task.ParentTaskID); err != nil {
			return store.ErrTaskNotFound
		}
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *mockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	for _, task := range m.tasks {
		if task.ID == id {
			return task, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (m *mockTaskStore) FindRoots(ctx context.Context) ([]*domain.Task, error) {
	roots := []*domain.Task{}
	for _, task := range m.tasks {
		if task.ParentTaskID == nil {
			roots = append(roots, task)
		}
	}
	return roots, nil
}

func (m *mockTaskStore) FindByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	status *domain.TaskStatus,
) ([]*domain.Task, error) {
	out := []*domain.Task{}
	for _, task := range m.tasks {
		if task.UserID != ownerID {
			continue
		}
		if status != nil && task.Status != *status {
			continue
		}
		out = append(out, task)
	}
	return out, nil
}

func (m *mockTaskStore) FindByParent(ctx context.Context, parentID uuid.UUID) ([]*domain.Task, error) {
	children := []*domain.Task{}
	for _, task := range m.tasks {
		if task.ParentTaskID != nil && *task.ParentTaskID == parentID {
			children = append(children, task)
		}
	}
	return children, nil
}

func (m *mockTaskStore) Update(
	ctx context.Context,
	id uuid.UUID,
	update store.TaskUpdate,
) (*domain.Task, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	task, err := m.GetByID(ctx, id)
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
	return task, nil
}

func (m *mockTaskStore) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
) (*domain.Task, error) {
	task, err := m.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	task.Status = status
	return task, nil
}

func (m *mockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	idx := -1
	for i, task := range m.tasks {
		if task.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return store.ErrTaskNotFound
	}
	m.tasks = append(m.tasks[:idx], m.tasks[idx+1:]...)

	// Cascade to descendants, as the schema would.
	for {
		removed := false
		for i, task := range m.tasks {
			if task.ParentTaskID == nil {
				continue
			}
			if _, err := m.GetByID(ctx, *task.ParentTaskID); err != nil {
				m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			return nil
		}
	}
}

func (m *mockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}
