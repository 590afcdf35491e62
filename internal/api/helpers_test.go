package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskforest/taskforest-api/internal/api/middleware"
	"github.com/taskforest/taskforest-api/internal/api/shared"
	"github.com/taskforest/taskforest-api/internal/config"
	"github.com/taskforest/taskforest-api/internal/domain"
	"github.com/taskforest/taskforest-api/internal/service"
	"github.com/taskforest/taskforest-api/internal/service/auth"
	"github.com/taskforest/taskforest-api/internal/store"
	"github.com/taskforest/taskforest-api/internal/tasktree"
	"github.com/taskforest/taskforest-api/internal/testdb"
)

// memUserStore is an in-memory UserStore that hashes passwords the way the
// real store does.
type memUserStore struct {
	users  map[uuid.UUID]*domain.User
	hasher auth.PasswordHasher
}

var _ store.UserStore = (*memUserStore)(nil)

func newMemUserStore() *memUserStore {
	return &memUserStore{
		users:  map[uuid.UUID]*domain.User{},
		hasher: auth.NewBcryptHasher(bcrypt.MinCost),
	}
}

func (m *memUserStore) Create(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	digest, err := m.hasher.Hash(user.Password)
	if err != nil {
		return err
	}
	user.HashedPassword = digest
	user.Password = ""
	m.users[user.ID] = user
	return nil
}

func (m *memUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (m *memUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (m *memUserStore) Update(ctx context.Context, user *domain.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return store.ErrUserNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *memUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

// memTaskStore is an in-memory TaskStore preserving insertion order, with
// parent FK checks and cascade delete matching the schema.
type memTaskStore struct {
	tasks []*domain.Task
}

var _ store.TaskStore = (*memTaskStore)(nil)

func (m *memTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return err
	}
	if task.ParentTaskID != nil {
		if _, err := m.GetByID(ctx, *task.ParentTaskID); err != nil {
			return store.ErrTaskNotFound
		}
	}
	m.tasks = append(m.tasks, task)
	return nil
}

func (m *memTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	for _, task := range m.tasks {
		if task.ID == id {
			return task, nil
		}
	}
	return nil, store.ErrTaskNotFound
}

func (m *memTaskStore) FindRoots(ctx context.Context) ([]*domain.Task, error) {
	roots := []*domain.Task{}
	for _, task := range m.tasks {
		if task.ParentTaskID == nil {
			roots = append(roots, task)
		}
	}
	return roots, nil
}

func (m *memTaskStore) FindByOwner(
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

func (m *memTaskStore) FindByParent(ctx context.Context, parentID uuid.UUID) ([]*domain.Task, error) {
	children := []*domain.Task{}
	for _, task := range m.tasks {
		if task.ParentTaskID != nil && *task.ParentTaskID == parentID {
			children = append(children, task)
		}
	}
	return children, nil
}

func (m *memTaskStore) Update(
	ctx context.Context,
	id uuid.UUID,
	update store.TaskUpdate,
) (*domain.Task, error) {
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

func (m *memTaskStore) UpdateStatus(
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

func (m *memTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
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

func (m *memTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}

// testServer bundles the wired router with direct store access for seeding
// and inspection.
type testServer struct {
	router     http.Handler
	userStore  *memUserStore
	taskStore  *memTaskStore
	jwtService auth.JWTService
}

// newTestServer wires the handlers, middleware, and in-memory stores into a
// router with the production route layout.
func newTestServer(t *testing.T) *testServer {
	t.Helper()

	userStore := newMemUserStore()
	taskStore := &memTaskStore{}

	jwtService, err := auth.NewJWTService(config.AuthConfig{
		JWTSecret:            "test-secret-key-thats-long-enough-for-hmac",
		TokenLifetimeMinutes: 60,
	})
	require.NoError(t, err)

	db, _ := testdb.New(t)
	assembler := tasktree.NewAssembler(taskStore, nil)
	taskService := service.NewTaskService(db, taskStore, userStore, assembler, nil)

	userHandler := NewUserHandler(userStore, jwtService, auth.NewBcryptVerifier(), nil)
	taskHandler := NewTaskHandler(taskService, nil)
	authMiddleware := middleware.NewAuthMiddleware(jwtService, userStore)

	r := chi.NewRouter()
	r.Use(middleware.TraceMiddleware)

	r.Post("/users", userHandler.CreateUser)
	r.Post("/authenticate", userHandler.Authenticate)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)
		r.Post("/task", taskHandler.CreateTask)
		r.Get("/task", taskHandler.ListTasks)
		r.Get("/task/tree", taskHandler.ListTaskTrees)
		r.Get("/task/status", taskHandler.FilterByStatus)
		r.Put("/task/{id}", taskHandler.UpdateTask)
		r.Delete("/task/{id}", taskHandler.DeleteTask)
		r.Patch("/task/{id}/complete", taskHandler.MarkCompleted)
		r.Patch("/task/{id}/pending", taskHandler.MarkPending)
	})

	return &testServer{
		router:     r,
		userStore:  userStore,
		taskStore:  taskStore,
		jwtService: jwtService,
	}
}

// do executes a request against the test router and returns the recorder.
func (ts *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rr := httptest.NewRecorder()
	ts.router.ServeHTTP(rr, req)
	return rr
}

// registerUser creates a user directly in the store and returns it.
func (ts *testServer) registerUser(t *testing.T, name, email, password string) *domain.User {
	t.Helper()

	user, err := domain.NewUser(name, email, password)
	require.NoError(t, err)
	require.NoError(t, ts.userStore.Create(context.Background(), user))
	return user
}

// tokenFor generates a valid bearer token for the given user.
func (ts *testServer) tokenFor(t *testing.T, userID uuid.UUID) string {
	t.Helper()

	token, err := ts.jwtService.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	return token
}

// decodeBody unmarshals the recorder body into out.
func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), out))
}

// newValidatorError runs the shared validator and returns the resulting
// error, requiring that validation actually failed.
func newValidatorError(t *testing.T, value any) error {
	t.Helper()

	err := shared.Validate.Struct(value)
	require.Error(t, err)
	return err
}
