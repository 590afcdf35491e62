package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/taskforest/taskforest-api/internal/api"
	apimiddleware "github.com/taskforest/taskforest-api/internal/api/middleware"
	"github.com/taskforest/taskforest-api/internal/config"
	"github.com/taskforest/taskforest-api/internal/platform/postgres"
	"github.com/taskforest/taskforest-api/internal/service"
	"github.com/taskforest/taskforest-api/internal/service/auth"
	"github.com/taskforest/taskforest-api/internal/store"
	"github.com/taskforest/taskforest-api/internal/tasktree"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	userStore store.UserStore
	taskStore store.TaskStore

	// Services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	taskService      service.TaskService

	// Handlers and middleware
	userHandler    *api.UserHandler
	taskHandler    *api.TaskHandler
	authMiddleware *apimiddleware.AuthMiddleware
}

// newApplication creates a new application instance with all dependencies
// initialized. It accepts core dependencies like configuration, database
// connection, and logger that must be established before application
// initialization.
func newApplication(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()
	hasher := auth.NewBcryptHasher(cfg.Auth.BcryptCost)

	app.userStore = postgres.NewPostgresUserStore(db, hasher, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	assembler := tasktree.NewAssembler(app.taskStore, logger)

	app.taskService = service.NewTaskService(db, app.taskStore, app.userStore, assembler, logger)

	app.userHandler = api.NewUserHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		logger,
	)
	app.taskHandler = api.NewTaskHandler(app.taskService, logger)
	app.authMiddleware = apimiddleware.NewAuthMiddleware(app.jwtService, app.userStore)

	logger.Info("Application initialized successfully")
	return app, nil
}

// serve starts the HTTP server with the configured router and blocks until
// shutdown completes.
func (app *application) serve() error {
	router := app.setupRouter()

	if err := app.startHTTPServer(router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}
