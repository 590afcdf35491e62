package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	apimiddleware "github.com/taskforest/taskforest-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware. It accepts the application dependencies to create handlers
// and register routes.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Apply standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apimiddleware.TraceMiddleware) // Add trace IDs for improved error handling

	// Public endpoints
	r.Post("/users", app.userHandler.CreateUser)
	r.Post("/authenticate", app.userHandler.Authenticate)

	// Protected task endpoints
	r.Group(func(r chi.Router) {
		r.Use(app.authMiddleware.Authenticate)

		r.Post("/task", app.taskHandler.CreateTask)
		r.Get("/task", app.taskHandler.ListTasks)
		r.Get("/task/tree", app.taskHandler.ListTaskTrees)
		r.Get("/task/status", app.taskHandler.FilterByStatus)
		r.Put("/task/{id}", app.taskHandler.UpdateTask)
		r.Delete("/task/{id}", app.taskHandler.DeleteTask)
		r.Patch("/task/{id}/complete", app.taskHandler.MarkCompleted)
		r.Patch("/task/{id}/pending", app.taskHandler.MarkPending)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
