package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/taskforest/taskforest-api/internal/domain"
)

// Common request/response structures

// CreateUserRequest defines the payload for the user registration endpoint.
type CreateUserRequest struct {
	Name     string `json:"name"     validate:"required"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// AuthenticateRequest defines the payload for the authentication endpoint.
type AuthenticateRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for the authentication endpoint.
type AuthResponse struct {
	// Token is the bearer credential used for API authorization
	Token string `json:"token"`
}

// UserResponse defines the public representation of a user.
// The password digest is never serialized.
type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// userToResponse converts a domain.User to a UserResponse.
func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// CreateTaskRequest defines the payload for creating a task.
type CreateTaskRequest struct {
	Title        string  `json:"title"                  validate:"required"`
	Description  *string `json:"description,omitempty"`
	ParentTaskID *string `json:"parentTaskId,omitempty" validate:"omitempty,uuid"`
}

// UpdateTaskRequest defines the payload for a partial task update.
// Absent fields are left unchanged; present-but-empty fields are also left
// unchanged (the falsy-skip merge rule clients rely on).
type UpdateTaskRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
}
