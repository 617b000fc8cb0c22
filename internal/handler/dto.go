package handler

import (
	"time"

	"github.com/msomdec/cool-todo/internal/domain"
)

// UserDTO is the JSON representation of a user profile.
type UserDTO struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	Username    string `json:"username,omitempty"`
	FullName    string `json:"fullName"`
	DisplayName string `json:"displayName"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func toUserDTO(u *domain.User) UserDTO {
	return UserDTO{
		UID:         u.UID,
		Email:       u.Email,
		Username:    u.Username,
		FullName:    u.FullName,
		DisplayName: u.DisplayName(),
		CreatedAt:   u.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   u.UpdatedAt.Format(time.RFC3339),
	}
}

// TaskDTO is the JSON representation of a task.
type TaskDTO struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
	CreatedAt   string `json:"createdAt"`
}

func toTaskDTO(t domain.Task) TaskDTO {
	return TaskDTO{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		CreatedAt:   t.CreatedAt.Format(time.RFC3339),
	}
}

func toTaskDTOs(tasks []domain.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = toTaskDTO(t)
	}
	return out
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (r RegisterRequest) values() map[string]string {
	return map[string]string{
		"fullName":        r.FullName,
		"email":           r.Email,
		"username":        r.Username,
		"password":        r.Password,
		"confirmPassword": r.ConfirmPassword,
	}
}

// LoginRequest is the body of POST /api/auth/login. Identifier is an email
// or a username.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// CreateTaskRequest is the body of POST /api/tasks.
type CreateTaskRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

// UpdateTaskRequest is the body of PATCH /api/tasks/{id}. Omitted fields
// are left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// CreatedResponse carries the id of a new record.
type CreatedResponse struct {
	ID string `json:"id"`
}

// ValidationErrorResponse lists field errors keyed by field name.
type ValidationErrorResponse struct {
	Errors map[string]string `json:"errors"`
}
