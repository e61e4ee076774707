package dto

import (
	"time"

	"github.com/rims-platform/rims-api/internal/models"
)

// UserCreateRequest is the admin-only provisioning payload. There is no
// self-registration path.
type UserCreateRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Name        string `json:"name" validate:"required,min=2,max=255"`
	Role        string `json:"role" validate:"omitempty,oneof=admin user"`
	Phone       string `json:"phone" validate:"omitempty,max=32"`
	Department  string `json:"department" validate:"omitempty,max=128"`
	Designation string `json:"designation" validate:"omitempty,max=128"`
}

// UserCreateResponse returns the provisioned profile plus the password reset
// link the admin forwards to the new user.
type UserCreateResponse struct {
	User      UserResponse `json:"user"`
	ResetLink string       `json:"reset_link"`
}

// UserUpdateRequest mutates profile fields. Role changes go through here too;
// they take effect on the next privileged call because authorization reads
// the stored profile, not the session claim.
type UserUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=255"`
	Role        *string `json:"role" validate:"omitempty,oneof=admin user"`
	Phone       *string `json:"phone" validate:"omitempty,max=32"`
	Department  *string `json:"department" validate:"omitempty,max=128"`
	Designation *string `json:"designation" validate:"omitempty,max=128"`
	IsActive    *bool   `json:"is_active"`
}

// UserResponse serializes a stored profile without credential material.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	Name        string    `json:"name"`
	Role        string    `json:"role"`
	Phone       string    `json:"phone,omitempty"`
	Department  string    `json:"department,omitempty"`
	Designation string    `json:"designation,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewUserResponse converts a User model into a DTO.
func NewUserResponse(model models.User) UserResponse {
	return UserResponse{
		ID:          model.ID,
		Email:       model.Email,
		Name:        model.Name,
		Role:        model.Role,
		Phone:       model.Phone,
		Department:  model.Department,
		Designation: model.Designation,
		IsActive:    model.IsActive,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

// NewUserResponseSlice converts user models into DTOs.
func NewUserResponseSlice(users []models.User) []UserResponse {
	responses := make([]UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, NewUserResponse(user))
	}
	return responses
}
