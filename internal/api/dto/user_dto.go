package dto

import "github.com/spec-kit/ticket-console/internal/domain"

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes the authenticated user.
type SessionResponse struct {
	Token string       `json:"token,omitempty"`
	User  UserResponse `json:"user"`
}

// UserResponse is the identity record.
type UserResponse struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// FromUser converts a domain user.
func FromUser(u domain.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
