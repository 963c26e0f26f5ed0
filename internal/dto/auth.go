package dto

import (
	"time"

	"github.com/noah-isme/inventory-loan-api/internal/models"
)

// LoginRequest holds credentials for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	AccessToken string      `json:"accessToken"`
	TokenType   string      `json:"tokenType"`
	ExpiresAt   time.Time   `json:"expiresAt"`
	User        models.User `json:"user"`
}

// CreateUserRequest represents payload for creating users.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"fullName" validate:"required,max=200"`
	Role     models.UserRole `json:"role" validate:"required,oneof=admin staff"`
	Password string          `json:"password" validate:"required,min=8"`
}
