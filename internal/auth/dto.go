package auth

import "github.com/merakiwear/meraki-backend/internal/users"

// RegisterRequest captures the fields needed to create a customer account.
type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8,max=128"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse contains the token and profile produced by register or login.
type AuthResponse struct {
	Token string        `json:"token"`
	User  users.Profile `json:"user"`
}
