package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/merakiwear/meraki-backend/pkg/db/models"
	"github.com/merakiwear/meraki-backend/pkg/enums"
)

// CreateUserDTO carries the normalized fields for inserting a user.
type CreateUserDTO struct {
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Role         enums.UserRole
}

// ToModel maps the DTO onto a fresh user model.
func (d CreateUserDTO) ToModel() *models.User {
	return &models.User{
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		FirstName:    d.FirstName,
		LastName:     d.LastName,
		Role:         d.Role,
		IsActive:     true,
	}
}

// Profile is the public shape of a user returned by the API.
type Profile struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	FirstName string         `json:"firstName"`
	LastName  string         `json:"lastName"`
	Role      enums.UserRole `json:"role"`
	CreatedAt time.Time      `json:"createdAt"`
}

// ListResult is one page of users plus the cursor for the next page.
type ListResult struct {
	Users      []Profile `json:"users"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

// AdminCreateRequest provisions an account from the admin console. Unlike
// self-registration it may set the role directly.
type AdminCreateRequest struct {
	Email     string         `json:"email" validate:"required,email"`
	Password  string         `json:"password" validate:"required,min=8,max=72"`
	FirstName string         `json:"firstName" validate:"required,max=100"`
	LastName  string         `json:"lastName" validate:"required,max=100"`
	Role      enums.UserRole `json:"role" validate:"required"`
}

// UpdateRoleRequest changes an account's role.
type UpdateRoleRequest struct {
	Role enums.UserRole `json:"role" validate:"required"`
}

// FromModel converts the persisted model into its API profile.
func FromModel(u *models.User) Profile {
	if u == nil {
		return Profile{}
	}
	return Profile{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
