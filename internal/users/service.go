package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/merakiwear/meraki-backend/pkg/config"
	"github.com/merakiwear/meraki-backend/pkg/db"
	pkgerrors "github.com/merakiwear/meraki-backend/pkg/errors"
	"github.com/merakiwear/meraki-backend/pkg/logger"
	"github.com/merakiwear/meraki-backend/pkg/pagination"
	"github.com/merakiwear/meraki-backend/pkg/security"
)

// Service is the admin-console account management surface.
type Service interface {
	List(ctx context.Context, page pagination.Params) (*ListResult, error)
	Create(ctx context.Context, req AdminCreateRequest) (*Profile, error)
	UpdateRole(ctx context.Context, actorID, userID uuid.UUID, req UpdateRoleRequest) (*Profile, error)
	Delete(ctx context.Context, actorID, userID uuid.UUID) error
}

type service struct {
	repo        *Repository
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// ServiceParams bundles the user admin service dependencies.
type ServiceParams struct {
	Repo           *Repository
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

// NewService constructs the user admin service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("users repository is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:        params.Repo,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
	}, nil
}

func (s *service) List(ctx context.Context, page pagination.Params) (*ListResult, error) {
	rows, next, err := s.repo.List(ctx, page)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list users")
	}
	result := &ListResult{Users: make([]Profile, 0, len(rows)), NextCursor: next}
	for i := range rows {
		result.Users = append(result.Users, FromModel(&rows[i]))
	}
	return result, nil
}

func (s *service) Create(ctx context.Context, req AdminCreateRequest) (*Profile, error) {
	if !req.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown role %q", req.Role))
	}
	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.repo.Create(ctx, CreateUserDTO{
		Email:        req.Email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         req.Role,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "uq_users_email") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	profile := FromModel(user)
	return &profile, nil
}

func (s *service) UpdateRole(ctx context.Context, actorID, userID uuid.UUID, req UpdateRoleRequest) (*Profile, error) {
	if !req.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown role %q", req.Role))
	}
	// An admin locking themselves out mid-session is unrecoverable without
	// the bootstrap env; make someone else do the demotion.
	if actorID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "administrators cannot change their own role")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if err := s.repo.UpdateRole(ctx, userID, req.Role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update role")
	}
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"user_id": userID.String(),
		"from":    string(user.Role),
		"to":      string(req.Role),
	}), "user role updated")

	user.Role = req.Role
	profile := FromModel(user)
	return &profile, nil
}

func (s *service) Delete(ctx context.Context, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return pkgerrors.New(pkgerrors.CodeValidation, "administrators cannot delete their own account")
	}
	if _, err := s.repo.FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	if err := s.repo.Delete(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete user")
	}
	s.logg.Info(s.logg.WithField(ctx, "user_id", userID.String()), "user deleted")
	return nil
}
