package service

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// UserService covers admin user management and unit lookups.
type UserService struct {
	users repository.UserRepository
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// List returns every registered user.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// ListByUnit returns the users attached to one unit.
func (s *UserService) ListByUnit(ctx context.Context, unit domain.Unit) ([]domain.User, error) {
	users, err := s.users.ListByUnit(ctx, unit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return users, nil
}

// Delete removes a user account. Admin accounts cannot be deleted.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewNotFound("user", map[string]any{"user_id": userID})
		}
		return apperrors.MapError(err)
	}
	if user.IsAdmin() {
		return apperrors.NewForbidden("admin accounts cannot be deleted")
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}
