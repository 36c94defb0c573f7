package services

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/openshelf/openshelf-backend/internal/platform/apierr"
	"github.com/openshelf/openshelf-backend/internal/platform/logger"
	"github.com/openshelf/openshelf-backend/internal/repos"
	"github.com/openshelf/openshelf-backend/internal/types"
)

type UserInput struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	IsActive  *bool   `json:"is_active"`
	Role      *string `json:"role"`
}

type UserService interface {
	Create(ctx context.Context, input UserInput) (*types.User, error)
	Get(ctx context.Context, id int64) (*types.User, error)
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	List(ctx context.Context) ([]*types.User, error)
	Update(ctx context.Context, id int64, input UserInput) (*types.User, error)
	Delete(ctx context.Context, id int64) error
	SetActive(ctx context.Context, id int64, active bool) (*types.User, error)
	AssignRole(ctx context.Context, id int64, role string) (*types.User, error)
	RemoveRole(ctx context.Context, id int64, role string) (*types.User, error)
	TouchLastLogin(ctx context.Context, id int64)
}

type userService struct {
	log     *logger.Logger
	users   repos.UserRepo
	avatars AvatarService
}

func NewUserService(log *logger.Logger, users repos.UserRepo, avatars AvatarService) UserService {
	return &userService{
		log:     log.With("service", "UserService"),
		users:   users,
		avatars: avatars,
	}
}

func (s *userService) Create(ctx context.Context, input UserInput) (*types.User, error) {
	if input.Username == nil || strings.TrimSpace(*input.Username) == "" {
		return nil, apierr.Validation("username is required")
	}
	if input.Email == nil || strings.TrimSpace(*input.Email) == "" {
		return nil, apierr.Validation("email is required")
	}
	if input.Password == nil || *input.Password == "" {
		return nil, apierr.Validation("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apierr.New(500, "internal_error", err)
	}

	user := &types.User{
		Username:     strings.TrimSpace(*input.Username),
		Email:        strings.ToLower(strings.TrimSpace(*input.Email)),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}

	created, err := s.users.Create(ctx, nil, user)
	if err != nil {
		return nil, mapDBError(err)
	}

	role := types.RoleUser
	if input.Role != nil && *input.Role != "" {
		role = *input.Role
	}
	if err := s.users.AssignRole(ctx, nil, created.ID, role); err != nil {
		s.log.Warn("failed to assign role", "user_id", created.ID, "role", role, "error", err)
	}

	// Avatar generation is decoration; never fails user creation.
	if s.avatars != nil {
		if path, err := s.avatars.GenerateUserAvatar(created); err != nil {
			s.log.Warn("failed to generate avatar", "user_id", created.ID, "error", err)
		} else if err := s.users.Updates(ctx, nil, created.ID, map[string]any{"avatar_path": path}); err != nil {
			s.log.Warn("failed to store avatar path", "user_id", created.ID, "error", err)
		}
	}

	return s.users.GetByID(ctx, created.ID)
}

func (s *userService) Get(ctx context.Context, id int64) (*types.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("user %d not found", id)
		}
		return nil, apierr.Database(err)
	}
	return user, nil
}

func (s *userService) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("user %s not found", email)
		}
		return nil, apierr.Database(err)
	}
	return user, nil
}

func (s *userService) List(ctx context.Context) ([]*types.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apierr.Database(err)
	}
	return users, nil
}

func (s *userService) Update(ctx context.Context, id int64, input UserInput) (*types.User, error) {
	updates := map[string]any{}
	if input.Username != nil {
		updates["username"] = strings.TrimSpace(*input.Username)
	}
	if input.Email != nil {
		updates["email"] = strings.ToLower(strings.TrimSpace(*input.Email))
	}
	if input.Password != nil && *input.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, apierr.New(500, "internal_error", err)
		}
		updates["password_hash"] = string(hash)
	}
	if input.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*input.LastName)
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if len(updates) > 0 {
		if err := s.users.Updates(ctx, nil, id, updates); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierr.NotFound("user %d not found", id)
			}
			return nil, mapDBError(err)
		}
	}
	return s.Get(ctx, id)
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, nil, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierr.NotFound("user %d not found", id)
		}
		return apierr.Database(err)
	}
	return nil
}

func (s *userService) SetActive(ctx context.Context, id int64, active bool) (*types.User, error) {
	if err := s.users.Updates(ctx, nil, id, map[string]any{"is_active": active}); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("user %d not found", id)
		}
		return nil, apierr.Database(err)
	}
	return s.Get(ctx, id)
}

func (s *userService) AssignRole(ctx context.Context, id int64, role string) (*types.User, error) {
	if role == "" {
		return nil, apierr.Validation("role is required")
	}
	if err := s.users.AssignRole(ctx, nil, id, role); err != nil {
		return nil, apierr.Database(err)
	}
	return s.Get(ctx, id)
}

func (s *userService) RemoveRole(ctx context.Context, id int64, role string) (*types.User, error) {
	if role == "" {
		return nil, apierr.Validation("role is required")
	}
	if err := s.users.RemoveRole(ctx, nil, id, role); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierr.NotFound("role %s not found", role)
		}
		return nil, apierr.Database(err)
	}
	return s.Get(ctx, id)
}

func (s *userService) TouchLastLogin(ctx context.Context, id int64) {
	if err := s.users.TouchLastLogin(ctx, id); err != nil {
		s.log.Warn("failed to touch last_login", "user_id", id, "error", err)
	}
}
