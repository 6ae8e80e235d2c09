package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/funnel-crm-api/internal/validation"
	"github.com/rs/zerolog"
)

// userService is the concrete implementation of UserService
type userService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

func newUserService(repos *repository.Repositories, log zerolog.Logger) *userService {
	return &userService{
		repos: repos,
		log:   log.With().Str("service", "user").Logger(),
	}
}

func (s *userService) List(ctx context.Context) ([]*models.Profile, error) {
	return s.repos.Profile.List(ctx)
}

// Create adds a user and profile. Only user managers may call it and only
// admins may create other admins.
func (s *userService) Create(ctx context.Context, actor *models.Profile, req *models.CreateUserRequest) (*models.Profile, error) {
	if !actor.CanManageUsers() {
		return nil, forbidden("not allowed to manage users")
	}
	if req.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return nil, forbidden("only administrators can grant the admin role")
	}

	var errs []validation.ValidationError
	if !models.ValidRoles[req.Role] {
		errs = append(errs, validation.ValidationError{Field: "role", Message: "invalid role", Value: string(req.Role)})
	}
	if strings.TrimSpace(req.FirstName) == "" {
		errs = append(errs, validation.ValidationError{Field: "first_name", Message: "first_name is required"})
	}
	errs = append(errs, validation.ValidatePassword(req.Password)...)
	errs = append(errs, validation.ValidatePermissions(req.Permissions)...)
	if err := checkInput(errs); err != nil {
		return nil, err
	}

	user, profile, err := newUser(req.Email, req.Password, req.FirstName, req.LastName, req.Role, req.Permissions)
	if err != nil {
		return nil, err
	}
	if err := s.repos.User.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("email address already in use")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Info().
		Str("user_id", user.ID).
		Str("role", string(profile.Role)).
		Str("created_by", actor.ID).
		Msg("User created")
	return profile, nil
}

// Update edits names, role and permissions of a profile
func (s *userService) Update(ctx context.Context, actor *models.Profile, id string, req *models.UpdateUserRequest) (*models.Profile, error) {
	if !actor.CanManageUsers() {
		return nil, forbidden("not allowed to manage users")
	}

	profile, err := s.repos.Profile.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrNotFound
	}
	if profile.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return nil, forbidden("only administrators can edit administrators")
	}

	if req.Role != nil && *req.Role != profile.Role {
		if !models.ValidRoles[*req.Role] {
			return nil, inputError("role", "invalid role")
		}
		if *req.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
			return nil, forbidden("only administrators can grant the admin role")
		}
		if profile.ID == actor.ID {
			return nil, forbidden("cannot change your own role")
		}
		profile.Role = *req.Role
	}
	if req.FirstName != nil {
		if strings.TrimSpace(*req.FirstName) == "" {
			return nil, inputError("first_name", "first_name is required")
		}
		profile.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		profile.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Permissions != nil {
		if err := checkInput(validation.ValidatePermissions(req.Permissions)); err != nil {
			return nil, err
		}
		profile.Permissions = req.Permissions
	}

	if err := s.repos.Profile.Update(ctx, profile); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.log.Info().Str("user_id", id).Str("updated_by", actor.ID).Msg("User updated")
	return profile, nil
}
