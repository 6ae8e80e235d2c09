package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/funnel-crm-api/internal/auth"
	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/funnel-crm-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var errBadCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)

// authService is the concrete implementation of AuthService
type authService struct {
	repos       *repository.Repositories
	tokens      *auth.TokenIssuer
	revocations auth.RevocationStore
	log         zerolog.Logger
}

func newAuthService(repos *repository.Repositories, tokens *auth.TokenIssuer, revocations auth.RevocationStore, log zerolog.Logger) *authService {
	return &authService{
		repos:       repos,
		tokens:      tokens,
		revocations: revocations,
		log:         log.With().Str("service", "auth").Logger(),
	}
}

// Setup creates the first administrator and signs them in. It is refused
// once any user exists.
func (s *authService) Setup(ctx context.Context, req *models.SetupRequest) (*models.LoginResponse, error) {
	count, err := s.repos.User.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil, conflict("setup already completed")
	}
	if err := checkInput(validation.ValidatePassword(req.Password)); err != nil {
		return nil, err
	}

	user, profile, err := newUser(req.Email, req.Password, req.FirstName, req.LastName, models.RoleAdmin, nil)
	if err != nil {
		return nil, err
	}
	if err := s.repos.User.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("email address already in use")
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	s.log.Info().Str("user_id", user.ID).Msg("Initial administrator created")
	return s.session(profile)
}

// Login exchanges credentials for a session token
func (s *authService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.repos.User.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, errBadCredentials
	}

	profile, err := s.repos.Profile.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, errBadCredentials
	}

	s.log.Info().Str("user_id", user.ID).Msg("User signed in")
	return s.session(profile)
}

func (s *authService) session(profile *models.Profile) (*models.LoginResponse, error) {
	token, claims, err := s.tokens.IssueSession(profile.ID, profile.Role)
	if err != nil {
		return nil, err
	}
	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: claims.ExpiresAt.Unix(),
		Profile:   profile,
	}, nil
}

// Logout revokes the session token until it would have expired
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return ErrUnauthorized
	}
	expires := time.Now().Add(time.Hour)
	if claims.ExpiresAt != nil {
		expires = claims.ExpiresAt.Time
	}
	if err := s.revocations.Revoke(ctx, claims.ID, expires); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	s.log.Info().Str("user_id", claims.UserID()).Msg("User signed out")
	return nil
}

// Authenticate validates a token and loads the profile it belongs to
func (s *authService) Authenticate(ctx context.Context, token string) (*models.Profile, *auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, nil, fmt.Errorf("%w: token revoked", ErrUnauthorized)
	}

	profile, err := s.repos.Profile.GetByID(ctx, claims.UserID())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load profile: %w", err)
	}
	if profile == nil {
		return nil, nil, fmt.Errorf("%w: unknown user", ErrUnauthorized)
	}
	if claims.Kind == auth.KindAPIKey && profile.APIKeyID != claims.ID {
		return nil, nil, fmt.Errorf("%w: API key replaced", ErrUnauthorized)
	}
	return profile, claims, nil
}

// GenerateAPIKey issues a new API key for profile, replacing the previous one
func (s *authService) GenerateAPIKey(ctx context.Context, profile *models.Profile) (*models.APIKeyResponse, error) {
	if profile == nil {
		return nil, ErrUnauthorized
	}
	if !profile.HasPermission(models.PermSettingsUpdate) {
		return nil, forbidden("missing permission: " + models.PermSettingsUpdate)
	}

	token, claims, err := s.tokens.IssueAPIKey(profile.ID, profile.Role)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Profile.SetAPIKeyID(ctx, profile.ID, claims.ID); err != nil {
		return nil, fmt.Errorf("failed to store API key: %w", err)
	}

	s.log.Info().Str("user_id", profile.ID).Msg("API key generated")
	return &models.APIKeyResponse{
		APIKey:    token,
		ExpiresAt: claims.ExpiresAt.Unix(),
	}, nil
}

// newUser builds a login identity and its profile with a hashed password
func newUser(email, password, firstName, lastName string, role models.Role, perms map[string]bool) (*models.User, *models.Profile, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, nil, err
	}
	if perms == nil {
		perms = map[string]bool{}
	}

	now := time.Now()
	id := uuid.New().String()
	email = strings.ToLower(strings.TrimSpace(email))
	user := &models.User{
		ID:           id,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	profile := &models.Profile{
		ID:          id,
		Email:       email,
		FirstName:   strings.TrimSpace(firstName),
		LastName:    strings.TrimSpace(lastName),
		Role:        role,
		Permissions: perms,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	return user, profile, nil
}
