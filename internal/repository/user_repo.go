package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/funnel-crm-api/internal/database"
	"github.com/funnel-crm-api/internal/models"
)

// userRepo is the concrete implementation of UserRepository
type userRepo struct {
	db *database.DB
}

// NewUserRepo creates a new user repository
func NewUserRepo(db *database.DB) UserRepository {
	return &userRepo{db: db}
}

// CreateWithProfile inserts a user and its profile in one transaction
func (r *userRepo) CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error {
	perms, err := json.Marshal(permissionsOrEmpty(profile.Permissions))
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}

	err = r.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
			user.ID, strings.ToLower(user.Email), user.PasswordHash, user.CreatedAt,
		)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO profiles (id, first_name, last_name, role, permissions, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			profile.ID, profile.FirstName, profile.LastName, profile.Role, perms, profile.CreatedAt,
		)
		return err
	})
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, password_hash, created_at FROM users WHERE email = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(email)).Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Count returns the total number of users
func (r *userRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

// profileRepo is the concrete implementation of ProfileRepository
type profileRepo struct {
	db *database.DB
}

// NewProfileRepo creates a new profile repository
func NewProfileRepo(db *database.DB) ProfileRepository {
	return &profileRepo{db: db}
}

const profileSelect = `
	SELECT p.id, u.email, p.first_name, p.last_name, p.role, p.permissions, p.api_key_id,
		p.created_at, p.updated_at
	FROM profiles p JOIN users u ON u.id = p.id`

func scanProfile(row rowScanner) (*models.Profile, error) {
	var p models.Profile
	var perms []byte
	var apiKeyID sql.NullString

	err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Role, &perms, &apiKeyID,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	p.APIKeyID = apiKeyID.String
	p.Permissions = make(map[string]bool)
	if len(perms) > 0 {
		if err := json.Unmarshal(perms, &p.Permissions); err != nil {
			return nil, fmt.Errorf("failed to decode permissions of %s: %w", p.ID, err)
		}
	}
	return &p, nil
}

// GetByID retrieves a profile by user ID
func (r *profileRepo) GetByID(ctx context.Context, id string) (*models.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, profileSelect+` WHERE p.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// List returns every profile ordered by name
func (r *profileRepo) List(ctx context.Context) ([]*models.Profile, error) {
	rows, err := r.db.QueryContext(ctx, profileSelect+` ORDER BY p.first_name, p.last_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var profiles []*models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Update writes names, role and permissions
func (r *profileRepo) Update(ctx context.Context, profile *models.Profile) error {
	perms, err := json.Marshal(permissionsOrEmpty(profile.Permissions))
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}
	profile.UpdatedAt = time.Now()
	_, err = r.db.ExecContext(ctx, `
		UPDATE profiles SET first_name = $1, last_name = $2, role = $3, permissions = $4, updated_at = $5
		WHERE id = $6`,
		profile.FirstName, profile.LastName, profile.Role, perms, profile.UpdatedAt, profile.ID,
	)
	return err
}

// SetAPIKeyID records the only API key currently accepted for the user
func (r *profileRepo) SetAPIKeyID(ctx context.Context, id, keyID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE profiles SET api_key_id = $1, updated_at = $2 WHERE id = $3`,
		nullString(keyID), time.Now(), id,
	)
	return err
}

func permissionsOrEmpty(p map[string]bool) map[string]bool {
	if p == nil {
		return map[string]bool{}
	}
	return p
}
