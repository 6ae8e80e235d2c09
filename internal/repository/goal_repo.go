package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/funnel-crm-api/internal/database"
	"github.com/funnel-crm-api/internal/models"
)

// goalRepo is the concrete implementation of GoalRepository
type goalRepo struct {
	db *database.DB
}

// NewGoalRepo creates a new goal repository
func NewGoalRepo(db *database.DB) GoalRepository {
	return &goalRepo{db: db}
}

const goalSelect = `SELECT id, month, year, goal_amount, set_by, created_at, updated_at FROM goals`

func scanGoal(row rowScanner) (*models.Goal, error) {
	var g models.Goal
	var setBy sql.NullString
	if err := row.Scan(&g.ID, &g.Month, &g.Year, &g.GoalAmount, &setBy, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return nil, err
	}
	g.SetBy = setBy.String
	return &g, nil
}

// Upsert inserts a goal or overwrites the amount of the existing goal for
// the same month and year. ID and timestamps are filled from the stored row.
func (r *goalRepo) Upsert(ctx context.Context, goal *models.Goal) error {
	query := `
		INSERT INTO goals (month, year, goal_amount, set_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (month, year) DO UPDATE SET
			goal_amount = EXCLUDED.goal_amount,
			set_by = EXCLUDED.set_by,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`
	return r.db.QueryRowContext(ctx, query,
		goal.Month, goal.Year, goal.GoalAmount, nullString(goal.SetBy), time.Now(),
	).Scan(&goal.ID, &goal.CreatedAt, &goal.UpdatedAt)
}

// GetByID retrieves a goal by ID
func (r *goalRepo) GetByID(ctx context.Context, id int64) (*models.Goal, error) {
	g, err := scanGoal(r.db.QueryRowContext(ctx, goalSelect+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return g, err
}

// List returns all goals, most recent month first
func (r *goalRepo) List(ctx context.Context) ([]models.Goal, error) {
	rows, err := r.db.QueryContext(ctx, goalSelect+` ORDER BY year DESC, month DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var goals []models.Goal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// Delete removes a goal
func (r *goalRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, id)
	return err
}
