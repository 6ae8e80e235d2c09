package repository

import (
	"context"
	"database/sql"

	"github.com/funnel-crm-api/internal/database"
	"github.com/funnel-crm-api/internal/models"
	"github.com/lib/pq"
)

// funnelRepo is the concrete implementation of FunnelRepository
type funnelRepo struct {
	db *database.DB
}

// NewFunnelRepo creates a new funnel repository
func NewFunnelRepo(db *database.DB) FunnelRepository {
	return &funnelRepo{db: db}
}

// CreateWithStages inserts a funnel and its initial stages in one transaction
func (r *funnelRepo) CreateWithStages(ctx context.Context, funnel *models.Funnel, stages []*models.Stage) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO funnels (id, name, created_by, created_at) VALUES ($1, $2, $3, $4)`,
			funnel.ID, funnel.Name, nullString(funnel.CreatedBy), funnel.CreatedAt,
		)
		if err != nil {
			return err
		}
		for _, s := range stages {
			if err := insertStage(ctx, tx, s); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetByID retrieves a funnel by ID, without stages
func (r *funnelRepo) GetByID(ctx context.Context, id string) (*models.Funnel, error) {
	var f models.Funnel
	var createdBy sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at FROM funnels WHERE id = $1`, id,
	).Scan(&f.ID, &f.Name, &createdBy, &f.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	f.CreatedBy = createdBy.String
	return &f, nil
}

// List returns all funnels in creation order
func (r *funnelRepo) List(ctx context.Context) ([]*models.Funnel, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, created_by, created_at FROM funnels ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var funnels []*models.Funnel
	for rows.Next() {
		var f models.Funnel
		var createdBy sql.NullString
		if err := rows.Scan(&f.ID, &f.Name, &createdBy, &f.CreatedAt); err != nil {
			return nil, err
		}
		f.CreatedBy = createdBy.String
		funnels = append(funnels, &f)
	}
	return funnels, rows.Err()
}

// UpdateLayout renames the funnel and rewrites its stage list atomically.
// The (funnel_id, position) constraint is deferred so positions may swap.
func (r *funnelRepo) UpdateLayout(ctx context.Context, funnel *models.Funnel, stages []models.Stage, removeIDs []string) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE funnels SET name = $1 WHERE id = $2`, funnel.Name, funnel.ID); err != nil {
			return err
		}
		if len(removeIDs) > 0 {
			_, err := tx.ExecContext(ctx,
				`DELETE FROM stages WHERE funnel_id = $1 AND id = ANY($2)`, funnel.ID, pq.Array(removeIDs))
			if err != nil {
				return err
			}
		}
		for i := range stages {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO stages (id, funnel_id, name, position, created_by, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, position = EXCLUDED.position`,
				stages[i].ID, funnel.ID, stages[i].Name, stages[i].Position,
				nullString(stages[i].CreatedBy), stages[i].CreatedAt,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a funnel; stages, cards and tasks cascade
func (r *funnelRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM funnels WHERE id = $1`, id)
	return err
}

// stageRepo is the concrete implementation of StageRepository
type stageRepo struct {
	db *database.DB
}

// NewStageRepo creates a new stage repository
func NewStageRepo(db *database.DB) StageRepository {
	return &stageRepo{db: db}
}

func insertStage(ctx context.Context, ex execer, s *models.Stage) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO stages (id, funnel_id, name, position, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.FunnelID, s.Name, s.Position, nullString(s.CreatedBy), s.CreatedAt,
	)
	return err
}

const stageSelect = `SELECT id, funnel_id, name, position, created_by, created_at FROM stages`

func scanStage(row rowScanner) (*models.Stage, error) {
	var s models.Stage
	var createdBy sql.NullString
	if err := row.Scan(&s.ID, &s.FunnelID, &s.Name, &s.Position, &createdBy, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.CreatedBy = createdBy.String
	return &s, nil
}

func (r *stageRepo) list(ctx context.Context, query string, args ...interface{}) ([]models.Stage, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stages []models.Stage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, *s)
	}
	return stages, rows.Err()
}

// Create inserts a stage at the position already set on it
func (r *stageRepo) Create(ctx context.Context, stage *models.Stage) error {
	err := insertStage(ctx, r.db, stage)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetByID retrieves a stage by ID
func (r *stageRepo) GetByID(ctx context.Context, id string) (*models.Stage, error) {
	s, err := scanStage(r.db.QueryRowContext(ctx, stageSelect+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// ListByFunnel returns the stages of a funnel in position order
func (r *stageRepo) ListByFunnel(ctx context.Context, funnelID string) ([]models.Stage, error) {
	return r.list(ctx, stageSelect+` WHERE funnel_id = $1 ORDER BY position, created_at`, funnelID)
}

// ListAll returns every stage
func (r *stageRepo) ListAll(ctx context.Context) ([]models.Stage, error) {
	return r.list(ctx, stageSelect+` ORDER BY funnel_id, position`)
}

// Rename changes a stage name
func (r *stageRepo) Rename(ctx context.Context, id, name string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE stages SET name = $1 WHERE id = $2`, name, id)
	return err
}

// Delete removes a stage (its cards cascade) and closes the gap it leaves
func (r *stageRepo) Delete(ctx context.Context, id string) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		var funnelID string
		err := tx.QueryRowContext(ctx, `DELETE FROM stages WHERE id = $1 RETURNING funnel_id`, id).Scan(&funnelID)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE stages s SET position = o.rn - 1
			FROM (SELECT id, ROW_NUMBER() OVER (ORDER BY position, created_at) AS rn
				FROM stages WHERE funnel_id = $1) o
			WHERE s.id = o.id AND s.position <> o.rn - 1`, funnelID)
		return err
	})
}

// UpdatePositions writes the position of every given stage in one transaction
func (r *stageRepo) UpdatePositions(ctx context.Context, stages []models.Stage) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE stages SET position = $1 WHERE id = $2`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range stages {
			if _, err := stmt.ExecContext(ctx, s.Position, s.ID); err != nil {
				return err
			}
		}
		return nil
	})
}
