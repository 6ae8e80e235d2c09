package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/funnel-crm-api/internal/database"
	"github.com/funnel-crm-api/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// cardRepo is the concrete implementation of CardRepository
type cardRepo struct {
	db *database.DB
}

// NewCardRepo creates a new card repository
func NewCardRepo(db *database.DB) CardRepository {
	return &cardRepo{db: db}
}

const cardSelect = `
	SELECT id, stage_id, contact_id, title, description, value, source, company_name,
		business_type, position, closed_at, created_by, created_at, updated_at
	FROM cards`

func scanCard(row rowScanner) (*models.Card, error) {
	var c models.Card
	var contactID, description, source, companyName, businessType, createdBy sql.NullString
	var closedAt sql.NullTime

	err := row.Scan(&c.ID, &c.StageID, &contactID, &c.Title, &description, &c.Value, &source,
		&companyName, &businessType, &c.Position, &closedAt, &createdBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ContactID = contactID.String
	c.Description = description.String
	c.Source = source.String
	c.CompanyName = companyName.String
	c.BusinessType = businessType.String
	c.CreatedBy = createdBy.String
	c.ClosedAt = timePtr(closedAt)
	return &c, nil
}

func appendHistory(ctx context.Context, ex execer, cardID, description string) error {
	if description == "" {
		return nil
	}
	_, err := ex.ExecContext(ctx,
		`INSERT INTO card_history (id, card_id, description, created_at) VALUES ($1, $2, $3, $4)`,
		uuid.New().String(), cardID, description, time.Now(),
	)
	return err
}

func (r *cardRepo) list(ctx context.Context, query string, args ...interface{}) ([]models.Card, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cards []models.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *c)
	}
	return cards, rows.Err()
}

// CreateWithTasks inserts a card, its tasks and a history entry in one transaction
func (r *cardRepo) CreateWithTasks(ctx context.Context, card *models.Card, tasks []*models.Task, history string) error {
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO cards (id, stage_id, contact_id, title, description, value, source, company_name,
				business_type, position, closed_at, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			card.ID, card.StageID, nullString(card.ContactID), card.Title, nullString(card.Description),
			card.Value, nullString(card.Source), nullString(card.CompanyName), nullString(card.BusinessType),
			card.Position, nullTime(card.ClosedAt), nullString(card.CreatedBy), card.CreatedAt, card.UpdatedAt,
		)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if err := insertTask(ctx, tx, t); err != nil {
				return err
			}
		}
		return appendHistory(ctx, tx, card.ID, history)
	})
}

// GetByID retrieves a card by ID, without tasks
func (r *cardRepo) GetByID(ctx context.Context, id string) (*models.Card, error) {
	c, err := scanCard(r.db.QueryRowContext(ctx, cardSelect+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListByStages returns the cards of the given stages ordered by stage and position
func (r *cardRepo) ListByStages(ctx context.Context, stageIDs []string) ([]models.Card, error) {
	if len(stageIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, cardSelect+` WHERE stage_id = ANY($1) ORDER BY stage_id, position, created_at`, pq.Array(stageIDs))
}

// ListAll returns every card
func (r *cardRepo) ListAll(ctx context.Context) ([]models.Card, error) {
	return r.list(ctx, cardSelect+` ORDER BY created_at`)
}

// Update writes the editable card fields and appends a history entry
func (r *cardRepo) Update(ctx context.Context, card *models.Card, history string) error {
	card.UpdatedAt = time.Now()
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			UPDATE cards SET contact_id = $1, title = $2, description = $3, value = $4, source = $5,
				company_name = $6, business_type = $7, updated_at = $8
			WHERE id = $9`,
			nullString(card.ContactID), card.Title, nullString(card.Description), card.Value,
			nullString(card.Source), nullString(card.CompanyName), nullString(card.BusinessType),
			card.UpdatedAt, card.ID,
		)
		if err != nil {
			return err
		}
		return appendHistory(ctx, tx, card.ID, history)
	})
}

// Move applies a computed card move in one transaction
func (r *cardRepo) Move(ctx context.Context, moved models.Card, changed []models.Card, history string) error {
	now := time.Now()
	return r.db.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`UPDATE cards SET stage_id = $1, position = $2, closed_at = $3, updated_at = $4 WHERE id = $5`,
			moved.StageID, moved.Position, nullTime(moved.ClosedAt), now, moved.ID,
		)
		if err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, `UPDATE cards SET position = $1 WHERE id = $2`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, c := range changed {
			if c.ID == moved.ID {
				continue
			}
			if _, err := stmt.ExecContext(ctx, c.Position, c.ID); err != nil {
				return err
			}
		}
		return appendHistory(ctx, tx, moved.ID, history)
	})
}

// Delete removes a card; tasks and history cascade
func (r *cardRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = $1`, id)
	return err
}

// CountByStage returns the number of cards in a stage
func (r *cardRepo) CountByStage(ctx context.Context, stageID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards WHERE stage_id = $1`, stageID).Scan(&count)
	return count, err
}

// History returns the log of a card, oldest first
func (r *cardRepo) History(ctx context.Context, cardID string) ([]models.CardHistoryEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, card_id, description, created_at FROM card_history WHERE card_id = $1 ORDER BY created_at, id`, cardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.CardHistoryEntry
	for rows.Next() {
		var e models.CardHistoryEntry
		if err := rows.Scan(&e.ID, &e.CardID, &e.Description, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count returns the total number of cards
func (r *cardRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards").Scan(&count)
	return count, err
}

// StreamAll streams all cards for export (memory efficient)
func (r *cardRepo) StreamAll(ctx context.Context, callback func(*models.Card) error) error {
	rows, err := r.db.QueryContext(ctx, cardSelect+` ORDER BY created_at`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return err
		}
		if err := callback(c); err != nil {
			return err
		}
	}
	return rows.Err()
}
