package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/funnel-crm-api/internal/database"
	"github.com/funnel-crm-api/internal/models"
	"github.com/lib/pq"
)

// contactRepo is the concrete implementation of ContactRepository
type contactRepo struct {
	db *database.DB
}

// NewContactRepo creates a new contact repository
func NewContactRepo(db *database.DB) ContactRepository {
	return &contactRepo{db: db}
}

const contactSelect = `
	SELECT id, name, email, phone, company, role, industry, company_url, address, created_by,
		created_at, updated_at
	FROM contacts`

func scanContact(row rowScanner) (*models.Contact, error) {
	var c models.Contact
	var email, phone, company, role, industry, companyURL, address, createdBy sql.NullString

	err := row.Scan(&c.ID, &c.Name, &email, &phone, &company, &role, &industry, &companyURL,
		&address, &createdBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.Email = email.String
	c.Phone = phone.String
	c.Company = company.String
	c.Role = role.String
	c.Industry = industry.String
	c.CompanyURL = companyURL.String
	c.Address = address.String
	c.CreatedBy = createdBy.String
	return &c, nil
}

// Create inserts a new contact
func (r *contactRepo) Create(ctx context.Context, c *models.Contact) error {
	query := `
		INSERT INTO contacts (id, name, email, phone, company, role, industry, company_url, address,
			created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.Name, nullString(c.Email), nullString(c.Phone), nullString(c.Company),
		nullString(c.Role), nullString(c.Industry), nullString(c.CompanyURL), nullString(c.Address),
		nullString(c.CreatedBy), c.CreatedAt, c.UpdatedAt,
	)
	return err
}

// Update replaces the contact's fields
func (r *contactRepo) Update(ctx context.Context, c *models.Contact) error {
	c.UpdatedAt = time.Now()
	query := `
		UPDATE contacts SET name = $1, email = $2, phone = $3, company = $4, role = $5, industry = $6,
			company_url = $7, address = $8, updated_at = $9
		WHERE id = $10
	`
	_, err := r.db.ExecContext(ctx, query,
		c.Name, nullString(c.Email), nullString(c.Phone), nullString(c.Company), nullString(c.Role),
		nullString(c.Industry), nullString(c.CompanyURL), nullString(c.Address), c.UpdatedAt, c.ID,
	)
	return err
}

// GetByID retrieves a contact by ID
func (r *contactRepo) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	c, err := scanContact(r.db.QueryRowContext(ctx, contactSelect+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// List returns contacts ordered by name, optionally filtered by a substring
// of name, email or company
func (r *contactRepo) List(ctx context.Context, search string) ([]*models.Contact, error) {
	query := contactSelect
	var args []interface{}
	if search = strings.TrimSpace(search); search != "" {
		query += ` WHERE name ILIKE $1 OR email ILIKE $1 OR company ILIKE $1`
		args = append(args, "%"+escapeLike(search)+"%")
	}
	query += ` ORDER BY LOWER(name), created_at`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// Delete removes a contact; cards referencing it keep existing without it
func (r *contactRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	return err
}

// BatchInsert inserts multiple contacts using PostgreSQL COPY for efficiency
func (r *contactRepo) BatchInsert(ctx context.Context, contacts []*models.Contact) (int, error) {
	if len(contacts) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("contacts",
		"id", "name", "email", "phone", "company", "role", "industry", "company_url", "address",
		"created_by", "created_at", "updated_at",
	))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for _, c := range contacts {
		_, err := stmt.ExecContext(ctx,
			c.ID, c.Name, nullString(c.Email), nullString(c.Phone), nullString(c.Company),
			nullString(c.Role), nullString(c.Industry), nullString(c.CompanyURL), nullString(c.Address),
			nullString(c.CreatedBy), c.CreatedAt, c.UpdatedAt,
		)
		if err != nil {
			return 0, err
		}
		inserted++
	}

	// Flush the COPY buffer
	if _, err := stmt.ExecContext(ctx); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// NamesByID maps contact IDs to names
func (r *contactRepo) NamesByID(ctx context.Context, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM contacts WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		names[id] = name
	}
	return names, rows.Err()
}

// CreatedSince returns contacts created at or after since
func (r *contactRepo) CreatedSince(ctx context.Context, since time.Time) ([]models.Contact, error) {
	rows, err := r.db.QueryContext(ctx, contactSelect+` WHERE created_at >= $1 ORDER BY created_at`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []models.Contact
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

// Count returns the total number of contacts
func (r *contactRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM contacts").Scan(&count)
	return count, err
}

// StreamAll streams all contacts for export (memory efficient)
func (r *contactRepo) StreamAll(ctx context.Context, callback func(*models.Contact) error) error {
	rows, err := r.db.QueryContext(ctx, contactSelect+` ORDER BY created_at`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return err
		}
		if err := callback(c); err != nil {
			return err
		}
	}
	return rows.Err()
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
