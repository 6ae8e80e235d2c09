package repository

import (
	"context"
	"database/sql"

	"github.com/funnel-crm-api/internal/database"
	"github.com/funnel-crm-api/internal/models"
	"github.com/lib/pq"
)

// taskRepo is the concrete implementation of TaskRepository
type taskRepo struct {
	db *database.DB
}

// NewTaskRepo creates a new task repository
func NewTaskRepo(db *database.DB) TaskRepository {
	return &taskRepo{db: db}
}

const taskSelect = `SELECT id, card_id, text, completed, due_date, priority, created_by, created_at FROM tasks`

func insertTask(ctx context.Context, ex execer, t *models.Task) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO tasks (id, card_id, text, completed, due_date, priority, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.CardID, t.Text, t.Completed, nullDate(t.DueDate), t.Priority,
		nullString(t.CreatedBy), t.CreatedAt,
	)
	return err
}

func scanTask(row rowScanner, extra ...interface{}) (*models.Task, error) {
	var t models.Task
	var dueDate sql.NullTime
	var createdBy sql.NullString

	dest := []interface{}{&t.ID, &t.CardID, &t.Text, &t.Completed, &dueDate, &t.Priority, &createdBy, &t.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	t.DueDate = datePtr(dueDate)
	t.CreatedBy = createdBy.String
	return &t, nil
}

func (r *taskRepo) list(ctx context.Context, query string, args ...interface{}) ([]models.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

// Create inserts a new task
func (r *taskRepo) Create(ctx context.Context, task *models.Task) error {
	return insertTask(ctx, r.db, task)
}

// GetByID retrieves a task by ID
func (r *taskRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx, taskSelect+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return t, err
}

// Update writes the editable task fields
func (r *taskRepo) Update(ctx context.Context, task *models.Task) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tasks SET text = $1, completed = $2, due_date = $3, priority = $4 WHERE id = $5`,
		task.Text, task.Completed, nullDate(task.DueDate), task.Priority, task.ID,
	)
	return err
}

// Delete removes a task
func (r *taskRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}

// ListByCards returns the tasks of the given cards
func (r *taskRepo) ListByCards(ctx context.Context, cardIDs []string) ([]models.Task, error) {
	if len(cardIDs) == 0 {
		return nil, nil
	}
	return r.list(ctx, taskSelect+` WHERE card_id = ANY($1) ORDER BY created_at`, pq.Array(cardIDs))
}

// ListAll returns every task
func (r *taskRepo) ListAll(ctx context.Context) ([]models.Task, error) {
	return r.list(ctx, taskSelect+` ORDER BY created_at`)
}

// ListCalendar returns tasks with their card titles ordered by due date,
// undated tasks last. A date bound excludes undated tasks.
func (r *taskRepo) ListCalendar(ctx context.Context, from, to *models.Date) ([]models.CalendarTask, error) {
	query := `
		SELECT t.id, t.card_id, t.text, t.completed, t.due_date, t.priority, t.created_by, t.created_at, c.title
		FROM tasks t JOIN cards c ON c.id = t.card_id
		WHERE ($1::date IS NULL OR t.due_date >= $1::date)
		  AND ($2::date IS NULL OR t.due_date <= $2::date)
		ORDER BY t.due_date ASC NULLS LAST, t.created_at`

	rows, err := r.db.QueryContext(ctx, query, nullDate(from), nullDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CalendarTask
	for rows.Next() {
		var title string
		t, err := scanTask(rows, &title)
		if err != nil {
			return nil, err
		}
		out = append(out, models.CalendarTask{Task: *t, CardTitle: title})
	}
	return out, rows.Err()
}
