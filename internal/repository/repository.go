package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/funnel-crm-api/internal/database"
	"github.com/funnel-crm-api/internal/models"
	"github.com/lib/pq"
)

// ErrDuplicate is returned when an insert violates a unique constraint
var ErrDuplicate = errors.New("duplicate record")

// UserRepository defines the interface for login identities
type UserRepository interface {
	CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Count(ctx context.Context) (int, error)
}

// ProfileRepository defines the interface for profile data operations
type ProfileRepository interface {
	GetByID(ctx context.Context, id string) (*models.Profile, error)
	List(ctx context.Context) ([]*models.Profile, error)
	Update(ctx context.Context, profile *models.Profile) error
	SetAPIKeyID(ctx context.Context, id, keyID string) error
}

// FunnelRepository defines the interface for funnel data operations
type FunnelRepository interface {
	CreateWithStages(ctx context.Context, funnel *models.Funnel, stages []*models.Stage) error
	GetByID(ctx context.Context, id string) (*models.Funnel, error)
	List(ctx context.Context) ([]*models.Funnel, error)
	// UpdateLayout renames the funnel, deletes removeIDs and writes every
	// stage in stages (insert or update) in one transaction
	UpdateLayout(ctx context.Context, funnel *models.Funnel, stages []models.Stage, removeIDs []string) error
	Delete(ctx context.Context, id string) error
}

// StageRepository defines the interface for stage data operations
type StageRepository interface {
	Create(ctx context.Context, stage *models.Stage) error
	GetByID(ctx context.Context, id string) (*models.Stage, error)
	ListByFunnel(ctx context.Context, funnelID string) ([]models.Stage, error)
	ListAll(ctx context.Context) ([]models.Stage, error)
	Rename(ctx context.Context, id, name string) error
	// Delete removes the stage and compacts the positions of its siblings
	Delete(ctx context.Context, id string) error
	UpdatePositions(ctx context.Context, stages []models.Stage) error
}

// CardRepository defines the interface for card data operations
type CardRepository interface {
	CreateWithTasks(ctx context.Context, card *models.Card, tasks []*models.Task, history string) error
	GetByID(ctx context.Context, id string) (*models.Card, error)
	ListByStages(ctx context.Context, stageIDs []string) ([]models.Card, error)
	ListAll(ctx context.Context) ([]models.Card, error)
	Update(ctx context.Context, card *models.Card, history string) error
	// Move writes the moved card's stage, position and closed_at plus the
	// positions of every other changed card in one transaction
	Move(ctx context.Context, moved models.Card, changed []models.Card, history string) error
	Delete(ctx context.Context, id string) error
	CountByStage(ctx context.Context, stageID string) (int, error)
	Count(ctx context.Context) (int, error)
	History(ctx context.Context, cardID string) ([]models.CardHistoryEntry, error)
	StreamAll(ctx context.Context, callback func(*models.Card) error) error
}

// TaskRepository defines the interface for task data operations
type TaskRepository interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
	ListByCards(ctx context.Context, cardIDs []string) ([]models.Task, error)
	ListAll(ctx context.Context) ([]models.Task, error)
	ListCalendar(ctx context.Context, from, to *models.Date) ([]models.CalendarTask, error)
}

// ContactRepository defines the interface for contact data operations
type ContactRepository interface {
	Create(ctx context.Context, contact *models.Contact) error
	Update(ctx context.Context, contact *models.Contact) error
	GetByID(ctx context.Context, id string) (*models.Contact, error)
	List(ctx context.Context, search string) ([]*models.Contact, error)
	Delete(ctx context.Context, id string) error
	BatchInsert(ctx context.Context, contacts []*models.Contact) (int, error)
	NamesByID(ctx context.Context, ids []string) (map[string]string, error)
	CreatedSince(ctx context.Context, since time.Time) ([]models.Contact, error)
	Count(ctx context.Context) (int, error)
	StreamAll(ctx context.Context, callback func(*models.Contact) error) error
}

// GoalRepository defines the interface for goal data operations
type GoalRepository interface {
	// Upsert inserts the goal or updates the one already set for its month
	Upsert(ctx context.Context, goal *models.Goal) error
	GetByID(ctx context.Context, id int64) (*models.Goal, error)
	List(ctx context.Context) ([]models.Goal, error)
	Delete(ctx context.Context, id int64) error
}

// JobRepository defines the interface for job data operations
type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
	GetByID(ctx context.Context, id string) (*models.Job, error)
	GetByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
	GetPendingJobs(ctx context.Context) ([]*models.Job, error)
	MarkJobAsProcessing(ctx context.Context, jobID string) (bool, error)
	AddErrors(ctx context.Context, jobID string, errors []models.ValidationError) error
	GetErrors(ctx context.Context, jobID string, limit int) ([]models.ValidationError, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	User    UserRepository
	Profile ProfileRepository
	Funnel  FunnelRepository
	Stage   StageRepository
	Card    CardRepository
	Task    TaskRepository
	Contact ContactRepository
	Goal    GoalRepository
	Job     JobRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		User:    NewUserRepo(db),
		Profile: NewProfileRepo(db),
		Funnel:  NewFunnelRepo(db),
		Stage:   NewStageRepo(db),
		Card:    NewCardRepo(db),
		Task:    NewTaskRepo(db),
		Contact: NewContactRepo(db),
		Goal:    NewGoalRepo(db),
		Job:     NewJobRepo(db),
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// helper to convert empty string to NULL
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullDate(d *models.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func datePtr(t sql.NullTime) *models.Date {
	if !t.Valid {
		return nil
	}
	d := models.NewDate(t.Time)
	return &d
}

// isUniqueViolation reports whether err is a Postgres unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
