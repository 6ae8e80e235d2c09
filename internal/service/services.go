package service

import (
	"context"
	"net/http"

	"github.com/funnel-crm-api/internal/auth"
	"github.com/funnel-crm-api/internal/config"
	"github.com/funnel-crm-api/internal/metrics"
	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/rs/zerolog"
)

// AuthService defines the interface for sessions and API keys
type AuthService interface {
	Setup(ctx context.Context, req *models.SetupRequest) (*models.LoginResponse, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, claims *auth.Claims) error
	// Authenticate resolves a bearer token or API key to the caller's profile
	Authenticate(ctx context.Context, token string) (*models.Profile, *auth.Claims, error)
	GenerateAPIKey(ctx context.Context, profile *models.Profile) (*models.APIKeyResponse, error)
}

// UserService defines the interface for user management
type UserService interface {
	List(ctx context.Context) ([]*models.Profile, error)
	Create(ctx context.Context, actor *models.Profile, req *models.CreateUserRequest) (*models.Profile, error)
	Update(ctx context.Context, actor *models.Profile, id string, req *models.UpdateUserRequest) (*models.Profile, error)
}

// FunnelService defines the interface for funnels, stages and the board
type FunnelService interface {
	List(ctx context.Context) ([]*models.Funnel, error)
	Get(ctx context.Context, id string) (*models.Funnel, error)
	Create(ctx context.Context, actor *models.Profile, req *models.FunnelRequest) (*models.Funnel, error)
	Update(ctx context.Context, actor *models.Profile, id string, req *models.FunnelRequest) (*models.Funnel, error)
	Delete(ctx context.Context, id string) error
	AddStage(ctx context.Context, actor *models.Profile, funnelID, name string) (*models.Stage, error)
	RenameStage(ctx context.Context, id, name string) (*models.Stage, error)
	DeleteStage(ctx context.Context, id string) error
	ReorderStage(ctx context.Context, funnelID string, req *models.ReorderStageRequest) ([]models.Stage, error)
	Board(ctx context.Context, funnelID string) (*models.Board, error)
	BoardList(ctx context.Context, funnelID string) ([]models.CardView, error)
}

// CardService defines the interface for card operations
type CardService interface {
	Create(ctx context.Context, actor *models.Profile, req *models.CreateCardRequest) (*models.CardView, error)
	Get(ctx context.Context, id string) (*models.CardView, error)
	Update(ctx context.Context, id string, req *models.UpdateCardRequest) (*models.CardView, error)
	Delete(ctx context.Context, id string) error
	Move(ctx context.Context, id string, req *models.MoveCardRequest) (*models.CardView, error)
	History(ctx context.Context, id string) ([]models.CardHistoryEntry, error)
}

// TaskService defines the interface for task operations
type TaskService interface {
	ListByCard(ctx context.Context, cardID string) ([]models.Task, error)
	Create(ctx context.Context, actor *models.Profile, cardID string, in *models.TaskInput) (*models.Task, error)
	Update(ctx context.Context, id string, req *models.UpdateTaskRequest) (*models.Task, error)
	Delete(ctx context.Context, id string) error
	Calendar(ctx context.Context, from, to *models.Date) ([]models.CalendarDay, error)
}

// ContactService defines the interface for contact operations
type ContactService interface {
	List(ctx context.Context, search string) ([]*models.Contact, error)
	Get(ctx context.Context, id string) (*models.Contact, error)
	Create(ctx context.Context, actor *models.Profile, req *models.ContactRequest) (*models.Contact, error)
	Update(ctx context.Context, id string, req *models.ContactRequest) (*models.Contact, error)
	Delete(ctx context.Context, id string) error
}

// GoalService defines the interface for monthly revenue goals
type GoalService interface {
	List(ctx context.Context) ([]models.Goal, error)
	Upsert(ctx context.Context, actor *models.Profile, req *models.GoalRequest) (*models.Goal, error)
	Delete(ctx context.Context, id int64) error
}

// DashboardService defines the interface for dashboard aggregation
type DashboardService interface {
	Get(ctx context.Context) (*models.Dashboard, error)
}

// ImportService defines the interface for import operations
type ImportService interface {
	CreateImportJob(ctx context.Context, req *models.ImportRequest, filePath string) (*models.Job, error)
	ProcessImport(ctx context.Context, job *models.Job) error
}

// ExportService defines the interface for export operations
type ExportService interface {
	StreamResource(ctx context.Context, w http.ResponseWriter, resource, format string) error
	GetCount(ctx context.Context, resource string) (int, error)
}

// JobService defines the interface for job management
type JobService interface {
	StartProcessor(ctx context.Context)
	StopProcessor()
	GetJob(ctx context.Context, id string) (*models.JobResponse, error)
	GetJobByIdempotencyKey(ctx context.Context, key string) (*models.Job, error)
	GetJobErrors(ctx context.Context, id string) ([]models.ValidationError, error)
	SetImportService(importService ImportService)
}

// BoardNotifier receives board mutations for live subscribers
type BoardNotifier interface {
	BoardChanged(ctx context.Context, funnelID, action string, details interface{})
}

type nopNotifier struct{}

func (nopNotifier) BoardChanged(context.Context, string, string, interface{}) {}

// Deps are the collaborators shared by services besides the repositories
type Deps struct {
	Tokens      *auth.TokenIssuer
	Revocations auth.RevocationStore
	Notifier    BoardNotifier // optional
	Metrics     *metrics.Metrics
}

// Services holds all service interfaces
type Services struct {
	Auth      AuthService
	User      UserService
	Funnel    FunnelService
	Card      CardService
	Task      TaskService
	Contact   ContactService
	Goal      GoalService
	Dashboard DashboardService
	Import    ImportService
	Export    ExportService
	Job       JobService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, deps Deps, cfg *config.Config, log zerolog.Logger) *Services {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Revocations == nil {
		deps.Revocations = auth.NewMemoryRevocationStore()
	}
	b := newBoard(repos, cfg, deps.Notifier)

	jobSvc := newJobService(repos.Job, deps.Metrics, log)
	importSvc := newImportService(repos, jobSvc, deps.Metrics, cfg, log)
	exportSvc := newExportService(repos, log)

	// Wire up job processor to import service
	jobSvc.SetImportService(importSvc)

	return &Services{
		Auth:      newAuthService(repos, deps.Tokens, deps.Revocations, log),
		User:      newUserService(repos, log),
		Funnel:    newFunnelService(b, log),
		Card:      newCardService(b, deps.Metrics, log),
		Task:      newTaskService(b, log),
		Contact:   newContactService(repos, log),
		Goal:      newGoalService(repos, log),
		Dashboard: newDashboardService(repos, cfg, log),
		Import:    importSvc,
		Export:    exportSvc,
		Job:       jobSvc,
	}
}
