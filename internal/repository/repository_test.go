package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/funnel-crm-api/internal/mocks"
	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/shopspring/decimal"
)

func TestMockGoalRepository_UpsertKeepsOneGoalPerMonth(t *testing.T) {
	repo := mocks.NewMockGoalRepository()
	ctx := context.Background()

	first := &models.Goal{Month: 6, Year: 2026, GoalAmount: decimal.NewFromInt(1000)}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if first.ID == 0 {
		t.Fatal("Expected ID to be assigned")
	}

	second := &models.Goal{Month: 6, Year: 2026, GoalAmount: decimal.NewFromInt(1500)}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("Expected same goal %d to be updated, got %d", first.ID, second.ID)
	}
	goals, _ := repo.List(ctx)
	if len(goals) != 1 {
		t.Fatalf("Expected 1 goal, got %d", len(goals))
	}
	if !goals[0].GoalAmount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("Expected amount 1500, got %s", goals[0].GoalAmount)
	}
}

func TestMockGoalRepository_ListOrder(t *testing.T) {
	repo := mocks.NewMockGoalRepository()
	ctx := context.Background()

	for _, ym := range [][2]int{{2025, 11}, {2026, 2}, {2026, 1}} {
		repo.Upsert(ctx, &models.Goal{Year: ym[0], Month: ym[1], GoalAmount: decimal.NewFromInt(1)})
	}

	goals, _ := repo.List(ctx)
	got := fmt.Sprintf("%d-%d,%d-%d,%d-%d", goals[0].Year, goals[0].Month, goals[1].Year, goals[1].Month, goals[2].Year, goals[2].Month)
	if got != "2026-2,2026-1,2025-11" {
		t.Errorf("Unexpected order %s", got)
	}
}

func TestMockUserRepository_DuplicateEmail(t *testing.T) {
	repo := mocks.NewMockUserRepository()
	ctx := context.Background()

	user := &models.User{ID: "u1", Email: "ana@example.com"}
	profile := &models.Profile{ID: "u1", FirstName: "Ana", Role: models.RoleUser}
	if err := repo.CreateWithProfile(ctx, user, profile); err != nil {
		t.Fatalf("CreateWithProfile failed: %v", err)
	}

	dup := &models.User{ID: "u2", Email: "ANA@example.com"}
	err := repo.CreateWithProfile(ctx, dup, &models.Profile{ID: "u2", FirstName: "Other"})
	if err != repository.ErrDuplicate {
		t.Errorf("Expected ErrDuplicate, got %v", err)
	}

	found, _ := repo.GetByEmail(ctx, "Ana@Example.com")
	if found == nil || found.ID != "u1" {
		t.Error("Expected case-insensitive lookup to find u1")
	}
}

func TestMockRepositories_FunnelDeleteCascades(t *testing.T) {
	repos, store := mocks.NewRepositories()
	ctx := context.Background()

	funnel := &models.Funnel{ID: "f1", Name: "Vendas", CreatedAt: time.Now()}
	stages := []*models.Stage{
		{ID: "s1", FunnelID: "f1", Name: "Lead", Position: 0},
		{ID: "s2", FunnelID: "f1", Name: "Fechado", Position: 1},
	}
	repos.Funnel.CreateWithStages(ctx, funnel, stages)
	repos.Card.CreateWithTasks(ctx, &models.Card{ID: "c1", StageID: "s2", Title: "Deal"},
		[]*models.Task{{ID: "t1", CardID: "c1", Text: "Call"}}, "Card created.")

	if err := repos.Funnel.Delete(ctx, "f1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	if len(store.Stages) != 0 || len(store.Cards) != 0 || len(store.Tasks) != 0 {
		t.Errorf("Expected cascade, left stages=%d cards=%d tasks=%d",
			len(store.Stages), len(store.Cards), len(store.Tasks))
	}
	if len(store.CardHistory("c1")) != 0 {
		t.Error("Expected history to cascade")
	}
}

func TestMockStageRepository_DeleteCompactsPositions(t *testing.T) {
	repos, _ := mocks.NewRepositories()
	ctx := context.Background()

	repos.Funnel.CreateWithStages(ctx, &models.Funnel{ID: "f1", Name: "Vendas"}, []*models.Stage{
		{ID: "a", FunnelID: "f1", Position: 0},
		{ID: "b", FunnelID: "f1", Position: 1},
		{ID: "c", FunnelID: "f1", Position: 2},
	})

	if err := repos.Stage.Delete(ctx, "b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	stages, _ := repos.Stage.ListByFunnel(ctx, "f1")
	if len(stages) != 2 {
		t.Fatalf("Expected 2 stages, got %d", len(stages))
	}
	if stages[0].ID != "a" || stages[0].Position != 0 || stages[1].ID != "c" || stages[1].Position != 1 {
		t.Errorf("Unexpected stages after delete: %+v", stages)
	}
}

func TestMockContactRepository_DeleteDetachesCards(t *testing.T) {
	repos, store := mocks.NewRepositories()
	ctx := context.Background()

	repos.Contact.Create(ctx, &models.Contact{ID: "p1", Name: "Maria"})
	repos.Card.CreateWithTasks(ctx, &models.Card{ID: "c1", StageID: "s1", ContactID: "p1"}, nil, "")

	repos.Contact.Delete(ctx, "p1")

	if store.Cards["c1"] == nil {
		t.Fatal("Card should survive contact deletion")
	}
	if store.Cards["c1"].ContactID != "" {
		t.Error("Expected contact reference to be cleared")
	}
}

func TestMockContactRepository_Search(t *testing.T) {
	repo := mocks.NewMockContactRepository()
	ctx := context.Background()

	repo.Create(ctx, &models.Contact{ID: "1", Name: "Bruno", Company: "Acme"})
	repo.Create(ctx, &models.Contact{ID: "2", Name: "alice", Email: "alice@acme.io"})
	repo.Create(ctx, &models.Contact{ID: "3", Name: "Carla", Company: "Globex"})

	all, _ := repo.List(ctx, "")
	if len(all) != 3 || all[0].Name != "alice" {
		t.Errorf("Expected 3 contacts sorted case-insensitively, got %+v", all)
	}

	found, _ := repo.List(ctx, "ACME")
	if len(found) != 2 {
		t.Errorf("Expected 2 matches for ACME, got %d", len(found))
	}
}

func TestMockJobRepository_PendingJobs(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	jobs := []*models.Job{
		{ID: "job-1", Status: models.JobStatusPending, Resource: models.ResourceContacts},
		{ID: "job-2", Status: models.JobStatusProcessing, Resource: models.ResourceContacts},
		{ID: "job-3", Status: models.JobStatusPending, Resource: models.ResourceContacts},
		{ID: "job-4", Status: models.JobStatusCompleted, Resource: models.ResourceContacts},
	}
	for _, job := range jobs {
		repo.Create(ctx, job)
	}

	pending, err := repo.GetPendingJobs(ctx)
	if err != nil {
		t.Fatalf("GetPendingJobs failed: %v", err)
	}
	if len(pending) != 2 {
		t.Errorf("Expected 2 pending jobs, got %d", len(pending))
	}
}

func TestMockJobRepository_MarkAsProcessing(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	repo.Create(ctx, &models.Job{ID: "job-1", Status: models.JobStatusPending})

	marked, err := repo.MarkJobAsProcessing(ctx, "job-1")
	if err != nil {
		t.Fatalf("MarkJobAsProcessing failed: %v", err)
	}
	if !marked {
		t.Error("Job should be marked as processing")
	}

	// already processing
	marked, _ = repo.MarkJobAsProcessing(ctx, "job-1")
	if marked {
		t.Error("Job should not be marked again")
	}
}

func TestMockJobRepository_ValidationErrors(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	repo.Create(ctx, &models.Job{ID: "job-1", Status: models.JobStatusPending})
	repo.AddErrors(ctx, "job-1", []models.ValidationError{
		{Line: 5, Field: "name", Message: "name is required"},
		{Line: 2, Field: "email", Message: "invalid email format", Value: "not-an-email"},
		{Line: 3, Field: "company_url", Message: "invalid URL", Value: "acme"},
	})

	retrieved, err := repo.GetErrors(ctx, "job-1", 0)
	if err != nil {
		t.Fatalf("GetErrors failed: %v", err)
	}
	if len(retrieved) != 3 || retrieved[0].Line != 2 {
		t.Errorf("Expected 3 errors ordered by line, got %+v", retrieved)
	}

	retrieved, _ = repo.GetErrors(ctx, "job-1", 2)
	if len(retrieved) != 2 {
		t.Errorf("Expected 2 errors with limit, got %d", len(retrieved))
	}
}

func TestMockJobRepository_IdempotencyKey(t *testing.T) {
	repo := mocks.NewMockJobRepository()
	ctx := context.Background()

	repo.Create(ctx, &models.Job{ID: "job-1", Status: models.JobStatusPending, IdempotencyKey: "unique-key-123"})

	retrieved, err := repo.GetByIdempotencyKey(ctx, "unique-key-123")
	if err != nil {
		t.Fatalf("GetByIdempotencyKey failed: %v", err)
	}
	if retrieved == nil || retrieved.ID != "job-1" {
		t.Fatal("Job should be found by idempotency key")
	}

	if err := repo.Create(ctx, &models.Job{ID: "job-2", IdempotencyKey: "unique-key-123"}); err != repository.ErrDuplicate {
		t.Errorf("Expected ErrDuplicate for reused key, got %v", err)
	}

	retrieved, _ = repo.GetByIdempotencyKey(ctx, "non-existent")
	if retrieved != nil {
		t.Error("Should not find job with non-existent key")
	}
}

func TestMockCardRepository_Count(t *testing.T) {
	repos, _ := mocks.NewRepositories()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		repos.Card.CreateWithTasks(ctx, &models.Card{ID: fmt.Sprintf("c%d", i), StageID: "s1", Title: "Deal"}, nil, "")
	}
	repos.Card.Delete(ctx, "c1")

	n, err := repos.Card.Count(ctx)
	if err != nil || n != 2 {
		t.Errorf("Expected 2 cards, got %d (%v)", n, err)
	}
}
