package benchmark

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/funnel-crm-api/internal/config"
	"github.com/funnel-crm-api/internal/mocks"
	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/pipeline"
	"github.com/funnel-crm-api/internal/service"
	"github.com/funnel-crm-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func generateContacts(n int) []*models.Contact {
	contacts := make([]*models.Contact, n)
	now := time.Now()
	for i := 0; i < n; i++ {
		contacts[i] = &models.Contact{
			ID:        uuid.NewString(),
			Name:      fmt.Sprintf("Contact %06d", i),
			Email:     fmt.Sprintf("contact%06d@example.com", i),
			Phone:     "+55 11 99999-0000",
			Company:   "Acme",
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return contacts
}

// generateBoard builds stages*perStage cards spread over stages
func generateBoard(stages, perStage int) ([]models.Card, []string) {
	stageIDs := make([]string, stages)
	for i := range stageIDs {
		stageIDs[i] = uuid.NewString()
	}
	cards := make([]models.Card, 0, stages*perStage)
	for _, stageID := range stageIDs {
		for p := 0; p < perStage; p++ {
			cards = append(cards, models.Card{
				ID:       uuid.NewString(),
				StageID:  stageID,
				Title:    "Deal",
				Value:    decimal.NewFromInt(int64(100 * (p + 1))),
				Source:   "referral",
				Position: p,
			})
		}
	}
	return cards, stageIDs
}

// BenchmarkStreamContactsExport benchmarks the CSV export path end to end
func BenchmarkStreamContactsExport(b *testing.B) {
	repos, store := mocks.NewRepositories()
	for _, c := range generateContacts(1000) {
		store.Contacts[c.ID] = c
	}
	services := service.NewServices(repos, service.Deps{}, &config.Config{}, zerolog.Nop())
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		rec := httptest.NewRecorder()
		if err := services.Export.StreamResource(ctx, rec, models.ResourceContacts, "csv"); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkBatchInsertContacts benchmarks batch insert performance
func BenchmarkBatchInsertContacts(b *testing.B) {
	contacts := generateContacts(1000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		repos, _ := mocks.NewRepositories()
		if _, err := repos.Contact.BatchInsert(context.Background(), contacts); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(1000*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkValidateContactRow benchmarks per-row import validation
func BenchmarkValidateContactRow(b *testing.B) {
	rows := make([]models.ContactCSV, 1000)
	for i := range rows {
		rows[i] = models.ContactCSV{
			Name:       fmt.Sprintf("Contact %d", i),
			Email:      fmt.Sprintf("contact%d@example.com", i),
			Company:    "Acme",
			CompanyURL: "https://acme.example.com",
		}
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		row := rows[i%len(rows)]
		validation.ValidateContactRow(&row)
	}
}

// BenchmarkMoveCard benchmarks reordering inside a busy board
func BenchmarkMoveCard(b *testing.B) {
	cards, stageIDs := generateBoard(6, 200)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		card := cards[i%len(cards)]
		to := stageIDs[(i+1)%len(stageIDs)]
		if _, err := pipeline.MoveCard(cards, card.ID, to, i%50); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSummarize benchmarks dashboard aggregation
func BenchmarkSummarize(b *testing.B) {
	cards, _ := generateBoard(6, 500)
	now := time.Now()
	for i := 0; i < len(cards); i += 3 {
		closed := now.AddDate(0, 0, -i%90)
		cards[i].ClosedAt = &closed
	}
	contacts := make([]models.Contact, 0, 1000)
	for _, c := range generateContacts(1000) {
		contacts = append(contacts, *c)
	}
	goals := []models.Goal{{Month: int(now.Month()), Year: now.Year(), GoalAmount: decimal.NewFromInt(50000)}}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		pipeline.Summarize(cards, goals, contacts, now)
	}
}

// BenchmarkWorkerPoolSemaphore benchmarks semaphore acquire/release
func BenchmarkWorkerPoolSemaphore(b *testing.B) {
	sem := make(chan struct{}, 4)

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			sem <- struct{}{}
			<-sem
		}
	})
}
