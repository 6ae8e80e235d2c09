package service

import (
	"context"
	"fmt"
	"time"

	"github.com/funnel-crm-api/internal/config"
	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/pipeline"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/rs/zerolog"
)

// dashboardService is the concrete implementation of DashboardService
type dashboardService struct {
	repos *repository.Repositories
	cfg   *config.BoardConfig
	now   func() time.Time
	log   zerolog.Logger
}

func newDashboardService(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *dashboardService {
	return &dashboardService{
		repos: repos,
		cfg:   &cfg.Board,
		now:   time.Now,
		log:   log.With().Str("service", "dashboard").Logger(),
	}
}

// Get aggregates the dashboard for the current month
func (s *dashboardService) Get(ctx context.Context) (*models.Dashboard, error) {
	start := time.Now()
	now := s.now().In(s.cfg.Location())

	cards, err := s.repos.Card.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}
	tasks, err := s.repos.Task.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	byCard := make(map[string][]models.Task, len(cards))
	for _, t := range tasks {
		byCard[t.CardID] = append(byCard[t.CardID], t)
	}
	for i := range cards {
		cards[i].Tasks = byCard[cards[i].ID]
	}

	goals, err := s.repos.Goal.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}

	// first day of the oldest month in the activity series
	since := time.Date(now.Year(), now.Month()-(pipeline.ActivityMonths-1), 1, 0, 0, 0, 0, now.Location())
	contacts, err := s.repos.Contact.CreatedSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load contacts: %w", err)
	}

	d := pipeline.Summarize(cards, goals, contacts, now)

	s.log.Debug().
		Int("cards", len(cards)).
		Int("goals", len(goals)).
		Dur("took", time.Since(start)).
		Msg("Dashboard aggregated")
	return &d, nil
}
