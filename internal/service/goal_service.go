package service

import (
	"context"
	"fmt"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/funnel-crm-api/internal/validation"
	"github.com/rs/zerolog"
)

// goalService is the concrete implementation of GoalService
type goalService struct {
	repos *repository.Repositories
	log   zerolog.Logger
}

func newGoalService(repos *repository.Repositories, log zerolog.Logger) *goalService {
	return &goalService{
		repos: repos,
		log:   log.With().Str("service", "goal").Logger(),
	}
}

// List returns goals newest month first
func (s *goalService) List(ctx context.Context) ([]models.Goal, error) {
	goals, err := s.repos.Goal.List(ctx)
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []models.Goal{}
	}
	return goals, nil
}

// Upsert sets the goal of a month, replacing the amount if one exists
func (s *goalService) Upsert(ctx context.Context, actor *models.Profile, req *models.GoalRequest) (*models.Goal, error) {
	if err := checkInput(validation.ValidateGoal(req.Month, req.Year, req.GoalAmount)); err != nil {
		return nil, err
	}

	goal := &models.Goal{
		Month:      req.Month,
		Year:       req.Year,
		GoalAmount: req.GoalAmount,
		SetBy:      actor.ID,
	}
	if err := s.repos.Goal.Upsert(ctx, goal); err != nil {
		return nil, fmt.Errorf("failed to save goal: %w", err)
	}

	s.log.Info().
		Int("month", goal.Month).
		Int("year", goal.Year).
		Str("amount", goal.GoalAmount.String()).
		Msg("Goal saved")
	return goal, nil
}

func (s *goalService) Delete(ctx context.Context, id int64) error {
	goal, err := s.repos.Goal.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if goal == nil {
		return ErrNotFound
	}
	return s.repos.Goal.Delete(ctx, id)
}
