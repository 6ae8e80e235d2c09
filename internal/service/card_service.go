package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/funnel-crm-api/internal/metrics"
	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/pipeline"
	"github.com/funnel-crm-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// History lines written on card mutations
const (
	historyCreated = "Card created."
	historyUpdated = "Card updated."
	historyMoved   = "Moved from '%s' to '%s'."
)

// cardService is the concrete implementation of CardService
type cardService struct {
	*board
	metrics *metrics.Metrics
	log     zerolog.Logger
}

func newCardService(b *board, m *metrics.Metrics, log zerolog.Logger) *cardService {
	return &cardService{
		board:   b,
		metrics: m,
		log:     log.With().Str("service", "card").Logger(),
	}
}

// Create inserts a card at the end of its stage together with its tasks
func (s *cardService) Create(ctx context.Context, actor *models.Profile, req *models.CreateCardRequest) (*models.CardView, error) {
	if actor == nil {
		return nil, ErrUnauthorized
	}
	if err := checkInput(validation.ValidateCard(req)); err != nil {
		return nil, err
	}

	stage, err := s.repos.Stage.GetByID(ctx, req.StageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage: %w", err)
	}
	if stage == nil {
		return nil, inputError("stage_id", "stage does not exist")
	}
	if req.ContactID != "" {
		contact, err := s.repos.Contact.GetByID(ctx, req.ContactID)
		if err != nil {
			return nil, fmt.Errorf("failed to load contact: %w", err)
		}
		if contact == nil {
			return nil, inputError("contact_id", "contact does not exist")
		}
	}

	position, err := s.repos.Card.CountByStage(ctx, stage.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count cards: %w", err)
	}

	now := time.Now()
	card := &models.Card{
		ID:           uuid.New().String(),
		StageID:      stage.ID,
		ContactID:    req.ContactID,
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Value:        decimal.Zero,
		Source:       strings.TrimSpace(req.Source),
		CompanyName:  req.CompanyName,
		BusinessType: req.BusinessType,
		Position:     position,
		CreatedBy:    actor.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.Value != nil {
		card.Value = *req.Value
	}
	if s.cfg.IsClosedStage(stage.Name) {
		card.ClosedAt = &now
	}

	tasks := make([]*models.Task, 0, len(req.Tasks))
	for _, in := range req.Tasks {
		tasks = append(tasks, newTask(card.ID, actor.ID, &in, now))
	}

	if err := s.repos.Card.CreateWithTasks(ctx, card, tasks, historyCreated); err != nil {
		return nil, fmt.Errorf("failed to create card: %w", err)
	}

	s.log.Info().
		Str("card_id", card.ID).
		Str("stage_id", stage.ID).
		Int("tasks", len(tasks)).
		Msg("Card created")

	view, err := s.view(ctx, card)
	if err != nil {
		return nil, err
	}
	s.notifier.BoardChanged(ctx, stage.FunnelID, ActionCardCreated, view)
	return view, nil
}

// Get returns a card with its tasks and derived status
func (s *cardService) Get(ctx context.Context, id string) (*models.CardView, error) {
	card, err := s.card(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, card)
}

// Update edits card fields. The stage is changed only through Move.
func (s *cardService) Update(ctx context.Context, id string, req *models.UpdateCardRequest) (*models.CardView, error) {
	card, err := s.card(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		card.Title = strings.TrimSpace(*req.Title)
	}
	if req.ContactID != nil {
		card.ContactID = *req.ContactID
	}
	if req.Description != nil {
		card.Description = *req.Description
	}
	if req.Value != nil {
		card.Value = *req.Value
	}
	if req.Source != nil {
		card.Source = strings.TrimSpace(*req.Source)
	}
	if req.CompanyName != nil {
		card.CompanyName = *req.CompanyName
	}
	if req.BusinessType != nil {
		card.BusinessType = *req.BusinessType
	}

	check := &models.CreateCardRequest{
		Title:     card.Title,
		StageID:   card.StageID,
		ContactID: card.ContactID,
		Value:     &card.Value,
	}
	if err := checkInput(validation.ValidateCard(check)); err != nil {
		return nil, err
	}
	if req.ContactID != nil && card.ContactID != "" {
		contact, err := s.repos.Contact.GetByID(ctx, card.ContactID)
		if err != nil {
			return nil, fmt.Errorf("failed to load contact: %w", err)
		}
		if contact == nil {
			return nil, inputError("contact_id", "contact does not exist")
		}
	}

	if err := s.repos.Card.Update(ctx, card, historyUpdated); err != nil {
		return nil, fmt.Errorf("failed to update card: %w", err)
	}

	view, err := s.view(ctx, card)
	if err != nil {
		return nil, err
	}
	s.notifyStage(ctx, card.StageID, ActionCardUpdated, view)
	return view, nil
}

// Delete removes a card with its tasks and history
func (s *cardService) Delete(ctx context.Context, id string) error {
	card, err := s.card(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.Card.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete card: %w", err)
	}
	s.log.Info().Str("card_id", id).Msg("Card deleted")
	s.notifyStage(ctx, card.StageID, ActionCardDeleted, map[string]string{"card_id": id})
	return nil
}

// Move places a card into a stage at an index, renumbering the source and
// destination stages. Entering a closed stage stamps closed_at, leaving one
// clears it.
func (s *cardService) Move(ctx context.Context, id string, req *models.MoveCardRequest) (*models.CardView, error) {
	card, err := s.card(ctx, id)
	if err != nil {
		return nil, err
	}
	from, err := s.stage(ctx, card.StageID)
	if err != nil {
		return nil, err
	}
	to, err := s.repos.Stage.GetByID(ctx, req.StageID)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage: %w", err)
	}
	if to == nil {
		return nil, inputError("stage_id", "stage does not exist")
	}
	if to.FunnelID != from.FunnelID {
		return nil, inputError("stage_id", "stage belongs to another funnel")
	}

	stageIDs := []string{from.ID}
	if to.ID != from.ID {
		stageIDs = append(stageIDs, to.ID)
	}
	cards, err := s.repos.Card.ListByStages(ctx, stageIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}

	index := -1
	if req.ToIndex != nil {
		index = *req.ToIndex
	}
	move, err := pipeline.MoveCard(cards, id, to.ID, index)
	if err != nil {
		if errors.Is(err, pipeline.ErrCardNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	moved := move.Card
	switch {
	case !s.cfg.IsClosedStage(to.Name):
		moved.ClosedAt = nil
	case moved.ClosedAt == nil || !s.cfg.IsClosedStage(from.Name):
		now := time.Now()
		moved.ClosedAt = &now
	}

	history := ""
	if from.ID != to.ID {
		history = fmt.Sprintf(historyMoved, from.Name, to.Name)
	}
	if err := s.repos.Card.Move(ctx, moved, move.Changed, history); err != nil {
		return nil, fmt.Errorf("failed to move card: %w", err)
	}
	s.metrics.CardMoved()

	s.log.Debug().
		Str("card_id", id).
		Str("from_stage", from.ID).
		Str("to_stage", to.ID).
		Int("position", moved.Position).
		Msg("Card moved")

	stageNames := map[string]string{to.ID: to.Name}
	views, err := s.decorate(ctx, []models.Card{moved}, stageNames)
	if err != nil {
		return nil, err
	}
	view := &views[0]
	s.notifier.BoardChanged(ctx, to.FunnelID, ActionCardMoved, map[string]interface{}{
		"card_id":    id,
		"from_stage": from.ID,
		"to_stage":   to.ID,
		"position":   moved.Position,
	})
	return view, nil
}

// History returns the card's log, oldest first
func (s *cardService) History(ctx context.Context, id string) ([]models.CardHistoryEntry, error) {
	if _, err := s.card(ctx, id); err != nil {
		return nil, err
	}
	return s.repos.Card.History(ctx, id)
}

// newTask builds a task from input, defaulting the priority to low
func newTask(cardID, createdBy string, in *models.TaskInput, now time.Time) *models.Task {
	priority := in.Priority
	if priority == "" {
		priority = models.PriorityLow
	}
	return &models.Task{
		ID:        uuid.New().String(),
		CardID:    cardID,
		Text:      strings.TrimSpace(in.Text),
		DueDate:   in.DueDate,
		Priority:  priority,
		CreatedBy: createdBy,
		CreatedAt: now,
	}
}
