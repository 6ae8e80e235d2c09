package service

import (
	"context"
	"fmt"
	"time"

	"github.com/funnel-crm-api/internal/config"
	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/pipeline"
	"github.com/funnel-crm-api/internal/repository"
)

// Board change actions broadcast to websocket subscribers
const (
	ActionStageCreated  = "stage_created"
	ActionStageUpdated  = "stage_updated"
	ActionStageDeleted  = "stage_deleted"
	ActionStagesReorder = "stages_reordered"
	ActionFunnelUpdated = "funnel_updated"
	ActionFunnelDeleted = "funnel_deleted"
	ActionCardCreated   = "card_created"
	ActionCardUpdated   = "card_updated"
	ActionCardDeleted   = "card_deleted"
	ActionCardMoved     = "card_moved"
	ActionTaskChanged   = "task_changed"
)

// board holds what funnel, card and task services share: stage lookups,
// card decoration and change notification
type board struct {
	repos    *repository.Repositories
	cfg      *config.BoardConfig
	notifier BoardNotifier
	now      func() time.Time
}

func newBoard(repos *repository.Repositories, cfg *config.Config, notifier BoardNotifier) *board {
	return &board{
		repos:    repos,
		cfg:      &cfg.Board,
		notifier: notifier,
		now:      time.Now,
	}
}

// today returns the current time in the board's timezone
func (b *board) today() time.Time {
	return b.now().In(b.cfg.Location())
}

func (b *board) stage(ctx context.Context, id string) (*models.Stage, error) {
	stage, err := b.repos.Stage.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load stage: %w", err)
	}
	if stage == nil {
		return nil, ErrNotFound
	}
	return stage, nil
}

func (b *board) card(ctx context.Context, id string) (*models.Card, error) {
	card, err := b.repos.Card.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load card: %w", err)
	}
	if card == nil {
		return nil, ErrNotFound
	}
	return card, nil
}

// decorate attaches tasks and derived fields to cards
func (b *board) decorate(ctx context.Context, cards []models.Card, stageNames map[string]string) ([]models.CardView, error) {
	if len(cards) == 0 {
		return []models.CardView{}, nil
	}

	cardIDs := make([]string, 0, len(cards))
	var contactIDs []string
	for _, c := range cards {
		cardIDs = append(cardIDs, c.ID)
		if c.ContactID != "" {
			contactIDs = append(contactIDs, c.ContactID)
		}
	}

	tasks, err := b.repos.Task.ListByCards(ctx, cardIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	byCard := make(map[string][]models.Task, len(cards))
	for _, t := range tasks {
		byCard[t.CardID] = append(byCard[t.CardID], t)
	}

	names := map[string]string{}
	if len(contactIDs) > 0 {
		names, err = b.repos.Contact.NamesByID(ctx, contactIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to load contact names: %w", err)
		}
	}

	now := b.today()
	views := make([]models.CardView, 0, len(cards))
	for _, c := range cards {
		c.Tasks = byCard[c.ID]
		total, done := pipeline.TaskCounts(c.Tasks)
		views = append(views, models.CardView{
			Card:           c,
			Status:         pipeline.DeriveStatus(c.Tasks, now, b.cfg.DueLookaheadDays),
			StageName:      stageNames[c.StageID],
			ContactName:    names[c.ContactID],
			TasksCount:     total,
			TasksDoneCount: done,
		})
	}
	return views, nil
}

// view decorates a single card
func (b *board) view(ctx context.Context, card *models.Card) (*models.CardView, error) {
	stageNames := map[string]string{}
	if stage, err := b.repos.Stage.GetByID(ctx, card.StageID); err == nil && stage != nil {
		stageNames[stage.ID] = stage.Name
	}
	views, err := b.decorate(ctx, []models.Card{*card}, stageNames)
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// notifyStage broadcasts a change on the funnel owning stageID
func (b *board) notifyStage(ctx context.Context, stageID, action string, details interface{}) {
	stage, err := b.repos.Stage.GetByID(ctx, stageID)
	if err != nil || stage == nil {
		return
	}
	b.notifier.BoardChanged(ctx, stage.FunnelID, action, details)
}

// notifyCard broadcasts a change on the funnel owning cardID
func (b *board) notifyCard(ctx context.Context, cardID, action string, details interface{}) {
	card, err := b.repos.Card.GetByID(ctx, cardID)
	if err != nil || card == nil {
		return
	}
	b.notifyStage(ctx, card.StageID, action, details)
}
