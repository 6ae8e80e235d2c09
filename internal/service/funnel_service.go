package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/pipeline"
	"github.com/funnel-crm-api/internal/repository"
	"github.com/funnel-crm-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// funnelService is the concrete implementation of FunnelService
type funnelService struct {
	*board
	log zerolog.Logger
}

func newFunnelService(b *board, log zerolog.Logger) *funnelService {
	return &funnelService{
		board: b,
		log:   log.With().Str("service", "funnel").Logger(),
	}
}

// List returns every funnel with its stages in order
func (s *funnelService) List(ctx context.Context) ([]*models.Funnel, error) {
	funnels, err := s.repos.Funnel.List(ctx)
	if err != nil {
		return nil, err
	}
	stages, err := s.repos.Stage.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	byFunnel := make(map[string][]models.Stage, len(funnels))
	for _, st := range stages {
		byFunnel[st.FunnelID] = append(byFunnel[st.FunnelID], st)
	}
	for _, f := range funnels {
		f.Stages = byFunnel[f.ID]
		pipeline.SortStages(f.Stages)
	}
	return funnels, nil
}

// Get returns a funnel with its stages in order
func (s *funnelService) Get(ctx context.Context, id string) (*models.Funnel, error) {
	funnel, err := s.repos.Funnel.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if funnel == nil {
		return nil, ErrNotFound
	}
	funnel.Stages, err = s.repos.Stage.ListByFunnel(ctx, id)
	if err != nil {
		return nil, err
	}
	pipeline.SortStages(funnel.Stages)
	return funnel, nil
}

// Create inserts a funnel and its stages in the given order
func (s *funnelService) Create(ctx context.Context, actor *models.Profile, req *models.FunnelRequest) (*models.Funnel, error) {
	if err := checkInput(validation.ValidateFunnel(req.Name, req.Stages)); err != nil {
		return nil, err
	}

	now := time.Now()
	funnel := &models.Funnel{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		CreatedBy: actor.ID,
		CreatedAt: now,
	}
	stages := make([]*models.Stage, 0, len(req.Stages))
	for i, name := range req.Stages {
		stages = append(stages, &models.Stage{
			ID:        uuid.New().String(),
			FunnelID:  funnel.ID,
			Name:      strings.TrimSpace(name),
			Position:  i,
			CreatedBy: actor.ID,
			CreatedAt: now,
		})
	}

	if err := s.repos.Funnel.CreateWithStages(ctx, funnel, stages); err != nil {
		return nil, fmt.Errorf("failed to create funnel: %w", err)
	}
	for _, st := range stages {
		funnel.Stages = append(funnel.Stages, *st)
	}

	s.log.Info().Str("funnel_id", funnel.ID).Int("stages", len(stages)).Msg("Funnel created")
	return funnel, nil
}

// Update renames the funnel and lays its stages out in the requested order.
// Stages are matched by name: matches keep their id and cards, new names
// become stages and unmatched stages are removed if they hold no cards.
func (s *funnelService) Update(ctx context.Context, actor *models.Profile, id string, req *models.FunnelRequest) (*models.Funnel, error) {
	if err := checkInput(validation.ValidateFunnel(req.Name, req.Stages)); err != nil {
		return nil, err
	}
	funnel, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	existing := make(map[string]models.Stage, len(funnel.Stages))
	for _, st := range funnel.Stages {
		existing[strings.ToLower(strings.TrimSpace(st.Name))] = st
	}

	now := time.Now()
	layout := make([]models.Stage, 0, len(req.Stages))
	kept := make(map[string]bool, len(req.Stages))
	for i, name := range req.Stages {
		name = strings.TrimSpace(name)
		st, ok := existing[strings.ToLower(name)]
		if !ok {
			st = models.Stage{
				ID:        uuid.New().String(),
				FunnelID:  id,
				CreatedBy: actor.ID,
				CreatedAt: now,
			}
		}
		st.Name = name
		st.Position = i
		kept[st.ID] = true
		layout = append(layout, st)
	}

	var removeIDs []string
	for _, st := range funnel.Stages {
		if kept[st.ID] {
			continue
		}
		n, err := s.repos.Card.CountByStage(ctx, st.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count cards: %w", err)
		}
		if n > 0 {
			return nil, conflict(fmt.Sprintf("stage '%s' still has %d cards", st.Name, n))
		}
		removeIDs = append(removeIDs, st.ID)
	}

	funnel.Name = strings.TrimSpace(req.Name)
	if err := s.repos.Funnel.UpdateLayout(ctx, funnel, layout, removeIDs); err != nil {
		return nil, fmt.Errorf("failed to update funnel: %w", err)
	}
	funnel.Stages = layout

	s.log.Info().
		Str("funnel_id", id).
		Int("stages", len(layout)).
		Int("removed", len(removeIDs)).
		Msg("Funnel updated")
	s.notifier.BoardChanged(ctx, id, ActionFunnelUpdated, funnel)
	return funnel, nil
}

// Delete removes a funnel with its stages, cards and tasks
func (s *funnelService) Delete(ctx context.Context, id string) error {
	funnel, err := s.repos.Funnel.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if funnel == nil {
		return ErrNotFound
	}
	if err := s.repos.Funnel.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete funnel: %w", err)
	}
	s.log.Info().Str("funnel_id", id).Msg("Funnel deleted")
	s.notifier.BoardChanged(ctx, id, ActionFunnelDeleted, nil)
	return nil
}

// AddStage appends a stage to the end of a funnel
func (s *funnelService) AddStage(ctx context.Context, actor *models.Profile, funnelID, name string) (*models.Stage, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, inputError("name", "name is required")
	}
	funnel, err := s.Get(ctx, funnelID)
	if err != nil {
		return nil, err
	}
	for _, st := range funnel.Stages {
		if strings.EqualFold(strings.TrimSpace(st.Name), name) {
			return nil, conflict(fmt.Sprintf("stage '%s' already exists", name))
		}
	}

	stage := &models.Stage{
		ID:        uuid.New().String(),
		FunnelID:  funnelID,
		Name:      name,
		Position:  len(funnel.Stages),
		CreatedBy: actor.ID,
		CreatedAt: time.Now(),
	}
	if err := s.repos.Stage.Create(ctx, stage); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, conflict("stage position already taken, reload the board")
		}
		return nil, fmt.Errorf("failed to create stage: %w", err)
	}

	s.notifier.BoardChanged(ctx, funnelID, ActionStageCreated, stage)
	return stage, nil
}

// RenameStage changes a stage's name
func (s *funnelService) RenameStage(ctx context.Context, id, name string) (*models.Stage, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, inputError("name", "name is required")
	}
	stage, err := s.stage(ctx, id)
	if err != nil {
		return nil, err
	}

	siblings, err := s.repos.Stage.ListByFunnel(ctx, stage.FunnelID)
	if err != nil {
		return nil, err
	}
	for _, st := range siblings {
		if st.ID != id && strings.EqualFold(strings.TrimSpace(st.Name), name) {
			return nil, conflict(fmt.Sprintf("stage '%s' already exists", name))
		}
	}

	if err := s.repos.Stage.Rename(ctx, id, name); err != nil {
		return nil, fmt.Errorf("failed to rename stage: %w", err)
	}
	stage.Name = name
	s.notifier.BoardChanged(ctx, stage.FunnelID, ActionStageUpdated, stage)
	return stage, nil
}

// DeleteStage removes a stage and its cards, closing the gap in positions
func (s *funnelService) DeleteStage(ctx context.Context, id string) error {
	stage, err := s.stage(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repos.Stage.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete stage: %w", err)
	}
	s.log.Info().Str("stage_id", id).Str("funnel_id", stage.FunnelID).Msg("Stage deleted")
	s.notifier.BoardChanged(ctx, stage.FunnelID, ActionStageDeleted, map[string]string{"stage_id": id})
	return nil
}

// ReorderStage moves a stage to a new index and rewrites every position
func (s *funnelService) ReorderStage(ctx context.Context, funnelID string, req *models.ReorderStageRequest) ([]models.Stage, error) {
	funnel, err := s.Get(ctx, funnelID)
	if err != nil {
		return nil, err
	}

	if req.ToIndex == nil {
		return nil, inputError("to_index", "to_index is required")
	}
	stages, err := pipeline.MoveStage(funnel.Stages, req.StageID, *req.ToIndex)
	if err != nil {
		if errors.Is(err, pipeline.ErrStageNotFound) {
			return nil, inputError("stage_id", "stage does not belong to this funnel")
		}
		return nil, err
	}
	if err := s.repos.Stage.UpdatePositions(ctx, stages); err != nil {
		return nil, fmt.Errorf("failed to reorder stages: %w", err)
	}

	s.log.Debug().Str("funnel_id", funnelID).Str("stage_id", req.StageID).Int("to_index", *req.ToIndex).Msg("Stages reordered")
	s.notifier.BoardChanged(ctx, funnelID, ActionStagesReorder, stages)
	return stages, nil
}

// Board returns the kanban projection of a funnel
func (s *funnelService) Board(ctx context.Context, funnelID string) (*models.Board, error) {
	funnel, err := s.Get(ctx, funnelID)
	if err != nil {
		return nil, err
	}
	views, err := s.cardViews(ctx, funnel)
	if err != nil {
		return nil, err
	}

	byStage := make(map[string][]models.CardView, len(funnel.Stages))
	for _, v := range views {
		byStage[v.StageID] = append(byStage[v.StageID], v)
	}

	b := &models.Board{Columns: make([]models.BoardColumn, 0, len(funnel.Stages))}
	for _, st := range funnel.Stages {
		cards := byStage[st.ID]
		if cards == nil {
			cards = []models.CardView{}
		}
		b.Columns = append(b.Columns, models.BoardColumn{
			Stage:  st,
			Closed: s.cfg.IsClosedStage(st.Name),
			Cards:  cards,
		})
	}
	funnel.Stages = nil
	b.Funnel = *funnel
	return b, nil
}

// BoardList returns the funnel's cards as a flat list in stage order
func (s *funnelService) BoardList(ctx context.Context, funnelID string) ([]models.CardView, error) {
	funnel, err := s.Get(ctx, funnelID)
	if err != nil {
		return nil, err
	}
	return s.cardViews(ctx, funnel)
}

// cardViews loads the funnel's cards ordered by stage then position
func (s *funnelService) cardViews(ctx context.Context, funnel *models.Funnel) ([]models.CardView, error) {
	if len(funnel.Stages) == 0 {
		return []models.CardView{}, nil
	}

	stageIDs := make([]string, 0, len(funnel.Stages))
	names := make(map[string]string, len(funnel.Stages))
	for _, st := range funnel.Stages {
		stageIDs = append(stageIDs, st.ID)
		names[st.ID] = st.Name
	}
	cards, err := s.repos.Card.ListByStages(ctx, stageIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load cards: %w", err)
	}

	byStage := make(map[string][]models.Card, len(stageIDs))
	for _, c := range cards {
		byStage[c.StageID] = append(byStage[c.StageID], c)
	}
	ordered := make([]models.Card, 0, len(cards))
	for _, id := range stageIDs {
		column := byStage[id]
		pipeline.SortCards(column)
		ordered = append(ordered, column...)
	}
	return s.decorate(ctx, ordered, names)
}
