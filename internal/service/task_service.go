package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/funnel-crm-api/internal/models"
	"github.com/funnel-crm-api/internal/validation"
	"github.com/rs/zerolog"
)

// taskService is the concrete implementation of TaskService
type taskService struct {
	*board
	log zerolog.Logger
}

func newTaskService(b *board, log zerolog.Logger) *taskService {
	return &taskService{
		board: b,
		log:   log.With().Str("service", "task").Logger(),
	}
}

func (s *taskService) ListByCard(ctx context.Context, cardID string) ([]models.Task, error) {
	if _, err := s.card(ctx, cardID); err != nil {
		return nil, err
	}
	tasks, err := s.repos.Task.ListByCards(ctx, []string{cardID})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

func (s *taskService) Create(ctx context.Context, actor *models.Profile, cardID string, in *models.TaskInput) (*models.Task, error) {
	if err := checkInput(validation.ValidateTask(in.Text, in.Priority)); err != nil {
		return nil, err
	}
	card, err := s.card(ctx, cardID)
	if err != nil {
		return nil, err
	}

	task := newTask(card.ID, actor.ID, in, time.Now())
	if err := s.repos.Task.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	s.notifyStage(ctx, card.StageID, ActionTaskChanged, task)
	return task, nil
}

// Update edits a task. ClearDueDate removes the due date.
func (s *taskService) Update(ctx context.Context, id string, req *models.UpdateTaskRequest) (*models.Task, error) {
	task, err := s.repos.Task.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, ErrNotFound
	}

	if req.Text != nil {
		task.Text = strings.TrimSpace(*req.Text)
	}
	if req.Completed != nil {
		task.Completed = *req.Completed
	}
	if req.Priority != nil {
		task.Priority = *req.Priority
	}
	switch {
	case req.ClearDueDate:
		task.DueDate = nil
	case req.DueDate != nil:
		task.DueDate = req.DueDate
	}
	if err := checkInput(validation.ValidateTask(task.Text, task.Priority)); err != nil {
		return nil, err
	}

	if err := s.repos.Task.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	s.notifyCard(ctx, task.CardID, ActionTaskChanged, task)
	return task, nil
}

func (s *taskService) Delete(ctx context.Context, id string) error {
	task, err := s.repos.Task.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task == nil {
		return ErrNotFound
	}
	if err := s.repos.Task.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.notifyCard(ctx, task.CardID, ActionTaskChanged, map[string]string{"task_id": id, "card_id": task.CardID})
	return nil
}

// Calendar groups tasks by due date ascending. Undated tasks form the last
// group and are only included when no range is given.
func (s *taskService) Calendar(ctx context.Context, from, to *models.Date) ([]models.CalendarDay, error) {
	if from != nil && to != nil && to.Before(from.Time) {
		return nil, inputError("to", "to must not be before from")
	}
	tasks, err := s.repos.Task.ListCalendar(ctx, from, to)
	if err != nil {
		return nil, err
	}
	return groupByDueDate(tasks), nil
}

func groupByDueDate(tasks []models.CalendarTask) []models.CalendarDay {
	days := []models.CalendarDay{}
	index := map[string]int{}
	var undated []models.CalendarTask

	for _, t := range tasks {
		if t.DueDate == nil {
			undated = append(undated, t)
			continue
		}
		key := t.DueDate.String()
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, models.CalendarDay{Date: key})
		}
		days[i].Tasks = append(days[i].Tasks, t)
	}
	if len(undated) > 0 {
		days = append(days, models.CalendarDay{Tasks: undated})
	}
	return days
}
