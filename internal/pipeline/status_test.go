package pipeline

import (
	"testing"
	"time"

	"github.com/funnel-crm-api/internal/models"
)

func dateAt(now time.Time, days int) *models.Date {
	d := models.NewDate(now.AddDate(0, 0, days))
	return &d
}

func TestDeriveStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name      string
		tasks     []models.Task
		lookahead int
		want      models.CardStatus
	}{
		{
			name: "no tasks",
			want: models.CardStatusDefault,
		},
		{
			name:  "open task due yesterday",
			tasks: []models.Task{{DueDate: dateAt(now, -1)}},
			want:  models.CardStatusOverdue,
		},
		{
			name:  "open task due today",
			tasks: []models.Task{{DueDate: dateAt(now, 0)}},
			want:  models.CardStatusDue,
		},
		{
			name:      "open task inside lookahead",
			tasks:     []models.Task{{DueDate: dateAt(now, 3)}},
			lookahead: 3,
			want:      models.CardStatusDue,
		},
		{
			name:      "open task beyond lookahead",
			tasks:     []models.Task{{DueDate: dateAt(now, 4)}},
			lookahead: 3,
			want:      models.CardStatusDefault,
		},
		{
			name:  "same day only when lookahead is zero",
			tasks: []models.Task{{DueDate: dateAt(now, 1)}},
			want:  models.CardStatusDefault,
		},
		{
			name: "all tasks completed",
			tasks: []models.Task{
				{DueDate: dateAt(now, -5), Completed: true},
				{DueDate: dateAt(now, 0), Completed: true},
			},
			want: models.CardStatusDefault,
		},
		{
			name:  "undated task ignored",
			tasks: []models.Task{{Text: "call"}},
			want:  models.CardStatusDefault,
		},
		{
			name: "overdue wins over due",
			tasks: []models.Task{
				{DueDate: dateAt(now, 0)},
				{DueDate: dateAt(now, -2)},
			},
			lookahead: 3,
			want:      models.CardStatusOverdue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveStatus(tt.tasks, now, tt.lookahead); got != tt.want {
				t.Errorf("DeriveStatus() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDeriveStatus_UsesLocalCalendarDay(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	// 01:00 UTC on the 16th is still the 15th in BRT
	now := time.Date(2026, 3, 16, 1, 0, 0, 0, time.UTC).In(loc)

	due, _ := models.ParseDate("2026-03-15")
	got := DeriveStatus([]models.Task{{DueDate: &due}}, now, 0)
	if got != models.CardStatusDue {
		t.Errorf("Expected due on the local day, got %s", got)
	}
}

func TestTaskCounts(t *testing.T) {
	total, done := TaskCounts([]models.Task{{Completed: true}, {}, {Completed: true}})
	if total != 3 || done != 2 {
		t.Errorf("Expected 3/2, got %d/%d", total, done)
	}
}
