// Package pipeline holds the pure board logic: card status, drag-and-drop
// reordering and dashboard aggregation. Nothing here touches storage.
package pipeline

import (
	"time"

	"github.com/funnel-crm-api/internal/models"
)

// DefaultLookaheadDays is how many days ahead an open task makes its card "due"
const DefaultLookaheadDays = 3

// DeriveStatus computes a card's status from its tasks. Only incomplete tasks
// with a due date count. A due date before today is overdue; one within
// lookaheadDays of today (today included) is due.
func DeriveStatus(tasks []models.Task, now time.Time, lookaheadDays int) models.CardStatus {
	if lookaheadDays < 0 {
		lookaheadDays = 0
	}
	today := models.NewDate(now)
	horizon := today.AddDate(0, 0, lookaheadDays)

	status := models.CardStatusDefault
	for _, t := range tasks {
		if t.Completed || t.DueDate == nil {
			continue
		}
		due := models.NewDate(t.DueDate.Time)
		if due.Before(today.Time) {
			return models.CardStatusOverdue
		}
		if !due.After(horizon) {
			status = models.CardStatusDue
		}
	}
	return status
}

// TaskCounts returns the number of tasks and completed tasks
func TaskCounts(tasks []models.Task) (total, done int) {
	for _, t := range tasks {
		total++
		if t.Completed {
			done++
		}
	}
	return total, done
}
