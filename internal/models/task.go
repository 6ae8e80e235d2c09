package models

import (
	"time"
)

// TaskPriority ranks a task
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// ValidPriorities defines allowed task priorities
var ValidPriorities = map[TaskPriority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
	PriorityUrgent: true,
}

// Task is a to-do item attached to a card
type Task struct {
	ID        string       `json:"id" db:"id"`
	CardID    string       `json:"card_id" db:"card_id"`
	Text      string       `json:"text" db:"text"`
	Completed bool         `json:"completed" db:"completed"`
	DueDate   *Date        `json:"due_date,omitempty" db:"due_date"`
	Priority  TaskPriority `json:"priority" db:"priority"`
	CreatedBy string       `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time    `json:"created_at" db:"created_at"`
}

// CalendarTask is a task joined with the title of its card
type CalendarTask struct {
	Task
	CardTitle string `json:"card_title,omitempty"`
}

// CalendarDay groups tasks sharing a due date. Date is empty for undated tasks.
type CalendarDay struct {
	Date  string         `json:"date"`
	Tasks []CalendarTask `json:"tasks"`
}
