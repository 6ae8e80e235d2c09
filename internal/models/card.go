package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Currency amounts travel as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// CardStatus is the visual urgency of a card derived from its tasks
type CardStatus string

const (
	CardStatusDefault CardStatus = "default"
	CardStatusDue     CardStatus = "due"
	CardStatusOverdue CardStatus = "overdue"
)

// Card is a sales opportunity tracked through stages
type Card struct {
	ID           string          `json:"id" db:"id"`
	StageID      string          `json:"stage_id" db:"stage_id"`
	ContactID    string          `json:"contact_id,omitempty" db:"contact_id"`
	Title        string          `json:"title" db:"title"`
	Description  string          `json:"description,omitempty" db:"description"`
	Value        decimal.Decimal `json:"value" db:"value"`
	Source       string          `json:"source,omitempty" db:"source"`
	CompanyName  string          `json:"company_name,omitempty" db:"company_name"`
	BusinessType string          `json:"business_type,omitempty" db:"business_type"`
	Position     int             `json:"position" db:"position"`
	ClosedAt     *time.Time      `json:"closed_at,omitempty" db:"closed_at"`
	CreatedBy    string          `json:"created_by,omitempty" db:"created_by"`
	CreatedAt    time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at" db:"updated_at"`
	Tasks        []Task          `json:"tasks,omitempty" db:"-"`
}

// CardView is a card decorated with derived board fields
type CardView struct {
	Card
	Status         CardStatus `json:"status"`
	StageName      string     `json:"stage_name,omitempty"`
	ContactName    string     `json:"contact_name,omitempty"`
	TasksCount     int        `json:"tasks_count"`
	TasksDoneCount int        `json:"tasks_done_count"`
}

// CardHistoryEntry is a free-text log line appended on card mutations
type CardHistoryEntry struct {
	ID          string    `json:"id" db:"id"`
	CardID      string    `json:"card_id" db:"card_id"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
