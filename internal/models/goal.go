package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Goal is the revenue target for one calendar month. (Month, Year) is unique.
type Goal struct {
	ID         int64           `json:"id" db:"id"`
	Month      int             `json:"month" db:"month"`
	Year       int             `json:"year" db:"year"`
	GoalAmount decimal.Decimal `json:"goal_amount" db:"goal_amount"`
	SetBy      string          `json:"set_by,omitempty" db:"set_by"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}
