package models

import (
	"time"
)

// Funnel is a named sales pipeline owning an ordered set of stages
type Funnel struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedBy string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Stages    []Stage   `json:"stages,omitempty" db:"-"`
}

// Stage is a pipeline step. Position orders stages within their funnel.
type Stage struct {
	ID        string    `json:"id" db:"id"`
	FunnelID  string    `json:"funnel_id" db:"funnel_id"`
	Name      string    `json:"name" db:"name"`
	Position  int       `json:"position" db:"position"`
	CreatedBy string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// BoardColumn is a stage with its cards in display order
type BoardColumn struct {
	Stage
	Closed bool       `json:"closed"`
	Cards  []CardView `json:"cards"`
}

// Board is the kanban projection of a funnel
type Board struct {
	Funnel  Funnel        `json:"funnel"`
	Columns []BoardColumn `json:"columns"`
}
