package models

import (
	"github.com/shopspring/decimal"
)

// SourceCount is the number of cards sharing a lead source
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// GoalPoint pairs a month's target with the revenue achieved in it
type GoalPoint struct {
	Month    int             `json:"month"`
	Year     int             `json:"year"`
	Label    string          `json:"label"`
	Goal     decimal.Decimal `json:"goal"`
	Achieved decimal.Decimal `json:"achieved"`
}

// ActivityPoint counts new contacts and closed deals in one month
type ActivityPoint struct {
	Month       int    `json:"month"`
	Year        int    `json:"year"`
	Label       string `json:"label"`
	NewContacts int    `json:"new_contacts"`
	ClosedDeals int    `json:"closed_deals"`
}

// Dashboard is the aggregate view of the pipeline for the current month
type Dashboard struct {
	Month            int             `json:"month"`
	Year             int             `json:"year"`
	MonthlyRevenue   decimal.Decimal `json:"monthly_revenue"`
	CurrentGoal      *Goal           `json:"current_goal,omitempty"`
	GoalProgress     float64         `json:"goal_progress"`
	ActiveLeads      int             `json:"active_leads"`
	WonLeads         int             `json:"won_leads"`
	LeadsWithoutTask int             `json:"leads_without_tasks"`
	PendingTasks     int             `json:"pending_tasks"`
	TopSources       []SourceCount   `json:"top_sources"`
	GoalSeries       []GoalPoint     `json:"goal_series"`
	Activity         []ActivityPoint `json:"activity"`
}
