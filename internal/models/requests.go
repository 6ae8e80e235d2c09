package models

import (
	"github.com/shopspring/decimal"
)

// SetupRequest creates the first administrator
type SetupRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name"`
}

// LoginRequest exchanges credentials for a session token
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries a session token and the caller's profile
type LoginResponse struct {
	Token     string   `json:"token"`
	ExpiresAt int64    `json:"expires_at"`
	Profile   *Profile `json:"profile"`
}

// CreateUserRequest is the body of POST /v1/users
type CreateUserRequest struct {
	Email       string          `json:"email" binding:"required,email"`
	Password    string          `json:"password" binding:"required,min=8"`
	FirstName   string          `json:"first_name" binding:"required"`
	LastName    string          `json:"last_name"`
	Role        Role            `json:"role" binding:"required,oneof=admin gestor user"`
	Permissions map[string]bool `json:"permissions"`
}

// UpdateUserRequest is the body of PATCH /v1/users/:id. Nil fields are left unchanged.
type UpdateUserRequest struct {
	FirstName   *string         `json:"first_name"`
	LastName    *string         `json:"last_name"`
	Role        *Role           `json:"role" binding:"omitempty,oneof=admin gestor user"`
	Permissions map[string]bool `json:"permissions"`
}

// APIKeyResponse is returned once when a new key is generated
type APIKeyResponse struct {
	APIKey    string `json:"api_key"`
	ExpiresAt int64  `json:"expires_at"`
}

// FunnelRequest creates or re-lays-out a funnel
type FunnelRequest struct {
	Name   string   `json:"name" binding:"required,max=200"`
	Stages []string `json:"stages" binding:"dive,required,max=200"`
}

// StageRequest creates or renames a stage
type StageRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// ReorderStageRequest moves one stage to a new index. Indexes past the end
// land on the last position.
type ReorderStageRequest struct {
	StageID string `json:"stage_id" binding:"required"`
	ToIndex *int   `json:"to_index" binding:"required,min=0"`
}

// TaskInput is a task embedded in a card creation request
type TaskInput struct {
	Text     string       `json:"text"`
	DueDate  *Date        `json:"due_date"`
	Priority TaskPriority `json:"priority"`
}

// CreateCardRequest is the body of POST /v1/cards. Required fields are checked
// by the service so that missing-field errors name the field.
type CreateCardRequest struct {
	Title        string           `json:"title"`
	StageID      string           `json:"stage_id"`
	ContactID    string           `json:"contact_id"`
	Description  string           `json:"description"`
	Value        *decimal.Decimal `json:"value"`
	Source       string           `json:"source"`
	CompanyName  string           `json:"company_name"`
	BusinessType string           `json:"business_type"`
	Tasks        []TaskInput      `json:"tasks"`
}

// UpdateCardRequest is the body of PATCH /v1/cards/:id. Stage changes go through move.
type UpdateCardRequest struct {
	Title        *string          `json:"title"`
	ContactID    *string          `json:"contact_id"`
	Description  *string          `json:"description"`
	Value        *decimal.Decimal `json:"value"`
	Source       *string          `json:"source"`
	CompanyName  *string          `json:"company_name"`
	BusinessType *string          `json:"business_type"`
}

// MoveCardRequest moves a card into a stage at an index. A nil index appends.
type MoveCardRequest struct {
	StageID string `json:"stage_id" binding:"required"`
	ToIndex *int   `json:"to_index"`
}

// UpdateTaskRequest is the body of PATCH /v1/tasks/:id
type UpdateTaskRequest struct {
	Text         *string       `json:"text"`
	Completed    *bool         `json:"completed"`
	DueDate      *Date         `json:"due_date"`
	ClearDueDate bool          `json:"clear_due_date"`
	Priority     *TaskPriority `json:"priority"`
}

// ContactRequest creates or replaces a contact
type ContactRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Company    string `json:"company"`
	Role       string `json:"role"`
	Industry   string `json:"industry"`
	CompanyURL string `json:"company_url"`
	Address    string `json:"address"`
}

// GoalRequest sets the revenue target of one month
type GoalRequest struct {
	Month      int             `json:"month" binding:"required,min=1,max=12"`
	Year       int             `json:"year" binding:"required,min=2000,max=2100"`
	GoalAmount decimal.Decimal `json:"goal_amount"`
}
