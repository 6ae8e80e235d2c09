package models

import (
	"time"
)

// Role is the coarse access level of a user
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "gestor"
	RoleUser    Role = "user"
)

// ValidRoles defines allowed profile roles
var ValidRoles = map[Role]bool{
	RoleAdmin:   true,
	RoleManager: true,
	RoleUser:    true,
}

// Permission keys stored in Profile.Permissions
const (
	PermFunnelsManage  = "funnels_manage"
	PermContactsDelete = "contacts_delete"
	PermContactsImport = "contacts_import"
	PermGoalsManage    = "goals_manage"
	PermSettingsUpdate = "settings_update"
	PermEditUsers      = "edit_users"
)

// KnownPermissions lists every permission key a profile may carry
var KnownPermissions = map[string]bool{
	PermFunnelsManage:  true,
	PermContactsDelete: true,
	PermContactsImport: true,
	PermGoalsManage:    true,
	PermSettingsUpdate: true,
	PermEditUsers:      true,
}

// User is an authentication identity
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Profile carries the role and permission flags of a user
type Profile struct {
	ID          string          `json:"id" db:"id"`
	Email       string          `json:"email" db:"-"`
	FirstName   string          `json:"first_name" db:"first_name"`
	LastName    string          `json:"last_name" db:"last_name"`
	Role        Role            `json:"role" db:"role"`
	Permissions map[string]bool `json:"permissions" db:"permissions"`
	APIKeyID    string          `json:"-" db:"api_key_id"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// HasPermission reports whether the profile grants key. Admins hold every permission.
func (p *Profile) HasPermission(key string) bool {
	if p == nil {
		return false
	}
	if p.Role == RoleAdmin {
		return true
	}
	return p.Permissions[key]
}

// IsManagerOrAdmin reports whether the profile is an admin or a gestor
func (p *Profile) IsManagerOrAdmin() bool {
	return p != nil && (p.Role == RoleAdmin || p.Role == RoleManager)
}

// CanManageUsers reports whether the profile may create and edit users
func (p *Profile) CanManageUsers() bool {
	if p == nil {
		return false
	}
	return p.Role == RoleAdmin || (p.Role == RoleManager && p.Permissions[PermEditUsers])
}

// FullName joins first and last name
func (p *Profile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
