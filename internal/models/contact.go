package models

import (
	"time"
)

// Contact is a person or company the sales team talks to
type Contact struct {
	ID         string    `json:"id" db:"id"`
	Name       string    `json:"name" db:"name"`
	Email      string    `json:"email,omitempty" db:"email"`
	Phone      string    `json:"phone,omitempty" db:"phone"`
	Company    string    `json:"company,omitempty" db:"company"`
	Role       string    `json:"role,omitempty" db:"role"`
	Industry   string    `json:"industry,omitempty" db:"industry"`
	CompanyURL string    `json:"company_url,omitempty" db:"company_url"`
	Address    string    `json:"address,omitempty" db:"address"`
	CreatedBy  string    `json:"created_by,omitempty" db:"created_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// ContactCSV represents a contact record from CSV import
type ContactCSV struct {
	Name       string `csv:"name"`
	Email      string `csv:"email"`
	Phone      string `csv:"phone"`
	Company    string `csv:"company"`
	Role       string `csv:"role"`
	Industry   string `csv:"industry"`
	CompanyURL string `csv:"company_url"`
	Address    string `csv:"address"`
}

// ContactCSVHeader is the column order used by CSV export
var ContactCSVHeader = []string{
	"id", "name", "email", "phone", "company", "role", "industry", "company_url", "address", "created_at",
}

// ContactHeaderAliases maps accepted import headers (lower-cased) to fields
var ContactHeaderAliases = map[string]string{
	"name":        "name",
	"nome":        "name",
	"email":       "email",
	"e-mail":      "email",
	"phone":       "phone",
	"telefone":    "phone",
	"company":     "company",
	"empresa":     "company",
	"role":        "role",
	"cargo":       "role",
	"industry":    "industry",
	"setor":       "industry",
	"company_url": "company_url",
	"website":     "company_url",
	"site":        "company_url",
	"address":     "address",
	"endereco":    "address",
	"endereço":    "address",
}
