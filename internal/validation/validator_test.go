package validation

import (
	"strings"
	"testing"

	"github.com/funnel-crm-api/internal/models"
	"github.com/shopspring/decimal"
)

func fields(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Field
	}
	return out
}

func TestValidateContact(t *testing.T) {
	tests := []struct {
		name       string
		contact    models.ContactRequest
		wantFields []string
	}{
		{
			name:    "name only",
			contact: models.ContactRequest{Name: "Maria Silva"},
		},
		{
			name: "all fields valid",
			contact: models.ContactRequest{
				Name:       "Maria Silva",
				Email:      "maria@acme.com.br",
				Phone:      "+55 11 99999-0000",
				Company:    "Acme",
				CompanyURL: "https://acme.com.br",
			},
		},
		{
			name:       "missing name",
			contact:    models.ContactRequest{Email: "maria@acme.com"},
			wantFields: []string{"name"},
		},
		{
			name:       "blank name",
			contact:    models.ContactRequest{Name: "   "},
			wantFields: []string{"name"},
		},
		{
			name:       "invalid email",
			contact:    models.ContactRequest{Name: "Maria", Email: "not-an-email"},
			wantFields: []string{"email"},
		},
		{
			name:    "bare host accepted as URL",
			contact: models.ContactRequest{Name: "Maria", CompanyURL: "acme.com"},
		},
		{
			name:       "invalid URL",
			contact:    models.ContactRequest{Name: "Maria", CompanyURL: "not a url"},
			wantFields: []string{"company_url"},
		},
		{
			name:       "phone too long",
			contact:    models.ContactRequest{Name: "Maria", Phone: strings.Repeat("9", 61)},
			wantFields: []string{"phone"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateContact(&tt.contact)
			got := fields(errs)
			if len(got) != len(tt.wantFields) {
				t.Fatalf("Expected fields %v, got %v", tt.wantFields, got)
			}
			for i := range got {
				if got[i] != tt.wantFields[i] {
					t.Errorf("Expected field %s, got %s", tt.wantFields[i], got[i])
				}
			}
		})
	}
}

func TestValidateContactRow_SharedEmail(t *testing.T) {
	first := &models.ContactCSV{Name: "Ana (work)", Email: "ana@example.com"}
	second := &models.ContactCSV{Name: "Ana (home)", Email: "ANA@example.com"}

	if errs := ValidateContactRow(first); len(errs) != 0 {
		t.Fatalf("First row should be valid, got %v", errs)
	}
	if errs := ValidateContactRow(second); len(errs) != 0 {
		t.Errorf("Row sharing an email should be valid, got %v", errs)
	}

	bad := &models.ContactCSV{Name: "Ana", Email: "ana@", CompanyURL: "not a url"}
	errs := ValidateContactRow(bad)
	if got := fields(errs); len(got) != 2 || got[0] != "email" || got[1] != "company_url" {
		t.Errorf("Expected email and company_url errors, got %v", errs)
	}
}

func TestValidateCard(t *testing.T) {
	stageID := "550e8400-e29b-41d4-a716-446655440000"
	negative := decimal.NewFromInt(-5)

	tests := []struct {
		name       string
		req        models.CreateCardRequest
		wantFields []string
	}{
		{"valid", models.CreateCardRequest{Title: "Deal", StageID: stageID}, nil},
		{"missing title", models.CreateCardRequest{StageID: stageID}, []string{"title"}},
		{"missing stage", models.CreateCardRequest{Title: "Deal"}, []string{"stage_id"}},
		{"missing both", models.CreateCardRequest{}, []string{"title", "stage_id"}},
		{"bad stage id", models.CreateCardRequest{Title: "Deal", StageID: "abc"}, []string{"stage_id"}},
		{"negative value", models.CreateCardRequest{Title: "Deal", StageID: stageID, Value: &negative}, []string{"value"}},
		{
			"bad task",
			models.CreateCardRequest{Title: "Deal", StageID: stageID, Tasks: []models.TaskInput{
				{Text: "ok"},
				{Text: "", Priority: "critical"},
			}},
			[]string{"tasks[1].text", "tasks[1].priority"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fields(ValidateCard(&tt.req))
			if strings.Join(got, ",") != strings.Join(tt.wantFields, ",") {
				t.Errorf("Expected %v, got %v", tt.wantFields, got)
			}
		})
	}
}

func TestValidateFunnel(t *testing.T) {
	if errs := ValidateFunnel("Vendas", []string{"Lead", "Proposta", "Fechado"}); len(errs) != 0 {
		t.Errorf("Expected valid funnel, got %v", errs)
	}
	if errs := ValidateFunnel("", nil); len(errs) != 1 || errs[0].Field != "name" {
		t.Errorf("Expected name error, got %v", errs)
	}
	errs := ValidateFunnel("Vendas", []string{"Lead", " lead ", ""})
	if got := strings.Join(fields(errs), ","); got != "stages[1],stages[2]" {
		t.Errorf("Expected duplicate and empty stage errors, got %s", got)
	}
}

func TestValidateGoal(t *testing.T) {
	if errs := ValidateGoal(5, 2026, decimal.Zero); len(errs) != 0 {
		t.Errorf("Zero goal should be valid, got %v", errs)
	}
	errs := ValidateGoal(13, 1999, decimal.NewFromInt(-1))
	if got := strings.Join(fields(errs), ","); got != "month,year,goal_amount" {
		t.Errorf("Unexpected errors %s", got)
	}
}

func TestValidateTask_Priorities(t *testing.T) {
	for _, p := range []models.TaskPriority{"", "low", "medium", "high", "urgent"} {
		if errs := ValidateTask("call", p); len(errs) != 0 {
			t.Errorf("Priority %q should be valid, got %v", p, errs)
		}
	}
	if errs := ValidateTask("call", "whenever"); len(errs) != 1 {
		t.Errorf("Expected priority error, got %v", errs)
	}
}

func TestValidatePermissions(t *testing.T) {
	if errs := ValidatePermissions(map[string]bool{"settings_update": true, "edit_users": false}); len(errs) != 0 {
		t.Errorf("Expected known permissions to pass, got %v", errs)
	}
	if errs := ValidatePermissions(map[string]bool{"launch_rockets": true}); len(errs) != 1 {
		t.Errorf("Expected unknown permission error, got %v", errs)
	}
}

func TestValidatePassword(t *testing.T) {
	if errs := ValidatePassword("1234567"); len(errs) != 1 {
		t.Error("Expected short password to fail")
	}
	if errs := ValidatePassword("12345678"); len(errs) != 0 {
		t.Error("Expected 8-character password to pass")
	}
}
