package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/funnel-crm-api/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Field length limits mirrored from the schema
const (
	maxNameLen    = 255
	maxPhoneLen   = 60
	maxShortLen   = 120
	maxURLLen     = 500
	maxTitleLen   = 255
	maxStageLen   = 200
	minPasswordLn = 8
)

var formats = validator.New()

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   string `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateContactRow validates one imported CSV row. Rows are checked
// independently; contacts may share an email.
func ValidateContactRow(row *models.ContactCSV) []ValidationError {
	return ValidateContact(&models.ContactRequest{
		Name:       row.Name,
		Email:      row.Email,
		Phone:      row.Phone,
		Company:    row.Company,
		Role:       row.Role,
		Industry:   row.Industry,
		CompanyURL: row.CompanyURL,
		Address:    row.Address,
	})
}

// ValidateContact validates a contact form
func ValidateContact(c *models.ContactRequest) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(c.Name) == "" {
		errors = append(errors, ValidationError{Field: "name", Message: "name is required"})
	} else if utf8.RuneCountInString(c.Name) > maxNameLen {
		errors = append(errors, ValidationError{Field: "name", Message: fmt.Sprintf("name exceeds %d characters", maxNameLen)})
	}

	if c.Email != "" && !IsEmail(c.Email) {
		errors = append(errors, ValidationError{Field: "email", Message: "invalid email format", Value: c.Email})
	}
	if utf8.RuneCountInString(c.Phone) > maxPhoneLen {
		errors = append(errors, ValidationError{Field: "phone", Message: fmt.Sprintf("phone exceeds %d characters", maxPhoneLen), Value: c.Phone})
	}
	if c.CompanyURL != "" && !IsURL(c.CompanyURL) {
		errors = append(errors, ValidationError{Field: "company_url", Message: "invalid URL", Value: c.CompanyURL})
	}
	if utf8.RuneCountInString(c.Role) > maxShortLen {
		errors = append(errors, ValidationError{Field: "role", Message: fmt.Sprintf("role exceeds %d characters", maxShortLen)})
	}
	if utf8.RuneCountInString(c.Industry) > maxShortLen {
		errors = append(errors, ValidationError{Field: "industry", Message: fmt.Sprintf("industry exceeds %d characters", maxShortLen)})
	}
	return errors
}

// ValidateCard validates the required fields of a new card
func ValidateCard(req *models.CreateCardRequest) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(req.Title) == "" {
		errors = append(errors, ValidationError{Field: "title", Message: "title is required"})
	} else if utf8.RuneCountInString(req.Title) > maxTitleLen {
		errors = append(errors, ValidationError{Field: "title", Message: fmt.Sprintf("title exceeds %d characters", maxTitleLen)})
	}

	if req.StageID == "" {
		errors = append(errors, ValidationError{Field: "stage_id", Message: "stage_id is required"})
	} else if !IsUUID(req.StageID) {
		errors = append(errors, ValidationError{Field: "stage_id", Message: "invalid UUID format", Value: req.StageID})
	}

	if req.ContactID != "" && !IsUUID(req.ContactID) {
		errors = append(errors, ValidationError{Field: "contact_id", Message: "invalid UUID format", Value: req.ContactID})
	}
	if req.Value != nil && req.Value.IsNegative() {
		errors = append(errors, ValidationError{Field: "value", Message: "value must not be negative", Value: req.Value.String()})
	}

	for i, t := range req.Tasks {
		for _, e := range ValidateTask(t.Text, t.Priority) {
			e.Field = fmt.Sprintf("tasks[%d].%s", i, e.Field)
			errors = append(errors, e)
		}
	}
	return errors
}

// ValidateTask validates task text and priority. An empty priority means low.
func ValidateTask(text string, priority models.TaskPriority) []ValidationError {
	var errors []ValidationError
	if strings.TrimSpace(text) == "" {
		errors = append(errors, ValidationError{Field: "text", Message: "text is required"})
	}
	if priority != "" && !models.ValidPriorities[priority] {
		errors = append(errors, ValidationError{
			Field:   "priority",
			Message: "invalid priority, must be one of: low, medium, high, urgent",
			Value:   string(priority),
		})
	}
	return errors
}

// ValidateFunnel checks the funnel name and that stage names are present and distinct
func ValidateFunnel(name string, stages []string) []ValidationError {
	var errors []ValidationError
	if strings.TrimSpace(name) == "" {
		errors = append(errors, ValidationError{Field: "name", Message: "name is required"})
	}

	seen := make(map[string]bool, len(stages))
	for i, s := range stages {
		key := strings.ToLower(strings.TrimSpace(s))
		field := fmt.Sprintf("stages[%d]", i)
		switch {
		case key == "":
			errors = append(errors, ValidationError{Field: field, Message: "stage name is required"})
		case utf8.RuneCountInString(s) > maxStageLen:
			errors = append(errors, ValidationError{Field: field, Message: fmt.Sprintf("stage name exceeds %d characters", maxStageLen)})
		case seen[key]:
			errors = append(errors, ValidationError{Field: field, Message: "duplicate stage name", Value: s})
		}
		seen[key] = true
	}
	return errors
}

// ValidateGoal validates a monthly revenue goal
func ValidateGoal(month, year int, amount decimal.Decimal) []ValidationError {
	var errors []ValidationError
	if month < 1 || month > 12 {
		errors = append(errors, ValidationError{Field: "month", Message: "month must be between 1 and 12", Value: fmt.Sprint(month)})
	}
	if year < 2000 || year > 2100 {
		errors = append(errors, ValidationError{Field: "year", Message: "year must be between 2000 and 2100", Value: fmt.Sprint(year)})
	}
	if amount.IsNegative() {
		errors = append(errors, ValidationError{Field: "goal_amount", Message: "goal_amount must not be negative", Value: amount.String()})
	}
	return errors
}

// ValidatePermissions rejects unknown permission keys
func ValidatePermissions(perms map[string]bool) []ValidationError {
	var errors []ValidationError
	for key := range perms {
		if !models.KnownPermissions[key] {
			errors = append(errors, ValidationError{Field: "permissions", Message: "unknown permission", Value: key})
		}
	}
	return errors
}

// ValidatePassword enforces the minimum password length
func ValidatePassword(password string) []ValidationError {
	if utf8.RuneCountInString(password) < minPasswordLn {
		return []ValidationError{{Field: "password", Message: fmt.Sprintf("password must have at least %d characters", minPasswordLn)}}
	}
	return nil
}

// IsEmail reports whether s is a syntactically valid email address
func IsEmail(s string) bool {
	return formats.Var(s, "required,email") == nil
}

// IsURL reports whether s is an absolute URL or a bare host name
func IsURL(s string) bool {
	if utf8.RuneCountInString(s) > maxURLLen {
		return false
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	return formats.Var(s, "required,http_url") == nil
}

// IsUUID checks if a string is a valid UUID
func IsUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
