package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/lib/pq"
)

func TestNullString(t *testing.T) {
	if nullString("").Valid {
		t.Error("Empty string should map to NULL")
	}
	if ns := nullString("x"); !ns.Valid || ns.String != "x" {
		t.Errorf("Unexpected %+v", ns)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505"}
	if !isUniqueViolation(dup) {
		t.Error("Expected 23505 to be a unique violation")
	}
	if !isUniqueViolation(fmt.Errorf("insert: %w", dup)) {
		t.Error("Expected wrapped error to be detected")
	}
	if isUniqueViolation(&pq.Error{Code: "23503"}) {
		t.Error("Foreign key violation is not a unique violation")
	}
	if isUniqueViolation(errors.New("boom")) || isUniqueViolation(nil) {
		t.Error("Plain errors are not unique violations")
	}
}

func TestDatePtr_TruncatesToDay(t *testing.T) {
	if datePtr(sql.NullTime{}) != nil {
		t.Error("Invalid time should map to nil")
	}
	d := datePtr(sql.NullTime{Time: time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC), Valid: true})
	if d == nil || d.String() != "2026-04-09" {
		t.Errorf("Unexpected date %v", d)
	}
}

func TestEscapeLike(t *testing.T) {
	if got := escapeLike(`50%_off\`); got != `50\%\_off\\` {
		t.Errorf("Unexpected escape %q", got)
	}
}
