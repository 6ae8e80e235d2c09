package pipeline

import (
	"testing"

	"github.com/funnel-crm-api/internal/models"
)

func fourStages() []models.Stage {
	return []models.Stage{
		{ID: "a", Name: "Lead", Position: 0},
		{ID: "b", Name: "Contato", Position: 1},
		{ID: "c", Name: "Proposta", Position: 2},
		{ID: "d", Name: "Fechado", Position: 3},
	}
}

func stageIDs(stages []models.Stage) string {
	s := ""
	for _, st := range stages {
		s += st.ID
	}
	return s
}

func assertContiguous(t *testing.T, stages []models.Stage) {
	t.Helper()
	seen := make(map[string]bool)
	for i, s := range stages {
		if s.Position != i {
			t.Errorf("stage %s at index %d has position %d", s.ID, i, s.Position)
		}
		if seen[s.ID] {
			t.Errorf("stage %s duplicated", s.ID)
		}
		seen[s.ID] = true
	}
}

func TestMoveStageByIndex_TwoToZero(t *testing.T) {
	in := fourStages()
	out, err := MoveStageByIndex(in, 2, 0)
	if err != nil {
		t.Fatalf("MoveStageByIndex failed: %v", err)
	}

	if len(out) != 4 {
		t.Fatalf("Expected 4 stages, got %d", len(out))
	}
	if got := stageIDs(out); got != "cabd" {
		t.Errorf("Expected order cabd, got %s", got)
	}
	assertContiguous(t, out)

	// input untouched
	if stageIDs(in) != "abcd" || in[2].Position != 2 {
		t.Error("Input slice was modified")
	}
}

func TestMoveStage(t *testing.T) {
	tests := []struct {
		name string
		id   string
		to   int
		want string
	}{
		{"first to last", "a", 3, "bcda"},
		{"last to first", "d", 0, "dabc"},
		{"same index", "b", 1, "abcd"},
		{"index past end clamps", "a", 99, "bcda"},
		{"negative index clamps to front", "c", -1, "cabd"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := MoveStage(fourStages(), tt.id, tt.to)
			if err != nil {
				t.Fatalf("MoveStage failed: %v", err)
			}
			if got := stageIDs(out); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
			assertContiguous(t, out)
		})
	}
}

func TestMoveStage_UnknownStage(t *testing.T) {
	if _, err := MoveStage(fourStages(), "zzz", 0); err != ErrStageNotFound {
		t.Errorf("Expected ErrStageNotFound, got %v", err)
	}
}

func TestCompactStages_FixesGaps(t *testing.T) {
	out := CompactStages([]models.Stage{
		{ID: "x", Position: 7},
		{ID: "y", Position: 2},
		{ID: "z", Position: 4},
	})
	if got := stageIDs(out); got != "yzx" {
		t.Errorf("Expected yzx, got %s", got)
	}
	assertContiguous(t, out)
}

func boardCards() []models.Card {
	return []models.Card{
		{ID: "c1", StageID: "s1", Position: 0},
		{ID: "c2", StageID: "s1", Position: 1},
		{ID: "c3", StageID: "s1", Position: 2},
		{ID: "c4", StageID: "s2", Position: 0},
		{ID: "c5", StageID: "s2", Position: 1},
	}
}

func TestMoveCard_BetweenStages(t *testing.T) {
	move, err := MoveCard(boardCards(), "c1", "s2", 1)
	if err != nil {
		t.Fatalf("MoveCard failed: %v", err)
	}

	if move.FromStage != "s1" {
		t.Errorf("Expected from stage s1, got %s", move.FromStage)
	}
	if move.Card.StageID != "s2" || move.Card.Position != 1 {
		t.Errorf("Expected c1 at s2/1, got %s/%d", move.Card.StageID, move.Card.Position)
	}

	got := make(map[string]models.Card)
	for _, c := range move.Changed {
		got[c.ID] = c
	}
	// c2, c3 shift up; c1 lands; c5 shifts down; c4 unchanged
	for _, id := range []string{"c1", "c2", "c3", "c5"} {
		if _, ok := got[id]; !ok {
			t.Errorf("Expected %s in changed set", id)
		}
	}
	if _, ok := got["c4"]; ok {
		t.Error("c4 should not change")
	}
	if got["c2"].Position != 0 || got["c3"].Position != 1 || got["c5"].Position != 2 {
		t.Errorf("Unexpected positions: %+v", got)
	}
}

func TestMoveCard_WithinStage(t *testing.T) {
	move, err := MoveCard(boardCards(), "c3", "s1", 0)
	if err != nil {
		t.Fatalf("MoveCard failed: %v", err)
	}
	if move.Card.Position != 0 {
		t.Errorf("Expected position 0, got %d", move.Card.Position)
	}
	if len(move.Changed) != 3 {
		t.Errorf("Expected 3 changed cards, got %d", len(move.Changed))
	}
}

func TestMoveCard_AppendsWhenIndexNegative(t *testing.T) {
	move, err := MoveCard(boardCards(), "c2", "s2", -1)
	if err != nil {
		t.Fatalf("MoveCard failed: %v", err)
	}
	if move.Card.Position != 2 {
		t.Errorf("Expected append at 2, got %d", move.Card.Position)
	}
}

func TestMoveCard_IntoEmptyStage(t *testing.T) {
	move, err := MoveCard(boardCards(), "c4", "s3", 5)
	if err != nil {
		t.Fatalf("MoveCard failed: %v", err)
	}
	if move.Card.StageID != "s3" || move.Card.Position != 0 {
		t.Errorf("Expected s3/0, got %s/%d", move.Card.StageID, move.Card.Position)
	}
}

func TestMoveCard_UnknownCard(t *testing.T) {
	if _, err := MoveCard(boardCards(), "nope", "s1", 0); err != ErrCardNotFound {
		t.Errorf("Expected ErrCardNotFound, got %v", err)
	}
}
