package pipeline

import (
	"errors"
	"sort"

	"github.com/funnel-crm-api/internal/models"
)

var (
	ErrStageNotFound = errors.New("stage not found in funnel")
	ErrCardNotFound  = errors.New("card not found in stage")
)

// SortStages orders stages by position, breaking ties by creation time
func SortStages(stages []models.Stage) {
	sort.SliceStable(stages, func(i, j int) bool {
		if stages[i].Position != stages[j].Position {
			return stages[i].Position < stages[j].Position
		}
		return stages[i].CreatedAt.Before(stages[j].CreatedAt)
	})
}

// SortCards orders cards by position, breaking ties by creation time
func SortCards(cards []models.Card) {
	sort.SliceStable(cards, func(i, j int) bool {
		if cards[i].Position != cards[j].Position {
			return cards[i].Position < cards[j].Position
		}
		return cards[i].CreatedAt.Before(cards[j].CreatedAt)
	})
}

func clampIndex(i, n int) int {
	if i < 0 || i > n {
		return n
	}
	return i
}

// MoveStageByIndex moves the stage at index from to index to and rewrites
// positions as 0..n-1. The input slice is not modified.
func MoveStageByIndex(stages []models.Stage, from, to int) ([]models.Stage, error) {
	if from < 0 || from >= len(stages) {
		return nil, ErrStageNotFound
	}
	out := make([]models.Stage, 0, len(stages))
	out = append(out, stages[:from]...)
	out = append(out, stages[from+1:]...)

	moved := stages[from]
	to = clampIndex(to, len(out))
	out = append(out, models.Stage{})
	copy(out[to+1:], out[to:])
	out[to] = moved

	for i := range out {
		out[i].Position = i
	}
	return out, nil
}

// MoveStage moves the stage with stageID to index to, clamped to the list.
// Stages are ordered by position first, so the result is contiguous even if
// the input was not.
func MoveStage(stages []models.Stage, stageID string, to int) ([]models.Stage, error) {
	ordered := make([]models.Stage, len(stages))
	copy(ordered, stages)
	SortStages(ordered)

	for i, s := range ordered {
		if s.ID == stageID {
			if to < 0 {
				to = 0
			}
			if to >= len(ordered) {
				to = len(ordered) - 1
			}
			return MoveStageByIndex(ordered, i, to)
		}
	}
	return nil, ErrStageNotFound
}

// CompactStages rewrites positions as 0..n-1 keeping the current order
func CompactStages(stages []models.Stage) []models.Stage {
	out := make([]models.Stage, len(stages))
	copy(out, stages)
	SortStages(out)
	for i := range out {
		out[i].Position = i
	}
	return out
}

// CardMove is the outcome of moving a card
type CardMove struct {
	Card      models.Card   // the moved card with its new stage and position
	FromStage string        // stage the card left
	Changed   []models.Card // every card whose stage or position changed
}

// MoveCard moves cardID into toStageID at index to. cards must contain every
// card of the source and destination stages. A negative or out-of-range
// index appends to the destination stage.
func MoveCard(cards []models.Card, cardID, toStageID string, to int) (*CardMove, error) {
	var moving *models.Card
	for i := range cards {
		if cards[i].ID == cardID {
			c := cards[i]
			moving = &c
			break
		}
	}
	if moving == nil {
		return nil, ErrCardNotFound
	}
	fromStageID := moving.StageID

	original := make(map[string]models.Card, len(cards))
	var source, dest []models.Card
	for _, c := range cards {
		original[c.ID] = c
		if c.ID == cardID {
			continue
		}
		switch c.StageID {
		case fromStageID:
			source = append(source, c)
		case toStageID:
			dest = append(dest, c)
		}
	}
	SortCards(source)
	SortCards(dest)
	if fromStageID == toStageID {
		dest = source
		source = nil
	}

	to = clampIndex(to, len(dest))
	moving.StageID = toStageID
	dest = append(dest, models.Card{})
	copy(dest[to+1:], dest[to:])
	dest[to] = *moving

	result := &CardMove{FromStage: fromStageID}
	renumber := func(list []models.Card) {
		for i := range list {
			list[i].Position = i
			prev := original[list[i].ID]
			if prev.Position != i || prev.StageID != list[i].StageID {
				result.Changed = append(result.Changed, list[i])
			}
			if list[i].ID == cardID {
				result.Card = list[i]
			}
		}
	}
	renumber(source)
	renumber(dest)

	return result, nil
}
