package collection

import (
	"fmt"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

// JoinResult is the outcome of joining one note. Err is set when the note
// cannot be rendered; such notes are skipped, not fatal.
type JoinResult struct {
	Input domain.BuildInput
	Err   error
}

// Join resolves every note to its first card, its model and the template pair
// at the card's ord. Results keep note order.
func Join(models map[string]domain.Model, cards []domain.Card, notes []domain.Note) []JoinResult {
	cardByNote := make(map[int64]domain.Card, len(cards))
	for _, c := range cards {
		if _, ok := cardByNote[c.NoteID]; !ok {
			cardByNote[c.NoteID] = c
		}
	}

	results := make([]JoinResult, 0, len(notes))
	for _, n := range notes {
		input, err := joinNote(models, cardByNote, n)
		results = append(results, JoinResult{Input: input, Err: err})
	}
	return results
}

func joinNote(models map[string]domain.Model, cardByNote map[int64]domain.Card, n domain.Note) (domain.BuildInput, error) {
	card, ok := cardByNote[n.ID]
	if !ok {
		return domain.BuildInput{}, fmt.Errorf("note %d: %w", n.ID, domain.ErrCardNotFound)
	}

	model, ok := models[n.ModelID]
	if !ok {
		return domain.BuildInput{}, fmt.Errorf("note %d model %s: %w", n.ID, n.ModelID, domain.ErrModelNotFound)
	}

	tmpl, err := model.Template(card.Ord)
	if err != nil {
		return domain.BuildInput{}, fmt.Errorf("note %d: %w", n.ID, err)
	}

	return domain.BuildInput{
		NoteID:        n.ID,
		FieldNames:    model.FieldNames(),
		FieldValues:   n.FieldValues(),
		FrontTemplate: tmpl.Front,
		BackTemplate:  tmpl.Back,
		Tags:          n.TagList(),
	}, nil
}
