package importer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

// Partitioner attributes cards to fixed-capacity sections, creating each
// section document before the first card that lands in it.
type Partitioner struct {
	log      *slog.Logger
	store    DocumentStore
	deckID   string
	capacity int

	current string
	counts  []int
}

// NewPartitioner creates a Partitioner for deckID. A capacity below one is
// treated as one.
func NewPartitioner(log *slog.Logger, store DocumentStore, deckID string, capacity int) *Partitioner {
	return &Partitioner{
		log:      log,
		store:    store,
		deckID:   deckID,
		capacity: max(capacity, 1),
	}
}

// Assign returns the section id for the next card. When the current section
// is full (or none exists yet) a new section is created first; a creation
// failure is returned and leaves the partitioner unchanged.
func (p *Partitioner) Assign(ctx context.Context) (string, error) {
	if len(p.counts) == 0 || p.counts[len(p.counts)-1] >= p.capacity {
		index := len(p.counts)
		id := p.store.NewID()
		path := domain.SectionsPath(p.deckID) + "/" + id

		if err := p.store.Create(ctx, path, domain.NewSection(index)); err != nil {
			return "", fmt.Errorf("create section %d: %w", index, err)
		}

		p.log.Info("created section",
			slog.String("deck_id", p.deckID),
			slog.Int("index", index),
			slog.String("section_id", id),
		)
		p.current = id
		p.counts = append(p.counts, 0)
	}

	p.counts[len(p.counts)-1]++
	return p.current, nil
}

// Counts returns the number of cards attributed to each section, in order.
func (p *Partitioner) Counts() []int {
	out := make([]int, len(p.counts))
	copy(out, p.counts)
	return out
}
