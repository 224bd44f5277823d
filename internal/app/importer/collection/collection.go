// Package collection reads decks, note models, cards and notes out of the
// SQLite database embedded in an exported deck archive.
package collection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

const (
	// FileName is the database file inside an unpacked archive.
	FileName = "collection.anki2"
	// MediaFileName is the JSON index of media files inside an unpacked archive.
	MediaFileName = "media"

	defaultDeckKey = "1"
)

var displayNameRe = regexp.MustCompile(`(?i)anki|demo|test|::`)

// Reader reads one collection database over a single connection.
type Reader struct {
	db *sql.DB
}

// Open opens the collection database at path. The file must exist.
func Open(path string) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("collection: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("collection: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("collection: ping %s: %w", path, err)
	}

	return &Reader{db: db}, nil
}

// OpenDir opens the collection database of an unpacked archive directory.
func OpenDir(dir string) (*Reader, error) {
	return Open(filepath.Join(dir, FileName))
}

// Close releases the database handle.
func (r *Reader) Close() error {
	return r.db.Close()
}

// Deck returns the first deck descriptor that is not the default deck.
func (r *Reader) Deck(ctx context.Context) (domain.DeckDescriptor, error) {
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT decks FROM col LIMIT 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DeckDescriptor{}, domain.ErrDeckNotFound
	}
	if err != nil {
		return domain.DeckDescriptor{}, fmt.Errorf("query decks: %w", err)
	}

	decks := make(map[string]domain.DeckDescriptor)
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &decks); err != nil {
			return domain.DeckDescriptor{}, fmt.Errorf("decode decks: %w", err)
		}
	}

	for _, key := range sortedKeys(decks) {
		if key != defaultDeckKey {
			return decks[key], nil
		}
	}
	return domain.DeckDescriptor{}, domain.ErrDeckNotFound
}

// Models returns every note model keyed by model id.
func (r *Reader) Models(ctx context.Context) (map[string]domain.Model, error) {
	var raw sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT models FROM col LIMIT 1`).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]domain.Model{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query models: %w", err)
	}

	models := make(map[string]domain.Model)
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &models); err != nil {
			return nil, fmt.Errorf("decode models: %w", err)
		}
	}
	for id, m := range models {
		m.ID = id
		models[id] = m
	}
	return models, nil
}

// Cards returns every card row in id order.
func (r *Reader) Cards(ctx context.Context) ([]domain.Card, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, nid, ord FROM cards ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()

	var cards []domain.Card
	for rows.Next() {
		var c domain.Card
		if err := rows.Scan(&c.ID, &c.NoteID, &c.Ord); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cards: %w", err)
	}
	return cards, nil
}

// Notes returns every note row in id order.
func (r *Reader) Notes(ctx context.Context) ([]domain.Note, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, mid, flds, tags FROM notes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query notes: %w", err)
	}
	defer rows.Close()

	var notes []domain.Note
	for rows.Next() {
		var (
			n   domain.Note
			mid int64
		)
		if err := rows.Scan(&n.ID, &mid, &n.Fields, &n.Tags); err != nil {
			return nil, fmt.Errorf("scan note: %w", err)
		}
		n.ModelID = strconv.FormatInt(mid, 10)
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notes: %w", err)
	}
	return notes, nil
}

// Inputs reads models, cards and notes and joins them into card-build inputs.
func (r *Reader) Inputs(ctx context.Context) ([]JoinResult, error) {
	models, err := r.Models(ctx)
	if err != nil {
		return nil, err
	}
	cards, err := r.Cards(ctx)
	if err != nil {
		return nil, err
	}
	notes, err := r.Notes(ctx)
	if err != nil {
		return nil, err
	}
	return Join(models, cards, notes), nil
}

// DisplayName cleans a raw deck name for display.
func DisplayName(name string) string {
	return domain.CapitalizeFirst(domain.CollapseSpaces(displayNameRe.ReplaceAllString(name, " ")))
}

// sortedKeys orders numeric keys numerically and everything else after them
// lexically, matching the iteration order of the exporting application.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, errA := strconv.ParseUint(keys[i], 10, 64)
		b, errB := strconv.ParseUint(keys[j], 10, 64)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}
