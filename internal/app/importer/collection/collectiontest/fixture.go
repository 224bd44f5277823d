// Package collectiontest writes collection databases for tests.
package collectiontest

import (
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

const schema = `
CREATE TABLE col (id INTEGER PRIMARY KEY, decks TEXT NOT NULL, models TEXT NOT NULL);
CREATE TABLE notes (id INTEGER PRIMARY KEY, mid INTEGER NOT NULL, flds TEXT NOT NULL, tags TEXT NOT NULL);
CREATE TABLE cards (id INTEGER PRIMARY KEY, nid INTEGER NOT NULL, ord INTEGER NOT NULL);
`

// Fixture describes the content of an unpacked deck archive.
type Fixture struct {
	Decks  map[string]domain.DeckDescriptor
	Models map[string]domain.Model
	Notes  []domain.Note
	Cards  []domain.Card
	// Media maps on-disk index names to original filenames.
	Media map[string]string
	// Files are written next to the database, keyed by on-disk name.
	Files map[string][]byte
}

// BasicModelID is the model id used by Basic.
const BasicModelID = "1001"

// Basic returns a one-deck fixture with a Front/Back model and one note and
// card per entry of fields (each entry is the raw separator-joined value).
func Basic(deckName string, fields ...string) Fixture {
	f := Fixture{
		Decks: map[string]domain.DeckDescriptor{
			"1":   {ID: 1, Name: "Default"},
			"500": {ID: 500, Name: deckName},
		},
		Models: map[string]domain.Model{
			BasicModelID: {
				Name: "Basic",
				Fields: []domain.ModelField{
					{Name: "Back", Ord: 1},
					{Name: "Front", Ord: 0},
				},
				Templates: []domain.CardTemplate{
					{Name: "Card 1", Ord: 0, Front: "{{Front}}", Back: "{{Back}}"},
				},
			},
		},
	}

	for i, raw := range fields {
		id := int64(i + 1)
		f.Notes = append(f.Notes, domain.Note{ID: id, ModelID: BasicModelID, Fields: raw})
		f.Cards = append(f.Cards, domain.Card{ID: 100 + id, NoteID: id, Ord: 0})
	}
	return f
}

// Write creates the collection database, media index and media files in dir.
func Write(t testing.TB, dir string, f Fixture) {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(dir, "collection.anki2"))
	if err != nil {
		t.Fatalf("open fixture db: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(schema); err != nil {
		t.Fatalf("create fixture schema: %v", err)
	}

	if _, err := db.Exec(`INSERT INTO col (id, decks, models) VALUES (1, ?, ?)`,
		mustJSON(t, f.Decks), mustJSON(t, f.Models)); err != nil {
		t.Fatalf("insert col: %v", err)
	}

	for _, n := range f.Notes {
		mid, err := strconv.ParseInt(n.ModelID, 10, 64)
		if err != nil {
			t.Fatalf("note %d model id: %v", n.ID, err)
		}
		if _, err := db.Exec(`INSERT INTO notes (id, mid, flds, tags) VALUES (?, ?, ?, ?)`,
			n.ID, mid, n.Fields, n.Tags); err != nil {
			t.Fatalf("insert note: %v", err)
		}
	}

	for _, c := range f.Cards {
		if _, err := db.Exec(`INSERT INTO cards (id, nid, ord) VALUES (?, ?, ?)`,
			c.ID, c.NoteID, c.Ord); err != nil {
			t.Fatalf("insert card: %v", err)
		}
	}

	if f.Media != nil {
		if err := os.WriteFile(filepath.Join(dir, "media"), []byte(mustJSON(t, f.Media)), 0o644); err != nil {
			t.Fatalf("write media index: %v", err)
		}
	}

	for name, data := range f.Files {
		if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
			t.Fatalf("write media file %s: %v", name, err)
		}
	}
}

func mustJSON(t testing.TB, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal fixture: %v", err)
	}
	return string(data)
}
