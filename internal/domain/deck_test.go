package domain

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestLedger_IDs(t *testing.T) {
	t.Parallel()

	l := Ledger{"30": {}, "100": {}, "2": {}}
	want := []string{"100", "2", "30"}
	if got := l.IDs(); !reflect.DeepEqual(got, want) {
		t.Fatalf("IDs() = %v, want %v", got, want)
	}
}

func TestLedgerEntry_JSON(t *testing.T) {
	t.Parallel()

	raw := `{"downloaded":true,"imported":false,"topics":["a","b"]}`
	var e LedgerEntry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !e.Downloaded || e.Imported || len(e.Topics) != 2 {
		t.Fatalf("unexpected entry: %+v", e)
	}
}

func TestModel_FieldNames(t *testing.T) {
	t.Parallel()

	m := Model{Fields: []ModelField{
		{Name: "Back", Ord: 1},
		{Name: "Extra", Ord: 2},
		{Name: "Front", Ord: 0},
	}}
	want := []string{"Front", "Back", "Extra"}
	if got := m.FieldNames(); !reflect.DeepEqual(got, want) {
		t.Fatalf("FieldNames() = %v, want %v", got, want)
	}
	if m.Fields[0].Name != "Back" {
		t.Fatal("FieldNames must not reorder the model's fields")
	}
}

func TestModel_Template(t *testing.T) {
	t.Parallel()

	m := Model{ID: "7", Templates: []CardTemplate{{Front: "{{Front}}", Back: "{{Back}}"}}}

	tmpl, err := m.Template(0)
	if err != nil {
		t.Fatalf("Template(0): %v", err)
	}
	if tmpl.Front != "{{Front}}" {
		t.Errorf("Front = %q", tmpl.Front)
	}

	for _, ord := range []int{-1, 1} {
		if _, err := m.Template(ord); !errors.Is(err, ErrTemplateNotFound) {
			t.Errorf("Template(%d) err = %v, want ErrTemplateNotFound", ord, err)
		}
	}
}

func TestModel_UnmarshalCollectionJSON(t *testing.T) {
	t.Parallel()

	raw := `{"id": 1342697561419, "name": "Basic",
		"flds": [{"name": "Front", "ord": 0}],
		"tmpls": [{"name": "Card 1", "ord": 0, "qfmt": "{{Front}}", "afmt": "{{FrontSide}}<hr id=answer>"}]}`

	var m Model
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.ID != "" {
		t.Errorf("ID must come from the map key, got %q", m.ID)
	}
	if m.Templates[0].Back != "{{FrontSide}}<hr id=answer>" {
		t.Errorf("Back = %q", m.Templates[0].Back)
	}
}

func TestNote_FieldValuesAndTags(t *testing.T) {
	t.Parallel()

	n := Note{Fields: "Hello" + FieldSeparator + "World" + FieldSeparator, Tags: " Greeting  Basic "}

	if got := n.FieldValues(); !reflect.DeepEqual(got, []string{"Hello", "World", ""}) {
		t.Errorf("FieldValues() = %q", got)
	}
	if got := n.TagList(); !reflect.DeepEqual(got, []string{"greeting", "basic"}) {
		t.Errorf("TagList() = %q", got)
	}
}

func TestNewSection(t *testing.T) {
	t.Parallel()

	s := NewSection(2)
	if s.Name != "Section 3" || s.Index != 2 || s.CardCount != 0 {
		t.Fatalf("NewSection(2) = %+v", s)
	}
}

func TestNewDeckDocument(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	d := NewDeckDocument("Spanish", nil, "acct", now)

	if d.Topics == nil {
		t.Error("Topics must never be nil")
	}
	if d.Source != SourceName || d.Creator != "acct" {
		t.Errorf("unexpected deck document: %+v", d)
	}
	if !d.Created.Equal(now) || !d.Updated.Equal(now) {
		t.Errorf("Created/Updated = %v/%v, want %v", d.Created, d.Updated, now)
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"topics":[]`, `"1StarRatingCount":0`, `"source":"anki"`, `"hasImage":false`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("encoded deck missing %s: %s", key, data)
		}
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()

	if got := DeckPath("42"); got != "decks/42" {
		t.Errorf("DeckPath = %q", got)
	}
	if got := SectionsPath("42"); got != "decks/42/sections" {
		t.Errorf("SectionsPath = %q", got)
	}
	if got := CardsPath("42"); got != "decks/42/cards" {
		t.Errorf("CardsPath = %q", got)
	}
	if got := AssetDestination("42", "abc"); got != "deck-assets/42/abc" {
		t.Errorf("AssetDestination = %q", got)
	}
}
