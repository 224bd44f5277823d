package domain

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// FieldSeparator delimits positional field values inside a note row.
const FieldSeparator = "\u001f"

// SourceName is the desktop application the decks are exported from.
const SourceName = "anki"

// LedgerEntry is the persisted download/import state of one deck.
type LedgerEntry struct {
	Downloaded bool     `json:"downloaded"`
	Imported   bool     `json:"imported"`
	Topics     []string `json:"topics"`
}

// Ledger maps deck id to its job state.
type Ledger map[string]*LedgerEntry

// IDs returns the deck ids in ascending order.
func (l Ledger) IDs() []string {
	ids := make([]string, 0, len(l))
	for id := range l {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ModelField is one field definition of a note model.
type ModelField struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
}

// CardTemplate is one front/back template pair of a note model.
type CardTemplate struct {
	Name  string `json:"name"`
	Ord   int    `json:"ord"`
	Front string `json:"qfmt"`
	Back  string `json:"afmt"`
}

// Model is a card-type definition shared by many notes.
type Model struct {
	ID        string         `json:"-"`
	Name      string         `json:"name"`
	Fields    []ModelField   `json:"flds"`
	Templates []CardTemplate `json:"tmpls"`
}

// FieldNames returns the field names ordered by their declared ord.
func (m Model) FieldNames() []string {
	fields := make([]ModelField, len(m.Fields))
	copy(fields, m.Fields)
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Ord < fields[j].Ord })

	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

// Template returns the template pair at position ord.
func (m Model) Template(ord int) (CardTemplate, error) {
	if ord < 0 || ord >= len(m.Templates) {
		return CardTemplate{}, fmt.Errorf("model %s ord %d: %w", m.ID, ord, ErrTemplateNotFound)
	}
	return m.Templates[ord], nil
}

// Note holds the raw field values of one logical flashcard.
type Note struct {
	ID      int64
	ModelID string
	Fields  string
	Tags    string
}

// FieldValues splits the note's raw fields on FieldSeparator.
func (n Note) FieldValues() []string {
	return strings.Split(n.Fields, FieldSeparator)
}

// TagList returns the note's tags normalized with NormalizeTags.
func (n Note) TagList() []string {
	return NormalizeTags(n.Tags)
}

// Card selects which template pair of a note's model is rendered.
type Card struct {
	ID     int64
	NoteID int64
	Ord    int
}

// BuildInput is everything needed to render one card document.
type BuildInput struct {
	NoteID        int64
	FieldNames    []string
	FieldValues   []string
	FrontTemplate string
	BackTemplate  string
	Tags          []string
}

// CardDocument is the remote record written for each imported card.
type CardDocument struct {
	Section     string   `json:"section"`
	Front       string   `json:"front"`
	Back        string   `json:"back"`
	ViewCount   int      `json:"viewCount"`
	ReviewCount int      `json:"reviewCount"`
	SkipCount   int      `json:"skipCount"`
	Tags        []string `json:"tags"`
}

// Section is a fixed-capacity bucket of cards within a deck.
type Section struct {
	Name      string `json:"name"`
	Index     int    `json:"index"`
	CardCount int    `json:"cardCount"`
}

// NewSection builds the section record for a 0-based index.
func NewSection(index int) Section {
	return Section{
		Name:  fmt.Sprintf("Section %d", index+1),
		Index: index,
	}
}

// Asset is a media file queued for upload.
type Asset struct {
	SourcePath      string
	DestinationPath string
	ContentType     string
	AccessToken     string
}

// DeckDescriptor is a deck entry of the collection's deck table.
type DeckDescriptor struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// DeckDocument is the remote deck record created before any card is written.
type DeckDocument struct {
	Topics               []string  `json:"topics"`
	HasImage             bool      `json:"hasImage"`
	Name                 string    `json:"name"`
	Subtitle             string    `json:"subtitle"`
	Description          string    `json:"description"`
	ViewCount            int       `json:"viewCount"`
	UniqueViewCount      int       `json:"uniqueViewCount"`
	RatingCount          int       `json:"ratingCount"`
	OneStarRatingCount   int       `json:"1StarRatingCount"`
	TwoStarRatingCount   int       `json:"2StarRatingCount"`
	ThreeStarRatingCount int       `json:"3StarRatingCount"`
	FourStarRatingCount  int       `json:"4StarRatingCount"`
	FiveStarRatingCount  int       `json:"5StarRatingCount"`
	AverageRating        float64   `json:"averageRating"`
	DownloadCount        int       `json:"downloadCount"`
	CardCount            int       `json:"cardCount"`
	UnsectionedCardCount int       `json:"unsectionedCardCount"`
	CurrentUserCount     int       `json:"currentUserCount"`
	AllTimeUserCount     int       `json:"allTimeUserCount"`
	FavoriteCount        int       `json:"favoriteCount"`
	Creator              string    `json:"creator"`
	Created              time.Time `json:"created"`
	Updated              time.Time `json:"updated"`
	Source               string    `json:"source"`
}

// NewDeckDocument builds a fresh deck record with zeroed counters.
func NewDeckDocument(name string, topics []string, creator string, now time.Time) DeckDocument {
	if topics == nil {
		topics = []string{}
	}
	return DeckDocument{
		Topics:  topics,
		Name:    name,
		Creator: creator,
		Created: now,
		Updated: now,
		Source:  SourceName,
	}
}

// DocumentWrite is one document create in a multi-document batch.
type DocumentWrite struct {
	Path string
	Data any
}

// StoredDocument is a document read back from the document store.
type StoredDocument struct {
	Path      string
	Data      json.RawMessage
	CreatedAt time.Time
}

// DocumentQuery filters and orders documents of one collection.
type DocumentQuery struct {
	// Where matches documents containing all the given top-level fields.
	Where map[string]any
	// OrderBy is a top-level field; empty orders by creation time.
	OrderBy string
	Desc    bool
	Limit   uint64
}

// DeckPath is the document path of a deck record.
func DeckPath(deckID string) string {
	return "decks/" + deckID
}

// SectionsPath is the collection holding a deck's sections.
func SectionsPath(deckID string) string {
	return DeckPath(deckID) + "/sections"
}

// CardsPath is the collection holding a deck's cards.
func CardsPath(deckID string) string {
	return DeckPath(deckID) + "/cards"
}

// AssetDestination is the blob path an asset is uploaded to.
func AssetDestination(deckID, assetID string) string {
	return "deck-assets/" + deckID + "/" + assetID
}
