package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

func TestFile_LoadMissing(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "decks.json"))

	l, err := f.Load()
	require.NoError(t, err)
	assert.Empty(t, l)
}

func TestFile_LoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decks.json")
	raw := `{
		"123": {"downloaded": true, "imported": false, "topics": ["spanish"]},
		"456": {"downloaded": false, "topics": []},
		"789": null
	}`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	l, err := NewFile(path).Load()
	require.NoError(t, err)
	require.Len(t, l, 3)
	assert.True(t, l["123"].Downloaded)
	assert.Equal(t, []string{"spanish"}, l["123"].Topics)
	assert.False(t, l["456"].Downloaded)
	require.NotNil(t, l["789"])
	assert.Equal(t, []string{"123", "456", "789"}, l.IDs())
}

func TestFile_LoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "decks.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFile(path).Load()
	assert.Error(t, err)
}

func TestFile_SaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	f := NewFile(filepath.Join(dir, "decks.json"))

	l := domain.Ledger{
		"1": {Downloaded: true, Topics: []string{"a"}},
		"2": {Topics: []string{}},
	}
	require.NoError(t, f.Save(l))

	l["1"].Downloaded = false
	delete(l, "2")
	require.NoError(t, f.Save(l))

	got, err := f.Load()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.False(t, got["1"].Downloaded)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestFile_SaveMissingDir(t *testing.T) {
	f := NewFile(filepath.Join(t.TempDir(), "nope", "decks.json"))

	err := f.Save(domain.Ledger{})
	assert.Error(t, err)
}
