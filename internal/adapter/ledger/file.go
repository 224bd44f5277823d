// Package ledger persists the deck job ledger as a JSON file.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/heartmarshall/deck-migrator/internal/domain"
)

// File is a ledger stored at a fixed path. Every Save rewrites the whole file.
type File struct {
	path string
}

// NewFile creates a File for path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Load reads the ledger. A missing file is an empty ledger.
func (f *File) Load() (domain.Ledger, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Ledger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read %s: %w", f.path, err)
	}

	ledger := domain.Ledger{}
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("ledger: decode %s: %w", f.path, err)
	}
	for id, entry := range ledger {
		if entry == nil {
			ledger[id] = &domain.LedgerEntry{}
		}
	}
	return ledger, nil
}

// Save writes the ledger to a temp file next to path and renames it over
// path, so readers never see a partial ledger.
func (f *File) Save(l domain.Ledger) error {
	data, err := json.MarshalIndent(l, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("ledger: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ledger: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ledger: close temp: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ledger: replace %s: %w", f.path, err)
	}
	return nil
}
