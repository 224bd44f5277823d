package collection

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ReadMediaMap reads the media index of an unpacked archive and inverts it to
// filename -> on-disk name. A missing or empty index means the deck has no
// media.
func ReadMediaMap(dir string) (map[string]string, error) {
	data, err := os.ReadFile(filepath.Join(dir, MediaFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read media index: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]string{}, nil
	}

	var byIndex map[string]string
	if err := json.Unmarshal(data, &byIndex); err != nil {
		return nil, fmt.Errorf("decode media index: %w", err)
	}

	byName := make(map[string]string, len(byIndex))
	for index, name := range byIndex {
		byName[name] = index
	}
	return byName, nil
}
