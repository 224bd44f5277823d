// Package archive unpacks downloaded deck archives and removes their
// working directories.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the archive a deck download is saved as.
const FileName = "main.apkg"

// Unpacker extracts deck archives in place.
type Unpacker struct {
	log *slog.Logger
}

// NewUnpacker creates an Unpacker.
func NewUnpacker(logger *slog.Logger) *Unpacker {
	return &Unpacker{log: logger.With("adapter", "archive")}
}

// Unzip extracts dir/main.apkg into dir and deletes the archive. A missing
// archive is not an error: the deck was unpacked by an earlier run.
func (u *Unpacker) Unzip(dir string) error {
	path := filepath.Join(dir, FileName)

	r, err := zip.OpenReader(path)
	if errors.Is(err, fs.ErrNotExist) {
		u.log.Debug("no archive to unpack", slog.String("dir", dir))
		return nil
	}
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	extracted := 0
	for _, f := range r.File {
		if err := extract(dir, f); err != nil {
			r.Close()
			return err
		}
		extracted++
	}
	if err := r.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}

	u.log.Debug("archive unpacked", slog.String("dir", dir), slog.Int("files", extracted))
	return nil
}

// Remove deletes dir recursively. A missing dir is not an error.
func (u *Unpacker) Remove(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("remove %s: %w", dir, err)
	}
	return nil
}

func extract(dir string, f *zip.File) error {
	target := filepath.Join(dir, f.Name)
	if !strings.HasPrefix(target, filepath.Clean(dir)+string(os.PathSeparator)) {
		return fmt.Errorf("entry %q escapes %s", f.Name, dir)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", f.Name, err)
	}

	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return fmt.Errorf("write %s: %w", target, err)
	}
	return dst.Close()
}
