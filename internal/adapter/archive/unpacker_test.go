package archive

import (
	"archive/zip"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func writeZip(t *testing.T, path string, files map[string]string) {
	t.Helper()
	out, err := os.Create(path)
	if err != nil {
		t.Fatalf("create zip: %v", err)
	}
	zw := zip.NewWriter(out)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip entry %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip writer: %v", err)
	}
	if err := out.Close(); err != nil {
		t.Fatalf("close zip file: %v", err)
	}
}

func TestUnzip_ExtractsAndRemovesArchive(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, FileName), map[string]string{
		"collection.anki2": "sqlite",
		"media":            `{"0":"cat.png"}`,
		"0":                "png",
	})

	u := NewUnpacker(testLogger())
	if err := u.Unzip(dir); err != nil {
		t.Fatalf("Unzip: %v", err)
	}

	for name, want := range map[string]string{"collection.anki2": "sqlite", "media": `{"0":"cat.png"}`, "0": "png"} {
		got, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		if string(got) != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); !os.IsNotExist(err) {
		t.Errorf("archive still present, stat err = %v", err)
	}
}

func TestUnzip_MissingArchiveIsNoop(t *testing.T) {
	u := NewUnpacker(testLogger())
	if err := u.Unzip(t.TempDir()); err != nil {
		t.Fatalf("Unzip on empty dir: %v", err)
	}
}

func TestUnzip_CorruptArchive(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}

	u := NewUnpacker(testLogger())
	if err := u.Unzip(dir); err == nil {
		t.Fatal("expected error for corrupt archive")
	}
}

func TestUnzip_RejectsEscapingEntries(t *testing.T) {
	dir := t.TempDir()
	writeZip(t, filepath.Join(dir, FileName), map[string]string{"../evil": "x"})

	u := NewUnpacker(testLogger())
	if err := u.Unzip(dir); err == nil {
		t.Fatal("expected error for entry escaping the deck dir")
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(dir), "evil")); !os.IsNotExist(err) {
		t.Errorf("escaping entry was written, stat err = %v", err)
	}
}

func TestRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "42")
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	u := NewUnpacker(testLogger())
	if err := u.Remove(dir); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("dir still present, stat err = %v", err)
	}
	if err := u.Remove(dir); err != nil {
		t.Errorf("Remove on missing dir: %v", err)
	}
}
