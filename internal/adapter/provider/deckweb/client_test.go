package deckweb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/heartmarshall/deck-migrator/internal/config"
	"github.com/heartmarshall/deck-migrator/internal/domain"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := NewClient(config.DownloadConfig{BaseURL: baseURL, Timeout: 5 * time.Second}, newTestLogger())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestClient_Fetch_Success(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/shared/info/42", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><a href="/about">About</a>
			<a class="btn" href='/shared/downloadDeck/42?k=abc&amp;v=2'>Download</a></html>`))
	})
	mux.HandleFunc("/shared/downloadDeck/42", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("k"); got != "abc" {
			t.Errorf("k = %q, want %q", got, "abc")
		}
		if got := r.URL.Query().Get("v"); got != "2" {
			t.Errorf("v = %q, want %q", got, "2")
		}
		w.Write([]byte("zip-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "42")
	c := newTestClient(t, srv.URL)
	if err := c.Fetch(context.Background(), "42", dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, ArchiveName))
	if err != nil {
		t.Fatalf("read archive: %v", err)
	}
	if string(got) != "zip-bytes" {
		t.Errorf("archive = %q, want %q", got, "zip-bytes")
	}
}

func TestClient_Fetch_MissingKey(t *testing.T) {
	t.Parallel()

	var downloads atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/shared/info/7", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="/shared/downloadDeck/7">Download</a>`))
	})
	mux.HandleFunc("/shared/downloadDeck/7", func(w http.ResponseWriter, r *http.Request) {
		downloads.Add(1)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Fetch(context.Background(), "7", t.TempDir())
	if !errors.Is(err, domain.ErrMissingDownloadKey) {
		t.Fatalf("err = %v, want ErrMissingDownloadKey", err)
	}
	if downloads.Load() != 0 {
		t.Error("archive must not be requested without a key")
	}
}

func TestClient_Fetch_PageNotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	err := c.Fetch(context.Background(), "9", t.TempDir())
	if !errors.Is(err, domain.ErrMissingDownloadKey) {
		t.Fatalf("err = %v, want ErrMissingDownloadKey", err)
	}
}

func TestClient_Fetch_RetryOn5xx(t *testing.T) {
	t.Parallel()

	var pageCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/shared/info/5", func(w http.ResponseWriter, r *http.Request) {
		if pageCalls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`<a href="/dl?k=z">x</a>`))
	})
	mux.HandleFunc("/dl", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := newTestClient(t, srv.URL)
	if err := c.Fetch(context.Background(), "5", t.TempDir()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pageCalls.Load(); got != 2 {
		t.Errorf("page calls = %d, want 2", got)
	}
}

func TestClient_Fetch_DownloadFails(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/shared/info/3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<a href="/dl?k=z">x</a>`))
	})
	mux.HandleFunc("/dl", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	dir := t.TempDir()
	c := newTestClient(t, srv.URL)
	err := c.Fetch(context.Background(), "3", dir)
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrMissingDownloadKey) {
		t.Error("a failed download must not drop the deck")
	}
	if _, statErr := os.Stat(filepath.Join(dir, ArchiveName)); !os.IsNotExist(statErr) {
		t.Error("no archive should be written on failure")
	}
}
