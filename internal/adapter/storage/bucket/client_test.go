package bucket

import (
	"context"
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

func newTestClient(url string) *Client {
	return NewClient(config.StorageConfig{
		BaseURL: url + "/",
		Bucket:  "deck-assets",
		APIKey:  "secret",
		Timeout: 5 * time.Second,
	}, "acct-1", newTestLogger())
}

func writeAsset(t *testing.T, content string) domain.Asset {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cat.png")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write asset: %v", err)
	}
	return domain.Asset{
		SourcePath:      path,
		DestinationPath: domain.AssetDestination("42", "abc"),
		ContentType:     "image/png",
		AccessToken:     "tok-1",
	}
}

func TestClient_Upload_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/storage/v1/object/deck-assets/deck-assets/42/abc" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		checks := map[string]string{
			"Authorization":    "Bearer secret",
			"Content-Type":     "image/png",
			"Cache-Control":    "public",
			"X-Upsert":         "true",
			"X-Metadata-Owner": "acct-1",
			"X-Metadata-Firebasestoragedownloadtokens": "tok-1",
		}
		for k, want := range checks {
			if got := r.Header.Get(k); got != want {
				t.Errorf("header %s = %q, want %q", k, got, want)
			}
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != "png-bytes" {
			t.Errorf("body = %q, want %q", body, "png-bytes")
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if err := c.Upload(context.Background(), writeAsset(t, "png-bytes")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestClient_Upload_RetryOn5xx(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "data" {
			t.Errorf("attempt %d body = %q", calls.Load()+1, body)
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if err := c.Upload(context.Background(), writeAsset(t, "data")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
}

func TestClient_Upload_NoRetryOn4xx(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("denied"))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	err := c.Upload(context.Background(), writeAsset(t, "data"))
	if err == nil {
		t.Fatal("expected error for 403")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("calls = %d, want 1", got)
	}
}

func TestClient_Upload_MissingSourceFile(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	asset := writeAsset(t, "data")
	asset.SourcePath = filepath.Join(t.TempDir(), "missing.png")

	if err := c.Upload(context.Background(), asset); err == nil {
		t.Fatal("expected error for missing source file")
	}
	if got := calls.Load(); got != 0 {
		t.Errorf("calls = %d, want 0", got)
	}
}
