// Package deckweb downloads shared deck archives from the deck sharing site.
package deckweb

import (
	"context"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/heartmarshall/deck-migrator/internal/config"
	"github.com/heartmarshall/deck-migrator/internal/domain"
)

// ArchiveName is the file a deck archive is saved as.
const ArchiveName = "main.apkg"

var hrefPattern = regexp.MustCompile(`(?i)href\s*=\s*["']([^"']+)["']`)

// Client fetches share pages and their archives.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client for the site at cfg.BaseURL.
func NewClient(cfg config.DownloadConfig, logger *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("deckweb: parse base url: %w", err)
	}
	return &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("adapter", "deckweb"),
	}, nil
}

// Fetch saves the archive of deckID to dir/main.apkg. It fails with
// domain.ErrMissingDownloadKey when the share page has no keyed download link.
func (c *Client) Fetch(ctx context.Context, deckID, dir string) error {
	link, err := c.downloadLink(ctx, deckID)
	if err != nil {
		return err
	}

	resp, err := c.get(ctx, link, deckID)
	if err != nil {
		return fmt.Errorf("deckweb: download %s: %w", deckID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("deckweb: download %s: unexpected status %d", deckID, resp.StatusCode)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("deckweb: create %s: %w", dir, err)
	}

	path := filepath.Join(dir, ArchiveName)
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("deckweb: create %s: %w", path, err)
	}
	n, err := io.Copy(out, resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("deckweb: write %s: %w", path, err)
	}

	c.log.DebugContext(ctx, "archive saved", slog.String("deck_id", deckID), slog.Int64("bytes", n))
	return nil
}

// downloadLink scans the share page of deckID for a link carrying a "k"
// query parameter and returns it as an absolute URL.
func (c *Client) downloadLink(ctx context.Context, deckID string) (string, error) {
	page := c.baseURL.JoinPath("shared", "info", deckID)

	resp, err := c.get(ctx, page.String(), deckID)
	if err != nil {
		return "", fmt.Errorf("deckweb: share page %s: %w", deckID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", fmt.Errorf("deckweb: share page %s: %w", deckID, domain.ErrMissingDownloadKey)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("deckweb: share page %s: unexpected status %d", deckID, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("deckweb: read share page %s: %w", deckID, err)
	}

	for _, m := range hrefPattern.FindAllStringSubmatch(string(body), -1) {
		ref, err := url.Parse(html.UnescapeString(m[1]))
		if err != nil || ref.Query().Get("k") == "" {
			continue
		}
		return page.ResolveReference(ref).String(), nil
	}
	return "", fmt.Errorf("deckweb: deck %s: %w", deckID, domain.ErrMissingDownloadKey)
}

func (c *Client) get(ctx context.Context, rawURL, deckID string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.doWithRetry(ctx, req, deckID)
}

// doWithRetry executes the request with a single retry on 5xx or network errors.
func (c *Client) doWithRetry(ctx context.Context, req *http.Request, deckID string) (*http.Response, error) {
	resp, err := c.httpClient.Do(req)

	shouldRetry := err != nil || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry || ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil && resp != nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
	}
	c.log.WarnContext(ctx, "deckweb retry", slog.String("deck_id", deckID), slog.String("reason", reason))

	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}

	time.Sleep(500 * time.Millisecond)

	return c.httpClient.Do(req)
}
