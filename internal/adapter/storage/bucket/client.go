// Package bucket uploads deck media to an HTTP object-storage bucket.
package bucket

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/heartmarshall/deck-migrator/internal/config"
	"github.com/heartmarshall/deck-migrator/internal/domain"
)

const retryDelay = 500 * time.Millisecond

// Client writes objects through the storage REST API.
type Client struct {
	baseURL    string
	bucket     string
	apiKey     string
	owner      string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client. owner is recorded as object metadata.
func NewClient(cfg config.StorageConfig, owner string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		bucket:     cfg.Bucket,
		apiKey:     cfg.APIKey,
		owner:      owner,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("adapter", "bucket"),
	}
}

// Upload streams the asset's source file to its destination path. Existing
// objects are overwritten.
func (c *Client) Upload(ctx context.Context, asset domain.Asset) error {
	resp, err := c.doWithRetry(ctx, asset)
	if err != nil {
		return fmt.Errorf("bucket: upload %s: %w", asset.DestinationPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("bucket: upload %s: status %d: %s",
			asset.DestinationPath, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	c.log.DebugContext(ctx, "asset uploaded",
		slog.String("destination", asset.DestinationPath),
		slog.String("content_type", asset.ContentType),
	)
	return nil
}

// doWithRetry sends the upload with a single retry on 5xx or network errors.
// The file is reopened for every attempt.
func (c *Client) doWithRetry(ctx context.Context, asset domain.Asset) (*http.Response, error) {
	resp, err := c.send(ctx, asset)

	shouldRetry := (err != nil && !isLocal(err)) || (resp != nil && resp.StatusCode >= 500)
	if !shouldRetry || ctx.Err() != nil {
		return resp, err
	}

	reason := "network error"
	if err == nil {
		reason = fmt.Sprintf("status %d", resp.StatusCode)
		resp.Body.Close()
	}
	c.log.WarnContext(ctx, "bucket retry",
		slog.String("destination", asset.DestinationPath),
		slog.String("reason", reason),
	)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(retryDelay):
	}

	return c.send(ctx, asset)
}

func (c *Client) send(ctx context.Context, asset domain.Asset) (*http.Response, error) {
	f, err := os.Open(asset.SourcePath)
	if err != nil {
		return nil, localError{err}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, localError{err}
	}

	url := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, asset.DestinationPath)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, f)
	if err != nil {
		return nil, localError{err}
	}
	req.ContentLength = info.Size()
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Content-Type", asset.ContentType)
	req.Header.Set("Cache-Control", "public")
	req.Header.Set("x-upsert", "true")
	req.Header.Set("x-metadata-owner", c.owner)
	req.Header.Set("x-metadata-firebaseStorageDownloadTokens", asset.AccessToken)

	return c.httpClient.Do(req)
}

// localError marks failures that happen before any request is sent.
type localError struct{ err error }

func (e localError) Error() string { return e.err.Error() }
func (e localError) Unwrap() error { return e.err }

func isLocal(err error) bool {
	var le localError
	return errors.As(err, &le)
}
