// Package downloader fetches the archives of every deck the ledger lists as
// not yet downloaded.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/heartmarshall/deck-migrator/internal/domain"
	"github.com/heartmarshall/deck-migrator/pkg/ctxutil"
)

// Fetcher downloads one deck archive into dir. It fails with
// domain.ErrMissingDownloadKey when the deck can never be downloaded.
// Implemented by deckweb.Client.
type Fetcher interface {
	Fetch(ctx context.Context, deckID, dir string) error
}

// LedgerStore persists the deck job ledger. Implemented by ledger.File.
type LedgerStore interface {
	Load() (domain.Ledger, error)
	Save(l domain.Ledger) error
}

// Result counts the outcome of a download run.
type Result struct {
	Downloaded int
	Removed    int
	Duration   time.Duration
}

// Driver downloads pending decks sequentially, saving the ledger after each.
type Driver struct {
	log         *slog.Logger
	ledger      LedgerStore
	fetcher     Fetcher
	downloadDir string
}

// NewDriver creates a new Driver.
func NewDriver(log *slog.Logger, ledger LedgerStore, fetcher Fetcher, downloadDir string) *Driver {
	return &Driver{
		log:         log.With("component", "downloader"),
		ledger:      ledger,
		fetcher:     fetcher,
		downloadDir: downloadDir,
	}
}

// Run downloads every deck with Downloaded unset, in deck id order.
//
// A deck failing with domain.ErrMissingDownloadKey is dropped from the ledger.
// Any other fetch error stops the run; decks downloaded so far stay recorded.
func (d *Driver) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	log := ctxutil.Logger(ctx, d.log)

	ledger, err := d.ledger.Load()
	if err != nil {
		return Result{}, fmt.Errorf("load ledger: %w", err)
	}

	var result Result
	for _, id := range ledger.IDs() {
		entry := ledger[id]
		if entry == nil || entry.Downloaded {
			continue
		}

		err := d.fetcher.Fetch(ctx, id, filepath.Join(d.downloadDir, id))
		switch {
		case errors.Is(err, domain.ErrMissingDownloadKey):
			delete(ledger, id)
			if err := d.ledger.Save(ledger); err != nil {
				return result, fmt.Errorf("save ledger: %w", err)
			}
			result.Removed++
			log.Warn("deck removed from ledger", slog.String("deck_id", id), slog.String("reason", err.Error()))
			continue
		case err != nil:
			result.Duration = time.Since(start)
			return result, fmt.Errorf("download deck %s: %w", id, err)
		}

		entry.Downloaded = true
		if err := d.ledger.Save(ledger); err != nil {
			return result, fmt.Errorf("save ledger: %w", err)
		}
		result.Downloaded++
		log.Info("downloaded deck", slog.String("deck_id", id), slog.Int("count", result.Downloaded))
	}

	result.Duration = time.Since(start)
	log.Info("download run completed",
		slog.Int("downloaded", result.Downloaded),
		slog.Int("removed", result.Removed),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}
