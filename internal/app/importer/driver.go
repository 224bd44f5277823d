package importer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/heartmarshall/deck-migrator/pkg/ctxutil"
)

// DeckImporter imports a single deck. Implemented by Pipeline.
type DeckImporter interface {
	ImportDeck(ctx context.Context, deckID string, topics []string) (string, error)
}

var _ DeckImporter = (*Pipeline)(nil)

// DriverResult counts the outcome of a multi-deck import.
type DriverResult struct {
	Imported int
	Failed   int
	// Skipped counts downloaded decks whose directory is gone, i.e. decks a
	// previous run already imported.
	Skipped  int
	Duration time.Duration
}

// Driver imports every downloaded deck of the ledger, one after another.
type Driver struct {
	log         *slog.Logger
	ledger      LedgerStore
	importer    DeckImporter
	downloadDir string
}

// NewDriver creates a new Driver. Deck directories live under downloadDir.
func NewDriver(log *slog.Logger, ledger LedgerStore, importer DeckImporter, downloadDir string) *Driver {
	return &Driver{
		log:         log.With("component", "import_driver"),
		ledger:      ledger,
		importer:    importer,
		downloadDir: downloadDir,
	}
}

// Run imports decks with Downloaded set, in deck id order. A failed deck is
// logged and counted; the driver moves on to the next one. Only a ledger
// read failure or context cancellation stops the run.
func (d *Driver) Run(ctx context.Context) (DriverResult, error) {
	start := time.Now()
	log := ctxutil.Logger(ctx, d.log)

	ledger, err := d.ledger.Load()
	if err != nil {
		return DriverResult{}, fmt.Errorf("load ledger: %w", err)
	}

	var result DriverResult
	for _, id := range ledger.IDs() {
		entry := ledger[id]
		if entry == nil || !entry.Downloaded {
			continue
		}
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		if _, err := os.Stat(filepath.Join(d.downloadDir, id)); errors.Is(err, fs.ErrNotExist) {
			log.Info("deck directory missing, already imported", slog.String("deck_id", id))
			result.Skipped++
			continue
		}

		if _, err := d.importer.ImportDeck(ctx, id, entry.Topics); err != nil {
			log.Error("deck import failed", slog.String("deck_id", id), slog.String("error", err.Error()))
			result.Failed++
			continue
		}
		result.Imported++
		log.Info("deck import finished",
			slog.String("deck_id", id),
			slog.Int("imported", result.Imported),
		)
	}

	result.Duration = time.Since(start)
	log.Info("import run completed",
		slog.Int("imported", result.Imported),
		slog.Int("failed", result.Failed),
		slog.Int("skipped", result.Skipped),
		slog.Duration("duration", result.Duration),
	)
	return result, nil
}

// ImportOne imports a single deck. Nil topics fall back to the ledger's
// topics for the deck.
func (d *Driver) ImportOne(ctx context.Context, deckID string, topics []string) error {
	if topics == nil {
		ledger, err := d.ledger.Load()
		if err != nil {
			return fmt.Errorf("load ledger: %w", err)
		}
		if entry := ledger[deckID]; entry != nil {
			topics = entry.Topics
		}
	}

	if _, err := d.importer.ImportDeck(ctx, deckID, topics); err != nil {
		return err
	}
	return nil
}
