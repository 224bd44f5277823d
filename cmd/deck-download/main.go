// Command deck-download downloads the archive of every deck the ledger lists
// as not yet downloaded. Decks whose share page has no download key are
// removed from the ledger.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/heartmarshall/deck-migrator/internal/adapter/ledger"
	"github.com/heartmarshall/deck-migrator/internal/adapter/provider/deckweb"
	"github.com/heartmarshall/deck-migrator/internal/app"
	"github.com/heartmarshall/deck-migrator/internal/app/downloader"
	"github.com/heartmarshall/deck-migrator/internal/config"
	"github.com/heartmarshall/deck-migrator/pkg/ctxutil"
)

var (
	_ downloader.Fetcher     = (*deckweb.Client)(nil)
	_ downloader.LedgerStore = (*ledger.File)(nil)
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)
	logger.Info("deck-download starting", slog.String("version", app.BuildVersion()))

	ctx, cancel := context.WithTimeout(ctxutil.NewRun(context.Background()), 30*time.Minute)
	defer cancel()

	fetcher, err := deckweb.NewClient(cfg.Download, logger)
	if err != nil {
		logger.Error("create fetcher", slog.String("error", err.Error()))
		os.Exit(1)
	}

	driver := downloader.NewDriver(logger, ledger.NewFile(cfg.Decks.LedgerPath), fetcher, cfg.Decks.DownloadDir)

	if _, err := driver.Run(ctx); err != nil {
		logger.Error("download run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
