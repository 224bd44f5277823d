// Command deck-import imports downloaded deck archives into the document and
// blob stores. Without --deck it imports every deck the ledger marks as
// downloaded.
//
// Flags:
//
//	--deck    import a single deck by id
//	--topics  comma-separated topics for --deck (default: topics from the ledger)
//
// Exit codes: 0 = success, 1 = error or at least one deck failed.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/heartmarshall/deck-migrator/internal/adapter/archive"
	"github.com/heartmarshall/deck-migrator/internal/adapter/ledger"
	"github.com/heartmarshall/deck-migrator/internal/adapter/postgres"
	"github.com/heartmarshall/deck-migrator/internal/adapter/postgres/docstore"
	"github.com/heartmarshall/deck-migrator/internal/adapter/storage/bucket"
	"github.com/heartmarshall/deck-migrator/internal/app"
	"github.com/heartmarshall/deck-migrator/internal/app/importer"
	"github.com/heartmarshall/deck-migrator/internal/config"
	"github.com/heartmarshall/deck-migrator/pkg/ctxutil"
)

// Compile-time interface assertions.
var (
	_ importer.DocumentStore = (*docstore.Store)(nil)
	_ importer.BlobStore     = (*bucket.Client)(nil)
	_ importer.Unpacker      = (*archive.Unpacker)(nil)
	_ importer.LedgerStore   = (*ledger.File)(nil)
)

func main() {
	deckFlag := flag.String("deck", "", "import a single deck by id")
	topicsFlag := flag.String("topics", "", "comma-separated topics for --deck")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)
	logger.Info("deck-import starting", slog.String("version", app.BuildVersion()))

	if err := cfg.ValidateForImport(); err != nil {
		logger.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	var topics []string
	if *topicsFlag != "" {
		for _, t := range strings.Split(*topicsFlag, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
	}

	// 30-minute context timeout.
	ctx, cancel := context.WithTimeout(ctxutil.NewRun(context.Background()), 30*time.Minute)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	store := docstore.New(pool, postgres.NewTxManager(pool))
	blobs := bucket.NewClient(cfg.Storage, cfg.Decks.AccountID, logger)
	ledgerFile := ledger.NewFile(cfg.Decks.LedgerPath)

	pipeline := importer.NewPipeline(
		logger,
		store,
		blobs,
		archive.NewUnpacker(logger),
		ledgerFile,
		importer.NewConfig(cfg),
	)
	driver := importer.NewDriver(logger, ledgerFile, pipeline, cfg.Decks.DownloadDir)

	if *deckFlag != "" {
		if err := driver.ImportOne(ctx, *deckFlag, topics); err != nil {
			logger.Error("deck import failed",
				slog.String("deck_id", *deckFlag),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
		logger.Info("deck imported", slog.String("deck_id", *deckFlag))
		return
	}

	result, err := driver.Run(ctx)
	if err != nil {
		logger.Error("import run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if result.Failed > 0 {
		logger.Warn("import run completed with errors", slog.Int("failed", result.Failed))
		os.Exit(1)
	}

	logger.Info("import run completed successfully",
		slog.Int("imported", result.Imported),
		slog.Int("skipped", result.Skipped),
	)
}
