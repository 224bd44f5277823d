package importer

import (
	"github.com/heartmarshall/deck-migrator/internal/config"
)

// Config holds the per-deck import settings.
type Config struct {
	DownloadDir        string
	AccountID          string
	MaxCardsPerSection int
	CardChunkSize      int
	AssetChunkSize     int
	SanitizeHTML       bool

	Bucket        string
	PublicURLBase string
}

// NewConfig picks the importer settings out of the application config.
func NewConfig(cfg *config.Config) Config {
	return Config{
		DownloadDir:        cfg.Decks.DownloadDir,
		AccountID:          cfg.Decks.AccountID,
		MaxCardsPerSection: cfg.Decks.MaxCardsPerSection,
		CardChunkSize:      cfg.Decks.CardChunkSize,
		AssetChunkSize:     cfg.Decks.AssetChunkSize,
		SanitizeHTML:       cfg.Decks.SanitizeHTML,
		Bucket:             cfg.Storage.Bucket,
		PublicURLBase:      cfg.Storage.PublicURLBase,
	}
}
