package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if err := c.Decks.validate(); err != nil {
		return fmt.Errorf("decks: %w", err)
	}

	if c.Download.BaseURL != "" {
		if err := validateURL(c.Download.BaseURL); err != nil {
			return fmt.Errorf("download.base_url: %w", err)
		}
	}

	return nil
}

// ValidateForImport checks the settings only the import and migrate commands need.
func (c *Config) ValidateForImport() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if err := validateURL(c.Storage.BaseURL); err != nil {
		return fmt.Errorf("storage.base_url: %w", err)
	}
	if strings.TrimSpace(c.Storage.Bucket) == "" {
		return fmt.Errorf("storage.bucket is required")
	}
	return nil
}

func (d *DecksConfig) validate() error {
	if strings.TrimSpace(d.LedgerPath) == "" {
		return fmt.Errorf("ledger_path is required")
	}
	if strings.TrimSpace(d.DownloadDir) == "" {
		return fmt.Errorf("download_dir is required")
	}
	if d.MaxCardsPerSection <= 0 {
		return fmt.Errorf("max_cards_per_section must be > 0 (got %d)", d.MaxCardsPerSection)
	}
	if d.CardChunkSize <= 0 || d.CardChunkSize > 500 {
		return fmt.Errorf("card_chunk_size must be in 1..500 (got %d)", d.CardChunkSize)
	}
	if d.AssetChunkSize <= 0 {
		return fmt.Errorf("asset_chunk_size must be > 0 (got %d)", d.AssetChunkSize)
	}
	return nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid url %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("url %q has no host", raw)
	}
	return nil
}
