package config

import "time"

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Log      LogConfig      `yaml:"log"`
	Decks    DecksConfig    `yaml:"decks"`
	Storage  StorageConfig  `yaml:"storage"`
	Download DownloadConfig `yaml:"download"`
}

// DatabaseConfig holds settings of the PostgreSQL-backed document store.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"10"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// DecksConfig holds deck import settings.
type DecksConfig struct {
	LedgerPath         string `yaml:"ledger_path"             env:"DECKS_LEDGER_PATH"             env-default:"./decks.json"`
	DownloadDir        string `yaml:"download_dir"            env:"DECKS_DOWNLOAD_DIR"            env-default:"./decks"`
	AccountID          string `yaml:"account_id"              env:"DECKS_ACCOUNT_ID"`
	MaxCardsPerSection int    `yaml:"max_cards_per_section"   env:"DECKS_MAX_CARDS_PER_SECTION"   env-default:"100"`
	CardChunkSize      int    `yaml:"card_chunk_size"         env:"DECKS_CARD_CHUNK_SIZE"         env-default:"500"`
	AssetChunkSize     int    `yaml:"asset_chunk_size"        env:"DECKS_ASSET_CHUNK_SIZE"        env-default:"50"`
	SanitizeHTML       bool   `yaml:"sanitize_html"           env:"DECKS_SANITIZE_HTML"           env-default:"true"`
}

// StorageConfig holds settings of the blob store that receives deck media.
type StorageConfig struct {
	BaseURL       string        `yaml:"base_url"        env:"STORAGE_BASE_URL"`
	Bucket        string        `yaml:"bucket"          env:"STORAGE_BUCKET"          env-default:"deck-assets"`
	APIKey        string        `yaml:"api_key"         env:"STORAGE_API_KEY"`
	PublicURLBase string        `yaml:"public_url_base" env:"STORAGE_PUBLIC_URL_BASE" env-default:"https://firebasestorage.googleapis.com/v0/b"`
	Timeout       time.Duration `yaml:"timeout"         env:"STORAGE_TIMEOUT"         env-default:"60s"`
}

// DownloadConfig holds settings of the deck archive fetcher.
type DownloadConfig struct {
	BaseURL string        `yaml:"base_url" env:"DOWNLOAD_BASE_URL" env-default:"https://ankiweb.net"`
	Timeout time.Duration `yaml:"timeout"  env:"DOWNLOAD_TIMEOUT"  env-default:"5m"`
}
