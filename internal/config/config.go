// Package config defines the top-level configuration for the fantasy
// forecasting league backend and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by FFLBOT_* environment variables.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Postgres PostgresConfig `toml:"postgres"`
	Redis    RedisConfig    `toml:"redis"`
	S3       S3Config       `toml:"s3"`
	Ledger   LedgerConfig   `toml:"ledger"`
	Draft    DraftConfig    `toml:"draft"`
	Match    MatchConfig    `toml:"match"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// ProviderConfig holds market-data provider endpoints.
type ProviderConfig struct {
	GammaHost string `toml:"gamma_host"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr            string `toml:"addr"`
	Password        string `toml:"password"`
	DB              int    `toml:"db"`
	PoolSize        int    `toml:"pool_size"`
	MaxRetries      int    `toml:"max_retries"`
	TLSEnabled      bool   `toml:"tls_enabled"`
	CacheTTLSeconds int    `toml:"cache_ttl_seconds"`
	StreamMaxLen    int    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters for the season
// archive.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// LedgerConfig holds the external settlement ledger (EVM) parameters. The
// treasury key signs payout transfers; either a raw key or an encrypted key
// file may be supplied.
type LedgerConfig struct {
	Enabled          bool   `toml:"enabled"`
	RPCURL           string `toml:"rpc_url"`
	ChainID          int64  `toml:"chain_id"`
	TreasuryKey      string `toml:"treasury_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
}

// DraftConfig holds drafting parameters.
type DraftConfig struct {
	// SessionDeadlineHours is how long a session stays open for picks.
	SessionDeadlineHours int `toml:"session_deadline_hours"`
	// TradeProposalTTLHours is how long a trade proposal stays pending.
	TradeProposalTTLHours int `toml:"trade_proposal_ttl_hours"`
}

// MatchConfig holds 1v1 settlement parameters.
type MatchConfig struct {
	// StakePerPick is the fixed notional stake used to simulate P&L per pick.
	StakePerPick float64 `toml:"stake_per_pick"`
	// EloK is the rating delta applied to winner and loser.
	EloK int `toml:"elo_k"`
}

// PipelineConfig holds background poller parameters.
type PipelineConfig struct {
	Enabled           bool     `toml:"enabled"`
	ResolveInterval   duration `toml:"resolve_interval"`
	PriceSyncInterval duration `toml:"price_sync_interval"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled     bool     `toml:"enabled"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	APIKey      string   `toml:"api_key"`
	// AdminKey guards operator endpoints (manual resolution override,
	// payout distribution).
	AdminKey string `toml:"admin_key"`
	// RateLimitPerMinute caps pick submissions per player.
	RateLimitPerMinute int `toml:"rate_limit_per_minute"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Provider: ProviderConfig{
			GammaHost: "https://gamma-api.polymarket.com",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "fflbot",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			DB:              0,
			PoolSize:        20,
			MaxRetries:      3,
			TLSEnabled:      false,
			CacheTTLSeconds: 60,
			StreamMaxLen:    10000,
		},
		S3: S3Config{
			Enabled:        false,
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "fflbot-archive",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Ledger: LedgerConfig{
			Enabled: false,
			RPCURL:  "https://polygon-rpc.com",
			ChainID: 137,
		},
		Draft: DraftConfig{
			SessionDeadlineHours:  48,
			TradeProposalTTLHours: 24,
		},
		Match: MatchConfig{
			StakePerPick: 100,
			EloK:         100,
		},
		Pipeline: PipelineConfig{
			Enabled:           true,
			ResolveInterval:   duration{5 * time.Minute},
			PriceSyncInterval: duration{1 * time.Minute},
		},
		Server: ServerConfig{
			Enabled:            true,
			Port:               8000,
			CORSOrigins:        []string{"http://localhost:3000"},
			RateLimitPerMinute: 30,
		},
		Notify: NotifyConfig{
			Events: []string{"market_resolved", "session_complete", "match_settled", "payout_sent", "error"},
		},
		Mode:     "full",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server": true,
	"poller": true,
	"full":   true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and returns
// a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, poller, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Provider.GammaHost == "" {
		errs = append(errs, "provider: gamma_host must not be empty")
	}

	if strings.TrimSpace(c.Postgres.DSN) == "" {
		if c.Postgres.Host == "" {
			errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
		}
		if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
		}
		if c.Postgres.Database == "" {
			errs = append(errs, "postgres: database must not be empty")
		}
	}
	if c.Postgres.PoolMaxConns < 1 {
		errs = append(errs, "postgres: pool_max_conns must be >= 1")
	}
	if c.Postgres.PoolMinConns < 0 {
		errs = append(errs, "postgres: pool_min_conns must be >= 0")
	}
	if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
		errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.S3.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when enabled")
		}
	}

	if c.Ledger.Enabled {
		if c.Ledger.RPCURL == "" {
			errs = append(errs, "ledger: rpc_url must not be empty when enabled")
		}
		if c.Ledger.ChainID <= 0 {
			errs = append(errs, "ledger: chain_id must be positive")
		}
		if c.Ledger.TreasuryKey == "" && c.Ledger.EncryptedKeyPath == "" {
			errs = append(errs, "ledger: either treasury_key or encrypted_key_path must be set when enabled")
		}
		if c.Ledger.EncryptedKeyPath != "" && c.Ledger.KeyPassword == "" {
			errs = append(errs, "ledger: key_password is required when encrypted_key_path is set")
		}
	}

	if c.Draft.SessionDeadlineHours < 1 {
		errs = append(errs, "draft: session_deadline_hours must be >= 1")
	}
	if c.Draft.TradeProposalTTLHours < 1 {
		errs = append(errs, "draft: trade_proposal_ttl_hours must be >= 1")
	}

	if c.Match.StakePerPick <= 0 {
		errs = append(errs, "match: stake_per_pick must be > 0")
	}
	if c.Match.EloK <= 0 {
		errs = append(errs, "match: elo_k must be > 0")
	}

	if c.Pipeline.Enabled {
		if c.Pipeline.ResolveInterval.Duration <= 0 {
			errs = append(errs, "pipeline: resolve_interval must be > 0 when enabled")
		}
		if c.Pipeline.PriceSyncInterval.Duration <= 0 {
			errs = append(errs, "pipeline: price_sync_interval must be > 0 when enabled")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimitPerMinute < 1 {
			errs = append(errs, "server: rate_limit_per_minute must be >= 1")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
