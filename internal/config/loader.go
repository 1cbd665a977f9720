package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FFLBOT_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FFLBOT_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Provider ──
	setStr(&cfg.Provider.GammaHost, "FFLBOT_PROVIDER_GAMMA_HOST")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "FFLBOT_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "FFLBOT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FFLBOT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FFLBOT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FFLBOT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FFLBOT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FFLBOT_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FFLBOT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FFLBOT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FFLBOT_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FFLBOT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FFLBOT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FFLBOT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FFLBOT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FFLBOT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FFLBOT_REDIS_TLS_ENABLED")
	setInt(&cfg.Redis.CacheTTLSeconds, "FFLBOT_REDIS_CACHE_TTL_SECONDS")
	setInt(&cfg.Redis.StreamMaxLen, "FFLBOT_REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "FFLBOT_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "FFLBOT_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "FFLBOT_S3_REGION")
	setStr(&cfg.S3.Bucket, "FFLBOT_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "FFLBOT_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "FFLBOT_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "FFLBOT_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "FFLBOT_S3_FORCE_PATH_STYLE")

	// ── Ledger ──
	setBool(&cfg.Ledger.Enabled, "FFLBOT_LEDGER_ENABLED")
	setStr(&cfg.Ledger.RPCURL, "FFLBOT_LEDGER_RPC_URL")
	setInt64(&cfg.Ledger.ChainID, "FFLBOT_LEDGER_CHAIN_ID")
	setStr(&cfg.Ledger.TreasuryKey, "FFLBOT_LEDGER_TREASURY_KEY")
	setStr(&cfg.Ledger.EncryptedKeyPath, "FFLBOT_LEDGER_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Ledger.KeyPassword, "FFLBOT_LEDGER_KEY_PASSWORD")

	// ── Draft / Match ──
	setInt(&cfg.Draft.SessionDeadlineHours, "FFLBOT_DRAFT_SESSION_DEADLINE_HOURS")
	setInt(&cfg.Draft.TradeProposalTTLHours, "FFLBOT_DRAFT_TRADE_PROPOSAL_TTL_HOURS")
	setFloat64(&cfg.Match.StakePerPick, "FFLBOT_MATCH_STAKE_PER_PICK")
	setInt(&cfg.Match.EloK, "FFLBOT_MATCH_ELO_K")

	// ── Pipeline ──
	setBool(&cfg.Pipeline.Enabled, "FFLBOT_PIPELINE_ENABLED")
	setDuration(&cfg.Pipeline.ResolveInterval, "FFLBOT_PIPELINE_RESOLVE_INTERVAL")
	setDuration(&cfg.Pipeline.PriceSyncInterval, "FFLBOT_PIPELINE_PRICE_SYNC_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "FFLBOT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "FFLBOT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FFLBOT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "FFLBOT_SERVER_API_KEY")
	setStr(&cfg.Server.AdminKey, "FFLBOT_SERVER_ADMIN_KEY")
	setInt(&cfg.Server.RateLimitPerMinute, "FFLBOT_SERVER_RATE_LIMIT_PER_MINUTE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FFLBOT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FFLBOT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FFLBOT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FFLBOT_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "FFLBOT_MODE")
	setStr(&cfg.LogLevel, "FFLBOT_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
