package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/calebzhan/fflbot/internal/blob/s3"
	"github.com/calebzhan/fflbot/internal/cache/redis"
	"github.com/calebzhan/fflbot/internal/config"
	"github.com/calebzhan/fflbot/internal/crypto"
	"github.com/calebzhan/fflbot/internal/domain"
	"github.com/calebzhan/fflbot/internal/ledger/evm"
	"github.com/calebzhan/fflbot/internal/notify"
	"github.com/calebzhan/fflbot/internal/platform/polymarket"
	"github.com/calebzhan/fflbot/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	LeagueStore   domain.LeagueStore
	SessionStore  domain.SessionStore
	PlayerStore   domain.PlayerStore
	MarketStore   domain.MarketStore
	PickStore     domain.PickStore
	ProfileStore  domain.ProfileStore
	PayoutStore   domain.PayoutStore
	ProposalStore domain.TradeProposalStore
	AuditStore    domain.AuditStore

	// Caches
	PriceCache       domain.PriceCache
	LeaderboardCache domain.LeaderboardCache
	RateLimiter      domain.RateLimiter
	LockManager      domain.LockManager
	SignalBus        domain.SignalBus

	// Market data provider
	Provider domain.MarketDataProvider

	// Blob storage
	BlobWriter domain.BlobWriter
	BlobReader domain.BlobReader
	Archiver   domain.Archiver

	// Settlement ledger (nil unless enabled)
	Ledger domain.Ledger

	// Notifications
	Notifier *notify.Notifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	// Run migrations if enabled.
	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.LeagueStore = postgres.NewLeagueStore(pool)
	deps.SessionStore = postgres.NewSessionStore(pool)
	deps.PlayerStore = postgres.NewPlayerStore(pool)
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.PickStore = postgres.NewPickStore(pool)
	deps.ProfileStore = postgres.NewProfileStore(pool)
	deps.PayoutStore = postgres.NewPayoutStore(pool)
	deps.ProposalStore = postgres.NewTradeProposalStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	cacheTTL := time.Duration(cfg.Redis.CacheTTLSeconds) * time.Second
	if cacheTTL <= 0 {
		cacheTTL = time.Minute
	}

	deps.PriceCache = redis.NewPriceCache(redisClient)
	deps.LeaderboardCache = redis.NewLeaderboardCache(redisClient, cacheTTL)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)

	// --- Market data provider ---
	deps.Provider = polymarket.NewGammaClient(cfg.Provider.GammaHost)

	// --- S3 blob storage (season archive) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.BlobReader = s3blob.NewReader(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			deps.LeagueStore,
			deps.PlayerStore,
			deps.PickStore,
			deps.PayoutStore,
			deps.AuditStore,
		)
	}

	// --- Settlement ledger ---
	if cfg.Ledger.Enabled {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Ledger.TreasuryKey,
			EncryptedKeyPath: cfg.Ledger.EncryptedKeyPath,
			KeyPassword:      cfg.Ledger.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: ledger key: %w", err)
		}
		ledger, err := evm.New(ctx, cfg.Ledger.RPCURL, cfg.Ledger.ChainID, key)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: ledger: %w", err)
		}
		closers = append(closers, ledger.Close)
		deps.Ledger = ledger

		logger.Info("settlement ledger enabled",
			slog.Int64("chain_id", cfg.Ledger.ChainID),
			slog.String("treasury", ledger.Treasury().Hex()),
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
