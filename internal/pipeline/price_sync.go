package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// PriceSyncer refreshes prices for markets that still have open picks.
type PriceSyncer interface {
	SyncPrices(ctx context.Context) (int, error)
}

// PriceSync drives the price syncer on a fixed interval so live leaderboards
// stay close to the provider's quotes.
type PriceSync struct {
	syncer PriceSyncer
	logger *slog.Logger
}

// NewPriceSync creates a new PriceSync.
func NewPriceSync(syncer PriceSyncer, logger *slog.Logger) *PriceSync {
	return &PriceSync{syncer: syncer, logger: logger}
}

// RunLoop runs the price sync on a repeating interval until the context is
// cancelled.
func (p *PriceSync) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if _, err := p.syncer.SyncPrices(ctx); err != nil {
		p.logger.Error("price sync failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("price sync stopped")
			return ctx.Err()
		case <-ticker.C:
			if _, err := p.syncer.SyncPrices(ctx); err != nil {
				p.logger.Error("price sync failed", slog.String("error", err.Error()))
			}
		}
	}
}
