// Package pipeline runs the background loops: resolution polling and price
// syncing.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calebzhan/fflbot/internal/domain"
)

// MarketSettler settles every open pick on a resolved market.
type MarketSettler interface {
	SettleMarket(ctx context.Context, marketID string, outcome domain.Outcome) (domain.SettlementReport, error)
}

// OpenMarketLister enumerates markets that still carry unresolved picks.
type OpenMarketLister interface {
	ListOpenMarketIDs(ctx context.Context) ([]string, error)
}

// QuoteFetcher retrieves the provider's live view of a market.
type QuoteFetcher interface {
	GetQuote(ctx context.Context, marketID string) (domain.MarketQuote, error)
}

// ResolutionPoller periodically asks the provider about every market with
// open picks and hands resolved ones to the settlement service.
type ResolutionPoller struct {
	markets  OpenMarketLister
	provider QuoteFetcher
	settler  MarketSettler
	logger   *slog.Logger
}

// NewResolutionPoller creates a new ResolutionPoller.
func NewResolutionPoller(markets OpenMarketLister, provider QuoteFetcher, settler MarketSettler, logger *slog.Logger) *ResolutionPoller {
	return &ResolutionPoller{
		markets:  markets,
		provider: provider,
		settler:  settler,
		logger:   logger,
	}
}

// Run executes a single polling pass. Individual market failures are logged
// and skipped; the pass itself only fails when the open-market query does.
func (p *ResolutionPoller) Run(ctx context.Context) error {
	ids, err := p.markets.ListOpenMarketIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing open markets: %w", err)
	}

	settled := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("resolution poller context cancelled: %w", err)
		}

		quote, err := p.provider.GetQuote(ctx, id)
		if err != nil {
			p.logger.Warn("quote fetch failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if quote.WinningSide == nil {
			continue
		}

		report, err := p.settler.SettleMarket(ctx, id, *quote.WinningSide)
		if err != nil {
			p.logger.Error("market settlement failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}

		settled++
		p.logger.Info("market resolved by poller",
			slog.String("market_id", id),
			slog.String("outcome", string(report.Outcome)),
			slog.Int("picks_resolved", report.PicksResolved),
		)
	}

	if settled > 0 {
		p.logger.Info("resolution pass complete",
			slog.Int("checked", len(ids)),
			slog.Int("settled", settled),
		)
	}
	return nil
}

// RunLoop runs the poller on a repeating interval until the context is
// cancelled.
func (p *ResolutionPoller) RunLoop(ctx context.Context, interval time.Duration) error {
	// Run immediately on start.
	if err := p.Run(ctx); err != nil {
		p.logger.Error("resolution pass failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("resolution poller stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := p.Run(ctx); err != nil {
				p.logger.Error("resolution pass failed", slog.String("error", err.Error()))
			}
		}
	}
}
