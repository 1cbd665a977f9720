package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calebzhan/fflbot/internal/domain"
)

// MarketService keeps local market metadata and prices in sync with the
// market-data provider.
type MarketService struct {
	markets  domain.MarketStore
	prices   domain.PriceCache
	provider domain.MarketDataProvider
	logger   *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	markets domain.MarketStore,
	prices domain.PriceCache,
	provider domain.MarketDataProvider,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		markets:  markets,
		prices:   prices,
		provider: provider,
		logger:   logger,
	}
}

// Import pulls a page of markets from the provider into the local store so
// they become draftable.
func (s *MarketService) Import(ctx context.Context, limit, offset int) (int, error) {
	markets, err := s.provider.ListMarkets(ctx, limit, offset)
	if err != nil {
		return 0, fmt.Errorf("market_service: import: %w", err)
	}

	imported := 0
	for _, m := range markets {
		if err := s.markets.Upsert(ctx, m); err != nil {
			s.logger.WarnContext(ctx, "market upsert failed",
				slog.String("market_id", m.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		imported++
	}

	s.logger.InfoContext(ctx, "markets imported", slog.Int("count", imported))
	return imported, nil
}

// Get retrieves a market from the local store.
func (s *MarketService) Get(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.markets.GetByID(ctx, id)
	if err != nil {
		return domain.Market{}, fmt.Errorf("market_service: get %q: %w", id, err)
	}
	return m, nil
}

// SyncPrices refreshes prices for every market that still has unresolved
// picks. Individual quote failures are logged and skipped so one flaky
// market cannot stall the rest.
func (s *MarketService) SyncPrices(ctx context.Context) (int, error) {
	ids, err := s.markets.ListOpenMarketIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("market_service: sync prices: %w", err)
	}

	synced := 0
	now := time.Now().UTC()
	for _, id := range ids {
		quote, err := s.provider.GetQuote(ctx, id)
		if err != nil {
			s.logger.WarnContext(ctx, "quote fetch failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}

		if err := s.markets.UpdatePrices(ctx, id, quote.PriceYes, quote.PriceNo); err != nil {
			s.logger.WarnContext(ctx, "price update failed",
				slog.String("market_id", id),
				slog.String("error", err.Error()),
			)
			continue
		}
		if s.prices != nil {
			if err := s.prices.SetPrice(ctx, id, quote.PriceYes, quote.PriceNo, now); err != nil {
				s.logger.WarnContext(ctx, "price cache set failed",
					slog.String("market_id", id),
					slog.String("error", err.Error()),
				)
			}
		}
		synced++
	}

	if synced > 0 {
		s.logger.DebugContext(ctx, "prices synced", slog.Int("count", synced))
	}
	return synced, nil
}
