package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/calebzhan/fflbot/internal/domain"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	Get(ctx context.Context, id string) (domain.Market, error)
	Import(ctx context.Context, limit, offset int) (int, error)
	SyncPrices(ctx context.Context) (int, error)
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	market, err := h.markets.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to get market")
		return
	}

	writeJSON(w, http.StatusOK, market)
}

// ImportMarkets pulls a page of markets from the provider into the local
// store so they become draftable. Operator endpoint.
// POST /api/admin/markets/import?limit=50&offset=0
func (h *MarketHandler) ImportMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	imported, err := h.markets.Import(r.Context(), opts.Limit, opts.Offset)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to import markets")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"imported": imported})
}

// SyncPrices refreshes prices for every market with open picks. Operator
// endpoint; the background pipeline does the same on an interval.
// POST /api/admin/markets/sync
func (h *MarketHandler) SyncPrices(w http.ResponseWriter, r *http.Request) {
	synced, err := h.markets.SyncPrices(r.Context())
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to sync prices")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"synced": synced})
}
