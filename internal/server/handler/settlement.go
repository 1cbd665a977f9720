package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/calebzhan/fflbot/internal/domain"
)

// SettlementService defines the methods that the settlement handler requires
// from the service layer.
type SettlementService interface {
	SettleMarket(ctx context.Context, marketID string, outcome domain.Outcome) (domain.SettlementReport, error)
}

// SettlementHandler serves the operator override for market resolution. The
// background poller settles markets automatically; this endpoint exists for
// markets the provider resolves late or reports inconsistently.
type SettlementHandler struct {
	settlement SettlementService
	logger     *slog.Logger
}

// NewSettlementHandler creates a SettlementHandler with the given service and
// logger.
func NewSettlementHandler(settlement SettlementService, logger *slog.Logger) *SettlementHandler {
	return &SettlementHandler{
		settlement: settlement,
		logger:     logger,
	}
}

// resolveMarketRequest carries the terminal outcome to record.
type resolveMarketRequest struct {
	Outcome string `json:"outcome"`
}

// settlementResponse summarizes one settlement run for the operator.
type settlementResponse struct {
	MarketID        string           `json:"market_id"`
	Outcome         string           `json:"outcome"`
	PicksResolved   int              `json:"picks_resolved"`
	PicksSkipped    int              `json:"picks_skipped"`
	PlayersAffected int              `json:"players_affected"`
	PickErrors      map[int64]string `json:"pick_errors,omitempty"`
}

// ResolveMarket records a market outcome and settles every open pick on it.
// Re-running for an already-resolved market re-settles leftover picks under
// the recorded outcome, so the endpoint is safe to retry.
// POST /api/admin/markets/{id}/resolve
func (h *SettlementHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}
	var req resolveMarketRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome := domain.Outcome(req.Outcome)
	if !outcome.Valid() {
		writeError(w, http.StatusBadRequest, "outcome must be YES, NO, or INVALID")
		return
	}

	report, err := h.settlement.SettleMarket(r.Context(), id, outcome)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to settle market")
		return
	}

	resp := settlementResponse{
		MarketID:        report.MarketID,
		Outcome:         string(report.Outcome),
		PicksResolved:   report.PicksResolved,
		PicksSkipped:    report.PicksSkipped,
		PlayersAffected: report.PlayersAffected,
	}
	if len(report.PickErrs) > 0 {
		resp.PickErrors = make(map[int64]string, len(report.PickErrs))
		for pickID, pickErr := range report.PickErrs {
			resp.PickErrors[pickID] = pickErr.Error()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
