package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/calebzhan/fflbot/internal/domain"
)

// PayoutService defines the methods that the payout handler requires from the
// service layer.
type PayoutService interface {
	Distribute(ctx context.Context, leagueID int64) ([]domain.Payout, error)
	History(ctx context.Context, leagueID int64) ([]domain.Payout, error)
}

// PayoutHandler serves prize-pool distribution HTTP endpoints.
type PayoutHandler struct {
	payouts PayoutService
	logger  *slog.Logger
}

// NewPayoutHandler creates a PayoutHandler with the given service and logger.
func NewPayoutHandler(payouts PayoutService, logger *slog.Logger) *PayoutHandler {
	return &PayoutHandler{
		payouts: payouts,
		logger:  logger,
	}
}

// Distribute splits a completed league's prize pool proportionally to
// positive points. Operator endpoint; a second call reports a conflict.
// POST /api/admin/leagues/{id}/payouts
func (h *PayoutHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}

	payouts, err := h.payouts.Distribute(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to distribute payouts")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payouts": payouts})
}

// History returns a league's payout records.
// GET /api/leagues/{id}/payouts
func (h *PayoutHandler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}

	payouts, err := h.payouts.History(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to get payout history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"payouts": payouts})
}
