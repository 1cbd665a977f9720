package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/calebzhan/fflbot/internal/domain"
)

// TradeService defines the methods that the trade handler requires from the
// service layer.
type TradeService interface {
	Propose(ctx context.Context, leagueID int64, proposer, counterparty string, offeredPickID int64, wantedPickID *int64) (domain.TradeProposal, error)
	Accept(ctx context.Context, proposalID, caller string) error
	Reject(ctx context.Context, proposalID, caller string) error
	List(ctx context.Context, leagueID int64) ([]domain.TradeProposal, error)
}

// TradeHandler serves pick-swap HTTP endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logger,
	}
}

// proposeTradeRequest is the payload for the propose endpoint. WantedPickID
// is optional; when absent the trade is a one-way gift.
type proposeTradeRequest struct {
	Proposer      string `json:"proposer"`
	Counterparty  string `json:"counterparty"`
	OfferedPickID int64  `json:"offered_pick_id"`
	WantedPickID  *int64 `json:"wanted_pick_id,omitempty"`
}

// ProposeTrade creates a pending pick-swap proposal.
// POST /api/leagues/{id}/trades
func (h *TradeHandler) ProposeTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}
	var req proposeTradeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Proposer == "" || req.Counterparty == "" || req.OfferedPickID <= 0 {
		writeError(w, http.StatusBadRequest, "proposer, counterparty and offered_pick_id are required")
		return
	}

	proposal, err := h.trades.Propose(r.Context(), id, req.Proposer, req.Counterparty, req.OfferedPickID, req.WantedPickID)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to propose trade")
		return
	}

	writeJSON(w, http.StatusCreated, proposal)
}

// decideTradeRequest carries the deciding party's address.
type decideTradeRequest struct {
	Caller string `json:"caller"`
}

// AcceptTrade executes a pending proposal. Only the counterparty may accept.
// POST /api/trades/{id}/accept
func (h *TradeHandler) AcceptTrade(w http.ResponseWriter, r *http.Request) {
	proposalID := pathParam(r, "id")
	if proposalID == "" {
		writeError(w, http.StatusBadRequest, "missing proposal id")
		return
	}
	var req decideTradeRequest
	if err := decodeBody(r, &req); err != nil || req.Caller == "" {
		writeError(w, http.StatusBadRequest, "caller is required")
		return
	}

	if err := h.trades.Accept(r.Context(), proposalID, req.Caller); err != nil {
		writeDomainError(w, r, h.logger, err, "failed to accept trade")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

// RejectTrade declines a pending proposal. Either party may reject.
// POST /api/trades/{id}/reject
func (h *TradeHandler) RejectTrade(w http.ResponseWriter, r *http.Request) {
	proposalID := pathParam(r, "id")
	if proposalID == "" {
		writeError(w, http.StatusBadRequest, "missing proposal id")
		return
	}
	var req decideTradeRequest
	if err := decodeBody(r, &req); err != nil || req.Caller == "" {
		writeError(w, http.StatusBadRequest, "caller is required")
		return
	}

	if err := h.trades.Reject(r.Context(), proposalID, req.Caller); err != nil {
		writeDomainError(w, r, h.logger, err, "failed to reject trade")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}

// ListTrades returns a league's trade proposals, newest first.
// GET /api/leagues/{id}/trades
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}

	proposals, err := h.trades.List(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list trades")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"proposals": proposals})
}
