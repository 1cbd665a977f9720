package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/calebzhan/fflbot/internal/domain"
	"github.com/calebzhan/fflbot/internal/service"
)

// DraftService defines the methods that the draft handler requires from the
// service layer.
type DraftService interface {
	SubmitPick(ctx context.Context, req service.PickRequest) (domain.DraftPick, error)
	DraftState(ctx context.Context, leagueID int64) (service.State, error)
	Picks(ctx context.Context, leagueID int64, session *int) ([]domain.DraftPick, error)
}

// DraftHandler serves draft-turn HTTP endpoints.
type DraftHandler struct {
	draft  DraftService
	logger *slog.Logger
}

// NewDraftHandler creates a DraftHandler with the given service and logger.
func NewDraftHandler(draft DraftService, logger *slog.Logger) *DraftHandler {
	return &DraftHandler{
		draft:  draft,
		logger: logger,
	}
}

// submitPickRequest is the payload for the pick endpoint. ClaimedIndex is the
// 0-based board position the client believes it is filling; a stale value is
// rejected so clients racing on an outdated board cannot take another
// player's turn.
type submitPickRequest struct {
	Player       string `json:"player"`
	MarketID     string `json:"market_id"`
	Prediction   string `json:"prediction"`
	ClaimedIndex int    `json:"claimed_index"`
}

// SubmitPick records a draft pick for the player whose turn it is.
// POST /api/leagues/{id}/picks
func (h *DraftHandler) SubmitPick(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}
	var req submitPickRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Player == "" || req.MarketID == "" {
		writeError(w, http.StatusBadRequest, "player and market_id are required")
		return
	}

	pick, err := h.draft.SubmitPick(r.Context(), service.PickRequest{
		LeagueID:     id,
		Player:       req.Player,
		MarketID:     req.MarketID,
		Prediction:   domain.Side(req.Prediction),
		ClaimedIndex: req.ClaimedIndex,
	})
	if err != nil {
		// Turn violations carry the expected drafter so clients can resync.
		var turnErr *service.TurnError
		if errors.As(err, &turnErr) {
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":           "not your turn",
				"expected_player": turnErr.ExpectedPlayer,
				"expected_index":  turnErr.ExpectedIndex,
			})
			return
		}
		writeDomainError(w, r, h.logger, err, "failed to submit pick")
		return
	}

	writeJSON(w, http.StatusCreated, pick)
}

// DraftState returns the current turn state: whose pick it is, the board so
// far, and how many picks remain.
// GET /api/leagues/{id}/draft
func (h *DraftHandler) DraftState(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}

	state, err := h.draft.DraftState(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to get draft state")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"league":          state.League,
		"session":         state.Session,
		"picks":           state.Picks,
		"expected_player": state.ExpectedPlayer,
		"expected_index":  state.ExpectedIndex,
		"total_picks":     state.TotalPicks,
	})
}

// ListPicks returns a league's picks, optionally filtered by session.
// GET /api/leagues/{id}/picks?session=2
func (h *DraftHandler) ListPicks(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}

	var session *int
	if v := r.URL.Query().Get("session"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid session")
			return
		}
		session = &n
	}

	picks, err := h.draft.Picks(r.Context(), id, session)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list picks")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"picks": picks})
}
