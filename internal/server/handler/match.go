package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/calebzhan/fflbot/internal/domain"
	"github.com/calebzhan/fflbot/internal/service"
)

// MatchService defines the methods that the match handler requires from the
// service layer.
type MatchService interface {
	Settle(ctx context.Context, leagueID int64) (service.MatchResult, error)
	Leaderboard(ctx context.Context, limit int) ([]domain.UserProfile, error)
	Profile(ctx context.Context, address string) (domain.UserProfile, error)
}

// MatchHandler serves head-to-head match and profile HTTP endpoints.
type MatchHandler struct {
	matches MatchService
	logger  *slog.Logger
}

// NewMatchHandler creates a MatchHandler with the given service and logger.
func NewMatchHandler(matches MatchService, logger *slog.Logger) *MatchHandler {
	return &MatchHandler{
		matches: matches,
		logger:  logger,
	}
}

// SettleMatch settles a one-on-one league once every pick has resolved,
// moving rating points from loser to winner. Safe to retry; the second call
// reports a conflict.
// POST /api/leagues/{id}/match/settle
func (h *MatchHandler) SettleMatch(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}

	result, err := h.matches.Settle(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to settle match")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RatingLeaderboard returns the global head-to-head rating ranking.
// GET /api/profiles/leaderboard?limit=50
func (h *MatchHandler) RatingLeaderboard(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	profiles, err := h.matches.Leaderboard(r.Context(), opts.Limit)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to get rating leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

// GetProfile returns one user's cross-league profile. Unknown addresses get
// the base rating rather than a 404 so clients can render new players.
// GET /api/profiles/{address}
func (h *MatchHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	address := pathParam(r, "address")
	if address == "" {
		writeError(w, http.StatusBadRequest, "missing address")
		return
	}

	profile, err := h.matches.Profile(r.Context(), address)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to get profile")
		return
	}

	writeJSON(w, http.StatusOK, profile)
}
