package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/calebzhan/fflbot/internal/domain"
	"github.com/calebzhan/fflbot/internal/scoring"
	"github.com/calebzhan/fflbot/internal/service"
)

// ScoreService defines the methods that the score handler requires from the
// service layer.
type ScoreService interface {
	Live(ctx context.Context, leagueID int64) (service.Leaderboard, error)
	Estimate(ctx context.Context, marketID string, side domain.Side) (scoring.Estimate, error)
}

// ScoreHandler serves leaderboard and score-preview HTTP endpoints.
type ScoreHandler struct {
	scores ScoreService
	logger *slog.Logger
}

// NewScoreHandler creates a ScoreHandler with the given service and logger.
func NewScoreHandler(scores ScoreService, logger *slog.Logger) *ScoreHandler {
	return &ScoreHandler{
		scores: scores,
		logger: logger,
	}
}

// LiveScores returns the live leaderboard with settled points plus the
// mark-to-market value of open picks.
// GET /api/leagues/{id}/scores
func (h *ScoreHandler) LiveScores(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}

	lb, err := h.scores.Live(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to get leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, lb)
}

// estimateResponse previews the scoring outcomes of a hypothetical pick.
type estimateResponse struct {
	MarketID        string  `json:"market_id"`
	Side            string  `json:"side"`
	PointsIfCorrect int64   `json:"points_if_correct"`
	PenaltyIfWrong  int64   `json:"penalty_if_wrong"`
	Tier            string  `json:"tier"`
	Multiplier      float64 `json:"multiplier"`
}

// EstimatePick previews what a pick on the given market and side would score
// at current prices.
// GET /api/markets/{id}/estimate?side=YES
func (h *ScoreHandler) EstimatePick(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}
	side := domain.Side(r.URL.Query().Get("side"))
	if !side.Valid() {
		writeError(w, http.StatusBadRequest, "side must be YES or NO")
		return
	}

	est, err := h.scores.Estimate(r.Context(), marketID, side)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to estimate pick")
		return
	}

	writeJSON(w, http.StatusOK, estimateResponse{
		MarketID:        marketID,
		Side:            string(side),
		PointsIfCorrect: est.PointsIfCorrect,
		PenaltyIfWrong:  est.PenaltyIfWrong,
		Tier:            string(est.Tier),
		Multiplier:      est.Multiplier,
	})
}
