package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/calebzhan/fflbot/internal/domain"
)

// LeagueService defines the methods that the league handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type LeagueService interface {
	Create(ctx context.Context, league domain.League) (domain.League, error)
	Get(ctx context.Context, id int64) (domain.League, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.League, error)
	Players(ctx context.Context, leagueID int64) ([]domain.PlayerStats, error)
	Join(ctx context.Context, leagueID int64, address string) error
	StartDraft(ctx context.Context, leagueID int64, caller string) (domain.League, error)
	OpenNextSession(ctx context.Context, leagueID int64) (domain.Session, error)
	Session(ctx context.Context, leagueID int64, index int) (domain.Session, error)
}

// LeagueHandler serves league lifecycle HTTP endpoints.
type LeagueHandler struct {
	leagues LeagueService
	logger  *slog.Logger
}

// NewLeagueHandler creates a LeagueHandler with the given service and logger.
func NewLeagueHandler(leagues LeagueService, logger *slog.Logger) *LeagueHandler {
	return &LeagueHandler{
		leagues: leagues,
		logger:  logger,
	}
}

// createLeagueRequest is the payload for the create endpoint.
type createLeagueRequest struct {
	Name              string  `json:"name"`
	Creator           string  `json:"creator"`
	BuyIn             float64 `json:"buy_in"`
	Currency          string  `json:"currency"`
	MaxPlayers        int     `json:"max_players"`
	Mode              string  `json:"mode"`
	TotalSessions     int     `json:"total_sessions"`
	MarketsPerSession int     `json:"markets_per_session"`
}

// CreateLeague creates a new league with the caller as creator and first
// participant.
// POST /api/leagues
func (h *LeagueHandler) CreateLeague(w http.ResponseWriter, r *http.Request) {
	var req createLeagueRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	league, err := h.leagues.Create(r.Context(), domain.League{
		Name:              req.Name,
		Creator:           req.Creator,
		BuyIn:             req.BuyIn,
		Currency:          req.Currency,
		MaxPlayers:        req.MaxPlayers,
		Mode:              domain.LeagueMode(req.Mode),
		TotalSessions:     req.TotalSessions,
		MarketsPerSession: req.MarketsPerSession,
	})
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to create league")
		return
	}

	writeJSON(w, http.StatusCreated, league)
}

// listLeaguesResponse wraps the list endpoint output with pagination metadata.
type listLeaguesResponse struct {
	Leagues []domain.League `json:"leagues"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// ListLeagues returns leagues with pagination, newest first.
// GET /api/leagues?limit=50&offset=0
func (h *LeagueHandler) ListLeagues(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	leagues, err := h.leagues.List(r.Context(), opts)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list leagues")
		return
	}

	writeJSON(w, http.StatusOK, listLeaguesResponse{
		Leagues: leagues,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetLeague returns a single league by ID.
// GET /api/leagues/{id}
func (h *LeagueHandler) GetLeague(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}

	league, err := h.leagues.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to get league")
		return
	}

	writeJSON(w, http.StatusOK, league)
}

// ListPlayers returns the league's participants with cumulative points,
// streaks, and ranks.
// GET /api/leagues/{id}/players
func (h *LeagueHandler) ListPlayers(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}

	players, err := h.leagues.Players(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to list players")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"players": players})
}

// joinLeagueRequest carries the joining participant's address.
type joinLeagueRequest struct {
	Address string `json:"address"`
}

// JoinLeague adds a participant to a league still in setup.
// POST /api/leagues/{id}/join
func (h *LeagueHandler) JoinLeague(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}
	var req joinLeagueRequest
	if err := decodeBody(r, &req); err != nil || req.Address == "" {
		writeError(w, http.StatusBadRequest, "address is required")
		return
	}

	if err := h.leagues.Join(r.Context(), id, req.Address); err != nil {
		writeDomainError(w, r, h.logger, err, "failed to join league")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "joined"})
}

// startDraftRequest carries the caller's address; only the creator may start
// the draft.
type startDraftRequest struct {
	Caller string `json:"caller"`
}

// StartDraft fixes the draft order and opens the first session.
// POST /api/leagues/{id}/draft/start
func (h *LeagueHandler) StartDraft(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}
	var req startDraftRequest
	if err := decodeBody(r, &req); err != nil || req.Caller == "" {
		writeError(w, http.StatusBadRequest, "caller is required")
		return
	}

	league, err := h.leagues.StartDraft(r.Context(), id, req.Caller)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to start draft")
		return
	}

	writeJSON(w, http.StatusOK, league)
}

// OpenNextSession opens the next drafting window for an active league.
// POST /api/leagues/{id}/sessions/next
func (h *LeagueHandler) OpenNextSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}

	session, err := h.leagues.OpenNextSession(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to open next session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// GetSession returns one drafting window by index.
// GET /api/leagues/{id}/sessions/{index}
func (h *LeagueHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid league id")
		return
	}
	index, ok := pathID(r, "index")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid session index")
		return
	}

	session, err := h.leagues.Session(r.Context(), id, int(index))
	if err != nil {
		writeDomainError(w, r, h.logger, err, "failed to get session")
		return
	}

	writeJSON(w, http.StatusOK, session)
}
