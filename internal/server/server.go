package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/calebzhan/fflbot/internal/domain"
	"github.com/calebzhan/fflbot/internal/server/handler"
	"github.com/calebzhan/fflbot/internal/server/middleware"
	"github.com/calebzhan/fflbot/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port        int
	CORSOrigins []string
	APIKey      string // if empty, authentication is disabled
	AdminKey    string // guards operator endpoints; if empty, they are open
	// RateLimitPerMinute caps pick submissions per client. Zero disables
	// the limiter.
	RateLimitPerMinute int
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health     *handler.HealthHandler
	Status     *handler.StatusHandler
	Leagues    *handler.LeagueHandler
	Draft      *handler.DraftHandler
	Scores     *handler.ScoreHandler
	Markets    *handler.MarketHandler
	Settlement *handler.SettlementHandler
	Matches    *handler.MatchHandler
	Payouts    *handler.PayoutHandler
	Trades     *handler.TradeHandler
	// Archives is nil when object storage is disabled; its routes are then
	// not registered.
	Archives *handler.ArchiveHandler
}

// Server is the HTTP + WebSocket API server for the forecast league backend.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
// Operator endpoints live under /api/admin and require the admin key on top
// of normal authentication.
func NewServer(cfg Config, handlers Handlers, limiter domain.RateLimiter, wsHub *ws.Hub, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	admin := middleware.AdminAuth(cfg.AdminKey)
	pickGuard := func(h http.HandlerFunc) http.Handler { return h }
	if limiter != nil && cfg.RateLimitPerMinute > 0 {
		rl := middleware.RateLimit(limiter, cfg.RateLimitPerMinute, time.Minute)
		pickGuard = func(h http.HandlerFunc) http.Handler { return rl(h) }
	}

	// --- Register routes ---

	// Health and status.
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)
	mux.HandleFunc("GET /api/status", handlers.Status.GetStatus)

	// League lifecycle.
	mux.HandleFunc("POST /api/leagues", handlers.Leagues.CreateLeague)
	mux.HandleFunc("GET /api/leagues", handlers.Leagues.ListLeagues)
	mux.HandleFunc("GET /api/leagues/{id}", handlers.Leagues.GetLeague)
	mux.HandleFunc("GET /api/leagues/{id}/players", handlers.Leagues.ListPlayers)
	mux.HandleFunc("POST /api/leagues/{id}/join", handlers.Leagues.JoinLeague)
	mux.HandleFunc("POST /api/leagues/{id}/draft/start", handlers.Leagues.StartDraft)
	mux.HandleFunc("POST /api/leagues/{id}/sessions/next", handlers.Leagues.OpenNextSession)
	mux.HandleFunc("GET /api/leagues/{id}/sessions/{index}", handlers.Leagues.GetSession)

	// Draft turns. Pick submission is rate limited per client.
	mux.Handle("POST /api/leagues/{id}/picks", pickGuard(handlers.Draft.SubmitPick))
	mux.HandleFunc("GET /api/leagues/{id}/picks", handlers.Draft.ListPicks)
	mux.HandleFunc("GET /api/leagues/{id}/draft", handlers.Draft.DraftState)

	// Scores.
	mux.HandleFunc("GET /api/leagues/{id}/scores", handlers.Scores.LiveScores)

	// Markets.
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{id}/estimate", handlers.Scores.EstimatePick)

	// Head-to-head matches and profiles.
	mux.HandleFunc("POST /api/leagues/{id}/match/settle", handlers.Matches.SettleMatch)
	mux.HandleFunc("GET /api/profiles/leaderboard", handlers.Matches.RatingLeaderboard)
	mux.HandleFunc("GET /api/profiles/{address}", handlers.Matches.GetProfile)

	// Payout history.
	mux.HandleFunc("GET /api/leagues/{id}/payouts", handlers.Payouts.History)

	// Trades.
	mux.HandleFunc("POST /api/leagues/{id}/trades", handlers.Trades.ProposeTrade)
	mux.HandleFunc("GET /api/leagues/{id}/trades", handlers.Trades.ListTrades)
	mux.HandleFunc("POST /api/trades/{id}/accept", handlers.Trades.AcceptTrade)
	mux.HandleFunc("POST /api/trades/{id}/reject", handlers.Trades.RejectTrade)

	// Operator endpoints.
	mux.Handle("POST /api/admin/markets/import", admin(http.HandlerFunc(handlers.Markets.ImportMarkets)))
	mux.Handle("POST /api/admin/markets/sync", admin(http.HandlerFunc(handlers.Markets.SyncPrices)))
	mux.Handle("POST /api/admin/markets/{id}/resolve", admin(http.HandlerFunc(handlers.Settlement.ResolveMarket)))
	mux.Handle("POST /api/admin/leagues/{id}/payouts", admin(http.HandlerFunc(handlers.Payouts.Distribute)))
	if handlers.Archives != nil {
		mux.Handle("GET /api/admin/archives", admin(http.HandlerFunc(handlers.Archives.ListArchives)))
		mux.Handle("GET /api/admin/leagues/{id}/archive", admin(http.HandlerFunc(handlers.Archives.GetArchive)))
	}

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
