package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/calebzhan/fflbot/internal/pipeline"
	"github.com/calebzhan/fflbot/internal/server"
	"github.com/calebzhan/fflbot/internal/server/handler"
	"github.com/calebzhan/fflbot/internal/server/ws"
	"github.com/calebzhan/fflbot/internal/service"
)

// services bundles the domain services shared by the HTTP server and the
// background pipeline.
type services struct {
	league     *service.LeagueService
	draft      *service.DraftService
	score      *service.ScoreService
	market     *service.MarketService
	settlement *service.SettlementService
	match      *service.MatchService
	payout     *service.PayoutService
	trade      *service.TradeService
	archive    *service.ArchiveService // nil when object storage is disabled
}

// buildServices constructs the service layer from wired dependencies.
func (a *App) buildServices(deps *Dependencies) *services {
	scoreSvc := service.NewScoreService(
		deps.LeagueStore, deps.PlayerStore, deps.PickStore,
		deps.PriceCache, deps.LeaderboardCache, a.logger,
	)

	var archiveSvc *service.ArchiveService
	if deps.BlobReader != nil {
		archiveSvc = service.NewArchiveService(deps.BlobReader, a.logger)
	}

	return &services{
		archive: archiveSvc,
		league: service.NewLeagueService(
			deps.LeagueStore, deps.SessionStore, deps.PlayerStore,
			deps.SignalBus, deps.AuditStore, deps.Ledger, a.logger,
			time.Duration(a.cfg.Draft.SessionDeadlineHours)*time.Hour,
		),
		draft: service.NewDraftService(
			deps.LeagueStore, deps.SessionStore, deps.PickStore,
			deps.MarketStore, deps.PriceCache, deps.SignalBus,
			deps.AuditStore, a.logger,
		),
		score: scoreSvc,
		market: service.NewMarketService(
			deps.MarketStore, deps.PriceCache, deps.Provider, a.logger,
		),
		settlement: service.NewSettlementService(
			deps.LeagueStore, deps.SessionStore, deps.PlayerStore,
			deps.MarketStore, deps.PickStore, deps.LockManager,
			scoreSvc, deps.Archiver, deps.SignalBus, deps.AuditStore, a.logger,
		),
		match: service.NewMatchService(
			deps.LeagueStore, deps.PlayerStore, deps.PickStore,
			deps.MarketStore, deps.ProfileStore, deps.SignalBus,
			deps.AuditStore, a.logger,
			a.cfg.Match.StakePerPick, a.cfg.Match.EloK,
		),
		payout: service.NewPayoutService(
			deps.LeagueStore, deps.PlayerStore, deps.PayoutStore,
			deps.Ledger, deps.SignalBus, deps.AuditStore, a.logger,
		),
		trade: service.NewTradeService(
			deps.LeagueStore, deps.PickStore, deps.ProposalStore,
			deps.AuditStore, a.logger,
			time.Duration(a.cfg.Draft.TradeProposalTTLHours)*time.Hour,
		),
	}
}

// ServerMode runs only the HTTP API and WebSocket hub. Settlement relies on
// an external poller instance or operator overrides.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	a.startHTTPServer(ctx, g, deps, svcs)
	a.startNotifyLoop(ctx, g, deps)

	return g.Wait()
}

// PollerMode runs only the background loops: resolution polling and price
// syncing. Useful when the API is served by separate instances.
func (a *App) PollerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting poller mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	if !a.cfg.Pipeline.Enabled {
		a.logger.WarnContext(ctx, "pipeline.enabled is false, but poller mode always runs the pipeline")
	}
	a.startPipeline(ctx, g, deps, svcs)
	a.startNotifyLoop(ctx, g, deps)

	return g.Wait()
}

// FullMode runs everything in one process: HTTP API, WebSocket hub, and the
// background pipeline.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	svcs := a.buildServices(deps)

	if a.cfg.Pipeline.Enabled {
		a.startPipeline(ctx, g, deps, svcs)
	} else {
		a.logger.WarnContext(ctx, "pipeline.enabled is false; markets settle only via operator override")
	}
	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps, svcs)
	}
	a.startNotifyLoop(ctx, g, deps)

	return g.Wait()
}

// startPipeline adds the resolution poller and price sync loops to the
// errgroup.
func (a *App) startPipeline(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	poller := pipeline.NewResolutionPoller(deps.MarketStore, deps.Provider, svcs.settlement, a.logger)
	priceSync := pipeline.NewPriceSync(svcs.market, a.logger)
	orch := pipeline.NewOrchestrator(
		poller,
		priceSync,
		a.cfg.Pipeline.ResolveInterval.Duration,
		a.cfg.Pipeline.PriceSyncInterval.Duration,
		a.logger,
	)
	g.Go(func() error {
		return orch.Run(ctx)
	})
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, svcs *services) {
	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		err := hub.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return err
	})

	srv := server.NewServer(
		server.Config{
			Port:               a.cfg.Server.Port,
			CORSOrigins:        a.cfg.Server.CORSOrigins,
			APIKey:             a.cfg.Server.APIKey,
			AdminKey:           a.cfg.Server.AdminKey,
			RateLimitPerMinute: a.cfg.Server.RateLimitPerMinute,
		},
		server.Handlers{
			Health:     handler.NewHealthHandler(a.logger),
			Status:     handler.NewStatusHandler(a.cfg.Mode, time.Now().UTC()),
			Leagues:    handler.NewLeagueHandler(svcs.league, a.logger),
			Draft:      handler.NewDraftHandler(svcs.draft, a.logger),
			Scores:     handler.NewScoreHandler(svcs.score, a.logger),
			Markets:    handler.NewMarketHandler(svcs.market, a.logger),
			Settlement: handler.NewSettlementHandler(svcs.settlement, a.logger),
			Matches:    handler.NewMatchHandler(svcs.match, a.logger),
			Payouts:    handler.NewPayoutHandler(svcs.payout, a.logger),
			Trades:     handler.NewTradeHandler(svcs.trade, a.logger),
			Archives:   archiveHandler(svcs, a.logger),
		},
		deps.RateLimiter,
		hub,
		a.logger,
	)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// archiveHandler builds the archive handler, or nil when object storage is
// not configured.
func archiveHandler(svcs *services, logger *slog.Logger) *handler.ArchiveHandler {
	if svcs.archive == nil {
		return nil
	}
	return handler.NewArchiveHandler(svcs.archive, logger)
}

// startNotifyLoop forwards league events from the signal bus to the
// configured notification channels. Without any configured senders the loop
// is skipped entirely.
func (a *App) startNotifyLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Notifier == nil || !deps.Notifier.HasSenders() {
		return
	}

	g.Go(func() error {
		ch, err := deps.SignalBus.Subscribe(ctx, "events")
		if err != nil {
			return fmt.Errorf("notify loop: subscribe events: %w", err)
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case data, ok := <-ch:
				if !ok {
					return nil
				}
				a.dispatchNotification(ctx, deps, data)
			}
		}
	})
}

// dispatchNotification turns one bus event into a human-readable message.
// Failures are logged and dropped; notifications never block settlement.
func (a *App) dispatchNotification(ctx context.Context, deps *Dependencies, data []byte) {
	var ev struct {
		Type     string         `json:"type"`
		LeagueID int64          `json:"league_id"`
		MarketID string         `json:"market_id"`
		Player   string         `json:"player"`
		Detail   map[string]any `json:"detail"`
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		a.logger.WarnContext(ctx, "notify loop: bad event payload", slog.String("error", err.Error()))
		return
	}

	var title, msg string
	switch ev.Type {
	case "market_resolved":
		title = "Market resolved"
		msg = fmt.Sprintf("Market %s resolved", ev.MarketID)
	case "session_complete":
		title = "Session complete"
		msg = fmt.Sprintf("League %d finished a session", ev.LeagueID)
	case "match_settled":
		title = "Match settled"
		msg = fmt.Sprintf("League %d head-to-head match settled", ev.LeagueID)
	case "payout_sent":
		title = "Payouts distributed"
		msg = fmt.Sprintf("League %d prize pool distributed", ev.LeagueID)
	default:
		return
	}

	if err := deps.Notifier.Notify(ctx, ev.Type, title, msg); err != nil {
		a.logger.WarnContext(ctx, "notify loop: send failed",
			slog.String("event", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
