package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/calebzhan/fflbot/internal/domain"
	"github.com/calebzhan/fflbot/internal/draft"
)

// LeagueService handles league lifecycle: creation, joining, and starting the
// draft.
type LeagueService struct {
	leagues  domain.LeagueStore
	sessions domain.SessionStore
	players  domain.PlayerStore
	bus      domain.SignalBus
	audit    domain.AuditStore
	ledger   domain.Ledger // nil when ledger integration is disabled
	logger   *slog.Logger

	sessionDeadline time.Duration
}

// NewLeagueService creates a LeagueService. ledger may be nil, in which case
// buy-in confirmation is skipped.
func NewLeagueService(
	leagues domain.LeagueStore,
	sessions domain.SessionStore,
	players domain.PlayerStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	ledger domain.Ledger,
	logger *slog.Logger,
	sessionDeadline time.Duration,
) *LeagueService {
	return &LeagueService{
		leagues:         leagues,
		sessions:        sessions,
		players:         players,
		bus:             bus,
		audit:           audit,
		ledger:          ledger,
		logger:          logger,
		sessionDeadline: sessionDeadline,
	}
}

// Create validates and persists a new league in SETUP, then joins the creator
// as its first participant.
func (s *LeagueService) Create(ctx context.Context, league domain.League) (domain.League, error) {
	if league.Name == "" {
		return domain.League{}, fmt.Errorf("league_service: %w: name must not be empty", domain.ErrValidation)
	}
	if league.Creator == "" {
		return domain.League{}, fmt.Errorf("league_service: %w: creator must not be empty", domain.ErrValidation)
	}
	if league.MaxPlayers < 2 {
		return domain.League{}, fmt.Errorf("league_service: %w: max_players must be at least 2", domain.ErrValidation)
	}
	if league.MarketsPerSession < 1 {
		return domain.League{}, fmt.Errorf("league_service: %w: markets_per_session must be at least 1", domain.ErrValidation)
	}
	if league.TotalSessions < 1 {
		league.TotalSessions = 1
	}
	if league.Mode == "" {
		league.Mode = domain.LeagueModeStandard
	}
	if league.Mode != domain.LeagueModeStandard && league.Mode != domain.LeagueModeOneOnOne {
		return domain.League{}, fmt.Errorf("league_service: %w: unknown mode %q", domain.ErrValidation, league.Mode)
	}
	if league.Mode == domain.LeagueModeOneOnOne && league.MaxPlayers != 2 {
		return domain.League{}, fmt.Errorf("league_service: %w: one-on-one leagues hold exactly 2 players", domain.ErrValidation)
	}
	if league.BuyIn < 0 {
		return domain.League{}, fmt.Errorf("league_service: %w: buy_in must not be negative", domain.ErrValidation)
	}
	if league.Currency == "" {
		league.Currency = "USDC"
	}
	league.Status = domain.LeagueStatusSetup
	league.CurrentSession = 0
	league.DraftOrder = nil

	created, err := s.leagues.Create(ctx, league)
	if err != nil {
		return domain.League{}, fmt.Errorf("league_service: create: %w", err)
	}

	if err := s.join(ctx, created, created.Creator); err != nil {
		return domain.League{}, fmt.Errorf("league_service: join creator: %w", err)
	}

	s.logger.InfoContext(ctx, "league created",
		slog.Int64("league_id", created.ID),
		slog.String("creator", created.Creator),
		slog.String("mode", string(created.Mode)),
	)
	return created, nil
}

// Get returns a league by id.
func (s *LeagueService) Get(ctx context.Context, id int64) (domain.League, error) {
	league, err := s.leagues.GetByID(ctx, id)
	if err != nil {
		return domain.League{}, fmt.Errorf("league_service: get %d: %w", id, err)
	}
	return league, nil
}

// List returns leagues, newest first.
func (s *LeagueService) List(ctx context.Context, opts domain.ListOpts) ([]domain.League, error) {
	leagues, err := s.leagues.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("league_service: list: %w", err)
	}
	return leagues, nil
}

// Players returns the participants of a league with standings ranks.
func (s *LeagueService) Players(ctx context.Context, leagueID int64) ([]domain.PlayerStats, error) {
	players, err := s.players.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("league_service: players for %d: %w", leagueID, err)
	}
	return players, nil
}

// Join adds a participant to a league still in SETUP.
func (s *LeagueService) Join(ctx context.Context, leagueID int64, address string) error {
	if address == "" {
		return fmt.Errorf("league_service: %w: address must not be empty", domain.ErrValidation)
	}

	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("league_service: join %d: %w", leagueID, err)
	}
	if league.Status != domain.LeagueStatusSetup {
		return fmt.Errorf("league_service: join %d: %w: league is %s", leagueID, domain.ErrConflict, league.Status)
	}

	count, err := s.players.Count(ctx, leagueID)
	if err != nil {
		return fmt.Errorf("league_service: join %d: %w", leagueID, err)
	}
	if count >= league.MaxPlayers {
		return fmt.Errorf("league_service: join %d: %w: league is full", leagueID, domain.ErrConflict)
	}

	if err := s.join(ctx, league, address); err != nil {
		return fmt.Errorf("league_service: join %d: %w", leagueID, err)
	}
	return nil
}

// join creates the participant row and confirms the buy-in on the ledger.
// Ledger failures are logged, not returned: the DB row is authoritative.
func (s *LeagueService) join(ctx context.Context, league domain.League, address string) error {
	if _, err := s.players.Create(ctx, domain.PlayerStats{
		LeagueID: league.ID,
		Address:  address,
	}); err != nil {
		return err
	}

	if s.ledger != nil && league.BuyIn > 0 {
		receipt, err := s.ledger.ConfirmStake(ctx, league.ID, address, league.BuyIn)
		if err != nil {
			s.logger.WarnContext(ctx, "stake confirmation failed",
				slog.Int64("league_id", league.ID),
				slog.String("player", address),
				slog.String("error", err.Error()),
			)
		} else if err := s.audit.Log(ctx, "league.stake_confirmed", map[string]any{
			"league_id": league.ID,
			"player":    address,
			"amount":    league.BuyIn,
			"tx_ref":    receipt.TxRef,
		}); err != nil {
			s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
		}
	}

	return nil
}

// StartDraft fixes the draft order and opens the first session. Only the
// creator may start, and at least two participants must have joined. The
// SETUP to DRAFTING transition is a conditional update, so two racing starts
// cannot both succeed.
func (s *LeagueService) StartDraft(ctx context.Context, leagueID int64, caller string) (domain.League, error) {
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return domain.League{}, fmt.Errorf("league_service: start draft %d: %w", leagueID, err)
	}
	if caller != league.Creator {
		return domain.League{}, fmt.Errorf("league_service: start draft %d: %w: only the creator may start",
			leagueID, domain.ErrUnauthorized)
	}
	if league.Status != domain.LeagueStatusSetup {
		return domain.League{}, fmt.Errorf("league_service: start draft %d: %w: league is %s",
			leagueID, domain.ErrConflict, league.Status)
	}

	players, err := s.players.ListByLeague(ctx, leagueID)
	if err != nil {
		return domain.League{}, fmt.Errorf("league_service: start draft %d: %w", leagueID, err)
	}
	if len(players) < 2 {
		return domain.League{}, fmt.Errorf("league_service: start draft %d: %w: need at least 2 players",
			leagueID, domain.ErrValidation)
	}

	addresses := make([]string, len(players))
	for i, p := range players {
		addresses[i] = p.Address
	}
	order := draft.Shuffle(addresses)

	if err := s.leagues.StartDraft(ctx, leagueID, order); err != nil {
		return domain.League{}, fmt.Errorf("league_service: start draft %d: %w", leagueID, err)
	}

	now := time.Now().UTC()
	if err := s.sessions.Create(ctx, domain.Session{
		LeagueID:  leagueID,
		Index:     1,
		Status:    domain.SessionStatusDrafting,
		StartTime: now,
		EndTime:   now.Add(s.sessionDeadline),
	}); err != nil {
		return domain.League{}, fmt.Errorf("league_service: start draft %d: open session: %w", leagueID, err)
	}

	if err := s.audit.Log(ctx, "league.draft_started", map[string]any{
		"league_id":   leagueID,
		"draft_order": order,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "draft started",
		slog.Int64("league_id", leagueID),
		slog.Int("players", len(order)),
	)

	league.Status = domain.LeagueStatusDrafting
	league.DraftOrder = order
	league.CurrentSession = 1
	return league, nil
}

// OpenNextSession advances an ACTIVE league to its next drafting session.
// Called after a session settles when the league still has sessions left.
func (s *LeagueService) OpenNextSession(ctx context.Context, leagueID int64) (domain.Session, error) {
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("league_service: open next session %d: %w", leagueID, err)
	}
	if league.Status != domain.LeagueStatusActive {
		return domain.Session{}, fmt.Errorf("league_service: open next session %d: %w: league is %s",
			leagueID, domain.ErrConflict, league.Status)
	}
	next := league.CurrentSession + 1
	if next > league.TotalSessions {
		return domain.Session{}, fmt.Errorf("league_service: open next session %d: %w: no sessions left",
			leagueID, domain.ErrConflict)
	}

	now := time.Now().UTC()
	sess := domain.Session{
		LeagueID:  leagueID,
		Index:     next,
		Status:    domain.SessionStatusDrafting,
		StartTime: now,
		EndTime:   now.Add(s.sessionDeadline),
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return domain.Session{}, fmt.Errorf("league_service: open next session %d: %w", leagueID, err)
	}
	if err := s.leagues.SetCurrentSession(ctx, leagueID, next); err != nil {
		return domain.Session{}, fmt.Errorf("league_service: open next session %d: %w", leagueID, err)
	}
	if err := s.leagues.UpdateStatus(ctx, leagueID, domain.LeagueStatusDrafting); err != nil {
		return domain.Session{}, fmt.Errorf("league_service: open next session %d: %w", leagueID, err)
	}

	s.logger.InfoContext(ctx, "session opened",
		slog.Int64("league_id", leagueID),
		slog.Int("session", next),
	)
	return sess, nil
}

// Session returns one session of a league.
func (s *LeagueService) Session(ctx context.Context, leagueID int64, index int) (domain.Session, error) {
	sess, err := s.sessions.Get(ctx, leagueID, index)
	if err != nil {
		return domain.Session{}, fmt.Errorf("league_service: session %d/%d: %w", leagueID, index, err)
	}
	return sess, nil
}
