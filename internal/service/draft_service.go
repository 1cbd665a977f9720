package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/calebzhan/fflbot/internal/domain"
	"github.com/calebzhan/fflbot/internal/draft"
)

// DraftService is the turn engine. There is no stored "whose turn" state: the
// expected drafter is always derived from the fixed draft order and the count
// of picks already recorded, and the pick table's unique constraints are the
// final arbiter when two submissions race for the same turn.
type DraftService struct {
	leagues  domain.LeagueStore
	sessions domain.SessionStore
	picks    domain.PickStore
	markets  domain.MarketStore
	prices   domain.PriceCache
	bus      domain.SignalBus
	audit    domain.AuditStore
	logger   *slog.Logger
}

// NewDraftService creates a DraftService with all required dependencies.
func NewDraftService(
	leagues domain.LeagueStore,
	sessions domain.SessionStore,
	picks domain.PickStore,
	markets domain.MarketStore,
	prices domain.PriceCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *DraftService {
	return &DraftService{
		leagues:  leagues,
		sessions: sessions,
		picks:    picks,
		markets:  markets,
		prices:   prices,
		bus:      bus,
		audit:    audit,
		logger:   logger,
	}
}

// PickRequest is a draft submission. ClaimedIndex is the 0-based turn slot the
// client believes it is filling; a mismatch with the server's count means the
// client is out of sync and the pick is rejected.
type PickRequest struct {
	LeagueID     int64
	Player       string
	MarketID     string
	Prediction   domain.Side
	ClaimedIndex int
}

// SubmitPick validates and records a draft pick. The validation chain runs in
// order: session open, claimed index matches the pick count, the claimant is
// the expected drafter, the per-player pick budget has room, and the market is
// draftable. The insert itself is guarded by DB uniqueness, so even two
// requests passing every check concurrently cannot both land.
func (s *DraftService) SubmitPick(ctx context.Context, req PickRequest) (domain.DraftPick, error) {
	if !req.Prediction.Valid() {
		return domain.DraftPick{}, fmt.Errorf("draft_service: %w: prediction must be YES or NO", domain.ErrValidation)
	}

	league, err := s.leagues.GetByID(ctx, req.LeagueID)
	if err != nil {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w", err)
	}
	if league.Status != domain.LeagueStatusDrafting {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w: league is %s",
			domain.ErrConflict, league.Status)
	}

	sess, err := s.sessions.Get(ctx, req.LeagueID, league.CurrentSession)
	if err != nil {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w", err)
	}
	if sess.Status != domain.SessionStatusDrafting {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w: session %d is %s",
			domain.ErrConflict, sess.Index, sess.Status)
	}
	if time.Now().After(sess.EndTime) {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w: session %d deadline passed",
			domain.ErrConflict, sess.Index)
	}

	count, err := s.picks.CountBySession(ctx, req.LeagueID, sess.Index)
	if err != nil {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w", err)
	}
	expected := draft.ExpectedDrafter(league.DraftOrder, count)
	if req.ClaimedIndex != count || req.Player != expected {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w",
			&TurnError{ExpectedPlayer: expected, ExpectedIndex: count})
	}

	held, err := s.picks.CountByPlayer(ctx, req.LeagueID, sess.Index, req.Player)
	if err != nil {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w", err)
	}
	if held >= league.MarketsPerSession {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w: %d of %d picks used",
			domain.ErrPickLimit, held, league.MarketsPerSession)
	}

	market, err := s.markets.GetByID(ctx, req.MarketID)
	if err != nil {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: market %s: %w", req.MarketID, err)
	}
	if market.Resolution != nil {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w: market %s already resolved",
			domain.ErrConflict, req.MarketID)
	}
	if !market.Active {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w: market %s is not active",
			domain.ErrConflict, req.MarketID)
	}

	pick := domain.DraftPick{
		LeagueID:     req.LeagueID,
		MarketID:     req.MarketID,
		Player:       req.Player,
		Prediction:   req.Prediction,
		Session:      sess.Index,
		PickIndex:    count,
		SnapshotOdds: s.snapshotOdds(ctx, market),
	}

	created, err := s.picks.Create(ctx, pick)
	if err != nil {
		return domain.DraftPick{}, fmt.Errorf("draft_service: submit pick: %w", err)
	}

	s.logger.InfoContext(ctx, "pick recorded",
		slog.Int64("league_id", req.LeagueID),
		slog.Int("session", sess.Index),
		slog.Int("pick_index", created.PickIndex),
		slog.String("player", req.Player),
		slog.String("market_id", req.MarketID),
		slog.String("prediction", string(req.Prediction)),
	)

	publishEvent(ctx, s.bus, s.logger, domain.Event{
		Type:     domain.EventPickMade,
		LeagueID: req.LeagueID,
		MarketID: req.MarketID,
		Player:   req.Player,
		Detail: map[string]any{
			"session":       sess.Index,
			"pick_index":    created.PickIndex,
			"prediction":    string(req.Prediction),
			"snapshot_odds": created.SnapshotOdds,
		},
	})

	// A full board ends the drafting phase: the session goes LIVE and the
	// league is ACTIVE while settlement runs.
	total := draft.TotalPicks(league, len(league.DraftOrder))
	if count+1 >= total {
		if err := s.finishDraft(ctx, league, sess.Index); err != nil {
			return created, fmt.Errorf("draft_service: finish draft: %w", err)
		}
	}

	return created, nil
}

// State reports the draft's turn state for one league: the session in
// progress, picks recorded, and whose turn it is.
type State struct {
	League         domain.League
	Session        domain.Session
	Picks          []domain.DraftPick
	ExpectedPlayer string
	ExpectedIndex  int
	TotalPicks     int
}

// DraftState returns the current turn state for a drafting league.
func (s *DraftService) DraftState(ctx context.Context, leagueID int64) (State, error) {
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return State{}, fmt.Errorf("draft_service: state: %w", err)
	}
	session := league.CurrentSession
	if session == 0 {
		session = 1
	}
	sess, err := s.sessions.Get(ctx, leagueID, session)
	if err != nil && league.Status != domain.LeagueStatusSetup {
		return State{}, fmt.Errorf("draft_service: state: %w", err)
	}
	picks, err := s.picks.ListByLeague(ctx, leagueID, &session)
	if err != nil {
		return State{}, fmt.Errorf("draft_service: state: %w", err)
	}

	st := State{
		League:     league,
		Session:    sess,
		Picks:      picks,
		TotalPicks: draft.TotalPicks(league, len(league.DraftOrder)),
	}
	if league.Status == domain.LeagueStatusDrafting {
		st.ExpectedIndex = len(picks)
		st.ExpectedPlayer = draft.ExpectedDrafter(league.DraftOrder, len(picks))
	}
	return st, nil
}

// Picks lists the picks of a league, optionally scoped to one session.
func (s *DraftService) Picks(ctx context.Context, leagueID int64, session *int) ([]domain.DraftPick, error) {
	picks, err := s.picks.ListByLeague(ctx, leagueID, session)
	if err != nil {
		return nil, fmt.Errorf("draft_service: picks: %w", err)
	}
	return picks, nil
}

// snapshotOdds freezes the market's YES probability at draft time in basis
// points, preferring the live cache over the last synced store price.
func (s *DraftService) snapshotOdds(ctx context.Context, market domain.Market) int {
	priceYes := market.PriceForSide(domain.SideYes, 0.5)
	if s.prices != nil {
		if yes, _, _, err := s.prices.GetPrice(ctx, market.ID); err == nil {
			priceYes = yes
		}
	}
	odds := int(math.Round(priceYes * 10000))
	if odds < 0 {
		odds = 0
	}
	if odds > 10000 {
		odds = 10000
	}
	return odds
}

func (s *DraftService) finishDraft(ctx context.Context, league domain.League, session int) error {
	if err := s.sessions.UpdateStatus(ctx, league.ID, session, domain.SessionStatusLive); err != nil {
		return err
	}
	if err := s.leagues.UpdateStatus(ctx, league.ID, domain.LeagueStatusActive); err != nil {
		return err
	}

	if err := s.audit.Log(ctx, "draft.complete", map[string]any{
		"league_id": league.ID,
		"session":   session,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}

	publishEvent(ctx, s.bus, s.logger, domain.Event{
		Type:     domain.EventDraftComplete,
		LeagueID: league.ID,
		Detail:   map[string]any{"session": session},
	})

	s.logger.InfoContext(ctx, "draft complete",
		slog.Int64("league_id", league.ID),
		slog.Int("session", session),
	)
	return nil
}
