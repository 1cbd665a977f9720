package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calebzhan/fflbot/internal/domain"
	"github.com/calebzhan/fflbot/internal/scoring"
)

// SettlementService turns market resolutions into immutable pick scores. It
// is safe to run concurrently and to re-run: a distributed lock serializes
// settlement per market, and each pick's score is applied through a
// conditional single-transaction write that fires at most once.
type SettlementService struct {
	leagues  domain.LeagueStore
	sessions domain.SessionStore
	players  domain.PlayerStore
	markets  domain.MarketStore
	picks    domain.PickStore
	locks    domain.LockManager
	scores   *ScoreService
	archiver domain.Archiver // nil when the season archive is disabled
	bus      domain.SignalBus
	audit    domain.AuditStore
	logger   *slog.Logger
}

// NewSettlementService creates a SettlementService. archiver may be nil.
func NewSettlementService(
	leagues domain.LeagueStore,
	sessions domain.SessionStore,
	players domain.PlayerStore,
	markets domain.MarketStore,
	picks domain.PickStore,
	locks domain.LockManager,
	scores *ScoreService,
	archiver domain.Archiver,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *SettlementService {
	return &SettlementService{
		leagues:  leagues,
		sessions: sessions,
		players:  players,
		markets:  markets,
		picks:    picks,
		locks:    locks,
		scores:   scores,
		archiver: archiver,
		bus:      bus,
		audit:    audit,
		logger:   logger,
	}
}

// settleLockTTL bounds how long one settlement run may hold a market's lock.
const settleLockTTL = 2 * time.Minute

// SettleMarket records a market's terminal outcome and scores every open pick
// on it. Re-running after a partial failure is safe: already-resolved picks
// are skipped, the rest are scored. An INVALID outcome voids the market and
// zeroes every pick.
func (s *SettlementService) SettleMarket(ctx context.Context, marketID string, outcome domain.Outcome) (domain.SettlementReport, error) {
	report := domain.SettlementReport{
		MarketID: marketID,
		Outcome:  outcome,
		PickErrs: map[int64]error{},
	}

	if !outcome.Valid() {
		return report, fmt.Errorf("settlement_service: %w: invalid outcome %q", domain.ErrValidation, outcome)
	}

	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, "settle:"+marketID, settleLockTTL)
		if err != nil {
			return report, fmt.Errorf("settlement_service: settle %s: %w", marketID, err)
		}
		defer unlock()
	}

	err := s.markets.SetResolution(ctx, marketID, outcome, time.Now().UTC())
	switch {
	case err == nil:
		publishEvent(ctx, s.bus, s.logger, domain.Event{
			Type:     domain.EventMarketResolved,
			MarketID: marketID,
			Detail:   map[string]any{"outcome": string(outcome)},
		})
	case errors.Is(err, domain.ErrAlreadyResolved):
		// Re-run after a partial failure. The recorded outcome wins over the
		// one we were called with.
		market, getErr := s.markets.GetByID(ctx, marketID)
		if getErr != nil {
			return report, fmt.Errorf("settlement_service: settle %s: %w", marketID, getErr)
		}
		if market.Resolution != nil {
			outcome = *market.Resolution
			report.Outcome = outcome
		}
	default:
		return report, fmt.Errorf("settlement_service: settle %s: %w", marketID, err)
	}

	// Every pick on the market is considered, resolved or not, so a retry
	// after a crash still revisits the sessions it may have left unfinalized.
	picks, err := s.picks.ListByMarket(ctx, marketID)
	if err != nil {
		return report, fmt.Errorf("settlement_service: settle %s: %w", marketID, err)
	}

	type sessionKey struct {
		leagueID int64
		session  int
	}
	touched := map[sessionKey]bool{}
	playersAffected := map[string]bool{}

	for _, pick := range picks {
		touched[sessionKey{pick.LeagueID, pick.Session}] = true
		if pick.IsResolved {
			report.PicksSkipped++
			continue
		}

		points, correct := scorePick(pick, outcome)

		applied, err := s.picks.ResolveAndScore(ctx, pick.ID, points, correct)
		if err != nil {
			report.PickErrs[pick.ID] = err
			s.logger.ErrorContext(ctx, "pick settlement failed",
				slog.Int64("pick_id", pick.ID),
				slog.String("market_id", marketID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !applied {
			report.PicksSkipped++
			continue
		}

		report.PicksResolved++
		playersAffected[pick.Player] = true
	}
	report.PlayersAffected = len(playersAffected)

	for key := range touched {
		s.scores.Invalidate(ctx, key.leagueID)

		remaining, err := s.picks.CountUnresolved(ctx, key.leagueID, key.session)
		if err != nil {
			s.logger.ErrorContext(ctx, "unresolved count failed",
				slog.Int64("league_id", key.leagueID),
				slog.Int("session", key.session),
				slog.String("error", err.Error()),
			)
			continue
		}
		if remaining > 0 {
			continue
		}
		if err := s.finalizeSession(ctx, key.leagueID, key.session); err != nil {
			s.logger.ErrorContext(ctx, "session finalize failed",
				slog.Int64("league_id", key.leagueID),
				slog.Int("session", key.session),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.audit.Log(ctx, "settlement.market", map[string]any{
		"market_id": marketID,
		"outcome":   string(outcome),
		"resolved":  report.PicksResolved,
		"skipped":   report.PicksSkipped,
		"failed":    len(report.PickErrs),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}

	s.logger.InfoContext(ctx, "market settled",
		slog.String("market_id", marketID),
		slog.String("outcome", string(outcome)),
		slog.Int("resolved", report.PicksResolved),
		slog.Int("skipped", report.PicksSkipped),
		slog.Int("failed", len(report.PickErrs)),
	)

	return report, nil
}

// scorePick computes the immutable point value of a pick for a terminal
// outcome. INVALID voids the pick: zero points, and the owner's streak
// resets because the pick cannot count toward it.
func scorePick(pick domain.DraftPick, outcome domain.Outcome) (int64, bool) {
	if outcome == domain.OutcomeInvalid {
		return 0, false
	}
	correct := (pick.Prediction == domain.SideYes && outcome == domain.OutcomeYes) ||
		(pick.Prediction == domain.SideNo && outcome == domain.OutcomeNo)
	pPred := scoring.DraftTimeProb(pick.Prediction, pick.SnapshotProb())
	points := scoring.FinalPoints(correct, pPred) + scoring.LongshotBonus(correct, pPred)
	return points, correct
}

// finalizeSession runs when a (league, session) has no unresolved picks
// left: session-level bonuses are awarded, the session closes, and the
// league either waits for its next session or completes. The session's
// conditional COMPLETE transition is the gate: only the run that wins it
// awards bonuses, so overlapping settlements of different markets in the
// same session cannot double-award them.
func (s *SettlementService) finalizeSession(ctx context.Context, leagueID int64, session int) error {
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return err
	}

	if err := s.sessions.Complete(ctx, leagueID, session); err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
	}

	if err := s.awardSessionBonuses(ctx, leagueID, session); err != nil {
		return err
	}

	publishEvent(ctx, s.bus, s.logger, domain.Event{
		Type:     domain.EventSessionComplete,
		LeagueID: leagueID,
		Detail:   map[string]any{"session": session},
	})
	s.scores.Invalidate(ctx, leagueID)

	s.logger.InfoContext(ctx, "session complete",
		slog.Int64("league_id", leagueID),
		slog.Int("session", session),
	)

	// One-on-one leagues complete through match settlement, not here.
	if league.Mode != domain.LeagueModeStandard || session < league.TotalSessions {
		return nil
	}

	if err := s.leagues.Complete(ctx, leagueID); err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			return nil
		}
		return err
	}

	if s.archiver != nil {
		if path, err := s.archiver.ArchiveLeague(ctx, leagueID); err != nil {
			s.logger.WarnContext(ctx, "league archive failed",
				slog.Int64("league_id", leagueID),
				slog.String("error", err.Error()),
			)
		} else {
			s.logger.InfoContext(ctx, "league archived",
				slog.Int64("league_id", leagueID),
				slog.String("path", path),
			)
		}
	}

	return nil
}

// awardSessionBonuses applies streak and clean-sweep bonuses for every
// participant holding picks in the finished session.
func (s *SettlementService) awardSessionBonuses(ctx context.Context, leagueID int64, session int) error {
	picks, err := s.picks.ListByLeague(ctx, leagueID, &session)
	if err != nil {
		return err
	}

	correctByPlayer := map[string][]bool{}
	for _, pick := range picks {
		correct, err := s.pickWasCorrect(ctx, pick)
		if err != nil {
			return err
		}
		correctByPlayer[pick.Player] = append(correctByPlayer[pick.Player], correct)
	}

	for player, correct := range correctByPlayer {
		bonus := scoring.CleanSweepBonus(correct)

		stats, err := s.players.Get(ctx, leagueID, player)
		if err != nil {
			return err
		}

		// Pay only streak thresholds crossed during this session. A streak
		// carried in from earlier sessions already earned its bonus there; a
		// wrong pick this session reset the counter, so everything current
		// was built here.
		prior := 0
		if allCorrect(correct) {
			prior = stats.Streak - len(correct)
			if prior < 0 {
				prior = 0
			}
		}
		bonus += scoring.StreakBonus(stats.Streak) - scoring.StreakBonus(prior)

		if bonus == 0 {
			continue
		}
		if err := s.players.AddPoints(ctx, leagueID, player, bonus); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "session bonus awarded",
			slog.Int64("league_id", leagueID),
			slog.Int("session", session),
			slog.String("player", player),
			slog.Int64("bonus", bonus),
		)
	}
	return nil
}

func allCorrect(correct []bool) bool {
	for _, c := range correct {
		if !c {
			return false
		}
	}
	return true
}

// pickWasCorrect rechecks a settled pick against its market's recorded
// outcome. Stored points cannot distinguish a voided pick from a correct
// sure-thing pick, both of which score zero.
func (s *SettlementService) pickWasCorrect(ctx context.Context, pick domain.DraftPick) (bool, error) {
	market, err := s.markets.GetByID(ctx, pick.MarketID)
	if err != nil {
		return false, err
	}
	if market.Resolution == nil {
		return false, nil
	}
	outcome := *market.Resolution
	return (pick.Prediction == domain.SideYes && outcome == domain.OutcomeYes) ||
		(pick.Prediction == domain.SideNo && outcome == domain.OutcomeNo), nil
}
