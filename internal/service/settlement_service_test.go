package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebzhan/fflbot/internal/domain"
)

func newSettlementService(f *fixture) *SettlementService {
	logger := testLogger()
	scores := NewScoreService(f.leagues, f.players, f.picks, f.prices, nil, logger)
	return NewSettlementService(
		f.leagues, f.sessions, f.players, f.markets, f.picks,
		f.locks, scores, nil, f.bus, f.audit, logger,
	)
}

// liveLeague seeds a league whose only session has finished drafting and is
// waiting on settlement.
func liveLeague(t *testing.T, f *fixture, mode domain.LeagueMode, marketsPerSession int) domain.League {
	t.Helper()
	league := f.leagues.put(domain.League{
		Name:              "settle-test",
		Creator:           "alice",
		MaxPlayers:        4,
		Mode:              mode,
		TotalSessions:     1,
		MarketsPerSession: marketsPerSession,
		CurrentSession:    1,
		Status:            domain.LeagueStatusActive,
		DraftOrder:        []string{"alice", "bob"},
	})
	now := time.Now().UTC()
	require.NoError(t, f.sessions.Create(context.Background(), domain.Session{
		LeagueID:  league.ID,
		Index:     1,
		Status:    domain.SessionStatusLive,
		StartTime: now.Add(-time.Hour),
		EndTime:   now.Add(-time.Minute),
	}))
	return league
}

func TestSettleMarketScoresOpenPicks(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newSettlementService(f)

	league := liveLeague(t, f, domain.LeagueModeStandard, 1)
	f.addPlayer(t, league.ID, "alice")
	f.addPlayer(t, league.ID, "bob")
	f.addMarket("m1", 0.60)

	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "alice",
		Prediction: domain.SideYes, Session: 1, PickIndex: 0, SnapshotOdds: 6000,
	})
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "bob",
		Prediction: domain.SideNo, Session: 1, PickIndex: 1, SnapshotOdds: 6000,
	})

	report, err := svc.SettleMarket(ctx, "m1", domain.OutcomeYes)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeYes, report.Outcome)
	assert.Equal(t, 2, report.PicksResolved)
	assert.Equal(t, 0, report.PicksSkipped)
	assert.Equal(t, 2, report.PlayersAffected)
	assert.Empty(t, report.PickErrs)
	assert.Contains(t, f.locks.acquired, "settle:m1")

	// Correct YES at 60%: round(100*0.4*1.2) = 48. Wrong NO at 40%: -12.
	alice, err := f.players.Get(ctx, league.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(48), alice.Points)
	assert.Equal(t, 1, alice.Streak)

	bob, err := f.players.Get(ctx, league.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(-12), bob.Points)
	assert.Equal(t, 0, bob.Streak)

	market, err := f.markets.GetByID(ctx, "m1")
	require.NoError(t, err)
	require.NotNil(t, market.Resolution)
	assert.Equal(t, domain.OutcomeYes, *market.Resolution)

	// The last pick of the last session closes the session and the league.
	sess, err := f.sessions.Get(ctx, league.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusComplete, sess.Status)

	got, err := f.leagues.GetByID(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeagueStatusCompleted, got.Status)

	types := f.bus.eventTypes()
	assert.Contains(t, types, domain.EventMarketResolved)
	assert.Contains(t, types, domain.EventSessionComplete)
}

func TestSettleMarketInvalidOutcomeVoidsPicks(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newSettlementService(f)

	league := liveLeague(t, f, domain.LeagueModeStandard, 1)
	f.addPlayer(t, league.ID, "alice")
	f.setStats(league.ID, "alice", 100, 3)
	f.addMarket("m1", 0.10)

	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "alice",
		Prediction: domain.SideYes, Session: 1, PickIndex: 0, SnapshotOdds: 1000,
	})

	report, err := svc.SettleMarket(ctx, "m1", domain.OutcomeInvalid)
	require.NoError(t, err)
	assert.Equal(t, 1, report.PicksResolved)

	// A voided market scores zero and breaks the streak.
	alice, err := f.players.Get(ctx, league.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(100), alice.Points)
	assert.Equal(t, 0, alice.Streak)
}

func TestSettleMarketRerunKeepsRecordedOutcome(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newSettlementService(f)

	league := liveLeague(t, f, domain.LeagueModeStandard, 1)
	f.addPlayer(t, league.ID, "alice")
	f.addMarket("m1", 0.60)
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "alice",
		Prediction: domain.SideYes, Session: 1, PickIndex: 0, SnapshotOdds: 6000,
	})

	_, err := svc.SettleMarket(ctx, "m1", domain.OutcomeYes)
	require.NoError(t, err)

	// A re-run with a contradicting outcome defers to the recorded one and
	// applies nothing.
	report, err := svc.SettleMarket(ctx, "m1", domain.OutcomeNo)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeYes, report.Outcome)
	assert.Equal(t, 0, report.PicksResolved)
	assert.Equal(t, 1, report.PicksSkipped)

	alice, err := f.players.Get(ctx, league.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(48), alice.Points)
}

func TestSettleMarketRejectsUnknownOutcome(t *testing.T) {
	f := newFixture()
	svc := newSettlementService(f)

	_, err := svc.SettleMarket(context.Background(), "m1", domain.Outcome("MAYBE"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSettleMarketOneOnOneLeagueStaysOpen(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newSettlementService(f)

	league := liveLeague(t, f, domain.LeagueModeOneOnOne, 1)
	f.addPlayer(t, league.ID, "alice")
	f.addPlayer(t, league.ID, "bob")
	f.addMarket("m1", 0.50)
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "alice",
		Prediction: domain.SideYes, Session: 1, PickIndex: 0, SnapshotOdds: 5000,
	})
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "bob",
		Prediction: domain.SideNo, Session: 1, PickIndex: 1, SnapshotOdds: 5000,
	})

	_, err := svc.SettleMarket(ctx, "m1", domain.OutcomeYes)
	require.NoError(t, err)

	// The session closes, but a head-to-head league completes only through
	// match settlement.
	sess, err := f.sessions.Get(ctx, league.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusComplete, sess.Status)

	got, err := f.leagues.GetByID(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeagueStatusActive, got.Status)
}

func TestSettleMarketAwardsSessionBonuses(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newSettlementService(f)

	league := liveLeague(t, f, domain.LeagueModeStandard, 5)
	f.addPlayer(t, league.ID, "alice")

	markets := []string{"m1", "m2", "m3", "m4", "m5"}
	for i, id := range markets {
		f.addMarket(id, 0.50)
		f.addPick(t, domain.DraftPick{
			LeagueID: league.ID, MarketID: id, Player: "alice",
			Prediction: domain.SideYes, Session: 1, PickIndex: i, SnapshotOdds: 5000,
		})
	}

	for _, id := range markets {
		_, err := svc.SettleMarket(ctx, id, domain.OutcomeYes)
		require.NoError(t, err)
	}

	// Five correct picks at 50%: 5*60 base, +50 clean sweep, +25 streak.
	alice, err := f.players.Get(ctx, league.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(375), alice.Points)
	assert.Equal(t, 5, alice.Streak)

	got, err := f.leagues.GetByID(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeagueStatusCompleted, got.Status)
}

func TestFinalizeSessionAwardsBonusesOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newSettlementService(f)

	league := liveLeague(t, f, domain.LeagueModeStandard, 5)
	f.addPlayer(t, league.ID, "alice")

	// Every pick has already been scored; the session is waiting on its
	// closing run.
	for i, id := range []string{"m1", "m2", "m3", "m4", "m5"} {
		f.addResolvedMarket(id, domain.OutcomeYes)
		f.addPick(t, domain.DraftPick{
			LeagueID: league.ID, MarketID: id, Player: "alice",
			Prediction: domain.SideYes, Session: 1, PickIndex: i,
			SnapshotOdds: 5000, IsResolved: true,
		})
	}
	f.setStats(league.ID, "alice", 300, 5)

	require.NoError(t, svc.finalizeSession(ctx, league.ID, 1))

	alice, err := f.players.Get(ctx, league.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(375), alice.Points)

	// Two settlement runs can both observe zero unresolved picks; the
	// session's one-shot transition makes the loser a no-op.
	require.NoError(t, svc.finalizeSession(ctx, league.ID, 1))

	alice, err = f.players.Get(ctx, league.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(375), alice.Points)

	sess, err := f.sessions.Get(ctx, league.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusComplete, sess.Status)
}

func TestSettleMarketRetryFinalizesInterruptedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newSettlementService(f)

	league := liveLeague(t, f, domain.LeagueModeStandard, 1)
	f.addPlayer(t, league.ID, "alice")

	// A prior run scored the last pick and crashed before closing the
	// session: the market and pick are resolved but the session is LIVE.
	f.addResolvedMarket("m1", domain.OutcomeYes)
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "alice",
		Prediction: domain.SideYes, Session: 1, PickIndex: 0,
		SnapshotOdds: 5000, IsResolved: true,
	})
	f.setStats(league.ID, "alice", 60, 5)

	report, err := svc.SettleMarket(ctx, "m1", domain.OutcomeYes)
	require.NoError(t, err)
	assert.Equal(t, 0, report.PicksResolved)
	assert.Equal(t, 1, report.PicksSkipped)

	// The retry picks the session back up: it closes, bonuses land, and the
	// league completes.
	sess, err := f.sessions.Get(ctx, league.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionStatusComplete, sess.Status)

	alice, err := f.players.Get(ctx, league.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(85), alice.Points)

	got, err := f.leagues.GetByID(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeagueStatusCompleted, got.Status)
}

func TestSessionBonusSkipsCarriedStreakThresholds(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newSettlementService(f)

	league := liveLeague(t, f, domain.LeagueModeStandard, 5)
	f.addPlayer(t, league.ID, "alice")
	// A streak of 5 carried in from earlier play already earned its bonus.
	f.setStats(league.ID, "alice", 1000, 5)

	markets := []string{"m1", "m2", "m3", "m4", "m5"}
	for i, id := range markets {
		f.addMarket(id, 0.50)
		f.addPick(t, domain.DraftPick{
			LeagueID: league.ID, MarketID: id, Player: "alice",
			Prediction: domain.SideYes, Session: 1, PickIndex: i, SnapshotOdds: 5000,
		})
	}
	for _, id := range markets {
		_, err := svc.SettleMarket(ctx, id, domain.OutcomeYes)
		require.NoError(t, err)
	}

	// Base 300 for the five picks, +50 clean sweep, and only the streak
	// threshold crossed this session (5 -> 10) pays: +25, not +50.
	alice, err := f.players.Get(ctx, league.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1375), alice.Points)
	assert.Equal(t, 10, alice.Streak)
}
