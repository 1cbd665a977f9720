package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebzhan/fflbot/internal/domain"
)

const (
	testStakePerPick = 100.0
	testEloK         = 32
)

func newMatchService(f *fixture) *MatchService {
	return NewMatchService(
		f.leagues, f.players, f.picks, f.markets, f.profiles,
		f.bus, f.audit, testLogger(), testStakePerPick, testEloK,
	)
}

// oneOnOneLeague seeds a settled head-to-head league: both players hold one
// resolved pick on a market that resolved YES at a 60% snapshot.
func oneOnOneLeague(t *testing.T, f *fixture) domain.League {
	t.Helper()
	league := f.leagues.put(domain.League{
		Name:              "match-test",
		Creator:           "alice",
		MaxPlayers:        2,
		Mode:              domain.LeagueModeOneOnOne,
		TotalSessions:     1,
		MarketsPerSession: 1,
		CurrentSession:    1,
		Status:            domain.LeagueStatusActive,
	})
	f.addPlayer(t, league.ID, "alice")
	f.addPlayer(t, league.ID, "bob")

	f.addResolvedMarket("m1", domain.OutcomeYes)
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "alice",
		Prediction: domain.SideYes, Session: 1, PickIndex: 0,
		SnapshotOdds: 6000, IsResolved: true,
	})
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "bob",
		Prediction: domain.SideNo, Session: 1, PickIndex: 1,
		SnapshotOdds: 6000, IsResolved: true,
	})
	return league
}

func TestSettleMatchMovesRatings(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newMatchService(f)
	league := oneOnOneLeague(t, f)

	result, err := svc.Settle(ctx, league.ID)
	require.NoError(t, err)

	// Alice entered YES at 0.60 with a 100 stake: 100/0.6-100 = +66.67.
	// Bob entered NO at 0.40 and lost the full stake.
	assert.Equal(t, "alice", result.Winner)
	assert.Equal(t, "bob", result.Loser)
	assert.False(t, result.Tie)
	assert.Equal(t, testEloK, result.EloDelta)
	assert.InDelta(t, 100.0/0.6-100, result.PnL["alice"], 1e-9)
	assert.InDelta(t, -100.0, result.PnL["bob"], 1e-9)

	winner, err := svc.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.BaseElo+testEloK, winner.Elo)
	assert.Equal(t, 1, winner.Wins)

	loser, err := svc.Profile(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, domain.BaseElo-testEloK, loser.Elo)
	assert.Equal(t, 1, loser.Losses)

	got, err := f.leagues.GetByID(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeagueStatusCompleted, got.Status)

	assert.Contains(t, f.bus.eventTypes(), domain.EventMatchSettled)
}

func TestSettleMatchTie(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newMatchService(f)

	league := f.leagues.put(domain.League{
		Name: "tie", Creator: "alice", MaxPlayers: 2,
		Mode: domain.LeagueModeOneOnOne, TotalSessions: 1,
		MarketsPerSession: 1, Status: domain.LeagueStatusActive,
	})
	f.addPlayer(t, league.ID, "alice")
	f.addPlayer(t, league.ID, "bob")

	// A voided market refunds both stakes, leaving zero P&L on both sides.
	f.addResolvedMarket("m1", domain.OutcomeInvalid)
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "alice",
		Prediction: domain.SideYes, Session: 1, PickIndex: 0,
		SnapshotOdds: 7000, IsResolved: true,
	})
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "bob",
		Prediction: domain.SideNo, Session: 1, PickIndex: 1,
		SnapshotOdds: 7000, IsResolved: true,
	})

	result, err := svc.Settle(ctx, league.ID)
	require.NoError(t, err)
	assert.True(t, result.Tie)
	assert.Empty(t, result.Winner)
	assert.Zero(t, result.EloDelta)

	// Ratings are untouched on a tie, but the league still completes.
	alice, err := svc.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.BaseElo, alice.Elo)
	assert.Zero(t, alice.Wins)

	got, err := f.leagues.GetByID(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeagueStatusCompleted, got.Status)
}

func TestSettleMatchIsOneShot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newMatchService(f)
	league := oneOnOneLeague(t, f)

	_, err := svc.Settle(ctx, league.ID)
	require.NoError(t, err)

	_, err = svc.Settle(ctx, league.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)

	// The second attempt must not double-apply ratings.
	winner, err := svc.Profile(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, domain.BaseElo+testEloK, winner.Elo)
	assert.Equal(t, 1, winner.Wins)
}

func TestSettleMatchMarksOpenPicksToCurrentPrice(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newMatchService(f)
	league := oneOnOneLeague(t, f)

	// Bob's open pick entered YES at 0.50 and the market now trades at 0.80:
	// 100/0.5*0.8-100 = +60 against his -100 resolved loss.
	f.addMarket("m2", 0.80)
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m2", Player: "bob",
		Prediction: domain.SideYes, Session: 1, PickIndex: 2, SnapshotOdds: 5000,
	})

	// An open pick on a market with no synced price is marked flat.
	f.markets.mu.Lock()
	f.markets.markets["m3"] = domain.Market{ID: "m3", Title: "m3", Active: true}
	f.markets.mu.Unlock()
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m3", Player: "alice",
		Prediction: domain.SideNo, Session: 1, PickIndex: 3, SnapshotOdds: 5000,
	})

	result, err := svc.Settle(ctx, league.ID)
	require.NoError(t, err)

	assert.Equal(t, "alice", result.Winner)
	assert.InDelta(t, 100.0/0.6-100, result.PnL["alice"], 1e-9)
	assert.InDelta(t, -40.0, result.PnL["bob"], 1e-9)

	got, err := f.leagues.GetByID(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LeagueStatusCompleted, got.Status)
}

func TestSettleMatchRejectsStandardLeague(t *testing.T) {
	f := newFixture()
	svc := newMatchService(f)

	league := f.leagues.put(domain.League{
		Name: "standard", Creator: "alice", MaxPlayers: 4,
		Mode: domain.LeagueModeStandard, Status: domain.LeagueStatusActive,
	})

	_, err := svc.Settle(context.Background(), league.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestProfileDefaultsToBaseRating(t *testing.T) {
	f := newFixture()
	svc := newMatchService(f)

	profile, err := svc.Profile(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, domain.BaseElo, profile.Elo)
	assert.Zero(t, profile.Wins)
	assert.Zero(t, profile.Losses)
}

func TestRatingLeaderboardOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newMatchService(f)

	require.NoError(t, f.profiles.ApplyMatchResult(ctx, "alice", "bob", 32))
	require.NoError(t, f.profiles.ApplyMatchResult(ctx, "carol", "bob", 32))

	board, err := svc.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "bob", board[2].Address)
	assert.Equal(t, domain.BaseElo-64, board[2].Elo)
}
