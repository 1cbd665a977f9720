package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebzhan/fflbot/internal/domain"
	"github.com/calebzhan/fflbot/internal/scoring"
)

func TestLiveLeaderboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := NewScoreService(f.leagues, f.players, f.picks, f.prices, nil, testLogger())

	league := f.leagues.put(domain.League{
		Name: "score-test", Creator: "alice", MaxPlayers: 4,
		Mode: domain.LeagueModeStandard, Status: domain.LeagueStatusActive,
	})
	f.addPlayer(t, league.ID, "alice")
	f.addPlayer(t, league.ID, "bob")
	f.setStats(league.ID, "alice", 48, 1)

	// Bob holds two open picks; only one has a cached price.
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "bob",
		Prediction: domain.SideYes, Session: 1, PickIndex: 0, SnapshotOdds: 4000,
	})
	f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m2", Player: "bob",
		Prediction: domain.SideNo, Session: 1, PickIndex: 1, SnapshotOdds: 5000,
	})
	require.NoError(t, f.prices.SetPrice(ctx, "m1", 0.55, 0.45, time.Now()))

	lb, err := svc.Live(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, league.ID, lb.LeagueID)
	require.Len(t, lb.Entries, 2)

	// Alice leads on settled points.
	assert.Equal(t, 1, lb.Entries[0].Rank)
	assert.Equal(t, "alice", lb.Entries[0].Player)
	assert.Equal(t, int64(48), lb.Entries[0].Points)
	assert.Zero(t, lb.Entries[0].OpenPicks)

	// Bob's YES at 0.40 marked to 0.55 is +15 live; the unpriced pick
	// contributes nothing but still counts as open.
	bob := lb.Entries[1]
	assert.Equal(t, 2, bob.Rank)
	assert.InDelta(t, 15.0, bob.Live, 1e-9)
	assert.InDelta(t, 15.0, bob.Projected, 1e-9)
	assert.Equal(t, 2, bob.OpenPicks)
}

func TestLiveLeaderboardUnknownLeague(t *testing.T) {
	f := newFixture()
	svc := NewScoreService(f.leagues, f.players, f.picks, f.prices, nil, testLogger())

	_, err := svc.Live(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLiveServesCacheUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	cache := newFakeLeaderboardCache()
	svc := NewScoreService(f.leagues, f.players, f.picks, f.prices, cache, testLogger())

	league := f.leagues.put(domain.League{
		Name: "cache-test", Creator: "alice", MaxPlayers: 2,
		Mode: domain.LeagueModeStandard, Status: domain.LeagueStatusActive,
	})
	f.addPlayer(t, league.ID, "alice")
	f.setStats(league.ID, "alice", 10, 0)

	first, err := svc.Live(ctx, league.ID)
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)
	assert.Equal(t, int64(10), first.Entries[0].Points)

	// A point change invisible to the cache: stale numbers are served until
	// settlement invalidates.
	f.setStats(league.ID, "alice", 99, 0)

	stale, err := svc.Live(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stale.Entries[0].Points)

	svc.Invalidate(ctx, league.ID)

	fresh, err := svc.Live(ctx, league.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(99), fresh.Entries[0].Points)
}

func TestEstimate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := NewScoreService(f.leagues, f.players, f.picks, f.prices, nil, testLogger())

	require.NoError(t, f.prices.SetPrice(ctx, "m1", 0.15, 0.85, time.Now()))

	yes, err := svc.Estimate(ctx, "m1", domain.SideYes)
	require.NoError(t, err)
	assert.Equal(t, int64(128), yes.PointsIfCorrect)
	assert.Equal(t, int64(-5), yes.PenaltyIfWrong)
	assert.Equal(t, scoring.TierLongshot, yes.Tier)
	assert.InDelta(t, 1.5, yes.Multiplier, 1e-9)

	no, err := svc.Estimate(ctx, "m1", domain.SideNo)
	require.NoError(t, err)
	assert.Equal(t, int64(15), no.PointsIfCorrect)
	assert.Equal(t, int64(-26), no.PenaltyIfWrong)
	assert.Equal(t, scoring.TierFavorite, no.Tier)

	_, err = svc.Estimate(ctx, "m1", domain.Side("MAYBE"))
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.Estimate(ctx, "unknown", domain.SideYes)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
