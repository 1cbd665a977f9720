package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebzhan/fflbot/internal/domain"
)

func newTradeService(f *fixture, ttl time.Duration) *TradeService {
	return NewTradeService(f.leagues, f.picks, f.proposals, f.audit, testLogger(), ttl)
}

// tradeLeague seeds an active league where alice and bob each hold one open
// pick.
func tradeLeague(t *testing.T, f *fixture) (domain.League, domain.DraftPick, domain.DraftPick) {
	t.Helper()
	league := f.leagues.put(domain.League{
		Name: "trade-test", Creator: "alice", MaxPlayers: 4,
		Mode: domain.LeagueModeStandard, TotalSessions: 1,
		MarketsPerSession: 2, CurrentSession: 1,
		Status: domain.LeagueStatusActive,
	})
	f.addMarket("m1", 0.40)
	f.addMarket("m2", 0.70)
	alicePick := f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "alice",
		Prediction: domain.SideYes, Session: 1, PickIndex: 0, SnapshotOdds: 4000,
	})
	bobPick := f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m2", Player: "bob",
		Prediction: domain.SideNo, Session: 1, PickIndex: 1, SnapshotOdds: 7000,
	})
	return league, alicePick, bobPick
}

func TestTradeSwapOnAccept(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newTradeService(f, time.Hour)
	league, alicePick, bobPick := tradeLeague(t, f)

	proposal, err := svc.Propose(ctx, league.ID, "alice", "bob", alicePick.ID, &bobPick.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeProposalPending, proposal.Status)

	require.NoError(t, svc.Accept(ctx, proposal.ID, "bob"))

	// Both picks change hands on a two-way trade.
	offered, err := f.picks.GetByID(ctx, alicePick.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", offered.Player)

	wanted, err := f.picks.GetByID(ctx, bobPick.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", wanted.Player)

	decided, err := f.proposals.GetByID(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeProposalAccepted, decided.Status)
	assert.NotNil(t, decided.DecidedAt)

	// A decided proposal cannot be decided again.
	assert.ErrorIs(t, svc.Accept(ctx, proposal.ID, "bob"), domain.ErrConflict)
	assert.ErrorIs(t, svc.Reject(ctx, proposal.ID, "alice"), domain.ErrConflict)
}

func TestTradeOneWayGift(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newTradeService(f, time.Hour)
	league, alicePick, bobPick := tradeLeague(t, f)

	proposal, err := svc.Propose(ctx, league.ID, "alice", "bob", alicePick.ID, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Accept(ctx, proposal.ID, "bob"))

	offered, err := f.picks.GetByID(ctx, alicePick.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", offered.Player)

	// Bob's own pick is untouched.
	kept, err := f.picks.GetByID(ctx, bobPick.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", kept.Player)
}

func TestTradeProposeValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newTradeService(f, time.Hour)
	league, alicePick, bobPick := tradeLeague(t, f)

	// Self-trades are meaningless.
	_, err := svc.Propose(ctx, league.ID, "alice", "alice", alicePick.ID, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Offering someone else's pick.
	_, err = svc.Propose(ctx, league.ID, "alice", "bob", bobPick.ID, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Resolved picks are off the table.
	resolved := f.addPick(t, domain.DraftPick{
		LeagueID: league.ID, MarketID: "m1", Player: "alice",
		Prediction: domain.SideNo, Session: 1, PickIndex: 2,
		SnapshotOdds: 6000, IsResolved: true,
	})
	_, err = svc.Propose(ctx, league.ID, "alice", "bob", resolved.ID, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// Completed leagues no longer trade.
	require.NoError(t, f.leagues.Complete(ctx, league.ID))
	_, err = svc.Propose(ctx, league.ID, "alice", "bob", alicePick.ID, nil)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestTradeAcceptAuthorization(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newTradeService(f, time.Hour)
	league, alicePick, _ := tradeLeague(t, f)

	proposal, err := svc.Propose(ctx, league.ID, "alice", "bob", alicePick.ID, nil)
	require.NoError(t, err)

	// Only the counterparty accepts; even the proposer cannot.
	assert.ErrorIs(t, svc.Accept(ctx, proposal.ID, "alice"), domain.ErrUnauthorized)
	assert.ErrorIs(t, svc.Accept(ctx, proposal.ID, "carol"), domain.ErrUnauthorized)

	// Either side may reject.
	require.NoError(t, svc.Reject(ctx, proposal.ID, "alice"))

	decided, err := f.proposals.GetByID(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeProposalRejected, decided.Status)

	// The pick never moved.
	pick, err := f.picks.GetByID(ctx, alicePick.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", pick.Player)
}

func TestTradeAcceptExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newTradeService(f, -time.Minute)
	league, alicePick, _ := tradeLeague(t, f)

	proposal, err := svc.Propose(ctx, league.ID, "alice", "bob", alicePick.ID, nil)
	require.NoError(t, err)

	err = svc.Accept(ctx, proposal.ID, "bob")
	assert.ErrorIs(t, err, domain.ErrConflict)

	decided, err := f.proposals.GetByID(ctx, proposal.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TradeProposalExpired, decided.Status)

	pick, err := f.picks.GetByID(ctx, alicePick.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", pick.Player)
}

func TestTradeAcceptRevalidatesPicks(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newTradeService(f, time.Hour)
	league, alicePick, bobPick := tradeLeague(t, f)

	proposal, err := svc.Propose(ctx, league.ID, "alice", "bob", alicePick.ID, &bobPick.ID)
	require.NoError(t, err)

	// The wanted pick resolves between proposal and acceptance.
	f.picks.mu.Lock()
	p := f.picks.picks[bobPick.ID]
	p.IsResolved = true
	f.picks.picks[bobPick.ID] = p
	f.picks.mu.Unlock()

	assert.ErrorIs(t, svc.Accept(ctx, proposal.ID, "bob"), domain.ErrConflict)

	pick, err := f.picks.GetByID(ctx, alicePick.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", pick.Player)
}
