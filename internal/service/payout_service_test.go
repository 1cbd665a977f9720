package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebzhan/fflbot/internal/domain"
)

func newPayoutService(f *fixture, ledger domain.Ledger) *PayoutService {
	return NewPayoutService(
		f.leagues, f.players, f.payouts, ledger,
		f.bus, f.audit, testLogger(),
	)
}

func completedLeague(f *fixture, buyIn float64) domain.League {
	return f.leagues.put(domain.League{
		Name:       "payout-test",
		Creator:    "alice",
		BuyIn:      buyIn,
		Currency:   "USDC",
		MaxPlayers: 4,
		Mode:       domain.LeagueModeStandard,
		Status:     domain.LeagueStatusCompleted,
	})
}

func payoutFor(payouts []domain.Payout, player string) domain.Payout {
	for _, p := range payouts {
		if p.Player == player {
			return p
		}
	}
	return domain.Payout{}
}

func TestDistributeProportionalWithDust(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ledger := &fakeLedger{}
	svc := newPayoutService(f, ledger)

	league := completedLeague(f, 10)
	f.addPlayer(t, league.ID, "alice")
	f.addPlayer(t, league.ID, "bob")
	f.setStats(league.ID, "alice", 2, 0)
	f.setStats(league.ID, "bob", 1, 0)

	payouts, err := svc.Distribute(ctx, league.ID)
	require.NoError(t, err)
	require.Len(t, payouts, 2)

	// Pool is 20. Shares round down to cents and the rounding dust goes to
	// the top scorer, so the amounts still sum to the pool exactly.
	alice := payoutFor(payouts, "alice")
	assert.InDelta(t, 13.34, alice.Amount, 1e-9)
	assert.InDelta(t, 2.0/3.0, alice.Share, 1e-9)
	assert.Equal(t, domain.PayoutStatusSettled, alice.Status)
	assert.NotEmpty(t, alice.TxRef)

	bob := payoutFor(payouts, "bob")
	assert.InDelta(t, 6.66, bob.Amount, 1e-9)
	assert.Equal(t, domain.PayoutStatusSettled, bob.Status)

	assert.Len(t, ledger.payouts, 2)
	assert.Contains(t, f.bus.eventTypes(), domain.EventPayoutSent)
}

func TestDistributeNegativePointsGetNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newPayoutService(f, &fakeLedger{})

	league := completedLeague(f, 10)
	f.addPlayer(t, league.ID, "alice")
	f.addPlayer(t, league.ID, "bob")
	f.addPlayer(t, league.ID, "carol")
	f.setStats(league.ID, "alice", 30, 0)
	f.setStats(league.ID, "bob", 20, 0)
	f.setStats(league.ID, "carol", -10, 0)

	payouts, err := svc.Distribute(ctx, league.ID)
	require.NoError(t, err)
	require.Len(t, payouts, 3)

	// Pool 30 splits over 50 positive points; carol's deficit counts as zero
	// rather than a debt.
	assert.InDelta(t, 18.0, payoutFor(payouts, "alice").Amount, 1e-9)
	assert.InDelta(t, 12.0, payoutFor(payouts, "bob").Amount, 1e-9)

	carol := payoutFor(payouts, "carol")
	assert.Zero(t, carol.Amount)
	assert.Zero(t, carol.Share)
	assert.Equal(t, int64(-10), carol.Points)
	// No ledger transfer happens for a zero amount.
	assert.Equal(t, domain.PayoutStatusRecorded, carol.Status)
	assert.Empty(t, carol.TxRef)
}

func TestDistributeIsOneShot(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newPayoutService(f, nil)

	league := completedLeague(f, 10)
	f.addPlayer(t, league.ID, "alice")
	f.addPlayer(t, league.ID, "bob")
	f.setStats(league.ID, "alice", 10, 0)
	f.setStats(league.ID, "bob", 10, 0)

	first, err := svc.Distribute(ctx, league.ID)
	require.NoError(t, err)
	require.Len(t, first, 2)
	// Without a ledger, rows are recorded but not settled.
	assert.Equal(t, domain.PayoutStatusRecorded, first[0].Status)

	second, err := svc.Distribute(ctx, league.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	assert.Len(t, second, 2)
}

func TestDistributeResumesAfterPartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newPayoutService(f, nil)

	league := completedLeague(f, 10)
	f.addPlayer(t, league.ID, "alice")
	f.addPlayer(t, league.ID, "bob")
	f.setStats(league.ID, "alice", 2, 0)
	f.setStats(league.ID, "bob", 1, 0)

	// The insert for bob fails after alice's record lands.
	f.payouts.createErr = map[string]error{"bob": errors.New("connection reset")}
	_, err := svc.Distribute(ctx, league.ID)
	require.Error(t, err)

	history, err := svc.History(ctx, league.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "alice", history[0].Player)

	// The retry pays only the participants still missing a record, keeping
	// the original amounts.
	f.payouts.createErr = nil
	payouts, err := svc.Distribute(ctx, league.ID)
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.InDelta(t, 13.34, payoutFor(payouts, "alice").Amount, 1e-9)
	assert.InDelta(t, 6.66, payoutFor(payouts, "bob").Amount, 1e-9)

	history, err = svc.History(ctx, league.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	// Only once everyone is recorded does a further call short-circuit.
	third, err := svc.Distribute(ctx, league.ID)
	assert.ErrorIs(t, err, domain.ErrAlreadySettled)
	assert.Len(t, third, 2)
}

func TestDistributeRequiresCompletedLeague(t *testing.T) {
	f := newFixture()
	svc := newPayoutService(f, nil)

	league := f.leagues.put(domain.League{
		Name: "open", Creator: "alice", BuyIn: 10,
		MaxPlayers: 2, Status: domain.LeagueStatusActive,
	})

	_, err := svc.Distribute(context.Background(), league.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDistributeNoPositivePoints(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	svc := newPayoutService(f, nil)

	league := completedLeague(f, 10)
	f.addPlayer(t, league.ID, "alice")
	f.addPlayer(t, league.ID, "bob")
	f.setStats(league.ID, "alice", -5, 0)
	f.setStats(league.ID, "bob", 0, 0)

	_, err := svc.Distribute(ctx, league.ID)
	assert.ErrorIs(t, err, domain.ErrNoPositivePoints)

	// Nothing was recorded, so the league is still distributable once points
	// are corrected.
	history, err := svc.History(ctx, league.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestDistributeRecordsLedgerFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	ledger := &fakeLedger{err: errors.New("rpc unavailable")}
	svc := newPayoutService(f, ledger)

	league := completedLeague(f, 10)
	f.addPlayer(t, league.ID, "alice")
	f.addPlayer(t, league.ID, "bob")
	f.setStats(league.ID, "alice", 10, 0)
	f.setStats(league.ID, "bob", 10, 0)

	// A ledger outage does not fail distribution; the rows carry the failure.
	payouts, err := svc.Distribute(ctx, league.ID)
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	for _, p := range payouts {
		assert.Equal(t, domain.PayoutStatusFailed, p.Status)
		assert.Empty(t, p.TxRef)
	}
}
