package domain

import "context"

// Ledger is the external settlement ledger. Every call is best-effort from
// the caller's perspective: a failure is recorded, never a reason to roll
// back database state.
type Ledger interface {
	// Payout attempts an on-chain transfer for a payout intent.
	Payout(ctx context.Context, intent PayoutIntent) (LedgerReceipt, error)
	// ConfirmStake records a participant's buy-in for a league.
	ConfirmStake(ctx context.Context, leagueID int64, player string, amount float64) (LedgerReceipt, error)
}

// MarketDataProvider supplies market identity, prices, and terminal outcomes.
// The core treats its answers as ground truth.
type MarketDataProvider interface {
	GetQuote(ctx context.Context, marketID string) (MarketQuote, error)
	ListMarkets(ctx context.Context, limit, offset int) ([]Market, error)
}
