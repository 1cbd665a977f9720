package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calebzhan/fflbot/internal/domain"
)

type stubLister struct {
	ids []string
	err error
}

func (s *stubLister) ListOpenMarketIDs(ctx context.Context) ([]string, error) {
	return s.ids, s.err
}

type stubQuotes struct {
	quotes map[string]domain.MarketQuote
}

func (s *stubQuotes) GetQuote(ctx context.Context, marketID string) (domain.MarketQuote, error) {
	quote, ok := s.quotes[marketID]
	if !ok {
		return domain.MarketQuote{}, errors.New("quote unavailable")
	}
	return quote, nil
}

type settleCall struct {
	marketID string
	outcome  domain.Outcome
}

type stubSettler struct {
	calls []settleCall
	err   error
}

func (s *stubSettler) SettleMarket(ctx context.Context, marketID string, outcome domain.Outcome) (domain.SettlementReport, error) {
	s.calls = append(s.calls, settleCall{marketID, outcome})
	if s.err != nil {
		return domain.SettlementReport{}, s.err
	}
	return domain.SettlementReport{MarketID: marketID, Outcome: outcome, PicksResolved: 1}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func outcomePtr(o domain.Outcome) *domain.Outcome { return &o }

func TestPollerSettlesOnlyResolvedMarkets(t *testing.T) {
	lister := &stubLister{ids: []string{"m1", "m2", "m3", "m4"}}
	quotes := &stubQuotes{quotes: map[string]domain.MarketQuote{
		"m1": {MarketID: "m1", WinningSide: outcomePtr(domain.OutcomeYes)},
		"m2": {MarketID: "m2", Active: true}, // still trading
		"m3": {MarketID: "m3", WinningSide: outcomePtr(domain.OutcomeInvalid)},
		// m4 has no quote at all: skipped, not fatal.
	}}
	settler := &stubSettler{}

	poller := NewResolutionPoller(lister, quotes, settler, discardLogger())
	require.NoError(t, poller.Run(context.Background()))

	require.Len(t, settler.calls, 2)
	assert.Equal(t, settleCall{"m1", domain.OutcomeYes}, settler.calls[0])
	assert.Equal(t, settleCall{"m3", domain.OutcomeInvalid}, settler.calls[1])
}

func TestPollerContinuesPastSettlementFailure(t *testing.T) {
	lister := &stubLister{ids: []string{"m1", "m2"}}
	quotes := &stubQuotes{quotes: map[string]domain.MarketQuote{
		"m1": {MarketID: "m1", WinningSide: outcomePtr(domain.OutcomeNo)},
		"m2": {MarketID: "m2", WinningSide: outcomePtr(domain.OutcomeNo)},
	}}
	settler := &stubSettler{err: errors.New("db down")}

	poller := NewResolutionPoller(lister, quotes, settler, discardLogger())
	require.NoError(t, poller.Run(context.Background()))

	// Both markets were attempted despite the first failure.
	assert.Len(t, settler.calls, 2)
}

func TestPollerListFailureIsFatal(t *testing.T) {
	lister := &stubLister{err: errors.New("connection refused")}
	poller := NewResolutionPoller(lister, &stubQuotes{}, &stubSettler{}, discardLogger())

	assert.Error(t, poller.Run(context.Background()))
}

func TestPollerStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lister := &stubLister{ids: []string{"m1"}}
	settler := &stubSettler{}
	poller := NewResolutionPoller(lister, &stubQuotes{}, settler, discardLogger())

	assert.Error(t, poller.Run(ctx))
	assert.Empty(t, settler.calls)
}
