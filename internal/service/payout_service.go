package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/calebzhan/fflbot/internal/domain"
)

// PayoutService distributes a completed league's prize pool proportionally to
// positive final points. Database records are authoritative; the external
// ledger transfer is best-effort and its failure is recorded per payout, not
// propagated.
type PayoutService struct {
	leagues domain.LeagueStore
	players domain.PlayerStore
	payouts domain.PayoutStore
	ledger  domain.Ledger // nil when ledger integration is disabled
	bus     domain.SignalBus
	audit   domain.AuditStore
	logger  *slog.Logger
}

// NewPayoutService creates a PayoutService. ledger may be nil.
func NewPayoutService(
	leagues domain.LeagueStore,
	players domain.PlayerStore,
	payouts domain.PayoutStore,
	ledger domain.Ledger,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *PayoutService {
	return &PayoutService{
		leagues: leagues,
		players: players,
		payouts: payouts,
		ledger:  ledger,
		bus:     bus,
		audit:   audit,
		logger:  logger,
	}
}

// Distribute computes and records every participant's share of the prize
// pool. It settles each participant at most once: a retry after a partial
// failure skips the participants who already have a record and resumes with
// the rest, and only once every participant is recorded does a further call
// return ErrAlreadySettled. Negative point totals count as zero, so a player
// who finished underwater gets a zero-amount record rather than owing money.
func (s *PayoutService) Distribute(ctx context.Context, leagueID int64) ([]domain.Payout, error) {
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("payout_service: distribute %d: %w", leagueID, err)
	}
	if league.Status != domain.LeagueStatusCompleted {
		return nil, fmt.Errorf("payout_service: distribute %d: %w: league is %s",
			leagueID, domain.ErrConflict, league.Status)
	}

	participants, err := s.players.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("payout_service: distribute %d: %w", leagueID, err)
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("payout_service: distribute %d: %w: no participants", leagueID, domain.ErrConflict)
	}

	existing, err := s.payouts.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("payout_service: distribute %d: %w", leagueID, err)
	}
	recorded := make(map[string]domain.Payout, len(existing))
	for _, p := range existing {
		recorded[p.Player] = p
	}
	missing := 0
	for _, p := range participants {
		if _, ok := recorded[p.Address]; !ok {
			missing++
		}
	}
	if len(existing) > 0 && missing == 0 {
		return existing, fmt.Errorf("payout_service: distribute %d: %w", leagueID, domain.ErrAlreadySettled)
	}

	var totalPositive int64
	for _, p := range participants {
		if p.Points > 0 {
			totalPositive += p.Points
		}
	}
	if totalPositive == 0 {
		return nil, fmt.Errorf("payout_service: distribute %d: %w", leagueID, domain.ErrNoPositivePoints)
	}

	pool := decimal.NewFromFloat(league.BuyIn).Mul(decimal.NewFromInt(int64(len(participants))))
	totalDec := decimal.NewFromInt(totalPositive)

	// Amounts round down to cents; the dust left by rounding goes to the top
	// scorer so the amounts sum exactly to the pool.
	distributed := decimal.Zero
	amounts := make([]decimal.Decimal, len(participants))
	topIdx := 0
	for i, p := range participants {
		if p.Points > participants[topIdx].Points {
			topIdx = i
		}
		if p.Points <= 0 {
			continue
		}
		amounts[i] = pool.Mul(decimal.NewFromInt(p.Points)).Div(totalDec).RoundDown(2)
		distributed = distributed.Add(amounts[i])
	}
	if dust := pool.Sub(distributed); dust.IsPositive() {
		amounts[topIdx] = amounts[topIdx].Add(dust)
	}

	results := make([]domain.Payout, 0, len(participants))
	for i, p := range participants {
		// On a resume pass, participants recorded by an earlier attempt are
		// returned as-is rather than paid again.
		if done, ok := recorded[p.Address]; ok {
			results = append(results, done)
			continue
		}

		positive := p.Points
		if positive < 0 {
			positive = 0
		}
		share := float64(positive) / float64(totalPositive)
		amount, _ := amounts[i].Float64()

		payout := domain.Payout{
			ID:       uuid.New().String(),
			LeagueID: leagueID,
			Player:   p.Address,
			Points:   p.Points,
			Share:    share,
			Amount:   amount,
			Currency: league.Currency,
			Status:   domain.PayoutStatusRecorded,
		}

		if s.ledger != nil && amount > 0 {
			receipt, err := s.ledger.Payout(ctx, domain.PayoutIntent{
				LeagueID: leagueID,
				Player:   p.Address,
				Amount:   amount,
				Currency: league.Currency,
			})
			if err != nil {
				payout.Status = domain.PayoutStatusFailed
				s.logger.WarnContext(ctx, "ledger payout failed",
					slog.Int64("league_id", leagueID),
					slog.String("player", p.Address),
					slog.String("error", err.Error()),
				)
			} else {
				payout.Status = domain.PayoutStatusSettled
				payout.TxRef = receipt.TxRef
			}
		}

		if err := s.payouts.Create(ctx, payout); err != nil {
			return results, fmt.Errorf("payout_service: distribute %d: record payout for %s: %w",
				leagueID, p.Address, err)
		}
		results = append(results, payout)
	}

	if err := s.audit.Log(ctx, "payout.distributed", map[string]any{
		"league_id": leagueID,
		"pool":      pool.String(),
		"payouts":   len(results),
	}); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}

	publishEvent(ctx, s.bus, s.logger, domain.Event{
		Type:     domain.EventPayoutSent,
		LeagueID: leagueID,
		Detail:   map[string]any{"pool": pool.String(), "payouts": len(results)},
	})

	s.logger.InfoContext(ctx, "payouts distributed",
		slog.Int64("league_id", leagueID),
		slog.String("pool", pool.String()),
		slog.Int("payouts", len(results)),
	)

	return results, nil
}

// History returns the payout records of a league.
func (s *PayoutService) History(ctx context.Context, leagueID int64) ([]domain.Payout, error) {
	payouts, err := s.payouts.ListByLeague(ctx, leagueID)
	if err != nil {
		return nil, fmt.Errorf("payout_service: history %d: %w", leagueID, err)
	}
	return payouts, nil
}
