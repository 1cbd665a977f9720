package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/calebzhan/fflbot/internal/domain"
	"github.com/calebzhan/fflbot/internal/scoring"
)

// MatchService settles one-on-one leagues: it marks each player's picks to
// current market values as simulated positions, declares a winner on net
// P&L, and moves rating points between the two profiles.
type MatchService struct {
	leagues  domain.LeagueStore
	players  domain.PlayerStore
	picks    domain.PickStore
	markets  domain.MarketStore
	profiles domain.ProfileStore
	bus      domain.SignalBus
	audit    domain.AuditStore
	logger   *slog.Logger

	stakePerPick float64
	eloK         int
}

// NewMatchService creates a MatchService with all required dependencies.
func NewMatchService(
	leagues domain.LeagueStore,
	players domain.PlayerStore,
	picks domain.PickStore,
	markets domain.MarketStore,
	profiles domain.ProfileStore,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
	stakePerPick float64,
	eloK int,
) *MatchService {
	return &MatchService{
		leagues:      leagues,
		players:      players,
		picks:        picks,
		markets:      markets,
		profiles:     profiles,
		bus:          bus,
		audit:        audit,
		logger:       logger,
		stakePerPick: stakePerPick,
		eloK:         eloK,
	}
}

// MatchResult summarizes a settled one-on-one league.
type MatchResult struct {
	LeagueID int64              `json:"league_id"`
	Winner   string             `json:"winner,omitempty"`
	Loser    string             `json:"loser,omitempty"`
	Tie      bool               `json:"tie"`
	PnL      map[string]float64 `json:"pnl"`
	EloDelta int                `json:"elo_delta"`
}

// Settle closes a one-on-one league, valuing each player's picks at current
// market prices (or the terminal payoff, once resolved). The league's
// COMPLETED transition is the one-shot gate: a second settle attempt fails
// with ErrAlreadySettled before any rating is touched, so ratings move
// exactly once. A tie completes the league without moving ratings.
func (s *MatchService) Settle(ctx context.Context, leagueID int64) (MatchResult, error) {
	league, err := s.leagues.GetByID(ctx, leagueID)
	if err != nil {
		return MatchResult{}, fmt.Errorf("match_service: settle %d: %w", leagueID, err)
	}
	if league.Mode != domain.LeagueModeOneOnOne {
		return MatchResult{}, fmt.Errorf("match_service: settle %d: %w: league is not one-on-one",
			leagueID, domain.ErrValidation)
	}

	participants, err := s.players.ListByLeague(ctx, leagueID)
	if err != nil {
		return MatchResult{}, fmt.Errorf("match_service: settle %d: %w", leagueID, err)
	}
	if len(participants) != 2 {
		return MatchResult{}, fmt.Errorf("match_service: settle %d: %w: expected 2 players, have %d",
			leagueID, domain.ErrConflict, len(participants))
	}

	picks, err := s.picks.ListByLeague(ctx, leagueID, nil)
	if err != nil {
		return MatchResult{}, fmt.Errorf("match_service: settle %d: %w", leagueID, err)
	}

	pnl := map[string]float64{
		participants[0].Address: 0,
		participants[1].Address: 0,
	}
	for _, pick := range picks {
		value, err := s.positionPnL(ctx, pick)
		if err != nil {
			return MatchResult{}, fmt.Errorf("match_service: settle %d: pick %d: %w", leagueID, pick.ID, err)
		}
		pnl[pick.Player] += value
	}

	a, b := participants[0].Address, participants[1].Address
	result := MatchResult{LeagueID: leagueID, PnL: pnl}
	switch {
	case pnl[a] > pnl[b]:
		result.Winner, result.Loser = a, b
	case pnl[b] > pnl[a]:
		result.Winner, result.Loser = b, a
	default:
		result.Tie = true
	}

	// One-shot gate before any rating moves.
	if err := s.leagues.Complete(ctx, leagueID); err != nil {
		if errors.Is(err, domain.ErrAlreadySettled) {
			return MatchResult{}, fmt.Errorf("match_service: settle %d: %w", leagueID, err)
		}
		return MatchResult{}, fmt.Errorf("match_service: settle %d: %w", leagueID, err)
	}

	if !result.Tie {
		if err := s.profiles.ApplyMatchResult(ctx, result.Winner, result.Loser, s.eloK); err != nil {
			// The league is already COMPLETED; report the rating failure
			// loudly rather than retrying into a double-apply.
			return result, fmt.Errorf("match_service: settle %d: apply ratings: %w", leagueID, err)
		}
		result.EloDelta = s.eloK
	}

	if err := s.audit.Log(ctx, "match.settled", map[string]any{
		"league_id": leagueID,
		"winner":    result.Winner,
		"loser":     result.Loser,
		"tie":       result.Tie,
		"pnl":       pnl,
	}); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", slog.String("error", err.Error()))
	}

	publishEvent(ctx, s.bus, s.logger, domain.Event{
		Type:     domain.EventMatchSettled,
		LeagueID: leagueID,
		Detail: map[string]any{
			"winner": result.Winner,
			"loser":  result.Loser,
			"tie":    result.Tie,
		},
	})

	s.logger.InfoContext(ctx, "match settled",
		slog.Int64("league_id", leagueID),
		slog.String("winner", result.Winner),
		slog.Bool("tie", result.Tie),
	)

	return result, nil
}

// Leaderboard returns the global rating leaderboard.
func (s *MatchService) Leaderboard(ctx context.Context, limit int) ([]domain.UserProfile, error) {
	profiles, err := s.profiles.Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("match_service: leaderboard: %w", err)
	}
	return profiles, nil
}

// Profile returns one player's cross-league profile.
func (s *MatchService) Profile(ctx context.Context, address string) (domain.UserProfile, error) {
	profile, err := s.profiles.Get(ctx, address)
	if err != nil {
		return domain.UserProfile{}, fmt.Errorf("match_service: profile %s: %w", address, err)
	}
	return profile, nil
}

// positionPnL values one pick as a fixed-stake position entered at the
// drafted side's snapshot price: stake/entry*current - stake. An open pick is
// marked to the market's current price for that side; once resolved, a
// correct pick pays out at 1, a wrong one at 0, and a voided market refunds
// the stake (zero P&L).
func (s *MatchService) positionPnL(ctx context.Context, pick domain.DraftPick) (float64, error) {
	market, err := s.markets.GetByID(ctx, pick.MarketID)
	if err != nil {
		return 0, err
	}

	entry := scoring.DraftTimeProb(pick.Prediction, pick.SnapshotProb())
	if entry <= 0 {
		// A free position cannot be priced; it contributes nothing.
		return 0, nil
	}

	var current float64
	if market.Resolution != nil {
		outcome := *market.Resolution
		if outcome == domain.OutcomeInvalid {
			return 0, nil
		}
		if (pick.Prediction == domain.SideYes && outcome == domain.OutcomeYes) ||
			(pick.Prediction == domain.SideNo && outcome == domain.OutcomeNo) {
			current = 1.0
		}
	} else {
		// An unsynced market marks the position at its entry price, flat.
		current = market.PriceForSide(pick.Prediction, entry)
	}

	return s.stakePerPick/entry*current - s.stakePerPick, nil
}
