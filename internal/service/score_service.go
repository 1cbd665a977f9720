package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/calebzhan/fflbot/internal/domain"
	"github.com/calebzhan/fflbot/internal/scoring"
)

// ScoreService renders live leaderboards: settled points from the database
// plus mark-to-market deltas for open picks at current prices.
type ScoreService struct {
	leagues     domain.LeagueStore
	players     domain.PlayerStore
	picks       domain.PickStore
	prices      domain.PriceCache
	leaderboard domain.LeaderboardCache
	logger      *slog.Logger
}

// NewScoreService creates a ScoreService with all required dependencies.
func NewScoreService(
	leagues domain.LeagueStore,
	players domain.PlayerStore,
	picks domain.PickStore,
	prices domain.PriceCache,
	leaderboard domain.LeaderboardCache,
	logger *slog.Logger,
) *ScoreService {
	return &ScoreService{
		leagues:     leagues,
		players:     players,
		picks:       picks,
		prices:      prices,
		leaderboard: leaderboard,
		logger:      logger,
	}
}

// LeaderboardEntry is one row of a live leaderboard. Settled points are
// authoritative; Live is an advisory mark-to-market delta over open picks.
type LeaderboardEntry struct {
	Rank      int     `json:"rank"`
	Player    string  `json:"player"`
	Points    int64   `json:"points"`
	Streak    int     `json:"streak"`
	Live      float64 `json:"live"`
	Projected float64 `json:"projected"`
	OpenPicks int     `json:"open_picks"`
}

// Leaderboard is the rendered standings document cached per league.
type Leaderboard struct {
	LeagueID int64              `json:"league_id"`
	Entries  []LeaderboardEntry `json:"entries"`
}

// Live returns the live leaderboard for a league, serving from the cache when
// a fresh rendering exists.
func (s *ScoreService) Live(ctx context.Context, leagueID int64) (Leaderboard, error) {
	if s.leaderboard != nil {
		if data, err := s.leaderboard.Get(ctx, leagueID); err == nil {
			var lb Leaderboard
			if err := json.Unmarshal(data, &lb); err == nil {
				return lb, nil
			}
			// Corrupt cache entry: fall through and re-render.
		}
	}

	lb, err := s.render(ctx, leagueID)
	if err != nil {
		return Leaderboard{}, err
	}

	if s.leaderboard != nil {
		if data, err := json.Marshal(lb); err == nil {
			if err := s.leaderboard.Set(ctx, leagueID, data); err != nil {
				s.logger.WarnContext(ctx, "leaderboard cache set failed",
					slog.Int64("league_id", leagueID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	return lb, nil
}

// Invalidate drops the cached leaderboard for a league. Settlement calls this
// after points change.
func (s *ScoreService) Invalidate(ctx context.Context, leagueID int64) {
	if s.leaderboard == nil {
		return
	}
	if err := s.leaderboard.Invalidate(ctx, leagueID); err != nil {
		s.logger.WarnContext(ctx, "leaderboard invalidate failed",
			slog.Int64("league_id", leagueID),
			slog.String("error", err.Error()),
		)
	}
}

// Estimate previews the value of a prospective pick at the market's current
// YES price.
func (s *ScoreService) Estimate(ctx context.Context, marketID string, side domain.Side) (scoring.Estimate, error) {
	if !side.Valid() {
		return scoring.Estimate{}, fmt.Errorf("score_service: %w: side must be YES or NO", domain.ErrValidation)
	}
	yes, _, _, err := s.prices.GetPrice(ctx, marketID)
	if err != nil {
		return scoring.Estimate{}, fmt.Errorf("score_service: estimate %s: %w", marketID, err)
	}
	return scoring.EstimatePick(side, yes), nil
}

// render builds a leaderboard from scratch: base points per player plus live
// deltas over open picks priced from the cache. Open picks without a cached
// price contribute nothing to the live delta.
func (s *ScoreService) render(ctx context.Context, leagueID int64) (Leaderboard, error) {
	if _, err := s.leagues.GetByID(ctx, leagueID); err != nil {
		return Leaderboard{}, fmt.Errorf("score_service: leaderboard %d: %w", leagueID, err)
	}

	players, err := s.players.ListByLeague(ctx, leagueID)
	if err != nil {
		return Leaderboard{}, fmt.Errorf("score_service: leaderboard %d: %w", leagueID, err)
	}

	open, err := s.picks.ListOpenByLeague(ctx, leagueID, nil)
	if err != nil {
		return Leaderboard{}, fmt.Errorf("score_service: leaderboard %d: %w", leagueID, err)
	}

	marketIDs := make([]string, 0, len(open))
	for _, p := range open {
		marketIDs = append(marketIDs, p.MarketID)
	}
	yesPrices := map[string]float64{}
	if s.prices != nil && len(marketIDs) > 0 {
		if yesPrices, err = s.prices.GetPrices(ctx, marketIDs); err != nil {
			s.logger.WarnContext(ctx, "price lookup failed",
				slog.Int64("league_id", leagueID),
				slog.String("error", err.Error()),
			)
			yesPrices = map[string]float64{}
		}
	}

	live := make(map[string]float64, len(players))
	openCount := make(map[string]int, len(players))
	for _, p := range open {
		openCount[p.Player]++
		pNow, ok := yesPrices[p.MarketID]
		if !ok {
			continue
		}
		live[p.Player] += scoring.LiveScore(p.Prediction, p.SnapshotProb(), pNow)
	}

	entries := make([]LeaderboardEntry, 0, len(players))
	for _, p := range players {
		entries = append(entries, LeaderboardEntry{
			Player:    p.Address,
			Points:    p.Points,
			Streak:    p.Streak,
			Live:      live[p.Address],
			Projected: float64(p.Points) + live[p.Address],
			OpenPicks: openCount[p.Address],
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Projected != entries[j].Projected {
			return entries[i].Projected > entries[j].Projected
		}
		return entries[i].Player < entries[j].Player
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}

	return Leaderboard{LeagueID: leagueID, Entries: entries}, nil
}
