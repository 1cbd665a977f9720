package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebzhan/fflbot/internal/domain"
)

// PlayerStore implements domain.PlayerStore using PostgreSQL.
type PlayerStore struct {
	pool *pgxpool.Pool
}

// NewPlayerStore creates a new PlayerStore backed by the given connection pool.
func NewPlayerStore(pool *pgxpool.Pool) *PlayerStore {
	return &PlayerStore{pool: pool}
}

// Create inserts a participant row for a league. Joining the same league twice
// returns ErrAlreadyExists.
func (s *PlayerStore) Create(ctx context.Context, p domain.PlayerStats) (domain.PlayerStats, error) {
	const query = `
		INSERT INTO player_stats (league_id, address, points, streak)
		VALUES ($1, $2, $3, $4)
		RETURNING id, league_id, address, points, streak, joined_at`

	var created domain.PlayerStats
	err := s.pool.QueryRow(ctx, query, p.LeagueID, p.Address, p.Points, p.Streak).Scan(
		&created.ID, &created.LeagueID, &created.Address,
		&created.Points, &created.Streak, &created.JoinedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.PlayerStats{}, domain.ErrAlreadyExists
		}
		return domain.PlayerStats{}, fmt.Errorf("postgres: create player %s in league %d: %w", p.Address, p.LeagueID, err)
	}
	return created, nil
}

// Get retrieves one participant's stats within a league.
func (s *PlayerStore) Get(ctx context.Context, leagueID int64, address string) (domain.PlayerStats, error) {
	const query = `
		SELECT id, league_id, address, points, streak, joined_at
		FROM player_stats WHERE league_id = $1 AND address = $2`

	var p domain.PlayerStats
	err := s.pool.QueryRow(ctx, query, leagueID, address).Scan(
		&p.ID, &p.LeagueID, &p.Address, &p.Points, &p.Streak, &p.JoinedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.PlayerStats{}, domain.ErrNotFound
		}
		return domain.PlayerStats{}, fmt.Errorf("postgres: get player %s in league %d: %w", address, leagueID, err)
	}
	return p, nil
}

// ListByLeague returns all participants of a league ordered by points
// descending, with dense ranks assigned.
func (s *PlayerStore) ListByLeague(ctx context.Context, leagueID int64) ([]domain.PlayerStats, error) {
	const query = `
		SELECT id, league_id, address, points, streak, joined_at,
			DENSE_RANK() OVER (ORDER BY points DESC) AS rank
		FROM player_stats WHERE league_id = $1
		ORDER BY points DESC, joined_at ASC`

	rows, err := s.pool.Query(ctx, query, leagueID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list players for league %d: %w", leagueID, err)
	}
	defer rows.Close()

	var players []domain.PlayerStats
	for rows.Next() {
		var p domain.PlayerStats
		if err := rows.Scan(&p.ID, &p.LeagueID, &p.Address, &p.Points, &p.Streak, &p.JoinedAt, &p.Rank); err != nil {
			return nil, fmt.Errorf("postgres: scan player: %w", err)
		}
		players = append(players, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list players rows: %w", err)
	}
	return players, nil
}

// Count returns the number of participants in a league.
func (s *PlayerStore) Count(ctx context.Context, leagueID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM player_stats WHERE league_id = $1`, leagueID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count players for league %d: %w", leagueID, err)
	}
	return count, nil
}

// AddPoints applies a point delta outside pick settlement, used for session
// bonuses.
func (s *PlayerStore) AddPoints(ctx context.Context, leagueID int64, address string, delta int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE player_stats SET points = points + $3 WHERE league_id = $1 AND address = $2`,
		leagueID, address, delta)
	if err != nil {
		return fmt.Errorf("postgres: add points for %s in league %d: %w", address, leagueID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
