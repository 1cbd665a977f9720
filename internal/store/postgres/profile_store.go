package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calebzhan/fflbot/internal/domain"
)

// ProfileStore implements domain.ProfileStore using PostgreSQL.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore creates a new ProfileStore backed by the given connection pool.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// Get retrieves a user profile. Unknown addresses get a fresh profile at the
// base rating rather than ErrNotFound, matching how ratings are lazily
// materialized on first match.
func (s *ProfileStore) Get(ctx context.Context, address string) (domain.UserProfile, error) {
	const query = `
		SELECT address, elo, wins, losses, updated_at
		FROM user_profiles WHERE address = $1`

	var p domain.UserProfile
	err := s.pool.QueryRow(ctx, query, address).Scan(
		&p.Address, &p.Elo, &p.Wins, &p.Losses, &p.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.UserProfile{Address: address, Elo: domain.BaseElo}, nil
		}
		return domain.UserProfile{}, fmt.Errorf("postgres: get profile %s: %w", address, err)
	}
	return p, nil
}

// ApplyMatchResult upserts both profiles and moves k rating points from loser
// to winner in one transaction.
func (s *ProfileStore) ApplyMatchResult(ctx context.Context, winner, loser string, k int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin match tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const upsertWinner = `
		INSERT INTO user_profiles (address, elo, wins, losses, updated_at)
		VALUES ($1, $2 + $3, 1, 0, NOW())
		ON CONFLICT (address) DO UPDATE SET
			elo        = user_profiles.elo + $3,
			wins       = user_profiles.wins + 1,
			updated_at = NOW()`

	if _, err := tx.Exec(ctx, upsertWinner, winner, domain.BaseElo, k); err != nil {
		return fmt.Errorf("postgres: apply match result for winner %s: %w", winner, err)
	}

	const upsertLoser = `
		INSERT INTO user_profiles (address, elo, wins, losses, updated_at)
		VALUES ($1, $2 - $3, 0, 1, NOW())
		ON CONFLICT (address) DO UPDATE SET
			elo        = user_profiles.elo - $3,
			losses     = user_profiles.losses + 1,
			updated_at = NOW()`

	if _, err := tx.Exec(ctx, upsertLoser, loser, domain.BaseElo, k); err != nil {
		return fmt.Errorf("postgres: apply match result for loser %s: %w", loser, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit match tx: %w", err)
	}
	return nil
}

// Leaderboard returns the top profiles by rating.
func (s *ProfileStore) Leaderboard(ctx context.Context, limit int) ([]domain.UserProfile, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT address, elo, wins, losses, updated_at
		FROM user_profiles ORDER BY elo DESC, wins DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: leaderboard: %w", err)
	}
	defer rows.Close()

	var profiles []domain.UserProfile
	for rows.Next() {
		var p domain.UserProfile
		if err := rows.Scan(&p.Address, &p.Elo, &p.Wins, &p.Losses, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: leaderboard rows: %w", err)
	}
	return profiles, nil
}
