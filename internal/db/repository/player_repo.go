package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hamzaPixl/deenup/internal/match"
)

// ErrPlayerNotFound signals that no profile exists for the given id.
var ErrPlayerNotFound = errors.New("player not found")

// GetPlayerProfile loads the profile slice the match core needs at
// connection time.
func (s *Store) GetPlayerProfile(ctx context.Context, playerID uuid.UUID) (match.PlayerProfile, error) {
	var profile match.PlayerProfile
	err := s.pool.QueryRow(ctx, `
		SELECT player_id, username, rating, points
		FROM players
		WHERE player_id = $1`,
		playerID,
	).Scan(&profile.PlayerID, &profile.Username, &profile.Rating, &profile.Points)
	if errors.Is(err, pgx.ErrNoRows) {
		return match.PlayerProfile{}, ErrPlayerNotFound
	}
	if err != nil {
		return match.PlayerProfile{}, fmt.Errorf("get player profile: %w", err)
	}
	return profile, nil
}

// UpdatePlayerRating stores a player's post-match rating.
func (s *Store) UpdatePlayerRating(ctx context.Context, playerID uuid.UUID, newRating int) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE players
		SET rating = $2, updated_at = now()
		WHERE player_id = $1`,
		playerID, newRating,
	)
	if err != nil {
		return fmt.Errorf("update player rating: %w", err)
	}
	return nil
}

// CreditPoints adds to a player's point balance and appends a transaction
// record in the same transaction.
func (s *Store) CreditPoints(ctx context.Context, playerID uuid.UUID, amount int, reason string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin credit points: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE players
		SET points = points + $2, updated_at = now()
		WHERE player_id = $1`,
		playerID, amount,
	); err != nil {
		return fmt.Errorf("update point balance: %w", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO point_transactions (player_id, amount, reason, created_at)
		VALUES ($1, $2, $3, now())`,
		playerID, amount, reason,
	); err != nil {
		return fmt.Errorf("insert point transaction: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit credit points: %w", err)
	}
	return nil
}
