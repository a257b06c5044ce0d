package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hamzaPixl/deenup/internal/match"
)

// CreateMatch inserts a new match row.
func (s *Store) CreateMatch(ctx context.Context, params match.CreateMatchParams) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO matches (
			match_id, player1_id, player2_id,
			player1_rating_before, player2_rating_before,
			match_type, theme_id, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())`,
		params.MatchID, params.Player1ID, params.Player2ID,
		params.Player1Rating, params.Player2Rating,
		params.MatchType, params.ThemeID, params.Status,
	)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	return nil
}

// LinkMatchQuestions inserts the ordered question linkage and returns the
// generated row ids.
func (s *Store) LinkMatchQuestions(ctx context.Context, matchID uuid.UUID, questionIDs []uuid.UUID) ([]uuid.UUID, error) {
	linkageIDs := make([]uuid.UUID, 0, len(questionIDs))
	for order, questionID := range questionIDs {
		var id uuid.UUID
		err := s.pool.QueryRow(ctx, `
			INSERT INTO match_questions (id, match_id, question_id, question_order)
			VALUES (gen_random_uuid(), $1, $2, $3)
			RETURNING id`,
			matchID, questionID, order,
		).Scan(&id)
		if err != nil {
			return nil, fmt.Errorf("link question %d: %w", order, err)
		}
		linkageIDs = append(linkageIDs, id)
	}
	return linkageIDs, nil
}

// SetMatchStarted transitions the match row to in_progress.
func (s *Store) SetMatchStarted(ctx context.Context, matchID uuid.UUID, startedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE matches
		SET status = $2, started_at = $3, updated_at = now()
		WHERE match_id = $1`,
		matchID, match.StatusInProgress, startedAt,
	)
	if err != nil {
		return fmt.Errorf("mark match started: %w", err)
	}
	return nil
}

// InsertAnswer records a single answer row.
func (s *Store) InsertAnswer(ctx context.Context, params match.InsertAnswerParams) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO answers (
			match_id, player_id, question_id, question_order,
			selected_index, is_correct, elapsed_ms, points_earned, answered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		params.MatchID, params.PlayerID, params.QuestionID, params.QuestionOrder,
		params.SelectedIndex, params.IsCorrect, params.ElapsedMs, params.PointsEarned,
		params.AnsweredAt,
	)
	if err != nil {
		return fmt.Errorf("insert answer: %w", err)
	}
	return nil
}

// FinishMatch stores the final scores, winner and post-match ratings.
func (s *Store) FinishMatch(ctx context.Context, params match.FinishMatchParams) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE matches
		SET status = $2,
		    winner_id = $3,
		    player1_score = $4,
		    player2_score = $5,
		    player1_rating_after = $6,
		    player2_rating_after = $7,
		    ended_at = $8,
		    updated_at = now()
		WHERE match_id = $1`,
		params.MatchID, match.StatusCompleted, params.WinnerID,
		params.Player1Score, params.Player2Score,
		params.Player1Rating, params.Player2Rating, params.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("finish match: %w", err)
	}
	return nil
}

// SetMatchAbandoned marks the match abandoned with the remaining player as
// winner.
func (s *Store) SetMatchAbandoned(ctx context.Context, matchID uuid.UUID, winnerID uuid.UUID, endedAt time.Time) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE matches
		SET status = $2, winner_id = $3, ended_at = $4, updated_at = now()
		WHERE match_id = $1`,
		matchID, match.StatusAbandoned, winnerID, endedAt,
	)
	if err != nil {
		return fmt.Errorf("mark match abandoned: %w", err)
	}
	return nil
}
