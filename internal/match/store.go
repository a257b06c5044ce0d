package match

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotEnoughQuestions signals that the store could not assemble a full
// question set for the requested theme. Propagated unchanged to callers of
// CreateSession.
var ErrNotEnoughQuestions = errors.New("not enough approved questions for theme")

// CreateMatchParams describes a new match record.
type CreateMatchParams struct {
	MatchID       uuid.UUID
	Player1ID     uuid.UUID
	Player2ID     uuid.UUID
	Player1Rating int
	Player2Rating int
	MatchType     string
	ThemeID       string
	Status        string
}

// InsertAnswerParams describes one raw answer row.
type InsertAnswerParams struct {
	MatchID       uuid.UUID
	PlayerID      uuid.UUID
	QuestionID    uuid.UUID
	QuestionOrder int
	SelectedIndex *int
	IsCorrect     bool
	ElapsedMs     int64
	PointsEarned  int
	AnsweredAt    time.Time
}

// FinishMatchParams persists the primary effects of finalization.
type FinishMatchParams struct {
	MatchID       uuid.UUID
	WinnerID      *uuid.UUID
	Player1Score  int
	Player2Score  int
	Player1Rating int // post-match
	Player2Rating int // post-match
	EndedAt       time.Time
}

// PlayerProfile is the slice of a player's stored profile the match core
// needs: a display name and the current rating.
type PlayerProfile struct {
	PlayerID uuid.UUID
	Username string
	Rating   int
	Points   int
}

// ProfileStore reads player profiles at connection time.
type ProfileStore interface {
	GetPlayerProfile(ctx context.Context, playerID uuid.UUID) (PlayerProfile, error)
}

// Store is the persistence collaborator contract the session engine consumes.
// Implemented by internal/db/repository on Postgres.
type Store interface {
	// CreateMatch inserts a new match row in awaiting_start state.
	CreateMatch(ctx context.Context, params CreateMatchParams) error
	// LinkMatchQuestions inserts the ordered question-to-match linkage and
	// returns the generated linkage ids.
	LinkMatchQuestions(ctx context.Context, matchID uuid.UUID, questionIDs []uuid.UUID) ([]uuid.UUID, error)
	// SetMatchStarted transitions the match row to in_progress.
	SetMatchStarted(ctx context.Context, matchID uuid.UUID, startedAt time.Time) error
	// InsertAnswer records a single answer row.
	InsertAnswer(ctx context.Context, params InsertAnswerParams) error
	// FinishMatch stores final scores, winner and post-match ratings.
	FinishMatch(ctx context.Context, params FinishMatchParams) error
	// SetMatchAbandoned marks the match abandoned with the remaining player
	// as winner.
	SetMatchAbandoned(ctx context.Context, matchID uuid.UUID, winnerID uuid.UUID, endedAt time.Time) error
	// FetchQuestionSet returns a randomized, approved question set for a
	// theme with perDifficulty questions in each tier. Fails with
	// ErrNotEnoughQuestions when a tier is short.
	FetchQuestionSet(ctx context.Context, themeID string, perDifficulty int) ([]Question, error)
	// UpdatePlayerRating stores a player's post-match rating on the profile.
	UpdatePlayerRating(ctx context.Context, playerID uuid.UUID, newRating int) error
	// CreditPoints updates a player's point balance and appends a
	// transaction record.
	CreditPoints(ctx context.Context, playerID uuid.UUID, amount int, reason string) error
}
