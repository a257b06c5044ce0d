package match

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Match types.
const (
	TypeRanked   = "ranked"
	TypeUnranked = "unranked"
)

// Session lifecycle states.
const (
	StatusAwaitingStart = "awaiting_start"
	StatusInProgress    = "in_progress"
	StatusCompleted     = "completed"
	StatusAbandoned     = "abandoned"
)

// Question difficulty tiers.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Typed failures surfaced to the transport layer.
var (
	ErrSessionNotFound        = errors.New("no active session for match")
	ErrNotParticipant         = errors.New("player is not a match participant")
	ErrAnswerOutOfOrder       = errors.New("no question at that order")
	ErrAnswerAlreadySubmitted = errors.New("answer already submitted for question")
	ErrInvalidTransition      = errors.New("invalid session state transition")
)

// Question is one quiz question with its server-side answer key. The correct
// index and explanation never leave the server before the reveal.
type Question struct {
	ID           uuid.UUID
	Text         string
	Options      []string
	CorrectIndex int
	Difficulty   string
	Explanation  string
}

// Participant is one of the two players in a session, with the rating they
// carried into the match.
type Participant struct {
	PlayerID     uuid.UUID
	Username     string
	RatingBefore int
}

// Answer is one recorded answer slot. SelectedIndex nil means the player let
// the question time out.
type Answer struct {
	PlayerID      uuid.UUID
	SelectedIndex *int
	IsCorrect     bool
	ElapsedMs     int64
	PointsEarned  int
	AnsweredAt    time.Time
}

// Session is one active match. Mutations go through the owning engine, which
// serializes them behind the session's lock.
type Session struct {
	MatchID      uuid.UUID
	Players      [2]Participant
	MatchType    string
	ThemeID      string
	Status       string
	Questions    []Question
	CurrentIndex int
	Scores       map[uuid.UUID]int
	StartedAt    time.Time

	// answers[i] holds at most one slot per player for question i.
	answers []map[uuid.UUID]*Answer
}

// Participant returns the participant record for a player id.
func (s *Session) Participant(playerID uuid.UUID) (Participant, bool) {
	for _, p := range s.Players {
		if p.PlayerID == playerID {
			return p, true
		}
	}
	return Participant{}, false
}

// Opponent returns the other participant.
func (s *Session) Opponent(playerID uuid.UUID) (Participant, bool) {
	for i, p := range s.Players {
		if p.PlayerID == playerID {
			return s.Players[1-i], true
		}
	}
	return Participant{}, false
}

// SubmitResult is the outcome of a single answer submission.
type SubmitResult struct {
	IsCorrect               bool
	PointsEarned            int
	CorrectIndex            int
	BothAnswered            bool
	OpponentAlreadyAnswered bool
}

// FinalizeResult carries everything the transport needs to settle a match.
type FinalizeResult struct {
	MatchID      uuid.UUID
	MatchType    string
	Players      [2]Participant
	WinnerID     *uuid.UUID // nil on draw
	Scores       map[uuid.UUID]int
	RatingDeltas map[uuid.UUID]int
	RatingsAfter map[uuid.UUID]int
}

// AbandonResult reports an abandoned match to the transport.
type AbandonResult struct {
	MatchID     uuid.UUID
	AbandonedBy uuid.UUID
	WinnerID    uuid.UUID
}
