package match

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hamzaPixl/deenup/internal/match/rating"
	"github.com/hamzaPixl/deenup/internal/metrics"
)

// Config holds gameplay constants for the session engine.
type Config struct {
	QuestionsPerDifficulty int           // default 5 (15-question match)
	QuestionTimeLimit      time.Duration // default 15s
	BasePoints             map[string]int
	FastAnswerThreshold    float64 // fraction of the limit, default 0.25
	FastAnswerBonus        int
	WinnerReward           int
}

// DefaultConfig returns production gameplay defaults.
func DefaultConfig() Config {
	return Config{
		QuestionsPerDifficulty: 5,
		QuestionTimeLimit:      15 * time.Second,
		BasePoints: map[string]int{
			DifficultyEasy:   100,
			DifficultyMedium: 150,
			DifficultyHard:   200,
		},
		FastAnswerThreshold: 0.25,
		FastAnswerBonus:     10,
		WinnerReward:        50,
	}
}

// Engine owns one in-memory state machine per active match. The engine map is
// guarded by its own mutex; each session carries a dedicated lock so two
// matches never contend.
type Engine struct {
	store  Store
	calc   *rating.Calculator
	config Config
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	byPlayer map[uuid.UUID]uuid.UUID // player_id -> active match_id
	locks    map[uuid.UUID]*sync.Mutex
}

// NewEngine creates a session engine.
func NewEngine(store Store, calc *rating.Calculator, config Config, logger zerolog.Logger) *Engine {
	if config.QuestionsPerDifficulty <= 0 {
		config.QuestionsPerDifficulty = 5
	}
	if config.QuestionTimeLimit <= 0 {
		config.QuestionTimeLimit = 15 * time.Second
	}
	if len(config.BasePoints) == 0 {
		config.BasePoints = DefaultConfig().BasePoints
	}
	return &Engine{
		store:    store,
		calc:     calc,
		config:   config,
		logger:   logger,
		sessions: make(map[uuid.UUID]*Session),
		byPlayer: make(map[uuid.UUID]uuid.UUID),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// QuestionTimeLimit exposes the per-question limit for transport payloads.
func (e *Engine) QuestionTimeLimit() time.Duration {
	return e.config.QuestionTimeLimit
}

// CreateSession creates the match record, fetches the themed question set and
// registers the in-memory session in awaiting_start state. Store failures
// propagate and leave no session behind.
func (e *Engine) CreateSession(ctx context.Context, player1, player2 Participant, matchType, themeID string) (*Session, error) {
	matchID := uuid.New()

	if err := e.store.CreateMatch(ctx, CreateMatchParams{
		MatchID:       matchID,
		Player1ID:     player1.PlayerID,
		Player2ID:     player2.PlayerID,
		Player1Rating: player1.RatingBefore,
		Player2Rating: player2.RatingBefore,
		MatchType:     matchType,
		ThemeID:       themeID,
		Status:        StatusAwaitingStart,
	}); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	questions, err := e.store.FetchQuestionSet(ctx, themeID, e.config.QuestionsPerDifficulty)
	if err != nil {
		return nil, fmt.Errorf("fetch questions: %w", err)
	}

	questionIDs := make([]uuid.UUID, len(questions))
	for i, q := range questions {
		questionIDs[i] = q.ID
	}
	if _, err := e.store.LinkMatchQuestions(ctx, matchID, questionIDs); err != nil {
		return nil, fmt.Errorf("link questions: %w", err)
	}

	session := &Session{
		MatchID:   matchID,
		Players:   [2]Participant{player1, player2},
		MatchType: matchType,
		ThemeID:   themeID,
		Status:    StatusAwaitingStart,
		Questions: questions,
		Scores: map[uuid.UUID]int{
			player1.PlayerID: 0,
			player2.PlayerID: 0,
		},
		answers: make([]map[uuid.UUID]*Answer, len(questions)),
	}
	for i := range session.answers {
		session.answers[i] = make(map[uuid.UUID]*Answer, 2)
	}

	e.mu.Lock()
	e.sessions[matchID] = session
	e.byPlayer[player1.PlayerID] = matchID
	e.byPlayer[player2.PlayerID] = matchID
	e.locks[matchID] = &sync.Mutex{}
	e.mu.Unlock()

	metrics.MatchesStarted.Inc()
	e.logger.Info().
		Str("match_id", matchID.String()).
		Str("player1", player1.PlayerID.String()).
		Str("player2", player2.PlayerID.String()).
		Str("match_type", matchType).
		Str("theme_id", themeID).
		Msg("session created")

	return session, nil
}

// StartSession transitions the session to in_progress and returns the first
// question. The status write to the store is best-effort; the in-memory match
// proceeds regardless.
func (e *Engine) StartSession(ctx context.Context, matchID uuid.UUID) (*Question, error) {
	session, lock, ok := e.lookup(matchID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if session.Status != StatusAwaitingStart {
		return nil, ErrInvalidTransition
	}
	session.Status = StatusInProgress
	session.StartedAt = time.Now()
	session.CurrentIndex = 0

	if err := e.store.SetMatchStarted(ctx, matchID, session.StartedAt); err != nil {
		e.logger.Warn().Err(err).Str("match_id", matchID.String()).Msg("failed to persist match start")
	}

	q := session.Questions[0]
	return &q, nil
}

// SubmitAnswer validates and scores one answer. Each player occupies at most
// one answer slot per question; a second submission fails without touching
// the recorded answer. The raw answer row and any fast-answer bonus are
// written without blocking the response.
func (e *Engine) SubmitAnswer(ctx context.Context, matchID, playerID uuid.UUID, questionOrder int, selectedIndex *int, elapsedMs int64) (SubmitResult, error) {
	session, lock, ok := e.lookup(matchID)
	if !ok {
		return SubmitResult{}, ErrSessionNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if session.Status != StatusInProgress {
		return SubmitResult{}, ErrSessionNotFound
	}
	if questionOrder < 0 || questionOrder >= len(session.Questions) {
		return SubmitResult{}, ErrAnswerOutOfOrder
	}
	opponent, ok := session.Opponent(playerID)
	if !ok {
		return SubmitResult{}, ErrNotParticipant
	}

	slots := session.answers[questionOrder]
	if _, dup := slots[playerID]; dup {
		return SubmitResult{}, ErrAnswerAlreadySubmitted
	}

	question := session.Questions[questionOrder]
	limitMs := e.config.QuestionTimeLimit.Milliseconds()

	isCorrect := selectedIndex != nil && *selectedIndex == question.CorrectIndex
	points := 0
	if isCorrect {
		remaining := limitMs - elapsedMs
		if remaining < 0 {
			remaining = 0
		}
		if remaining > limitMs {
			remaining = limitMs
		}
		points = int(math.Round(float64(e.config.BasePoints[question.Difficulty]) * float64(remaining) / float64(limitMs)))
	}

	opponentAnswered := slots[opponent.PlayerID] != nil
	answer := &Answer{
		PlayerID:      playerID,
		SelectedIndex: selectedIndex,
		IsCorrect:     isCorrect,
		ElapsedMs:     elapsedMs,
		PointsEarned:  points,
		AnsweredAt:    time.Now(),
	}
	slots[playerID] = answer
	session.Scores[playerID] += points

	metrics.AnswersSubmitted.WithLabelValues(strconv.FormatBool(isCorrect)).Inc()

	// Secondary writes: never delay or fail the accepted answer.
	go e.persistAnswer(matchID, question.ID, questionOrder, *answer)
	if isCorrect && float64(elapsedMs) <= e.config.FastAnswerThreshold*float64(limitMs) {
		go e.creditPoints(playerID, e.config.FastAnswerBonus, "fast_answer")
	}

	e.logger.Info().
		Str("match_id", matchID.String()).
		Str("player_id", playerID.String()).
		Int("question_order", questionOrder).
		Bool("correct", isCorrect).
		Int("points", points).
		Msg("answer accepted")

	return SubmitResult{
		IsCorrect:               isCorrect,
		PointsEarned:            points,
		CorrectIndex:            question.CorrectIndex,
		BothAnswered:            opponentAnswered,
		OpponentAlreadyAnswered: opponentAnswered,
	}, nil
}

// AdvanceQuestion moves the session to the next question. Returns false once
// the index passes the last question, signaling completion to the caller.
func (e *Engine) AdvanceQuestion(matchID uuid.UUID) (*Question, bool) {
	session, lock, ok := e.lookup(matchID)
	if !ok {
		return nil, false
	}

	lock.Lock()
	defer lock.Unlock()

	if session.Status != StatusInProgress {
		return nil, false
	}
	session.CurrentIndex++
	if session.CurrentIndex >= len(session.Questions) {
		return nil, false
	}
	q := session.Questions[session.CurrentIndex]
	return &q, true
}

// FinalizeMatch settles the session: winner by accumulated score, rating
// deltas with player1 as the first party, primary persistence, best-effort
// winner reward, and removal from memory.
func (e *Engine) FinalizeMatch(ctx context.Context, matchID uuid.UUID) (*FinalizeResult, error) {
	session, lock, ok := e.lookup(matchID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	if session.Status != StatusInProgress {
		return nil, ErrInvalidTransition
	}

	p1, p2 := session.Players[0], session.Players[1]
	score1, score2 := session.Scores[p1.PlayerID], session.Scores[p2.PlayerID]

	outcome := rating.OutcomeDraw
	var winnerID *uuid.UUID
	switch {
	case score1 > score2:
		outcome = rating.OutcomeWin
		id := p1.PlayerID
		winnerID = &id
	case score2 > score1:
		outcome = rating.OutcomeLoss
		id := p2.PlayerID
		winnerID = &id
	}

	settled := e.calc.Apply(p1.RatingBefore, p2.RatingBefore, outcome)

	if err := e.store.FinishMatch(ctx, FinishMatchParams{
		MatchID:       matchID,
		WinnerID:      winnerID,
		Player1Score:  score1,
		Player2Score:  score2,
		Player1Rating: settled.RatingFirst,
		Player2Rating: settled.RatingSecond,
		EndedAt:       time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("finish match: %w", err)
	}

	session.Status = StatusCompleted
	e.remove(matchID, p1.PlayerID, p2.PlayerID)
	metrics.MatchesCompleted.Inc()

	if session.MatchType == TypeRanked {
		if err := e.store.UpdatePlayerRating(ctx, p1.PlayerID, settled.RatingFirst); err != nil {
			e.logger.Warn().Err(err).Str("player_id", p1.PlayerID.String()).Msg("failed to persist rating")
		}
		if err := e.store.UpdatePlayerRating(ctx, p2.PlayerID, settled.RatingSecond); err != nil {
			e.logger.Warn().Err(err).Str("player_id", p2.PlayerID.String()).Msg("failed to persist rating")
		}
	}
	if winnerID != nil && e.config.WinnerReward > 0 {
		go e.creditPoints(*winnerID, e.config.WinnerReward, "match_win")
	}

	e.logger.Info().
		Str("match_id", matchID.String()).
		Int("score1", score1).
		Int("score2", score2).
		Msg("match finalized")

	return &FinalizeResult{
		MatchID:   matchID,
		MatchType: session.MatchType,
		Players:   session.Players,
		WinnerID:  winnerID,
		Scores: map[uuid.UUID]int{
			p1.PlayerID: score1,
			p2.PlayerID: score2,
		},
		RatingDeltas: map[uuid.UUID]int{
			p1.PlayerID: settled.DeltaFirst,
			p2.PlayerID: settled.DeltaSecond,
		},
		RatingsAfter: map[uuid.UUID]int{
			p1.PlayerID: settled.RatingFirst,
			p2.PlayerID: settled.RatingSecond,
		},
	}, nil
}

// AbandonMatch ends a session early, declaring the other player the winner.
// No-op if the session is absent. The status write is best-effort; the
// session leaves memory either way.
func (e *Engine) AbandonMatch(ctx context.Context, matchID, abandoningPlayerID uuid.UUID) (*AbandonResult, bool) {
	session, lock, ok := e.lookup(matchID)
	if !ok {
		return nil, false
	}

	lock.Lock()
	defer lock.Unlock()

	if session.Status == StatusCompleted || session.Status == StatusAbandoned {
		return nil, false
	}
	winner, ok := session.Opponent(abandoningPlayerID)
	if !ok {
		return nil, false
	}

	session.Status = StatusAbandoned
	e.remove(matchID, session.Players[0].PlayerID, session.Players[1].PlayerID)
	metrics.MatchesAbandoned.Inc()

	if err := e.store.SetMatchAbandoned(ctx, matchID, winner.PlayerID, time.Now()); err != nil {
		e.logger.Warn().Err(err).Str("match_id", matchID.String()).Msg("failed to persist abandon")
	}

	e.logger.Info().
		Str("match_id", matchID.String()).
		Str("abandoned_by", abandoningPlayerID.String()).
		Msg("match abandoned")

	return &AbandonResult{
		MatchID:     matchID,
		AbandonedBy: abandoningPlayerID,
		WinnerID:    winner.PlayerID,
	}, true
}

// QuestionAnswers returns copies of the recorded answer slots for one
// question, for the reveal broadcast.
func (e *Engine) QuestionAnswers(matchID uuid.UUID, questionOrder int) ([]Answer, bool) {
	session, lock, ok := e.lookup(matchID)
	if !ok {
		return nil, false
	}

	lock.Lock()
	defer lock.Unlock()

	if questionOrder < 0 || questionOrder >= len(session.answers) {
		return nil, false
	}
	var answers []Answer
	for _, p := range session.Players {
		if a := session.answers[questionOrder][p.PlayerID]; a != nil {
			answers = append(answers, *a)
		}
	}
	return answers, true
}

// Scores returns a copy of the running scores.
func (e *Engine) Scores(matchID uuid.UUID) (map[uuid.UUID]int, bool) {
	session, lock, ok := e.lookup(matchID)
	if !ok {
		return nil, false
	}

	lock.Lock()
	defer lock.Unlock()

	scores := make(map[uuid.UUID]int, len(session.Scores))
	for id, s := range session.Scores {
		scores[id] = s
	}
	return scores, true
}

// GetSession is a read-only lookup.
func (e *Engine) GetSession(matchID uuid.UUID) (*Session, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	session, ok := e.sessions[matchID]
	return session, ok
}

// MatchForPlayer returns the active match a player participates in, used for
// disconnect handling.
func (e *Engine) MatchForPlayer(playerID uuid.UUID) (uuid.UUID, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	matchID, ok := e.byPlayer[playerID]
	return matchID, ok
}

func (e *Engine) lookup(matchID uuid.UUID) (*Session, *sync.Mutex, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	session, ok := e.sessions[matchID]
	if !ok {
		return nil, nil, false
	}
	return session, e.locks[matchID], true
}

func (e *Engine) remove(matchID uuid.UUID, playerIDs ...uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.sessions, matchID)
	delete(e.locks, matchID)
	for _, id := range playerIDs {
		if e.byPlayer[id] == matchID {
			delete(e.byPlayer, id)
		}
	}
}

// persistAnswer writes the raw answer row. Failures are logged and swallowed:
// an answer accepted in memory is never retracted.
func (e *Engine) persistAnswer(matchID, questionID uuid.UUID, questionOrder int, answer Answer) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.store.InsertAnswer(ctx, InsertAnswerParams{
		MatchID:       matchID,
		PlayerID:      answer.PlayerID,
		QuestionID:    questionID,
		QuestionOrder: questionOrder,
		SelectedIndex: answer.SelectedIndex,
		IsCorrect:     answer.IsCorrect,
		ElapsedMs:     answer.ElapsedMs,
		PointsEarned:  answer.PointsEarned,
		AnsweredAt:    answer.AnsweredAt,
	}); err != nil {
		e.logger.Warn().Err(err).
			Str("match_id", matchID.String()).
			Str("player_id", answer.PlayerID.String()).
			Msg("failed to persist answer")
	}
}

func (e *Engine) creditPoints(playerID uuid.UUID, amount int, reason string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.store.CreditPoints(ctx, playerID, amount, reason); err != nil {
		e.logger.Warn().Err(err).
			Str("player_id", playerID.String()).
			Str("reason", reason).
			Msg("failed to credit points")
	}
}
