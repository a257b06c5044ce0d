package match

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hamzaPixl/deenup/internal/match/rating"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateMatch(ctx context.Context, params CreateMatchParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockStore) LinkMatchQuestions(ctx context.Context, matchID uuid.UUID, questionIDs []uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, matchID, questionIDs)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *mockStore) SetMatchStarted(ctx context.Context, matchID uuid.UUID, startedAt time.Time) error {
	return m.Called(ctx, matchID, startedAt).Error(0)
}

func (m *mockStore) InsertAnswer(ctx context.Context, params InsertAnswerParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockStore) FinishMatch(ctx context.Context, params FinishMatchParams) error {
	return m.Called(ctx, params).Error(0)
}

func (m *mockStore) SetMatchAbandoned(ctx context.Context, matchID uuid.UUID, winnerID uuid.UUID, endedAt time.Time) error {
	return m.Called(ctx, matchID, winnerID, endedAt).Error(0)
}

func (m *mockStore) FetchQuestionSet(ctx context.Context, themeID string, perDifficulty int) ([]Question, error) {
	args := m.Called(ctx, themeID, perDifficulty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Question), args.Error(1)
}

func (m *mockStore) UpdatePlayerRating(ctx context.Context, playerID uuid.UUID, newRating int) error {
	return m.Called(ctx, playerID, newRating).Error(0)
}

func (m *mockStore) CreditPoints(ctx context.Context, playerID uuid.UUID, amount int, reason string) error {
	return m.Called(ctx, playerID, amount, reason).Error(0)
}

func testQuestions(n int) []Question {
	difficulties := []string{DifficultyEasy, DifficultyMedium, DifficultyHard}
	questions := make([]Question, n)
	for i := range questions {
		questions[i] = Question{
			ID:           uuid.New(),
			Text:         "q",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 1,
			Difficulty:   difficulties[i*3/n],
		}
	}
	return questions
}

func newTestEngine(t *testing.T, store *mockStore) *Engine {
	t.Helper()
	return NewEngine(store, rating.NewCalculator(rating.DefaultConfig()), DefaultConfig(), zerolog.Nop())
}

func startedSession(t *testing.T, store *mockStore, matchType string) (*Engine, *Session, Participant, Participant) {
	t.Helper()

	p1 := Participant{PlayerID: uuid.New(), Username: "amina", RatingBefore: 1000}
	p2 := Participant{PlayerID: uuid.New(), Username: "bilal", RatingBefore: 1000}

	store.On("CreateMatch", mock.Anything, mock.Anything).Return(nil)
	store.On("FetchQuestionSet", mock.Anything, "seerah", 5).Return(testQuestions(15), nil)
	store.On("LinkMatchQuestions", mock.Anything, mock.Anything, mock.Anything).Return([]uuid.UUID{}, nil)
	store.On("SetMatchStarted", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	store.On("InsertAnswer", mock.Anything, mock.Anything).Return(nil).Maybe()
	store.On("CreditPoints", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Maybe()

	engine := newTestEngine(t, store)
	session, err := engine.CreateSession(context.Background(), p1, p2, matchType, "seerah")
	require.NoError(t, err)

	first, err := engine.StartSession(context.Background(), session.MatchID)
	require.NoError(t, err)
	require.NotNil(t, first)

	return engine, session, p1, p2
}

func intPtr(i int) *int { return &i }

func TestCreateSessionPropagatesQuestionShortage(t *testing.T) {
	store := new(mockStore)
	store.On("CreateMatch", mock.Anything, mock.Anything).Return(nil)
	store.On("FetchQuestionSet", mock.Anything, "fiqh", 5).Return(nil, ErrNotEnoughQuestions)

	engine := newTestEngine(t, store)
	p1 := Participant{PlayerID: uuid.New(), RatingBefore: 1000}
	p2 := Participant{PlayerID: uuid.New(), RatingBefore: 1000}

	_, err := engine.CreateSession(context.Background(), p1, p2, TypeRanked, "fiqh")
	assert.ErrorIs(t, err, ErrNotEnoughQuestions)

	// No half-created session left behind.
	_, ok := engine.MatchForPlayer(p1.PlayerID)
	assert.False(t, ok)
}

func TestStartSessionTwiceFails(t *testing.T) {
	store := new(mockStore)
	engine, session, _, _ := startedSession(t, store, TypeRanked)

	_, err := engine.StartSession(context.Background(), session.MatchID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestSubmitAnswerScoring(t *testing.T) {
	store := new(mockStore)
	engine, session, p1, _ := startedSession(t, store, TypeRanked)

	// Question 0 is easy (base 100), limit 15s. 5000ms elapsed on a correct
	// answer: round(100 * (15000-5000)/15000) = 67.
	res, err := engine.SubmitAnswer(context.Background(), session.MatchID, p1.PlayerID, 0, intPtr(1), 5000)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 67, res.PointsEarned)
	assert.Equal(t, 1, res.CorrectIndex)
	assert.False(t, res.BothAnswered)
}

func TestSubmitAnswerBoundaryTimes(t *testing.T) {
	store := new(mockStore)
	engine, session, p1, p2 := startedSession(t, store, TypeRanked)

	// Zero elapsed yields the full base score.
	res, err := engine.SubmitAnswer(context.Background(), session.MatchID, p1.PlayerID, 0, intPtr(1), 0)
	require.NoError(t, err)
	assert.Equal(t, 100, res.PointsEarned)

	// Exactly at the limit yields zero, even when correct.
	res, err = engine.SubmitAnswer(context.Background(), session.MatchID, p2.PlayerID, 0, intPtr(1), 15000)
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, 0, res.PointsEarned)
	assert.True(t, res.BothAnswered)
}

func TestSubmitAnswerNegativeElapsedNeverExceedsBase(t *testing.T) {
	store := new(mockStore)
	engine, session, p1, _ := startedSession(t, store, TypeRanked)

	// A client-reported elapsed time below zero must not inflate the score
	// past the question's base points.
	res, err := engine.SubmitAnswer(context.Background(), session.MatchID, p1.PlayerID, 0, intPtr(1), -60000)
	require.NoError(t, err)
	assert.Equal(t, 100, res.PointsEarned)
}

func TestSubmitAnswerTimeoutScoresZero(t *testing.T) {
	store := new(mockStore)
	engine, session, p1, _ := startedSession(t, store, TypeRanked)

	// A nil selection is a timeout regardless of elapsed time.
	res, err := engine.SubmitAnswer(context.Background(), session.MatchID, p1.PlayerID, 0, nil, 100)
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, 0, res.PointsEarned)
}

func TestSubmitAnswerIdempotenceGuard(t *testing.T) {
	store := new(mockStore)
	engine, session, p1, _ := startedSession(t, store, TypeRanked)

	res, err := engine.SubmitAnswer(context.Background(), session.MatchID, p1.PlayerID, 0, intPtr(1), 1000)
	require.NoError(t, err)
	firstPoints := res.PointsEarned

	_, err = engine.SubmitAnswer(context.Background(), session.MatchID, p1.PlayerID, 0, intPtr(2), 2000)
	assert.ErrorIs(t, err, ErrAnswerAlreadySubmitted)

	// The first recorded answer and score are untouched.
	current, ok := engine.GetSession(session.MatchID)
	require.True(t, ok)
	assert.Equal(t, firstPoints, current.Scores[p1.PlayerID])
}

func TestSubmitAnswerValidation(t *testing.T) {
	store := new(mockStore)
	engine, session, p1, _ := startedSession(t, store, TypeRanked)

	_, err := engine.SubmitAnswer(context.Background(), uuid.New(), p1.PlayerID, 0, intPtr(1), 1000)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = engine.SubmitAnswer(context.Background(), session.MatchID, p1.PlayerID, 99, intPtr(1), 1000)
	assert.ErrorIs(t, err, ErrAnswerOutOfOrder)

	_, err = engine.SubmitAnswer(context.Background(), session.MatchID, uuid.New(), 0, intPtr(1), 1000)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestAdvancePastLastQuestionSignalsCompletion(t *testing.T) {
	store := new(mockStore)
	engine, session, _, _ := startedSession(t, store, TypeRanked)

	for i := 1; i < 15; i++ {
		q, ok := engine.AdvanceQuestion(session.MatchID)
		require.True(t, ok, "question %d", i)
		require.NotNil(t, q)
	}
	q, ok := engine.AdvanceQuestion(session.MatchID)
	assert.False(t, ok)
	assert.Nil(t, q)
}

func TestFinalizeMatchSettlesAndRemovesSession(t *testing.T) {
	store := new(mockStore)
	engine, session, p1, p2 := startedSession(t, store, TypeRanked)

	store.On("FinishMatch", mock.Anything, mock.Anything).Return(nil)
	store.On("UpdatePlayerRating", mock.Anything, p1.PlayerID, mock.Anything).Return(nil)
	store.On("UpdatePlayerRating", mock.Anything, p2.PlayerID, mock.Anything).Return(nil)

	// p1 scores, p2 stays at zero.
	_, err := engine.SubmitAnswer(context.Background(), session.MatchID, p1.PlayerID, 0, intPtr(1), 1000)
	require.NoError(t, err)

	result, err := engine.FinalizeMatch(context.Background(), session.MatchID)
	require.NoError(t, err)
	require.NotNil(t, result.WinnerID)
	assert.Equal(t, p1.PlayerID, *result.WinnerID)
	assert.Positive(t, result.RatingDeltas[p1.PlayerID])
	assert.Negative(t, result.RatingDeltas[p2.PlayerID])
	assert.Equal(t, 1000+result.RatingDeltas[p1.PlayerID], result.RatingsAfter[p1.PlayerID])

	// Session is gone from further lookup.
	_, ok := engine.GetSession(session.MatchID)
	assert.False(t, ok)
	_, err = engine.FinalizeMatch(context.Background(), session.MatchID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestFinalizeMatchDraw(t *testing.T) {
	store := new(mockStore)
	engine, session, p1, p2 := startedSession(t, store, TypeUnranked)

	store.On("FinishMatch", mock.Anything, mock.Anything).Return(nil)

	result, err := engine.FinalizeMatch(context.Background(), session.MatchID)
	require.NoError(t, err)
	assert.Nil(t, result.WinnerID)
	assert.Equal(t, 0, result.RatingDeltas[p1.PlayerID])
	assert.Equal(t, 0, result.RatingDeltas[p2.PlayerID])

	// Unranked matches never touch stored ratings.
	store.AssertNotCalled(t, "UpdatePlayerRating", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinalizePersistenceFailureKeepsSession(t *testing.T) {
	store := new(mockStore)
	engine, session, _, _ := startedSession(t, store, TypeUnranked)

	store.On("FinishMatch", mock.Anything, mock.Anything).Return(assert.AnError)

	_, err := engine.FinalizeMatch(context.Background(), session.MatchID)
	require.Error(t, err)

	// The primary write failed, so the session stays available for a retry.
	_, ok := engine.GetSession(session.MatchID)
	assert.True(t, ok)
}

func TestAbandonMatchDeclaresOpponentWinner(t *testing.T) {
	store := new(mockStore)
	engine, session, p1, p2 := startedSession(t, store, TypeRanked)

	store.On("SetMatchAbandoned", mock.Anything, session.MatchID, p2.PlayerID, mock.Anything).Return(nil)

	result, ok := engine.AbandonMatch(context.Background(), session.MatchID, p1.PlayerID)
	require.True(t, ok)
	assert.Equal(t, p2.PlayerID, result.WinnerID)
	assert.Equal(t, p1.PlayerID, result.AbandonedBy)

	_, ok = engine.GetSession(session.MatchID)
	assert.False(t, ok)

	// Absent session: no-op.
	_, ok = engine.AbandonMatch(context.Background(), session.MatchID, p1.PlayerID)
	assert.False(t, ok)
}
