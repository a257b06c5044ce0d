package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue() *Queue {
	return New(DefaultConfig(), zerolog.Nop())
}

func TestJoinDuplicateRejected(t *testing.T) {
	q := newTestQueue()
	playerID := uuid.New()

	size, err := q.Join(playerID, "amina", 1000, TypeRanked, "")
	require.NoError(t, err)
	assert.Equal(t, 1, size)

	_, err = q.Join(playerID, "amina", 1000, TypeRanked, "")
	assert.ErrorIs(t, err, ErrAlreadyQueued)
	assert.Equal(t, 1, q.Size())
}

func TestLeaveIsIdempotent(t *testing.T) {
	q := newTestQueue()
	playerID := uuid.New()

	q.Leave(playerID) // absent, no-op

	_, err := q.Join(playerID, "amina", 1000, TypeRanked, "")
	require.NoError(t, err)
	q.Leave(playerID)
	q.Leave(playerID)
	assert.Equal(t, 0, q.Size())
}

func TestFindMatchPairsCompatiblePlayers(t *testing.T) {
	q := newTestQueue()
	p1 := uuid.New()
	p2 := uuid.New()

	_, err := q.Join(p1, "amina", 1000, TypeRanked, "")
	require.NoError(t, err)
	_, err = q.Join(p2, "bilal", 1050, TypeRanked, "seerah")
	require.NoError(t, err)

	pairing, ok := q.FindMatch(p1)
	require.True(t, ok)
	assert.Equal(t, p1, pairing.Player.PlayerID)
	assert.Equal(t, p2, pairing.Opponent.PlayerID)
	// Caller had no theme preference; the opponent's is adopted.
	assert.Equal(t, "seerah", pairing.ThemeID)
	// Both identities removed atomically.
	assert.Equal(t, 0, q.Size())
}

func TestFindMatchNeverMixesMatchTypes(t *testing.T) {
	q := newTestQueue()
	p1 := uuid.New()
	p2 := uuid.New()

	_, _ = q.Join(p1, "amina", 1000, TypeRanked, "")
	_, _ = q.Join(p2, "bilal", 1000, TypeUnranked, "")

	_, ok := q.FindMatch(p1)
	assert.False(t, ok)
	assert.Equal(t, 2, q.Size())
}

func TestFindMatchRespectsRatingWindow(t *testing.T) {
	q := newTestQueue()
	p1 := uuid.New()
	p2 := uuid.New()

	_, _ = q.Join(p1, "amina", 1000, TypeRanked, "")
	_, _ = q.Join(p2, "bilal", 1400, TypeRanked, "")

	// 400 apart is outside the initial 100-point window.
	_, ok := q.FindMatch(p1)
	assert.False(t, ok)

	// Repeated failures widen the window until the pair qualifies.
	for i := 0; i < 20; i++ {
		if pairing, ok := q.FindMatch(p1); ok {
			assert.Equal(t, p2, pairing.Opponent.PlayerID)
			return
		}
	}
	t.Fatal("window never widened enough to pair")
}

func TestFindMatchNeverPairsSelf(t *testing.T) {
	q := newTestQueue()
	p1 := uuid.New()

	_, _ = q.Join(p1, "amina", 1000, TypeRanked, "")
	_, ok := q.FindMatch(p1)
	assert.False(t, ok)
}

func TestPairingSweepScenario(t *testing.T) {
	// Two 1000-rated players join the same ranked queue with no theme
	// preference; one sweep must produce exactly one pair and empty the pool.
	q := newTestQueue()
	p1 := uuid.New()
	p2 := uuid.New()

	_, err := q.Join(p1, "amina", 1000, TypeRanked, "")
	require.NoError(t, err)
	_, err = q.Join(p2, "bilal", 1000, TypeRanked, "")
	require.NoError(t, err)

	pairs := q.RunPairingSweep()
	require.Len(t, pairs, 1)

	ids := []uuid.UUID{pairs[0].Player.PlayerID, pairs[0].Opponent.PlayerID}
	assert.Contains(t, ids, p1)
	assert.Contains(t, ids, p2)
	assert.Equal(t, 0, q.Size())
}

func TestExpireStale(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueTimeout = 10 * time.Millisecond
	q := New(cfg, zerolog.Nop())

	p1 := uuid.New()
	_, _ = q.Join(p1, "amina", 1000, TypeRanked, "")

	time.Sleep(20 * time.Millisecond)
	expired := q.ExpireStale()
	require.Len(t, expired, 1)
	assert.Equal(t, p1, expired[0].PlayerID)
	assert.Equal(t, 0, q.Size())
}

func TestLoopPairsAndStops(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SweepInterval = 5 * time.Millisecond
	q := New(cfg, zerolog.Nop())

	p1 := uuid.New()
	p2 := uuid.New()
	_, _ = q.Join(p1, "amina", 1000, TypeRanked, "")
	_, _ = q.Join(p2, "bilal", 1000, TypeRanked, "")

	paired := make(chan Pairing, 1)
	q.StartLoop(func(p Pairing) { paired <- p }, nil)

	select {
	case <-paired:
	case <-time.After(time.Second):
		t.Fatal("loop never produced a pairing")
	}

	q.StopLoop()
	q.StopLoop() // idempotent
}

func TestStopLoopWithoutStart(t *testing.T) {
	q := newTestQueue()
	q.StopLoop()
	q.StopLoop()
}
