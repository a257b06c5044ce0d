package queue

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hamzaPixl/deenup/internal/metrics"
)

// ErrAlreadyQueued is returned when a player identity is already waiting.
var ErrAlreadyQueued = errors.New("player already in queue")

// Match types accepted by the queue.
const (
	TypeRanked   = "ranked"
	TypeUnranked = "unranked"
)

// Entry is one waiting player. Mutated only by the owning queue.
type Entry struct {
	PlayerID   uuid.UUID
	Username   string
	Rating     int
	MatchType  string
	ThemeID    string // empty means no preference
	JoinedAt   time.Time
	WidenCount int // grows on each unsuccessful pairing attempt
}

// Pairing is the result of a successful match between two entries. ThemeID is
// the resolved theme for the match: the caller's preference, or the
// opponent's when the caller had none.
type Pairing struct {
	Player   Entry
	Opponent Entry
	ThemeID  string
}

// Config holds matchmaking tuning knobs.
type Config struct {
	SweepInterval time.Duration // default 2s
	QueueTimeout  time.Duration // default 120s
	WindowInitial int           // default 100
	WindowStep    int           // default 50
	WindowMax     int           // default 500
	ExpandEveryN  int           // widen the window every N failed attempts
}

// DefaultConfig returns production matchmaking defaults.
func DefaultConfig() Config {
	return Config{
		SweepInterval: 2 * time.Second,
		QueueTimeout:  120 * time.Second,
		WindowInitial: 100,
		WindowStep:    50,
		WindowMax:     500,
		ExpandEveryN:  3,
	}
}

// Queue is the in-memory waiting pool. All mutations are serialized behind a
// single mutex; iteration follows insertion order so pairing is first-fit and
// deterministic.
type Queue struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*Entry
	order   []uuid.UUID // insertion order of waiting player ids

	config Config
	logger zerolog.Logger

	loopOnce sync.Once
	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// New creates a matchmaking queue.
func New(config Config, logger zerolog.Logger) *Queue {
	if config.SweepInterval <= 0 {
		config.SweepInterval = 2 * time.Second
	}
	if config.QueueTimeout <= 0 {
		config.QueueTimeout = 120 * time.Second
	}
	if config.ExpandEveryN <= 0 {
		config.ExpandEveryN = 3
	}
	return &Queue{
		entries: make(map[uuid.UUID]*Entry),
		config:  config,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Join adds a player to the pool and returns the queue size including the new
// entry. A player identity may appear at most once; duplicate joins fail with
// ErrAlreadyQueued and leave the existing entry untouched.
func (q *Queue) Join(playerID uuid.UUID, username string, ratingValue int, matchType, themeID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.entries[playerID]; ok {
		return 0, ErrAlreadyQueued
	}

	q.entries[playerID] = &Entry{
		PlayerID:  playerID,
		Username:  username,
		Rating:    ratingValue,
		MatchType: matchType,
		ThemeID:   themeID,
		JoinedAt:  time.Now(),
	}
	q.order = append(q.order, playerID)
	metrics.QueueDepth.Set(float64(len(q.entries)))

	q.logger.Info().
		Str("player_id", playerID.String()).
		Str("match_type", matchType).
		Int("rating", ratingValue).
		Int("queue_size", len(q.entries)).
		Msg("player joined queue")

	return len(q.entries), nil
}

// Leave removes a player from the pool. No-op if absent.
func (q *Queue) Leave(playerID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if _, ok := q.entries[playerID]; !ok {
		return
	}
	q.removeLocked(playerID)
	q.logger.Info().Str("player_id", playerID.String()).Msg("player left queue")
}

// Size reports the number of waiting players.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// FindMatch scans the pool for the first compatible opponent in insertion
// order. On success both entries are removed atomically and the pairing is
// returned. On failure the caller's widen count is incremented so its
// acceptance window grows over time.
func (q *Queue) FindMatch(playerID uuid.UUID) (*Pairing, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.findMatchLocked(playerID)
}

func (q *Queue) findMatchLocked(playerID uuid.UUID) (*Pairing, bool) {
	caller, ok := q.entries[playerID]
	if !ok {
		return nil, false
	}

	window := q.windowFor(caller)
	for _, otherID := range q.order {
		if otherID == playerID {
			continue
		}
		other, ok := q.entries[otherID]
		if !ok {
			continue
		}
		if other.MatchType != caller.MatchType {
			continue
		}
		if other.Rating < caller.Rating-window || other.Rating > caller.Rating+window {
			continue
		}

		theme := caller.ThemeID
		if theme == "" {
			theme = other.ThemeID
		}
		pairing := &Pairing{Player: *caller, Opponent: *other, ThemeID: theme}

		q.removeLocked(playerID)
		q.removeLocked(otherID)

		q.logger.Info().
			Str("player_id", playerID.String()).
			Str("opponent_id", otherID.String()).
			Str("match_type", caller.MatchType).
			Msg("pairing found")
		return pairing, true
	}

	caller.WidenCount++
	return nil, false
}

// windowFor returns the caller's current rating acceptance half-width.
func (q *Queue) windowFor(e *Entry) int {
	window := q.config.WindowInitial + (e.WidenCount/q.config.ExpandEveryN)*q.config.WindowStep
	if window > q.config.WindowMax {
		window = q.config.WindowMax
	}
	return window
}

// RunPairingSweep attempts one pairing pass over the pool. The identity list
// is snapshotted up front so removals during the sweep cannot corrupt
// iteration; identities paired earlier in the same sweep are skipped.
func (q *Queue) RunPairingSweep() []Pairing {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshot := append([]uuid.UUID(nil), q.order...)
	var pairs []Pairing
	for _, playerID := range snapshot {
		if _, stillWaiting := q.entries[playerID]; !stillWaiting {
			continue // paired earlier in this sweep
		}
		if pairing, ok := q.findMatchLocked(playerID); ok {
			pairs = append(pairs, *pairing)
		}
	}
	return pairs
}

// ExpireStale removes and returns every entry that has waited longer than the
// queue timeout.
func (q *Queue) ExpireStale() []Entry {
	q.mu.Lock()
	defer q.mu.Unlock()

	cutoff := time.Now().Add(-q.config.QueueTimeout)
	var expired []Entry
	for _, playerID := range append([]uuid.UUID(nil), q.order...) {
		entry, ok := q.entries[playerID]
		if !ok || !entry.JoinedAt.Before(cutoff) {
			continue
		}
		expired = append(expired, *entry)
		q.removeLocked(playerID)
		metrics.QueueTimeouts.Inc()
		q.logger.Info().
			Str("player_id", playerID.String()).
			Dur("waited", time.Since(entry.JoinedAt)).
			Msg("queue entry expired")
	}
	return expired
}

// StartLoop runs eviction then a pairing sweep on a fixed interval, invoking
// the supplied callbacks outside the queue lock.
func (q *Queue) StartLoop(onPair func(Pairing), onTimeout func(Entry)) {
	q.loopOnce.Do(func() {
		go func() {
			defer close(q.doneCh)
			ticker := time.NewTicker(q.config.SweepInterval)
			defer ticker.Stop()

			for {
				select {
				case <-q.stopCh:
					return
				case <-ticker.C:
					for _, entry := range q.ExpireStale() {
						if onTimeout != nil {
							onTimeout(entry)
						}
					}
					for _, pairing := range q.RunPairingSweep() {
						if onPair != nil {
							onPair(pairing)
						}
					}
				}
			}
		}()
	})
}

// StopLoop halts the periodic loop. Idempotent and safe to call whether or
// not the loop ever started.
func (q *Queue) StopLoop() {
	q.stopOnce.Do(func() {
		close(q.stopCh)
	})
}

func (q *Queue) removeLocked(playerID uuid.UUID) {
	delete(q.entries, playerID)
	for i, id := range q.order {
		if id == playerID {
			q.order = append(q.order[:i], q.order[i+1:]...)
			break
		}
	}
	metrics.QueueDepth.Set(float64(len(q.entries)))
}
