package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Ladder windows.
const (
	WindowAllTime = "all_time"
	WindowMonthly = "monthly"
)

var defaultWindows = []string{WindowAllTime, WindowMonthly}

// Entry is one ladder row sent to clients.
type Entry struct {
	Rank     int       `json:"rank"`
	PlayerID uuid.UUID `json:"player_id"`
	Username string    `json:"username"`
	Rating   int       `json:"rating"`
	Wins     int       `json:"wins"`
	Games    int       `json:"games"`
}

// RecordRequest captures one player's post-match ladder update.
type RecordRequest struct {
	PlayerID uuid.UUID
	Username string
	Rating   int
	Won      bool
}

// ServiceOptions configures ladder behavior.
type ServiceOptions struct {
	TopN           int
	Windows        []string
	RedisKeyPrefix string
}

// Service maintains the ranked rating ladder in Redis sorted sets, one per
// window, scored by the player's current rating.
type Service struct {
	redis  *redis.Client
	opts   ServiceOptions
	logger zerolog.Logger
}

// NewService creates a ladder service.
func NewService(redisClient *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	if opts.TopN <= 0 {
		opts.TopN = 50
	}
	if len(opts.Windows) == 0 {
		opts.Windows = defaultWindows
	}
	if opts.RedisKeyPrefix == "" {
		opts.RedisKeyPrefix = "ladder"
	}
	return &Service{redis: redisClient, opts: opts, logger: logger}
}

// RecordResult updates the ladder after a ranked match finalizes. Called
// best-effort from the transport layer; a failure never affects the match.
func (s *Service) RecordResult(ctx context.Context, req RecordRequest) error {
	pipe := s.redis.Pipeline()
	for _, window := range s.opts.Windows {
		key := s.ratingKey(window)
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(req.Rating), Member: req.PlayerID.String()})
		pipe.HIncrBy(ctx, s.statsKey(window, req.PlayerID), "games", 1)
		if req.Won {
			pipe.HIncrBy(ctx, s.statsKey(window, req.PlayerID), "wins", 1)
		}
		if window == WindowMonthly {
			pipe.Expire(ctx, key, 35*24*time.Hour)
		}
	}
	pipe.Set(ctx, s.nameKey(req.PlayerID), req.Username, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record ladder result: %w", err)
	}
	return nil
}

// Top returns the highest-rated players for a window.
func (s *Service) Top(ctx context.Context, window string, limit int) ([]Entry, error) {
	if !s.validWindow(window) {
		return nil, fmt.Errorf("unknown ladder window %q", window)
	}
	if limit <= 0 || limit > s.opts.TopN {
		limit = s.opts.TopN
	}

	rows, err := s.redis.ZRevRangeWithScores(ctx, s.ratingKey(window), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch ladder: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for i, row := range rows {
		member, _ := row.Member.(string)
		playerID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Warn().Str("member", member).Msg("skip malformed ladder member")
			continue
		}

		entry := Entry{
			Rank:     i + 1,
			PlayerID: playerID,
			Rating:   int(row.Score),
		}
		entry.Username, _ = s.redis.Get(ctx, s.nameKey(playerID)).Result()
		if stats, err := s.redis.HGetAll(ctx, s.statsKey(window, playerID)).Result(); err == nil {
			entry.Wins, _ = strconv.Atoi(stats["wins"])
			entry.Games, _ = strconv.Atoi(stats["games"])
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// MarshalTop renders the top of a window as a JSON document for the HTTP
// leaderboard endpoint.
func (s *Service) MarshalTop(ctx context.Context, window string, limit int) ([]byte, error) {
	entries, err := s.Top(ctx, window, limit)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]interface{}{
		"window":  window,
		"entries": entries,
	})
}

func (s *Service) validWindow(window string) bool {
	for _, w := range s.opts.Windows {
		if w == window {
			return true
		}
	}
	return false
}

func (s *Service) ratingKey(window string) string {
	if window == WindowMonthly {
		return fmt.Sprintf("%s:%s:%s", s.opts.RedisKeyPrefix, window, time.Now().UTC().Format("2006-01"))
	}
	return fmt.Sprintf("%s:%s", s.opts.RedisKeyPrefix, window)
}

func (s *Service) statsKey(window string, playerID uuid.UUID) string {
	return fmt.Sprintf("%s:stats:%s:%s", s.opts.RedisKeyPrefix, window, playerID.String())
}

func (s *Service) nameKey(playerID uuid.UUID) string {
	return fmt.Sprintf("%s:name:%s", s.opts.RedisKeyPrefix, playerID.String())
}
