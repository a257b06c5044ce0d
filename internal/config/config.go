package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"deenup"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres    Postgres
	Redis       Redis
	Security    Security
	Matchmaking Matchmaking
	Gameplay    Gameplay
	Rating      Rating
	Leaderboard Leaderboard
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds cache configuration for the leaderboard ladder.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for signing and auth.
type Security struct {
	JWTSecret string `env:"JWT_SECRET,notEmpty"`
}

// Matchmaking groups queue tuning knobs.
type Matchmaking struct {
	SweepInterval time.Duration `env:"MM_SWEEP_INTERVAL" envDefault:"2s"`
	QueueTimeout  time.Duration `env:"MM_QUEUE_TIMEOUT" envDefault:"120s"`
	WindowInitial int           `env:"MM_WINDOW_INITIAL" envDefault:"100"`
	WindowStep    int           `env:"MM_WINDOW_STEP" envDefault:"50"`
	WindowMax     int           `env:"MM_WINDOW_MAX" envDefault:"500"`
	ExpandEveryN  int           `env:"MM_EXPAND_EVERY_N" envDefault:"3"`
}

// Gameplay groups per-match defaults.
type Gameplay struct {
	QuestionsPerDifficulty int           `env:"GAME_QUESTIONS_PER_DIFFICULTY" envDefault:"5"`
	QuestionTimeLimit      time.Duration `env:"GAME_QUESTION_TIME_LIMIT" envDefault:"15s"`
	RevealDelay            time.Duration `env:"GAME_REVEAL_DELAY" envDefault:"3s"`
	BasePointsEasy         int           `env:"GAME_BASE_POINTS_EASY" envDefault:"100"`
	BasePointsMedium       int           `env:"GAME_BASE_POINTS_MEDIUM" envDefault:"150"`
	BasePointsHard         int           `env:"GAME_BASE_POINTS_HARD" envDefault:"200"`
	FastAnswerThreshold    float64       `env:"GAME_FAST_ANSWER_THRESHOLD" envDefault:"0.25"`
	FastAnswerBonus        int           `env:"GAME_FAST_ANSWER_BONUS" envDefault:"10"`
	WinnerReward           int           `env:"GAME_WINNER_REWARD" envDefault:"50"`
}

// Rating holds Elo settlement constants.
type Rating struct {
	KFactor   int `env:"RATING_K_FACTOR" envDefault:"32"`
	MinRating int `env:"RATING_FLOOR" envDefault:"0"`
}

// Leaderboard governs the ranked ladder.
type Leaderboard struct {
	TopN           int    `env:"LEADERBOARD_TOP_N" envDefault:"50"`
	RedisKeyPrefix string `env:"LEADERBOARD_KEY_PREFIX" envDefault:"ladder"`
}

// Load parses environment variables into App config.
func Load() (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
