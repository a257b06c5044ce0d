package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hamzaPixl/deenup/internal/auth/jwt"
	"github.com/hamzaPixl/deenup/internal/config"
	"github.com/hamzaPixl/deenup/internal/db/repository"
	"github.com/hamzaPixl/deenup/internal/leaderboard"
	"github.com/hamzaPixl/deenup/internal/logging"
	"github.com/hamzaPixl/deenup/internal/match"
	matchqueue "github.com/hamzaPixl/deenup/internal/match/queue"
	"github.com/hamzaPixl/deenup/internal/match/rating"
	"github.com/hamzaPixl/deenup/internal/server"
	ws "github.com/hamzaPixl/deenup/pkg/http/ws"
)

// Application aggregates shared infrastructure (DB, cache, HTTP server) and
// the duel handler that owns the matchmaking loop.
type Application struct {
	cfg    *config.App
	logger zerolog.Logger

	pool    *pgxpool.Pool
	redis   *redis.Client
	http    *http.Server
	handler *match.Handler
}

// New bootstraps config, logger, Postgres, Redis and the duel stack.
func New(ctx context.Context, cfg *config.App) (*Application, error) {
	logger := logging.New(cfg.Name, cfg.Env)
	logger.Info().Msg("starting application bootstrap")

	connString := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.User, cfg.Postgres.Password, cfg.Postgres.Database, cfg.Postgres.SSLMode)

	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	store := repository.NewStore(pool)

	tokens := jwt.NewManager(jwt.TokenConfig{
		Secret: []byte(cfg.Security.JWTSecret),
		Issuer: cfg.Name,
	})

	calc := rating.NewCalculator(rating.Config{
		KFactor:   cfg.Rating.KFactor,
		MinRating: cfg.Rating.MinRating,
	})

	q := matchqueue.New(matchqueue.Config{
		SweepInterval: cfg.Matchmaking.SweepInterval,
		QueueTimeout:  cfg.Matchmaking.QueueTimeout,
		WindowInitial: cfg.Matchmaking.WindowInitial,
		WindowStep:    cfg.Matchmaking.WindowStep,
		WindowMax:     cfg.Matchmaking.WindowMax,
		ExpandEveryN:  cfg.Matchmaking.ExpandEveryN,
	}, logger)

	engine := match.NewEngine(store, calc, match.Config{
		QuestionsPerDifficulty: cfg.Gameplay.QuestionsPerDifficulty,
		QuestionTimeLimit:      cfg.Gameplay.QuestionTimeLimit,
		BasePoints: map[string]int{
			match.DifficultyEasy:   cfg.Gameplay.BasePointsEasy,
			match.DifficultyMedium: cfg.Gameplay.BasePointsMedium,
			match.DifficultyHard:   cfg.Gameplay.BasePointsHard,
		},
		FastAnswerThreshold: cfg.Gameplay.FastAnswerThreshold,
		FastAnswerBonus:     cfg.Gameplay.FastAnswerBonus,
		WinnerReward:        cfg.Gameplay.WinnerReward,
	}, logger)

	ladder := leaderboard.NewService(redisClient, logger, leaderboard.ServiceOptions{
		TopN:           cfg.Leaderboard.TopN,
		RedisKeyPrefix: cfg.Leaderboard.RedisKeyPrefix,
	})

	hub := ws.NewHub(logger)
	handler := match.NewHandler(engine, q, hub, ladder, tokens, store, cfg.Gameplay.RevealDelay, logger)

	apiServer := server.NewHTTPServer(cfg, logger, pool, redisClient, ladder, handler.HandleWebSocket)

	return &Application{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		redis:   redisClient,
		http:    apiServer,
		handler: handler,
	}, nil
}

// Run starts the matchmaking loop and HTTP server, then waits for
// termination signals.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	a.handler.Start()

	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http server listening")
		if err := a.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		a.logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server error: %w", err)
	case <-ctx.Done():
		a.logger.Warn().Msg("context canceled")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.GracefulShutdownTimeout)
	defer cancel()

	if err := a.http.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("http shutdown error")
	}

	a.handler.Stop()

	a.pool.Close()
	if err := a.redis.Close(); err != nil {
		a.logger.Error().Err(err).Msg("redis shutdown error")
	}

	a.logger.Info().Msg("shutdown complete")
	return nil
}
