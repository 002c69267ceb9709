package cli

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"quiz-night/internal/app"
	"quiz-night/internal/config"
	"quiz-night/internal/content"
	"quiz-night/internal/infra/memory"
	pgloader "quiz-night/internal/infra/postgres"
	infraredis "quiz-night/internal/infra/redis"
	"quiz-night/internal/logging"
	"quiz-night/internal/telemetry"
	transport "quiz-night/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz night server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.Setup(ctx)
		if err != nil {
			return err
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(flushCtx); err != nil {
				logger.Warn("flush traces failed", zap.Error(err))
			}
		}()
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrations(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	client := newRedisClient(cfg)
	if client != nil {
		defer client.Close()
	}

	bank, cleanup, err := newQuestionBank(ctx, cfg, client, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	games := newGameRepository(cfg, client, bank, logger)

	sweeper, err := newIdleSweeper(cfg, games, logger)
	if err != nil {
		return err
	}
	sweeper.Start()
	defer sweeper.Stop()

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(games, logger),
		ReadTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting quiz night server", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Development)
}

// newQuestionBank chains loader, cache and the optional shuffle decorator.
// A nil client keeps the cache in process.
func newQuestionBank(ctx context.Context, cfg config.Config, client *redis.Client, logger *zap.Logger) (app.QuestionBank, func(), error) {
	cleanup := func() {}

	var loader memory.QuestionLoader
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, cleanup, err
		}
		cleanup = pool.Close
		loader = pgloader.NewQuestionLoader(pool)
	} else {
		embedded, err := content.NewEmbeddedLoader()
		if err != nil {
			return nil, cleanup, err
		}
		loader = embedded
	}

	ttl := config.TTLDuration(cfg.Questions.TTL, 10*time.Minute)
	var bank app.QuestionBank
	if client != nil {
		bank = infraredis.NewQuestionBank(client, loader, ttl, logger)
	} else {
		bank = memory.NewQuestionBank(loader, ttl)
	}

	if cfg.Questions.Shuffle {
		bank = memory.NewShuffledBank(bank, rand.New(rand.NewSource(time.Now().UnixNano())))
	}
	return bank, cleanup, nil
}

func newGameRepository(cfg config.Config, client *redis.Client, bank app.QuestionBank, logger *zap.Logger) app.GameRepository {
	settings := app.Settings{
		RoundsPerGame:    cfg.Game.RoundsPerGame,
		TimePerQuestion:  cfg.Game.TimePerQuestion,
		PointsPerCorrect: cfg.Game.PointsPerCorrect,
	}
	factory := func(id string) *app.Game {
		return app.NewGame(id, cfg.Game.Roster, settings, bank,
			app.WithLogger(logger),
			app.WithTracer(telemetry.Tracer("game")),
		)
	}
	if client != nil {
		return infraredis.NewGameStore(client, config.TTLDuration(cfg.Redis.TTL, 10*time.Minute), factory, logger)
	}
	return memory.NewGameStore(factory)
}

// newIdleSweeper schedules removal of games nobody has touched within the idle timeout.
func newIdleSweeper(cfg config.Config, games app.GameRepository, logger *zap.Logger) (*cron.Cron, error) {
	idle := config.TTLDuration(cfg.Game.IdleTimeout, 2*time.Hour)
	c := cron.New()
	_, err := c.AddFunc(cfg.Game.SweepSchedule, func() {
		swept := games.SweepIdle(time.Now().Add(-idle))
		if len(swept) > 0 {
			logger.Info("swept idle games", zap.Strings("games", swept))
		}
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newRedisClient(cfg config.Config) *redis.Client {
	if cfg.Redis.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
