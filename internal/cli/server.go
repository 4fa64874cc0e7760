package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"trivia-quiz/internal/app"
	"trivia-quiz/internal/config"
	"trivia-quiz/internal/infra/memory"
	"trivia-quiz/internal/infra/opentdb"
	"trivia-quiz/internal/infra/postgres"
	infraredis "trivia-quiz/internal/infra/redis"
	"trivia-quiz/internal/logging"
	transport "trivia-quiz/internal/transport/http"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
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
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, err := buildDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer deps.Close()

	service := app.NewQuizService(deps.sessions, deps.results, deps.source, settingsFor(cfg), logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting quiz service",
			zap.String("addr", server.Addr),
			zap.String("provider", cfg.Provider.Kind),
			zap.Int("amount", cfg.Quiz.Amount),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		service.Close()
		return err
	})
	return g.Wait()
}

func settingsFor(cfg config.Config) app.Settings {
	return app.Settings{
		Amount:          cfg.Quiz.Amount,
		QuestionSeconds: cfg.Quiz.QuestionSeconds,
		Category:        cfg.CategoryID(),
		Difficulty:      cfg.Quiz.Difficulty,
	}
}

// deps holds the configured question source and stores plus what must be
// closed on exit.
type deps struct {
	source   app.QuestionSource
	sessions app.SessionRepository
	results  app.ResultRepository
	closers  []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(ctx context.Context, cfg config.Config, logger *zap.Logger) (*deps, error) {
	d := &deps{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = redisClient.Close() })
	}

	source, err := buildSource(ctx, cfg, redisClient, logger, d)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.source = source

	if redisClient != nil {
		store := infraredis.NewSessionStore(redisClient, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
		d.sessions, d.results = store, store
	} else {
		store := memory.NewSessionStore()
		d.sessions, d.results = store, store
	}
	return d, nil
}

func buildSource(ctx context.Context, cfg config.Config, redisClient *redis.Client, logger *zap.Logger, d *deps) (app.QuestionSource, error) {
	var loader memory.PoolLoader
	switch cfg.Provider.Kind {
	case config.ProviderOpenTDB:
		return opentdb.NewClient(opentdb.Options{
			BaseURL:  cfg.Provider.BaseURL,
			Timeout:  config.TTLDuration(cfg.Provider.Timeout, 10*time.Second),
			UseToken: cfg.Provider.UseToken,
			Logger:   logger.Named("opentdb"),
		}), nil
	case config.ProviderStatic:
		loader = memory.NewStaticQuestionLoader(sampleQuestions())
	case config.ProviderPostgres:
		if err := migrateWithConfig(ctx, cfg, logger); err != nil {
			return nil, err
		}
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, pool.Close)
		loader = postgres.NewQuestionLoader(pool)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Kind)
	}

	poolTTL := config.TTLDuration(cfg.Provider.PoolTTL, 10*time.Minute)
	if redisClient != nil {
		return infraredis.NewQuestionPool(redisClient, loader, poolTTL, logger.Named("pool")), nil
	}
	return memory.NewQuestionPool(loader, poolTTL, nil), nil
}
