package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trivia-quiz/internal/config"
	"trivia-quiz/internal/domain"
	"trivia-quiz/internal/infra/opentdb"
	"trivia-quiz/internal/infra/postgres"
	"trivia-quiz/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type importOptions struct {
	batches int
	pause   time.Duration
}

// NewImportCmd copies provider batches into the Postgres question bank so the
// postgres provider can serve quizzes offline.
func NewImportCmd(configPath *string) *cobra.Command {
	opts := importOptions{}
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import Open Trivia DB questions into the Postgres bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			return runImport(cmd.Context(), cfg, opts, logger)
		},
	}
	cmd.Flags().IntVar(&opts.batches, "batches", 5, "number of batches to fetch")
	// the provider allows one request per IP every five seconds
	cmd.Flags().DurationVar(&opts.pause, "pause", 5*time.Second, "delay between batches")
	return cmd
}

func runImport(ctx context.Context, cfg config.Config, opts importOptions, logger *zap.Logger) error {
	if err := migrateWithConfig(ctx, cfg, logger); err != nil {
		return err
	}

	client := opentdb.NewClient(opentdb.Options{
		BaseURL:  cfg.Provider.BaseURL,
		Timeout:  config.TTLDuration(cfg.Provider.Timeout, 10*time.Second),
		UseToken: true,
		Logger:   logger.Named("opentdb"),
	})
	db := postgres.OpenDB(cfg.Postgres.URL)
	defer db.Close()
	writer := postgres.NewQuestionWriter(db)

	req := domain.BatchRequest{
		Amount:     cfg.Quiz.Amount,
		Category:   cfg.CategoryID(),
		Difficulty: cfg.Quiz.Difficulty,
	}
	total := 0
	for i := 0; i < opts.batches; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(opts.pause):
			}
		}

		raws, err := client.FetchQuestions(ctx, req)
		var apiErr *opentdb.APIError
		if errors.As(err, &apiErr) && apiErr.Code == opentdb.CodeTokenEmpty {
			logger.Info("provider has no more unseen questions", zap.Int("batch", i))
			break
		}
		if err != nil {
			return err
		}

		valid := raws[:0]
		for _, raw := range raws {
			if _, err := domain.Normalize(raw); err != nil {
				logger.Warn("skipping malformed question", zap.String("question", raw.Question), zap.Error(err))
				continue
			}
			valid = append(valid, raw)
		}
		n, err := writer.Save(ctx, req.Category, valid)
		if err != nil {
			return err
		}
		total += n
		logger.Info("imported batch", zap.Int("batch", i), zap.Int("fetched", len(raws)), zap.Int("stored", n))
	}

	count, err := writer.Count(ctx)
	if err != nil {
		return err
	}
	logger.Info("import finished", zap.Int("stored", total), zap.Int("bank_size", count))
	fmt.Printf("imported %d new questions, bank holds %d\n", total, count)
	return nil
}
