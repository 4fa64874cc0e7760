package cli

import (
	"fmt"
	"time"

	"trivia-quiz/internal/config"
	"trivia-quiz/internal/infra/opentdb"

	"github.com/spf13/cobra"
)

// NewCategoriesCmd prints the provider's category ids for quiz.category.
func NewCategoriesCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List Open Trivia DB category ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			client := opentdb.NewClient(opentdb.Options{
				BaseURL: cfg.Provider.BaseURL,
				Timeout: config.TTLDuration(cfg.Provider.Timeout, 10*time.Second),
			})
			categories, err := client.Categories(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range categories {
				fmt.Fprintf(out, "%4d  %s\n", c.ID, c.Name)
			}
			return nil
		},
	}
}
