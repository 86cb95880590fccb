package cli

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/idfs-labs/starguide/internal/config"
	"github.com/idfs-labs/starguide/internal/content"
)

// newSeedCmd loads the question bank from a YAML seed file.
func newSeedCmd() *cobra.Command {
	var seedPath string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load questions from a YAML seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			path := seedPath
			if path == "" {
				path = cfg.SeedPath
			}

			pool, err := pgxpool.New(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := slog.Default()
			repo := content.NewPostgresRepository(pool)
			count, err := content.SeedFromFile(cmd.Context(), repo, path, logger)
			if err != nil {
				return err
			}
			logger.Info("seed complete", "path", path, "questions", count)
			return nil
		},
	}

	cmd.Flags().StringVar(&seedPath, "file", "", "seed file path (defaults to SEED_PATH)")
	return cmd
}
