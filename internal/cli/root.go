// Package cli wires the starguide commands: serving the API, applying
// migrations and seeding the question bank.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Execute runs the CLI.
func Execute() error {
	// Missing .env is fine; configuration falls back to real env vars.
	_ = godotenv.Load()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "starguide",
		Short: "Gamified learning platform with AI tutoring and live quiz rooms",
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newSeedCmd())
	return cmd
}
