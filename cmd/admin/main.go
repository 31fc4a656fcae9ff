// Command admin runs operator tasks against the dispute database: schema
// migration, API key issuance, the reminder sweep, statistics export and
// token minting.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"arbitra/internal/config"
	"arbitra/internal/repositories"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var Version = "dev"

func main() {
	config.LoadEnv()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "arbitra-admin",
		Short:         "Operator tasks for the arbitra dispute service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(apiKeyCmd())
	rootCmd.AddCommand(deactivateAPIKeyCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(tokenCmd())

	return rootCmd
}

// withDB opens the database for the duration of fn.
func withDB(ctx context.Context, fn func(db *gorm.DB) error) error {
	db, err := repositories.Connect(ctx, config.Load().Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			slog.Warn("failed to close database", "module", "admin", "error", err)
		}
	}()
	return fn(db)
}
