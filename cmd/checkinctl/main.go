// Package main is the operator CLI for the check-in backend: reindex, confirmations, exports,
// icon seeding, migrations and API key hashing.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/PittChallenge/pittchallenge.com/config"
	"github.com/PittChallenge/pittchallenge.com/internal/app"
)

var Version = "dev"

var verbose bool

func main() {
	rootCmd := &cobra.Command{
		Use:           "checkinctl",
		Short:         "Operate the registration and check-in store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(reindexCmd())
	rootCmd.AddCommand(sendConfirmationsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(seedIconsCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(hashKeyCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func cliLogger() *zap.Logger {
	if verbose {
		return app.NewLogger()
	}
	return zap.NewNop()
}

// openApp loads configuration and wires the services for one command.
func openApp(ctx context.Context) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, cliLogger())
}
