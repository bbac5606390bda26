// Command marketsynth generates synthetic enriched market data and serves
// it over HTTP.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"marketsynth/config"
	"marketsynth/internal/logger"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:           "marketsynth",
	Short:         "Synthetic OHLCV generator with technical indicators",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		logger.Init("marketsynth-"+cmd.Name(), logger.ParseLevel(cfg.LogLevel))
		return nil
	},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rootCmd.AddCommand(generateCmd(), serveCmd())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slog.Error("marketsynth failed", "error", err)
		stop()
		os.Exit(1)
	}
}
