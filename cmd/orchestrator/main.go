// Package main provides the InvestPro command line: the HTTP API server and
// one-shot catalog, insight and archive commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"investpro/pkg/config"
	"investpro/pkg/logging"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "orchestrator",
	Short: "InvestPro dashboard server and tools",
	Long: `InvestPro tracks a catalog of B3 stocks and real-estate funds with
simulated (or live) prices, named filters, search and AI insights.

Configuration is read from the environment and, when DATABASE_URL is set,
from the config table of the archive database.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		return logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, listCmd, searchCmd, simulateCmd, insightCmd, historyCmd, statusCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}
