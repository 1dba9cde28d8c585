// Package main provides the terminal dashboard for InvestPro.
// Built with Bubble Tea and Lip Gloss.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"investpro/pkg/app"
	"investpro/pkg/config"
	"investpro/pkg/logging"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// the alt screen owns stdout, so logs go to a file
	logFile, err := logging.SetupFile(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to start dashboard")
		fmt.Fprintf(os.Stderr, "Failed to start dashboard: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	p := tea.NewProgram(newModel(a.Session, a.Prober, cfg.RefreshInterval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
