package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"investpro/pkg/app"
	"investpro/services/dashboard"
	"investpro/services/market"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show backing service and archive status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

var historyCmd = &cobra.Command{
	Use:   "history <ticker>",
	Short: "Show archived prices for one asset",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", market.HistoryLength, "number of points")
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	a, err := app.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	a.Prober.Check(ctx)
	fmt.Fprintf(w, "Health:    %s\n", describeHealth(a.Prober))

	insights := "unavailable (API key not configured)"
	if a.Requester.Available() {
		insights = fmt.Sprintf("%s (%s)", cfg.InsightProvider, cfg.InsightLanguage)
	}
	fmt.Fprintf(w, "Insights:  %s\n", insights)

	quotes := "simulated"
	if cfg.BrapiToken != "" {
		quotes = "live (brapi) with simulated fallback"
	}
	fmt.Fprintf(w, "Prices:    %s, refresh every %s\n", quotes, cfg.RefreshInterval)

	if a.DB == nil {
		fmt.Fprintln(w, "Archive:   disabled")
		return nil
	}

	if err := a.DB.HealthCheck(ctx); err != nil {
		fmt.Fprintf(w, "Archive:   down (%v)\n", err)
		return nil
	}

	latest, err := a.Store.LatestRecordedAt(ctx)
	if err != nil {
		fmt.Fprintln(w, "Archive:   ok, no snapshots yet")
		return nil
	}
	fmt.Fprintf(w, "Archive:   ok, last snapshot %s\n", latest.Format(time.RFC3339))
	return nil
}

func describeHealth(p *dashboard.Prober) string {
	status, at := p.Last()
	if at.IsZero() {
		return status.String()
	}
	return fmt.Sprintf("%s (checked %s)", status, at.Format(time.Kitchen))
}

func runHistory(cmd *cobra.Command, args []string) error {
	ticker := strings.ToUpper(args[0])
	limit, _ := cmd.Flags().GetInt("limit")

	a, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Store == nil {
		return fmt.Errorf("archive disabled: DATABASE_URL is not set")
	}

	points, err := a.Store.GetHistory(cmd.Context(), ticker, limit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if len(points) == 0 {
		fmt.Fprintf(w, "No archived prices for %s.\n", ticker)
		return nil
	}
	for _, p := range points {
		fmt.Fprintf(w, "%s  %s\n", p.Time.Format("2006-01-02 15:04:05"), market.FormatBRL(p.Price))
	}
	return nil
}
