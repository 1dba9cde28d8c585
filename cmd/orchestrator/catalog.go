package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"investpro/pkg/app"
	"investpro/pkg/config"
	"investpro/services/analysis"
	"investpro/services/market"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the catalog under a filter",
	Long:  "List the catalog under a filter: " + predicateNames(),
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find assets by ticker or name",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run price update cycles and print the resulting catalog",
	Args:  cobra.NoArgs,
	RunE:  runSimulate,
}

func init() {
	listCmd.Flags().String("filter", "all", "filter name")
	simulateCmd.Flags().Int("cycles", 1, "number of update cycles")
	simulateCmd.Flags().Duration("latency", 0, "simulated latency per cycle")
	simulateCmd.Flags().String("filter", "all", "filter applied to the output")
}

func predicateNames() string {
	var names []string
	for _, info := range analysis.Predicates() {
		names = append(names, string(info.Predicate))
	}
	return strings.Join(names, ", ")
}

func runList(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("filter")
	p, err := analysis.ParsePredicate(name)
	if err != nil {
		return err
	}

	a, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	printAssets(cmd.OutOrStdout(), analysis.Filter(a.Session.Snapshot().Assets, p))
	return nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	results := a.Session.Search(strings.Join(args, " "))
	if len(results) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No assets found.")
		return nil
	}
	printAssets(cmd.OutOrStdout(), results)
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	cycles, _ := cmd.Flags().GetInt("cycles")
	if cycles < 1 {
		return fmt.Errorf("cycles must be at least 1")
	}
	name, _ := cmd.Flags().GetString("filter")
	p, err := analysis.ParsePredicate(name)
	if err != nil {
		return err
	}

	applyLatencyFlag(cmd, cfg)

	a, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	for i := 0; i < cycles; i++ {
		if _, err := a.Session.Refresh(cmd.Context()); err != nil {
			return err
		}
		log.Debug().Int("cycle", i+1).Msg("Cycle applied")
	}

	snap := a.Session.Snapshot()
	fmt.Fprintf(cmd.OutOrStdout(), "Snapshot %d at %s\n", snap.Seq, snap.UpdatedAt.Format(time.RFC3339))
	printAssets(cmd.OutOrStdout(), analysis.Filter(snap.Assets, p))
	return nil
}

// applyLatencyFlag overrides SIMULATED_LATENCY only when --latency is given
func applyLatencyFlag(cmd *cobra.Command, c *config.Config) {
	if cmd.Flags().Changed("latency") {
		c.SimulatedLatency, _ = cmd.Flags().GetDuration("latency")
	}
}

func printAssets(w io.Writer, assets []market.Asset) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Ticker", "Name", "Type", "Price", "Change", "DY", "P/VP", "Proj.", "Mkt Cap")

	for _, a := range assets {
		t.Row(
			a.Ticker,
			a.Name,
			a.Kind.Label(),
			market.FormatBRL(a.Price),
			market.FormatSignedPercent(a.ChangePercent),
			market.FormatPercent(a.DividendYield),
			fmt.Sprintf("%.2f", a.PriceToBook),
			market.FormatPercent(a.ProjectedReturn),
			market.FormatCompact(a.MarketCap),
		)
	}

	fmt.Fprintln(w, t.Render())
}
