package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"investpro/pkg/app"
	"investpro/services/dashboard"
)

var insightCmd = &cobra.Command{
	Use:   "insight <ticker>",
	Short: "Generate the AI insight for one asset",
	Args:  cobra.ExactArgs(1),
	RunE:  runInsight,
}

func init() {
	insightCmd.Flags().Bool("raw", false, "print the text without markdown rendering")
}

func runInsight(cmd *cobra.Command, args []string) error {
	ticker := strings.ToUpper(args[0])

	a, err := app.Build(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	asset, ok := a.Session.Snapshot().Lookup(ticker)
	if !ok {
		return fmt.Errorf("%w: %s", dashboard.ErrUnknownTicker, ticker)
	}

	res := a.Requester.RequestInsight(cmd.Context(), asset)
	out := res.Text

	if raw, _ := cmd.Flags().GetBool("raw"); !raw && res.OK() {
		if rendered, err := glamour.Render(res.Text, "dark"); err == nil {
			out = rendered
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s • %s\n%s\n", asset.Ticker, asset.Name, strings.TrimRight(out, "\n"))
	return nil
}
