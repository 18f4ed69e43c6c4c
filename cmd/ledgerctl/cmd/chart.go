package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Manage the chart of accounts",
}

var chartLoadCmd = &cobra.Command{
	Use:   "load [file]",
	Short: "Seed accounts from a YAML chart file",
	Long: `Seed accounts from a YAML chart file in one atomic unit.

Accounts whose code already exists with the same type are skipped.
A code that exists with a different type aborts the whole load.
Without an argument the file named by LEDGER_CHART_FILE is used.

Example:
  ledgerctl chart load config/chart.yaml`,
	Args: cobra.MaximumNArgs(1),
	Run:  runChartLoad,
}

var chartListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active accounts",
	Run:   runChartList,
}

func init() {
	chartCmd.AddCommand(chartLoadCmd)
	chartCmd.AddCommand(chartListCmd)
}

func runChartLoad(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer closeApp(a)

	path := a.Config.Ledger.ChartFile
	if len(args) == 1 {
		path = args[0]
	}
	if path == "" {
		exitOnError(fmt.Errorf("no chart file given and LEDGER_CHART_FILE is unset"), "nothing to load")
	}

	res, err := a.Registry.LoadChart(ctx, path)
	exitOnError(err, "failed to load chart")

	fmt.Printf("Created: %d\n", len(res.Created))
	fmt.Printf("Skipped: %d\n", len(res.Skipped))
	slog.Info("chart loaded", "file", path)
}

func runChartList(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer closeApp(a)

	accounts, err := a.Registry.ListAccounts(ctx, models.AccountFilter{})
	exitOnError(err, "failed to list accounts")

	for _, acc := range accounts {
		fmt.Printf("%-8s %-10s %s  (%s)\n", acc.Code, acc.Type, acc.Name, acc.ID)
	}
}
