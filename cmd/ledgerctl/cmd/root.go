// Package cmd provides CLI commands for ledgerctl.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/app"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/config"
)

var (
	cfgFile string
	debug   bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "ledgerctl",
	Short: "Operate a boarding-house ledger from the command line",
	Long: `ledgerctl runs maintenance tasks against the ledger store selected
by LEDGER_STORE (memory, postgres or sqlite).

Example:
  ledgerctl chart load config/chart.yaml
  ledgerctl balance 10001
  ledgerctl recompute --boarding-house house-a
  ledgerctl check`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logLevel := slog.LevelInfo
		if debug {
			logLevel = slog.LevelDebug
		}

		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(chartCmd)
	rootCmd.AddCommand(balanceCmd)
	rootCmd.AddCommand(recomputeCmd)
	rootCmd.AddCommand(checkCmd)
}

// openApp loads configuration and builds the ledger services. The caller
// closes the returned App.
func openApp(ctx context.Context) *app.App {
	cfg, err := config.Load(cfgFile)
	exitOnError(err, "failed to load configuration")

	a, err := app.New(ctx, cfg, slog.Default())
	exitOnError(err, "failed to open ledger")
	return a
}

func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		slog.Error("failed to close ledger", "error", err)
	}
}

// exitOnError logs err and exits when it is non-nil.
func exitOnError(err error, msg string) {
	if err != nil {
		slog.Error(msg, "error", err)
		fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
		os.Exit(1)
	}
}
