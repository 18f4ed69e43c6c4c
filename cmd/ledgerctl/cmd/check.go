package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run the reconciliation checks",
	Long: `Verify that total debits equal total credits and that every
materialized balance matches a fresh recompute. Exits with status 2
when the ledger is inconsistent.

Example:
  ledgerctl check`,
	Args: cobra.NoArgs,
	Run:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a := openApp(ctx)

	report, err := a.Checker.Run(ctx)
	if err != nil && !errors.Is(err, ledgererr.ErrConsistencyFault) {
		closeApp(a)
		exitOnError(err, "failed to run reconciliation")
	}

	cur := a.Config.Ledger.Currency
	tb := report.TrialBalance
	fmt.Println("\n=== Trial Balance ===")
	fmt.Printf("Total debits:  %s\n", tb.TotalDebits.Format(cur))
	fmt.Printf("Total credits: %s\n", tb.TotalCredits.Format(cur))
	fmt.Printf("Balanced:      %t\n", tb.Balanced)

	fmt.Println("\n=== Account Drift ===")
	if len(report.Drift) == 0 {
		fmt.Println("(none)")
	}
	for _, d := range report.Drift {
		fmt.Printf("%s  materialized %s  recomputed %s  drift %s\n",
			d.AccountID,
			d.MaterializedBalance.Format(cur),
			d.RecomputedBalance.Format(cur),
			d.Drift.Format(cur))
	}
	fmt.Println()

	closeApp(a)
	if !report.Healthy() {
		os.Exit(2)
	}
}
