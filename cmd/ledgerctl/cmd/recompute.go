package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/projector"
)

var boardingHouse string

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "Rebuild materialized balances from journal entries",
	Long: `Rebuild materialized balances from the active journal entries.

With --boarding-house only the accounts touched by that boarding house
are rebuilt, each from its full history. Entry writers are blocked while
the rebuild runs.

Example:
  ledgerctl recompute
  ledgerctl recompute --boarding-house house-a`,
	Args: cobra.NoArgs,
	Run:  runRecompute,
}

func init() {
	recomputeCmd.Flags().StringVar(&boardingHouse, "boarding-house", "", "limit the rebuild to one boarding house")
}

func runRecompute(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer closeApp(a)

	scope := models.Scope{BoardingHouseID: boardingHouse}
	var res projector.RecomputeResult
	err := ledgererr.Retry(ctx, a.Config.Ledger.RetryAttempts, func(ctx context.Context) error {
		var err error
		res, err = a.Projector.RecomputeAll(ctx, scope)
		return err
	})
	exitOnError(err, "failed to recompute balances")

	if scope.All() {
		fmt.Printf("Rebuilt %d account balances\n", res.Accounts)
	} else {
		fmt.Printf("Rebuilt %d account balances for %s\n", res.Accounts, scope.BoardingHouseID)
	}
	slog.Info("recompute finished", "accounts", res.Accounts, "boarding_house", boardingHouse)
}
