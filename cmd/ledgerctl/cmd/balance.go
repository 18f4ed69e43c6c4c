package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/chart"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
)

var balanceCmd = &cobra.Command{
	Use:   "balance <account-id|code>",
	Short: "Show the materialized balance of an account",
	Long: `Show the materialized balance of an account, looked up by id or by
chart code.

Example:
  ledgerctl balance 10001`,
	Args: cobra.ExactArgs(1),
	Run:  runBalance,
}

func runBalance(cmd *cobra.Command, args []string) {
	ctx := cmd.Context()
	a := openApp(ctx)
	defer closeApp(a)

	account, err := resolveAccount(ctx, a.Registry, args[0])
	exitOnError(err, "failed to find account")

	bal, err := a.Projector.GetAccountBalance(ctx, account.ID)
	exitOnError(err, "failed to read balance")

	cur := a.Config.Ledger.Currency
	fmt.Printf("Account:       %s %s (%s)\n", account.Code, account.Name, account.Type)
	fmt.Printf("Balance:       %s %s\n", bal.Balance.Format(cur), cur)
	fmt.Printf("Total debits:  %s\n", bal.TotalDebits.Format(cur))
	fmt.Printf("Total credits: %s\n", bal.TotalCredits.Format(cur))
	fmt.Printf("Entries:       %d\n", bal.EntryCount)
}

// resolveAccount finds an active account by id, falling back to its code.
func resolveAccount(ctx context.Context, reg *chart.Registry, key string) (models.Account, error) {
	account, err := reg.GetAccount(ctx, key)
	if err == nil || !errors.Is(err, ledgererr.ErrAccountNotFound) {
		return account, err
	}

	accounts, err := reg.ListAccounts(ctx, models.AccountFilter{CodePrefix: key})
	if err != nil {
		return models.Account{}, err
	}
	for _, acc := range accounts {
		if acc.Code == key {
			return acc, nil
		}
	}
	return models.Account{}, fmt.Errorf("%w: %s", ledgererr.ErrAccountNotFound, key)
}
