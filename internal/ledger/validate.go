package ledger

import (
	"fmt"
	"strings"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
)

// validate checks everything about a request that needs no store access
// and returns the debit total. The ledger holds a single currency.
func validate(req models.PostRequest, currency string) (money.Amount, error) {
	if strings.TrimSpace(req.Type) == "" {
		return 0, fmt.Errorf("%w: type", ledgererr.ErrMissingField)
	}
	if req.Date.IsZero() {
		return 0, fmt.Errorf("%w: date", ledgererr.ErrMissingField)
	}
	if c := strings.TrimSpace(req.Currency); c != "" && !strings.EqualFold(c, currency) {
		return 0, fmt.Errorf("%w: got %q, ledger keeps %s", ledgererr.ErrInvalidCurrency, req.Currency, currency)
	}
	if req.Amount < 0 {
		return 0, fmt.Errorf("%w: header amount %d", ledgererr.ErrNonPositiveAmount, req.Amount)
	}
	if len(req.Entries) < 2 {
		return 0, fmt.Errorf("%w: got %d", ledgererr.ErrTooFewEntries, len(req.Entries))
	}

	var debits, credits money.Amount
	for i, e := range req.Entries {
		if e.AccountID == "" {
			return 0, fmt.Errorf("%w: entry %d has no account", ledgererr.ErrInvalidAccount, i)
		}
		if e.Amount <= 0 {
			return 0, fmt.Errorf("%w: entry %d amount %d", ledgererr.ErrNonPositiveAmount, i, e.Amount)
		}

		var ok bool
		switch e.Kind {
		case models.EntryDebit:
			debits, ok = money.Add(debits, e.Amount)
		case models.EntryCredit:
			credits, ok = money.Add(credits, e.Amount)
		default:
			return 0, fmt.Errorf("%w: entry %d", ledgererr.ErrInvalidEntryKind, i)
		}
		if !ok {
			return 0, fmt.Errorf("%w: entry totals overflow", ledgererr.ErrInvalidAmount)
		}
	}

	if debits != credits {
		return 0, fmt.Errorf("%w: debits %d, credits %d", ledgererr.ErrUnbalancedTransaction, debits, credits)
	}
	return debits, nil
}

// samePayload reports whether req describes the transaction already stored
// under its idempotency key. Entries are compared as a multiset.
func samePayload(req models.PostRequest, debits money.Amount, txn models.Transaction, entries []models.JournalEntry) bool {
	amount := req.Amount
	if amount == 0 {
		amount = debits
	}
	if strings.TrimSpace(req.Type) != txn.Type ||
		amount != txn.Amount ||
		!dateOnly(req.Date).Equal(txn.Date) ||
		req.BoardingHouseID != txn.BoardingHouseID ||
		len(req.Entries) != len(entries) {
		return false
	}

	type line struct {
		account string
		kind    models.EntryKind
		amount  money.Amount
	}
	stored := make(map[line]int, len(entries))
	for _, e := range entries {
		stored[line{e.AccountID, e.Kind, e.Amount}]++
	}
	for _, in := range req.Entries {
		k := line{in.AccountID, in.Kind, in.Amount}
		if stored[k] == 0 {
			return false
		}
		stored[k]--
	}
	return true
}
