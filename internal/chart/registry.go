// Package chart is the chart of accounts registry.
package chart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
)

// Registry creates, lists and retires accounts. Accounts are never edited:
// a type change would silently flip the sign of every historical entry.
type Registry struct {
	store  interfaces.LedgerStore
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistry creates a Registry backed by store.
func NewRegistry(store interfaces.LedgerStore, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:  store,
		logger: logger.With("component", "chart"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetAccount returns an active account.
func (r *Registry) GetAccount(ctx context.Context, id string) (models.Account, error) {
	var account models.Account
	err := r.store.View(ctx, func(tx interfaces.ReadTx) error {
		a, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if a.Deleted() {
			return fmt.Errorf("%w: %s", ledgererr.ErrAccountNotFound, id)
		}
		account = a
		return nil
	})
	return account, err
}

// ListAccounts returns accounts matching filter, ordered by code.
func (r *Registry) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	var accounts []models.Account
	err := r.store.View(ctx, func(tx interfaces.ReadTx) error {
		var err error
		accounts, err = tx.ListAccounts(ctx, filter)
		return err
	})
	return accounts, err
}

// CreateAccount adds an account. The code must be unique among active accounts.
func (r *Registry) CreateAccount(ctx context.Context, code, name string, typ models.AccountType) (models.Account, error) {
	account, err := r.newAccount(code, name, typ)
	if err != nil {
		return models.Account{}, err
	}

	err = r.store.Update(ctx, func(tx interfaces.Tx) error {
		return insertUnique(ctx, tx, account)
	})
	if err != nil {
		return models.Account{}, err
	}

	r.logger.Info("account created", "account_id", account.ID, "code", account.Code, "type", account.Type.String())
	return account, nil
}

// DeleteAccount soft-deletes an account that no journal entry references.
func (r *Registry) DeleteAccount(ctx context.Context, id string) error {
	err := r.store.Update(ctx, func(tx interfaces.Tx) error {
		account, err := tx.GetAccount(ctx, id)
		if err != nil {
			return err
		}
		if account.Deleted() {
			return fmt.Errorf("%w: %s", ledgererr.ErrAccountNotFound, id)
		}

		// Same row lock the ledger takes before posting to the account.
		if err := tx.LockBalances(ctx, []string{id}); err != nil {
			return err
		}
		inUse, err := tx.AccountReferenced(ctx, id)
		if err != nil {
			return err
		}
		if inUse {
			return fmt.Errorf("%w: %s (%s)", ledgererr.ErrAccountInUse, account.Code, id)
		}
		return tx.SoftDeleteAccount(ctx, id, r.now())
	})
	if err != nil {
		return err
	}

	r.logger.Info("account deleted", "account_id", id)
	return nil
}

func (r *Registry) newAccount(code, name string, typ models.AccountType) (models.Account, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" {
		return models.Account{}, fmt.Errorf("%w: code", ledgererr.ErrMissingField)
	}
	if name == "" {
		return models.Account{}, fmt.Errorf("%w: name", ledgererr.ErrMissingField)
	}
	if !typ.Valid() {
		return models.Account{}, fmt.Errorf("%w: %d", ledgererr.ErrInvalidAccountType, uint8(typ))
	}

	return models.Account{
		ID:        uuid.NewString(),
		Code:      code,
		Name:      name,
		Type:      typ,
		CreatedAt: r.now(),
	}, nil
}

func insertUnique(ctx context.Context, tx interfaces.Tx, account models.Account) error {
	existing, err := tx.FindAccountByCode(ctx, account.Code)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s is %s", ledgererr.ErrDuplicateCode, existing.Code, existing.Name)
	case !errors.Is(err, ledgererr.ErrAccountNotFound):
		return err
	}
	return tx.InsertAccount(ctx, account)
}
