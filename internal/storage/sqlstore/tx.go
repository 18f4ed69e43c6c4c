package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/ledgererr"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/models"
	"github.com/sheikh-saqib/boarding-house-ledger/internal/money"
)

const (
	accountColumns     = `id, code, name, type, created_at, deleted_at`
	transactionColumns = `id, type, amount, currency, date, reference, description, boarding_house_id, idempotency_key, created_at, deleted_at`
	entryColumns       = `id, transaction_id, account_id, kind, amount, description, created_at, deleted_at`
	balanceColumns     = `account_id, balance, total_debits, total_credits, entry_count, updated_at`

	// scopeSubquery selects the accounts touched by a boarding house.
	scopeSubquery = `SELECT se.account_id FROM journal_entries se
		JOIN transactions st ON st.id = se.transaction_id
		WHERE st.boarding_house_id = ?`
)

type sqlTx struct {
	tx *sql.Tx
	d  Dialect
}

func (t *sqlTx) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	res, err := t.tx.ExecContext(ctx, t.d.Rebind(query), args...)
	return res, t.d.classify(err)
}

func (t *sqlTx) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := t.tx.QueryContext(ctx, t.d.Rebind(query), args...)
	return rows, t.d.classify(err)
}

func (t *sqlTx) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.d.Rebind(query), args...)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (models.Account, error) {
	var (
		a       models.Account
		typ     string
		deleted sql.NullTime
	)
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &typ, &a.CreatedAt, &deleted); err != nil {
		return models.Account{}, err
	}
	parsed, err := models.ParseAccountType(typ)
	if err != nil {
		return models.Account{}, fmt.Errorf("account %s: %w", a.ID, err)
	}
	a.Type = parsed
	a.DeletedAt = nullTime(deleted)
	return a, nil
}

func scanTransaction(row scanner) (models.Transaction, error) {
	var (
		txn     models.Transaction
		date    string
		key     sql.NullString
		deleted sql.NullTime
	)
	err := row.Scan(&txn.ID, &txn.Type, (*int64)(&txn.Amount), &txn.Currency, &date,
		&txn.Reference, &txn.Description, &txn.BoardingHouseID, &key, &txn.CreatedAt, &deleted)
	if err != nil {
		return models.Transaction{}, err
	}
	if txn.Date, err = time.Parse(models.DateLayout, date); err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s date: %w", txn.ID, err)
	}
	txn.IdempotencyKey = key.String
	txn.DeletedAt = nullTime(deleted)
	return txn, nil
}

func scanEntry(row scanner) (models.JournalEntry, error) {
	var (
		e       models.JournalEntry
		kind    string
		deleted sql.NullTime
	)
	err := row.Scan(&e.ID, &e.TransactionID, &e.AccountID, &kind, (*int64)(&e.Amount), &e.Description, &e.CreatedAt, &deleted)
	if err != nil {
		return models.JournalEntry{}, err
	}
	if e.Kind, err = models.ParseEntryKind(kind); err != nil {
		return models.JournalEntry{}, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	e.DeletedAt = nullTime(deleted)
	return e, nil
}

func scanBalance(row scanner) (models.AccountBalance, error) {
	var b models.AccountBalance
	err := row.Scan(&b.AccountID, (*int64)(&b.Balance), (*int64)(&b.TotalDebits), (*int64)(&b.TotalCredits), &b.EntryCount, &b.UpdatedAt)
	return b, err
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (t *sqlTx) GetAccount(ctx context.Context, id string) (models.Account, error) {
	a, err := scanAccount(t.queryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("%w: %s", ledgererr.ErrAccountNotFound, id)
	}
	return a, t.d.classify(err)
}

func (t *sqlTx) FindAccountByCode(ctx context.Context, code string) (models.Account, error) {
	a, err := scanAccount(t.queryRow(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE code = ? AND deleted_at IS NULL`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, fmt.Errorf("%w: code %s", ledgererr.ErrAccountNotFound, code)
	}
	return a, t.d.classify(err)
}

func (t *sqlTx) ListAccounts(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	var (
		where []string
		args  []any
	)
	if !filter.IncludeDeleted {
		where = append(where, `deleted_at IS NULL`)
	}
	if filter.Type != models.AccountTypeUnknown {
		where = append(where, `type = ?`)
		args = append(args, filter.Type.String())
	}
	if filter.CodePrefix != "" {
		where = append(where, `substr(code, 1, ?) = ?`)
		args = append(args, len(filter.CodePrefix), filter.CodePrefix)
	}

	q := `SELECT ` + accountColumns + ` FROM accounts` + whereClause(where) + ` ORDER BY code, id`
	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (t *sqlTx) AccountReferenced(ctx context.Context, accountID string) (bool, error) {
	var used bool
	err := t.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE account_id = ?)`, accountID).Scan(&used)
	return used, t.d.classify(err)
}

func (t *sqlTx) GetTransaction(ctx context.Context, id string) (models.Transaction, error) {
	txn, err := scanTransaction(t.queryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, fmt.Errorf("%w: %s", ledgererr.ErrTransactionNotFound, id)
	}
	return txn, t.d.classify(err)
}

func (t *sqlTx) FindTransactionByIdempotencyKey(ctx context.Context, key string) (models.Transaction, error) {
	txn, err := scanTransaction(t.queryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key = ?`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Transaction{}, fmt.Errorf("%w: idempotency key %s", ledgererr.ErrTransactionNotFound, key)
	}
	return txn, t.d.classify(err)
}

func (t *sqlTx) ListEntries(ctx context.Context, filter models.EntryFilter) ([]models.JournalEntry, error) {
	var (
		where []string
		args  []any
	)
	if filter.AccountID != "" {
		where = append(where, `account_id = ?`)
		args = append(args, filter.AccountID)
	}
	if filter.TransactionID != "" {
		where = append(where, `transaction_id = ?`)
		args = append(args, filter.TransactionID)
	}
	if !filter.IncludeVoided {
		where = append(where, `deleted_at IS NULL`)
	}

	q := `SELECT ` + entryColumns + ` FROM journal_entries` + whereClause(where) + ` ORDER BY ` + t.d.EntryOrder
	if filter.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var out []models.JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (t *sqlTx) GetBalance(ctx context.Context, accountID string) (models.AccountBalance, bool, error) {
	b, err := scanBalance(t.queryRow(ctx, `SELECT `+balanceColumns+` FROM account_balances WHERE account_id = ?`, accountID))
	if errors.Is(err, sql.ErrNoRows) {
		return models.AccountBalance{}, false, nil
	}
	if err != nil {
		return models.AccountBalance{}, false, t.d.classify(err)
	}
	return b, true, nil
}

func (t *sqlTx) ListBalances(ctx context.Context) ([]models.AccountBalance, error) {
	rows, err := t.query(ctx, `SELECT `+balanceColumns+` FROM account_balances ORDER BY account_id`)
	if err != nil {
		return nil, fmt.Errorf("list balances: %w", err)
	}
	defer rows.Close()

	var out []models.AccountBalance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (t *sqlTx) AggregateEntries(ctx context.Context, scope models.Scope) ([]models.EntryAggregate, error) {
	q := `SELECT e.account_id, a.type, e.kind,
			SUM(CASE WHEN e.deleted_at IS NULL THEN e.amount ELSE 0 END),
			SUM(CASE WHEN e.deleted_at IS NULL THEN 1 ELSE 0 END)
		FROM journal_entries e
		JOIN accounts a ON a.id = e.account_id
		WHERE a.deleted_at IS NULL`
	var args []any
	if !scope.All() {
		q += ` AND e.account_id IN (` + scopeSubquery + `)`
		args = append(args, scope.BoardingHouseID)
	}
	q += ` GROUP BY e.account_id, a.type, e.kind ORDER BY e.account_id, e.kind`

	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate entries: %w", err)
	}
	defer rows.Close()

	var out []models.EntryAggregate
	for rows.Next() {
		var (
			agg       models.EntryAggregate
			typ, kind string
		)
		if err := rows.Scan(&agg.AccountID, &typ, &kind, (*int64)(&agg.Sum), &agg.Count); err != nil {
			return nil, err
		}
		if agg.AccountType, err = models.ParseAccountType(typ); err != nil {
			return nil, err
		}
		if agg.Kind, err = models.ParseEntryKind(kind); err != nil {
			return nil, err
		}
		out = append(out, agg)
	}
	return out, rows.Err()
}

func (t *sqlTx) EntryTotals(ctx context.Context) (money.Amount, money.Amount, error) {
	var debits, credits int64
	err := t.queryRow(ctx, `SELECT
			COALESCE(SUM(CASE WHEN kind = 'debit' THEN amount ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = 'credit' THEN amount ELSE 0 END), 0)
		FROM journal_entries WHERE deleted_at IS NULL`).Scan(&debits, &credits)
	if err != nil {
		return 0, 0, fmt.Errorf("sum entries: %w", t.d.classify(err))
	}
	return money.Amount(debits), money.Amount(credits), nil
}

func (t *sqlTx) InsertAccount(ctx context.Context, a models.Account) error {
	_, err := t.exec(ctx, `INSERT INTO accounts (`+accountColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.Code, a.Name, a.Type.String(), a.CreatedAt, a.DeletedAt)
	if err != nil {
		return fmt.Errorf("insert account %s: %w", a.Code, err)
	}
	return nil
}

func (t *sqlTx) SoftDeleteAccount(ctx context.Context, id string, at time.Time) error {
	res, err := t.exec(ctx, `UPDATE accounts SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("delete account %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ledgererr.ErrAccountNotFound, id)
	}
	return nil
}

func (t *sqlTx) InsertTransaction(ctx context.Context, txn models.Transaction) error {
	_, err := t.exec(ctx, `INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, txn.Type, int64(txn.Amount), txn.Currency, txn.Date.Format(models.DateLayout),
		txn.Reference, txn.Description, txn.BoardingHouseID, nullString(txn.IdempotencyKey),
		txn.CreatedAt, txn.DeletedAt)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", txn.ID, err)
	}
	return nil
}

func (t *sqlTx) InsertEntry(ctx context.Context, e models.JournalEntry) error {
	_, err := t.exec(ctx, `INSERT INTO journal_entries (`+entryColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TransactionID, e.AccountID, e.Kind.String(), int64(e.Amount), e.Description, e.CreatedAt, e.DeletedAt)
	if err != nil {
		return fmt.Errorf("insert entry %s: %w", e.ID, err)
	}
	return nil
}

func (t *sqlTx) VoidTransaction(ctx context.Context, id string, at time.Time) error {
	res, err := t.exec(ctx, `UPDATE transactions SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, at, id)
	if err != nil {
		return fmt.Errorf("void transaction %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		if _, err := t.GetTransaction(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ledgererr.ErrAlreadyVoided, id)
	}

	if _, err := t.exec(ctx, `UPDATE journal_entries SET deleted_at = ? WHERE transaction_id = ? AND deleted_at IS NULL`, at, id); err != nil {
		return fmt.Errorf("void entries of %s: %w", id, err)
	}
	return nil
}

func (t *sqlTx) LockBalances(ctx context.Context, accountIDs []string) error {
	if len(accountIDs) == 0 {
		return nil
	}

	now := time.Now().UTC()
	for _, id := range accountIDs {
		_, err := t.exec(ctx, `INSERT INTO account_balances (`+balanceColumns+`)
			VALUES (?, 0, 0, 0, 0, ?) ON CONFLICT (account_id) DO NOTHING`, id, now)
		if err != nil {
			return fmt.Errorf("seed balance %s: %w", id, err)
		}
	}
	if t.d.ForUpdate == "" {
		return nil
	}

	args := make([]any, len(accountIDs))
	for i, id := range accountIDs {
		args[i] = id
	}
	q := `SELECT account_id FROM account_balances WHERE account_id IN (` + placeholders(len(accountIDs)) +
		`) ORDER BY account_id ` + t.d.ForUpdate
	rows, err := t.query(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("lock balances: %w", err)
	}
	defer rows.Close()

	var locked int
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		locked++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("lock balances: %w", t.d.classify(err))
	}
	if locked != len(accountIDs) {
		return fmt.Errorf("%w: locked %d of %d balance rows", ledgererr.ErrConcurrencyConflict, locked, len(accountIDs))
	}
	return nil
}

func (t *sqlTx) LockForRecompute(ctx context.Context) error {
	if t.d.RecomputeLock == "" {
		return nil
	}
	if _, err := t.exec(ctx, t.d.RecomputeLock); err != nil {
		return fmt.Errorf("lock for recompute: %w", err)
	}
	return nil
}

func (t *sqlTx) PutBalance(ctx context.Context, b models.AccountBalance) error {
	_, err := t.exec(ctx, `INSERT INTO account_balances (`+balanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (account_id) DO UPDATE SET
			balance = excluded.balance,
			total_debits = excluded.total_debits,
			total_credits = excluded.total_credits,
			entry_count = excluded.entry_count,
			updated_at = excluded.updated_at`,
		b.AccountID, int64(b.Balance), int64(b.TotalDebits), int64(b.TotalCredits), b.EntryCount, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("put balance %s: %w", b.AccountID, err)
	}
	return nil
}

func (t *sqlTx) DeleteBalances(ctx context.Context, scope models.Scope) error {
	q := `DELETE FROM account_balances`
	var args []any
	if !scope.All() {
		q += ` WHERE account_id IN (` + scopeSubquery + `)`
		args = append(args, scope.BoardingHouseID)
	}
	if _, err := t.exec(ctx, q, args...); err != nil {
		return fmt.Errorf("delete balances: %w", err)
	}
	return nil
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return ` WHERE ` + strings.Join(conds, ` AND `)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

var _ interfaces.Tx = (*sqlTx)(nil)
