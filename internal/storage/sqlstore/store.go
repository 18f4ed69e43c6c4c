package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sheikh-saqib/boarding-house-ledger/internal/interfaces"
)

// Store is a LedgerStore over one or two connection pools. Writes go to db;
// reads go to readDB, which may be the same pool.
type Store struct {
	db      *sql.DB
	readDB  *sql.DB
	dialect Dialect
}

// New creates a Store. A nil readDB means reads share db.
func New(db, readDB *sql.DB, dialect Dialect) *Store {
	if readDB == nil {
		readDB = db
	}
	return &Store{db: db, readDB: readDB, dialect: dialect}
}

// Dialect returns the store's dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range s.dialect.Schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}

// Update runs fn in one database transaction and commits if it returns nil.
func (s *Store) Update(ctx context.Context, fn func(tx interfaces.Tx) error) (err error) {
	dbTx, err := s.db.BeginTx(ctx, s.dialect.UpdateOptions)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", s.dialect.classify(err))
	}

	defer func() {
		if p := recover(); p != nil {
			_ = dbTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&sqlTx{tx: dbTx, d: s.dialect}); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := dbTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", s.dialect.classify(err))
	}
	return nil
}

// View runs fn in a read-only transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(tx interfaces.ReadTx) error) error {
	dbTx, err := s.readDB.BeginTx(ctx, s.dialect.ViewOptions)
	if err != nil {
		return fmt.Errorf("failed to begin read transaction: %w", s.dialect.classify(err))
	}
	defer dbTx.Rollback() //nolint:errcheck

	return fn(&sqlTx{tx: dbTx, d: s.dialect})
}

// Close closes both pools.
func (s *Store) Close() error {
	err := s.db.Close()
	if s.readDB != s.db {
		if rErr := s.readDB.Close(); err == nil {
			err = rErr
		}
	}
	return err
}

var _ interfaces.LedgerStore = (*Store)(nil)
