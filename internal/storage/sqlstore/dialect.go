// Package sqlstore implements interfaces.LedgerStore on database/sql.
// Queries are written once with ? placeholders; a Dialect supplies the
// schema, placeholder style, locking statements and driver error mapping.
package sqlstore

import (
	"database/sql"
	"strconv"
	"strings"
)

// Dialect captures what differs between SQL backends.
type Dialect struct {
	Name string
	// Numbered placeholders ($1, $2, ...) instead of ?.
	Numbered bool
	// Schema statements, run in order by Migrate.
	Schema []string
	// ForUpdate is appended to the balance lock query. Empty when the
	// backend locks at transaction begin.
	ForUpdate string
	// RecomputeLock blocks entry writers for the rest of the transaction.
	RecomputeLock string
	// EntryOrder is the column that orders entries by insertion.
	EntryOrder string
	// UpdateOptions and ViewOptions are passed to BeginTx.
	UpdateOptions *sql.TxOptions
	ViewOptions   *sql.TxOptions
	// Classify maps a driver error to a ledger sentinel, or returns it
	// unchanged.
	Classify func(error) error
}

// Rebind rewrites ? placeholders for the dialect.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (d Dialect) classify(err error) error {
	if err == nil || d.Classify == nil {
		return err
	}
	return d.Classify(err)
}
