// Package ledgererr defines the error taxonomy shared by every ledger component.
//
// Errors carry a Kind that tells the caller how to react: validation and
// reference errors are rejected before any write and must be fixed by the
// caller, concurrency conflicts are retried, consistency faults are reported
// to an operator and never corrected automatically.
package ledgererr

import (
	"errors"
)

// Kind classifies a ledger error.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindValidation
	KindReference
	KindConcurrency
	KindConsistency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindReference:
		return "reference"
	case KindConcurrency:
		return "concurrency"
	case KindConsistency:
		return "consistency"
	default:
		return "unknown"
	}
}

// Error is a classified sentinel. Wrap it with fmt.Errorf("%w: ...") to add detail.
type Error struct {
	kind Kind
	msg  string
}

// New creates a sentinel of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Kind returns the classification of the sentinel.
func (e *Error) Kind() Kind { return e.kind }

// Validation errors.
var (
	ErrTooFewEntries         = New(KindValidation, "transaction needs at least two entries")
	ErrNonPositiveAmount     = New(KindValidation, "entry amount must be positive")
	ErrUnbalancedTransaction = New(KindValidation, "total debits do not equal total credits")
	ErrInvalidEntryKind      = New(KindValidation, "entry kind must be debit or credit")
	ErrInvalidAccountType    = New(KindValidation, "invalid account type")
	ErrInvalidAmount         = New(KindValidation, "invalid monetary amount")
	ErrMissingField          = New(KindValidation, "missing required field")
	ErrInvalidDate           = New(KindValidation, "date must be YYYY-MM-DD")
	ErrInvalidCurrency       = New(KindValidation, "currency does not match the ledger currency")
	ErrIdempotencyConflict   = New(KindValidation, "idempotency key already used for a different transaction")
	ErrDuplicateCode         = New(KindValidation, "account code already exists")
	ErrAccountInUse          = New(KindValidation, "account is referenced by journal entries")
	ErrChartConflict         = New(KindValidation, "chart entry conflicts with existing account")
)

// Reference errors.
var (
	ErrInvalidAccount      = New(KindReference, "entry references an unknown or deleted account")
	ErrAccountNotFound     = New(KindReference, "account not found")
	ErrTransactionNotFound = New(KindReference, "transaction not found")
	ErrAlreadyVoided       = New(KindReference, "transaction already voided")
)

var (
	ErrConcurrencyConflict = New(KindConcurrency, "concurrent update conflict")
	ErrConsistencyFault    = New(KindConsistency, "ledger consistency check failed")
)

// KindOf returns the kind of the first classified error in err's chain.
func KindOf(err error) Kind {
	var le *Error
	if errors.As(err, &le) {
		return le.kind
	}
	return KindUnknown
}

// Is reports whether err is classified with the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
