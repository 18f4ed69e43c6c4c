package ledgererr

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"sentinel", ErrUnbalancedTransaction, KindValidation},
		{"wrapped", fmt.Errorf("%w: account 42", ErrInvalidAccount), KindReference},
		{"double wrapped", fmt.Errorf("post: %w", fmt.Errorf("%w: row lock", ErrConcurrencyConflict)), KindConcurrency},
		{"consistency", ErrConsistencyFault, KindConsistency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryStopsOnNonConcurrencyError(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), 5, func(context.Context) error {
		calls++
		return ErrUnbalancedTransaction
	})
	if !errors.Is(err, ErrUnbalancedTransaction) {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestRetryRetriesConflicts(t *testing.T) {
	old := RetryBackoff
	RetryBackoff = time.Millisecond
	defer func() { RetryBackoff = old }()

	calls := 0
	err := Retry(context.Background(), 3, func(context.Context) error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: deadlock", ErrConcurrencyConflict)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}

	calls = 0
	err = Retry(context.Background(), 2, func(context.Context) error {
		calls++
		return ErrConcurrencyConflict
	})
	if !errors.Is(err, ErrConcurrencyConflict) || calls != 2 {
		t.Errorf("Retry() = %v after %d calls, want conflict after 2", err, calls)
	}
}
