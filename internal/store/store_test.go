package store

import (
	"errors"
	"fmt"
	"testing"
)

// Compile-time checks that the interfaces are importable and usable.
func TestStoreInterfaceExists(t *testing.T) {
	_ = CreateDepositParams{}
	_ = CompleteWithdrawalParams{}

	var _ Store
	var _ SettlementStore
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	sentinels := []error{
		ErrNotFound,
		ErrEmailTaken,
		ErrInsufficientFunds,
		ErrInvalidAmount,
		ErrInvalidStateTransition,
		ErrDuplicateTransaction,
		ErrConcurrentModification,
	}
	for _, sentinel := range sentinels {
		wrapped := fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", sentinel))
		if !errors.Is(wrapped, sentinel) {
			t.Errorf("errors.Is lost %v through wrapping", sentinel)
		}
		for _, other := range sentinels {
			if other != sentinel && errors.Is(wrapped, other) {
				t.Errorf("%v unexpectedly matches %v", sentinel, other)
			}
		}
	}
}
