package store

import (
	"fmt"
	"math"
	"time"

	"github.com/hance08/purse/internal/constants"
)

// Delta is one version-checked balance movement.
type Delta struct {
	AccountID       string
	Amount          int64
	ExpectedVersion int64
}

// DeltaResult is the state of an account after a delta was applied.
type DeltaResult struct {
	AccountID string
	Balance   int64
	Version   int64
}

// TransactionFilter narrows ListTransactions. Zero values mean "any".
type TransactionFilter struct {
	AccountID string
	Kind      string
	Status    string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// exceedsLimit reports whether crediting delta would push balance past
// MaxBalanceCents. It never computes balance+delta, so it cannot overflow.
func exceedsLimit(balance, delta int64) bool {
	return delta > 0 && balance > constants.MaxBalanceCents-delta
}

// debitFloor is the smallest balance that may still take delta without
// going negative.
func debitFloor(delta int64) int64 {
	switch {
	case delta >= 0:
		return 0
	case delta == math.MinInt64:
		return math.MaxInt64
	default:
		return -delta
	}
}

// creditCeiling is the largest balance that may still take delta.
func creditCeiling(delta int64) int64 {
	if delta <= 0 {
		return constants.MaxBalanceCents
	}
	return constants.MaxBalanceCents - delta
}

// diagnose names the guard a refused delta tripped, in the order NotFound
// (handled by the caller), VersionConflict, BalanceLimit, InsufficientFunds.
func diagnose(id string, balance, version, delta, expectedVersion int64) error {
	switch {
	case version != expectedVersion:
		return fmt.Errorf("account '%s' at version %d, expected %d: %w", id, version, expectedVersion, ErrVersionConflict)
	case exceedsLimit(balance, delta):
		return fmt.Errorf("account '%s': %w", id, ErrBalanceLimit)
	case balance < debitFloor(delta):
		return fmt.Errorf("account '%s': %w", id, ErrInsufficientFunds)
	default:
		return fmt.Errorf("account '%s': update refused for an unknown reason", id)
	}
}

func (f TransactionFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

func (f TransactionFilter) offset() int {
	if f.Offset < 0 {
		return 0
	}
	return f.Offset
}
