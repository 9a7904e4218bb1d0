package store

import (
	"context"

	"github.com/hance08/purse/internal/model"
)

type AccountRepository interface {
	CreateAccount(ctx context.Context, acc *model.Account) error
	GetAccount(ctx context.Context, id string) (*model.Account, error)
	GetAllAccounts(ctx context.Context) ([]*model.Account, error)
	SetAccountActive(ctx context.Context, id string, active bool) error
	TotalBalance(ctx context.Context) (int64, error)

	// GetBalance returns the balance and the version it was read at.
	GetBalance(ctx context.Context, id string) (balance int64, version int64, err error)

	// ApplyDelta is the only balance mutation. It fails with ErrVersionConflict
	// when the account moved past expectedVersion and with ErrInsufficientFunds
	// when the result would be negative.
	ApplyDelta(ctx context.Context, id string, delta int64, expectedVersion int64) (newBalance int64, newVersion int64, err error)
}

// BatchApplier is implemented by stores that can apply several deltas
// atomically. Either every delta is applied or none is.
type BatchApplier interface {
	ApplyDeltas(ctx context.Context, deltas []Delta) ([]DeltaResult, error)
}

type TransactionRepository interface {
	AppendTransaction(ctx context.Context, tx *model.Transaction) error
	GetTransaction(ctx context.Context, id string) (*model.Transaction, error)
	GetTransactionByReference(ctx context.Context, ref string) (*model.Transaction, error)

	// FindByIdempotencyKey matches key against unreleased idempotency keys
	// and reference codes.
	FindByIdempotencyKey(ctx context.Context, key string) (*model.Transaction, error)

	// FinalizeTransaction moves a pending transaction to a terminal status.
	// It fails with ErrAlreadyFinal for anything but a pending record.
	FinalizeTransaction(ctx context.Context, id, status, reason string, released bool) error

	ListTransactions(ctx context.Context, filter TransactionFilter) ([]*model.Transaction, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	SumCompleted(ctx context.Context, kind string) (int64, error)
}

type Repository interface {
	AccountRepository
	TransactionRepository

	Close() error
}
