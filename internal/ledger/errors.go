package ledger

import "errors"

var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidDescription   = errors.New("invalid description")
	ErrSelfTransfer         = errors.New("self transfer not allowed")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountInactive      = errors.New("account inactive")
	ErrBalanceLimit         = errors.New("balance limit exceeded")
	ErrConflictRetryable    = errors.New("concurrent update, retry the transfer")
	ErrReferenceUnavailable = errors.New("reference code unavailable")
	ErrInternalFailure      = errors.New("internal failure, ledger requires reconciliation")
)

const (
	CodeInvalidAmount        = "invalid_amount"
	CodeInvalidDescription   = "invalid_description"
	CodeSelfTransfer         = "self_transfer_not_allowed"
	CodeInsufficientFunds    = "insufficient_funds"
	CodeAccountNotFound      = "account_not_found"
	CodeAccountInactive      = "account_inactive"
	CodeBalanceLimit         = "balance_limit_exceeded"
	CodeConflictRetryable    = "conflict_retryable"
	CodeReferenceUnavailable = "reference_unavailable"
	CodeInternalFailure      = "internal_failure"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrInvalidAmount, CodeInvalidAmount},
	{ErrInvalidDescription, CodeInvalidDescription},
	{ErrSelfTransfer, CodeSelfTransfer},
	{ErrInsufficientFunds, CodeInsufficientFunds},
	{ErrAccountNotFound, CodeAccountNotFound},
	{ErrAccountInactive, CodeAccountInactive},
	{ErrBalanceLimit, CodeBalanceLimit},
	{ErrConflictRetryable, CodeConflictRetryable},
	{ErrReferenceUnavailable, CodeReferenceUnavailable},
	{ErrInternalFailure, CodeInternalFailure},
}

// Code returns the stable code stored as the failure reason of a failed
// transaction. Errors outside the ledger taxonomy map to internal_failure.
func Code(err error) string {
	if err == nil {
		return ""
	}
	for _, c := range errorCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return CodeInternalFailure
}

// ErrorFromCode rebuilds the sentinel for a stored failure reason.
func ErrorFromCode(code string) error {
	if code == "" {
		return nil
	}
	for _, c := range errorCodes {
		if c.code == code {
			return c.err
		}
	}
	return ErrInternalFailure
}

// IsRetryable reports whether the whole transfer may be attempted again with
// the same idempotency key.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflictRetryable)
}
