package store

import "errors"

var (
	ErrAccountExists       = errors.New("account already exists")
	ErrAccountNotFound     = errors.New("account not found")
	ErrRecordNotFound      = errors.New("record not found")
	ErrVersionConflict     = errors.New("account version conflict")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrBalanceLimit        = errors.New("balance limit exceeded")
	ErrDuplicateKey        = errors.New("idempotency key already in use")
	ErrDuplicateReference  = errors.New("reference code already in use")
	ErrAlreadyFinal        = errors.New("transaction already in a terminal status")
	ErrConstraintViolation = errors.New("database constraint violation")
)
