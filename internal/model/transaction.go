package model

import (
	"time"

	"github.com/hance08/purse/internal/constants"
)

type Transaction struct {
	ID             string
	SenderID       *string
	ReceiverID     string
	Amount         int64
	Kind           string
	Status         string
	Description    string
	Reference      string
	IdempotencyKey string
	FailureReason  string
	// Released marks a failed attempt whose idempotency key may be reused.
	Released  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (t *Transaction) IsTopUp() bool {
	return t.Kind == constants.KindTopUp
}

func (t *Transaction) IsTerminal() bool {
	return t.Status == constants.StatusCompleted || t.Status == constants.StatusFailed
}

// Involves reports whether accountID is the sender or the receiver.
func (t *Transaction) Involves(accountID string) bool {
	if t.ReceiverID == accountID {
		return true
	}
	return t.SenderID != nil && *t.SenderID == accountID
}

// Counterparty returns the other side of the transaction as seen by accountID.
// Top-ups have no counterparty.
func (t *Transaction) Counterparty(accountID string) string {
	if t.SenderID == nil {
		return ""
	}
	if *t.SenderID == accountID {
		return t.ReceiverID
	}
	return *t.SenderID
}

func (t *Transaction) Sender() string {
	if t.SenderID == nil {
		return ""
	}
	return *t.SenderID
}

// Clone returns a copy that does not share the sender pointer.
func (t *Transaction) Clone() *Transaction {
	c := *t
	if t.SenderID != nil {
		s := *t.SenderID
		c.SenderID = &s
	}
	return &c
}
