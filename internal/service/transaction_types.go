package service

import (
	"github.com/hance08/purse/internal/model"
)

type SendInput struct {
	From           string
	To             string
	Amount         string
	Description    string
	IdempotencyKey string
}

type TopUpInput struct {
	To             string
	Amount         string
	Description    string
	IdempotencyKey string
}

type HistoryQuery struct {
	AccountID string
	Kind      string
	Status    string
	Page      int
	Limit     int
}

// HistoryEntry is a transaction as seen from one account.
type HistoryEntry struct {
	*model.Transaction
	Incoming     bool
	Counterparty string
}

type HistoryPage struct {
	Entries []HistoryEntry
	Page    int
	Limit   int
	HasMore bool
}

// ReconcileReport compares the sum of all balances with the money that
// entered the ledger through completed top-ups. Drift must be zero.
type ReconcileReport struct {
	TotalBalance   int64
	TotalTopUps    int64
	Drift          int64
	StatusCounts   map[string]int
	PendingRecords []*model.Transaction
}

func (r *ReconcileReport) Balanced() bool {
	return r.Drift == 0
}
