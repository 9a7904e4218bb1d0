package model

import "time"

// Account holds a balance in minor units. Only the ledger executor mutates
// Balance, always through a version-checked delta.
type Account struct {
	ID        string
	Name      string
	Currency  string
	Balance   int64
	Version   int64
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
