package constants

const (
	// Transaction kinds
	KindTransfer = "transfer"
	KindTopUp    = "topup"

	// Status
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"

	DateTimeFormat = "2006-01-02 15:04:05"
)

const (
	MaxDescriptionLen = 255
	DefaultPageSize   = 20
	MaxPageSize       = 500
	// MaxPage keeps the row offset of a history page within int range.
	MaxPage = 1_000_000
)
