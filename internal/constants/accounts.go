package constants

const (
	MaxNameLen      = 100
	MaxAccountIDLen = 64
	CentsPerUnit    = 100
	AmountScale     = 2
)

const (
	DefaultCurrency        = "USD"
	DefaultReferencePrefix = "PSZ"
)

// MaxSafeCents caps a single transaction amount.
const MaxSafeCents = 1_000_000_000_000_000

// MaxBalanceCents caps a single account balance well below the int64 limit,
// so a credit can never overflow the stored column.
const MaxBalanceCents = 1_000_000_000_000_000_000
