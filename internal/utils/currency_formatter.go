package utils

import (
	"fmt"
	"strings"

	"github.com/hance08/purse/internal/constants"
	"github.com/shopspring/decimal"
)

var centsPerUnit = decimal.NewFromInt(constants.CentsPerUnit)

func FormatFromCents(cents int64) string {
	return decimal.New(cents, -constants.AmountScale).StringFixed(constants.AmountScale)
}

func FormatWithCurrency(cents int64, currency string) string {
	if currency == "" {
		return FormatFromCents(cents)
	}
	return fmt.Sprintf("%s %s", FormatFromCents(cents), currency)
}

// ParseAmount parses a decimal string such as "150", "150.5" or "150.50".
func ParseAmount(amountStr string) (decimal.Decimal, error) {
	amountStr = strings.TrimSpace(amountStr)
	if amountStr == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}

	d, err := decimal.NewFromString(amountStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount: %s", amountStr)
	}
	return d, nil
}

// ToCents converts an amount to minor units. It refuses amounts with more
// than two decimal places instead of truncating them.
func ToCents(amount decimal.Decimal) (int64, error) {
	if amount.Exponent() < -constants.AmountScale && !amount.Equal(amount.Truncate(constants.AmountScale)) {
		return 0, fmt.Errorf("amount %s has more than %d decimal places", amount.String(), constants.AmountScale)
	}

	cents := amount.Mul(centsPerUnit)
	if !cents.IsInteger() || cents.Abs().GreaterThan(decimal.NewFromInt(constants.MaxSafeCents)) {
		return 0, fmt.Errorf("amount %s is out of range", amount.String())
	}
	return cents.IntPart(), nil
}

func ParseToCents(amountStr string) (int64, error) {
	d, err := ParseAmount(amountStr)
	if err != nil {
		return 0, err
	}
	return ToCents(d)
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -constants.AmountScale)
}
