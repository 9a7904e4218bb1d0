package validation

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/hance08/purse/internal/constants"
)

// ValidateAccountID checks an opaque account identifier. Identifiers are
// compared byte-wise, so they are kept to a conservative character set.
func ValidateAccountID(id string) error {
	if id == "" {
		return fmt.Errorf("account id can't be empty")
	}

	if len(id) > constants.MaxAccountIDLen {
		return fmt.Errorf("account id too long (max %d characters)", constants.MaxAccountIDLen)
	}

	for _, r := range id {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.') {
			return fmt.Errorf("account id '%s' contains invalid character %q", id, r)
		}
	}
	return nil
}

// ValidateAccountName validates a display name.
func ValidateAccountName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return fmt.Errorf("account name can't be empty")
	}

	if len(name) > constants.MaxNameLen {
		return fmt.Errorf("account name too long (max %d characters)", constants.MaxNameLen)
	}
	return nil
}

// ValidateCurrency validates a currency code format
// Accepts both string and any (for prompt compatibility)
func ValidateCurrency(val any) error {
	var currency string

	switch v := val.(type) {
	case string:
		currency = v
	default:
		return fmt.Errorf("currency code must be a string")
	}

	currency = strings.TrimSpace(strings.ToUpper(currency))

	if currency == "" {
		return nil // Empty is allowed (will use default)
	}

	if len(currency) != 3 {
		return fmt.Errorf("currency code must be 3 characters (e.g. USD)")
	}

	for _, c := range currency {
		if c < 'A' || c > 'Z' {
			return fmt.Errorf("currency code must contain only letters")
		}
	}

	return nil
}
