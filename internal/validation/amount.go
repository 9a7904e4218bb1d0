package validation

import (
	"fmt"
	"unicode/utf8"

	"github.com/hance08/purse/internal/utils"
)

// ValidateAmountInput validates a positive amount typed by the user.
func ValidateAmountInput(input string) error {
	d, err := utils.ParseAmount(input)
	if err != nil {
		return err
	}

	if !d.IsPositive() {
		return fmt.Errorf("amount must be greater than zero")
	}

	if _, err := utils.ToCents(d); err != nil {
		return err
	}
	return nil
}

func ValidateDescription(desc string, maxLen int) error {
	if maxLen > 0 && utf8.RuneCountInString(desc) > maxLen {
		return fmt.Errorf("description too long (max %d characters)", maxLen)
	}
	return nil
}
