package prompts

import (
	"errors"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/hance08/purse/internal/validation"
)

func PromptInitCurrency(currDefault string) (string, error) {
	selection := currDefault

	err := huh.NewSelect[string]().
		Title("Welcome to Purse! This is the first run, please set the default currency:").
		Description("New accounts use this currency unless told otherwise, and event messages show it.").
		Options(
			huh.NewOption("USD", "USD"),
			huh.NewOption("EUR", "EUR"),
			huh.NewOption("NGN", "NGN"),
			huh.NewOption("TWD", "TWD"),
			huh.NewOption("JPY", "JPY"),
			huh.NewOption("Other", "Other"),
		).
		Value(&selection).
		Run()

	if err != nil {
		return "", err
	}

	if selection != "Other" {
		return selection, nil
	}

	var customInput string
	err = huh.NewInput().
		Title("Please enter the currency code:").
		Description("Please use the ISO 4217 standard 3-letter currency code.").
		Value(&customInput).
		Validate(func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("currency code is required")
			}
			return validation.ValidateCurrency(s)
		}).
		Run()

	if err != nil {
		return "", err
	}

	return strings.ToUpper(strings.TrimSpace(customInput)), nil
}
