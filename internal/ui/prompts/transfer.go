package prompts

import (
	"fmt"

	"github.com/hance08/purse/internal/model"
	"github.com/hance08/purse/internal/utils"
	"github.com/hance08/purse/internal/validation"
)

// PromptAccount lets the user pick one of the active accounts, skipping
// the one given in exclude.
func PromptAccount(message string, accounts []*model.Account, exclude string) (string, error) {
	var options []Option
	for _, acc := range accounts {
		if !acc.Active || acc.ID == exclude {
			continue
		}
		options = append(options, Option{
			Label: fmt.Sprintf("%s (%s) %s", acc.ID, acc.Name, utils.FormatWithCurrency(acc.Balance, acc.Currency)),
			Value: acc.ID,
		})
	}

	if len(options) == 0 {
		return "", fmt.Errorf("no active account to choose from")
	}
	return PromptSelect(message, options, options[0].Value)
}

func PromptTransferAmount() (string, error) {
	return PromptAmount("Amount:", "Up to 2 decimal places, e.g. 12.50", validation.ValidateAmountInput)
}

// AccountInput holds what the interactive account wizard collects.
type AccountInput struct {
	ID       string
	Name     string
	Currency string
	Opening  string
}

func PromptNewAccount(defaultCurrency string) (*AccountInput, error) {
	in := &AccountInput{}
	var err error

	if in.Name, err = PromptInput("Account name:", "", validation.ValidateAccountName); err != nil {
		return nil, err
	}

	in.ID, err = PromptInput("Account ID:", "(generated)", validation.ValidateAccountID)
	if err != nil {
		return nil, err
	}
	if in.ID == "(generated)" {
		in.ID = ""
	}

	if in.Currency, err = PromptInput("Currency:", defaultCurrency, func(s string) error {
		return validation.ValidateCurrency(s)
	}); err != nil {
		return nil, err
	}

	in.Opening, err = PromptAmount("Opening balance:", "Leave empty for none", func(s string) error {
		if s == "" {
			return nil
		}
		return validation.ValidateAmountInput(s)
	})
	if err != nil {
		return nil, err
	}
	return in, nil
}
