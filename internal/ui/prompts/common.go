package prompts

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"
)

// PromptDescription prompts for a free-text description
func PromptDescription(message string, maxLen int) (string, error) {
	var desc string

	err := huh.NewInput().
		Title(message).
		Description("Optional, press Enter to skip").
		CharLimit(maxLen).
		Value(&desc).
		Run()

	return strings.TrimSpace(desc), err
}

// PromptAmount prompts for an amount with custom validation
func PromptAmount(message string, helpText string, validator func(string) error) (string, error) {
	var amount string

	input := huh.NewInput().
		Title(message).
		Description(helpText).
		Value(&amount)

	if validator != nil {
		input.Validate(validator)
	}

	err := input.Run()
	return strings.TrimSpace(amount), err
}

// PromptConfirm prompts for yes/no confirmation
func PromptConfirm(message string, defaultValue bool) (bool, error) {
	confirm := defaultValue

	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&confirm).
		Run()

	return confirm, err
}

// PromptInput prompts for a generic text input with optional default and validator
func PromptInput(message string, defaultValue string, validator func(string) error) (string, error) {
	var inputVal string

	input := huh.NewInput().
		Title(message).
		Value(&inputVal)

	if defaultValue != "" {
		input.Placeholder(defaultValue)
	}

	if validator != nil {
		input.Validate(func(s string) error {
			if s == "" && defaultValue != "" {
				return nil
			}
			return validator(s)
		})
	}

	if err := input.Run(); err != nil {
		return "", err
	}

	if inputVal == "" && defaultValue != "" {
		return defaultValue, nil
	}
	return strings.TrimSpace(inputVal), nil
}

// Option is a selectable value with its display label.
type Option struct {
	Label string
	Value string
}

// PromptSelect prompts for a selection from a list of options
func PromptSelect(message string, options []Option, defaultValue string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("nothing to choose from")
	}

	selected := defaultValue

	var opts []huh.Option[string]
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value))
	}

	err := huh.NewSelect[string]().
		Title(message).
		Options(opts...).
		Value(&selected).
		Run()
	return selected, err
}
