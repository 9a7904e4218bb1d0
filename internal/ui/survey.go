package ui

import "github.com/AlecAivazis/survey/v2"

var dashIcon = survey.WithIcons(func(icons *survey.IconSet) {
	icons.Question.Text = "-"
})

// ConfirmDanger asks a yes/no question that defaults to no. Used before
// changes that make in-flight transfers fail.
func ConfirmDanger(message string) (bool, error) {
	confirm := false
	prompt := &survey.Confirm{
		Message: message,
		Default: false,
	}
	if err := survey.AskOne(prompt, &confirm, dashIcon); err != nil {
		return false, err
	}
	return confirm, nil
}
