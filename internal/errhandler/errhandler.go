package errhandler

import (
	"errors"
	"fmt"
	"os"
	"unicode"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/charmbracelet/huh"
	"github.com/pterm/pterm"
)

// IsAborted reports whether err comes from the user leaving a prompt.
func IsAborted(err error) bool {
	return errors.Is(err, terminal.InterruptErr) || errors.Is(err, huh.ErrUserAborted)
}

// HandleError prints err and exits. Aborted prompts exit cleanly.
func HandleError(err error) {
	if IsAborted(err) {
		pterm.Warning.Println("Operation Cancelled")
		os.Exit(0)
	}

	pterm.Error.Println(capitalize(err.Error()))
	os.Exit(1)
}

func capitalize(s string) string {
	if len(s) == 0 {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// Wrap prefixes err for display, keeping the chain intact.
func Wrap(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, a...), err)
}
