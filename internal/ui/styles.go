package ui

import (
	"fmt"

	"github.com/hance08/purse/internal/constants"
	"github.com/pterm/pterm"
)

func PrintL1Title(format string, a ...interface{}) {
	style := pterm.NewStyle(pterm.BgCyan, pterm.FgBlack, pterm.Bold)
	style.Println(fmt.Sprintf(" %s   ", fmt.Sprintf(format, a...)))
}

func PrintL2Title(format string, a ...interface{}) {
	style := pterm.NewStyle(pterm.FgCyan, pterm.Bold)
	style.Println(fmt.Sprintf("# %s   ", fmt.Sprintf(format, a...)))
}

func Separator() {
	pterm.Println(pterm.Gray("----------------------------------------"))
}

// Status colors a transaction status.
func Status(status string) string {
	switch status {
	case constants.StatusCompleted:
		return pterm.Green(status)
	case constants.StatusFailed:
		return pterm.Red(status)
	case constants.StatusPending:
		return pterm.Yellow(status)
	default:
		return status
	}
}

// Amount colors an amount by direction: green for money coming in.
func Amount(text string, incoming bool) string {
	if incoming {
		return pterm.Green("+" + text)
	}
	return pterm.Red("-" + text)
}
