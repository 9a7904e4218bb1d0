package views

import (
	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/model"
	"github.com/hance08/purse/internal/ui"
	"github.com/hance08/purse/internal/utils"
	"github.com/pterm/pterm"
)

func RenderTransactionDetail(tx *model.Transaction, currency string) error {
	sender := tx.Sender()
	if sender == "" {
		sender = pterm.Gray("(external top-up)")
	}

	description := tx.Description
	if description == "" {
		description = "-"
	}

	pterm.Println()
	ui.PrintL2Title("Transaction Info")
	infoData := pterm.TableData{
		{"Field", "Value"},
		{"ID", tx.ID},
		{"Reference", tx.Reference},
		{"Kind", tx.Kind},
		{"Status", ui.Status(tx.Status)},
		{"From", sender},
		{"To", tx.ReceiverID},
		{"Amount", utils.FormatWithCurrency(tx.Amount, currency)},
		{"Description", description},
		{"Created", tx.CreatedAt.Local().Format(constants.DateTimeFormat)},
		{"Updated", tx.UpdatedAt.Local().Format(constants.DateTimeFormat)},
	}

	if tx.Status == constants.StatusFailed {
		infoData = append(infoData, []string{"Failure Reason", pterm.Red(tx.FailureReason)})
	}
	if tx.IdempotencyKey != "" {
		infoData = append(infoData, []string{"Idempotency Key", tx.IdempotencyKey})
	}

	return pterm.DefaultTable.
		WithHasHeader().
		WithHeaderStyle(pterm.NewStyle(pterm.FgGray)).
		WithData(infoData).
		Render()
}

// RenderTransferResult prints the outcome of a send or top-up.
func RenderTransferResult(tx *model.Transaction, currency string) {
	amount := utils.FormatWithCurrency(tx.Amount, currency)

	switch {
	case tx.Status == constants.StatusCompleted && tx.IsTopUp():
		pterm.Success.Printf("Topped up %s with %s\n", tx.ReceiverID, amount)
	case tx.Status == constants.StatusCompleted:
		pterm.Success.Printf("Sent %s from %s to %s\n", amount, tx.Sender(), tx.ReceiverID)
	case !tx.IsTerminal():
		pterm.Warning.Printf("Transfer of %s is still pending\n", amount)
	default:
		pterm.Warning.Printf("Attempt recorded as failed (%s)\n", tx.FailureReason)
	}
	pterm.Info.Printf("Reference: %s\n", tx.Reference)
}
