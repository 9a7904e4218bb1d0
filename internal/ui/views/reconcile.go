package views

import (
	"fmt"

	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/ui"
	"github.com/hance08/purse/internal/utils"
	"github.com/pterm/pterm"
)

type ReconcileItem struct {
	TotalBalance int64
	TotalTopUps  int64
	Drift        int64
	Counts       map[string]int
	Pending      []TransactionListItem
	Currency     string
}

func RenderReconcile(data ReconcileItem) error {
	ui.PrintL1Title("Reconciliation")

	tableData := pterm.TableData{
		{"Sum of balances", utils.FormatWithCurrency(data.TotalBalance, data.Currency)},
		{"Completed top-ups", utils.FormatWithCurrency(data.TotalTopUps, data.Currency)},
		{"Drift", utils.FormatWithCurrency(data.Drift, data.Currency)},
		{"Completed", fmt.Sprintf("%d", data.Counts[constants.StatusCompleted])},
		{"Failed", fmt.Sprintf("%d", data.Counts[constants.StatusFailed])},
		{"Pending", fmt.Sprintf("%d", data.Counts[constants.StatusPending])},
	}
	if err := pterm.DefaultTable.WithData(tableData).Render(); err != nil {
		return err
	}

	if data.Drift == 0 {
		pterm.Success.Println("Balances match completed top-ups")
	} else {
		pterm.Error.Printf("Ledger is out of balance by %s\n", utils.FormatWithCurrency(data.Drift, data.Currency))
	}

	if len(data.Pending) == 0 {
		return nil
	}

	ui.Separator()
	pterm.Warning.Printf("%d transactions are still pending\n", len(data.Pending))
	return NewTransactionListView(false).Render(data.Pending, 1, false)
}
