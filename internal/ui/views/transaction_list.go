package views

import (
	"github.com/hance08/purse/internal/ui"
	"github.com/pterm/pterm"
)

type TransactionListItem struct {
	Date         string
	Reference    string
	Kind         string
	Counterparty string
	Description  string
	Amount       string
	// Incoming is only meaningful when the list is viewed for an account.
	Incoming bool
	Status   string
}

type TransactionListView struct {
	// Directional shows signed amounts and counterparties.
	Directional bool
}

func NewTransactionListView(directional bool) *TransactionListView {
	return &TransactionListView{Directional: directional}
}

func (v *TransactionListView) Render(items []TransactionListItem, page int, hasMore bool) error {
	if len(items) == 0 {
		pterm.Warning.Println("No transactions found")
		return nil
	}

	pterm.DefaultSection.Printf("Transactions (page %d)", page)

	header := []string{"Date", "Reference", "Kind", "Parties", "Description", "Amount", "Status"}
	if v.Directional {
		header[3] = "Counterparty"
	}
	tableData := pterm.TableData{header}

	for _, item := range items {
		amount := item.Amount
		if v.Directional {
			amount = ui.Amount(item.Amount, item.Incoming)
		}

		counterparty := item.Counterparty
		if counterparty == "" {
			counterparty = "-"
		}

		tableData = append(tableData, []string{
			item.Date,
			item.Reference,
			item.Kind,
			counterparty,
			item.Description,
			amount,
			ui.Status(item.Status),
		})
	}

	if err := pterm.DefaultTable.WithHasHeader().WithData(tableData).Render(); err != nil {
		return err
	}

	pterm.Info.Printf("Showing %d transactions\n", len(items))
	if hasMore {
		pterm.Info.Printf("More on page %d\n", page+1)
	}
	return nil
}
