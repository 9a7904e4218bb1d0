package views

import (
	"github.com/hance08/purse/internal/model"
	"github.com/hance08/purse/internal/utils"
	"github.com/pterm/pterm"
)

type AccountListView struct{}

func NewAccountListView() *AccountListView {
	return &AccountListView{}
}

func (v *AccountListView) Render(accounts []*model.Account) error {
	if len(accounts) == 0 {
		pterm.Warning.Println("No accounts found")
		return nil
	}

	tableData := pterm.TableData{{"ID", "Name", "Balance", "Status"}}

	for _, acc := range accounts {
		balance := utils.FormatWithCurrency(acc.Balance, acc.Currency)
		status := pterm.Green("active")
		if !acc.Active {
			status = pterm.Gray("inactive")
			balance = pterm.Gray(balance)
		}
		tableData = append(tableData, []string{acc.ID, acc.Name, balance, status})
	}

	pterm.DefaultSection.Printf("Account List")
	if err := pterm.DefaultTable.WithHasHeader().WithRightAlignment().WithData(tableData).Render(); err != nil {
		return err
	}

	pterm.Info.Printf("Total: %d accounts\n", len(accounts))
	return nil
}

func RenderAccountSuccess(acc *model.Account) error {
	tableData := pterm.TableData{
		{pterm.Blue("Account ID"), acc.ID},
		{pterm.Blue("Name"), acc.Name},
		{pterm.Blue("Currency"), acc.Currency},
		{pterm.Blue("Balance"), utils.FormatFromCents(acc.Balance)},
	}

	if err := pterm.DefaultTable.WithData(tableData).Render(); err != nil {
		return err
	}

	pterm.Success.Print("Account created successfully!\n")
	return nil
}

func RenderBalance(id, name, amount, currency string, active bool) {
	pterm.DefaultSection.Printf("Balance of %s", id)

	pterm.Printfln("%s  %s", pterm.Gray(name), pterm.Bold.Sprint(amount+" "+currency))
	if !active {
		pterm.Warning.Println("This account is inactive and can't send or receive funds")
	}
}
