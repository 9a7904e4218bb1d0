package transaction

import (
	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/service"
	"github.com/hance08/purse/internal/ui/views"
	"github.com/hance08/purse/internal/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type listFlags struct {
	Account string
	Kind    string
	Status  string
	Page    int
	Limit   int
}

type listRunner struct {
	svc   *service.Service
	flags *listFlags
}

func NewListCmd(svc *service.Service) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls", "l"},
		Short:   "List transactions, newest first",
		Long: `List transactions, newest first.

With --account the list is shown from that account's side: amounts are
signed and the other party is shown as the counterparty.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := &listRunner{
				svc:   svc,
				flags: flags,
			}
			return runner.Run(cmd)
		},
	}

	cmd.Flags().StringVarP(&flags.Account, "account", "a", "", "Show the history of one account")
	cmd.Flags().StringVarP(&flags.Kind, "kind", "k", "", "Filter by kind (transfer, topup)")
	cmd.Flags().StringVarP(&flags.Status, "status", "s", "", "Filter by status (pending, completed, failed)")
	cmd.Flags().IntVarP(&flags.Page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&flags.Limit, "limit", "l", constants.DefaultPageSize, "Transactions per page")

	return cmd
}

func (r *listRunner) Run(cmd *cobra.Command) error {
	page, err := r.svc.Transaction.History(cmd.Context(), service.HistoryQuery{
		AccountID: r.flags.Account,
		Kind:      r.flags.Kind,
		Status:    r.flags.Status,
		Page:      r.flags.Page,
		Limit:     r.flags.Limit,
	})
	if err != nil {
		return err
	}

	if r.flags.Account != "" {
		pterm.Info.Printf("Showing transactions for account: %s\n\n", r.flags.Account)
	}

	directional := r.flags.Account != ""
	items := make([]views.TransactionListItem, 0, len(page.Entries))
	for _, e := range page.Entries {
		item := listItem(e, r.svc.Config.Defaults.Currency)
		if !directional {
			item.Counterparty = parties(e)
		}
		items = append(items, item)
	}

	return views.NewTransactionListView(directional).Render(items, page.Page, page.HasMore)
}

func listItem(e service.HistoryEntry, currency string) views.TransactionListItem {
	return views.TransactionListItem{
		Date:         e.CreatedAt.Local().Format(constants.DateTimeFormat),
		Reference:    e.Reference,
		Kind:         e.Kind,
		Counterparty: e.Counterparty,
		Description:  e.Description,
		Amount:       utils.FormatWithCurrency(e.Amount, currency),
		Incoming:     e.Incoming,
		Status:       e.Status,
	}
}

func parties(e service.HistoryEntry) string {
	if e.SenderID == nil {
		return "→ " + e.ReceiverID
	}
	return *e.SenderID + " → " + e.ReceiverID
}
