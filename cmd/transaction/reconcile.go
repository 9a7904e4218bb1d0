package transaction

import (
	"fmt"

	"github.com/hance08/purse/internal/service"
	"github.com/hance08/purse/internal/ui/views"
	"github.com/spf13/cobra"
)

type reconcileRunner struct {
	svc *service.Service
}

func NewReconcileCmd(svc *service.Service) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Check that balances add up and nothing is stuck pending",
		Long: `Check that the sum of all balances equals the sum of completed top-ups,
count transactions per status, and list transactions still pending.

Exits with an error when the ledger is out of balance.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := &reconcileRunner{svc: svc}
			return runner.Run(cmd)
		},
	}
}

func (r *reconcileRunner) Run(cmd *cobra.Command) error {
	report, err := r.svc.Transaction.Reconcile(cmd.Context())
	if err != nil {
		return err
	}

	currency := r.svc.Config.Defaults.Currency
	item := views.ReconcileItem{
		TotalBalance: report.TotalBalance,
		TotalTopUps:  report.TotalTopUps,
		Drift:        report.Drift,
		Counts:       report.StatusCounts,
		Currency:     currency,
	}
	for _, tx := range report.PendingRecords {
		e := service.HistoryEntry{Transaction: tx}
		pending := listItem(e, currency)
		pending.Counterparty = parties(e)
		item.Pending = append(item.Pending, pending)
	}

	if err := views.RenderReconcile(item); err != nil {
		return err
	}

	if !report.Balanced() {
		return fmt.Errorf("ledger out of balance by %d minor units", report.Drift)
	}
	return nil
}
