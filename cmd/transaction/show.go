package transaction

import (
	"github.com/hance08/purse/internal/service"
	"github.com/hance08/purse/internal/ui/views"
	"github.com/spf13/cobra"
)

type ShowCommandRunner struct {
	svc *service.Service
	as  string
}

func NewShowCmd(svc *service.Service) *cobra.Command {
	runner := &ShowCommandRunner{svc: svc}

	cmd := &cobra.Command{
		Use:   "show <transaction-id|reference>",
		Short: "Show transaction details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner.Run(cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&runner.as, "as", "", "Only show the transaction if this account took part in it")
	return cmd
}

func (r *ShowCommandRunner) Run(cmd *cobra.Command, idOrRef string) error {
	tx, err := r.svc.Transaction.GetTransaction(cmd.Context(), idOrRef, r.as)
	if err != nil {
		return err
	}

	return views.RenderTransactionDetail(tx, r.svc.Config.Defaults.Currency)
}
