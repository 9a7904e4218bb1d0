package cmd

import (
	"github.com/hance08/purse/internal/service"
	"github.com/hance08/purse/internal/ui/views"
	"github.com/spf13/cobra"
)

type balanceRunner struct {
	svc *service.Service
}

func NewBalanceCmd(svc *service.Service) *cobra.Command {
	return &cobra.Command{
		Use:     "balance <account-id>",
		Aliases: []string{"bal"},
		Short:   "Show the balance of an account",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := &balanceRunner{svc: svc}
			return runner.Run(cmd, args[0])
		},
	}
}

func (r *balanceRunner) Run(cmd *cobra.Command, id string) error {
	bal, err := r.svc.Account.GetBalance(cmd.Context(), id)
	if err != nil {
		return err
	}

	acc, err := r.svc.Account.GetAccount(cmd.Context(), id)
	if err != nil {
		return err
	}

	views.RenderBalance(bal.AccountID, acc.Name, bal.Amount.StringFixed(2), bal.Currency, bal.Active)
	return nil
}
