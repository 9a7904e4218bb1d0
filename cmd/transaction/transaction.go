package transaction

import (
	"github.com/hance08/purse/internal/service"
	"github.com/spf13/cobra"
)

func NewTransactionCmd(svc *service.Service) *cobra.Command {
	txCmd := &cobra.Command{
		Use:     "transaction",
		Aliases: []string{"tx"},
		Short:   "Inspect transactions",
		Long:    "Inspect transactions: list history, view details, or reconcile the ledger.",
	}

	txCmd.AddCommand(NewListCmd(svc))
	txCmd.AddCommand(NewShowCmd(svc))
	txCmd.AddCommand(NewReconcileCmd(svc))

	return txCmd
}
