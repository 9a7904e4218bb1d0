package account

import (
	"github.com/hance08/purse/internal/service"
	"github.com/spf13/cobra"
)

func NewAccountCmd(svc *service.Service) *cobra.Command {
	accountCmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"acc"},
		Short:   "Create, list, activate and deactivate accounts.",
		Long:    `Create, list, activate and deactivate accounts.`,
	}

	accountCmd.AddCommand(NewCreateCmd(svc))
	accountCmd.AddCommand(NewListCmd(svc))
	accountCmd.AddCommand(NewDeactivateCmd(svc))
	accountCmd.AddCommand(NewActivateCmd(svc))

	return accountCmd
}
