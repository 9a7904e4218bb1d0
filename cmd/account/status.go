package account

import (
	"fmt"

	"github.com/hance08/purse/internal/service"
	"github.com/hance08/purse/internal/ui"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type statusRunner struct {
	svc    *service.Service
	active bool
	yes    bool
}

func NewDeactivateCmd(svc *service.Service) *cobra.Command {
	runner := &statusRunner{svc: svc, active: false}

	cmd := &cobra.Command{
		Use:   "deactivate <account-id>",
		Short: "Stop an account from sending or receiving funds",
		Long: `Stop an account from sending or receiving funds.

The balance and history are kept. Transfers already in flight on the
account fail with a retryable conflict.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner.Run(cmd, args[0])
		},
	}

	cmd.Flags().BoolVarP(&runner.yes, "yes", "y", false, "Skip the confirmation")
	return cmd
}

func NewActivateCmd(svc *service.Service) *cobra.Command {
	runner := &statusRunner{svc: svc, active: true, yes: true}

	return &cobra.Command{
		Use:   "activate <account-id>",
		Short: "Allow a deactivated account to send and receive funds again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runner.Run(cmd, args[0])
		},
	}
}

func (r *statusRunner) Run(cmd *cobra.Command, id string) error {
	acc, err := r.svc.Account.GetAccount(cmd.Context(), id)
	if err != nil {
		return err
	}

	if acc.Active == r.active {
		pterm.Info.Printf("Account '%s' is already %s\n", id, stateName(r.active))
		return nil
	}

	if !r.yes {
		confirm, err := ui.ConfirmDanger(fmt.Sprintf("Deactivate account '%s' (%s)?", acc.ID, acc.Name))
		if err != nil {
			return err
		}
		if !confirm {
			pterm.Info.Println("Nothing changed")
			return nil
		}
	}

	if err := r.svc.Account.SetActive(cmd.Context(), id, r.active); err != nil {
		return err
	}

	pterm.Success.Printf("Account '%s' is now %s\n", id, stateName(r.active))
	return nil
}

func stateName(active bool) string {
	if active {
		return "active"
	}
	return "inactive"
}
