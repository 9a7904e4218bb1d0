package cmd

import (
	"fmt"

	"github.com/hance08/purse/internal/model"
	"github.com/hance08/purse/internal/service"
	"github.com/hance08/purse/internal/ui/prompts"
	"github.com/hance08/purse/internal/ui/views"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

type transferFlags struct {
	Description string
	Key         string
}

type sendRunner struct {
	svc   *service.Service
	flags *transferFlags
}

func NewSendCmd(svc *service.Service) *cobra.Command {
	flags := &transferFlags{}

	cmd := &cobra.Command{
		Use:   "send [from] [to] [amount]",
		Short: "Send money from one account to another",
		Long: `Send money from one account to another.

Missing arguments are asked for interactively. Pass --key to make the
command safe to repeat: a second run with the same key returns the first
result instead of moving money again.

Example: purse send alice bob 12.50 -d "lunch" -k lunch-2025-06-01`,
		Args: cobra.MaximumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := &sendRunner{svc: svc, flags: flags}
			return runner.Run(cmd, args)
		},
	}

	cmd.Flags().StringVarP(&flags.Description, "description", "d", "", "Transfer description")
	cmd.Flags().StringVarP(&flags.Key, "key", "k", "", "Idempotency key")

	return cmd
}

func (r *sendRunner) Run(cmd *cobra.Command, args []string) error {
	in := service.SendInput{Description: r.flags.Description, IdempotencyKey: r.flags.Key}
	if len(args) > 0 {
		in.From = args[0]
	}
	if len(args) > 1 {
		in.To = args[1]
	}
	if len(args) > 2 {
		in.Amount = args[2]
	}

	if len(args) < 3 {
		if err := r.fillInteractive(cmd, &in); err != nil {
			return err
		}

		ok, err := prompts.PromptConfirm(fmt.Sprintf("Send %s %s from %s to %s?",
			in.Amount, r.svc.Config.Defaults.Currency, in.From, in.To), true)
		if err != nil {
			return err
		}
		if !ok {
			pterm.Info.Println("Nothing sent")
			return nil
		}
	}

	tx, err := r.svc.Transaction.Send(cmd.Context(), in)
	return renderTransfer(tx, err, r.svc.Config.Defaults.Currency)
}

func (r *sendRunner) fillInteractive(cmd *cobra.Command, in *service.SendInput) error {
	accounts, err := r.svc.Account.GetAllAccounts(cmd.Context())
	if err != nil {
		return err
	}

	if in.From == "" {
		if in.From, err = prompts.PromptAccount("Send from:", accounts, ""); err != nil {
			return err
		}
	}
	if in.To == "" {
		if in.To, err = prompts.PromptAccount("Send to:", accounts, in.From); err != nil {
			return err
		}
	}
	if in.Amount, err = prompts.PromptTransferAmount(); err != nil {
		return err
	}
	if in.Description == "" {
		in.Description, err = prompts.PromptDescription("Description:", r.svc.Config.Ledger.MaxDescription)
	}
	return err
}

type topUpRunner struct {
	svc   *service.Service
	flags *transferFlags
}

func NewTopUpCmd(svc *service.Service) *cobra.Command {
	flags := &transferFlags{}

	cmd := &cobra.Command{
		Use:   "topup <account-id> <amount>",
		Short: "Credit an account from an external funding source",
		Long: `Credit an account from an external funding source.

The funding is assumed to be verified already; purse does not contact any
payment provider.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := &topUpRunner{svc: svc, flags: flags}
			return runner.Run(cmd, args)
		},
	}

	cmd.Flags().StringVarP(&flags.Description, "description", "d", "", "Top-up description")
	cmd.Flags().StringVarP(&flags.Key, "key", "k", "", "Idempotency key")

	return cmd
}

func (r *topUpRunner) Run(cmd *cobra.Command, args []string) error {
	tx, err := r.svc.Transaction.TopUp(cmd.Context(), service.TopUpInput{
		To:             args[0],
		Amount:         args[1],
		Description:    r.flags.Description,
		IdempotencyKey: r.flags.Key,
	})
	return renderTransfer(tx, err, r.svc.Config.Defaults.Currency)
}

// renderTransfer shows the recorded outcome, including failed attempts
// that were kept for audit, and passes the error on.
func renderTransfer(tx *model.Transaction, err error, currency string) error {
	if tx != nil {
		views.RenderTransferResult(tx, currency)
	}
	return err
}
