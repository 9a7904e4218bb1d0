package account

import (
	"github.com/hance08/purse/internal/service"
	"github.com/hance08/purse/internal/ui/prompts"
	"github.com/hance08/purse/internal/ui/views"
	"github.com/hance08/purse/internal/utils"
	"github.com/pterm/pterm"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

type createFlags struct {
	ID       string
	Name     string
	Currency string
	Opening  string
}

type createRunner struct {
	svc   *service.Service
	flags *createFlags
}

func NewCreateCmd(svc *service.Service) *cobra.Command {
	flags := &createFlags{}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new account.",
		Long: `Create a new account. Without --name the account is created interactively.

The opening balance is credited as a top-up, so it shows up in the
account's history like any other deposit.

Example: purse account create --id alice -n "Alice" --opening 100`,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := &createRunner{svc: svc, flags: flags}
			return runner.Run(cmd)
		},
	}

	cmd.Flags().StringVar(&flags.ID, "id", "", "Account ID (generated when empty)")
	cmd.Flags().StringVarP(&flags.Name, "name", "n", "", "Account name")
	cmd.Flags().StringVar(&flags.Currency, "currency", "", "Currency code (defaults to config default)")
	cmd.Flags().StringVarP(&flags.Opening, "opening", "o", "", "Opening balance")

	return cmd
}

func (r *createRunner) Run(cmd *cobra.Command) error {
	in := service.CreateAccountInput{
		ID:       r.flags.ID,
		Name:     r.flags.Name,
		Currency: r.flags.Currency,
	}
	opening := r.flags.Opening

	if !cmd.Flags().Changed("name") {
		answers, err := prompts.PromptNewAccount(r.svc.Config.Defaults.Currency)
		if err != nil {
			return err
		}
		in.ID, in.Name, in.Currency, opening = answers.ID, answers.Name, answers.Currency, answers.Opening
	}

	if opening != "" {
		amount, err := utils.ParseAmount(opening)
		if err != nil {
			return err
		}
		in.Opening = amount
	} else {
		in.Opening = decimal.Zero
	}

	acc, tx, err := r.svc.Account.CreateAccount(cmd.Context(), in)
	if err != nil {
		if acc != nil {
			pterm.Warning.Printf("Account '%s' exists but has no opening balance\n", acc.ID)
		}
		return err
	}

	if err := views.RenderAccountSuccess(acc); err != nil {
		return err
	}
	if tx != nil {
		pterm.Info.Printf("Opening balance reference: %s\n", tx.Reference)
	}
	return nil
}
