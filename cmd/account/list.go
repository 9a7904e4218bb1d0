package account

import (
	"fmt"

	"github.com/hance08/purse/internal/model"
	"github.com/hance08/purse/internal/service"
	"github.com/hance08/purse/internal/ui/views"
	"github.com/spf13/cobra"
)

type listFlags struct {
	ActiveOnly bool
}

type ListCommandRunner struct {
	svc   *service.Service
	flags *listFlags
}

func NewListCmd(svc *service.Service) *cobra.Command {
	flags := &listFlags{}

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all accounts with their balances",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner := &ListCommandRunner{
				svc:   svc,
				flags: flags,
			}
			return runner.Run(cmd)
		},
	}

	cmd.Flags().BoolVar(&flags.ActiveOnly, "active-only", false, "Hide deactivated accounts")

	return cmd
}

func (r *ListCommandRunner) Run(cmd *cobra.Command) error {
	accounts, err := r.svc.Account.GetAllAccounts(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get accounts: %w", err)
	}

	if r.flags.ActiveOnly {
		accounts = filterInactive(accounts)
	}

	return views.NewAccountListView().Render(accounts)
}

func filterInactive(accounts []*model.Account) []*model.Account {
	var filtered []*model.Account
	for _, acc := range accounts {
		if acc.Active {
			filtered = append(filtered, acc)
		}
	}
	return filtered
}
