package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/hance08/purse/internal/config"
	"github.com/hance08/purse/internal/ledger"
	"github.com/hance08/purse/internal/model"
	"github.com/hance08/purse/internal/store"
	"github.com/hance08/purse/internal/utils"
	"github.com/hance08/purse/internal/validation"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const openingDescription = "Opening balance"

type AccountService struct {
	repo   store.AccountRepository
	exec   *ledger.Executor
	config *config.Config
	logger *zap.Logger
}

func NewAccountService(repo store.AccountRepository, exec *ledger.Executor, cfg *config.Config, logger *zap.Logger) *AccountService {
	return &AccountService{repo: repo, exec: exec, config: cfg, logger: logger.Named("account")}
}

type CreateAccountInput struct {
	ID       string
	Name     string
	Currency string
	Opening  decimal.Decimal
}

// CreateAccount opens an active account. A positive opening balance is
// credited as a top-up through the executor, never written directly.
func (as *AccountService) CreateAccount(ctx context.Context, in CreateAccountInput) (*model.Account, *model.Transaction, error) {
	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}
	if err := validation.ValidateAccountID(id); err != nil {
		return nil, nil, err
	}

	name := strings.TrimSpace(in.Name)
	if err := validation.ValidateAccountName(name); err != nil {
		return nil, nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = as.config.Defaults.Currency
	}
	if err := validation.ValidateCurrency(currency); err != nil {
		return nil, nil, err
	}

	if in.Opening.IsNegative() {
		return nil, nil, fmt.Errorf("opening balance can't be negative")
	}

	acc := &model.Account{ID: id, Name: name, Currency: currency, Active: true}
	if err := as.repo.CreateAccount(ctx, acc); err != nil {
		return nil, nil, err
	}
	as.logger.Info("account created", zap.String("account_id", id), zap.String("currency", currency))

	if !in.Opening.IsPositive() {
		return acc, nil, nil
	}

	tx, err := as.exec.ExecuteWithRetry(ctx, ledger.TransferRequest{
		ReceiverID:     id,
		Amount:         in.Opening,
		Description:    openingDescription,
		IdempotencyKey: "opening-" + id,
	})
	if err != nil {
		return acc, tx, fmt.Errorf("account created but opening balance failed: %w", err)
	}

	created, err := as.repo.GetAccount(ctx, id)
	if err != nil {
		return acc, tx, err
	}
	return created, tx, nil
}

func (as *AccountService) GetAllAccounts(ctx context.Context) ([]*model.Account, error) {
	return as.repo.GetAllAccounts(ctx)
}

func (as *AccountService) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return as.repo.GetAccount(ctx, id)
}

type Balance struct {
	AccountID string
	Amount    decimal.Decimal
	Currency  string
	Version   int64
	Active    bool
}

// GetBalance is the read-only projection of an account's funds.
func (as *AccountService) GetBalance(ctx context.Context, id string) (*Balance, error) {
	acc, err := as.repo.GetAccount(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: '%s'", ledger.ErrAccountNotFound, id)
		}
		return nil, err
	}

	return &Balance{
		AccountID: acc.ID,
		Amount:    utils.FromCents(acc.Balance),
		Currency:  acc.Currency,
		Version:   acc.Version,
		Active:    acc.Active,
	}, nil
}

// SetActive toggles whether an account may send or receive. The version bump
// makes in-flight transfers on the account conflict.
func (as *AccountService) SetActive(ctx context.Context, id string, active bool) error {
	if err := as.repo.SetAccountActive(ctx, id, active); err != nil {
		return err
	}
	as.logger.Info("account status changed", zap.String("account_id", id), zap.Bool("active", active))
	return nil
}

func (as *AccountService) CheckAccountExists(ctx context.Context, id string) (bool, error) {
	_, err := as.repo.GetAccount(ctx, id)
	if errors.Is(err, store.ErrAccountNotFound) {
		return false, nil
	}
	return err == nil, err
}
