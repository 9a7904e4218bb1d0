package service

import (
	"github.com/hance08/purse/internal/config"
	"github.com/hance08/purse/internal/ledger"
	"github.com/hance08/purse/internal/store"
	"go.uber.org/zap"
)

type Service struct {
	Account     *AccountService
	Transaction *TransactionService
	Config      *config.Config
}

func NewService(repo store.Repository, exec *ledger.Executor, cfg *config.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		Account:     NewAccountService(repo, exec, cfg, logger),
		Transaction: NewTransactionService(repo, exec, cfg, logger),
		Config:      cfg,
	}
}
