package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hance08/purse/internal/config"
	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/ledger"
	"github.com/hance08/purse/internal/model"
	"github.com/hance08/purse/internal/reference"
	"github.com/hance08/purse/internal/store"
	"github.com/hance08/purse/internal/utils"
	"go.uber.org/zap"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type TransactionService struct {
	repo   store.Repository
	exec   *ledger.Executor
	config *config.Config
	logger *zap.Logger
}

func NewTransactionService(repo store.Repository, exec *ledger.Executor, cfg *config.Config, logger *zap.Logger) *TransactionService {
	return &TransactionService{repo: repo, exec: exec, config: cfg, logger: logger.Named("transaction")}
}

// Send moves funds between two accounts, retrying version conflicts.
func (ts *TransactionService) Send(ctx context.Context, in SendInput) (*model.Transaction, error) {
	amount, err := utils.ParseAmount(in.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err)
	}

	return ts.exec.ExecuteWithRetry(ctx, ledger.TransferRequest{
		SenderID:       strings.TrimSpace(in.From),
		ReceiverID:     strings.TrimSpace(in.To),
		Amount:         amount,
		Description:    strings.TrimSpace(in.Description),
		IdempotencyKey: strings.TrimSpace(in.IdempotencyKey),
	})
}

// TopUp credits an account from an external source that was already
// verified by the caller.
func (ts *TransactionService) TopUp(ctx context.Context, in TopUpInput) (*model.Transaction, error) {
	amount, err := utils.ParseAmount(in.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidAmount, err)
	}

	return ts.exec.ExecuteWithRetry(ctx, ledger.TransferRequest{
		ReceiverID:     strings.TrimSpace(in.To),
		Amount:         amount,
		Description:    strings.TrimSpace(in.Description),
		IdempotencyKey: strings.TrimSpace(in.IdempotencyKey),
	})
}

func (q HistoryQuery) normalize() (HistoryQuery, error) {
	switch q.Kind {
	case "", constants.KindTransfer, constants.KindTopUp:
	default:
		return q, fmt.Errorf("unknown kind '%s' (must be %s or %s)", q.Kind, constants.KindTransfer, constants.KindTopUp)
	}

	switch q.Status {
	case "", constants.StatusPending, constants.StatusCompleted, constants.StatusFailed:
	default:
		return q, fmt.Errorf("unknown status '%s'", q.Status)
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > constants.MaxPage {
		return q, fmt.Errorf("page %d out of range (max %d)", q.Page, constants.MaxPage)
	}
	if q.Limit <= 0 {
		q.Limit = constants.DefaultPageSize
	}
	if q.Limit > constants.MaxPageSize {
		q.Limit = constants.MaxPageSize
	}
	return q, nil
}

// History lists transactions newest first, one page at a time. With an
// account set, each entry is projected for that account.
func (ts *TransactionService) History(ctx context.Context, q HistoryQuery) (*HistoryPage, error) {
	q, err := q.normalize()
	if err != nil {
		return nil, err
	}

	if q.AccountID != "" {
		if _, err := ts.repo.GetAccount(ctx, q.AccountID); err != nil {
			if errors.Is(err, store.ErrAccountNotFound) {
				return nil, fmt.Errorf("%w: '%s'", ledger.ErrAccountNotFound, q.AccountID)
			}
			return nil, err
		}
	}

	// One extra row tells whether another page exists.
	txs, err := ts.repo.ListTransactions(ctx, store.TransactionFilter{
		AccountID: q.AccountID,
		Kind:      q.Kind,
		Status:    q.Status,
		Limit:     q.Limit + 1,
		Offset:    (q.Page - 1) * q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction history: %w", err)
	}

	page := &HistoryPage{Page: q.Page, Limit: q.Limit}
	if len(txs) > q.Limit {
		page.HasMore = true
		txs = txs[:q.Limit]
	}

	page.Entries = make([]HistoryEntry, 0, len(txs))
	for _, tx := range txs {
		entry := HistoryEntry{Transaction: tx}
		if q.AccountID != "" {
			entry.Incoming = tx.ReceiverID == q.AccountID
			entry.Counterparty = tx.Counterparty(q.AccountID)
		}
		page.Entries = append(page.Entries, entry)
	}
	return page, nil
}

// GetTransaction looks a transaction up by reference code or id. Reference
// codes match in any letter case. With asAccount set, transactions the
// account is not part of are reported as not found.
func (ts *TransactionService) GetTransaction(ctx context.Context, idOrRef, asAccount string) (*model.Transaction, error) {
	idOrRef = strings.TrimSpace(idOrRef)

	err := store.ErrRecordNotFound
	var tx *model.Transaction
	if ref, ok := canonicalReference(idOrRef); ok {
		tx, err = ts.repo.GetTransactionByReference(ctx, ref)
	}
	if errors.Is(err, store.ErrRecordNotFound) {
		tx, err = ts.repo.GetTransaction(ctx, idOrRef)
	}
	if errors.Is(err, store.ErrRecordNotFound) {
		tx, err = ts.repo.GetTransactionByReference(ctx, idOrRef)
	}
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, idOrRef)
		}
		return nil, err
	}

	if asAccount != "" && !tx.Involves(asAccount) {
		return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, idOrRef)
	}
	return tx, nil
}

// canonicalReference upper-cases a well-formed reference code the way the
// allocator writes it.
func canonicalReference(s string) (string, bool) {
	prefix, id, err := reference.Parse(strings.ToUpper(s))
	if err != nil {
		return "", false
	}
	if prefix == "" {
		return id.String(), true
	}
	return prefix + "-" + id.String(), true
}

func (ts *TransactionService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	total, err := ts.repo.TotalBalance(ctx)
	if err != nil {
		return nil, err
	}

	topUps, err := ts.repo.SumCompleted(ctx, constants.KindTopUp)
	if err != nil {
		return nil, err
	}

	counts, err := ts.repo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	pending, err := ts.repo.ListTransactions(ctx, store.TransactionFilter{
		Status: constants.StatusPending,
		Limit:  constants.MaxPageSize,
	})
	if err != nil {
		return nil, err
	}

	report := &ReconcileReport{
		TotalBalance:   total,
		TotalTopUps:    topUps,
		Drift:          total - topUps,
		StatusCounts:   counts,
		PendingRecords: pending,
	}

	if !report.Balanced() {
		ts.logger.Error("ledger out of balance",
			zap.Int64("total_balance", total),
			zap.Int64("total_topups", topUps),
			zap.Int64("drift", report.Drift))
	}
	return report, nil
}
