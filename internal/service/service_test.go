package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/hance08/purse/internal/config"
	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/ledger"
	"github.com/hance08/purse/internal/reference"
	"github.com/hance08/purse/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	cfg := config.NewDefault()
	repo := store.NewMemoryStore()
	exec := ledger.NewExecutor(repo, repo, reference.NewULIDAllocator(cfg.Ledger.ReferencePrefix), nil, zap.NewNop(), ledger.Config{
		Currency:     cfg.Defaults.Currency,
		MaxRetries:   cfg.Ledger.MaxRetries,
		RetryBackoff: cfg.Ledger.RetryBackoff,
	})
	return NewService(repo, exec, cfg, zap.NewNop())
}

func createAccount(t *testing.T, svc *Service, id, opening string) {
	t.Helper()
	_, _, err := svc.Account.CreateAccount(context.Background(), CreateAccountInput{
		ID:      id,
		Name:    id,
		Opening: decimal.RequireFromString(opening),
	})
	require.NoError(t, err)
}

func TestCreateAccount(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	acc, tx, err := svc.Account.CreateAccount(ctx, CreateAccountInput{
		ID:      "alice",
		Name:    "Alice",
		Opening: decimal.RequireFromString("100.50"),
	})
	require.NoError(t, err)
	assert.Equal(t, "USD", acc.Currency)
	assert.Equal(t, int64(10050), acc.Balance)
	require.NotNil(t, tx)
	assert.Equal(t, constants.KindTopUp, tx.Kind)
	assert.Equal(t, "Opening balance", tx.Description)

	_, _, err = svc.Account.CreateAccount(ctx, CreateAccountInput{ID: "alice", Name: "Again"})
	assert.ErrorIs(t, err, store.ErrAccountExists)

	generated, tx, err := svc.Account.CreateAccount(ctx, CreateAccountInput{Name: "No id", Currency: "eur"})
	require.NoError(t, err)
	assert.Nil(t, tx)
	assert.Len(t, generated.ID, 36)
	assert.Equal(t, "EUR", generated.Currency)

	_, _, err = svc.Account.CreateAccount(ctx, CreateAccountInput{ID: "bad id", Name: "x"})
	assert.Error(t, err)
	_, _, err = svc.Account.CreateAccount(ctx, CreateAccountInput{ID: "carol", Name: "Carol", Currency: "DOLLARS"})
	assert.Error(t, err)
	_, _, err = svc.Account.CreateAccount(ctx, CreateAccountInput{ID: "dave", Name: "Dave", Opening: decimal.NewFromInt(-1)})
	assert.Error(t, err)

	exists, err := svc.Account.CheckAccountExists(ctx, "carol")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSendAndBalance(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	createAccount(t, svc, "alice", "100")
	createAccount(t, svc, "bob", "0")

	tx, err := svc.Transaction.Send(ctx, SendInput{From: "alice", To: "bob", Amount: "12.34", Description: " rent "})
	require.NoError(t, err)
	assert.Equal(t, "rent", tx.Description)

	bal, err := svc.Account.GetBalance(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "87.66", bal.Amount.StringFixed(2))

	_, err = svc.Transaction.Send(ctx, SendInput{From: "alice", To: "bob", Amount: "abc"})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.Account.GetBalance(ctx, "nobody")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	require.NoError(t, svc.Account.SetActive(ctx, "bob", false))
	_, err = svc.Transaction.Send(ctx, SendInput{From: "alice", To: "bob", Amount: "1"})
	assert.ErrorIs(t, err, ledger.ErrAccountInactive)

	require.NoError(t, svc.Account.SetActive(ctx, "bob", true))
	_, err = svc.Transaction.TopUp(ctx, TopUpInput{To: "bob", Amount: "5"})
	require.NoError(t, err)

	bal, err = svc.Account.GetBalance(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "17.34", bal.Amount.StringFixed(2))
}

func TestHistoryPaging(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	createAccount(t, svc, "alice", "100")
	createAccount(t, svc, "bob", "0")

	for i := 1; i <= 5; i++ {
		_, err := svc.Transaction.Send(ctx, SendInput{From: "alice", To: "bob", Amount: fmt.Sprintf("%d", i)})
		require.NoError(t, err)
	}

	page, err := svc.Transaction.History(ctx, HistoryQuery{AccountID: "bob", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(500), page.Entries[0].Amount)
	assert.True(t, page.Entries[0].Incoming)
	assert.Equal(t, "alice", page.Entries[0].Counterparty)

	page, err = svc.Transaction.History(ctx, HistoryQuery{AccountID: "bob", Limit: 2, Page: 3})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, int64(100), page.Entries[0].Amount)

	page, err = svc.Transaction.History(ctx, HistoryQuery{AccountID: "alice", Kind: constants.KindTopUp})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	assert.True(t, page.Entries[0].Incoming)
	assert.Empty(t, page.Entries[0].Counterparty)

	page, err = svc.Transaction.History(ctx, HistoryQuery{AccountID: "alice", Kind: constants.KindTransfer})
	require.NoError(t, err)
	assert.Len(t, page.Entries, 5)
	assert.False(t, page.Entries[0].Incoming)
	assert.Equal(t, "bob", page.Entries[0].Counterparty)

	_, err = svc.Transaction.History(ctx, HistoryQuery{AccountID: "nobody"})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	_, err = svc.Transaction.History(ctx, HistoryQuery{Kind: "refund"})
	assert.Error(t, err)

	_, err = svc.Transaction.History(ctx, HistoryQuery{AccountID: "bob", Page: math.MaxInt})
	assert.ErrorContains(t, err, "out of range")

	page, err = svc.Transaction.History(ctx, HistoryQuery{AccountID: "bob", Limit: constants.MaxPageSize, Page: constants.MaxPage})
	require.NoError(t, err)
	assert.Empty(t, page.Entries)
	assert.False(t, page.HasMore)
}

func TestGetTransaction(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	createAccount(t, svc, "alice", "100")
	createAccount(t, svc, "bob", "0")
	createAccount(t, svc, "carol", "0")

	tx, err := svc.Transaction.Send(ctx, SendInput{From: "alice", To: "bob", Amount: "10"})
	require.NoError(t, err)

	byID, err := svc.Transaction.GetTransaction(ctx, tx.ID, "")
	require.NoError(t, err)
	assert.Equal(t, tx.Reference, byID.Reference)

	byRef, err := svc.Transaction.GetTransaction(ctx, tx.Reference, "bob")
	require.NoError(t, err)
	assert.Equal(t, tx.ID, byRef.ID)

	lower, err := svc.Transaction.GetTransaction(ctx, " "+strings.ToLower(tx.Reference)+" ", "alice")
	require.NoError(t, err)
	assert.Equal(t, tx.ID, lower.ID)

	_, err = svc.Transaction.GetTransaction(ctx, tx.ID, "carol")
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = svc.Transaction.GetTransaction(ctx, "PSZ-missing", "")
	assert.ErrorIs(t, err, ErrTransactionNotFound)
}

func TestReconcile(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	createAccount(t, svc, "alice", "100")
	createAccount(t, svc, "bob", "20")

	_, err := svc.Transaction.Send(ctx, SendInput{From: "alice", To: "bob", Amount: "30"})
	require.NoError(t, err)
	_, err = svc.Transaction.Send(ctx, SendInput{From: "bob", To: "alice", Amount: "500"})
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	report, err := svc.Transaction.Reconcile(ctx)
	require.NoError(t, err)
	assert.True(t, report.Balanced())
	assert.Equal(t, int64(12000), report.TotalBalance)
	assert.Equal(t, int64(12000), report.TotalTopUps)
	assert.Equal(t, 3, report.StatusCounts[constants.StatusCompleted])
	assert.Equal(t, 1, report.StatusCounts[constants.StatusFailed])
	assert.Empty(t, report.PendingRecords)
}
