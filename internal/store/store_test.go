package store

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// repoRoot holds the migrations directory.
var repoRoot = os.DirFS(filepath.Join("..", ".."))

type factory func(t *testing.T) Repository

func factories() map[string]factory {
	f := map[string]factory{
		"memory": func(t *testing.T) Repository {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Repository {
			s, err := NewStore(filepath.Join(t.TempDir(), "purse.db"), repoRoot)
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}

	if dsn := os.Getenv("PURSE_TEST_POSTGRES_DSN"); dsn != "" {
		f["postgres"] = func(t *testing.T) Repository {
			s, err := NewPostgresStore(context.Background(), dsn, 4, repoRoot)
			require.NoError(t, err)
			_, err = s.pool.Exec(context.Background(), "TRUNCATE accounts, transactions")
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		}
	}
	return f
}

func forEachStore(t *testing.T, fn func(t *testing.T, repo Repository)) {
	for name, newRepo := range factories() {
		t.Run(name, func(t *testing.T) {
			fn(t, newRepo(t))
		})
	}
}

func mustCreate(t *testing.T, repo Repository, id string) {
	t.Helper()
	require.NoError(t, repo.CreateAccount(context.Background(), &model.Account{
		ID: id, Name: id, Currency: "USD", Active: true,
	}))
}

func newTx(id, ref, key string, sender *string, receiver string, amount int64) *model.Transaction {
	kind := constants.KindTransfer
	if sender == nil {
		kind = constants.KindTopUp
	}
	return &model.Transaction{
		ID:             id,
		SenderID:       sender,
		ReceiverID:     receiver,
		Amount:         amount,
		Kind:           kind,
		Status:         constants.StatusPending,
		Reference:      ref,
		IdempotencyKey: key,
	}
}

func TestCreateAndGetAccount(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		mustCreate(t, repo, "alice")

		acc, err := repo.GetAccount(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(0), acc.Balance)
		assert.Equal(t, int64(1), acc.Version)
		assert.True(t, acc.Active)

		err = repo.CreateAccount(ctx, &model.Account{ID: "alice", Name: "again", Currency: "USD"})
		assert.ErrorIs(t, err, ErrAccountExists)

		_, err = repo.GetAccount(ctx, "nobody")
		assert.ErrorIs(t, err, ErrAccountNotFound)
	})
}

func TestApplyDelta(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		mustCreate(t, repo, "alice")

		balance, version, err := repo.ApplyDelta(ctx, "alice", 10000, 1)
		require.NoError(t, err)
		assert.Equal(t, int64(10000), balance)
		assert.Equal(t, int64(2), version)

		_, _, err = repo.ApplyDelta(ctx, "alice", -500, 1)
		assert.ErrorIs(t, err, ErrVersionConflict)

		_, _, err = repo.ApplyDelta(ctx, "alice", -10001, 2)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		_, _, err = repo.ApplyDelta(ctx, "ghost", 1, 1)
		assert.ErrorIs(t, err, ErrAccountNotFound)

		balance, version, err = repo.GetBalance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(10000), balance)
		assert.Equal(t, int64(2), version)

		balance, _, err = repo.ApplyDelta(ctx, "alice", -10000, 2)
		require.NoError(t, err)
		assert.Zero(t, balance)
	})
}

func TestApplyDeltaStopsAtBalanceCeiling(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		mustCreate(t, repo, "whale")

		const step = constants.MaxBalanceCents / 10
		version := int64(1)
		for i := 0; i < 10; i++ {
			var err error
			_, version, err = repo.ApplyDelta(ctx, "whale", step, version)
			require.NoError(t, err)
		}

		balance, v, err := repo.GetBalance(ctx, "whale")
		require.NoError(t, err)
		require.Equal(t, int64(constants.MaxBalanceCents), balance)
		require.Equal(t, version, v)

		_, _, err = repo.ApplyDelta(ctx, "whale", 1, version)
		assert.ErrorIs(t, err, ErrBalanceLimit)

		_, _, err = repo.ApplyDelta(ctx, "whale", math.MaxInt64, version)
		assert.ErrorIs(t, err, ErrBalanceLimit)

		_, _, err = repo.ApplyDelta(ctx, "whale", math.MinInt64, version)
		assert.ErrorIs(t, err, ErrInsufficientFunds)

		balance, v, err = repo.GetBalance(ctx, "whale")
		require.NoError(t, err)
		assert.Equal(t, int64(constants.MaxBalanceCents), balance)
		assert.Equal(t, version, v)

		total, err := repo.TotalBalance(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(constants.MaxBalanceCents), total)

		balance, _, err = repo.ApplyDelta(ctx, "whale", -1, version)
		require.NoError(t, err)
		assert.Equal(t, int64(constants.MaxBalanceCents-1), balance)
	})
}

func TestApplyDeltaRacesResolveByVersion(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		mustCreate(t, repo, "alice")

		const writers = 8
		var wg sync.WaitGroup
		results := make(chan error, writers)
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _, err := repo.ApplyDelta(ctx, "alice", 100, 1)
				results <- err
			}()
		}
		wg.Wait()
		close(results)

		var ok, conflicts int
		for err := range results {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, ErrVersionConflict)
			conflicts++
		}
		assert.Equal(t, 1, ok)
		assert.Equal(t, writers-1, conflicts)
	})
}

func TestSetAccountActiveBumpsVersion(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		mustCreate(t, repo, "alice")

		require.NoError(t, repo.SetAccountActive(ctx, "alice", false))
		acc, err := repo.GetAccount(ctx, "alice")
		require.NoError(t, err)
		assert.False(t, acc.Active)
		assert.Equal(t, int64(2), acc.Version)

		_, _, err = repo.ApplyDelta(ctx, "alice", 100, 1)
		assert.ErrorIs(t, err, ErrVersionConflict)

		assert.ErrorIs(t, repo.SetAccountActive(ctx, "ghost", true), ErrAccountNotFound)
	})
}

func TestApplyDeltasIsAllOrNothing(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		batch, ok := repo.(BatchApplier)
		if !ok {
			t.Skip("store offers single-account atomicity only")
		}
		ctx := context.Background()
		mustCreate(t, repo, "alice")
		mustCreate(t, repo, "bob")
		_, _, err := repo.ApplyDelta(ctx, "alice", 5000, 1)
		require.NoError(t, err)

		_, err = batch.ApplyDeltas(ctx, []Delta{
			{AccountID: "alice", Amount: -1000, ExpectedVersion: 2},
			{AccountID: "bob", Amount: 1000, ExpectedVersion: 7},
		})
		assert.ErrorIs(t, err, ErrVersionConflict)

		balance, version, err := repo.GetBalance(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(5000), balance)
		assert.Equal(t, int64(2), version)

		results, err := batch.ApplyDeltas(ctx, []Delta{
			{AccountID: "alice", Amount: -1000, ExpectedVersion: 2},
			{AccountID: "bob", Amount: 1000, ExpectedVersion: 1},
		})
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, int64(4000), results[0].Balance)
		assert.Equal(t, int64(1000), results[1].Balance)

		total, err := repo.TotalBalance(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5000), total)
	})
}

func TestTransactionLifecycle(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		alice := "alice"

		tx := newTx("tx-1", "PSZ-1", "key-1", &alice, "bob", 2500)
		tx.Description = "lunch"
		require.NoError(t, repo.AppendTransaction(ctx, tx))

		got, err := repo.GetTransaction(ctx, "tx-1")
		require.NoError(t, err)
		assert.Equal(t, constants.StatusPending, got.Status)
		assert.Equal(t, "alice", got.Sender())
		assert.Equal(t, "lunch", got.Description)

		require.NoError(t, repo.FinalizeTransaction(ctx, "tx-1", constants.StatusCompleted, "", false))
		err = repo.FinalizeTransaction(ctx, "tx-1", constants.StatusFailed, "late", false)
		assert.ErrorIs(t, err, ErrAlreadyFinal)

		got, err = repo.GetTransactionByReference(ctx, "PSZ-1")
		require.NoError(t, err)
		assert.Equal(t, constants.StatusCompleted, got.Status)
		assert.Empty(t, got.FailureReason)

		assert.ErrorIs(t, repo.FinalizeTransaction(ctx, "missing", constants.StatusFailed, "", false), ErrRecordNotFound)
		assert.Error(t, repo.FinalizeTransaction(ctx, "tx-1", constants.StatusPending, "", false))
	})
}

func TestIdempotencyKeyRelease(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()

		require.NoError(t, repo.AppendTransaction(ctx, newTx("tx-1", "PSZ-1", "retry-me", nil, "carol", 100)))

		err := repo.AppendTransaction(ctx, newTx("tx-2", "PSZ-2", "retry-me", nil, "carol", 100))
		assert.ErrorIs(t, err, ErrDuplicateKey)

		err = repo.AppendTransaction(ctx, newTx("tx-3", "PSZ-1", "other", nil, "carol", 100))
		assert.ErrorIs(t, err, ErrDuplicateReference)

		found, err := repo.FindByIdempotencyKey(ctx, "retry-me")
		require.NoError(t, err)
		assert.Equal(t, "tx-1", found.ID)

		found, err = repo.FindByIdempotencyKey(ctx, "PSZ-1")
		require.NoError(t, err)
		assert.Equal(t, "tx-1", found.ID)

		require.NoError(t, repo.FinalizeTransaction(ctx, "tx-1", constants.StatusFailed, "conflict_retryable", true))
		_, err = repo.FindByIdempotencyKey(ctx, "retry-me")
		assert.ErrorIs(t, err, ErrRecordNotFound)

		require.NoError(t, repo.AppendTransaction(ctx, newTx("tx-4", "PSZ-4", "retry-me", nil, "carol", 100)))
		found, err = repo.FindByIdempotencyKey(ctx, "retry-me")
		require.NoError(t, err)
		assert.Equal(t, "tx-4", found.ID)
	})
}

func TestListTransactions(t *testing.T) {
	forEachStore(t, func(t *testing.T, repo Repository) {
		ctx := context.Background()
		alice, bob := "alice", "bob"
		base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

		records := []*model.Transaction{
			newTx("t1", "R1", "", nil, "alice", 1000),
			newTx("t2", "R2", "", &alice, "bob", 200),
			newTx("t3", "R3", "", &bob, "carol", 300),
			newTx("t4", "R4", "", &alice, "carol", 400),
		}
		for i, r := range records {
			r.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, repo.AppendTransaction(ctx, r))
		}
		require.NoError(t, repo.FinalizeTransaction(ctx, "t1", constants.StatusCompleted, "", false))
		require.NoError(t, repo.FinalizeTransaction(ctx, "t2", constants.StatusCompleted, "", false))
		require.NoError(t, repo.FinalizeTransaction(ctx, "t4", constants.StatusFailed, "insufficient_funds", false))

		list, err := repo.ListTransactions(ctx, TransactionFilter{AccountID: "alice"})
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{"t4", "t2", "t1"}, ids(list))

		list, err = repo.ListTransactions(ctx, TransactionFilter{AccountID: "alice", Kind: constants.KindTransfer})
		require.NoError(t, err)
		assert.Equal(t, []string{"t4", "t2"}, ids(list))

		list, err = repo.ListTransactions(ctx, TransactionFilter{Status: constants.StatusPending})
		require.NoError(t, err)
		assert.Equal(t, []string{"t3"}, ids(list))

		list, err = repo.ListTransactions(ctx, TransactionFilter{Limit: 2, Offset: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"t3", "t2"}, ids(list))

		list, err = repo.ListTransactions(ctx, TransactionFilter{
			From: base.Add(time.Minute),
			To:   base.Add(2 * time.Minute),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"t3", "t2"}, ids(list))

		counts, err := repo.CountByStatus(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, counts[constants.StatusCompleted])
		assert.Equal(t, 1, counts[constants.StatusFailed])
		assert.Equal(t, 1, counts[constants.StatusPending])

		topups, err := repo.SumCompleted(ctx, constants.KindTopUp)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), topups)
	})
}

func ids(txs []*model.Transaction) []string {
	out := make([]string, 0, len(txs))
	for _, tx := range txs {
		out = append(out, tx.ID)
	}
	return out
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://u:p@host:5432/db", migrateURL("postgres://u:p@host:5432/db"))
	assert.Equal(t, "pgx5://host/db", migrateURL("postgresql://host/db"))
	assert.Equal(t, "pgx5://already", migrateURL("pgx5://already"))
}

func ExampleMemoryStore_ApplyDelta() {
	ctx := context.Background()
	repo := NewMemoryStore()
	_ = repo.CreateAccount(ctx, &model.Account{ID: "alice", Name: "Alice", Currency: "USD", Active: true})

	balance, version, _ := repo.ApplyDelta(ctx, "alice", 2500, 1)
	fmt.Println(balance, version)

	_, _, err := repo.ApplyDelta(ctx, "alice", 100, 1)
	fmt.Println(err)
	// Output:
	// 2500 2
	// account 'alice' at version 2, expected 1: account version conflict
}
