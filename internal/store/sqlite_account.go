package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hance08/purse/internal/model"
	sqlite "github.com/mattn/go-sqlite3"
)

const accountColumns = `id, name, currency, balance, version, is_active, created_at, updated_at`

func (s *Store) CreateAccount(ctx context.Context, acc *model.Account) error {
	now := s.now()
	if acc.Version == 0 {
		acc.Version = 1
	}

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO accounts (id, name, currency, balance, version, is_active, created_at, updated_at)
        VALUES (?, ?, ?, 0, ?, ?, ?, ?)
    `, acc.ID, acc.Name, acc.Currency, acc.Version, acc.Active, toUnix(now), toUnix(now))
	if err != nil {
		var sqliteErr sqlite.Error
		if errors.As(err, &sqliteErr) {
			if errors.Is(sqliteErr.Code, sqlite.ErrConstraint) || errors.Is(sqliteErr.ExtendedCode, sqlite.ErrConstraintPrimaryKey) {
				return fmt.Errorf("failed to create account '%s': %w", acc.ID, ErrAccountExists)
			}
		}
		return fmt.Errorf("failed to executing SQL insertion : %w", err)
	}

	acc.Balance = 0
	acc.CreatedAt = now.UTC()
	acc.UpdatedAt = now.UTC()
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = ?", id)

	acc, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("account '%s': %w", id, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to query account '%s': %w", id, err)
	}
	return acc, nil
}

func (s *Store) GetAllAccounts(ctx context.Context) ([]*model.Account, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var accounts []*model.Account
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}

	return accounts, rows.Err()
}

func (s *Store) SetAccountActive(ctx context.Context, id string, active bool) error {
	result, err := s.db.ExecContext(ctx, `
        UPDATE accounts
        SET is_active = ?, version = version + 1, updated_at = ?
        WHERE id = ?
    `, active, toUnix(s.now()), id)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("account '%s': %w", id, ErrAccountNotFound)
	}
	return nil
}

func (s *Store) GetBalance(ctx context.Context, id string) (int64, int64, error) {
	var balance, version int64
	err := s.db.QueryRowContext(ctx, "SELECT balance, version FROM accounts WHERE id = ?", id).Scan(&balance, &version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, fmt.Errorf("account '%s': %w", id, ErrAccountNotFound)
		}
		return 0, 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, version, nil
}

func (s *Store) ApplyDelta(ctx context.Context, id string, delta int64, expectedVersion int64) (int64, int64, error) {
	var balance, version int64
	err := s.db.QueryRowContext(ctx, `
        UPDATE accounts
        SET balance = balance + ?, version = version + 1, updated_at = ?
        WHERE id = ? AND version = ? AND balance >= ? AND balance <= ?
        RETURNING balance, version
    `, delta, toUnix(s.now()), id, expectedVersion, debitFloor(delta), creditCeiling(delta)).Scan(&balance, &version)
	if err == nil {
		return balance, version, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, 0, fmt.Errorf("failed to apply delta to '%s': %w", id, err)
	}

	return 0, 0, s.refusal(ctx, id, delta, expectedVersion)
}

// refusal explains why a guarded update matched no row.
func (s *Store) refusal(ctx context.Context, id string, delta, expectedVersion int64) error {
	balance, version, err := s.GetBalance(ctx, id)
	if err != nil {
		return err
	}
	return diagnose(id, balance, version, delta, expectedVersion)
}

func (s *Store) ApplyDeltas(ctx context.Context, deltas []Delta) ([]DeltaResult, error) {
	results := make([]DeltaResult, 0, len(deltas))

	err := s.ExecTx(ctx, func(tx *Store) error {
		for _, d := range deltas {
			balance, version, err := tx.ApplyDelta(ctx, d.AccountID, d.Amount, d.ExpectedVersion)
			if err != nil {
				return err
			}
			results = append(results, DeltaResult{AccountID: d.AccountID, Balance: balance, Version: version})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return results, nil
}

func (s *Store) TotalBalance(ctx context.Context) (int64, error) {
	var total sql.NullInt64
	if err := s.db.QueryRowContext(ctx, "SELECT SUM(balance) FROM accounts").Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to calculate total balance: %w", err)
	}

	if total.Valid {
		return total.Int64, nil
	}
	return 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*model.Account, error) {
	acc := &model.Account{}
	var createdAt, updatedAt int64

	err := row.Scan(
		&acc.ID, &acc.Name, &acc.Currency,
		&acc.Balance, &acc.Version, &acc.Active,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	acc.CreatedAt = fromUnix(createdAt)
	acc.UpdatedAt = fromUnix(updatedAt)
	return acc, nil
}
