package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/hance08/purse/internal/model"
	"github.com/jackc/pgx/v5"
)

func (s *PostgresStore) CreateAccount(ctx context.Context, acc *model.Account) error {
	now := s.now().UTC()
	if acc.Version == 0 {
		acc.Version = 1
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (id, name, currency, balance, version, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, 0, $4, $5, $6, $6)
	`, acc.ID, acc.Name, acc.Currency, acc.Version, acc.Active, now)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return fmt.Errorf("failed to create account '%s': %w", acc.ID, ErrAccountExists)
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	acc.Balance = 0
	acc.CreatedAt = now
	acc.UpdatedAt = now
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	row := s.db.QueryRow(ctx, "SELECT "+accountColumns+" FROM accounts WHERE id = $1", id)

	acc, err := scanPgAccount(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account '%s': %w", id, ErrAccountNotFound)
		}
		return nil, fmt.Errorf("failed to query account '%s': %w", id, err)
	}
	return acc, nil
}

func (s *PostgresStore) GetAllAccounts(ctx context.Context) ([]*model.Account, error) {
	rows, err := s.db.Query(ctx, "SELECT "+accountColumns+" FROM accounts ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		acc, err := scanPgAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

func (s *PostgresStore) SetAccountActive(ctx context.Context, id string, active bool) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE accounts
		SET is_active = $1, version = version + 1, updated_at = $2
		WHERE id = $3
	`, active, s.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update account status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account '%s': %w", id, ErrAccountNotFound)
	}
	return nil
}

func (s *PostgresStore) GetBalance(ctx context.Context, id string) (int64, int64, error) {
	var balance, version int64
	err := s.db.QueryRow(ctx, "SELECT balance, version FROM accounts WHERE id = $1", id).Scan(&balance, &version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, 0, fmt.Errorf("account '%s': %w", id, ErrAccountNotFound)
		}
		return 0, 0, fmt.Errorf("failed to read balance: %w", err)
	}
	return balance, version, nil
}

func (s *PostgresStore) ApplyDelta(ctx context.Context, id string, delta int64, expectedVersion int64) (int64, int64, error) {
	var balance, version int64
	err := s.db.QueryRow(ctx, `
		UPDATE accounts
		SET balance = balance + $1, version = version + 1, updated_at = $2
		WHERE id = $3 AND version = $4 AND balance >= $5 AND balance <= $6
		RETURNING balance, version
	`, delta, s.now().UTC(), id, expectedVersion, debitFloor(delta), creditCeiling(delta)).Scan(&balance, &version)
	if err == nil {
		return balance, version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, 0, fmt.Errorf("failed to apply delta to '%s': %w", id, err)
	}

	balance, current, err := s.GetBalance(ctx, id)
	if err != nil {
		return 0, 0, err
	}
	return 0, 0, diagnose(id, balance, current, delta, expectedVersion)
}

func (s *PostgresStore) ApplyDeltas(ctx context.Context, deltas []Delta) ([]DeltaResult, error) {
	results := make([]DeltaResult, 0, len(deltas))

	err := s.ExecTx(ctx, func(tx *PostgresStore) error {
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

func (s *PostgresStore) TotalBalance(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRow(ctx, "SELECT COALESCE(SUM(balance), 0)::BIGINT FROM accounts").Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to calculate total balance: %w", err)
	}
	return total, nil
}

func scanPgAccount(row pgx.Row) (*model.Account, error) {
	acc := &model.Account{}
	err := row.Scan(
		&acc.ID, &acc.Name, &acc.Currency,
		&acc.Balance, &acc.Version, &acc.Active,
		&acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return acc, nil
}
