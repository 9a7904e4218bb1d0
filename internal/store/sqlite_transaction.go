package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/model"
	sqlite "github.com/mattn/go-sqlite3"
)

const transactionColumns = `id, sender_id, receiver_id, amount, kind, status, description,
        reference, idempotency_key, failure_reason, released, created_at, updated_at`

func (s *Store) AppendTransaction(ctx context.Context, tx *model.Transaction) error {
	now := s.now()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = now.UTC()
	}
	tx.UpdatedAt = tx.CreatedAt

	_, err := s.db.ExecContext(ctx, `
        INSERT INTO transactions (id, sender_id, receiver_id, amount, kind, status, description,
            reference, idempotency_key, failure_reason, released, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		tx.ID, nullString(tx.Sender()), tx.ReceiverID, tx.Amount, tx.Kind, tx.Status, tx.Description,
		tx.Reference, nullString(tx.IdempotencyKey), tx.FailureReason, tx.Released,
		toUnix(tx.CreatedAt), toUnix(tx.UpdatedAt),
	)
	if err != nil {
		var sqliteErr sqlite.Error
		if errors.As(err, &sqliteErr) && errors.Is(sqliteErr.ExtendedCode, sqlite.ErrConstraintUnique) {
			switch {
			case strings.Contains(sqliteErr.Error(), "idempotency_key"):
				return fmt.Errorf("failed to append transaction %s: %w", tx.ID, ErrDuplicateKey)
			case strings.Contains(sqliteErr.Error(), "reference"):
				return fmt.Errorf("failed to append transaction %s: %w", tx.ID, ErrDuplicateReference)
			}
			return fmt.Errorf("failed to append transaction %s: %w", tx.ID, ErrConstraintViolation)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id)
	return s.getOne(row, "transaction "+id)
}

func (s *Store) GetTransactionByReference(ctx context.Context, ref string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE reference = ?", ref)
	return s.getOne(row, "reference "+ref)
}

func (s *Store) FindByIdempotencyKey(ctx context.Context, key string) (*model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+transactionColumns+` FROM transactions
        WHERE (idempotency_key = ? AND released = 0) OR reference = ?
        ORDER BY seq DESC
        LIMIT 1
    `, key, key)
	return s.getOne(row, "idempotency key "+key)
}

func (s *Store) getOne(row *sql.Row, what string) (*model.Transaction, error) {
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	return tx, nil
}

func (s *Store) FinalizeTransaction(ctx context.Context, id, status, reason string, released bool) error {
	if status != constants.StatusCompleted && status != constants.StatusFailed {
		return fmt.Errorf("invalid terminal status %q", status)
	}

	result, err := s.db.ExecContext(ctx, `
        UPDATE transactions
        SET status = ?, failure_reason = ?, released = ?, updated_at = ?
        WHERE id = ? AND status = ?
    `, status, reason, released, toUnix(s.now()), id, constants.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		if _, err := s.GetTransaction(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("transaction %s: %w", id, ErrAlreadyFinal)
	}
	return nil
}

func (s *Store) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*model.Transaction, error) {
	var (
		where []string
		args  []any
	)

	if filter.AccountID != "" {
		where = append(where, "(sender_id = ? OR receiver_id = ?)")
		args = append(args, filter.AccountID, filter.AccountID)
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, toUnix(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, toUnix(filter.To))
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, seq DESC LIMIT ? OFFSET ?"
	args = append(args, filter.limit(), filter.offset())

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var transactions []*model.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}

	return transactions, rows.Err()
}

func (s *Store) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM transactions GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (s *Store) SumCompleted(ctx context.Context, kind string) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
        SELECT SUM(amount)
        FROM transactions
        WHERE kind = ? AND status = ?
    `, kind, constants.StatusCompleted).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}

	if total.Valid {
		return total.Int64, nil
	}
	return 0, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	tx := &model.Transaction{}
	var (
		senderID, idemKey    sql.NullString
		createdAt, updatedAt int64
	)

	err := row.Scan(
		&tx.ID, &senderID, &tx.ReceiverID, &tx.Amount, &tx.Kind, &tx.Status, &tx.Description,
		&tx.Reference, &idemKey, &tx.FailureReason, &tx.Released, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if senderID.Valid {
		tx.SenderID = &senderID.String
	}
	tx.IdempotencyKey = idemKey.String
	tx.CreatedAt = fromUnix(createdAt)
	tx.UpdatedAt = fromUnix(updatedAt)
	return tx, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
