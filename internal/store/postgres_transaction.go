package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/model"
	"github.com/jackc/pgx/v5"
)

func (s *PostgresStore) AppendTransaction(ctx context.Context, tx *model.Transaction) error {
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = s.now().UTC()
	}
	tx.UpdatedAt = tx.CreatedAt

	_, err := s.db.Exec(ctx, `
		INSERT INTO transactions (id, sender_id, receiver_id, amount, kind, status, description,
			reference, idempotency_key, failure_reason, released, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		tx.ID, nullable(tx.Sender()), tx.ReceiverID, tx.Amount, tx.Kind, tx.Status, tx.Description,
		tx.Reference, nullable(tx.IdempotencyKey), tx.FailureReason, tx.Released,
		tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		if pgErr, ok := uniqueViolation(err); ok {
			switch {
			case strings.Contains(pgErr.ConstraintName, "idempotency"):
				return fmt.Errorf("failed to append transaction %s: %w", tx.ID, ErrDuplicateKey)
			case strings.Contains(pgErr.ConstraintName, "reference"):
				return fmt.Errorf("failed to append transaction %s: %w", tx.ID, ErrDuplicateReference)
			}
			return fmt.Errorf("failed to append transaction %s: %w", tx.ID, ErrConstraintViolation)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, id string) (*model.Transaction, error) {
	row := s.db.QueryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = $1", id)
	return pgGetOne(row, "transaction "+id)
}

func (s *PostgresStore) GetTransactionByReference(ctx context.Context, ref string) (*model.Transaction, error) {
	row := s.db.QueryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE reference = $1", ref)
	return pgGetOne(row, "reference "+ref)
}

func (s *PostgresStore) FindByIdempotencyKey(ctx context.Context, key string) (*model.Transaction, error) {
	row := s.db.QueryRow(ctx, "SELECT "+transactionColumns+` FROM transactions
		WHERE (idempotency_key = $1 AND NOT released) OR reference = $1
		ORDER BY seq DESC
		LIMIT 1
	`, key)
	return pgGetOne(row, "idempotency key "+key)
}

func pgGetOne(row pgx.Row, what string) (*model.Transaction, error) {
	tx, err := scanPgTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", what, ErrRecordNotFound)
		}
		return nil, fmt.Errorf("failed to query %s: %w", what, err)
	}
	return tx, nil
}

func (s *PostgresStore) FinalizeTransaction(ctx context.Context, id, status, reason string, released bool) error {
	if status != constants.StatusCompleted && status != constants.StatusFailed {
		return fmt.Errorf("invalid terminal status %q", status)
	}

	tag, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET status = $1, failure_reason = $2, released = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`, status, reason, released, s.now().UTC(), id, constants.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := s.GetTransaction(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("transaction %s: %w", id, ErrAlreadyFinal)
	}
	return nil
}

func (s *PostgresStore) ListTransactions(ctx context.Context, filter TransactionFilter) ([]*model.Transaction, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.AccountID != "" {
		p := arg(filter.AccountID)
		where = append(where, fmt.Sprintf("(sender_id = %s OR receiver_id = %s)", p, p))
	}
	if filter.Kind != "" {
		where = append(where, "kind = "+arg(filter.Kind))
	}
	if filter.Status != "" {
		where = append(where, "status = "+arg(filter.Status))
	}
	if !filter.From.IsZero() {
		where = append(where, "created_at >= "+arg(filter.From))
	}
	if !filter.To.IsZero() {
		where = append(where, "created_at <= "+arg(filter.To))
	}

	query := "SELECT " + transactionColumns + " FROM transactions"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, seq DESC LIMIT " + arg(filter.limit()) + " OFFSET " + arg(filter.offset())

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*model.Transaction
	for rows.Next() {
		tx, err := scanPgTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	return transactions, rows.Err()
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Query(ctx, "SELECT status, COUNT(*) FROM transactions GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("failed to count transactions: %w", err)
	}
	defer rows.Close()

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

func (s *PostgresStore) SumCompleted(ctx context.Context, kind string) (int64, error) {
	var total int64
	err := s.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount), 0)::BIGINT
		FROM transactions
		WHERE kind = $1 AND status = $2
	`, kind, constants.StatusCompleted).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum transactions: %w", err)
	}
	return total, nil
}

func scanPgTransaction(row pgx.Row) (*model.Transaction, error) {
	tx := &model.Transaction{}
	var senderID, idemKey *string

	err := row.Scan(
		&tx.ID, &senderID, &tx.ReceiverID, &tx.Amount, &tx.Kind, &tx.Status, &tx.Description,
		&tx.Reference, &idemKey, &tx.FailureReason, &tx.Released, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	tx.SenderID = senderID
	if idemKey != nil {
		tx.IdempotencyKey = *idemKey
	}
	tx.CreatedAt = tx.CreatedAt.UTC()
	tx.UpdatedAt = tx.UpdatedAt.UTC()
	return tx, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
