package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgDBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore is the Repository for server deployments. Every statement
// is a single guarded UPDATE, so concurrent processes can share one
// database safely.
type PostgresStore struct {
	pool *pgxpool.Pool
	db   PgDBTX
	now  func() time.Time
}

var (
	_ Repository   = (*PostgresStore)(nil)
	_ BatchApplier = (*PostgresStore)(nil)
)

const pgUniqueViolation = "23505"

func NewPostgresStore(ctx context.Context, dsn string, maxConns int32, migrationsFS fs.FS) (*PostgresStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database.dsn is required for the postgres driver")
	}

	if err := runPostgresMigrations(dsn, migrationsFS); err != nil {
		return nil, fmt.Errorf("failed to migrate database : %w", err)
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database URL: %w", err)
	}
	if maxConns > 0 {
		config.MaxConns = maxConns
	}
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to connect to database: %w", err)
	}

	return &PostgresStore{pool: pool, db: pool, now: time.Now}, nil
}

func runPostgresMigrations(dsn string, migrationsFS fs.FS) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations/postgres")
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver : %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, migrateURL(dsn))
	if err != nil {
		return fmt.Errorf("failed to set up migrate instance : %w", err)
	}
	defer func() {
		_, _ = m.Close()
	}()

	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migration(up) : %w", err)
	}
	return nil
}

// migrateURL rewrites a libpq URL to the scheme of migrate's pgx v5 driver.
func migrateURL(dsn string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

func (s *PostgresStore) ExecTx(ctx context.Context, fn func(*PostgresStore) error) error {
	if s.pool == nil {
		return fmt.Errorf("store is already in a transaction")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}

	txStore := &PostgresStore{db: tx, now: s.now}

	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rb err: %v", err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func uniqueViolation(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return pgErr, true
	}
	return nil, false
}
