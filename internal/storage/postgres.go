package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
)

const postgresBackend = "postgres"

// PostgresStore is the networked backend: a pgx connection pool with
// explicit BEGIN/COMMIT/ROLLBACK transactions.
type PostgresStore struct {
	pool *pgxpool.Pool
	dsn  string
}

type PostgresOptions struct {
	MaxConns int32
	MinConns int32
}

func OpenPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg parse config: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}
	if opts.MinConns > 0 {
		cfg.MinConns = opts.MinConns
	}
	cfg.MaxConnIdleTime = 5 * time.Minute
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}

	return &PostgresStore{pool: pool, dsn: dsn}, nil
}

func (s *PostgresStore) Dialect() Dialect { return PostgresDialect }

func (s *PostgresStore) Prepare(query string) Statement {
	return pgStatement{conn: s.pool, query: query}
}

func (s *PostgresStore) Exec(ctx context.Context, stmt string) error {
	_, err := s.pool.Exec(ctx, stmt)
	return wrap(postgresBackend, "exec", err)
}

func (s *PostgresStore) WithTransaction(ctx context.Context, fn func(q Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return wrap(postgresBackend, "begin", err)
	}
	// Rollback after a successful commit is a no-op.
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(pgTx{tx: tx}); err != nil {
		return err
	}
	return wrap(postgresBackend, "commit", tx.Commit(ctx))
}

// Migrate applies the postgres migrations over a lib/pq database/sql handle.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	db, err := openMigrationDB("postgres", s.dsn)
	if err != nil {
		return wrap(postgresBackend, "migrate", err)
	}
	defer db.Close()
	return wrap(postgresBackend, "migrate", migrate(ctx, db, "postgres", "migrations/postgres"))
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

type pgConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type pgTx struct {
	tx pgx.Tx
}

func (t pgTx) Prepare(query string) Statement {
	return pgStatement{conn: t.tx, query: query}
}

func (t pgTx) Exec(ctx context.Context, stmt string) error {
	_, err := t.tx.Exec(ctx, stmt)
	return wrap(postgresBackend, "exec", err)
}

type pgStatement struct {
	conn  pgConn
	query string
}

func (s pgStatement) All(ctx context.Context, args ...any) ([]Row, error) {
	rows, err := s.conn.Query(ctx, s.query, args...)
	if err != nil {
		return nil, wrap(postgresBackend, "query", err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, wrap(postgresBackend, "scan", err)
	}
	out := make([]Row, len(maps))
	for i, m := range maps {
		out[i] = Row(m)
	}
	return out, nil
}

func (s pgStatement) Get(ctx context.Context, args ...any) (Row, error) {
	rows, err := s.All(ctx, args...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (s pgStatement) Run(ctx context.Context, args ...any) (Result, error) {
	tag, err := s.conn.Exec(ctx, s.query, args...)
	if err != nil {
		return Result{}, wrap(postgresBackend, "run", err)
	}
	return Result{AffectedCount: tag.RowsAffected()}, nil
}
