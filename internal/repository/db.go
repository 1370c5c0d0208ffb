package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"focus-planner/internal/config"
	"focus-planner/internal/storage"
)

// OpenStore opens the backend named by cfg.Driver and runs migrations.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch cfg.Driver {
	case "", "sqlite":
		store, err = storage.OpenSQLite(cfg.SQLitePath)
	case "postgres":
		store, err = storage.OpenPostgres(ctx, cfg.PostgresDSN, storage.PostgresOptions{
			MaxConns: cfg.MaxConns,
			MinConns: cfg.MinConns,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("migrate db: %w", err)
	}
	return store, nil
}

func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func nullTime(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := fromMillis(*ms)
	return &t
}

// nullMillis converts an optional timestamp into a query argument.
func nullMillis(t *time.Time) any {
	if t == nil {
		return nil
	}
	return toMillis(*t)
}

// all runs a built query through q and returns its rows.
func all(ctx context.Context, q storage.Querier, b sq.Sqlizer) ([]storage.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.Prepare(query).All(ctx, args...)
}

func get(ctx context.Context, q storage.Querier, b sq.Sqlizer) (storage.Row, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	return q.Prepare(query).Get(ctx, args...)
}

func run(ctx context.Context, q storage.Querier, b sq.Sqlizer) (storage.Result, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return storage.Result{}, fmt.Errorf("build query: %w", err)
	}
	return q.Prepare(query).Run(ctx, args...)
}
