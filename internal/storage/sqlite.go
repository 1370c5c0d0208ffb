package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const sqliteBackend = "sqlite"

// SQLiteStore is the embedded single-file backend. It holds exactly one
// connection, so every statement and transaction is serialized.
type SQLiteStore struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database file at dsn in WAL mode.
func OpenSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "focus_planner.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	return &SQLiteStore{db: db}, nil
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

func (s *SQLiteStore) Dialect() Dialect { return SQLiteDialect }

func (s *SQLiteStore) Prepare(query string) Statement {
	return gormStatement{db: s.db, query: query}
}

func (s *SQLiteStore) Exec(ctx context.Context, stmt string) error {
	return wrap(sqliteBackend, "exec", s.db.WithContext(ctx).Exec(stmt).Error)
}

// WithTransaction returns errors from fn unchanged; BEGIN and COMMIT
// failures come back as StorageError.
func (s *SQLiteStore) WithTransaction(ctx context.Context, fn func(q Querier) error) error {
	var fnErr error
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		fnErr = fn(sqliteTx{db: tx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	return wrap(sqliteBackend, "tx", err)
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return wrap(sqliteBackend, "migrate", err)
	}
	return wrap(sqliteBackend, "migrate", migrate(ctx, sqlDB, "sqlite3", "migrations/sqlite"))
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type sqliteTx struct {
	db *gorm.DB
}

func (t sqliteTx) Prepare(query string) Statement {
	return gormStatement{db: t.db, query: query}
}

func (t sqliteTx) Exec(ctx context.Context, stmt string) error {
	return wrap(sqliteBackend, "exec", t.db.WithContext(ctx).Exec(stmt).Error)
}

type gormStatement struct {
	db    *gorm.DB
	query string
}

func (s gormStatement) All(ctx context.Context, args ...any) ([]Row, error) {
	rows, err := s.db.WithContext(ctx).Raw(s.query, args...).Rows()
	if err != nil {
		return nil, wrap(sqliteBackend, "query", err)
	}
	defer rows.Close()

	out, err := scanSQLRows(rows)
	if err != nil {
		return nil, wrap(sqliteBackend, "scan", err)
	}
	return out, nil
}

func (s gormStatement) Get(ctx context.Context, args ...any) (Row, error) {
	rows, err := s.All(ctx, args...)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

func (s gormStatement) Run(ctx context.Context, args ...any) (Result, error) {
	res := s.db.WithContext(ctx).Exec(s.query, args...)
	if res.Error != nil {
		return Result{}, wrap(sqliteBackend, "run", res.Error)
	}
	return Result{AffectedCount: res.RowsAffected}, nil
}

func scanSQLRows(rows *sql.Rows) ([]Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, col := range cols {
			row[col] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
