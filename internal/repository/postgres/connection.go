package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RepositoryConfig is what every postgres-backed store needs.
type RepositoryConfig struct {
	Pool   *pgxpool.Pool
	Tables *TableNames
	Logger *slog.Logger
}

// TableNames are the environment-prefixed table names.
type TableNames struct {
	KVStore string
}

func NewTableNames(prefix string) *TableNames {
	return &TableNames{KVStore: prefix + "kv_store"}
}

const (
	poolMaxConns     = 10
	poolMinConns     = 1
	pgBouncerTxnPort = 6543
)

// CreateConnectionPool opens a pgx pool and verifies it with a ping.
//
// Transaction-mode PgBouncer (port 6543) cannot hold prepared statements across
// transactions, so unless the URL sets default_query_exec_mode the pool describes statements
// without preparing them.
func CreateConnectionPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = poolMaxConns
	cfg.MinConns = poolMinConns

	conn := cfg.ConnConfig
	if conn.Port == pgBouncerTxnPort && conn.DefaultQueryExecMode == pgx.QueryExecModeCacheStatement {
		conn.DefaultQueryExecMode = pgx.QueryExecModeCacheDescribe
		slog.Debug("pgbouncer port detected, using cache_describe exec mode")
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
