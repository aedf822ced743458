package postgres

import (
	"context"
	"fmt"
)

// CreateSchema creates the tables used by this service if they do not exist.
// Runs inside a surrounding ExecTx when ctx carries one.
func (tm *TransactionManager) CreateSchema(ctx context.Context, tables *TableNames) error {
	stmt := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			key        TEXT PRIMARY KEY,
			value      BYTEA NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`, tables.KVStore)

	if _, err := executorFor(ctx, tm.pool).Exec(ctx, stmt); err != nil {
		return fmt.Errorf("create %s: %w", tables.KVStore, err)
	}
	return nil
}

// DropSchema drops the tables created by CreateSchema.
func (tm *TransactionManager) DropSchema(ctx context.Context, tables *TableNames) error {
	stmt := fmt.Sprintf(`DROP TABLE IF EXISTS %s CASCADE`, tables.KVStore)
	if _, err := executorFor(ctx, tm.pool).Exec(ctx, stmt); err != nil {
		return fmt.Errorf("drop %s: %w", tables.KVStore, err)
	}
	return nil
}
