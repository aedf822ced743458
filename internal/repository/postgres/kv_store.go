package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"outliner/internal/domain/repositories"
)

// PostgresKVStore implements the KeyValueStore interface on the <prefix>kv_store table
type PostgresKVStore struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewKVStore creates a new PostgresKVStore
func NewKVStore(config *RepositoryConfig) repositories.KeyValueStore {
	return &PostgresKVStore{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// Get retrieves the value for key; a missing key returns nil
func (r *PostgresKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	query := fmt.Sprintf(`
		SELECT value
		FROM %s
		WHERE key = $1
	`, r.tables.KVStore)

	var value []byte
	db := executorFor(ctx, r.pool)
	err := db.QueryRow(ctx, query, key).Scan(&value)
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, r.wrap("get", key, err)
	}

	return value, nil
}

// Set creates or replaces the value for key
func (r *PostgresKVStore) Set(ctx context.Context, key string, value []byte) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at
	`, r.tables.KVStore)

	db := executorFor(ctx, r.pool)
	if _, err := db.Exec(ctx, query, key, value, time.Now()); err != nil {
		return r.wrap("set", key, err)
	}

	r.logger.Debug("kv write", "key", key, "bytes", len(value))
	return nil
}

// Delete removes key
func (r *PostgresKVStore) Delete(ctx context.Context, key string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, r.tables.KVStore)

	db := executorFor(ctx, r.pool)
	if _, err := db.Exec(ctx, query, key); err != nil {
		return r.wrap("delete", key, err)
	}
	return nil
}

// List returns the keys starting with prefix, sorted
func (r *PostgresKVStore) List(ctx context.Context, prefix string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT key
		FROM %s
		WHERE key LIKE $1 ESCAPE '\'
		ORDER BY key
	`, r.tables.KVStore)

	db := executorFor(ctx, r.pool)
	rows, err := db.Query(ctx, query, likePrefix(prefix))
	if err != nil {
		return nil, r.wrap("list", prefix, err)
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan kv key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, r.wrap("list", prefix, err)
	}
	return keys, nil
}

func (r *PostgresKVStore) wrap(op, key string, err error) error {
	if IsPgUndefinedTableError(err) {
		return fmt.Errorf("kv %s %s: table %s missing, run cmd/migrate: %w", op, key, r.tables.KVStore, err)
	}
	return fmt.Errorf("kv %s %s: %w", op, key, err)
}

// likePrefix escapes LIKE wildcards in prefix and appends %.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
