package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"outliner/internal/config"
	"outliner/internal/repository/postgres"
)

func main() {
	drop := flag.Bool("drop", false, "Drop the tables before creating them (fresh start)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && *drop {
		log.Fatalf("BLOCKED: cannot run --drop in production environment")
	}
	if cfg.DatabaseURL == "" {
		log.Fatalf("DATABASE_URL is required")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)
	tm := postgres.NewTransactionManager(pool, logger)

	err = tm.ExecTx(ctx, func(ctx context.Context) error {
		if *drop {
			logger.Info("dropping tables", "kv_store", tables.KVStore)
			if err := tm.DropSchema(ctx, tables); err != nil {
				return err
			}
		}
		return tm.CreateSchema(ctx, tables)
	})
	if err != nil {
		log.Fatalf("Migration failed: %v", err)
	}

	logger.Info("schema ready",
		"environment", cfg.Environment,
		"table_prefix", cfg.TablePrefix,
		"kv_store", tables.KVStore,
	)
}
