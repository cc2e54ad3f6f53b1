package database

import (
	"context"
	"fmt"

	"cryptosim/src/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SetupDB opens the ledger connection pool and checks it answers before
// handing it back. The caller owns the pool and must Close it on shutdown.
func SetupDB(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.Databases.SQL.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	if cfg.Databases.SQL.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Databases.SQL.MaxConns
	}
	if cfg.Databases.SQL.MinConns > 0 {
		poolConfig.MinConns = cfg.Databases.SQL.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := CheckConnection(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// CheckConnection runs a trivial query against the pool.
func CheckConnection(ctx context.Context, pool *pgxpool.Pool) error {
	var result int
	if err := pool.QueryRow(ctx, "SELECT 1 + 1").Scan(&result); err != nil {
		return fmt.Errorf("failed to query database: %w. Please check your database configuration and ensure it's running", err)
	}
	return nil
}
