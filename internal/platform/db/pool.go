// Package db provides the connection pool and schema management for the
// analytical store. The store is organized in three schemas: bronze
// (append-only raw extracts), silver (deduplicated latest state) and gold
// (derived tables). Pipeline stages drop and recreate their gold/silver
// outputs on every run, so concurrent runs must be serialized by the caller.
package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// EnsureSchemas creates the bronze/silver/gold schemas if absent. Called
// once before a pipeline run; a failure here is fatal for the run.
func EnsureSchemas(ctx context.Context, pool *pgxpool.Pool) error {
	for _, schema := range []string{"bronze", "silver", "gold"} {
		if _, err := pool.Exec(ctx, "CREATE SCHEMA IF NOT EXISTS "+schema); err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
	}
	return nil
}
