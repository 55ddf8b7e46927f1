package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ansard/weddingbook/internal/config"
)

const (
	connectAttempts = 5
	connectBackoff  = 2 * time.Second
	pingTimeout     = 5 * time.Second
)

// OpenPostgres dials PostgreSQL and verifies the connection before returning
// the pool. The database container often comes up after the API in compose
// setups, so the first pings are retried with a short backoff.
func OpenPostgres(ctx context.Context, cfg config.PostgresConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if lastErr = pingOnce(ctx, pool); lastErr == nil {
			return pool, nil
		}
		if attempt < connectAttempts {
			log.Printf("storage: postgres not ready (attempt %d/%d): %v", attempt, connectAttempts, lastErr)
			select {
			case <-ctx.Done():
				pool.Close()
				return nil, ctx.Err()
			case <-time.After(connectBackoff):
			}
		}
	}

	pool.Close()
	return nil, fmt.Errorf("ping postgres: %w", lastErr)
}

func pingOnce(ctx context.Context, pool *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return pool.Ping(ctx)
}
