// Package db opens the PostgreSQL pool and manages the schema.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/TreeBites/treebites-push/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxRetries = 5
	defaultRetryDelay = time.Second
)

// NewPool connects to dbURL, retrying while the database comes up.
func NewPool(ctx context.Context, dbURL string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url %s: %w", logger.MaskConnectionString(dbURL), err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	log := logger.GetLogger()
	var lastErr error
	for attempt := 1; attempt <= defaultMaxRetries; attempt++ {
		pool, err := pgxpool.NewWithConfig(ctx, cfg)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				log.Infow("Connected to database",
					"host", cfg.ConnConfig.Host,
					"database", cfg.ConnConfig.Database,
					"maxConns", cfg.MaxConns)
				return pool, nil
			}
			pool.Close()
		}
		lastErr = err
		log.Warnw("Database connection attempt failed",
			"target", logger.MaskConnectionString(dbURL),
			"attempt", attempt,
			"maxRetries", defaultMaxRetries,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * defaultRetryDelay):
		}
	}
	return nil, fmt.Errorf("failed to connect to database %s after %d attempts: %w",
		logger.MaskConnectionString(dbURL), defaultMaxRetries, lastErr)
}
