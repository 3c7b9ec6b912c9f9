// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

// Package store provides database connectivity and schema management.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry parameters. The database is commonly still starting when
// the service comes up, so the first pings are expected to fail.
const (
	connectInitialBackoff = 500 * time.Millisecond
	connectMaxBackoff     = 5 * time.Second
	connectMaxRetries     = 10
)

// Connect opens a pgx connection pool and waits for the database to become
// reachable, pinging with capped exponential backoff.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").
			With("operation", "create connection pool").
			Wrap(err)
	}

	backoff := retry.NewExponential(connectInitialBackoff)
	backoff = retry.WithCappedDuration(connectMaxBackoff, backoff)
	backoff = retry.WithMaxRetries(connectMaxRetries, backoff)

	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	}); err != nil {
		pool.Close()
		return nil, oops.Code("DB_UNREACHABLE").
			With("operation", "ping database").
			Wrap(err)
	}

	return pool, nil
}
