// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/credgate/credgate/pkg/errutil"
)

// SweepExpired evicts expired sessions from the store every interval until
// the context is cancelled. Eviction is an optimization only: stores already
// treat expired sessions as absent on read, so the system is correct with
// fully lazy eviction.
//
// onSwept, if non-nil, is called with the eviction count after each
// successful sweep.
func SweepExpired(ctx context.Context, store SessionStore, interval time.Duration, logger *slog.Logger, onSwept func(count int64)) {
	if interval <= 0 {
		interval = DefaultIdleTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				errutil.LogError(logger, "session sweep failed", err)
				continue
			}
			if onSwept != nil {
				onSwept(n)
			}
			if n > 0 {
				logger.Debug("expired sessions evicted", "count", n)
			}
		}
	}
}
