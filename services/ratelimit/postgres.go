package ratelimit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PGStore is a CounterStore backed by PostgreSQL for multi-instance
// deployments, where every replica must see the same counters. The window
// transition runs as a single atomic upsert so concurrent callers on the same
// key serialize on the row; errors surface to the Limiter, which fails open.
type PGStore struct {
	db *sql.DB
}

// NewPGStore creates a PostgreSQL-backed counter store.
func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

const incrQuery = `
	INSERT INTO rate_limit_counters (key, count, window_start)
	VALUES ($1, 1, $2)
	ON CONFLICT (key) DO UPDATE SET
		count = CASE
			WHEN rate_limit_counters.window_start <= $3 THEN 1
			ELSE rate_limit_counters.count + 1
		END,
		window_start = CASE
			WHEN rate_limit_counters.window_start <= $3 THEN $2
			ELSE rate_limit_counters.window_start
		END
	RETURNING count, window_start
`

// Incr implements CounterStore.
func (s *PGStore) Incr(ctx context.Context, key string, window time.Duration) (int, time.Time, error) {
	now := time.Now().UTC()
	expiredBefore := now.Add(-window)

	var count int
	var windowStart time.Time
	err := s.db.QueryRowContext(ctx, incrQuery, key, now, expiredBefore).Scan(&count, &windowStart)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	return count, windowStart, nil
}

// Cleanup deletes counters whose window started before the cutoff.
func (s *PGStore) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_limit_counters WHERE window_start < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup rate limit counters: %w", err)
	}
	return result.RowsAffected()
}
