package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

// Open connects to PostgreSQL and verifies the connection with a bounded
// retry loop. The database is commonly still starting when the process
// comes up, so each failed ping waits a fixed backoff before the next
// attempt; once the budget is spent the caller is expected to fail fast.
func Open(ctx context.Context, dsn string, attempts int, backoff time.Duration, logger *slog.Logger) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	var pingErr error
	for i := 0; i < attempts; i++ {
		pingErr = db.PingContext(ctx)
		if pingErr == nil {
			return db, nil
		}
		logger.WarnContext(ctx, "postgres not ready, retrying",
			"attempt", i+1,
			"backoff", backoff.String(),
			"error", pingErr.Error(),
		)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	db.Close()
	return nil, fmt.Errorf("postgres unreachable after %d attempts: %w", attempts, pingErr)
}
