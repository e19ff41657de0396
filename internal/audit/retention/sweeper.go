// Package retention deletes audit events older than the retention horizon
// on a fixed daily schedule.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"audittrail/internal/audit/store"
	"audittrail/internal/platform/metrics"
)

// horizonYears is the fixed retention age. Events whose ingestion time is
// older than this are eligible for deletion.
const horizonYears = 3

// schedule fires once per day at 00:00 UTC.
const schedule = "0 0 * * *"

// Sweeper runs the retention sweep outside the request path. A failed run
// is logged and skipped; the next scheduled run proceeds regardless.
type Sweeper struct {
	store   store.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
	cron    *cron.Cron

	now func() time.Time
}

func New(st store.Store, logger *slog.Logger, m *metrics.Metrics) *Sweeper {
	return &Sweeper{
		store:   st,
		logger:  logger,
		metrics: m,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Start schedules the daily sweep. The cron entry never returns an error
// for a fixed valid spec, but the signature keeps startup wiring honest.
func (s *Sweeper) Start() error {
	if _, err := s.cron.AddFunc(schedule, func() {
		s.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("retention sweeper scheduled", "schedule", schedule, "horizon_years", horizonYears)
	return nil
}

// Stop halts the schedule and waits for an in-flight run to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// RunOnce performs a single sweep: delete everything ingested before
// now - horizon. Idempotent; a second immediate run deletes nothing.
func (s *Sweeper) RunOnce(ctx context.Context) {
	cutoff := s.now().AddDate(-horizonYears, 0, 0)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.ErrorContext(ctx, "retention sweep failed, will retry next schedule",
			"cutoff", cutoff.Format(time.RFC3339),
			"error", err.Error(),
		)
		return
	}
	s.metrics.AddRetentionDeleted(float64(deleted))
	s.logger.InfoContext(ctx, "retention sweep complete",
		"cutoff", cutoff.Format(time.RFC3339),
		"deleted", deleted,
	)
}
