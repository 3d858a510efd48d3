package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gamenethq/gamenet-pos/internal/metrics"
)

type Store interface {
	RollupDailyRevenue(context.Context) error
	CleanupReadNotifications(ctx context.Context, before time.Time) error
	NotifyLowStock(ctx context.Context, threshold int) error
}

// readNotificationTTL is how long read notifications are kept before the
// cleanup job removes them.
const readNotificationTTL = 30 * 24 * time.Hour

type Runner struct {
	store             Store
	lowStockThreshold int
	log               zerolog.Logger
}

func NewRunner(store Store, lowStockThreshold int, log zerolog.Logger) *Runner {
	return &Runner{store: store, lowStockThreshold: lowStockThreshold, log: log}
}

func (r *Runner) Start(ctx context.Context) {
	go r.runEvery(ctx, "daily_revenue_rollup", 5*time.Minute, r.store.RollupDailyRevenue)
	go r.runEvery(ctx, "notification_cleanup", 1*time.Hour, func(c context.Context) error {
		return r.store.CleanupReadNotifications(c, time.Now().UTC().Add(-readNotificationTTL))
	})
	go r.runEvery(ctx, "low_stock_scan", 10*time.Minute, func(c context.Context) error {
		return r.store.NotifyLowStock(c, r.lowStockThreshold)
	})
}

func (r *Runner) runEvery(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	r.runOnce(ctx, name, fn)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.runOnce(ctx, name, fn)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, name string, fn func(context.Context) error) {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	metrics.JobDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	if err != nil {
		metrics.JobRuns.WithLabelValues(name, "error").Inc()
		r.log.Error().Err(err).Str("job", name).Dur("duration", elapsed).Msg("job run failed")
		return
	}
	metrics.JobRuns.WithLabelValues(name, "ok").Inc()
	r.log.Info().Str("job", name).Dur("duration", elapsed).Msg("job run ok")
}
