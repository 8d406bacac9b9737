// Package archiver runs the scheduled idle-thread archival sweep. Threads
// whose last activity is older than the configured idle period get archived
// through the store, keeping listing queries focused on live conversations.
package archiver

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"

	"coachchat/pkg/store"
)

// Config controls the sweep schedule.
type Config struct {
	Enabled bool
	// Cron is a standard cron expression; empty means daily at 02:00.
	Cron string
	// IdlePeriod is how long a thread must sit without activity before the
	// sweep archives it.
	IdlePeriod time.Duration
	// BatchSize caps threads archived per run; 0 means unbounded.
	BatchSize int
}

// Start launches the sweep scheduler if enabled and returns a cancel func.
func Start(ctx context.Context, st *store.Store, cfg Config, log *zap.Logger) (context.CancelFunc, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if !cfg.Enabled {
		log.Info("archiver_disabled")
		return func() {}, nil
	}
	if cfg.IdlePeriod <= 0 {
		return nil, fmt.Errorf("archiver enabled but idle_period is not set")
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = "0 2 * * *"
	}
	if !gronx.IsValid(cronExpr) {
		log.Error("archiver_invalid_cron", zap.String("cron", cfg.Cron))
		return nil, fmt.Errorf("invalid archiver cron expression: %s", cfg.Cron)
	}

	log.Info("archiver_enabled",
		zap.String("cron", cronExpr),
		zap.Duration("idle_period", cfg.IdlePeriod),
	)
	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, st, cfg, cronExpr, log)
	return cancel, nil
}

// runScheduler sleeps until each cron tick and triggers a sweep.
func runScheduler(ctx context.Context, st *store.Store, cfg Config, cronExpr string, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			log.Info("archiver_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			log.Error("archiver_nexttick_failed", zap.String("cron", cronExpr), zap.Error(err))
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(time.Until(next)):
			if err := RunOnce(ctx, st, cfg, log); err != nil {
				log.Error("archiver_run_error", zap.Error(err))
			}
		case <-ctx.Done():
			log.Info("archiver_stopping")
			return
		}
	}
}

// RunOnce performs a single sweep immediately. Exposed so an admin trigger
// or test can invoke a run without waiting for the schedule.
func RunOnce(ctx context.Context, st *store.Store, cfg Config, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	cutoff := time.Now().UTC().Add(-cfg.IdlePeriod)
	n, err := st.ArchiveIdle(ctx, cutoff, cfg.BatchSize)
	if err != nil {
		return err
	}
	if n > 0 {
		log.Info("archiver_swept", zap.Int("archived", n), zap.Time("cutoff", cutoff))
	}
	return nil
}
