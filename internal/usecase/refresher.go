package usecase

import (
	"context"
	"fmt"
	"time"

	"FinRisk/pkg/cache"
	applogger "FinRisk/pkg/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Refresher periodically re-fetches actual series for open boards. A cache
// lock keeps runs from overlapping when a refresh outlasts the schedule.
type Refresher struct {
	cron     *cron.Cron
	schedule string
	uc       *ForecastUseCase
	locks    cache.Service
	lockKey  string
	timeout  time.Duration
	log      *applogger.Logger
}

func NewRefresher(schedule string, uc *ForecastUseCase, locks cache.Service, timeout time.Duration, log *applogger.Logger) *Refresher {
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Refresher{
		cron:     cron.New(),
		schedule: schedule,
		uc:       uc,
		locks:    locks,
		lockKey:  cache.GenerateKey("refresh:actual", uuid.NewString()),
		timeout:  timeout,
		log:      log,
	}
}

// Start registers the job and starts the scheduler. An empty schedule disables it.
func (r *Refresher) Start() error {
	if r.schedule == "" {
		r.log.Info("refresher disabled")
		return nil
	}
	if _, err := r.cron.AddFunc(r.schedule, r.run); err != nil {
		return fmt.Errorf("register refresh job %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.log.Info("refresher started", applogger.String("schedule", r.schedule))
	return nil
}

// Stop stops scheduling and waits for a running refresh, bounded by ctx.
func (r *Refresher) Stop(ctx context.Context) error {
	done := r.cron.Stop().Done()
	select {
	case <-done:
		r.log.Info("refresher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for refresher: %w", ctx.Err())
	}
}

// RunNow performs one refresh synchronously.
func (r *Refresher) RunNow() { r.run() }

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	ok, err := r.locks.TryLock(ctx, r.lockKey, r.timeout)
	if err != nil {
		r.log.Warn("refresh lock failed", applogger.Error(err))
		return
	}
	if !ok {
		r.log.Debug("refresh skipped, previous run active")
		return
	}
	defer func() { _ = r.locks.Unlock(context.Background(), r.lockKey) }()

	start := time.Now()
	if err := r.uc.RefreshActual(ctx); err != nil {
		r.log.Warn("refresh finished with errors", applogger.Error(err), applogger.Duration("duration_ms", time.Since(start)))
		return
	}
	r.log.Debug("refresh ok", applogger.Duration("duration_ms", time.Since(start)))
}
