// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/tonpass-inc/tonpass/internal/shared/biztime"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// BatchJob defines the interface for a scheduled batch processing job.
// Each Execute call processes a batch and returns the number of items processed.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// HealthChecker defines the interface for a periodic health probe.
type HealthChecker interface {
	Execute(ctx context.Context) error
}

// SchedulerManager manages maintenance jobs using gocron v2.
//
// Note: payment reconciliation is managed separately by ReconcilerScheduler
// because it tracks last-success staleness for alerting.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	// Track whether the scheduler has been started
	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager instance.
// It initializes gocron with the business timezone for cron expressions.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterSweepJobs registers stale-record cleanup jobs:
// - Delete pending entitlements past the retention window
// - Delete expired pending access requests
func (m *SchedulerManager) RegisterSweepJobs(sweepJob BatchJob) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(1*time.Hour),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.processSweep(ctx, sweepJob)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("sweep", "pending-cleanup"),
		gocron.WithName("pending-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered sweep jobs", "interval", "1h")
	return nil
}

func (m *SchedulerManager) processSweep(ctx context.Context, sweepJob BatchJob) {
	m.logger.Debugw("pending sweep started")

	startTime := biztime.NowUTC()

	sweptCount, err := sweepJob.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("failed to sweep stale pending records",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if sweptCount > 0 {
		m.logger.Infow("stale pending records swept",
			"count", sweptCount,
			"duration", time.Since(startTime),
		)
	} else {
		m.logger.Debugw("no stale pending records to sweep",
			"duration", time.Since(startTime),
		)
	}
}

// RegisterGateHealthJobs registers the gate connectivity probe:
// - Ping the gate API every 2 minutes so operators notice revoked tokens
//   before subjects start knocking into a dead bot
func (m *SchedulerManager) RegisterGateHealthJobs(checker HealthChecker) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(2*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			m.checkGateHealth(ctx, checker)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("gate", "health-check"),
		gocron.WithName("gate-health-check"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered gate health jobs", "interval", "2m")
	return nil
}

func (m *SchedulerManager) checkGateHealth(ctx context.Context, checker HealthChecker) {
	m.logger.Debugw("starting gate health check")

	if err := checker.Execute(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("gate health check failed", "error", err)
		return
	}

	m.logger.Debugw("gate health check completed")
}

// RegisterContractStatsJobs registers the daily contract statistics report:
// - Logs per-contract confirmed payment totals alongside on-ledger state
//   at 03:00 business timezone
func (m *SchedulerManager) RegisterContractStatsJobs(statsJob BatchJob) error {
	_, err := m.scheduler.NewJob(
		gocron.CronJob("0 3 * * *", false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			m.reportContractStats(ctx, statsJob)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("stats", "contract-report"),
		gocron.WithName("contract-stats-report"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered contract stats jobs", "schedule", "03:00")
	return nil
}

func (m *SchedulerManager) reportContractStats(ctx context.Context, statsJob BatchJob) {
	m.logger.Debugw("contract stats report started")

	startTime := biztime.NowUTC()

	contractCount, err := statsJob.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("contract stats report failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	m.logger.Infow("contract stats report completed",
		"contracts", contractCount,
		"duration", time.Since(startTime),
	)
}

// ========================================
// Scheduler Lifecycle Methods
// ========================================

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler.
// It waits for all running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
