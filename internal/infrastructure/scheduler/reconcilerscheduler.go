package scheduler

import (
	"context"
	"sync"
	"time"

	reconcileUsecases "github.com/tonpass-inc/tonpass/internal/application/reconcile/usecases"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// ReconcilerScheduler drives the payment reconciliation loop.
// - Runs every pollInterval to match confirmed ledger transactions against
//   pending entitlements
// - Skips a tick when the previous pass is still running
// - Raises a critical alert when no pass has succeeded within alertThreshold
type ReconcilerScheduler struct {
	reconcileUC    *reconcileUsecases.ReconcilePendingUseCase
	logger         logger.Interface
	stopChan       chan struct{}
	stopOnce       sync.Once
	wg             sync.WaitGroup
	interval       time.Duration
	alertThreshold time.Duration
	lastSuccess    time.Time
	passRunning    bool
	running        bool
	mu             sync.RWMutex
}

const (
	defaultReconcileInterval = 30 * time.Second
	defaultAlertThreshold    = 5 * time.Minute
)

// NewReconcilerScheduler creates a new reconciler scheduler
func NewReconcilerScheduler(
	reconcileUC *reconcileUsecases.ReconcilePendingUseCase,
	interval time.Duration,
	alertThreshold time.Duration,
	logger logger.Interface,
) *ReconcilerScheduler {
	if interval <= 0 {
		interval = defaultReconcileInterval
	}
	if alertThreshold <= 0 {
		alertThreshold = defaultAlertThreshold
	}

	return &ReconcilerScheduler{
		reconcileUC:    reconcileUC,
		logger:         logger,
		stopChan:       make(chan struct{}),
		interval:       interval,
		alertThreshold: alertThreshold,
	}
}

// Start starts the scheduler
func (s *ReconcilerScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.lastSuccess = time.Now()
	s.mu.Unlock()

	s.logger.Infow("starting reconciler scheduler",
		"interval", s.interval,
		"alert_threshold", s.alertThreshold,
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLoop(ctx)
	}()
}

// Stop stops the scheduler gracefully
func (s *ReconcilerScheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		s.logger.Infow("stopping reconciler scheduler")
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Infow("reconciler scheduler stopped")
	})
}

// IsRunning returns whether the scheduler is running
func (s *ReconcilerScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// LastSuccess returns when a reconcile pass last finished without error
func (s *ReconcilerScheduler) LastSuccess() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSuccess
}

func (s *ReconcilerScheduler) runLoop(ctx context.Context) {
	// Run immediately on startup
	s.runPass(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Infow("reconciler scheduler stopped due to context cancellation")
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.runPass(ctx)
		}
	}
}

func (s *ReconcilerScheduler) runPass(ctx context.Context) {
	s.mu.Lock()
	if s.passRunning {
		s.mu.Unlock()
		s.logger.Warnw("previous reconcile pass still running, skipping tick")
		s.checkStaleness()
		return
	}
	s.passRunning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.passRunning = false
		s.mu.Unlock()
	}()

	startTime := time.Now()
	result, err := s.reconcileUC.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Errorw("reconcile pass failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		s.checkStaleness()
		return
	}

	s.mu.Lock()
	s.lastSuccess = time.Now()
	s.mu.Unlock()

	if result.Activated > 0 {
		s.logger.Infow("reconcile pass completed",
			"checked", result.PendingChecked,
			"activated", result.Activated,
			"duration", time.Since(startTime),
		)
	}
}

// checkStaleness raises a critical alert when passes have not succeeded for
// longer than the alert threshold. Operators treat this as a paging signal:
// payments are landing on the ledger without activating anything.
func (s *ReconcilerScheduler) checkStaleness() {
	s.mu.RLock()
	last := s.lastSuccess
	s.mu.RUnlock()

	if stale := time.Since(last); stale > s.alertThreshold {
		s.logger.Errorw("CRITICAL: reconciliation stalled",
			"last_success", last,
			"stalled_for", stale,
			"alert_threshold", s.alertThreshold,
		)
	}
}
