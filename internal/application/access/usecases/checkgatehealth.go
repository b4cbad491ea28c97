package usecases

import (
	"context"
	"sync"
	"time"

	"github.com/tonpass-inc/tonpass/internal/application/access/gate"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// CheckGateHealthUseCase probes the gate credentials and reachability on a
// schedule so a revoked bot token is noticed before subjects do
type CheckGateHealthUseCase struct {
	gateService gate.Gate
	mu          sync.Mutex
	lastHealthy time.Time
	logger      logger.Interface
}

// NewCheckGateHealthUseCase creates a new CheckGateHealthUseCase
func NewCheckGateHealthUseCase(gateService gate.Gate, logger logger.Interface) *CheckGateHealthUseCase {
	return &CheckGateHealthUseCase{
		gateService: gateService,
		logger:      logger,
	}
}

// Execute runs one probe
func (uc *CheckGateHealthUseCase) Execute(ctx context.Context) error {
	if err := uc.gateService.Ping(ctx); err != nil {
		uc.mu.Lock()
		last := uc.lastHealthy
		uc.mu.Unlock()

		uc.logger.Errorw("gate health check failed",
			"last_healthy", last,
			"error", err,
		)
		return err
	}

	uc.mu.Lock()
	uc.lastHealthy = time.Now()
	uc.mu.Unlock()

	uc.logger.Debugw("gate health check passed")
	return nil
}

// LastHealthy returns when the gate last answered a probe
func (uc *CheckGateHealthUseCase) LastHealthy() time.Time {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.lastHealthy
}
