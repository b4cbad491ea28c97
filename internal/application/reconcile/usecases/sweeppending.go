package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/tonpass-inc/tonpass/internal/domain/access"
	"github.com/tonpass-inc/tonpass/internal/domain/entitlement"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// SweepPendingConfig holds configuration for the sweep pass
type SweepPendingConfig struct {
	// EntitlementMaxAge is how long a pending entitlement may wait for a
	// payment before being swept
	EntitlementMaxAge time.Duration
}

const defaultEntitlementMaxAge = 7 * 24 * time.Hour

// SweepPendingUseCase removes abandoned purchase intents and lapsed access
// requests. Sweeping is housekeeping only; a swept intent can always be
// recreated by knocking again.
type SweepPendingUseCase struct {
	entitlementRepo entitlement.Repository
	requestRepo     access.Repository
	maxAge          time.Duration
	logger          logger.Interface
}

// NewSweepPendingUseCase creates a new SweepPendingUseCase
func NewSweepPendingUseCase(
	entitlementRepo entitlement.Repository,
	requestRepo access.Repository,
	config SweepPendingConfig,
	logger logger.Interface,
) *SweepPendingUseCase {
	maxAge := config.EntitlementMaxAge
	if maxAge <= 0 {
		maxAge = defaultEntitlementMaxAge
	}

	return &SweepPendingUseCase{
		entitlementRepo: entitlementRepo,
		requestRepo:     requestRepo,
		maxAge:          maxAge,
		logger:          logger,
	}
}

// SweepResult summarizes one sweep pass
type SweepResult struct {
	EntitlementsSwept int64
	RequestsSwept     int64
}

// Execute runs one sweep pass
func (uc *SweepPendingUseCase) Execute(ctx context.Context) (*SweepResult, error) {
	now := time.Now()
	result := &SweepResult{}

	swept, err := uc.entitlementRepo.DeletePendingOlderThan(ctx, now.Add(-uc.maxAge))
	if err != nil {
		return nil, fmt.Errorf("failed to sweep pending entitlements: %w", err)
	}
	result.EntitlementsSwept = swept

	requests, err := uc.requestRepo.DeleteExpired(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("failed to sweep expired requests: %w", err)
	}
	result.RequestsSwept = requests

	if result.EntitlementsSwept > 0 || result.RequestsSwept > 0 {
		uc.logger.Infow("sweep pass finished",
			"entitlements_swept", result.EntitlementsSwept,
			"requests_swept", result.RequestsSwept,
		)
	}
	return result, nil
}
