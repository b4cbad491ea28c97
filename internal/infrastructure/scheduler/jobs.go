package scheduler

import (
	"context"

	accessUsecases "github.com/tonpass-inc/tonpass/internal/application/access/usecases"
	reconcileUsecases "github.com/tonpass-inc/tonpass/internal/application/reconcile/usecases"
)

// SweepJob adapts SweepPendingUseCase to the BatchJob interface.
type SweepJob struct {
	uc *reconcileUsecases.SweepPendingUseCase
}

// NewSweepJob creates a new SweepJob
func NewSweepJob(uc *reconcileUsecases.SweepPendingUseCase) *SweepJob {
	return &SweepJob{uc: uc}
}

func (j *SweepJob) Execute(ctx context.Context) (int, error) {
	result, err := j.uc.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return int(result.EntitlementsSwept + result.RequestsSwept), nil
}

// ContractStatsJob adapts ContractStatsUseCase to the BatchJob interface.
type ContractStatsJob struct {
	uc *reconcileUsecases.ContractStatsUseCase
}

// NewContractStatsJob creates a new ContractStatsJob
func NewContractStatsJob(uc *reconcileUsecases.ContractStatsUseCase) *ContractStatsJob {
	return &ContractStatsJob{uc: uc}
}

func (j *ContractStatsJob) Execute(ctx context.Context) (int, error) {
	report, err := j.uc.Execute(ctx)
	if err != nil {
		return 0, err
	}
	return len(report.Contracts), nil
}

// GateHealthJob adapts CheckGateHealthUseCase to the HealthChecker interface.
type GateHealthJob struct {
	uc *accessUsecases.CheckGateHealthUseCase
}

// NewGateHealthJob creates a new GateHealthJob
func NewGateHealthJob(uc *accessUsecases.CheckGateHealthUseCase) *GateHealthJob {
	return &GateHealthJob{uc: uc}
}

func (j *GateHealthJob) Execute(ctx context.Context) error {
	return j.uc.Execute(ctx)
}
