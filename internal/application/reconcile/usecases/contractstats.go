package usecases

import (
	"context"
	"fmt"

	"github.com/tonpass-inc/tonpass/internal/application/reconcile/ledger"
	"github.com/tonpass-inc/tonpass/internal/domain/contract"
	"github.com/tonpass-inc/tonpass/internal/domain/payment"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// ContractStatsUseCase aggregates off-chain payment totals with on-chain
// contract state for operator reporting
type ContractStatsUseCase struct {
	contractRepo contract.Repository
	paymentRepo  payment.Repository
	ledgerClient ledger.Client
	logger       logger.Interface
}

// NewContractStatsUseCase creates a new ContractStatsUseCase
func NewContractStatsUseCase(
	contractRepo contract.Repository,
	paymentRepo payment.Repository,
	ledgerClient ledger.Client,
	logger logger.Interface,
) *ContractStatsUseCase {
	return &ContractStatsUseCase{
		contractRepo: contractRepo,
		paymentRepo:  paymentRepo,
		ledgerClient: ledgerClient,
		logger:       logger,
	}
}

// ContractStats is the per-contract slice of the report
type ContractStats struct {
	ResourceID      int64
	Address         string
	Balance         int64
	SubscriberCount int
	TotalForwarded  int64
	StateAvailable  bool
}

// StatsReport is the aggregated operator report
type StatsReport struct {
	Contracts     []ContractStats
	PaymentCount  int64
	PaymentVolume int64
}

// Execute builds the report. Contracts whose on-chain state cannot be read
// are reported with StateAvailable false rather than failing the report.
func (uc *ContractStatsUseCase) Execute(ctx context.Context) (*StatsReport, error) {
	deployed, err := uc.contractRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployed contracts: %w", err)
	}

	count, volume, err := uc.paymentRepo.SumConfirmed(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to sum payments: %w", err)
	}

	report := &StatsReport{
		PaymentCount:  count,
		PaymentVolume: volume,
	}

	for _, c := range deployed {
		stats := ContractStats{
			ResourceID: c.ResourceID(),
			Address:    c.Address(),
		}

		state, err := uc.ledgerClient.GetContractState(ctx, c.Address())
		if err != nil {
			uc.logger.Warnw("failed to read contract state",
				"resource_id", c.ResourceID(),
				"address", c.Address(),
				"error", err,
			)
		} else {
			stats.Balance = state.Balance
			stats.SubscriberCount = state.SubscriberCount
			stats.TotalForwarded = state.TotalForwarded
			stats.StateAvailable = true
		}
		report.Contracts = append(report.Contracts, stats)
	}

	return report, nil
}
