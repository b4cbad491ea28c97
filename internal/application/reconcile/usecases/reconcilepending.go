// Package usecases contains the reconciler's application services: matching
// confirmed ledger transactions against pending entitlements and activating
// access exactly once per transaction.
package usecases

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tonpass-inc/tonpass/internal/application/reconcile/ledger"
	"github.com/tonpass-inc/tonpass/internal/domain/entitlement"
	"github.com/tonpass-inc/tonpass/internal/domain/payment"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// transactionManager runs a function inside a database transaction. The
// reconciler's activation step must hold the entitlement row lock across the
// status check, payment insert, and update.
type transactionManager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ActivationEvent describes one completed activation for downstream side
// effects (approving the gate request, notifying the subject)
type ActivationEvent struct {
	EntitlementID   uint
	SubjectID       int64
	ResourceID      int64
	TransactionHash string
	Amount          int64
	ExpiresAt       *time.Time
}

// ActivationHandler consumes activation events after commit. Failures are
// logged and never unwind the activation; the payment is final.
type ActivationHandler func(ctx context.Context, event ActivationEvent)

// ReconcilePendingConfig holds configuration for the reconcile pass
type ReconcilePendingConfig struct {
	// LookbackWindow bounds how far back pending entitlements are matched
	LookbackWindow time.Duration
	// AccessPeriod is the granted access duration; zero means lifetime
	AccessPeriod time.Duration
}

const defaultLookbackWindow = 24 * time.Hour

// ReconcilePendingUseCase matches confirmed ledger transactions against
// pending entitlements and activates them
type ReconcilePendingUseCase struct {
	entitlementRepo entitlement.Repository
	paymentRepo     payment.Repository
	ledgerClient    ledger.Client
	txManager       transactionManager
	onActivated     ActivationHandler
	lookbackWindow  time.Duration
	accessPeriod    time.Duration
	executeMu       sync.Mutex // Prevents concurrent passes from racing on the same window
	logger          logger.Interface
}

// NewReconcilePendingUseCase creates a new ReconcilePendingUseCase
func NewReconcilePendingUseCase(
	entitlementRepo entitlement.Repository,
	paymentRepo payment.Repository,
	ledgerClient ledger.Client,
	txManager transactionManager,
	onActivated ActivationHandler,
	config ReconcilePendingConfig,
	logger logger.Interface,
) *ReconcilePendingUseCase {
	lookback := config.LookbackWindow
	if lookback <= 0 {
		lookback = defaultLookbackWindow
	}

	return &ReconcilePendingUseCase{
		entitlementRepo: entitlementRepo,
		paymentRepo:     paymentRepo,
		ledgerClient:    ledgerClient,
		txManager:       txManager,
		onActivated:     onActivated,
		lookbackWindow:  lookback,
		accessPeriod:    config.AccessPeriod,
		logger:          logger,
	}
}

// ReconcileResult summarizes one reconcile pass
type ReconcileResult struct {
	PendingChecked int
	Activated      int
	AlreadyActive  int
	Unmatched      int
	Failed         int
}

// Execute runs one reconcile pass over the pending window. Failures on one
// entitlement never block the rest of the pass.
func (uc *ReconcilePendingUseCase) Execute(ctx context.Context) (*ReconcileResult, error) {
	uc.executeMu.Lock()
	defer uc.executeMu.Unlock()

	cutoff := time.Now().Add(-uc.lookbackWindow)
	pending, err := uc.entitlementRepo.GetPendingCreatedSince(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending entitlements: %w", err)
	}

	result := &ReconcileResult{PendingChecked: len(pending)}
	if len(pending) == 0 {
		return result, nil
	}

	uc.logger.Debugw("reconciling pending entitlements",
		"count", len(pending),
		"cutoff", cutoff,
	)

	// One ledger fetch per contract address, shared by all entitlements
	// pointing at it
	txsByAddress := make(map[string][]ledger.Transaction)
	for _, e := range pending {
		addr := e.ContractAddress()
		if addr == nil {
			continue
		}
		if _, ok := txsByAddress[*addr]; ok {
			continue
		}
		txs, err := uc.ledgerClient.GetTransactions(ctx, *addr, cutoff)
		if err != nil {
			// Leave the address unresolved; its entitlements count as
			// unmatched this pass and are retried on the next one
			uc.logger.Warnw("failed to fetch ledger transactions",
				"address", *addr,
				"error", err,
			)
			continue
		}
		txsByAddress[*addr] = txs
	}

	for _, e := range pending {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		tx := uc.findMatch(e, txsByAddress)
		if tx == nil {
			result.Unmatched++
			continue
		}

		outcome, err := uc.activate(ctx, e.ID(), tx)
		switch {
		case err != nil:
			result.Failed++
			uc.logger.Errorw("failed to activate entitlement",
				"entitlement_id", e.ID(),
				"tx_hash", tx.Hash,
				"error", err,
			)
		case outcome == nil:
			result.AlreadyActive++
		default:
			result.Activated++
			if uc.onActivated != nil {
				uc.onActivated(ctx, *outcome)
			}
		}
	}

	if result.Activated > 0 || result.Failed > 0 {
		uc.logger.Infow("reconcile pass finished",
			"checked", result.PendingChecked,
			"activated", result.Activated,
			"already_active", result.AlreadyActive,
			"unmatched", result.Unmatched,
			"failed", result.Failed,
		)
	}

	return result, nil
}

// findMatch looks for a confirmed transaction carrying the entitlement's
// payment reference with an acceptable amount. An underpaid transaction with
// the right reference is skipped; the payer may retry with the full amount
// and the later transaction still matches.
func (uc *ReconcilePendingUseCase) findMatch(e *entitlement.Entitlement, txsByAddress map[string][]ledger.Transaction) *ledger.Transaction {
	addr := e.ContractAddress()
	if addr == nil {
		return nil
	}

	for i := range txsByAddress[*addr] {
		tx := &txsByAddress[*addr][i]
		if !e.MatchesComment(tx.Comment) {
			continue
		}
		if tx.ConfirmedAt.Before(e.CreatedAt()) {
			// A pre-existing transaction cannot pay for a later intent
			continue
		}
		if !e.AcceptsAmount(tx.Amount) {
			uc.logger.Warnw("matching transaction below tolerance floor",
				"entitlement_id", e.ID(),
				"tx_hash", tx.Hash,
				"amount", tx.Amount,
				"floor", e.MinAcceptableAmount(),
			)
			continue
		}
		return tx
	}
	return nil
}

// activate performs the locked activation. Returns (nil, nil) when the
// entitlement was already active or the transaction hash was already
// consumed, both idempotent outcomes.
func (uc *ReconcilePendingUseCase) activate(ctx context.Context, entitlementID uint, tx *ledger.Transaction) (*ActivationEvent, error) {
	var event *ActivationEvent

	err := uc.txManager.RunInTransaction(ctx, func(txCtx context.Context) error {
		e, err := uc.entitlementRepo.GetByIDForUpdate(txCtx, entitlementID)
		if err != nil {
			return fmt.Errorf("failed to lock entitlement: %w", err)
		}

		if e.Status() != entitlement.StatusPending {
			// A concurrent pass or operator action got here first
			return nil
		}

		record, err := payment.NewPayment(
			e.ID(), tx.Hash, tx.Amount, tx.FromAddress, tx.ToAddress, tx.Comment, tx.ConfirmedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to build payment record: %w", err)
		}

		inserted, err := uc.paymentRepo.CreateIgnoreDuplicate(txCtx, record)
		if err != nil {
			return fmt.Errorf("failed to record payment: %w", err)
		}
		if !inserted {
			// The hash was consumed by another entitlement's activation
			uc.logger.Warnw("transaction hash already consumed",
				"entitlement_id", e.ID(),
				"tx_hash", tx.Hash,
			)
			return nil
		}

		var expiresAt *time.Time
		if uc.accessPeriod > 0 {
			expiry := time.Now().Add(uc.accessPeriod)
			expiresAt = &expiry
		}

		if err := e.Activate(tx.Hash, expiresAt); err != nil {
			return fmt.Errorf("failed to activate entitlement: %w", err)
		}
		if err := uc.entitlementRepo.Update(txCtx, e); err != nil {
			return fmt.Errorf("failed to update entitlement: %w", err)
		}

		event = &ActivationEvent{
			EntitlementID:   e.ID(),
			SubjectID:       e.SubjectID(),
			ResourceID:      e.ResourceID(),
			TransactionHash: tx.Hash,
			Amount:          tx.Amount,
			ExpiresAt:       expiresAt,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if event != nil {
		uc.logger.Infow("entitlement activated",
			"entitlement_id", event.EntitlementID,
			"subject_id", event.SubjectID,
			"resource_id", event.ResourceID,
			"tx_hash", event.TransactionHash,
			"amount", event.Amount,
		)
	}
	return event, nil
}
