// Package usecases contains the access coordinator's application services:
// resolving gate knocks against entitlements and applying activations to the
// gate.
package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tonpass-inc/tonpass/internal/application/access/gate"
	"github.com/tonpass-inc/tonpass/internal/domain/access"
	"github.com/tonpass-inc/tonpass/internal/domain/contract"
	"github.com/tonpass-inc/tonpass/internal/domain/entitlement"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// HandleAccessRequestConfig holds configuration for knock handling
type HandleAccessRequestConfig struct {
	// PriceExpected is the access price in minor units
	PriceExpected int64
	// ToleranceBps is the accepted shortfall in basis points
	ToleranceBps int
	// RequestTTL is how long a knock stays eligible for approval
	RequestTTL time.Duration
}

const defaultRequestTTL = 48 * time.Hour

// HandleAccessRequestUseCase resolves a subject knocking on a gated resource.
// A subject with an active entitlement is let through immediately; anyone
// else gets a pending request plus a payment prompt carrying the reference
// the reconciler will match on.
type HandleAccessRequestUseCase struct {
	entitlementRepo entitlement.Repository
	requestRepo     access.Repository
	contractRepo    contract.Repository
	gateService     gate.Gate
	price           int64
	toleranceBps    int
	requestTTL      time.Duration
	logger          logger.Interface
}

// NewHandleAccessRequestUseCase creates a new HandleAccessRequestUseCase
func NewHandleAccessRequestUseCase(
	entitlementRepo entitlement.Repository,
	requestRepo access.Repository,
	contractRepo contract.Repository,
	gateService gate.Gate,
	config HandleAccessRequestConfig,
	logger logger.Interface,
) *HandleAccessRequestUseCase {
	ttl := config.RequestTTL
	if ttl <= 0 {
		ttl = defaultRequestTTL
	}

	return &HandleAccessRequestUseCase{
		entitlementRepo: entitlementRepo,
		requestRepo:     requestRepo,
		contractRepo:    contractRepo,
		gateService:     gateService,
		price:           config.PriceExpected,
		toleranceBps:    config.ToleranceBps,
		requestTTL:      ttl,
		logger:          logger,
	}
}

// AccessRequestResult describes how a knock was resolved
type AccessRequestResult struct {
	Approved   bool
	PromptSent bool
	Reference  string
}

// Execute resolves one knock
func (uc *HandleAccessRequestUseCase) Execute(ctx context.Context, req gate.JoinRequest) (*AccessRequestResult, error) {
	now := time.Now()

	active, err := uc.entitlementRepo.HasActive(ctx, req.SubjectID, req.ResourceID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check entitlement: %w", err)
	}
	if active {
		return uc.approve(ctx, req)
	}

	pending, err := access.NewPendingRequest(req.SubjectID, req.ResourceID, uc.requestTTL, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build pending request: %w", err)
	}
	if err := uc.requestRepo.Upsert(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to record pending request: %w", err)
	}

	ent, err := uc.findOrCreateIntent(ctx, req.SubjectID, req.ResourceID)
	if err != nil {
		return nil, err
	}

	result := &AccessRequestResult{Reference: ent.Reference()}

	// Prompt delivery is best-effort: a subject who blocked the bot can
	// still pay using a reference obtained elsewhere
	if err := uc.sendPrompt(ctx, req.SubjectID, ent); err != nil {
		uc.logger.Warnw("failed to send payment prompt",
			"subject_id", req.SubjectID,
			"resource_id", req.ResourceID,
			"error", err,
		)
		return result, nil
	}

	pending.MarkPromptSent()
	if err := uc.requestRepo.Upsert(ctx, pending); err != nil {
		uc.logger.Warnw("failed to record prompt delivery",
			"subject_id", req.SubjectID,
			"error", err,
		)
	}
	result.PromptSent = true
	return result, nil
}

// approve lets an already-entitled subject through and clears the knock
func (uc *HandleAccessRequestUseCase) approve(ctx context.Context, req gate.JoinRequest) (*AccessRequestResult, error) {
	if err := uc.gateService.ApproveJoinRequest(ctx, req.SubjectID, req.ResourceID); err != nil && !gate.IsAlreadySatisfied(err) {
		return nil, fmt.Errorf("failed to approve join request: %w", err)
	}

	if err := uc.requestRepo.Delete(ctx, req.SubjectID, req.ResourceID); err != nil {
		uc.logger.Warnw("failed to clear pending request after approval",
			"subject_id", req.SubjectID,
			"resource_id", req.ResourceID,
			"error", err,
		)
	}

	uc.logger.Infow("subject admitted on existing entitlement",
		"subject_id", req.SubjectID,
		"resource_id", req.ResourceID,
	)
	return &AccessRequestResult{Approved: true}, nil
}

// findOrCreateIntent reuses an existing pending entitlement so a re-knock
// keeps the same payment reference, creating a fresh one otherwise
func (uc *HandleAccessRequestUseCase) findOrCreateIntent(ctx context.Context, subjectID, resourceID int64) (*entitlement.Entitlement, error) {
	existing, err := uc.entitlementRepo.GetBySubjectResource(ctx, subjectID, resourceID)
	if err == nil {
		// At most one entitlement row exists per (subject, resource)
		switch {
		case existing.Status().IsPending():
			return existing, nil
		case existing.Status().IsRevoked():
			return nil, fmt.Errorf("subject %d on resource %d: %w", subjectID, resourceID, entitlement.ErrEntitlementRevoked)
		default:
			// Lapsed active entitlement; renewal requires administrative reset
			return nil, fmt.Errorf("entitlement for subject %d on resource %d has lapsed", subjectID, resourceID)
		}
	}
	if !errors.Is(err, entitlement.ErrEntitlementNotFound) {
		return nil, fmt.Errorf("failed to look up entitlement: %w", err)
	}

	ent, err := entitlement.NewEntitlement(subjectID, resourceID, uc.price, uc.toleranceBps)
	if err != nil {
		return nil, fmt.Errorf("failed to build entitlement: %w", err)
	}

	deployed, err := uc.contractRepo.GetByResourceID(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("no escrow contract for resource %d: %w", resourceID, err)
	}
	if err := ent.BindContract(deployed.Address()); err != nil {
		return nil, fmt.Errorf("failed to bind contract: %w", err)
	}

	if err := uc.entitlementRepo.Create(ctx, ent); err != nil {
		return nil, fmt.Errorf("failed to create entitlement: %w", err)
	}

	uc.logger.Infow("purchase intent registered",
		"entitlement_id", ent.ID(),
		"subject_id", subjectID,
		"resource_id", resourceID,
		"reference", ent.Reference(),
	)
	return ent, nil
}

func (uc *HandleAccessRequestUseCase) sendPrompt(ctx context.Context, subjectID int64, ent *entitlement.Entitlement) error {
	addr := ent.ContractAddress()
	if addr == nil {
		return fmt.Errorf("entitlement has no contract address")
	}

	text := fmt.Sprintf(
		"To unlock access, send %s to %s with this exact comment:\n\n%s",
		formatAmount(ent.PriceExpected()), *addr, ent.Reference(),
	)
	return uc.gateService.SendMessage(ctx, subjectID, text)
}

// formatAmount renders minor units as a decimal coin amount
func formatAmount(minor int64) string {
	const unit = 1_000_000_000
	whole := minor / unit
	frac := minor % unit
	if frac == 0 {
		return fmt.Sprintf("%d TON", whole)
	}
	s := fmt.Sprintf("%d.%09d", whole, frac)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	return s + " TON"
}
