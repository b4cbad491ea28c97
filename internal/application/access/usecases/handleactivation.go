package usecases

import (
	"context"
	"fmt"

	"github.com/tonpass-inc/tonpass/internal/application/access/gate"
	reconcileuc "github.com/tonpass-inc/tonpass/internal/application/reconcile/usecases"
	"github.com/tonpass-inc/tonpass/internal/domain/access"
	"github.com/tonpass-inc/tonpass/internal/shared/biztime"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// HandleActivationUseCase applies a completed activation to the gate:
// approve the subject's pending knock and confirm by message. Every step is
// best-effort; the activation itself is already committed, and a subject
// whose approval fails here is admitted on the next knock instead.
type HandleActivationUseCase struct {
	requestRepo access.Repository
	gateService gate.Gate
	logger      logger.Interface
}

// NewHandleActivationUseCase creates a new HandleActivationUseCase
func NewHandleActivationUseCase(
	requestRepo access.Repository,
	gateService gate.Gate,
	logger logger.Interface,
) *HandleActivationUseCase {
	return &HandleActivationUseCase{
		requestRepo: requestRepo,
		gateService: gateService,
		logger:      logger,
	}
}

// Execute applies one activation event to the gate
func (uc *HandleActivationUseCase) Execute(ctx context.Context, event reconcileuc.ActivationEvent) {
	approved := uc.approveKnock(ctx, event)

	if err := uc.requestRepo.Delete(ctx, event.SubjectID, event.ResourceID); err != nil {
		uc.logger.Debugw("no pending request to clear",
			"subject_id", event.SubjectID,
			"resource_id", event.ResourceID,
		)
	}

	uc.notify(ctx, event, approved)
}

// approveKnock approves the subject's pending join request when one exists.
// Payment can land before the knock; the missing request is the normal case
// then, and the knock handler admits the subject later.
func (uc *HandleActivationUseCase) approveKnock(ctx context.Context, event reconcileuc.ActivationEvent) bool {
	if _, err := uc.requestRepo.Get(ctx, event.SubjectID, event.ResourceID); err != nil {
		uc.logger.Debugw("activation landed before knock",
			"subject_id", event.SubjectID,
			"resource_id", event.ResourceID,
		)
		return false
	}

	err := uc.gateService.ApproveJoinRequest(ctx, event.SubjectID, event.ResourceID)
	switch {
	case err == nil:
		uc.logger.Infow("join request approved after payment",
			"subject_id", event.SubjectID,
			"resource_id", event.ResourceID,
			"tx_hash", event.TransactionHash,
		)
		return true
	case gate.IsAlreadySatisfied(err):
		return true
	default:
		uc.logger.Warnw("failed to approve join request after payment",
			"subject_id", event.SubjectID,
			"resource_id", event.ResourceID,
			"error", err,
		)
		return false
	}
}

func (uc *HandleActivationUseCase) notify(ctx context.Context, event reconcileuc.ActivationEvent, approved bool) {
	var text string
	switch {
	case event.ExpiresAt != nil:
		text = fmt.Sprintf("Payment received. Your access is active until %s.",
			biztime.FormatInBizTimezone(*event.ExpiresAt, "2006-01-02 15:04 MST"))
	default:
		text = "Payment received. Your access is active."
	}
	if !approved {
		text += " Request to join again and you will be let in."
	}

	if err := uc.gateService.SendMessage(ctx, event.SubjectID, text); err != nil {
		uc.logger.Warnw("failed to send activation notice",
			"subject_id", event.SubjectID,
			"error", err,
		)
	}
}
