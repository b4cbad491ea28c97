package gate

import (
	"context"

	appgate "github.com/tonpass-inc/tonpass/internal/application/access/gate"
	accessUsecases "github.com/tonpass-inc/tonpass/internal/application/access/usecases"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// AccessRequestHandler routes join-request updates to the access coordinator.
// Plain messages are ignored; the coordinator only reacts to knocks.
type AccessRequestHandler struct {
	accessRequestUC *accessUsecases.HandleAccessRequestUseCase
	logger          logger.Interface
}

// NewAccessRequestHandler creates a new AccessRequestHandler
func NewAccessRequestHandler(
	accessRequestUC *accessUsecases.HandleAccessRequestUseCase,
	logger logger.Interface,
) *AccessRequestHandler {
	return &AccessRequestHandler{
		accessRequestUC: accessRequestUC,
		logger:          logger,
	}
}

// HandleUpdate processes one gate update
func (h *AccessRequestHandler) HandleUpdate(ctx context.Context, update appgate.Update) error {
	if update.JoinRequest == nil {
		return nil
	}

	result, err := h.accessRequestUC.Execute(ctx, *update.JoinRequest)
	if err != nil {
		return err
	}

	h.logger.Infow("access request handled",
		"subject_id", update.JoinRequest.SubjectID,
		"resource_id", update.JoinRequest.ResourceID,
		"approved", result.Approved,
	)
	return nil
}
