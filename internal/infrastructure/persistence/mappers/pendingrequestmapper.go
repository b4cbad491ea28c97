package mappers

import (
	"fmt"

	"github.com/tonpass-inc/tonpass/internal/domain/access"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/models"
)

// PendingRequestMapper handles the conversion between domain entities and persistence models
type PendingRequestMapper interface {
	ToEntity(model *models.PendingRequestModel) (*access.PendingRequest, error)
	ToModel(entity *access.PendingRequest) (*models.PendingRequestModel, error)
}

type pendingRequestMapper struct{}

// NewPendingRequestMapper creates a new pending request mapper
func NewPendingRequestMapper() PendingRequestMapper {
	return &pendingRequestMapper{}
}

func (m *pendingRequestMapper) ToEntity(model *models.PendingRequestModel) (*access.PendingRequest, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := access.ReconstructPendingRequest(
		model.SubjectID,
		model.ResourceID,
		model.PromptSent,
		model.RequestedAt,
		model.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct pending request: %w", err)
	}

	return entity, nil
}

func (m *pendingRequestMapper) ToModel(entity *access.PendingRequest) (*models.PendingRequestModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.PendingRequestModel{
		SubjectID:   entity.SubjectID(),
		ResourceID:  entity.ResourceID(),
		PromptSent:  entity.PromptSent(),
		RequestedAt: entity.RequestedAt(),
		ExpiresAt:   entity.ExpiresAt(),
	}, nil
}
