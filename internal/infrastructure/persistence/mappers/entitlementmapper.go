// Package mappers converts between domain entities and persistence models.
package mappers

import (
	"fmt"

	"github.com/tonpass-inc/tonpass/internal/domain/entitlement"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/models"
)

// EntitlementMapper handles the conversion between domain entities and persistence models
type EntitlementMapper interface {
	// ToEntity converts a persistence model to a domain entity
	ToEntity(model *models.EntitlementModel) (*entitlement.Entitlement, error)

	// ToModel converts a domain entity to a persistence model
	ToModel(entity *entitlement.Entitlement) (*models.EntitlementModel, error)

	// ToEntities converts multiple persistence models to domain entities
	ToEntities(models []*models.EntitlementModel) ([]*entitlement.Entitlement, error)
}

// entitlementMapper is the concrete implementation of EntitlementMapper
type entitlementMapper struct{}

// NewEntitlementMapper creates a new entitlement mapper
func NewEntitlementMapper() EntitlementMapper {
	return &entitlementMapper{}
}

// ToEntity converts a persistence model to a domain entity
func (m *entitlementMapper) ToEntity(model *models.EntitlementModel) (*entitlement.Entitlement, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := entitlement.ReconstructEntitlement(
		model.ID,
		model.Reference,
		model.SubjectID,
		model.ResourceID,
		entitlement.Status(model.Status),
		model.PriceExpected,
		model.ToleranceBps,
		model.ContractAddress,
		model.TransactionHash,
		model.ExpiresAt,
		model.ActivatedAt,
		model.RevokedAt,
		model.RevokedReason,
		model.CreatedAt,
		model.UpdatedAt,
		model.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct entitlement entity: %w", err)
	}

	return entity, nil
}

// ToModel converts a domain entity to a persistence model
func (m *entitlementMapper) ToModel(entity *entitlement.Entitlement) (*models.EntitlementModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.EntitlementModel{
		ID:              entity.ID(),
		Reference:       entity.Reference(),
		SubjectID:       entity.SubjectID(),
		ResourceID:      entity.ResourceID(),
		Status:          entity.Status().String(),
		PriceExpected:   entity.PriceExpected(),
		ToleranceBps:    entity.ToleranceBps(),
		ContractAddress: entity.ContractAddress(),
		TransactionHash: entity.TransactionHash(),
		ExpiresAt:       entity.ExpiresAt(),
		ActivatedAt:     entity.ActivatedAt(),
		RevokedAt:       entity.RevokedAt(),
		RevokedReason:   entity.RevokedReason(),
		CreatedAt:       entity.CreatedAt(),
		UpdatedAt:       entity.UpdatedAt(),
		Version:         entity.Version(),
	}, nil
}

// ToEntities converts multiple persistence models to domain entities
func (m *entitlementMapper) ToEntities(list []*models.EntitlementModel) ([]*entitlement.Entitlement, error) {
	entities := make([]*entitlement.Entitlement, 0, len(list))

	for i, model := range list {
		entity, err := m.ToEntity(model)
		if err != nil {
			return nil, fmt.Errorf("failed to map model at index %d (ID %d): %w", i, model.ID, err)
		}
		if entity != nil {
			entities = append(entities, entity)
		}
	}

	return entities, nil
}
