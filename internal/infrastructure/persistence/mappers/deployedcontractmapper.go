package mappers

import (
	"fmt"

	"github.com/tonpass-inc/tonpass/internal/domain/contract"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/models"
)

// DeployedContractMapper handles the conversion between domain entities and persistence models
type DeployedContractMapper interface {
	ToEntity(model *models.DeployedContractModel) (*contract.DeployedContract, error)
	ToModel(entity *contract.DeployedContract) (*models.DeployedContractModel, error)
	ToEntities(models []*models.DeployedContractModel) ([]*contract.DeployedContract, error)
}

type deployedContractMapper struct{}

// NewDeployedContractMapper creates a new deployed contract mapper
func NewDeployedContractMapper() DeployedContractMapper {
	return &deployedContractMapper{}
}

func (m *deployedContractMapper) ToEntity(model *models.DeployedContractModel) (*contract.DeployedContract, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := contract.ReconstructDeployedContract(
		model.ID,
		model.ResourceID,
		model.Address,
		model.DeployedAt,
		model.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct deployed contract: %w", err)
	}

	return entity, nil
}

func (m *deployedContractMapper) ToModel(entity *contract.DeployedContract) (*models.DeployedContractModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.DeployedContractModel{
		ID:         entity.ID(),
		ResourceID: entity.ResourceID(),
		Address:    entity.Address(),
		DeployedAt: entity.DeployedAt(),
		CreatedAt:  entity.CreatedAt(),
	}, nil
}

func (m *deployedContractMapper) ToEntities(list []*models.DeployedContractModel) ([]*contract.DeployedContract, error) {
	entities := make([]*contract.DeployedContract, 0, len(list))

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
