package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/tonpass-inc/tonpass/internal/domain/contract"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/mappers"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/models"
	"github.com/tonpass-inc/tonpass/internal/shared/db"
	"github.com/tonpass-inc/tonpass/internal/shared/errors"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// DeployedContractRepositoryImpl implements the contract.Repository interface
type DeployedContractRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.DeployedContractMapper
	logger logger.Interface
}

// NewDeployedContractRepository creates a new deployed contract repository instance
func NewDeployedContractRepository(database *gorm.DB, logger logger.Interface) contract.Repository {
	return &DeployedContractRepositoryImpl{
		db:     database,
		mapper: mappers.NewDeployedContractMapper(),
		logger: logger,
	}
}

// Create writes the deployment record. The unique index on resource_id makes
// the binding write-once.
func (r *DeployedContractRepositoryImpl) Create(ctx context.Context, c *contract.DeployedContract) error {
	model, err := r.mapper.ToModel(c)
	if err != nil {
		return fmt.Errorf("failed to map deployed contract: %w", err)
	}
	model.ID = 0

	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError("contract already deployed for resource")
		}
		r.logger.Errorw("failed to create deployment record",
			"resource_id", c.ResourceID(),
			"address", c.Address(),
			"error", err)
		return fmt.Errorf("failed to create deployment record: %w", err)
	}

	if err := c.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set deployment record ID: %w", err)
	}

	r.logger.Infow("deployment record created",
		"resource_id", c.ResourceID(),
		"address", c.Address())
	return nil
}

// GetByResourceID retrieves the deployment record for a resource
func (r *DeployedContractRepositoryImpl) GetByResourceID(ctx context.Context, resourceID int64) (*contract.DeployedContract, error) {
	var model models.DeployedContractModel
	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Where("resource_id = ?", resourceID).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, contract.ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to get deployment record: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

// GetByAddress retrieves the deployment record by contract address
func (r *DeployedContractRepositoryImpl) GetByAddress(ctx context.Context, address string) (*contract.DeployedContract, error) {
	var model models.DeployedContractModel
	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Where("address = ?", address).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, contract.ErrContractNotFound
		}
		return nil, fmt.Errorf("failed to get deployment record: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

// List retrieves all deployment records
func (r *DeployedContractRepositoryImpl) List(ctx context.Context) ([]*contract.DeployedContract, error) {
	var list []*models.DeployedContractModel
	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Order("resource_id ASC").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to list deployment records: %w", err)
	}
	return r.mapper.ToEntities(list)
}
