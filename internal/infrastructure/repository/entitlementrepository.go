// Package repository implements the domain repository interfaces on GORM.
package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tonpass-inc/tonpass/internal/domain/entitlement"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/mappers"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/models"
	"github.com/tonpass-inc/tonpass/internal/shared/db"
	"github.com/tonpass-inc/tonpass/internal/shared/errors"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// EntitlementRepositoryImpl implements the entitlement.Repository interface
type EntitlementRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.EntitlementMapper
	logger logger.Interface
}

// NewEntitlementRepository creates a new entitlement repository instance
func NewEntitlementRepository(database *gorm.DB, logger logger.Interface) entitlement.Repository {
	return &EntitlementRepositoryImpl{
		db:     database,
		mapper: mappers.NewEntitlementMapper(),
		logger: logger,
	}
}

// supportsRowLocks reports whether the dialect understands SELECT FOR UPDATE.
// SQLite locks the whole database per write transaction instead.
func supportsRowLocks(database *gorm.DB) bool {
	switch database.Dialector.Name() {
	case "mysql", "postgres":
		return true
	default:
		return false
	}
}

// Create creates a new entitlement
func (r *EntitlementRepositoryImpl) Create(ctx context.Context, e *entitlement.Entitlement) error {
	model, err := r.mapper.ToModel(e)
	if err != nil {
		return fmt.Errorf("failed to map entitlement: %w", err)
	}
	model.ID = 0

	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Create(model).Error; err != nil {
		if errors.IsDuplicateError(err) {
			return errors.NewConflictError("entitlement already exists")
		}
		r.logger.Errorw("failed to create entitlement",
			"subject_id", e.SubjectID(),
			"resource_id", e.ResourceID(),
			"error", err)
		return fmt.Errorf("failed to create entitlement: %w", err)
	}

	if err := e.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set entitlement ID: %w", err)
	}
	return nil
}

// Update updates an existing entitlement with optimistic locking
func (r *EntitlementRepositoryImpl) Update(ctx context.Context, e *entitlement.Entitlement) error {
	model, err := r.mapper.ToModel(e)
	if err != nil {
		return fmt.Errorf("failed to map entitlement: %w", err)
	}

	conn := db.GetTxFromContext(ctx, r.db)
	result := conn.Model(&models.EntitlementModel{}).
		Where("id = ? AND version = ?", model.ID, model.Version-1).
		Updates(map[string]any{
			"status":           model.Status,
			"contract_address": model.ContractAddress,
			"transaction_hash": model.TransactionHash,
			"expires_at":       model.ExpiresAt,
			"activated_at":     model.ActivatedAt,
			"revoked_at":       model.RevokedAt,
			"revoked_reason":   model.RevokedReason,
			"updated_at":       model.UpdatedAt,
			"version":          model.Version,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update entitlement", "id", model.ID, "error", result.Error)
		return fmt.Errorf("failed to update entitlement: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewConflictError("entitlement was modified concurrently")
	}
	return nil
}

// GetByID retrieves an entitlement by ID
func (r *EntitlementRepositoryImpl) GetByID(ctx context.Context, id uint) (*entitlement.Entitlement, error) {
	return r.getByID(ctx, id, false)
}

// GetByIDForUpdate retrieves an entitlement by ID holding a row lock until
// the surrounding transaction commits
func (r *EntitlementRepositoryImpl) GetByIDForUpdate(ctx context.Context, id uint) (*entitlement.Entitlement, error) {
	return r.getByID(ctx, id, true)
}

func (r *EntitlementRepositoryImpl) getByID(ctx context.Context, id uint, forUpdate bool) (*entitlement.Entitlement, error) {
	conn := db.GetTxFromContext(ctx, r.db)
	if forUpdate && supportsRowLocks(r.db) {
		conn = conn.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var model models.EntitlementModel
	if err := conn.First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entitlement.ErrEntitlementNotFound
		}
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

// GetByReference retrieves an entitlement by its payment reference
func (r *EntitlementRepositoryImpl) GetByReference(ctx context.Context, reference string) (*entitlement.Entitlement, error) {
	var model models.EntitlementModel
	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Where("reference = ?", reference).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entitlement.ErrEntitlementNotFound
		}
		return nil, fmt.Errorf("failed to get entitlement by reference: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

// GetBySubjectResource retrieves the latest entitlement for a subject-resource pair
func (r *EntitlementRepositoryImpl) GetBySubjectResource(ctx context.Context, subjectID, resourceID int64) (*entitlement.Entitlement, error) {
	var model models.EntitlementModel
	conn := db.GetTxFromContext(ctx, r.db)
	err := conn.Where("subject_id = ? AND resource_id = ?", subjectID, resourceID).
		Order("created_at DESC").
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, entitlement.ErrEntitlementNotFound
		}
		return nil, fmt.Errorf("failed to get entitlement: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

// GetPendingCreatedSince retrieves pending entitlements created at or after the cutoff
func (r *EntitlementRepositoryImpl) GetPendingCreatedSince(ctx context.Context, cutoff time.Time) ([]*entitlement.Entitlement, error) {
	var list []*models.EntitlementModel
	conn := db.GetTxFromContext(ctx, r.db)
	err := conn.Where("status = ? AND created_at >= ?", entitlement.StatusPending.String(), cutoff).
		Order("created_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending entitlements: %w", err)
	}
	return r.mapper.ToEntities(list)
}

// HasActive checks if the subject holds an active, unexpired entitlement for the resource
func (r *EntitlementRepositoryImpl) HasActive(ctx context.Context, subjectID, resourceID int64, now time.Time) (bool, error) {
	var count int64
	conn := db.GetTxFromContext(ctx, r.db)
	err := conn.Model(&models.EntitlementModel{}).
		Where("subject_id = ? AND resource_id = ? AND status = ?", subjectID, resourceID, entitlement.StatusActive.String()).
		Where("expires_at IS NULL OR expires_at > ?", now).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check active entitlement: %w", err)
	}
	return count > 0, nil
}

// CountPendingOlderThan counts pending entitlements created before the cutoff
func (r *EntitlementRepositoryImpl) CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var count int64
	conn := db.GetTxFromContext(ctx, r.db)
	err := conn.Model(&models.EntitlementModel{}).
		Where("status = ? AND created_at < ?", entitlement.StatusPending.String(), cutoff).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count pending entitlements: %w", err)
	}
	return count, nil
}

// DeletePendingOlderThan removes pending entitlements created before the cutoff
func (r *EntitlementRepositoryImpl) DeletePendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	conn := db.GetTxFromContext(ctx, r.db)
	result := conn.Where("status = ? AND created_at < ?", entitlement.StatusPending.String(), cutoff).
		Delete(&models.EntitlementModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete pending entitlements: %w", result.Error)
	}
	return result.RowsAffected, nil
}
