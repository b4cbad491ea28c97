package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tonpass-inc/tonpass/internal/domain/access"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/mappers"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/models"
	"github.com/tonpass-inc/tonpass/internal/shared/db"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// PendingRequestRepositoryImpl implements the access.Repository interface
type PendingRequestRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PendingRequestMapper
	logger logger.Interface
}

// NewPendingRequestRepository creates a new pending request repository instance
func NewPendingRequestRepository(database *gorm.DB, logger logger.Interface) access.Repository {
	return &PendingRequestRepositoryImpl{
		db:     database,
		mapper: mappers.NewPendingRequestMapper(),
		logger: logger,
	}
}

// Upsert records the request, replacing any previous request for the same
// subject-resource pair
func (r *PendingRequestRepositoryImpl) Upsert(ctx context.Context, req *access.PendingRequest) error {
	model, err := r.mapper.ToModel(req)
	if err != nil {
		return fmt.Errorf("failed to map pending request: %w", err)
	}

	conn := db.GetTxFromContext(ctx, r.db)
	err = conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "subject_id"}, {Name: "resource_id"}},
		UpdateAll: true,
	}).Create(model).Error
	if err != nil {
		r.logger.Errorw("failed to upsert pending request",
			"subject_id", req.SubjectID(),
			"resource_id", req.ResourceID(),
			"error", err)
		return fmt.Errorf("failed to upsert pending request: %w", err)
	}
	return nil
}

// Get retrieves the pending request for a subject-resource pair
func (r *PendingRequestRepositoryImpl) Get(ctx context.Context, subjectID, resourceID int64) (*access.PendingRequest, error) {
	var model models.PendingRequestModel
	conn := db.GetTxFromContext(ctx, r.db)
	err := conn.Where("subject_id = ? AND resource_id = ?", subjectID, resourceID).
		First(&model).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, access.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get pending request: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

// Delete removes a resolved request
func (r *PendingRequestRepositoryImpl) Delete(ctx context.Context, subjectID, resourceID int64) error {
	conn := db.GetTxFromContext(ctx, r.db)
	result := conn.Where("subject_id = ? AND resource_id = ?", subjectID, resourceID).
		Delete(&models.PendingRequestModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete pending request: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return access.ErrRequestNotFound
	}
	return nil
}

// DeleteExpired removes requests that lapsed before now
func (r *PendingRequestRepositoryImpl) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	conn := db.GetTxFromContext(ctx, r.db)
	result := conn.Where("expires_at < ?", now).Delete(&models.PendingRequestModel{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete expired requests: %w", result.Error)
	}
	return result.RowsAffected, nil
}
