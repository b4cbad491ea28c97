package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tonpass-inc/tonpass/internal/domain/payment"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/mappers"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/models"
	"github.com/tonpass-inc/tonpass/internal/shared/db"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

// PaymentRepositoryImpl implements the payment.Repository interface
type PaymentRepositoryImpl struct {
	db     *gorm.DB
	mapper mappers.PaymentMapper
	logger logger.Interface
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(database *gorm.DB, logger logger.Interface) payment.Repository {
	return &PaymentRepositoryImpl{
		db:     database,
		mapper: mappers.NewPaymentMapper(),
		logger: logger,
	}
}

// CreateIgnoreDuplicate inserts the payment record, returning false when the
// transaction hash was already consumed
func (r *PaymentRepositoryImpl) CreateIgnoreDuplicate(ctx context.Context, p *payment.Payment) (bool, error) {
	model, err := r.mapper.ToModel(p)
	if err != nil {
		return false, fmt.Errorf("failed to map payment: %w", err)
	}
	model.ID = 0

	conn := db.GetTxFromContext(ctx, r.db)
	result := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "transaction_hash"}},
		DoNothing: true,
	}).Create(model)
	if result.Error != nil {
		r.logger.Errorw("failed to record payment",
			"tx_hash", p.TransactionHash(),
			"error", result.Error)
		return false, fmt.Errorf("failed to record payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	if err := p.SetID(model.ID); err != nil {
		return false, fmt.Errorf("failed to set payment ID: %w", err)
	}
	return true, nil
}

// GetByTransactionHash retrieves a payment by ledger transaction hash
func (r *PaymentRepositoryImpl) GetByTransactionHash(ctx context.Context, hash string) (*payment.Payment, error) {
	var model models.PaymentModel
	conn := db.GetTxFromContext(ctx, r.db)
	if err := conn.Where("transaction_hash = ?", hash).First(&model).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return r.mapper.ToEntity(&model)
}

// ExistsByTransactionHash checks if the transaction hash was already consumed
func (r *PaymentRepositoryImpl) ExistsByTransactionHash(ctx context.Context, hash string) (bool, error) {
	var count int64
	conn := db.GetTxFromContext(ctx, r.db)
	err := conn.Model(&models.PaymentModel{}).
		Where("transaction_hash = ?", hash).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check payment: %w", err)
	}
	return count > 0, nil
}

// ListByEntitlement retrieves all payments matched to an entitlement
func (r *PaymentRepositoryImpl) ListByEntitlement(ctx context.Context, entitlementID uint) ([]*payment.Payment, error) {
	var list []*models.PaymentModel
	conn := db.GetTxFromContext(ctx, r.db)
	err := conn.Where("entitlement_id = ?", entitlementID).
		Order("confirmed_at ASC").
		Find(&list).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return r.mapper.ToEntities(list)
}

// SumConfirmed returns the count and total amount of recorded payments
func (r *PaymentRepositoryImpl) SumConfirmed(ctx context.Context) (int64, int64, error) {
	var row struct {
		Count int64
		Total int64
	}
	conn := db.GetTxFromContext(ctx, r.db)
	err := conn.Model(&models.PaymentModel{}).
		Select("COUNT(*) AS count, COALESCE(SUM(amount), 0) AS total").
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to sum payments: %w", err)
	}
	return row.Count, row.Total, nil
}
