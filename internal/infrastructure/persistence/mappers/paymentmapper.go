package mappers

import (
	"fmt"

	"github.com/tonpass-inc/tonpass/internal/domain/payment"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/models"
)

// PaymentMapper handles the conversion between domain entities and persistence models
type PaymentMapper interface {
	ToEntity(model *models.PaymentModel) (*payment.Payment, error)
	ToModel(entity *payment.Payment) (*models.PaymentModel, error)
	ToEntities(models []*models.PaymentModel) ([]*payment.Payment, error)
}

type paymentMapper struct{}

// NewPaymentMapper creates a new payment mapper
func NewPaymentMapper() PaymentMapper {
	return &paymentMapper{}
}

func (m *paymentMapper) ToEntity(model *models.PaymentModel) (*payment.Payment, error) {
	if model == nil {
		return nil, nil
	}

	entity, err := payment.ReconstructPayment(
		model.ID,
		model.EntitlementID,
		model.TransactionHash,
		model.Amount,
		model.FromAddress,
		model.ToAddress,
		model.Comment,
		model.ConfirmedAt,
		model.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct payment entity: %w", err)
	}

	return entity, nil
}

func (m *paymentMapper) ToModel(entity *payment.Payment) (*models.PaymentModel, error) {
	if entity == nil {
		return nil, nil
	}

	return &models.PaymentModel{
		ID:              entity.ID(),
		EntitlementID:   entity.EntitlementID(),
		TransactionHash: entity.TransactionHash(),
		Amount:          entity.Amount(),
		FromAddress:     entity.FromAddress(),
		ToAddress:       entity.ToAddress(),
		Comment:         entity.Comment(),
		ConfirmedAt:     entity.ConfirmedAt(),
		CreatedAt:       entity.CreatedAt(),
	}, nil
}

func (m *paymentMapper) ToEntities(list []*models.PaymentModel) ([]*payment.Payment, error) {
	entities := make([]*payment.Payment, 0, len(list))

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
