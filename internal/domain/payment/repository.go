package payment

import (
	"context"
	"errors"
)

// ErrPaymentNotFound is returned when a payment record is not found
var ErrPaymentNotFound = errors.New("payment not found")

// Repository defines the interface for payment persistence operations
type Repository interface {
	// CreateIgnoreDuplicate inserts the payment record, returning false when
	// a record with the same transaction hash already exists. The duplicate
	// is not an error: it means another reconciler pass already claimed the
	// transaction.
	CreateIgnoreDuplicate(ctx context.Context, p *Payment) (bool, error)

	// GetByTransactionHash retrieves a payment by ledger transaction hash
	GetByTransactionHash(ctx context.Context, hash string) (*Payment, error)

	// ExistsByTransactionHash checks if the transaction hash was already
	// consumed by a previous match
	ExistsByTransactionHash(ctx context.Context, hash string) (bool, error)

	// ListByEntitlement retrieves all payments matched to an entitlement
	ListByEntitlement(ctx context.Context, entitlementID uint) ([]*Payment, error)

	// SumConfirmed returns the count and total amount of recorded payments
	SumConfirmed(ctx context.Context) (count int64, total int64, err error)
}
