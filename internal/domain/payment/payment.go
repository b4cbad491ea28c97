// Package payment provides the append-only record of matched ledger payments.
// One record exists per ledger transaction hash; the unique constraint on the
// hash is the reconciler's exactly-once backstop.
package payment

import (
	"fmt"
	"time"
)

// Payment represents one matched ledger payment
type Payment struct {
	id              uint
	entitlementID   uint
	transactionHash string // Unique ledger transaction hash
	amount          int64  // Paid amount in minor units
	fromAddress     string
	toAddress       string
	comment         string // Raw marker text the match was made on
	confirmedAt     time.Time
	createdAt       time.Time
}

// NewPayment creates a payment record for a matched ledger transaction
func NewPayment(
	entitlementID uint,
	transactionHash string,
	amount int64,
	fromAddress, toAddress string,
	comment string,
	confirmedAt time.Time,
) (*Payment, error) {
	if entitlementID == 0 {
		return nil, fmt.Errorf("entitlement ID is required")
	}
	if transactionHash == "" {
		return nil, fmt.Errorf("transaction hash is required")
	}
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if fromAddress == "" || toAddress == "" {
		return nil, fmt.Errorf("from and to addresses are required")
	}
	if confirmedAt.IsZero() {
		return nil, fmt.Errorf("confirmation time is required")
	}

	return &Payment{
		entitlementID:   entitlementID,
		transactionHash: transactionHash,
		amount:          amount,
		fromAddress:     fromAddress,
		toAddress:       toAddress,
		comment:         comment,
		confirmedAt:     confirmedAt,
		createdAt:       time.Now(),
	}, nil
}

// ReconstructPayment reconstructs a payment from persistence
func ReconstructPayment(
	id uint,
	entitlementID uint,
	transactionHash string,
	amount int64,
	fromAddress, toAddress string,
	comment string,
	confirmedAt time.Time,
	createdAt time.Time,
) (*Payment, error) {
	if id == 0 {
		return nil, fmt.Errorf("payment ID cannot be zero")
	}
	if transactionHash == "" {
		return nil, fmt.Errorf("transaction hash is required")
	}

	return &Payment{
		id:              id,
		entitlementID:   entitlementID,
		transactionHash: transactionHash,
		amount:          amount,
		fromAddress:     fromAddress,
		toAddress:       toAddress,
		comment:         comment,
		confirmedAt:     confirmedAt,
		createdAt:       createdAt,
	}, nil
}

// ID returns the payment ID
func (p *Payment) ID() uint {
	return p.id
}

// EntitlementID returns the matched entitlement ID
func (p *Payment) EntitlementID() uint {
	return p.entitlementID
}

// TransactionHash returns the ledger transaction hash
func (p *Payment) TransactionHash() string {
	return p.transactionHash
}

// Amount returns the paid amount in minor units
func (p *Payment) Amount() int64 {
	return p.amount
}

// FromAddress returns the payer address
func (p *Payment) FromAddress() string {
	return p.fromAddress
}

// ToAddress returns the receiving contract address
func (p *Payment) ToAddress() string {
	return p.toAddress
}

// Comment returns the raw marker text the match was made on
func (p *Payment) Comment() string {
	return p.comment
}

// ConfirmedAt returns the ledger confirmation time
func (p *Payment) ConfirmedAt() time.Time {
	return p.confirmedAt
}

// CreatedAt returns when the record was written
func (p *Payment) CreatedAt() time.Time {
	return p.createdAt
}

// SetID sets the payment ID (only for persistence layer use)
func (p *Payment) SetID(id uint) error {
	if p.id != 0 {
		return fmt.Errorf("payment ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("payment ID cannot be zero")
	}
	p.id = id
	return nil
}
