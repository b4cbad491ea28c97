package models

import "time"

// PaymentModel represents the database persistence model for matched
// payments. The unique index on TransactionHash is the exactly-once
// backstop for the reconciler.
type PaymentModel struct {
	ID              uint   `gorm:"primarykey"`
	EntitlementID   uint   `gorm:"not null;index"`
	TransactionHash string `gorm:"not null;size:128;uniqueIndex:idx_tx_hash"`
	Amount          int64  `gorm:"not null"`
	FromAddress     string `gorm:"not null;size:80"`
	ToAddress       string `gorm:"not null;size:80;index"`
	Comment         string `gorm:"size:255"`
	ConfirmedAt     time.Time
	CreatedAt       time.Time
}

// TableName specifies the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}
