package models

import "time"

// EntitlementModel represents the database persistence model for entitlements
// This is the anti-corruption layer between domain and database
type EntitlementModel struct {
	ID              uint    `gorm:"primarykey"`
	Reference       string  `gorm:"not null;size:64;uniqueIndex:idx_reference"`
	SubjectID       int64   `gorm:"not null;uniqueIndex:idx_subject_resource,priority:1"`
	ResourceID      int64   `gorm:"not null;uniqueIndex:idx_subject_resource,priority:2"`
	Status          string  `gorm:"not null;size:20;default:pending;index:idx_status_created,priority:1"`
	PriceExpected   int64   `gorm:"not null"`
	ToleranceBps    int     `gorm:"not null;default:0"`
	ContractAddress *string `gorm:"size:80;index"`
	TransactionHash *string `gorm:"size:128"`
	ExpiresAt       *time.Time
	ActivatedAt     *time.Time
	RevokedAt       *time.Time
	RevokedReason   string    `gorm:"size:255"`
	CreatedAt       time.Time `gorm:"index:idx_status_created,priority:2"`
	UpdatedAt       time.Time
	Version         int `gorm:"not null;default:1"`
}

// TableName specifies the table name for GORM
func (EntitlementModel) TableName() string {
	return "entitlements"
}
