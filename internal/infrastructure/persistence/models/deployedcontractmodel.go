package models

import "time"

// DeployedContractModel represents the database persistence model for escrow
// contract deployments. One row per resource, write-once.
type DeployedContractModel struct {
	ID         uint   `gorm:"primarykey"`
	ResourceID int64  `gorm:"not null;uniqueIndex:idx_resource"`
	Address    string `gorm:"not null;size:80;uniqueIndex:idx_address"`
	DeployedAt time.Time
	CreatedAt  time.Time
}

// TableName specifies the table name for GORM
func (DeployedContractModel) TableName() string {
	return "deployed_contracts"
}
