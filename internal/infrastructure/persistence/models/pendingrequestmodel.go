package models

import "time"

// PendingRequestModel represents the database persistence model for
// unresolved access requests
type PendingRequestModel struct {
	SubjectID   int64 `gorm:"primaryKey;autoIncrement:false"`
	ResourceID  int64 `gorm:"primaryKey;autoIncrement:false"`
	PromptSent  bool  `gorm:"not null;default:false"`
	RequestedAt time.Time
	ExpiresAt   time.Time `gorm:"index"`
}

// TableName specifies the table name for GORM
func (PendingRequestModel) TableName() string {
	return "pending_requests"
}
