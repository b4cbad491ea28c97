package entitlement

import (
	"context"
	"time"
)

// Repository defines the interface for entitlement persistence operations
type Repository interface {
	// Create creates a new entitlement
	Create(ctx context.Context, e *Entitlement) error

	// Update updates an existing entitlement
	Update(ctx context.Context, e *Entitlement) error

	// GetByID retrieves an entitlement by ID
	GetByID(ctx context.Context, id uint) (*Entitlement, error)

	// GetByIDForUpdate retrieves an entitlement by ID with a row lock.
	// Must run inside a transaction; the lock is held until commit.
	GetByIDForUpdate(ctx context.Context, id uint) (*Entitlement, error)

	// GetByReference retrieves an entitlement by its payment reference
	GetByReference(ctx context.Context, reference string) (*Entitlement, error)

	// GetBySubjectResource retrieves the latest entitlement for a
	// subject-resource pair
	GetBySubjectResource(ctx context.Context, subjectID, resourceID int64) (*Entitlement, error)

	// GetPendingCreatedSince retrieves pending entitlements created at or
	// after the cutoff, the reconciler's matching window
	GetPendingCreatedSince(ctx context.Context, cutoff time.Time) ([]*Entitlement, error)

	// HasActive checks if the subject holds an active, unexpired entitlement
	// for the resource
	HasActive(ctx context.Context, subjectID, resourceID int64, now time.Time) (bool, error)

	// CountPendingOlderThan counts pending entitlements created before the
	// cutoff, used by the sweeper to report abandoned purchase intents
	CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// DeletePendingOlderThan removes pending entitlements created before the
	// cutoff
	DeletePendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
