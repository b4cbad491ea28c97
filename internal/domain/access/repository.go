package access

import (
	"context"
	"errors"
	"time"
)

// ErrRequestNotFound is returned when no pending request exists for the
// subject-resource pair
var ErrRequestNotFound = errors.New("pending access request not found")

// Repository defines the interface for pending request persistence
type Repository interface {
	// Upsert records the request, replacing any previous request for the
	// same subject-resource pair (a re-knock restarts the TTL)
	Upsert(ctx context.Context, r *PendingRequest) error

	// Get retrieves the pending request for a subject-resource pair
	Get(ctx context.Context, subjectID, resourceID int64) (*PendingRequest, error)

	// Delete removes a resolved request
	Delete(ctx context.Context, subjectID, resourceID int64) error

	// DeleteExpired removes requests that lapsed before now, returning the
	// number removed
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
