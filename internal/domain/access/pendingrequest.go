// Package access models the bridge between the gate and the reconciler: a
// subject knocking on the gate becomes a pending access request, which the
// activation flow resolves once a matching payment lands.
package access

import (
	"fmt"
	"time"
)

// PendingRequest represents a subject's unresolved request to enter a gated
// resource. Requests expire after a TTL so stale knocks are not approved by a
// late payment from an unrelated purchase.
type PendingRequest struct {
	subjectID   int64
	resourceID  int64
	promptSent  bool // Whether the payment prompt was delivered to the subject
	requestedAt time.Time
	expiresAt   time.Time
}

// NewPendingRequest records a subject knocking on the gate for a resource
func NewPendingRequest(subjectID, resourceID int64, ttl time.Duration, now time.Time) (*PendingRequest, error) {
	if subjectID == 0 {
		return nil, fmt.Errorf("subject ID is required")
	}
	if resourceID == 0 {
		return nil, fmt.Errorf("resource ID is required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("ttl must be positive")
	}

	return &PendingRequest{
		subjectID:   subjectID,
		resourceID:  resourceID,
		requestedAt: now,
		expiresAt:   now.Add(ttl),
	}, nil
}

// ReconstructPendingRequest reconstructs a pending request from persistence
func ReconstructPendingRequest(
	subjectID, resourceID int64,
	promptSent bool,
	requestedAt, expiresAt time.Time,
) (*PendingRequest, error) {
	if subjectID == 0 || resourceID == 0 {
		return nil, fmt.Errorf("subject and resource IDs are required")
	}
	return &PendingRequest{
		subjectID:   subjectID,
		resourceID:  resourceID,
		promptSent:  promptSent,
		requestedAt: requestedAt,
		expiresAt:   expiresAt,
	}, nil
}

// SubjectID returns the requesting subject ID
func (r *PendingRequest) SubjectID() int64 {
	return r.subjectID
}

// ResourceID returns the gated resource ID
func (r *PendingRequest) ResourceID() int64 {
	return r.resourceID
}

// PromptSent reports whether the payment prompt was delivered
func (r *PendingRequest) PromptSent() bool {
	return r.promptSent
}

// RequestedAt returns when the subject knocked
func (r *PendingRequest) RequestedAt() time.Time {
	return r.requestedAt
}

// ExpiresAt returns when the request lapses
func (r *PendingRequest) ExpiresAt() time.Time {
	return r.expiresAt
}

// IsExpired checks if the request has lapsed
func (r *PendingRequest) IsExpired(now time.Time) bool {
	return now.After(r.expiresAt)
}

// MarkPromptSent records that the payment prompt reached the subject
func (r *PendingRequest) MarkPromptSent() {
	r.promptSent = true
}
