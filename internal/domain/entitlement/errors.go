package entitlement

import "errors"

var (
	// ErrEntitlementNotFound is returned when an entitlement is not found
	ErrEntitlementNotFound = errors.New("entitlement not found")

	// ErrAlreadyActive is returned when activating an entitlement that is
	// already active. Callers treat this as an idempotent success.
	ErrAlreadyActive = errors.New("entitlement already active")

	// ErrEntitlementRevoked is returned when an operation targets a revoked
	// entitlement
	ErrEntitlementRevoked = errors.New("entitlement revoked")

	// ErrDuplicateEntitlement is returned when a pending entitlement already
	// exists for the subject-resource pair
	ErrDuplicateEntitlement = errors.New("entitlement already exists")
)
