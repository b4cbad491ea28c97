// Package entitlement provides domain models and business logic for paid
// entitlements. An entitlement is created pending when a purchase intent is
// registered, and activated once the reconciler matches an on-ledger payment
// against it.
package entitlement

// Status represents the lifecycle state of an entitlement
type Status string

const (
	// StatusPending indicates the entitlement awaits a matching payment
	StatusPending Status = "pending"
	// StatusActive indicates a payment was matched and access granted
	StatusActive Status = "active"
	// StatusRevoked indicates the entitlement was withdrawn
	StatusRevoked Status = "revoked"
)

// IsValid checks if the status is valid
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusRevoked:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// IsPending checks if the status indicates a pending entitlement
func (s Status) IsPending() bool {
	return s == StatusPending
}

// IsActive checks if the status indicates an active entitlement
func (s Status) IsActive() bool {
	return s == StatusActive
}

// IsRevoked checks if the status indicates a revoked entitlement
func (s Status) IsRevoked() bool {
	return s == StatusRevoked
}
