package entitlement

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entitlement represents the entitlement aggregate root
// It tracks one subject's paid access to one resource from purchase intent
// through payment matching and activation
type Entitlement struct {
	id              uint
	reference       string     // Opaque payment reference carried in the ledger marker
	subjectID       int64      // Messenger-level subject identifier
	resourceID      int64      // Gated resource identifier
	status          Status     // Lifecycle status (pending, active, revoked)
	priceExpected   int64      // Expected amount in minor units
	toleranceBps    int        // Accepted shortfall in basis points
	contractAddress *string    // Escrow contract the payment is expected on
	transactionHash *string    // Ledger transaction that activated the entitlement
	expiresAt       *time.Time // Expiration time (nil means lifetime access)
	activatedAt     *time.Time // When the payment was matched
	revokedAt       *time.Time // When the entitlement was revoked
	revokedReason   string
	createdAt       time.Time
	updatedAt       time.Time
	version         int // Version for optimistic locking
}

// NewEntitlement creates a new pending entitlement for a purchase intent.
// The payment reference is generated here and must reach the payer verbatim:
// the reconciler matches ledger transactions by this tag.
func NewEntitlement(
	subjectID int64,
	resourceID int64,
	priceExpected int64,
	toleranceBps int,
) (*Entitlement, error) {
	if subjectID == 0 {
		return nil, fmt.Errorf("subject ID is required")
	}
	if resourceID == 0 {
		return nil, fmt.Errorf("resource ID is required")
	}
	if priceExpected <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}
	if toleranceBps < 0 || toleranceBps >= 10000 {
		return nil, fmt.Errorf("tolerance must be in [0, 10000) bps")
	}

	now := time.Now()
	return &Entitlement{
		reference:     uuid.NewString(),
		subjectID:     subjectID,
		resourceID:    resourceID,
		status:        StatusPending,
		priceExpected: priceExpected,
		toleranceBps:  toleranceBps,
		createdAt:     now,
		updatedAt:     now,
		version:       1,
	}, nil
}

// ReconstructEntitlement reconstructs an entitlement from persistence
func ReconstructEntitlement(
	id uint,
	reference string,
	subjectID int64,
	resourceID int64,
	status Status,
	priceExpected int64,
	toleranceBps int,
	contractAddress *string,
	transactionHash *string,
	expiresAt *time.Time,
	activatedAt *time.Time,
	revokedAt *time.Time,
	revokedReason string,
	createdAt, updatedAt time.Time,
	version int,
) (*Entitlement, error) {
	if id == 0 {
		return nil, fmt.Errorf("entitlement ID cannot be zero")
	}
	if reference == "" {
		return nil, fmt.Errorf("payment reference is required")
	}
	if subjectID == 0 {
		return nil, fmt.Errorf("subject ID is required")
	}
	if resourceID == 0 {
		return nil, fmt.Errorf("resource ID is required")
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid entitlement status: %s", status)
	}
	if priceExpected <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}

	return &Entitlement{
		id:              id,
		reference:       reference,
		subjectID:       subjectID,
		resourceID:      resourceID,
		status:          status,
		priceExpected:   priceExpected,
		toleranceBps:    toleranceBps,
		contractAddress: contractAddress,
		transactionHash: transactionHash,
		expiresAt:       expiresAt,
		activatedAt:     activatedAt,
		revokedAt:       revokedAt,
		revokedReason:   revokedReason,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
		version:         version,
	}, nil
}

// ID returns the entitlement ID
func (e *Entitlement) ID() uint {
	return e.id
}

// Reference returns the payment reference
func (e *Entitlement) Reference() string {
	return e.reference
}

// SubjectID returns the subject ID
func (e *Entitlement) SubjectID() int64 {
	return e.subjectID
}

// ResourceID returns the resource ID
func (e *Entitlement) ResourceID() int64 {
	return e.resourceID
}

// Status returns the entitlement status
func (e *Entitlement) Status() Status {
	return e.status
}

// PriceExpected returns the expected amount in minor units
func (e *Entitlement) PriceExpected() int64 {
	return e.priceExpected
}

// ToleranceBps returns the accepted shortfall in basis points
func (e *Entitlement) ToleranceBps() int {
	return e.toleranceBps
}

// ContractAddress returns the bound escrow contract address
func (e *Entitlement) ContractAddress() *string {
	return e.contractAddress
}

// TransactionHash returns the activating ledger transaction hash
func (e *Entitlement) TransactionHash() *string {
	return e.transactionHash
}

// ExpiresAt returns the expiration time (nil means lifetime access)
func (e *Entitlement) ExpiresAt() *time.Time {
	return e.expiresAt
}

// ActivatedAt returns when the payment was matched
func (e *Entitlement) ActivatedAt() *time.Time {
	return e.activatedAt
}

// RevokedAt returns when the entitlement was revoked
func (e *Entitlement) RevokedAt() *time.Time {
	return e.revokedAt
}

// RevokedReason returns the revocation reason
func (e *Entitlement) RevokedReason() string {
	return e.revokedReason
}

// CreatedAt returns when the entitlement was created
func (e *Entitlement) CreatedAt() time.Time {
	return e.createdAt
}

// UpdatedAt returns when the entitlement was last updated
func (e *Entitlement) UpdatedAt() time.Time {
	return e.updatedAt
}

// Version returns the aggregate version for optimistic locking
func (e *Entitlement) Version() int {
	return e.version
}

// SetID sets the entitlement ID (only for persistence layer use)
func (e *Entitlement) SetID(id uint) error {
	if e.id != 0 {
		return fmt.Errorf("entitlement ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("entitlement ID cannot be zero")
	}
	e.id = id
	return nil
}

// BindContract records the escrow contract address the payment is expected on
func (e *Entitlement) BindContract(address string) error {
	if e.status != StatusPending {
		return fmt.Errorf("cannot bind contract to %s entitlement", e.status)
	}
	if address == "" {
		return fmt.Errorf("contract address is required")
	}
	e.contractAddress = &address
	e.updatedAt = time.Now()
	e.version++
	return nil
}

// MinAcceptableAmount returns the tolerance floor: the lowest paid amount
// the reconciler accepts for this entitlement.
func (e *Entitlement) MinAcceptableAmount() int64 {
	return e.priceExpected - e.priceExpected*int64(e.toleranceBps)/10000
}

// AcceptsAmount reports whether the paid amount satisfies the tolerance floor
func (e *Entitlement) AcceptsAmount(amount int64) bool {
	return amount >= e.MinAcceptableAmount()
}

// MatchesComment reports whether a ledger transaction comment carries this
// entitlement's payment reference. Comments are matched after trimming;
// payers and wallets routinely add whitespace.
func (e *Entitlement) MatchesComment(comment string) bool {
	return strings.TrimSpace(comment) == e.reference
}

// Activate marks the entitlement active, recording the ledger transaction
// that paid for it. Activating an already active entitlement fails with
// ErrAlreadyActive so callers can treat the repeat as an idempotent no-op.
func (e *Entitlement) Activate(transactionHash string, expiresAt *time.Time) error {
	if e.status == StatusActive {
		return ErrAlreadyActive
	}
	if e.status == StatusRevoked {
		return fmt.Errorf("cannot activate revoked entitlement")
	}
	if transactionHash == "" {
		return fmt.Errorf("transaction hash is required")
	}

	now := time.Now()
	e.status = StatusActive
	e.transactionHash = &transactionHash
	e.expiresAt = expiresAt
	e.activatedAt = &now
	e.updatedAt = now
	e.version++
	return nil
}

// Revoke withdraws an active entitlement
func (e *Entitlement) Revoke(reason string) error {
	if e.status == StatusRevoked {
		return nil // Already revoked
	}
	if e.status != StatusActive {
		return fmt.Errorf("cannot revoke %s entitlement", e.status)
	}

	now := time.Now()
	e.status = StatusRevoked
	e.revokedAt = &now
	e.revokedReason = reason
	e.updatedAt = now
	e.version++
	return nil
}

// IsActive checks if the entitlement is active and unexpired
func (e *Entitlement) IsActive(now time.Time) bool {
	if e.status != StatusActive {
		return false
	}
	if e.expiresAt != nil && now.After(*e.expiresAt) {
		return false
	}
	return true
}

// IsExpired checks if the entitlement has lapsed based on expiration time
func (e *Entitlement) IsExpired(now time.Time) bool {
	if e.expiresAt == nil {
		return false
	}
	return now.After(*e.expiresAt)
}
