// Package escrow models the on-ledger contract pair as deterministic state
// machines: an escrow contract custodying payments for one resource, and a
// factory deploying exactly one escrow per resource key. All monetary values
// are integer minor units.
package escrow

import (
	"fmt"
	"time"
)

// AccessModel selects how an accepted payment marks the payer.
type AccessModel string

const (
	// AccessModelExpiry grants time-bound access; each accepted payment
	// extends the subscriber's expiry by the configured period.
	AccessModelExpiry AccessModel = "expiry"
	// AccessModelLifetime grants one-time lifetime access.
	AccessModelLifetime AccessModel = "lifetime"
)

// IsValid checks if the access model is valid
func (m AccessModel) IsValid() bool {
	switch m {
	case AccessModelExpiry, AccessModelLifetime:
		return true
	default:
		return false
	}
}

// Params is the escrow contract's initial configuration.
type Params struct {
	ResourceID      int64
	Beneficiary     Address
	PriceExpected   int64
	ToleranceBps    int
	RefundThreshold int64
	GasReserve      int64
	AccessModel     AccessModel
	AccessPeriod    time.Duration // required for the expiry model
	PaymentTag      string        // accepted text marker
}

// Transfer is an outbound value movement emitted by the contract. Delivery is
// the ledger's concern; the contract records the intent only.
type Transfer struct {
	To     Address
	Amount int64
}

// Receipt describes the outcome of an accepted payment. Forward delivery is
// best-effort: a failed forwarding send never rolls back the acceptance.
type Receipt struct {
	Forward *Transfer
	Refund  *Transfer
	Expiry  *time.Time // nil for lifetime access
}

// Stats is the contract's read-only aggregate state.
type Stats struct {
	SubscriberCount int
	TotalForwarded  int64
}

type subscriberEntry struct {
	expiresAt time.Time // zero for lifetime access
	lifetime  bool
}

// Contract is one escrow instance. It custodies a single payment type,
// applies tolerance and refund rules at the boundary, and forwards net
// proceeds to the beneficiary.
type Contract struct {
	params         Params
	subscribers    *subMap[Address, subscriberEntry]
	totalForwarded int64
}

// NewContract validates params and creates an escrow contract.
func NewContract(p Params) (*Contract, error) {
	if p.ResourceID == 0 {
		return nil, fmt.Errorf("resource ID is required")
	}
	if p.Beneficiary.IsZero() {
		return nil, fmt.Errorf("beneficiary address is required")
	}
	if p.PriceExpected <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}
	if p.ToleranceBps < 0 || p.ToleranceBps >= 10000 {
		return nil, fmt.Errorf("tolerance must be in [0, 10000) bps")
	}
	if p.RefundThreshold < 0 || p.GasReserve < 0 {
		return nil, fmt.Errorf("refund threshold and gas reserve must be non-negative")
	}
	if !p.AccessModel.IsValid() {
		return nil, fmt.Errorf("invalid access model: %s", p.AccessModel)
	}
	if p.AccessModel == AccessModelExpiry && p.AccessPeriod <= 0 {
		return nil, fmt.Errorf("access period is required for the expiry model")
	}
	if p.PaymentTag == "" {
		return nil, fmt.Errorf("payment tag is required")
	}

	return &Contract{
		params:      p,
		subscribers: newSubMap[Address, subscriberEntry](),
	}, nil
}

// Params returns the contract's current configuration.
func (c *Contract) Params() Params {
	return c.params
}

// MinAcceptable returns the tolerance floor: the lowest attached value the
// contract accepts.
func (c *Contract) MinAcceptable() int64 {
	return minAcceptable(c.params.PriceExpected, c.params.ToleranceBps)
}

func minAcceptable(price int64, toleranceBps int) int64 {
	return price - price*int64(toleranceBps)/10000
}

// AcceptPayment processes an inbound payment message. On a bounce
// (ErrInsufficientPayment, ErrUnknownPayload) no state is mutated and the
// attached value is returned to the sender by the ledger. On acceptance the
// subscriber marker is recorded or extended and the receipt carries the
// forward and any refund transfer.
func (c *Contract) AcceptPayment(sender Address, paid int64, body []byte, now time.Time) (*Receipt, error) {
	if sender.IsZero() {
		return nil, fmt.Errorf("%w: zero sender", ErrInvalidAddress)
	}

	payload, err := DecodePayload(body)
	if err != nil {
		return nil, err
	}
	if err := c.checkMarker(payload); err != nil {
		return nil, err
	}

	if paid < c.MinAcceptable() {
		return nil, fmt.Errorf("%w: paid %d, floor %d", ErrInsufficientPayment, paid, c.MinAcceptable())
	}

	receipt := &Receipt{}

	switch c.params.AccessModel {
	case AccessModelLifetime:
		c.subscribers.Set(sender, subscriberEntry{lifetime: true})
	default:
		base := now
		if entry, ok := c.subscribers.Get(sender); ok && entry.expiresAt.After(now) {
			base = entry.expiresAt
		}
		expiry := base.Add(c.params.AccessPeriod)
		c.subscribers.Set(sender, subscriberEntry{expiresAt: expiry})
		receipt.Expiry = &expiry
	}

	forward := c.params.PriceExpected - c.params.GasReserve
	if forward > 0 {
		receipt.Forward = &Transfer{To: c.params.Beneficiary, Amount: forward}
		c.totalForwarded += forward
	}

	if excess := paid - c.params.PriceExpected; excess >= c.params.RefundThreshold && excess > c.params.GasReserve {
		receipt.Refund = &Transfer{To: sender, Amount: excess - c.params.GasReserve}
	}

	return receipt, nil
}

func (c *Contract) checkMarker(payload Payload) error {
	switch p := payload.(type) {
	case CommentPayload:
		if p.Tag != c.params.PaymentTag {
			return fmt.Errorf("%w: unexpected tag %q", ErrUnknownPayload, p.Tag)
		}
	case PurchasePayload:
		if p.Beneficiary != c.params.Beneficiary {
			return fmt.Errorf("%w: purchase names wrong beneficiary", ErrUnknownPayload)
		}
		if p.ID != uint64(c.params.ResourceID) {
			return fmt.Errorf("%w: purchase names wrong resource %d", ErrUnknownPayload, p.ID)
		}
	default:
		return ErrUnknownPayload
	}
	return nil
}

// SetPrice updates the expected price. Admin-restricted.
func (c *Contract) SetPrice(sender Address, price int64) error {
	if sender != c.params.Beneficiary {
		return ErrNotAdmin
	}
	if price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	c.params.PriceExpected = price
	return nil
}

// SetBeneficiary updates the beneficiary address. Admin-restricted.
func (c *Contract) SetBeneficiary(sender, beneficiary Address) error {
	if sender != c.params.Beneficiary {
		return ErrNotAdmin
	}
	if beneficiary.IsZero() {
		return fmt.Errorf("beneficiary address is required")
	}
	c.params.Beneficiary = beneficiary
	return nil
}

// IsActive reports whether the subject currently holds access.
func (c *Contract) IsActive(subject Address, now time.Time) bool {
	entry, ok := c.subscribers.Get(subject)
	if !ok {
		return false
	}
	if entry.lifetime {
		return true
	}
	return entry.expiresAt.After(now)
}

// Expiry returns the subject's access expiry. The second return is false when
// the subject is unknown; a nil expiry with true means lifetime access.
func (c *Contract) Expiry(subject Address) (*time.Time, bool) {
	entry, ok := c.subscribers.Get(subject)
	if !ok {
		return nil, false
	}
	if entry.lifetime {
		return nil, true
	}
	expiry := entry.expiresAt
	return &expiry, true
}

// Stats returns the contract's aggregate counters.
func (c *Contract) Stats() Stats {
	return Stats{
		SubscriberCount: c.subscribers.Len(),
		TotalForwarded:  c.totalForwarded,
	}
}
