package escrow

import "errors"

var (
	// ErrInsufficientPayment is returned when the attached value is below the
	// tolerance floor. The transfer is bounced; no contract state changes.
	ErrInsufficientPayment = errors.New("payment below tolerance floor")

	// ErrUnknownPayload is returned when the payment message does not carry a
	// recognized marker. The transfer is bounced.
	ErrUnknownPayload = errors.New("unrecognized payment payload")

	// ErrNotAdmin is returned when an admin-restricted message is sent by an
	// address other than the configured beneficiary.
	ErrNotAdmin = errors.New("sender is not the contract admin")

	// ErrAlreadyDeployed is returned by the factory when a contract for the
	// resource key already exists. Callers treat this as success with the
	// existing address, never as a retryable failure.
	ErrAlreadyDeployed = errors.New("contract already deployed for resource")

	// ErrInvalidAddress is returned when an address fails to parse.
	ErrInvalidAddress = errors.New("invalid address")
)

// IsAlreadyDeployed reports whether err is the factory's duplicate-deployment
// outcome, which is expected rather than exceptional.
func IsAlreadyDeployed(err error) bool {
	return errors.Is(err, ErrAlreadyDeployed)
}
