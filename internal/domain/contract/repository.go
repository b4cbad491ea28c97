package contract

import (
	"context"
	"errors"
)

// ErrContractNotFound is returned when no deployment record exists for the
// resource
var ErrContractNotFound = errors.New("deployed contract not found")

// Repository defines the interface for deployment record persistence
type Repository interface {
	// Create writes the deployment record. A second record for the same
	// resource fails with a duplicate error; the address is write-once.
	Create(ctx context.Context, c *DeployedContract) error

	// GetByResourceID retrieves the deployment record for a resource
	GetByResourceID(ctx context.Context, resourceID int64) (*DeployedContract, error)

	// GetByAddress retrieves the deployment record by contract address
	GetByAddress(ctx context.Context, address string) (*DeployedContract, error)

	// List retrieves all deployment records
	List(ctx context.Context) ([]*DeployedContract, error)
}
