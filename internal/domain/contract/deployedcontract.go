// Package contract tracks escrow contract deployments. The record is
// write-once per resource: a resource's payment address never changes after
// first deployment.
package contract

import (
	"fmt"
	"time"
)

// DeployedContract represents the binding between a gated resource and its
// on-ledger escrow contract
type DeployedContract struct {
	id         uint
	resourceID int64
	address    string // Raw ledger address of the escrow contract
	deployedAt time.Time
	createdAt  time.Time
}

// NewDeployedContract records a fresh deployment
func NewDeployedContract(resourceID int64, address string, deployedAt time.Time) (*DeployedContract, error) {
	if resourceID == 0 {
		return nil, fmt.Errorf("resource ID is required")
	}
	if address == "" {
		return nil, fmt.Errorf("contract address is required")
	}
	if deployedAt.IsZero() {
		return nil, fmt.Errorf("deployment time is required")
	}

	return &DeployedContract{
		resourceID: resourceID,
		address:    address,
		deployedAt: deployedAt,
		createdAt:  time.Now(),
	}, nil
}

// ReconstructDeployedContract reconstructs a deployment record from persistence
func ReconstructDeployedContract(
	id uint,
	resourceID int64,
	address string,
	deployedAt, createdAt time.Time,
) (*DeployedContract, error) {
	if id == 0 {
		return nil, fmt.Errorf("deployed contract ID cannot be zero")
	}
	if resourceID == 0 {
		return nil, fmt.Errorf("resource ID is required")
	}
	if address == "" {
		return nil, fmt.Errorf("contract address is required")
	}

	return &DeployedContract{
		id:         id,
		resourceID: resourceID,
		address:    address,
		deployedAt: deployedAt,
		createdAt:  createdAt,
	}, nil
}

// ID returns the record ID
func (c *DeployedContract) ID() uint {
	return c.id
}

// ResourceID returns the gated resource ID
func (c *DeployedContract) ResourceID() int64 {
	return c.resourceID
}

// Address returns the escrow contract's ledger address
func (c *DeployedContract) Address() string {
	return c.address
}

// DeployedAt returns when the contract reached the ledger
func (c *DeployedContract) DeployedAt() time.Time {
	return c.deployedAt
}

// CreatedAt returns when the record was written
func (c *DeployedContract) CreatedAt() time.Time {
	return c.createdAt
}

// SetID sets the record ID (only for persistence layer use)
func (c *DeployedContract) SetID(id uint) error {
	if c.id != 0 {
		return fmt.Errorf("deployed contract ID is already set")
	}
	if id == 0 {
		return fmt.Errorf("deployed contract ID cannot be zero")
	}
	c.id = id
	return nil
}
