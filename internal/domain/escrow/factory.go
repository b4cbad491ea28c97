package escrow

import (
	"crypto/sha256"
	"fmt"
	"sync"
)

// InitData is the deployment-time configuration of one escrow instance. The
// factory derives the child address from it, so two deployments with the same
// init data always land on the same address.
type InitData struct {
	Params Params
}

func (d InitData) encode() []byte {
	body := EncodePurchase(PurchasePayload{
		Beneficiary: d.Params.Beneficiary,
		Amount:      uint64(d.Params.PriceExpected),
		ID:          uint64(d.Params.ResourceID),
	})
	return append(body, []byte(d.Params.PaymentTag)...)
}

// Deployment is the outcome of a factory deploy: the child address and the
// residual value forwarded to the new contract.
type Deployment struct {
	Address Address
	Init    *Transfer // nil when no residual value was attached
}

// Factory deploys escrow contracts, at most one per resource key. Address
// derivation is deterministic over the contract code hash and init data.
type Factory struct {
	mu        sync.Mutex
	codeHash  [32]byte
	workchain int8
	deployFee int64
	contracts *subMap[int64, *Contract]
	addresses *subMap[int64, Address]
}

// NewFactory creates a factory for the given contract code hash. deployFee is
// retained by the factory on each deployment; the remainder of the attached
// value is forwarded to the child as its initial balance.
func NewFactory(codeHash [32]byte, workchain int8, deployFee int64) (*Factory, error) {
	if deployFee < 0 {
		return nil, fmt.Errorf("deploy fee must be non-negative")
	}
	return &Factory{
		codeHash:  codeHash,
		workchain: workchain,
		deployFee: deployFee,
		contracts: newSubMap[int64, *Contract](),
		addresses: newSubMap[int64, Address](),
	}, nil
}

// ComputeAddress derives the child address for the given init data. Pure
// function of the factory's code hash and the init bytes.
func (f *Factory) ComputeAddress(init InitData) Address {
	h := sha256.New()
	h.Write(f.codeHash[:])
	h.Write(init.encode())
	var hash [32]byte
	copy(hash[:], h.Sum(nil))
	return NewAddress(f.workchain, hash)
}

// Deploy creates the escrow contract for init's resource key. A repeat deploy
// for the same key fails with ErrAlreadyDeployed wrapping the existing
// address's key; callers resolve the address via AddressFor and treat the
// outcome as success.
func (f *Factory) Deploy(init InitData, attachedValue int64) (*Deployment, error) {
	if attachedValue < f.deployFee {
		return nil, fmt.Errorf("%w: attached %d, fee %d", ErrInsufficientPayment, attachedValue, f.deployFee)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	resourceID := init.Params.ResourceID
	if addr, ok := f.addresses.Get(resourceID); ok {
		return &Deployment{Address: addr}, ErrAlreadyDeployed
	}

	contract, err := NewContract(init.Params)
	if err != nil {
		return nil, err
	}

	addr := f.ComputeAddress(init)
	f.contracts.Set(resourceID, contract)
	f.addresses.Set(resourceID, addr)

	deployment := &Deployment{Address: addr}
	if residual := attachedValue - f.deployFee; residual > 0 {
		deployment.Init = &Transfer{To: addr, Amount: residual}
	}
	return deployment, nil
}

// AddressFor returns the deployed child address for the resource key.
func (f *Factory) AddressFor(resourceID int64) (Address, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addresses.Get(resourceID)
}

// ContractFor returns the deployed child contract for the resource key.
func (f *Factory) ContractFor(resourceID int64) (*Contract, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contracts.Get(resourceID)
}

// DeployedCount returns the number of children the factory has deployed.
func (f *Factory) DeployedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addresses.Len()
}
