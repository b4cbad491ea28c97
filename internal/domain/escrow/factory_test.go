package escrow

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFactory(t *testing.T) *Factory {
	t.Helper()
	var codeHash [32]byte
	copy(codeHash[:], "escrow-code-v1")
	f, err := NewFactory(codeHash, 0, 10)
	require.NoError(t, err)
	return f
}

func TestFactory_Deploy(t *testing.T) {
	f := testFactory(t)
	init := InitData{Params: testParams()}

	deployment, err := f.Deploy(init, 100)
	require.NoError(t, err)
	assert.False(t, deployment.Address.IsZero())
	require.NotNil(t, deployment.Init)
	assert.Equal(t, deployment.Address, deployment.Init.To)
	assert.Equal(t, int64(90), deployment.Init.Amount, "residual after deploy fee")

	addr, ok := f.AddressFor(42)
	require.True(t, ok)
	assert.Equal(t, deployment.Address, addr)
	assert.Equal(t, 1, f.DeployedCount())
}

func TestFactory_Deploy_Duplicate(t *testing.T) {
	f := testFactory(t)
	init := InitData{Params: testParams()}

	first, err := f.Deploy(init, 100)
	require.NoError(t, err)

	second, err := f.Deploy(init, 100)
	require.ErrorIs(t, err, ErrAlreadyDeployed)
	assert.True(t, IsAlreadyDeployed(err))
	require.NotNil(t, second)
	assert.Equal(t, first.Address, second.Address, "duplicate resolves to the existing address")
	assert.Equal(t, 1, f.DeployedCount())
}

func TestFactory_Deploy_InsufficientFee(t *testing.T) {
	f := testFactory(t)
	_, err := f.Deploy(InitData{Params: testParams()}, 5)
	assert.ErrorIs(t, err, ErrInsufficientPayment)
	assert.Equal(t, 0, f.DeployedCount())
}

func TestFactory_ComputeAddress_Deterministic(t *testing.T) {
	f := testFactory(t)
	init := InitData{Params: testParams()}

	assert.Equal(t, f.ComputeAddress(init), f.ComputeAddress(init))

	deployment, err := f.Deploy(init, 100)
	require.NoError(t, err)
	assert.Equal(t, f.ComputeAddress(init), deployment.Address)

	other := init
	other.Params.ResourceID = 43
	assert.NotEqual(t, f.ComputeAddress(init), f.ComputeAddress(other))
}

func TestFactory_ConcurrentDeploy_Converges(t *testing.T) {
	f := testFactory(t)
	init := InitData{Params: testParams()}

	const workers = 16
	addresses := make([]Address, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			deployment, err := f.Deploy(init, 100)
			if err != nil && !IsAlreadyDeployed(err) {
				t.Errorf("deploy %d: %v", i, err)
				return
			}
			addresses[i] = deployment.Address
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, f.DeployedCount(), "exactly one contract exists")
	for i := 1; i < workers; i++ {
		assert.Equal(t, addresses[0], addresses[i], "every caller sees the same address")
	}
}
