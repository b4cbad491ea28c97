package entitlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEntitlement(t *testing.T) *Entitlement {
	t.Helper()
	e, err := NewEntitlement(100200300, 42, 1000, 100)
	require.NoError(t, err)
	return e
}

func TestNewEntitlement(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		e := newTestEntitlement(t)
		assert.Equal(t, StatusPending, e.Status())
		assert.NotEmpty(t, e.Reference())
		assert.Equal(t, 1, e.Version())
		assert.Nil(t, e.ExpiresAt())
	})

	t.Run("references are unique per intent", func(t *testing.T) {
		a := newTestEntitlement(t)
		b := newTestEntitlement(t)
		assert.NotEqual(t, a.Reference(), b.Reference())
	})

	t.Run("missing subject", func(t *testing.T) {
		_, err := NewEntitlement(0, 42, 1000, 100)
		assert.Error(t, err)
	})

	t.Run("non-positive price", func(t *testing.T) {
		_, err := NewEntitlement(1, 42, 0, 100)
		assert.Error(t, err)
	})

	t.Run("tolerance out of range", func(t *testing.T) {
		_, err := NewEntitlement(1, 42, 1000, 10000)
		assert.Error(t, err)
	})
}

func TestEntitlement_Tolerance(t *testing.T) {
	e := newTestEntitlement(t)

	assert.Equal(t, int64(990), e.MinAcceptableAmount())
	assert.True(t, e.AcceptsAmount(990))
	assert.False(t, e.AcceptsAmount(989))
	assert.True(t, e.AcceptsAmount(1500))
}

func TestEntitlement_MatchesComment(t *testing.T) {
	e := newTestEntitlement(t)

	assert.True(t, e.MatchesComment(e.Reference()))
	assert.True(t, e.MatchesComment("  "+e.Reference()+"\n"))
	assert.False(t, e.MatchesComment(e.Reference()+"x"))
	assert.False(t, e.MatchesComment(""))
}

func TestEntitlement_Activate(t *testing.T) {
	t.Run("pending to active", func(t *testing.T) {
		e := newTestEntitlement(t)
		expiry := time.Now().Add(30 * 24 * time.Hour)

		err := e.Activate("txhash1", &expiry)
		require.NoError(t, err)
		assert.Equal(t, StatusActive, e.Status())
		require.NotNil(t, e.TransactionHash())
		assert.Equal(t, "txhash1", *e.TransactionHash())
		assert.NotNil(t, e.ActivatedAt())
		assert.Equal(t, 2, e.Version())
		assert.True(t, e.IsActive(time.Now()))
	})

	t.Run("repeat activation fails with ErrAlreadyActive", func(t *testing.T) {
		e := newTestEntitlement(t)
		require.NoError(t, e.Activate("txhash1", nil))

		err := e.Activate("txhash2", nil)
		assert.ErrorIs(t, err, ErrAlreadyActive)
		assert.Equal(t, "txhash1", *e.TransactionHash(), "first activation wins")
	})

	t.Run("revoked cannot be activated", func(t *testing.T) {
		e := newTestEntitlement(t)
		require.NoError(t, e.Activate("txhash1", nil))
		require.NoError(t, e.Revoke("abuse"))

		err := e.Activate("txhash2", nil)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrAlreadyActive)
	})

	t.Run("empty transaction hash", func(t *testing.T) {
		e := newTestEntitlement(t)
		assert.Error(t, e.Activate("", nil))
	})
}

func TestEntitlement_Revoke(t *testing.T) {
	e := newTestEntitlement(t)

	t.Run("pending cannot be revoked", func(t *testing.T) {
		assert.Error(t, e.Revoke("refund"))
	})

	require.NoError(t, e.Activate("txhash1", nil))

	t.Run("active is revoked", func(t *testing.T) {
		require.NoError(t, e.Revoke("refund"))
		assert.Equal(t, StatusRevoked, e.Status())
		assert.Equal(t, "refund", e.RevokedReason())
		assert.False(t, e.IsActive(time.Now()))
	})

	t.Run("repeat revoke is a no-op", func(t *testing.T) {
		version := e.Version()
		require.NoError(t, e.Revoke("again"))
		assert.Equal(t, version, e.Version())
		assert.Equal(t, "refund", e.RevokedReason())
	})
}

func TestEntitlement_Expiry(t *testing.T) {
	e := newTestEntitlement(t)
	expiry := time.Now().Add(time.Hour)
	require.NoError(t, e.Activate("txhash1", &expiry))

	assert.True(t, e.IsActive(time.Now()))
	assert.False(t, e.IsExpired(time.Now()))

	later := expiry.Add(time.Minute)
	assert.False(t, e.IsActive(later))
	assert.True(t, e.IsExpired(later))
}

func TestEntitlement_BindContract(t *testing.T) {
	e := newTestEntitlement(t)

	require.NoError(t, e.BindContract("0:abc"))
	require.NotNil(t, e.ContractAddress())
	assert.Equal(t, "0:abc", *e.ContractAddress())

	require.NoError(t, e.Activate("txhash1", nil))
	assert.Error(t, e.BindContract("0:def"), "only pending entitlements can be rebound")
}

func TestReconstructEntitlement(t *testing.T) {
	now := time.Now()
	e, err := ReconstructEntitlement(
		7, "ref-1", 100200300, 42, StatusActive, 1000, 100,
		nil, strPtr("txhash1"), nil, &now, nil, "", now, now, 3,
	)
	require.NoError(t, err)
	assert.Equal(t, uint(7), e.ID())
	assert.Equal(t, 3, e.Version())

	_, err = ReconstructEntitlement(
		0, "ref-1", 100200300, 42, StatusActive, 1000, 100,
		nil, nil, nil, nil, nil, "", now, now, 1,
	)
	assert.Error(t, err, "zero ID rejected")

	_, err = ReconstructEntitlement(
		7, "ref-1", 100200300, 42, "unknown", 1000, 100,
		nil, nil, nil, nil, nil, "", now, now, 1,
	)
	assert.Error(t, err, "invalid status rejected")
}

func strPtr(s string) *string { return &s }
