package repository

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tonpass-inc/tonpass/internal/domain/access"
	"github.com/tonpass-inc/tonpass/internal/domain/contract"
	"github.com/tonpass-inc/tonpass/internal/domain/entitlement"
	"github.com/tonpass-inc/tonpass/internal/domain/payment"
	"github.com/tonpass-inc/tonpass/internal/infrastructure/persistence/models"
	"github.com/tonpass-inc/tonpass/internal/shared/errors"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, database.AutoMigrate(
		&models.EntitlementModel{},
		&models.PaymentModel{},
		&models.PendingRequestModel{},
		&models.DeployedContractModel{},
	))
	return database
}

func testLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEntitlementRepository(t *testing.T) {
	database := setupTestDB(t)
	repo := NewEntitlementRepository(database, testLogger())
	ctx := context.Background()

	newPending := func(t *testing.T, subjectID int64) *entitlement.Entitlement {
		e, err := entitlement.NewEntitlement(subjectID, 42, 1000, 100)
		require.NoError(t, err)
		require.NoError(t, e.BindContract("0:contract"))
		require.NoError(t, repo.Create(ctx, e))
		return e
	}

	t.Run("create assigns ID", func(t *testing.T) {
		e := newPending(t, 1)
		assert.NotZero(t, e.ID())
	})

	t.Run("round trip preserves fields", func(t *testing.T) {
		e := newPending(t, 2)

		got, err := repo.GetByID(ctx, e.ID())
		require.NoError(t, err)
		assert.Equal(t, e.Reference(), got.Reference())
		assert.Equal(t, e.SubjectID(), got.SubjectID())
		assert.Equal(t, entitlement.StatusPending, got.Status())
		require.NotNil(t, got.ContractAddress())
		assert.Equal(t, "0:contract", *got.ContractAddress())
	})

	t.Run("get by reference", func(t *testing.T) {
		e := newPending(t, 3)
		got, err := repo.GetByReference(ctx, e.Reference())
		require.NoError(t, err)
		assert.Equal(t, e.ID(), got.ID())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := repo.GetByID(ctx, 99999)
		assert.ErrorIs(t, err, entitlement.ErrEntitlementNotFound)
	})

	t.Run("update persists activation", func(t *testing.T) {
		e := newPending(t, 4)
		expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
		require.NoError(t, e.Activate("tx-update", &expiry))
		require.NoError(t, repo.Update(ctx, e))

		got, err := repo.GetByID(ctx, e.ID())
		require.NoError(t, err)
		assert.Equal(t, entitlement.StatusActive, got.Status())
		require.NotNil(t, got.TransactionHash())
		assert.Equal(t, "tx-update", *got.TransactionHash())
		assert.Equal(t, e.Version(), got.Version())
	})

	t.Run("stale update rejected", func(t *testing.T) {
		e := newPending(t, 5)

		stale, err := repo.GetByID(ctx, e.ID())
		require.NoError(t, err)

		require.NoError(t, e.Activate("tx-fresh", nil))
		require.NoError(t, repo.Update(ctx, e))

		require.NoError(t, stale.Activate("tx-stale", nil))
		err = repo.Update(ctx, stale)
		assert.True(t, errors.IsConflictError(err), "stale version must not overwrite")
	})

	t.Run("pending window", func(t *testing.T) {
		cutoff := time.Now().Add(-time.Minute)
		list, err := repo.GetPendingCreatedSince(ctx, cutoff)
		require.NoError(t, err)
		for _, e := range list {
			assert.True(t, e.Status().IsPending())
		}
		assert.NotEmpty(t, list)
	})

	t.Run("has active respects expiry", func(t *testing.T) {
		e := newPending(t, 6)
		past := time.Now().Add(-time.Hour)
		require.NoError(t, e.Activate("tx-lapsed", &past))
		require.NoError(t, repo.Update(ctx, e))

		active, err := repo.HasActive(ctx, 6, 42, time.Now())
		require.NoError(t, err)
		assert.False(t, active, "lapsed entitlement does not grant access")

		e2 := newPending(t, 7)
		future := time.Now().Add(time.Hour)
		require.NoError(t, e2.Activate("tx-live", &future))
		require.NoError(t, repo.Update(ctx, e2))

		active, err = repo.HasActive(ctx, 7, 42, time.Now())
		require.NoError(t, err)
		assert.True(t, active)
	})

	t.Run("sweep deletes only old pending", func(t *testing.T) {
		e := newPending(t, 8)

		// nothing is old enough yet
		n, err := repo.DeletePendingOlderThan(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = repo.DeletePendingOlderThan(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.Positive(t, n)

		_, err = repo.GetByID(ctx, e.ID())
		assert.ErrorIs(t, err, entitlement.ErrEntitlementNotFound)
	})
}

func TestPaymentRepository(t *testing.T) {
	database := setupTestDB(t)
	repo := NewPaymentRepository(database, testLogger())
	ctx := context.Background()

	record := func(t *testing.T, hash string, entitlementID uint, amount int64) (*payment.Payment, bool) {
		p, err := payment.NewPayment(entitlementID, hash, amount, "0:payer", "0:contract", "ref", time.Now())
		require.NoError(t, err)
		inserted, err := repo.CreateIgnoreDuplicate(ctx, p)
		require.NoError(t, err)
		return p, inserted
	}

	t.Run("insert and read back", func(t *testing.T) {
		p, inserted := record(t, "tx1", 1, 1000)
		assert.True(t, inserted)
		assert.NotZero(t, p.ID())

		got, err := repo.GetByTransactionHash(ctx, "tx1")
		require.NoError(t, err)
		assert.Equal(t, int64(1000), got.Amount())
	})

	t.Run("duplicate hash is ignored", func(t *testing.T) {
		_, inserted := record(t, "tx2", 1, 1000)
		require.True(t, inserted)

		_, inserted = record(t, "tx2", 2, 2000)
		assert.False(t, inserted, "second claim on the same hash must not insert")

		got, err := repo.GetByTransactionHash(ctx, "tx2")
		require.NoError(t, err)
		assert.Equal(t, uint(1), got.EntitlementID(), "first claim wins")
	})

	t.Run("exists", func(t *testing.T) {
		ok, err := repo.ExistsByTransactionHash(ctx, "tx1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ExistsByTransactionHash(ctx, "no-such-tx")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("sum", func(t *testing.T) {
		count, total, err := repo.SumConfirmed(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
		assert.Equal(t, int64(2000), total)
	})
}

func TestPendingRequestRepository(t *testing.T) {
	database := setupTestDB(t)
	repo := NewPendingRequestRepository(database, testLogger())
	ctx := context.Background()

	t.Run("upsert and get", func(t *testing.T) {
		req, err := access.NewPendingRequest(7, 42, time.Hour, time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, req))

		got, err := repo.Get(ctx, 7, 42)
		require.NoError(t, err)
		assert.False(t, got.PromptSent())

		req.MarkPromptSent()
		require.NoError(t, repo.Upsert(ctx, req))

		got, err = repo.Get(ctx, 7, 42)
		require.NoError(t, err)
		assert.True(t, got.PromptSent(), "upsert replaces the existing row")
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, 7, 42))
		_, err := repo.Get(ctx, 7, 42)
		assert.ErrorIs(t, err, access.ErrRequestNotFound)

		assert.ErrorIs(t, repo.Delete(ctx, 7, 42), access.ErrRequestNotFound)
	})

	t.Run("delete expired", func(t *testing.T) {
		now := time.Now()
		fresh, err := access.NewPendingRequest(1, 42, time.Hour, now)
		require.NoError(t, err)
		stale, err := access.NewPendingRequest(2, 42, time.Minute, now.Add(-time.Hour))
		require.NoError(t, err)
		require.NoError(t, repo.Upsert(ctx, fresh))
		require.NoError(t, repo.Upsert(ctx, stale))

		n, err := repo.DeleteExpired(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = repo.Get(ctx, 1, 42)
		assert.NoError(t, err)
		_, err = repo.Get(ctx, 2, 42)
		assert.ErrorIs(t, err, access.ErrRequestNotFound)
	})
}

func TestDeployedContractRepository(t *testing.T) {
	database := setupTestDB(t)
	repo := NewDeployedContractRepository(database, testLogger())
	ctx := context.Background()

	t.Run("create and query", func(t *testing.T) {
		c, err := contract.NewDeployedContract(42, "0:contract42", time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, c))
		assert.NotZero(t, c.ID())

		got, err := repo.GetByResourceID(ctx, 42)
		require.NoError(t, err)
		assert.Equal(t, "0:contract42", got.Address())

		got, err = repo.GetByAddress(ctx, "0:contract42")
		require.NoError(t, err)
		assert.Equal(t, int64(42), got.ResourceID())
	})

	t.Run("binding is write-once", func(t *testing.T) {
		dup, err := contract.NewDeployedContract(42, "0:other", time.Now())
		require.NoError(t, err)
		err = repo.Create(ctx, dup)
		assert.True(t, errors.IsConflictError(err))
	})

	t.Run("list", func(t *testing.T) {
		c, err := contract.NewDeployedContract(43, "0:contract43", time.Now())
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, c))

		list, err := repo.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, int64(42), list[0].ResourceID())
	})
}
