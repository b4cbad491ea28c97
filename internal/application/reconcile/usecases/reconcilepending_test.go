package usecases

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tonpass-inc/tonpass/internal/application/reconcile/ledger"
	"github.com/tonpass-inc/tonpass/internal/domain/entitlement"
	"github.com/tonpass-inc/tonpass/internal/domain/payment"
	"github.com/tonpass-inc/tonpass/internal/shared/logger"
)

func testLogger() logger.Interface {
	return logger.NewLoggerWithSlog(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeEntitlementRepo keeps entitlements in memory keyed by ID
type fakeEntitlementRepo struct {
	mu    sync.Mutex
	items map[uint]*entitlement.Entitlement
}

func newFakeEntitlementRepo() *fakeEntitlementRepo {
	return &fakeEntitlementRepo{items: make(map[uint]*entitlement.Entitlement)}
}

func (r *fakeEntitlementRepo) add(t *testing.T, e *entitlement.Entitlement, id uint) *entitlement.Entitlement {
	t.Helper()
	require.NoError(t, e.SetID(id))
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = e
	return e
}

func (r *fakeEntitlementRepo) Create(ctx context.Context, e *entitlement.Entitlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := uint(len(r.items) + 1)
	if err := e.SetID(id); err != nil {
		return err
	}
	r.items[id] = e
	return nil
}

func (r *fakeEntitlementRepo) Update(ctx context.Context, e *entitlement.Entitlement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[e.ID()] = e
	return nil
}

func (r *fakeEntitlementRepo) GetByID(ctx context.Context, id uint) (*entitlement.Entitlement, error) {
	return r.GetByIDForUpdate(ctx, id)
}

func (r *fakeEntitlementRepo) GetByIDForUpdate(ctx context.Context, id uint) (*entitlement.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.items[id]
	if !ok {
		return nil, entitlement.ErrEntitlementNotFound
	}
	return e, nil
}

func (r *fakeEntitlementRepo) GetByReference(ctx context.Context, reference string) (*entitlement.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.items {
		if e.Reference() == reference {
			return e, nil
		}
	}
	return nil, entitlement.ErrEntitlementNotFound
}

func (r *fakeEntitlementRepo) GetBySubjectResource(ctx context.Context, subjectID, resourceID int64) (*entitlement.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.items {
		if e.SubjectID() == subjectID && e.ResourceID() == resourceID {
			return e, nil
		}
	}
	return nil, entitlement.ErrEntitlementNotFound
}

func (r *fakeEntitlementRepo) GetPendingCreatedSince(ctx context.Context, cutoff time.Time) ([]*entitlement.Entitlement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entitlement.Entitlement
	for _, e := range r.items {
		if e.Status().IsPending() && !e.CreatedAt().Before(cutoff) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeEntitlementRepo) HasActive(ctx context.Context, subjectID, resourceID int64, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.items {
		if e.SubjectID() == subjectID && e.ResourceID() == resourceID && e.IsActive(now) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeEntitlementRepo) CountPendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, e := range r.items {
		if e.Status().IsPending() && e.CreatedAt().Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (r *fakeEntitlementRepo) DeletePendingOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, e := range r.items {
		if e.Status().IsPending() && e.CreatedAt().Before(cutoff) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}

// fakePaymentRepo enforces the transaction-hash unique constraint in memory
type fakePaymentRepo struct {
	mu     sync.Mutex
	byHash map[string]*payment.Payment
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byHash: make(map[string]*payment.Payment)}
}

func (r *fakePaymentRepo) CreateIgnoreDuplicate(ctx context.Context, p *payment.Payment) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byHash[p.TransactionHash()]; ok {
		return false, nil
	}
	if err := p.SetID(uint(len(r.byHash) + 1)); err != nil {
		return false, err
	}
	r.byHash[p.TransactionHash()] = p
	return true, nil
}

func (r *fakePaymentRepo) GetByTransactionHash(ctx context.Context, hash string) (*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byHash[hash]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	return p, nil
}

func (r *fakePaymentRepo) ExistsByTransactionHash(ctx context.Context, hash string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byHash[hash]
	return ok, nil
}

func (r *fakePaymentRepo) ListByEntitlement(ctx context.Context, entitlementID uint) ([]*payment.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*payment.Payment
	for _, p := range r.byHash {
		if p.EntitlementID() == entitlementID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePaymentRepo) SumConfirmed(ctx context.Context) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total int64
	for _, p := range r.byHash {
		total += p.Amount()
	}
	return int64(len(r.byHash)), total, nil
}

// fakeLedger serves canned transactions per address
type fakeLedger struct {
	mu   sync.Mutex
	txs  map[string][]ledger.Transaction
	errs map[string]error
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		txs:  make(map[string][]ledger.Transaction),
		errs: make(map[string]error),
	}
}

func (l *fakeLedger) GetTransactions(ctx context.Context, address string, since time.Time) ([]ledger.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.errs[address]; err != nil {
		return nil, err
	}
	return l.txs[address], nil
}

func (l *fakeLedger) GetContractState(ctx context.Context, address string) (*ledger.ContractState, error) {
	return &ledger.ContractState{Address: address}, nil
}

func (l *fakeLedger) Ping(ctx context.Context) error { return nil }

// passthroughTx runs the function without a real transaction
type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type reconcileFixture struct {
	uc       *ReconcilePendingUseCase
	ents     *fakeEntitlementRepo
	payments *fakePaymentRepo
	ledger   *fakeLedger
	events   []ActivationEvent
}

func newReconcileFixture(t *testing.T, config ReconcilePendingConfig) *reconcileFixture {
	t.Helper()
	f := &reconcileFixture{
		ents:     newFakeEntitlementRepo(),
		payments: newFakePaymentRepo(),
		ledger:   newFakeLedger(),
	}
	f.uc = NewReconcilePendingUseCase(
		f.ents, f.payments, f.ledger, passthroughTx{},
		func(ctx context.Context, event ActivationEvent) {
			f.events = append(f.events, event)
		},
		config, testLogger(),
	)
	return f
}

func pendingEntitlement(t *testing.T, f *reconcileFixture, id uint, address string) *entitlement.Entitlement {
	t.Helper()
	e, err := entitlement.NewEntitlement(int64(1000+id), 42, 1000, 100)
	require.NoError(t, err)
	require.NoError(t, e.BindContract(address))
	return f.ents.add(t, e, id)
}

func paymentTx(e *entitlement.Entitlement, hash string, amount int64) ledger.Transaction {
	return ledger.Transaction{
		Hash:        hash,
		FromAddress: "0:payer",
		ToAddress:   *e.ContractAddress(),
		Amount:      amount,
		Comment:     e.Reference(),
		ConfirmedAt: time.Now(),
	}
}

func TestReconcilePending_ActivatesMatch(t *testing.T) {
	f := newReconcileFixture(t, ReconcilePendingConfig{AccessPeriod: 30 * 24 * time.Hour})
	e := pendingEntitlement(t, f, 1, "0:contract")
	f.ledger.txs["0:contract"] = []ledger.Transaction{paymentTx(e, "tx1", 1000)}

	result, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Activated)
	assert.Equal(t, 0, result.Failed)

	assert.Equal(t, entitlement.StatusActive, e.Status())
	require.NotNil(t, e.TransactionHash())
	assert.Equal(t, "tx1", *e.TransactionHash())
	assert.NotNil(t, e.ExpiresAt())

	require.Len(t, f.events, 1)
	assert.Equal(t, e.ID(), f.events[0].EntitlementID)
	assert.Equal(t, "tx1", f.events[0].TransactionHash)

	recorded, err := f.payments.GetByTransactionHash(context.Background(), "tx1")
	require.NoError(t, err)
	assert.Equal(t, e.ID(), recorded.EntitlementID())
}

func TestReconcilePending_RepeatPassIsIdempotent(t *testing.T) {
	f := newReconcileFixture(t, ReconcilePendingConfig{})
	e := pendingEntitlement(t, f, 1, "0:contract")
	f.ledger.txs["0:contract"] = []ledger.Transaction{paymentTx(e, "tx1", 1000)}

	_, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	require.Len(t, f.events, 1)

	// The entitlement is active now; the same transaction stays on the
	// ledger but nothing happens again
	result, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.Activated)
	assert.Len(t, f.events, 1, "no second activation event")
}

func TestReconcilePending_TransactionHashConsumedOnce(t *testing.T) {
	f := newReconcileFixture(t, ReconcilePendingConfig{})
	a := pendingEntitlement(t, f, 1, "0:contract")
	b := pendingEntitlement(t, f, 2, "0:contract")

	// Both entitlements somehow match the same transaction (a would-be
	// replay); only one may consume it
	shared := paymentTx(a, "tx1", 1000)
	f.ledger.txs["0:contract"] = []ledger.Transaction{
		shared,
		{
			Hash: "tx1", FromAddress: "0:payer", ToAddress: "0:contract",
			Amount: 1000, Comment: b.Reference(), ConfirmedAt: time.Now(),
		},
	}

	result, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Activated)
	assert.Equal(t, 1, result.AlreadyActive+result.Unmatched)

	activeCount := 0
	for _, e := range []*entitlement.Entitlement{a, b} {
		if e.Status().IsActive() {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount, "exactly one entitlement consumed the hash")
}

func TestReconcilePending_UnderpaidNotMatched(t *testing.T) {
	f := newReconcileFixture(t, ReconcilePendingConfig{})
	e := pendingEntitlement(t, f, 1, "0:contract")
	// floor for 1000 at 100 bps is 990
	f.ledger.txs["0:contract"] = []ledger.Transaction{paymentTx(e, "tx1", 989)}

	result, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unmatched)
	assert.Equal(t, entitlement.StatusPending, e.Status())

	t.Run("retry with full amount matches", func(t *testing.T) {
		f.ledger.txs["0:contract"] = append(f.ledger.txs["0:contract"], paymentTx(e, "tx2", 1000))
		result, err := f.uc.Execute(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, result.Activated)
		assert.Equal(t, "tx2", *e.TransactionHash())
	})
}

func TestReconcilePending_ToleratedShortfallMatches(t *testing.T) {
	f := newReconcileFixture(t, ReconcilePendingConfig{})
	e := pendingEntitlement(t, f, 1, "0:contract")
	f.ledger.txs["0:contract"] = []ledger.Transaction{paymentTx(e, "tx1", 990)}

	result, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Activated)
}

func TestReconcilePending_WrongReferenceNotMatched(t *testing.T) {
	f := newReconcileFixture(t, ReconcilePendingConfig{})
	e := pendingEntitlement(t, f, 1, "0:contract")
	tx := paymentTx(e, "tx1", 1000)
	tx.Comment = "not-the-reference"
	f.ledger.txs["0:contract"] = []ledger.Transaction{tx}

	result, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Unmatched)
}

func TestReconcilePending_LedgerFailureIsolated(t *testing.T) {
	f := newReconcileFixture(t, ReconcilePendingConfig{})
	broken := pendingEntitlement(t, f, 1, "0:broken")
	healthy := pendingEntitlement(t, f, 2, "0:healthy")

	f.ledger.errs["0:broken"] = fmt.Errorf("rpc timeout")
	f.ledger.txs["0:healthy"] = []ledger.Transaction{paymentTx(healthy, "tx1", 1000)}

	result, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.Activated)
	assert.Equal(t, 1, result.Unmatched)
	assert.Equal(t, entitlement.StatusPending, broken.Status())
	assert.Equal(t, entitlement.StatusActive, healthy.Status())
}

func TestReconcilePending_LifetimeAccessHasNoExpiry(t *testing.T) {
	f := newReconcileFixture(t, ReconcilePendingConfig{AccessPeriod: 0})
	e := pendingEntitlement(t, f, 1, "0:contract")
	f.ledger.txs["0:contract"] = []ledger.Transaction{paymentTx(e, "tx1", 1000)}

	_, err := f.uc.Execute(context.Background())
	require.NoError(t, err)
	assert.Nil(t, e.ExpiresAt())
	require.Len(t, f.events, 1)
	assert.Nil(t, f.events[0].ExpiresAt)
}
