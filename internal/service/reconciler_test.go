package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

func pendingIntent(id string, phase models.IntentPhase, updated time.Time, itemIDs ...string) *models.CheckoutIntent {
	return &models.CheckoutIntent{
		ID:            id,
		UserID:        u1.UserID,
		TransactionID: "tx-" + id,
		Email:         "alice@example.com",
		ItemIDs:       itemIDs,
		Order: &models.Order{
			UserID:        u1.UserID,
			Items:         []models.OrderItem{{ProductID: "111", Quantity: len(itemIDs)}},
			TransactionID: "tx-" + id,
			TotalCost:     25 * float64(len(itemIDs)),
			PaymentMethod: models.PaymentMethodDebit,
			DateReceived:  updated,
		},
		Phase:     phase,
		CreatedAt: updated,
		UpdatedAt: updated,
	}
}

func TestReconciler_PaidIntentWithoutOrder(t *testing.T) {
	f := newCheckoutFixture()
	f.carts.set(u1.UserID, "111", "234")
	f.intents.put(pendingIntent("i1", models.IntentPhasePaid, time.Now(), "111"))

	require.NoError(t, f.reconciler.ReconcileIntent(context.Background(), "i1"))

	assert.Equal(t, 1, f.orders.count(u1.UserID))
	assert.Equal(t, []string{"234"}, f.carts.get(u1.UserID))
	assert.Equal(t, models.IntentPhaseCompleted, f.intents.only().Phase)
}

func TestReconciler_PaidIntentOrderAlreadyRecorded(t *testing.T) {
	f := newCheckoutFixture()
	f.carts.set(u1.UserID, "111")
	intent := pendingIntent("i1", models.IntentPhasePaid, time.Now(), "111")
	f.intents.put(intent)
	require.NoError(t, f.orders.Append(context.Background(), intent.Order))

	require.NoError(t, f.reconciler.ReconcileIntent(context.Background(), "i1"))

	assert.Equal(t, 1, f.orders.count(u1.UserID), "no duplicate order")
	assert.Empty(t, f.carts.get(u1.UserID))
}

func TestReconciler_OrderCommittedOnlyRetracts(t *testing.T) {
	f := newCheckoutFixture()
	f.carts.set(u1.UserID, "111", "111", "123")
	f.intents.put(pendingIntent("i1", models.IntentPhaseOrderCommitted, time.Now(), "111", "123"))

	require.NoError(t, f.reconciler.ReconcileIntent(context.Background(), "i1"))

	assert.Equal(t, 0, f.orders.count(u1.UserID))
	assert.Equal(t, []string{"111"}, f.carts.get(u1.UserID))
	assert.Equal(t, models.IntentPhaseCompleted, f.intents.only().Phase)
}

func TestReconciler_RetractsLargeIntent(t *testing.T) {
	ids := make([]string, maxIDsPerRequest+1)
	for i := range ids {
		ids[i] = "111"
	}

	f := newCheckoutFixture()
	f.carts.set(u1.UserID, ids...)
	f.intents.put(pendingIntent("i1", models.IntentPhaseOrderCommitted, time.Now(), ids...))

	require.NoError(t, f.reconciler.ReconcileIntent(context.Background(), "i1"))

	assert.Empty(t, f.carts.get(u1.UserID))
	assert.Equal(t, models.IntentPhaseCompleted, f.intents.only().Phase)
}

func TestReconciler_CompletedIsNoop(t *testing.T) {
	f := newCheckoutFixture()
	f.carts.set(u1.UserID, "111")
	f.intents.put(pendingIntent("i1", models.IntentPhaseCompleted, time.Now(), "111"))

	require.NoError(t, f.reconciler.ReconcileIntent(context.Background(), "i1"))

	assert.Equal(t, []string{"111"}, f.carts.get(u1.UserID))
	assert.Equal(t, 0, f.carts.saveCount())
}

func TestReconciler_UnknownIntent(t *testing.T) {
	f := newCheckoutFixture()

	err := f.reconciler.ReconcileIntent(context.Background(), "missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestReconciler_FailureRecordsLastError(t *testing.T) {
	f := newCheckoutFixture()
	f.carts.set(u1.UserID, "111")
	f.carts.loadErr = errStoreDown
	f.intents.put(pendingIntent("i1", models.IntentPhaseOrderCommitted, time.Now(), "111"))

	err := f.reconciler.ReconcileIntent(context.Background(), "i1")
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)

	intent := f.intents.only()
	assert.Equal(t, models.IntentPhaseOrderCommitted, intent.Phase)
	assert.Contains(t, intent.LastError, "connection refused")
	assert.Equal(t, 1, intent.Attempts)
}

func TestReconciler_PaidIntentWithoutPayload(t *testing.T) {
	f := newCheckoutFixture()
	intent := pendingIntent("i1", models.IntentPhasePaid, time.Now(), "111")
	intent.Order = nil
	f.intents.put(intent)

	err := f.reconciler.ReconcileIntent(context.Background(), "i1")
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.Equal(t, models.IntentPhasePaid, f.intents.only().Phase)
}

func TestReconciler_SweepSkipsFreshIntents(t *testing.T) {
	f := newCheckoutFixture()
	now := time.Now()
	f.reconciler.now = func() time.Time { return now }

	f.carts.set(u1.UserID, "111", "123", "234")
	f.intents.put(pendingIntent("old-paid", models.IntentPhasePaid, now.Add(-time.Hour), "111"))
	f.intents.put(pendingIntent("old-committed", models.IntentPhaseOrderCommitted, now.Add(-2*time.Minute), "123"))
	f.intents.put(pendingIntent("fresh", models.IntentPhasePaid, now.Add(-time.Second), "234"))

	completed, err := f.reconciler.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, completed)
	assert.Equal(t, []string{"234"}, f.carts.get(u1.UserID))
	assert.Equal(t, 1, f.orders.count(u1.UserID))

	fresh, err := f.intents.Get(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, models.IntentPhasePaid, fresh.Phase)
}

func TestReconciler_RunStopsOnCancel(t *testing.T) {
	f := newCheckoutFixture()
	f.reconciler.config.Interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.reconciler.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}
