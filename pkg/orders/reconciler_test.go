package orders

import (
	"context"
	"testing"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newReconcilerFixture(cfg *config.ReconcilerConfig) (*refundFixture, *Reconciler) {
	f := newRefundFixture(paidOrder())
	return f, NewReconciler(f.proc, f.ledger, cfg, zap.NewNop())
}

func submittedRecord(id string, createdAt time.Time) *repository.RefundRecord {
	return &repository.RefundRecord{
		ID:             id,
		OrderID:        "ord-1",
		IdempotencyKey: "key-" + id,
		ProviderRef:    "ref-" + id,
		Method:         "card",
		AmountCents:    2550,
		Currency:       "USD",
		Status:         repository.RefundSubmitted,
		CreatedAt:      createdAt,
	}
}

func TestBackoff_DoublesPerAttemptUpToCap(t *testing.T) {
	_, r := newReconcilerFixture(&config.ReconcilerConfig{
		PollInterval: time.Minute,
		MaxBackoff:   8 * time.Minute,
	})

	assert.Equal(t, time.Minute, r.backoff(0))
	assert.Equal(t, 2*time.Minute, r.backoff(1))
	assert.Equal(t, 4*time.Minute, r.backoff(2))
	assert.Equal(t, 8*time.Minute, r.backoff(3))
	assert.Equal(t, 8*time.Minute, r.backoff(10))
}

func TestDue_GatesOnBackoffWindow(t *testing.T) {
	_, r := newReconcilerFixture(&config.ReconcilerConfig{
		PollInterval: time.Minute,
		MaxBackoff:   8 * time.Minute,
	})
	now := time.Now()

	never := submittedRecord("rf-1", now)
	assert.True(t, r.due(never, now))

	recent := submittedRecord("rf-2", now)
	checked := now.Add(-30 * time.Second)
	recent.LastCheckedAt = &checked
	assert.False(t, r.due(recent, now))

	elapsed := submittedRecord("rf-3", now)
	checked2 := now.Add(-61 * time.Second)
	elapsed.LastCheckedAt = &checked2
	assert.True(t, r.due(elapsed, now))

	backedOff := submittedRecord("rf-4", now)
	backedOff.Attempts = 3
	checked3 := now.Add(-5 * time.Minute)
	backedOff.LastCheckedAt = &checked3
	assert.False(t, r.due(backedOff, now))
}

func TestRunOnce_SettlesConfirmedRefunds(t *testing.T) {
	f, r := newReconcilerFixture(&config.ReconcilerConfig{
		PollInterval: time.Minute,
		MaxBackoff:   8 * time.Minute,
		SettleWithin: 24 * time.Hour,
	})
	f.ledger.add(submittedRecord("rf-1", time.Now()))
	f.provider.refundStatusFn = func(context.Context, string) (payments.RefundState, error) {
		return payments.RefundSucceeded, nil
	}

	r.runOnce(context.Background())

	assert.Equal(t, repository.RefundSettled, f.ledger.statusOf("rf-1"))
	require.Len(t, f.store.appliedRefunds, 1)
	assert.Equal(t, 1, f.ledger.records["rf-1"].Attempts)
	require.Len(t, f.notify.settled, 1)
}

func TestRunOnce_FailsRejectedRefunds(t *testing.T) {
	f, r := newReconcilerFixture(&config.ReconcilerConfig{
		PollInterval: time.Minute,
		MaxBackoff:   8 * time.Minute,
		SettleWithin: 24 * time.Hour,
	})
	f.ledger.add(submittedRecord("rf-1", time.Now()))
	f.provider.refundStatusFn = func(context.Context, string) (payments.RefundState, error) {
		return payments.RefundRejected, nil
	}

	r.runOnce(context.Background())

	assert.Equal(t, repository.RefundFailed, f.ledger.statusOf("rf-1"))
	assert.Empty(t, f.store.appliedRefunds)
	assert.Equal(t, []int64{2550}, f.notify.failed)
}

func TestRunOnce_MarksOverdueRefundsStale(t *testing.T) {
	f, r := newReconcilerFixture(&config.ReconcilerConfig{
		PollInterval: time.Minute,
		MaxBackoff:   8 * time.Minute,
		SettleWithin: 24 * time.Hour,
	})
	f.ledger.add(submittedRecord("rf-1", time.Now().Add(-25*time.Hour)))

	r.runOnce(context.Background())

	assert.Equal(t, repository.RefundStale, f.ledger.statusOf("rf-1"))
	assert.Zero(t, f.provider.statusCalls)
	assert.Equal(t, []int64{2550}, f.notify.failed)
}

func TestRunOnce_SkipsRecordsInsideBackoff(t *testing.T) {
	f, r := newReconcilerFixture(&config.ReconcilerConfig{
		PollInterval: time.Minute,
		MaxBackoff:   8 * time.Minute,
		SettleWithin: 24 * time.Hour,
	})
	record := submittedRecord("rf-1", time.Now())
	record.Attempts = 1
	checked := time.Now().Add(-10 * time.Second)
	record.LastCheckedAt = &checked
	f.ledger.add(record)

	r.runOnce(context.Background())

	assert.Zero(t, f.provider.statusCalls)
	assert.Equal(t, repository.RefundSubmitted, f.ledger.statusOf("rf-1"))
}

func TestRunOnce_KeepsPollingAfterProviderError(t *testing.T) {
	f, r := newReconcilerFixture(&config.ReconcilerConfig{
		PollInterval: time.Minute,
		MaxBackoff:   8 * time.Minute,
		SettleWithin: 24 * time.Hour,
	})
	f.ledger.add(submittedRecord("rf-1", time.Now()))
	f.provider.refundStatusFn = func(context.Context, string) (payments.RefundState, error) {
		return "", repository.ErrUnavailable
	}

	r.runOnce(context.Background())

	assert.Equal(t, repository.RefundSubmitted, f.ledger.statusOf("rf-1"))
	assert.Equal(t, 1, f.ledger.records["rf-1"].Attempts)
}
