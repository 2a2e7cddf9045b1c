package orders

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type refundFixture struct {
	store    *fakeStore
	ledger   *fakeLedger
	cache    *fakeCache
	provider *fakeProvider
	audit    *fakeAuditor
	notify   *fakeNotifier
	proc     *RefundProcessor
}

func newRefundFixture(order *models.Order) *refundFixture {
	f := &refundFixture{
		store:    &fakeStore{},
		ledger:   &fakeLedger{},
		cache:    &fakeCache{},
		provider: &fakeProvider{method: models.MethodCard},
		audit:    &fakeAuditor{},
		notify:   &fakeNotifier{},
	}
	if order != nil {
		f.store.getFn = func(context.Context, string) (*models.Order, error) { return order, nil }
	}
	registry := payments.NewRegistry(f.provider)
	f.proc = NewRefundProcessor(f.store, f.ledger, f.cache, registry, f.audit, f.notify, "USD", zap.NewNop())
	return f
}

func paidOrder() *models.Order {
	return &models.Order{
		ID:     "ord-1",
		Status: models.StatusDelivered,
		Payment: models.PaymentRecord{
			Method:        models.MethodCard,
			Status:        models.PaymentPaid,
			Amount:        100.00,
			Currency:      "USD",
			TransactionID: "ch_100",
		},
	}
}

func TestProcess_SubmitsExactCentAmount(t *testing.T) {
	f := newRefundFixture(paidOrder())

	record, err := f.proc.Process(context.Background(), RefundRequest{
		OrderID:     "ord-1",
		Amount:      25.50,
		Reason:      "damaged item",
		RequestedBy: "ops@shop.test",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(2550), f.provider.lastRefund.AmountCents)
	assert.Equal(t, "ch_100", f.provider.lastRefund.TransactionID)
	assert.Equal(t, "USD", f.provider.lastRefund.Currency)
	assert.Equal(t, "damaged item", f.provider.lastRefund.Reason)
	assert.NotEmpty(t, f.provider.lastRefund.IdempotencyKey)

	assert.Equal(t, int64(2550), record.AmountCents)
	assert.False(t, record.Full)
	assert.Equal(t, repository.RefundSubmitted, record.Status)
	assert.Equal(t, "ops@shop.test", record.RequestedBy)
	assert.Contains(t, f.audit.actions(), "order.refund_submitted")
}

func TestProcess_RejectsBeforeProviderTraffic(t *testing.T) {
	cases := []struct {
		name string
		req  RefundRequest
	}{
		{"zero amount", RefundRequest{OrderID: "ord-1", Amount: 0, Reason: "oops"}},
		{"negative amount", RefundRequest{OrderID: "ord-1", Amount: -10.50, Reason: "oops"}},
		{"missing reason", RefundRequest{OrderID: "ord-1", Amount: 10}},
		{"blank reason", RefundRequest{OrderID: "ord-1", Amount: 10, Reason: "   "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newRefundFixture(paidOrder())
			_, err := f.proc.Process(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, KindValidation, KindOf(err))

			var rve *RefundValidationError
			assert.ErrorAs(t, err, &rve)
			assert.Zero(t, f.provider.refundCalls)
		})
	}
}

func TestProcess_RequiresCapturedPayment(t *testing.T) {
	order := paidOrder()
	order.Payment.Status = models.PaymentPending
	f := newRefundFixture(order)

	_, err := f.proc.Process(context.Background(), RefundRequest{OrderID: "ord-1", Amount: 10, Reason: "oops"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "only captured payments")
	assert.Zero(t, f.provider.refundCalls)
}

func TestProcess_FullRefundDrainsRemainingBalance(t *testing.T) {
	f := newRefundFixture(paidOrder())
	f.ledger.refunded = map[string]int64{"ord-1": 4000}

	record, err := f.proc.Process(context.Background(), RefundRequest{
		OrderID: "ord-1",
		Full:    true,
		Reason:  "order lost in transit",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6000), record.AmountCents)
	assert.True(t, record.Full)
	assert.Equal(t, int64(6000), f.provider.lastRefund.AmountCents)
}

func TestProcess_PartialBounds(t *testing.T) {
	t.Run("at captured amount", func(t *testing.T) {
		f := newRefundFixture(paidOrder())
		_, err := f.proc.Process(context.Background(), RefundRequest{OrderID: "ord-1", Amount: 100.00, Reason: "oops"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "less than the captured amount")
		assert.Zero(t, f.provider.refundCalls)
	})

	t.Run("beyond refundable balance", func(t *testing.T) {
		f := newRefundFixture(paidOrder())
		f.ledger.refunded = map[string]int64{"ord-1": 9000}
		_, err := f.proc.Process(context.Background(), RefundRequest{OrderID: "ord-1", Amount: 15.00, Reason: "oops"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds refundable balance of 10.00")
		assert.Zero(t, f.provider.refundCalls)
	})

	t.Run("already fully refunded", func(t *testing.T) {
		f := newRefundFixture(paidOrder())
		f.ledger.refunded = map[string]int64{"ord-1": 10000}
		_, err := f.proc.Process(context.Background(), RefundRequest{OrderID: "ord-1", Amount: 5.00, Reason: "oops"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already fully refunded")
	})
}

func TestProcess_PartialCompletingBalanceBecomesFull(t *testing.T) {
	f := newRefundFixture(paidOrder())
	f.ledger.refunded = map[string]int64{"ord-1": 7450}

	record, err := f.proc.Process(context.Background(), RefundRequest{
		OrderID: "ord-1",
		Amount:  25.50,
		Reason:  "remainder",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2550), record.AmountCents)
	assert.True(t, record.Full)
}

func TestProcess_ReplaysIdempotentSubmission(t *testing.T) {
	f := newRefundFixture(paidOrder())

	first, err := f.proc.Process(context.Background(), RefundRequest{
		OrderID:        "ord-1",
		Amount:         25.50,
		Reason:         "damaged item",
		IdempotencyKey: "retry-1",
	})
	require.NoError(t, err)
	require.Equal(t, 1, f.provider.refundCalls)

	second, err := f.proc.Process(context.Background(), RefundRequest{
		OrderID:        "ord-1",
		Amount:         25.50,
		Reason:         "damaged item",
		IdempotencyKey: "retry-1",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, f.provider.refundCalls)
}

func TestProcess_ClaimWithoutRecordResubmits(t *testing.T) {
	f := newRefundFixture(paidOrder())
	f.cache.claims = map[string]bool{"retry-1": true}

	record, err := f.proc.Process(context.Background(), RefundRequest{
		OrderID:        "ord-1",
		Amount:         25.50,
		Reason:         "damaged item",
		IdempotencyKey: "retry-1",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, f.provider.refundCalls)
	assert.Equal(t, "retry-1", record.IdempotencyKey)
}

func TestProcess_ProviderFailureReleasesClaim(t *testing.T) {
	f := newRefundFixture(paidOrder())
	f.provider.refundFn = func(context.Context, payments.RefundParams) (*payments.RefundResult, error) {
		return nil, fmt.Errorf("provider POST /v1/refunds: status 502: %w", repository.ErrUnavailable)
	}

	_, err := f.proc.Process(context.Background(), RefundRequest{
		OrderID:        "ord-1",
		Amount:         25.50,
		Reason:         "damaged item",
		IdempotencyKey: "retry-1",
	})
	require.Error(t, err)
	assert.Equal(t, KindNetwork, KindOf(err))
	assert.Contains(t, f.cache.released, "retry-1")
	assert.Empty(t, f.ledger.records)
	assert.Empty(t, f.notify.settled)
}

func TestProcess_UnrefundableMethod(t *testing.T) {
	order := paidOrder()
	order.Payment.Method = models.MethodBankTransfer
	f := newRefundFixture(order)

	_, err := f.proc.Process(context.Background(), RefundRequest{OrderID: "ord-1", Amount: 10, Reason: "oops"})
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Contains(t, err.Error(), "bank_transfer cannot be refunded here")
	assert.Zero(t, f.provider.refundCalls)
}

func TestProcess_ImmediateSettlement(t *testing.T) {
	f := newRefundFixture(paidOrder())
	f.provider.refundFn = func(context.Context, payments.RefundParams) (*payments.RefundResult, error) {
		return &payments.RefundResult{ProviderRef: "ref-1", Status: payments.RefundSucceeded}, nil
	}

	record, err := f.proc.Process(context.Background(), RefundRequest{
		OrderID: "ord-1",
		Full:    true,
		Reason:  "order lost",
	})
	require.NoError(t, err)
	assert.Equal(t, repository.RefundSettled, record.Status)
	require.NotNil(t, record.SettledAt)

	require.Len(t, f.store.appliedRefunds, 1)
	assert.True(t, f.store.appliedRefunds[0].full)
	assert.Equal(t, "Refund of 100.00 USD settled", f.store.appliedRefunds[0].note.Message)

	require.Len(t, f.notify.settled, 1)
	assert.Equal(t, int64(10000), f.notify.settled[0].cents)
	assert.True(t, f.notify.settled[0].full)
	assert.Contains(t, f.audit.actions(), "order.refund_settled")
}

func TestProcess_ImmediateRejection(t *testing.T) {
	f := newRefundFixture(paidOrder())
	f.provider.refundFn = func(context.Context, payments.RefundParams) (*payments.RefundResult, error) {
		return &payments.RefundResult{ProviderRef: "ref-1", Status: payments.RefundRejected}, nil
	}

	record, err := f.proc.Process(context.Background(), RefundRequest{
		OrderID: "ord-1",
		Amount:  25.50,
		Reason:  "damaged item",
	})
	require.NoError(t, err)
	assert.Equal(t, repository.RefundFailed, record.Status)
	assert.Equal(t, repository.RefundFailed, f.ledger.statusOf(record.ID))

	require.Len(t, f.store.appendedNotes, 1)
	assert.Equal(t, "Refund of 25.50 USD (failed)", f.store.appendedNotes[0].Message)
	assert.Equal(t, []int64{2550}, f.notify.failed)
	assert.Empty(t, f.store.appliedRefunds)
}

func TestSettle_PartialKeepsOrderOpen(t *testing.T) {
	f := newRefundFixture(paidOrder())
	record := &repository.RefundRecord{
		ID:          "rf-1",
		OrderID:     "ord-1",
		AmountCents: 2550,
		Currency:    "USD",
		Full:        false,
		Status:      repository.RefundSubmitted,
	}
	f.ledger.add(record)

	require.NoError(t, f.proc.Settle(context.Background(), record, time.Now()))
	require.Len(t, f.store.appliedRefunds, 1)
	assert.False(t, f.store.appliedRefunds[0].full)
	assert.Equal(t, "Partial refund of 25.50 USD settled", f.store.appliedRefunds[0].note.Message)
	assert.Equal(t, repository.RefundSettled, f.ledger.statusOf("rf-1"))
}

func TestCheckSettlement_CountsAttempt(t *testing.T) {
	f := newRefundFixture(paidOrder())
	record := &repository.RefundRecord{
		ID:          "rf-1",
		OrderID:     "ord-1",
		Method:      string(models.MethodCard),
		ProviderRef: "ref-1",
		Status:      repository.RefundSubmitted,
	}
	f.ledger.add(record)
	f.provider.refundStatusFn = func(context.Context, string) (payments.RefundState, error) {
		return payments.RefundSucceeded, nil
	}

	state, err := f.proc.CheckSettlement(context.Background(), record)
	require.NoError(t, err)
	assert.Equal(t, payments.RefundSucceeded, state)
	assert.Equal(t, 1, f.ledger.records["rf-1"].Attempts)
	require.NotNil(t, f.ledger.records["rf-1"].LastCheckedAt)
}

func TestCheckSettlement_ProviderErrorStillCounts(t *testing.T) {
	f := newRefundFixture(paidOrder())
	record := &repository.RefundRecord{
		ID:          "rf-1",
		OrderID:     "ord-1",
		Method:      string(models.MethodCard),
		ProviderRef: "ref-1",
		Status:      repository.RefundSubmitted,
	}
	f.ledger.add(record)
	f.provider.refundStatusFn = func(context.Context, string) (payments.RefundState, error) {
		return "", repository.ErrUnavailable
	}

	_, err := f.proc.CheckSettlement(context.Background(), record)
	require.Error(t, err)
	assert.True(t, errors.Is(err, repository.ErrUnavailable))
	assert.Equal(t, 1, f.ledger.records["rf-1"].Attempts)
}

func TestRefunds_ListsLedgerRows(t *testing.T) {
	f := newRefundFixture(nil)
	f.ledger.add(&repository.RefundRecord{ID: "rf-1", OrderID: "ord-1", IdempotencyKey: "k1"})
	f.ledger.add(&repository.RefundRecord{ID: "rf-2", OrderID: "ord-2", IdempotencyKey: "k2"})

	records, err := f.proc.Refunds(context.Background(), "ord-1")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rf-1", records[0].ID)
}
