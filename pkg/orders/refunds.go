package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type RefundRequest struct {
	OrderID string
	// Amount in major units; ignored when Full is set.
	Amount         float64
	Full           bool
	Reason         string
	IdempotencyKey string
	RequestedBy    string
}

// Ledger is the refund ledger surface the processor and the reconciler
// depend on. *repository.LedgerStore satisfies it.
type Ledger interface {
	CreateRefund(ctx context.Context, record *repository.RefundRecord) error
	GetRefundByKey(ctx context.Context, key string) (*repository.RefundRecord, error)
	RefundsForOrder(ctx context.Context, orderID string) ([]repository.RefundRecord, error)
	PendingRefunds(ctx context.Context, limit int) ([]repository.RefundRecord, error)
	RecordPoll(ctx context.Context, id string, at time.Time) error
	MarkSettled(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id string, status repository.RefundStatus) error
	RefundedCents(ctx context.Context, orderID string) (int64, error)
	RecordEvent(ctx context.Context, event *repository.PaymentEvent) error
}

// RefundProcessor submits refunds to payment providers and keeps the ledger,
// the order document and the caches in step.
type RefundProcessor struct {
	store    Store
	ledger   Ledger
	cache    Cache
	registry *payments.Registry
	audit    Auditor
	notify   Notifier
	currency string
	logger   *zap.Logger
}

func NewRefundProcessor(store Store, ledger Ledger, cache Cache, registry *payments.Registry, audit Auditor, notify Notifier, currency string, logger *zap.Logger) *RefundProcessor {
	return &RefundProcessor{
		store:    store,
		ledger:   ledger,
		cache:    cache,
		registry: registry,
		audit:    audit,
		notify:   notify,
		currency: currency,
		logger:   logger,
	}
}

// Process validates and submits one refund. Validation happens entirely
// before any provider traffic: a zero or negative amount never leaves the
// process. Calls carrying a previously seen idempotency key return the
// original record without charging again.
func (p *RefundProcessor) Process(ctx context.Context, req RefundRequest) (*repository.RefundRecord, error) {
	const op = "process refund"

	actor := req.RequestedBy
	if actor == "" {
		actor = SystemActor
	}

	if strings.TrimSpace(req.Reason) == "" {
		return nil, E(op, req.OrderID, &RefundValidationError{
			OrderID: req.OrderID,
			Reason:  "reason is required",
		})
	}

	var cents int64
	if !req.Full {
		cents = payments.Cents(req.Amount)
		if cents <= 0 {
			return nil, E(op, req.OrderID, &RefundValidationError{
				OrderID: req.OrderID,
				Reason:  "amount must be greater than zero",
			})
		}
	}

	order, err := p.store.Get(ctx, req.OrderID)
	if err != nil {
		return nil, E(op, req.OrderID, err)
	}
	if order.Payment.Status != models.PaymentPaid && order.Payment.Status != models.PaymentPartiallyRefunded {
		return nil, E(op, req.OrderID, &RefundValidationError{
			OrderID: req.OrderID,
			Reason:  fmt.Sprintf("payment is %s, only captured payments can be refunded", order.Payment.Status),
		})
	}

	capturedCents := payments.Cents(order.Payment.Amount)
	refundedCents, err := p.ledger.RefundedCents(ctx, req.OrderID)
	if err != nil {
		return nil, E(op, req.OrderID, err)
	}
	remaining := capturedCents - refundedCents
	if remaining <= 0 {
		return nil, E(op, req.OrderID, &RefundValidationError{
			OrderID: req.OrderID,
			Reason:  "order is already fully refunded",
		})
	}

	if req.Full {
		cents = remaining
	} else {
		if cents >= capturedCents {
			return nil, E(op, req.OrderID, &RefundValidationError{
				OrderID: req.OrderID,
				Reason:  "partial refund must be less than the captured amount",
			})
		}
		if cents > remaining {
			return nil, E(op, req.OrderID, &RefundValidationError{
				OrderID: req.OrderID,
				Reason:  fmt.Sprintf("amount exceeds refundable balance of %s", formatCents(remaining)),
			})
		}
	}
	full := req.Full || refundedCents+cents == capturedCents

	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	} else {
		claimed, claimErr := p.cache.ClaimIdempotencyKey(ctx, key)
		if claimErr != nil {
			// Redis being down is not fatal; the ledger's unique key
			// still blocks duplicates.
			p.logger.Warn("idempotency claim failed", zap.String("key", key), zap.Error(claimErr))
		} else if !claimed {
			existing, getErr := p.ledger.GetRefundByKey(ctx, key)
			if getErr == nil {
				return existing, nil
			}
			if !errors.Is(getErr, repository.ErrNotFound) {
				return nil, E(op, req.OrderID, getErr)
			}
			// Claim without a record: an earlier attempt died before the
			// ledger write. Proceed as a fresh submission.
		}
	}

	provider, err := p.registry.For(order.Payment.Method)
	if err != nil {
		return nil, E(op, req.OrderID, &RefundValidationError{
			OrderID: req.OrderID,
			Reason:  fmt.Sprintf("payment method %s cannot be refunded here", order.Payment.Method),
		})
	}

	currency := order.Payment.Currency
	if currency == "" {
		currency = p.currency
	}

	result, err := provider.Refund(ctx, payments.RefundParams{
		TransactionID:  order.Payment.TransactionID,
		AmountCents:    cents,
		Currency:       currency,
		Reason:         req.Reason,
		IdempotencyKey: key,
	})
	if err != nil {
		if relErr := p.cache.ReleaseIdempotencyKey(ctx, key); relErr != nil {
			p.logger.Warn("idempotency release failed", zap.String("key", key), zap.Error(relErr))
		}
		return nil, E(op, req.OrderID, err)
	}

	record := &repository.RefundRecord{
		ID:             uuid.NewString(),
		OrderID:        req.OrderID,
		IdempotencyKey: key,
		ProviderRef:    result.ProviderRef,
		Method:         string(order.Payment.Method),
		AmountCents:    cents,
		Currency:       currency,
		Full:           full,
		Status:         repository.RefundSubmitted,
		Reason:         req.Reason,
		RequestedBy:    actor,
	}
	if err := p.ledger.CreateRefund(ctx, record); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			existing, getErr := p.ledger.GetRefundByKey(ctx, key)
			if getErr == nil {
				return existing, nil
			}
		}
		return nil, E(op, req.OrderID, err)
	}

	p.recordEvent(ctx, record, repository.EventRefundSubmitted)
	p.audit.Record(ctx, "order.refund_submitted", req.OrderID, actor, map[string]any{
		"refundId":    record.ID,
		"amountCents": cents,
		"full":        full,
	})
	p.logger.Info("refund submitted",
		zap.String("order_id", req.OrderID),
		zap.String("refund_id", record.ID),
		zap.Int64("amount_cents", cents),
		zap.Bool("full", full))

	// Some providers settle synchronously; finish those without waiting for
	// the reconciler.
	switch result.Status {
	case payments.RefundSucceeded:
		if err := p.Settle(ctx, record, time.Now()); err != nil {
			p.logger.Error("immediate settlement failed", zap.String("refund_id", record.ID), zap.Error(err))
			return record, nil
		}
	case payments.RefundRejected:
		if err := p.Fail(ctx, record, repository.RefundFailed); err != nil {
			p.logger.Error("refund failure handling failed", zap.String("refund_id", record.ID), zap.Error(err))
		}
	}
	return record, nil
}

// CheckSettlement asks the provider where a submitted refund stands, and
// counts the attempt.
func (p *RefundProcessor) CheckSettlement(ctx context.Context, record *repository.RefundRecord) (payments.RefundState, error) {
	provider, err := p.registry.For(models.PaymentMethod(record.Method))
	if err != nil {
		return "", E("check refund", record.OrderID, err)
	}
	state, err := provider.RefundStatus(ctx, record.ProviderRef)
	if pollErr := p.ledger.RecordPoll(ctx, record.ID, time.Now()); pollErr != nil {
		p.logger.Warn("poll bookkeeping failed", zap.String("refund_id", record.ID), zap.Error(pollErr))
	}
	if err != nil {
		return "", E("check refund", record.OrderID, err)
	}
	return state, nil
}

// Settle applies a confirmed refund: ledger row, order document, journal,
// caches and notifications. Full refunds close the order; partial refunds
// only mark the payment.
func (p *RefundProcessor) Settle(ctx context.Context, record *repository.RefundRecord, at time.Time) error {
	note := models.OrderNote{
		ID:                uuid.NewString(),
		Message:           refundNote(record),
		CreatedBy:         SystemActor,
		CreatedAt:         at,
		IsCustomerVisible: true,
	}
	order, err := p.store.ApplyRefund(ctx, record.OrderID, record.Full, at, note)
	if err != nil {
		return E("settle refund", record.OrderID, err)
	}
	if err := p.ledger.MarkSettled(ctx, record.ID, at); err != nil {
		return E("settle refund", record.OrderID, err)
	}
	record.Status = repository.RefundSettled
	record.SettledAt = &at

	p.recordEvent(ctx, record, repository.EventRefundSettled)
	if err := p.cache.CacheOrder(ctx, order); err != nil {
		p.logger.Warn("order cache write failed", zap.String("order_id", order.ID), zap.Error(err))
	}
	p.audit.Record(ctx, "order.refund_settled", record.OrderID, SystemActor, map[string]any{
		"refundId":    record.ID,
		"amountCents": record.AmountCents,
		"full":        record.Full,
	})
	p.notify.RefundSettled(order, record.AmountCents, record.Full)
	return nil
}

// Fail closes out a refund the provider rejected or the reconciler gave up
// on. The order keeps its captured payment state.
func (p *RefundProcessor) Fail(ctx context.Context, record *repository.RefundRecord, status repository.RefundStatus) error {
	if err := p.ledger.MarkFailed(ctx, record.ID, status); err != nil {
		return E("fail refund", record.OrderID, err)
	}
	record.Status = status

	p.recordEvent(ctx, record, repository.EventRefundFailed)
	note := models.OrderNote{
		ID:        uuid.NewString(),
		Message:   fmt.Sprintf("Refund of %s %s (%s)", formatCents(record.AmountCents), record.Currency, status),
		CreatedBy: SystemActor,
		CreatedAt: time.Now(),
	}
	if _, err := p.store.AppendNote(ctx, record.OrderID, note); err != nil {
		p.logger.Warn("refund failure note write failed", zap.String("order_id", record.OrderID), zap.Error(err))
	}
	p.notify.RefundFailed(record.OrderID, record.AmountCents)
	return nil
}

// Refunds lists the ledger rows for one order, newest first.
func (p *RefundProcessor) Refunds(ctx context.Context, orderID string) ([]repository.RefundRecord, error) {
	records, err := p.ledger.RefundsForOrder(ctx, orderID)
	if err != nil {
		return nil, E("list refunds", orderID, err)
	}
	return records, nil
}

func (p *RefundProcessor) recordEvent(ctx context.Context, record *repository.RefundRecord, eventType string) {
	event := &repository.PaymentEvent{
		OrderID:     record.OrderID,
		Type:        eventType,
		Method:      record.Method,
		AmountCents: record.AmountCents,
		Currency:    record.Currency,
		ProviderRef: record.ProviderRef,
		CreatedAt:   time.Now(),
	}
	if err := p.ledger.RecordEvent(ctx, event); err != nil {
		p.logger.Error("payment event write failed",
			zap.String("order_id", record.OrderID),
			zap.String("type", eventType),
			zap.Error(err))
	}
}

func refundNote(record *repository.RefundRecord) string {
	kind := "Partial refund"
	if record.Full {
		kind = "Refund"
	}
	return fmt.Sprintf("%s of %s %s settled", kind, formatCents(record.AmountCents), record.Currency)
}

func formatCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(decimal.NewFromInt(100)).StringFixed(2)
}
