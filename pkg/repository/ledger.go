package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type RefundStatus string

const (
	// RefundSubmitted means the provider accepted the refund and we are
	// waiting for settlement.
	RefundSubmitted RefundStatus = "submitted"
	RefundSettled   RefundStatus = "settled"
	RefundFailed    RefundStatus = "failed"
	// RefundStale marks refunds the reconciler gave up polling on.
	RefundStale RefundStatus = "stale"
)

// RefundRecord is the durable row behind every refund attempt. Amounts are
// integer minor units; floats never touch the ledger.
type RefundRecord struct {
	ID             string       `gorm:"primaryKey;size:36" json:"id"`
	OrderID        string       `gorm:"size:36;index" json:"orderId"`
	IdempotencyKey string       `gorm:"size:64;uniqueIndex" json:"idempotencyKey"`
	ProviderRef    string       `gorm:"size:128" json:"providerRef,omitempty"`
	Method         string       `gorm:"size:32" json:"method"`
	AmountCents    int64        `json:"amountCents"`
	Currency       string       `gorm:"size:3" json:"currency"`
	Full           bool         `json:"full"`
	Status         RefundStatus `gorm:"size:16;index" json:"status"`
	Reason         string       `gorm:"size:255" json:"reason,omitempty"`
	RequestedBy    string       `gorm:"size:64" json:"requestedBy"`
	Attempts       int          `json:"attempts"`
	LastCheckedAt  *time.Time   `json:"lastCheckedAt,omitempty"`
	SettledAt      *time.Time   `json:"settledAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// PaymentEvent is an append-only journal row feeding the revenue reports.
type PaymentEvent struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID     string    `gorm:"size:36;index" json:"orderId"`
	Type        string    `gorm:"size:32;index" json:"type"`
	Method      string    `gorm:"size:32" json:"method"`
	AmountCents int64     `json:"amountCents"`
	Currency    string    `gorm:"size:3" json:"currency"`
	ProviderRef string    `gorm:"size:128" json:"providerRef,omitempty"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
}

const (
	EventCapture         = "capture"
	EventRefundSubmitted = "refund_submitted"
	EventRefundSettled   = "refund_settled"
	EventRefundFailed    = "refund_failed"
)

type LedgerStore struct {
	db *gorm.DB
}

func NewLedgerStore(cfg *config.MySQLConfig) (*LedgerStore, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}
	if err := db.AutoMigrate(&RefundRecord{}, &PaymentEvent{}); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return &LedgerStore{db: db}, nil
}

// CreateRefund inserts the record; a duplicate idempotency key reports
// ErrConflict so the caller can return the original refund instead.
func (s *LedgerStore) CreateRefund(ctx context.Context, record *RefundRecord) error {
	err := s.db.WithContext(ctx).Create(record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("refund key %s: %w", record.IdempotencyKey, ErrConflict)
	}
	return err
}

func (s *LedgerStore) GetRefund(ctx context.Context, id string) (*RefundRecord, error) {
	var record RefundRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("refund %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *LedgerStore) GetRefundByKey(ctx context.Context, key string) (*RefundRecord, error) {
	var record RefundRecord
	err := s.db.WithContext(ctx).Where("idempotency_key = ?", key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("refund key %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *LedgerStore) RefundsForOrder(ctx context.Context, orderID string) ([]RefundRecord, error) {
	var records []RefundRecord
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		Find(&records).Error
	return records, err
}

// PendingRefunds returns submitted refunds oldest first for the reconciler.
func (s *LedgerStore) PendingRefunds(ctx context.Context, limit int) ([]RefundRecord, error) {
	var records []RefundRecord
	err := s.db.WithContext(ctx).
		Where("status = ?", RefundSubmitted).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	return records, err
}

func (s *LedgerStore) SetProviderRef(ctx context.Context, id, providerRef string) error {
	return s.db.WithContext(ctx).Model(&RefundRecord{}).
		Where("id = ?", id).
		Update("provider_ref", providerRef).Error
}

// RecordPoll bumps the attempt counter after each settlement check.
func (s *LedgerStore) RecordPoll(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&RefundRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts":        gorm.Expr("attempts + 1"),
			"last_checked_at": at,
		}).Error
}

func (s *LedgerStore) MarkSettled(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&RefundRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     RefundSettled,
			"settled_at": at,
		}).Error
}

func (s *LedgerStore) MarkFailed(ctx context.Context, id string, status RefundStatus) error {
	return s.db.WithContext(ctx).Model(&RefundRecord{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// RefundedCents sums every refund for the order that is not failed, so
// partial refund validation counts in-flight amounts too.
func (s *LedgerStore) RefundedCents(ctx context.Context, orderID string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&RefundRecord{}).
		Select("COALESCE(SUM(amount_cents), 0)").
		Where("order_id = ? AND status IN ?", orderID, []RefundStatus{RefundSubmitted, RefundSettled}).
		Scan(&total).Error
	return total, err
}

func (s *LedgerStore) RecordEvent(ctx context.Context, event *PaymentEvent) error {
	return s.db.WithContext(ctx).Create(event).Error
}

type RevenueSummary struct {
	CapturedCents int64 `json:"capturedCents"`
	Captures      int64 `json:"captures"`
	RefundedCents int64 `json:"refundedCents"`
	Refunds       int64 `json:"refunds"`
}

func (s *LedgerStore) Revenue(ctx context.Context, since time.Time) (*RevenueSummary, error) {
	var summary RevenueSummary
	row := s.db.WithContext(ctx).Model(&PaymentEvent{}).
		Select("COALESCE(SUM(amount_cents), 0) AS captured_cents, COUNT(*) AS captures").
		Where("type = ? AND created_at >= ?", EventCapture, since)
	if err := row.Scan(&summary).Error; err != nil {
		return nil, err
	}

	var refunds struct {
		RefundedCents int64
		Refunds       int64
	}
	err := s.db.WithContext(ctx).Model(&PaymentEvent{}).
		Select("COALESCE(SUM(amount_cents), 0) AS refunded_cents, COUNT(*) AS refunds").
		Where("type = ? AND created_at >= ?", EventRefundSettled, since).
		Scan(&refunds).Error
	if err != nil {
		return nil, err
	}
	summary.RefundedCents = refunds.RefundedCents
	summary.Refunds = refunds.Refunds
	return &summary, nil
}

type RevenueBucket struct {
	Day           string `json:"day"`
	CapturedCents int64  `json:"capturedCents"`
	Captures      int64  `json:"captures"`
}

// DailyRevenue groups captures by calendar day for the dashboard chart.
func (s *LedgerStore) DailyRevenue(ctx context.Context, since time.Time) ([]RevenueBucket, error) {
	var buckets []RevenueBucket
	err := s.db.WithContext(ctx).Model(&PaymentEvent{}).
		Select("DATE(created_at) AS day, COALESCE(SUM(amount_cents), 0) AS captured_cents, COUNT(*) AS captures").
		Where("type = ? AND created_at >= ?", EventCapture, since).
		Group("DATE(created_at)").
		Order("day ASC").
		Scan(&buckets).Error
	return buckets, err
}
