package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/go-redis/redis/v8"
)

// fakeSource implements Source with overridable behavior per call.
type fakeSource struct {
	name         string
	getFn        func(ctx context.Context, id string) (*models.Order, error)
	setStatusFn  func(ctx context.Context, id string, to models.OrderStatus, note models.OrderNote, revision int64) (*models.Order, error)
	appendNoteFn func(ctx context.Context, id string, note models.OrderNote) (*models.Order, error)

	getCalls        int
	setStatusCalls  int
	appendNoteCalls int
}

func (f *fakeSource) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeSource) Get(ctx context.Context, id string) (*models.Order, error) {
	f.getCalls++
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSource) SetStatus(ctx context.Context, id string, to models.OrderStatus, note models.OrderNote, revision int64) (*models.Order, error) {
	f.setStatusCalls++
	if f.setStatusFn != nil {
		return f.setStatusFn(ctx, id, to, note, revision)
	}
	return nil, repository.ErrNotFound
}

func (f *fakeSource) AppendNote(ctx context.Context, id string, note models.OrderNote) (*models.Order, error) {
	f.appendNoteCalls++
	if f.appendNoteFn != nil {
		return f.appendNoteFn(ctx, id, note)
	}
	return nil, repository.ErrNotFound
}

type appliedRefund struct {
	orderID string
	full    bool
	note    models.OrderNote
}

// fakeStore implements Store. Unset functions record the call and succeed
// where that makes sense, or report not found.
type fakeStore struct {
	getFn      func(ctx context.Context, id string) (*models.Order, error)
	insertFn   func(ctx context.Context, order *models.Order) error
	markPaidFn func(ctx context.Context, id, transactionID string, amount float64, currency string, paidAt time.Time, note models.OrderNote) (*models.Order, error)

	inserted       []*models.Order
	deleted        []string
	appliedRefunds []appliedRefund
	appendedNotes  []models.OrderNote
}

func (f *fakeStore) Get(ctx context.Context, id string) (*models.Order, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) Insert(ctx context.Context, order *models.Order) error {
	f.inserted = append(f.inserted, order)
	if f.insertFn != nil {
		return f.insertFn(ctx, order)
	}
	return nil
}

func (f *fakeStore) List(ctx context.Context, q repository.OrderQuery) ([]models.Order, int64, error) {
	return nil, 0, nil
}

func (f *fakeStore) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) MarkPaid(ctx context.Context, id, transactionID string, amount float64, currency string, paidAt time.Time, note models.OrderNote) (*models.Order, error) {
	if f.markPaidFn != nil {
		return f.markPaidFn(ctx, id, transactionID, amount, currency, paidAt, note)
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) ApplyRefund(ctx context.Context, id string, full bool, settledAt time.Time, note models.OrderNote) (*models.Order, error) {
	f.appliedRefunds = append(f.appliedRefunds, appliedRefund{orderID: id, full: full, note: note})
	order := &models.Order{ID: id, Status: models.StatusRefunded}
	order.Payment.Status = models.PaymentRefunded
	if !full {
		order.Status = models.StatusDelivered
		order.Payment.Status = models.PaymentPartiallyRefunded
	}
	return order, nil
}

func (f *fakeStore) AppendNote(ctx context.Context, id string, note models.OrderNote) (*models.Order, error) {
	f.appendedNotes = append(f.appendedNotes, note)
	return &models.Order{ID: id, Notes: []models.OrderNote{note}}, nil
}

// fakeCache implements Cache in memory. Misses surface as redis.Nil, the
// same sentinel the real repository returns.
type fakeCache struct {
	orders     map[string]*models.Order
	lastOrders map[string]string
	claims     map[string]bool

	claimErr error
	released []string
}

func (f *fakeCache) CacheOrder(ctx context.Context, order *models.Order) error {
	if f.orders == nil {
		f.orders = make(map[string]*models.Order)
	}
	f.orders[order.ID] = order
	return nil
}

func (f *fakeCache) GetCachedOrder(ctx context.Context, orderID string) (*models.Order, error) {
	if order, ok := f.orders[orderID]; ok {
		return order, nil
	}
	return nil, redis.Nil
}

func (f *fakeCache) InvalidateOrder(ctx context.Context, orderID string) error {
	delete(f.orders, orderID)
	return nil
}

func (f *fakeCache) SetLastOrder(ctx context.Context, customerID, orderID string) error {
	if f.lastOrders == nil {
		f.lastOrders = make(map[string]string)
	}
	f.lastOrders[customerID] = orderID
	return nil
}

func (f *fakeCache) GetLastOrder(ctx context.Context, customerID string) (string, error) {
	if orderID, ok := f.lastOrders[customerID]; ok {
		return orderID, nil
	}
	return "", redis.Nil
}

func (f *fakeCache) ClaimIdempotencyKey(ctx context.Context, key string) (bool, error) {
	if f.claimErr != nil {
		return false, f.claimErr
	}
	if f.claims == nil {
		f.claims = make(map[string]bool)
	}
	if f.claims[key] {
		return false, nil
	}
	f.claims[key] = true
	return true, nil
}

func (f *fakeCache) ReleaseIdempotencyKey(ctx context.Context, key string) error {
	delete(f.claims, key)
	f.released = append(f.released, key)
	return nil
}

// fakeLedger implements Ledger over plain maps.
type fakeLedger struct {
	mu       sync.Mutex
	records  map[string]*repository.RefundRecord
	byKey    map[string]*repository.RefundRecord
	refunded map[string]int64
	events   []repository.PaymentEvent

	createErr error
}

func (f *fakeLedger) add(record *repository.RefundRecord) {
	if f.records == nil {
		f.records = make(map[string]*repository.RefundRecord)
		f.byKey = make(map[string]*repository.RefundRecord)
	}
	f.records[record.ID] = record
	f.byKey[record.IdempotencyKey] = record
}

func (f *fakeLedger) CreateRefund(ctx context.Context, record *repository.RefundRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.byKey[record.IdempotencyKey]; exists {
		return repository.ErrConflict
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}
	f.add(record)
	return nil
}

func (f *fakeLedger) GetRefundByKey(ctx context.Context, key string) (*repository.RefundRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.byKey[key]; ok {
		return record, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeLedger) RefundsForOrder(ctx context.Context, orderID string) ([]repository.RefundRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.RefundRecord
	for _, record := range f.records {
		if record.OrderID == orderID {
			out = append(out, *record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeLedger) PendingRefunds(ctx context.Context, limit int) ([]repository.RefundRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []repository.RefundRecord
	for _, record := range f.records {
		if record.Status == repository.RefundSubmitted {
			out = append(out, *record)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeLedger) RecordPoll(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[id]; ok {
		record.Attempts++
		record.LastCheckedAt = &at
	}
	return nil
}

func (f *fakeLedger) MarkSettled(ctx context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[id]; ok {
		record.Status = repository.RefundSettled
		record.SettledAt = &at
	}
	return nil
}

func (f *fakeLedger) MarkFailed(ctx context.Context, id string, status repository.RefundStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[id]; ok {
		record.Status = status
	}
	return nil
}

func (f *fakeLedger) RefundedCents(ctx context.Context, orderID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.refunded[orderID], nil
}

func (f *fakeLedger) RecordEvent(ctx context.Context, event *repository.PaymentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *event)
	return nil
}

func (f *fakeLedger) statusOf(id string) repository.RefundStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[id]; ok {
		return record.Status
	}
	return ""
}

type auditEntry struct {
	action   string
	entityID string
	actor    string
	data     map[string]any
}

type fakeAuditor struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (f *fakeAuditor) Record(ctx context.Context, action, entityID, actor string, data map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, auditEntry{action: action, entityID: entityID, actor: actor, data: data})
}

func (f *fakeAuditor) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.action
	}
	return out
}

type settledEvent struct {
	cents int64
	full  bool
}

type fakeNotifier struct {
	created       int
	statusChanges []models.OrderStatus
	captured      []int64
	settled       []settledEvent
	failed        []int64
}

func (f *fakeNotifier) OrderCreated(order *models.Order) { f.created++ }

func (f *fakeNotifier) StatusChanged(order *models.Order, from models.OrderStatus) {
	f.statusChanges = append(f.statusChanges, from)
}

func (f *fakeNotifier) PaymentCaptured(order *models.Order, amountCents int64) {
	f.captured = append(f.captured, amountCents)
}

func (f *fakeNotifier) RefundSettled(order *models.Order, amountCents int64, full bool) {
	f.settled = append(f.settled, settledEvent{cents: amountCents, full: full})
}

func (f *fakeNotifier) RefundFailed(orderID string, amountCents int64) {
	f.failed = append(f.failed, amountCents)
}

// fakeProvider implements payments.Provider for refund-path tests.
type fakeProvider struct {
	method         models.PaymentMethod
	refundFn       func(ctx context.Context, p payments.RefundParams) (*payments.RefundResult, error)
	refundStatusFn func(ctx context.Context, providerRef string) (payments.RefundState, error)

	refundCalls int
	statusCalls int
	lastRefund  payments.RefundParams
}

func (f *fakeProvider) Method() models.PaymentMethod {
	if f.method == "" {
		return models.MethodCard
	}
	return f.method
}

func (f *fakeProvider) CreateSession(ctx context.Context, p payments.SessionParams) (*payments.Session, error) {
	return &payments.Session{ProviderRef: "sess-ref"}, nil
}

func (f *fakeProvider) Capture(ctx context.Context, providerRef string) (*payments.Capture, error) {
	return &payments.Capture{TransactionID: "txn-ref", CapturedAt: time.Now()}, nil
}

func (f *fakeProvider) Cancel(ctx context.Context, providerRef string) error { return nil }

func (f *fakeProvider) Refund(ctx context.Context, p payments.RefundParams) (*payments.RefundResult, error) {
	f.refundCalls++
	f.lastRefund = p
	if f.refundFn != nil {
		return f.refundFn(ctx, p)
	}
	return &payments.RefundResult{ProviderRef: "ref-1", Status: payments.RefundPending}, nil
}

func (f *fakeProvider) RefundStatus(ctx context.Context, providerRef string) (payments.RefundState, error) {
	f.statusCalls++
	if f.refundStatusFn != nil {
		return f.refundStatusFn(ctx, providerRef)
	}
	return payments.RefundPending, nil
}
