package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/auth"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
)

// memBackend is the in-memory world the handler tests run against. It stands
// in for mongo, redis and the ledger at once so requests exercise the real
// services end to end.
type memBackend struct {
	mu sync.Mutex

	orders   map[string]*models.Order
	cached   map[string]*models.Order
	last     map[string]string
	claims   map[string]bool
	sessions map[string]*repository.CheckoutSession
	active   map[string]string
	refunds  []*repository.RefundRecord
	refunded map[string]int64
	events   []repository.PaymentEvent
	tokens   map[string]*repository.TokenPrincipal
	roles    map[string]*models.Role

	failReads error

	listQuery *repository.OrderQuery
	audits    []string
	stock     []string
	captured  []int64
}

func newMemBackend() *memBackend {
	return &memBackend{
		orders:   map[string]*models.Order{},
		cached:   map[string]*models.Order{},
		last:     map[string]string{},
		claims:   map[string]bool{},
		sessions: map[string]*repository.CheckoutSession{},
		active:   map[string]string{},
		refunded: map[string]int64{},
		tokens:   map[string]*repository.TokenPrincipal{},
		roles:    map[string]*models.Role{},
	}
}

func cloneOrder(o *models.Order) *models.Order {
	cp := *o
	cp.Items = append([]models.LineItem(nil), o.Items...)
	cp.Notes = append([]models.OrderNote(nil), o.Notes...)
	return &cp
}

// orders.Source

func (b *memBackend) Name() string { return "store" }

func (b *memBackend) Get(_ context.Context, id string) (*models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failReads != nil {
		return nil, b.failReads
	}
	o, ok := b.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (b *memBackend) SetStatus(_ context.Context, id string, to models.OrderStatus, note models.OrderNote, _ int64) (*models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Status = to
	o.Notes = append(o.Notes, note)
	o.Revision++
	return cloneOrder(o), nil
}

func (b *memBackend) AppendNote(_ context.Context, id string, note models.OrderNote) (*models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Notes = append(o.Notes, note)
	o.Revision++
	return cloneOrder(o), nil
}

// orders.Store

func (b *memBackend) Insert(_ context.Context, order *models.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.orders[order.ID] = cloneOrder(order)
	return nil
}

func (b *memBackend) List(_ context.Context, q repository.OrderQuery) ([]models.Order, int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listQuery = &q
	ids := make([]string, 0, len(b.orders))
	for id := range b.orders {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]models.Order, 0, len(ids))
	for _, id := range ids {
		out = append(out, *cloneOrder(b.orders[id]))
	}
	return out, int64(len(out)), nil
}

func (b *memBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.orders[id]; !ok {
		return repository.ErrNotFound
	}
	delete(b.orders, id)
	return nil
}

func (b *memBackend) MarkPaid(_ context.Context, id, transactionID string, amount float64, currency string, paidAt time.Time, note models.OrderNote) (*models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	o.Payment.Status = models.PaymentPaid
	o.Payment.TransactionID = transactionID
	o.Payment.Amount = amount
	o.Payment.Currency = currency
	o.Payment.PaidAt = &paidAt
	o.Notes = append(o.Notes, note)
	o.Revision++
	return cloneOrder(o), nil
}

func (b *memBackend) ApplyRefund(_ context.Context, id string, full bool, settledAt time.Time, note models.OrderNote) (*models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if full {
		o.Status = models.StatusRefunded
		o.Payment.Status = models.PaymentRefunded
	} else {
		o.Payment.Status = models.PaymentPartiallyRefunded
	}
	o.Payment.RefundedAt = &settledAt
	o.Notes = append(o.Notes, note)
	o.Revision++
	return cloneOrder(o), nil
}

// payments.OrderStore

func (b *memBackend) SetPaymentMethod(_ context.Context, id string, method models.PaymentMethod) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[id]
	if !ok {
		return repository.ErrNotFound
	}
	o.Payment.Method = method
	return nil
}

// orders.Cache

func (b *memBackend) CacheOrder(_ context.Context, order *models.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cached[order.ID] = cloneOrder(order)
	return nil
}

func (b *memBackend) GetCachedOrder(_ context.Context, orderID string) (*models.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.cached[orderID]
	if !ok {
		return nil, redis.Nil
	}
	return cloneOrder(o), nil
}

func (b *memBackend) InvalidateOrder(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.cached, orderID)
	return nil
}

func (b *memBackend) SetLastOrder(_ context.Context, customerID, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last[customerID] = orderID
	return nil
}

func (b *memBackend) GetLastOrder(_ context.Context, customerID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.last[customerID]
	if !ok {
		return "", redis.Nil
	}
	return id, nil
}

func (b *memBackend) ClaimIdempotencyKey(_ context.Context, key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.claims[key] {
		return false, nil
	}
	b.claims[key] = true
	return true, nil
}

func (b *memBackend) ReleaseIdempotencyKey(_ context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.claims, key)
	return nil
}

// payments.SessionStore

func (b *memBackend) SaveSession(_ context.Context, session *repository.CheckoutSession) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *session
	b.sessions[session.ID] = &cp
	return nil
}

func (b *memBackend) GetSession(_ context.Context, sessionID string) (*repository.CheckoutSession, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.sessions[sessionID]
	if !ok {
		return nil, redis.Nil
	}
	cp := *s
	return &cp, nil
}

func (b *memBackend) SetActiveSession(_ context.Context, orderID, sessionID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active[orderID] = sessionID
	return nil
}

func (b *memBackend) ActiveSession(_ context.Context, orderID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.active[orderID]
	if !ok {
		return "", redis.Nil
	}
	return id, nil
}

func (b *memBackend) ClearActiveSession(_ context.Context, orderID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.active, orderID)
	return nil
}

// orders.Ledger and payments.EventRecorder

func (b *memBackend) CreateRefund(_ context.Context, record *repository.RefundRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.refunds {
		if existing.IdempotencyKey == record.IdempotencyKey {
			return repository.ErrConflict
		}
	}
	cp := *record
	b.refunds = append(b.refunds, &cp)
	return nil
}

func (b *memBackend) GetRefundByKey(_ context.Context, key string) (*repository.RefundRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.refunds {
		if r.IdempotencyKey == key {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (b *memBackend) RefundsForOrder(_ context.Context, orderID string) ([]repository.RefundRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []repository.RefundRecord
	for _, r := range b.refunds {
		if r.OrderID == orderID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (b *memBackend) PendingRefunds(_ context.Context, limit int) ([]repository.RefundRecord, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []repository.RefundRecord
	for _, r := range b.refunds {
		if r.Status == repository.RefundSubmitted && len(out) < limit {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (b *memBackend) RecordPoll(_ context.Context, id string, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.refunds {
		if r.ID == id {
			r.Attempts++
			r.LastCheckedAt = &at
		}
	}
	return nil
}

func (b *memBackend) MarkSettled(_ context.Context, id string, at time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.refunds {
		if r.ID == id {
			r.Status = repository.RefundSettled
			r.SettledAt = &at
		}
	}
	return nil
}

func (b *memBackend) MarkFailed(_ context.Context, id string, status repository.RefundStatus) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.refunds {
		if r.ID == id {
			r.Status = status
		}
	}
	return nil
}

func (b *memBackend) RefundedCents(_ context.Context, orderID string) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refunded[orderID], nil
}

func (b *memBackend) RecordEvent(_ context.Context, event *repository.PaymentEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, *event)
	return nil
}

// orders.Auditor

func (b *memBackend) Record(_ context.Context, action, _, _ string, _ map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audits = append(b.audits, action)
}

// orders.Notifier

func (b *memBackend) OrderCreated(*models.Order) {}

func (b *memBackend) StatusChanged(*models.Order, models.OrderStatus) {}

func (b *memBackend) PaymentCaptured(_ *models.Order, amountCents int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.captured = append(b.captured, amountCents)
}

func (b *memBackend) RefundSettled(*models.Order, int64, bool) {}

func (b *memBackend) RefundFailed(string, int64) {}

// auth.TokenCache

func (b *memBackend) CacheToken(_ context.Context, key string, principal *repository.TokenPrincipal, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tokens[key] = principal
	return nil
}

func (b *memBackend) GetCachedToken(_ context.Context, key string) (*repository.TokenPrincipal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if p, ok := b.tokens[key]; ok {
		return p, nil
	}
	return nil, redis.Nil
}

// auth.RoleSource

func (b *memBackend) GetByName(_ context.Context, name string) (*models.Role, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if role, ok := b.roles[name]; ok {
		return role, nil
	}
	return nil, repository.ErrNotFound
}

// payments.StockAdjuster

func (b *memBackend) CommitOrderStock(_ context.Context, order *models.Order) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stock = append(b.stock, order.ID)
	return nil
}

// apiProvider is the payment backend the checkout and refund routes hit.
type apiProvider struct {
	method     models.PaymentMethod
	captureErr error
	lastRefund *payments.RefundParams
	refunds    int
}

func (p *apiProvider) Method() models.PaymentMethod {
	if p.method == "" {
		return models.MethodCard
	}
	return p.method
}

func (p *apiProvider) CreateSession(_ context.Context, _ payments.SessionParams) (*payments.Session, error) {
	return &payments.Session{ProviderRef: "prov-1", ClientSecret: "cs_test_1"}, nil
}

func (p *apiProvider) Capture(_ context.Context, _ string) (*payments.Capture, error) {
	if p.captureErr != nil {
		return nil, p.captureErr
	}
	return &payments.Capture{TransactionID: "txn-1", CapturedAt: time.Now()}, nil
}

func (p *apiProvider) Cancel(_ context.Context, _ string) error { return nil }

func (p *apiProvider) Refund(_ context.Context, params payments.RefundParams) (*payments.RefundResult, error) {
	p.refunds++
	cp := params
	p.lastRefund = &cp
	return &payments.RefundResult{ProviderRef: "re_1", Status: payments.RefundPending}, nil
}

func (p *apiProvider) RefundStatus(_ context.Context, _ string) (payments.RefundState, error) {
	return payments.RefundPending, nil
}

const (
	adminToken   = "admin-token"
	supportToken = "support-token"
)

type apiFixture struct {
	t        *testing.T
	backend  *memBackend
	provider *apiProvider
	handler  http.Handler
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	backend := newMemBackend()
	backend.roles["support"] = &models.Role{
		Name:        "support",
		Permissions: []string{"orders:read", "orders:write"},
	}

	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer " + adminToken:
			fmt.Fprint(w, `{"sub":"usr-admin","email":"admin@shop.test","role":"admin","expiresIn":600}`)
		case "Bearer " + supportToken:
			fmt.Fprint(w, `{"sub":"usr-support","email":"support@shop.test","role":"support","expiresIn":600}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
	t.Cleanup(identity.Close)

	cfg := &config.Config{
		Server: config.ServerConfig{Name: "commerce-api-test"},
		Auth: config.AuthConfig{
			IdentityBaseURL: identity.URL,
			TokenCacheTTL:   time.Minute,
			CSRFKey:         "0123456789abcdef0123456789abcdef",
			CSRFSecure:      false,
		},
	}

	logger := zap.NewNop()
	provider := &apiProvider{}
	registry := payments.NewRegistry(provider)

	ordersSvc := orders.NewService(backend, backend, backend, backend, backend, logger)
	refundSvc := orders.NewRefundProcessor(backend, backend, backend, registry, backend, backend, "USD", logger)
	checkoutSvc := payments.NewService(registry, backend, backend, backend, ordersSvc, backend, "USD", logger)

	verifier := auth.NewVerifier(&cfg.Auth, backend, backend, logger)

	srv := NewServer(cfg, logger, verifier, Services{
		Orders:   ordersSvc,
		Refunds:  refundSvc,
		Checkout: checkoutSvc,
	})
	srv.SetupRoutes()

	return &apiFixture{
		t:        t,
		backend:  backend,
		provider: provider,
		handler:  srv.Handler(),
	}
}

// do runs one request through the full middleware stack. body may be nil, a
// raw JSON string, or a value to marshal.
func (f *apiFixture) do(method, path string, body any, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	f.t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		data, err := json.Marshal(v)
		require.NoError(f.t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func asUser(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// withCSRF fetches a fresh token pair and applies it to the request.
func (f *apiFixture) withCSRF() func(*http.Request) {
	f.t.Helper()
	rec := f.do(http.MethodGet, "/api/auth/csrf", nil)
	require.Equal(f.t, http.StatusOK, rec.Code)
	token, _ := decodeJSON(f.t, rec)["csrfToken"].(string)
	require.NotEmpty(f.t, token)
	cookies := rec.Result().Cookies()
	require.NotEmpty(f.t, cookies)
	return func(r *http.Request) {
		r.Header.Set("X-CSRF-Token", token)
		for _, c := range cookies {
			r.AddCookie(c)
		}
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), "body: %s", rec.Body.String())
	return body
}

func child(t *testing.T, m map[string]any, key string) map[string]any {
	t.Helper()
	v, ok := m[key].(map[string]any)
	require.True(t, ok, "missing object %q in %v", key, m)
	return v
}

func seedOrder(b *memBackend, id string, status models.OrderStatus) *models.Order {
	order := &models.Order{
		ID:            id,
		OrderNumber:   "ORD-20260301-0007",
		CustomerID:    "cust-1",
		CustomerName:  "Jo Doe",
		CustomerEmail: "jo@example.com",
		Status:        status,
		Items: []models.LineItem{
			{ProductID: "prod-1", SKU: "MUG-M", Name: "Mug", Price: 19.99, Quantity: 2, Subtotal: 39.98},
		},
		Subtotal: 39.98,
		Tax:      3.00,
		Total:    50.48,
		Payment: models.PaymentRecord{
			Method:   models.MethodCard,
			Status:   models.PaymentPending,
			Currency: "USD",
		},
		Revision:  1,
		CreatedAt: time.Now().Add(-time.Hour),
	}
	b.orders[id] = order
	return order
}

func seedPaidOrder(b *memBackend, id string) *models.Order {
	order := seedOrder(b, id, models.StatusDelivered)
	order.Payment.Status = models.PaymentPaid
	order.Payment.Amount = 100.00
	order.Payment.TransactionID = "ch_100"
	return order
}
