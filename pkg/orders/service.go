package orders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/payments"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SystemActor is recorded on writes that arrive without an authenticated
// admin, such as storefront and reconciler activity.
const SystemActor = "system"

// Auditor records admin-facing activity. Implementations must not block the
// calling request.
type Auditor interface {
	Record(ctx context.Context, action, entityID, actor string, data map[string]any)
}

// Notifier fans events out to the notification pipeline.
type Notifier interface {
	OrderCreated(order *models.Order)
	StatusChanged(order *models.Order, from models.OrderStatus)
	PaymentCaptured(order *models.Order, amountCents int64)
	RefundSettled(order *models.Order, amountCents int64, full bool)
	RefundFailed(orderID string, amountCents int64)
}

// Store is the slice of the order collection the services write through.
// *repository.OrderStore satisfies it.
type Store interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	Insert(ctx context.Context, order *models.Order) error
	List(ctx context.Context, q repository.OrderQuery) ([]models.Order, int64, error)
	Delete(ctx context.Context, id string) error
	MarkPaid(ctx context.Context, id, transactionID string, amount float64, currency string, paidAt time.Time, note models.OrderNote) (*models.Order, error)
	ApplyRefund(ctx context.Context, id string, full bool, settledAt time.Time, note models.OrderNote) (*models.Order, error)
	AppendNote(ctx context.Context, id string, note models.OrderNote) (*models.Order, error)
}

// Cache is the lookaside used for order documents, last-order pointers and
// refund idempotency claims. All of it is advisory; a miss or an error falls
// through to the backing store.
type Cache interface {
	CacheOrder(ctx context.Context, order *models.Order) error
	GetCachedOrder(ctx context.Context, orderID string) (*models.Order, error)
	InvalidateOrder(ctx context.Context, orderID string) error
	SetLastOrder(ctx context.Context, customerID, orderID string) error
	GetLastOrder(ctx context.Context, customerID string) (string, error)
	ClaimIdempotencyKey(ctx context.Context, key string) (bool, error)
	ReleaseIdempotencyKey(ctx context.Context, key string) error
}

type Service struct {
	source Source
	store  Store
	cache  Cache
	audit  Auditor
	notify Notifier
	logger *zap.Logger
}

func NewService(source Source, store Store, cache Cache, audit Auditor, notify Notifier, logger *zap.Logger) *Service {
	return &Service{
		source: source,
		store:  store,
		cache:  cache,
		audit:  audit,
		notify: notify,
		logger: logger,
	}
}

// GetOrder serves reads cache-first, then through the composed source.
func (s *Service) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	if id == "" {
		return nil, E("get order", id, &ValidationError{Field: "id", Reason: "required"})
	}

	if cached, err := s.cache.GetCachedOrder(ctx, id); err == nil {
		return cached, nil
	} else if !repository.IsCacheMiss(err) {
		s.logger.Warn("order cache read failed", zap.String("order_id", id), zap.Error(err))
	}

	order, err := s.source.Get(ctx, id)
	if err != nil {
		return nil, E("get order", id, err)
	}
	if err := s.cache.CacheOrder(ctx, order); err != nil {
		s.logger.Warn("order cache write failed", zap.String("order_id", id), zap.Error(err))
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, q repository.OrderQuery) ([]models.Order, int64, error) {
	if q.Status != "" && !q.Status.Valid() {
		return nil, 0, E("list orders", "", &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", q.Status)})
	}
	items, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, 0, E("list orders", "", err)
	}
	return items, total, nil
}

// CreateOrder assigns identity and totals to a storefront draft and persists
// it in pending state.
func (s *Service) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if len(order.Items) == 0 {
		return nil, E("create order", "", &ValidationError{Field: "items", Reason: "order needs at least one item"})
	}
	if order.CustomerEmail == "" {
		return nil, E("create order", "", &ValidationError{Field: "customerEmail", Reason: "required"})
	}

	order.ID = uuid.NewString()
	order.OrderNumber = newOrderNumber()
	order.Status = models.StatusPending
	order.Payment.Status = models.PaymentPending
	order.Revision = 1
	order.Recalculate()

	if err := s.store.Insert(ctx, order); err != nil {
		return nil, E("create order", order.ID, err)
	}

	if order.CustomerID != "" {
		if err := s.cache.SetLastOrder(ctx, order.CustomerID, order.ID); err != nil {
			s.logger.Warn("last-order cache write failed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	s.audit.Record(ctx, "order.created", order.ID, SystemActor, map[string]any{
		"orderNumber": order.OrderNumber,
		"total":       order.Total,
	})
	s.notify.OrderCreated(order)
	return order, nil
}

// UpdateStatus validates the move against the transition table and applies
// it with a revision precondition. The change always lands together with a
// note describing it.
func (s *Service) UpdateStatus(ctx context.Context, id string, to models.OrderStatus, noteText, actor string) (*models.Order, error) {
	const op = "update status"
	if !to.Valid() {
		return nil, E(op, id, &ValidationError{Field: "status", Reason: fmt.Sprintf("unknown status %q", to)})
	}
	if actor == "" {
		actor = SystemActor
	}

	order, err := s.source.Get(ctx, id)
	if err != nil {
		return nil, E(op, id, err)
	}
	if !models.CanTransition(order.Status, to) {
		return nil, E(op, id, &TransitionError{OrderID: id, From: order.Status, To: to})
	}

	note := models.OrderNote{
		ID:                uuid.NewString(),
		Message:           statusNote(order.Status, to, noteText),
		CreatedBy:         actor,
		CreatedAt:         time.Now(),
		IsCustomerVisible: true,
	}

	updated, err := s.source.SetStatus(ctx, id, to, note, order.Revision)
	if err != nil {
		return nil, E(op, id, err)
	}

	s.recache(ctx, updated)
	s.audit.Record(ctx, "order.status_changed", id, actor, map[string]any{
		"from": order.Status,
		"to":   to,
	})
	s.notify.StatusChanged(updated, order.Status)
	return updated, nil
}

// AddNote appends to the order's note ledger. Notes are append-only; there
// is no edit or delete path.
func (s *Service) AddNote(ctx context.Context, id, message string, customerVisible bool, actor string) (*models.Order, error) {
	const op = "add note"
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, E(op, id, &ValidationError{Field: "message", Reason: "required"})
	}
	if actor == "" {
		actor = SystemActor
	}

	note := models.OrderNote{
		ID:                uuid.NewString(),
		Message:           message,
		CreatedBy:         actor,
		CreatedAt:         time.Now(),
		IsCustomerVisible: customerVisible,
	}

	updated, err := s.source.AppendNote(ctx, id, note)
	if err != nil {
		return nil, E(op, id, err)
	}

	s.recache(ctx, updated)
	s.audit.Record(ctx, "order.note_added", id, actor, map[string]any{
		"visible": customerVisible,
	})
	return updated, nil
}

func (s *Service) DeleteOrder(ctx context.Context, id, actor string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return E("delete order", id, err)
	}
	if err := s.cache.InvalidateOrder(ctx, id); err != nil {
		s.logger.Warn("order cache invalidation failed", zap.String("order_id", id), zap.Error(err))
	}
	s.audit.Record(ctx, "order.deleted", id, actor, nil)
	return nil
}

// MarkPaid records a successful capture and advances the order to
// processing. The amount comes from the checkout session in cents, so the
// stored payment matches what the provider actually charged.
func (s *Service) MarkPaid(ctx context.Context, id, transactionID string, amountCents int64, currency string, paidAt time.Time) (*models.Order, error) {
	note := models.OrderNote{
		ID:                uuid.NewString(),
		Message:           fmt.Sprintf("Payment captured (transaction %s)", transactionID),
		CreatedBy:         SystemActor,
		CreatedAt:         time.Now(),
		IsCustomerVisible: true,
	}
	amount := payments.Major(amountCents)
	updated, err := s.store.MarkPaid(ctx, id, transactionID, amount, currency, paidAt, note)
	if err != nil {
		return nil, E("mark paid", id, err)
	}

	s.recache(ctx, updated)
	if updated.CustomerID != "" {
		if err := s.cache.SetLastOrder(ctx, updated.CustomerID, updated.ID); err != nil {
			s.logger.Warn("last-order cache write failed", zap.String("order_id", updated.ID), zap.Error(err))
		}
	}
	s.audit.Record(ctx, "order.paid", id, SystemActor, map[string]any{
		"transactionId": transactionID,
		"amountCents":   amountCents,
	})
	s.notify.PaymentCaptured(updated, amountCents)
	return updated, nil
}

// LastOrder resolves the customer's most recent order for the storefront
// confirmation page.
func (s *Service) LastOrder(ctx context.Context, customerID string) (*models.Order, error) {
	orderID, err := s.cache.GetLastOrder(ctx, customerID)
	if err != nil {
		if repository.IsCacheMiss(err) {
			return nil, E("last order", "", fmt.Errorf("customer %s: %w", customerID, repository.ErrNotFound))
		}
		return nil, E("last order", "", err)
	}
	return s.GetOrder(ctx, orderID)
}

func (s *Service) recache(ctx context.Context, order *models.Order) {
	if err := s.cache.CacheOrder(ctx, order); err != nil {
		s.logger.Warn("order cache write failed", zap.String("order_id", order.ID), zap.Error(err))
	}
}

// statusNote uses the operator's note verbatim when one was supplied and
// falls back to an auto-generated description of the move.
func statusNote(from, to models.OrderStatus, extra string) string {
	if extra = strings.TrimSpace(extra); extra != "" {
		return extra
	}
	return fmt.Sprintf("Status changed from %s to %s", from, to)
}

func newOrderNumber() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("ORD-%s-%s", time.Now().Format("20060102"), suffix)
}
