package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Checkout session states. A session only ever moves forward:
// created -> authorized -> captured, or out to failed/cancelled.
const (
	SessionCreated    = "created"
	SessionAuthorized = "authorized"
	SessionCaptured   = "captured"
	SessionFailed     = "failed"
	SessionCancelled  = "cancelled"
)

// OrderFinalizer lets a capture advance the order without this package
// depending on the order service.
type OrderFinalizer interface {
	MarkPaid(ctx context.Context, orderID, transactionID string, amountCents int64, currency string, paidAt time.Time) (*models.Order, error)
}

// StockAdjuster commits inventory once payment is captured.
type StockAdjuster interface {
	CommitOrderStock(ctx context.Context, order *models.Order) error
}

// OrderStore is the slice of the order collection checkout touches.
type OrderStore interface {
	Get(ctx context.Context, id string) (*models.Order, error)
	SetPaymentMethod(ctx context.Context, id string, method models.PaymentMethod) error
}

// SessionStore keeps checkout sessions and the per-order active pointer.
type SessionStore interface {
	SaveSession(ctx context.Context, session *repository.CheckoutSession) error
	GetSession(ctx context.Context, sessionID string) (*repository.CheckoutSession, error)
	SetActiveSession(ctx context.Context, orderID, sessionID string) error
	ActiveSession(ctx context.Context, orderID string) (string, error)
	ClearActiveSession(ctx context.Context, orderID string) error
}

// EventRecorder journals capture events.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event *repository.PaymentEvent) error
}

type Service struct {
	registry  *Registry
	orders    OrderStore
	cache     SessionStore
	ledger    EventRecorder
	finalizer OrderFinalizer
	stock     StockAdjuster
	currency  string
	logger    *zap.Logger
}

func NewService(registry *Registry, orders OrderStore, cache SessionStore, ledger EventRecorder, finalizer OrderFinalizer, stock StockAdjuster, currency string, logger *zap.Logger) *Service {
	return &Service{
		registry:  registry,
		orders:    orders,
		cache:     cache,
		ledger:    ledger,
		finalizer: finalizer,
		stock:     stock,
		currency:  currency,
		logger:    logger,
	}
}

// SessionOutput is what the storefront needs to continue the payment flow.
type SessionOutput struct {
	Session      *repository.CheckoutSession
	ClientSecret string
	ApprovalURL  string
}

// CreateSession opens a provider session for a pending order.
func (s *Service) CreateSession(ctx context.Context, orderID string, method models.PaymentMethod, returnURL string) (*SessionOutput, error) {
	provider, err := s.registry.For(method)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.StatusPending || order.Payment.Status != models.PaymentPending {
		return nil, fmt.Errorf("order %s is not awaiting payment: %w", orderID, repository.ErrConflict)
	}

	// A method switch mid-checkout cancels the previous provider session
	// instead of leaving it dangling.
	s.cancelPrevious(ctx, orderID)

	if err := s.orders.SetPaymentMethod(ctx, orderID, method); err != nil {
		return nil, err
	}

	params := SessionParams{
		OrderID:       order.ID,
		AmountCents:   Cents(order.Total),
		Currency:      s.currency,
		CustomerEmail: order.CustomerEmail,
		ReturnURL:     returnURL,
	}
	providerSession, err := provider.CreateSession(ctx, params)
	if err != nil {
		return nil, err
	}

	session := &repository.CheckoutSession{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		CustomerID:  order.CustomerID,
		Method:      string(method),
		State:       SessionCreated,
		AmountCents: params.AmountCents,
		Currency:    params.Currency,
		ProviderRef: providerSession.ProviderRef,
		CreatedAt:   time.Now(),
	}
	if err := s.cache.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	if err := s.cache.SetActiveSession(ctx, order.ID, session.ID); err != nil {
		s.logger.Warn("active session pointer write failed", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.logger.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("order_id", order.ID),
		zap.String("method", string(method)),
		zap.Int64("amount_cents", session.AmountCents))

	return &SessionOutput{
		Session:      session,
		ClientSecret: providerSession.ClientSecret,
		ApprovalURL:  providerSession.ApprovalURL,
	}, nil
}

// cancelPrevious voids whatever uncaptured session the order still has. Best
// effort: an unreachable provider only costs us an orphaned authorization
// that expires on its own.
func (s *Service) cancelPrevious(ctx context.Context, orderID string) {
	previousID, err := s.cache.ActiveSession(ctx, orderID)
	if err != nil {
		if !repository.IsCacheMiss(err) {
			s.logger.Warn("active session lookup failed", zap.String("order_id", orderID), zap.Error(err))
		}
		return
	}
	previous, err := s.cache.GetSession(ctx, previousID)
	if err != nil {
		return
	}
	if previous.State != SessionCreated && previous.State != SessionAuthorized {
		return
	}

	if provider, err := s.registry.For(models.PaymentMethod(previous.Method)); err == nil {
		if err := provider.Cancel(ctx, previous.ProviderRef); err != nil {
			s.logger.Warn("previous session cancel failed",
				zap.String("order_id", orderID),
				zap.String("session_id", previousID),
				zap.Error(err))
		}
	}
	previous.State = SessionCancelled
	if err := s.cache.SaveSession(ctx, previous); err != nil {
		s.logger.Warn("previous session state write failed", zap.String("session_id", previousID), zap.Error(err))
	}
}

// Authorize records that the shopper approved the payment on the provider
// side. Card sessions skip this and capture directly.
func (s *Service) Authorize(ctx context.Context, sessionID string) (*repository.CheckoutSession, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != SessionCreated {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, session.State, repository.ErrConflict)
	}
	session.State = SessionAuthorized
	if err := s.cache.SaveSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Capture charges the provider session and finalizes the order. A provider
// failure marks the session failed but leaves the order payable with a
// fresh session.
func (s *Service) Capture(ctx context.Context, sessionID string) (*models.Order, error) {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.State != SessionCreated && session.State != SessionAuthorized {
		return nil, fmt.Errorf("session %s is %s: %w", sessionID, session.State, repository.ErrConflict)
	}

	provider, err := s.registry.For(models.PaymentMethod(session.Method))
	if err != nil {
		return nil, err
	}

	capture, err := provider.Capture(ctx, session.ProviderRef)
	if err != nil {
		session.State = SessionFailed
		if saveErr := s.cache.SaveSession(ctx, session); saveErr != nil {
			s.logger.Warn("failed session state write failed", zap.String("session_id", sessionID), zap.Error(saveErr))
		}
		return nil, err
	}

	session.State = SessionCaptured
	if err := s.cache.SaveSession(ctx, session); err != nil {
		s.logger.Warn("captured session state write failed", zap.String("session_id", sessionID), zap.Error(err))
	}
	if err := s.cache.ClearActiveSession(ctx, session.OrderID); err != nil {
		s.logger.Warn("active session pointer clear failed", zap.String("order_id", session.OrderID), zap.Error(err))
	}

	order, err := s.finalizer.MarkPaid(ctx, session.OrderID, capture.TransactionID, session.AmountCents, session.Currency, capture.CapturedAt)
	if err != nil {
		// The charge went through; surface the inconsistency loudly.
		s.logger.Error("capture succeeded but order update failed",
			zap.String("session_id", sessionID),
			zap.String("order_id", session.OrderID),
			zap.String("transaction_id", capture.TransactionID),
			zap.Error(err))
		return nil, err
	}

	event := &repository.PaymentEvent{
		OrderID:     order.ID,
		Type:        repository.EventCapture,
		Method:      session.Method,
		AmountCents: session.AmountCents,
		Currency:    session.Currency,
		ProviderRef: capture.TransactionID,
		CreatedAt:   capture.CapturedAt,
	}
	if err := s.ledger.RecordEvent(ctx, event); err != nil {
		s.logger.Error("capture event write failed", zap.String("order_id", order.ID), zap.Error(err))
	}

	if s.stock != nil {
		if err := s.stock.CommitOrderStock(ctx, order); err != nil {
			s.logger.Warn("stock commit failed", zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	return order, nil
}

// Cancel releases an uncaptured session.
func (s *Service) Cancel(ctx context.Context, sessionID string) error {
	session, err := s.getSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.State == SessionCaptured {
		return fmt.Errorf("session %s already captured: %w", sessionID, repository.ErrConflict)
	}
	if session.State == SessionCancelled {
		return nil
	}

	provider, err := s.registry.For(models.PaymentMethod(session.Method))
	if err != nil {
		return err
	}
	if err := provider.Cancel(ctx, session.ProviderRef); err != nil {
		return err
	}

	session.State = SessionCancelled
	if err := s.cache.ClearActiveSession(ctx, session.OrderID); err != nil {
		s.logger.Warn("active session pointer clear failed", zap.String("order_id", session.OrderID), zap.Error(err))
	}
	return s.cache.SaveSession(ctx, session)
}

func (s *Service) GetSession(ctx context.Context, sessionID string) (*repository.CheckoutSession, error) {
	return s.getSession(ctx, sessionID)
}

func (s *Service) getSession(ctx context.Context, sessionID string) (*repository.CheckoutSession, error) {
	session, err := s.cache.GetSession(ctx, sessionID)
	if err != nil {
		if repository.IsCacheMiss(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, repository.ErrNotFound)
		}
		return nil, err
	}
	return session, nil
}
