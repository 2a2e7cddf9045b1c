package customers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/audit"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// metricsMaxAge bounds how stale a customer's order metrics may get before
// a read recomputes them.
const metricsMaxAge = time.Hour

// Store is the customer collection surface the service writes through.
type Store interface {
	Get(ctx context.Context, id string) (*models.Customer, error)
	List(ctx context.Context, q repository.CustomerQuery) ([]models.Customer, int64, error)
	Insert(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	Delete(ctx context.Context, id string) error
	AddToSegment(ctx context.Context, customerID, segmentID string) error
	RemoveFromSegment(ctx context.Context, customerID, segmentID string) error
	DetachSegment(ctx context.Context, segmentID string) error
	SetMetrics(ctx context.Context, customerID string, metrics models.Metrics) error
}

// SegmentStore holds the marketing segments customers are grouped into.
type SegmentStore interface {
	Get(ctx context.Context, id string) (*models.CustomerSegment, error)
	List(ctx context.Context) ([]models.CustomerSegment, error)
	Insert(ctx context.Context, segment *models.CustomerSegment) error
	Update(ctx context.Context, segment *models.CustomerSegment) error
	Delete(ctx context.Context, id string) error
}

// OrderStats aggregates a customer's order history for the profile metrics.
type OrderStats interface {
	CustomerStats(ctx context.Context, customerID string) (int, float64, error)
}

type Service struct {
	store    Store
	segments SegmentStore
	orders   OrderStats
	audit    audit.Recorder
	logger   *zap.Logger
}

func NewService(store Store, segments SegmentStore, orderStore OrderStats, audit audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		segments: segments,
		orders:   orderStore,
		audit:    audit,
		logger:   logger,
	}
}

func (s *Service) List(ctx context.Context, q repository.CustomerQuery) ([]models.Customer, int64, error) {
	return s.store.List(ctx, q)
}

// Get returns the customer with metrics no older than metricsMaxAge.
// Metrics are computed on read because most customers are never opened in
// the dashboard.
func (s *Service) Get(ctx context.Context, id string) (*models.Customer, error) {
	customer, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if customer.Metrics == nil || time.Since(customer.Metrics.ComputedAt) > metricsMaxAge {
		count, spent, err := s.orders.CustomerStats(ctx, customer.ID)
		if err != nil {
			// Serve the profile anyway; stale metrics beat a failed read.
			s.logger.Warn("customer metrics computation failed",
				zap.String("customer_id", customer.ID),
				zap.Error(err))
			return customer, nil
		}
		metrics := models.Metrics{
			TotalOrders: count,
			TotalSpent:  spent,
			ComputedAt:  time.Now(),
		}
		customer.Metrics = &metrics
		if err := s.store.SetMetrics(ctx, customer.ID, metrics); err != nil {
			s.logger.Warn("customer metrics write failed",
				zap.String("customer_id", customer.ID),
				zap.Error(err))
		}
	}
	return customer, nil
}

func (s *Service) Create(ctx context.Context, customer *models.Customer, actor string) (*models.Customer, error) {
	customer.Email = strings.TrimSpace(strings.ToLower(customer.Email))
	if customer.Email == "" || !strings.Contains(customer.Email, "@") {
		return nil, &orders.ValidationError{Field: "email", Reason: "valid email required"}
	}
	if customer.Name == "" {
		return nil, &orders.ValidationError{Field: "name", Reason: "required"}
	}

	customer.ID = uuid.NewString()
	if customer.Role == "" {
		customer.Role = models.RoleCustomer
	}
	customer.IsActive = true

	if err := s.store.Insert(ctx, customer); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "customer.created", customer.ID, actor, map[string]any{
		"email": customer.Email,
	})
	return customer, nil
}

func (s *Service) Update(ctx context.Context, customer *models.Customer, actor string) (*models.Customer, error) {
	existing, err := s.store.Get(ctx, customer.ID)
	if err != nil {
		return nil, err
	}

	// Identity and bookkeeping fields are not client-editable.
	customer.CreatedAt = existing.CreatedAt
	customer.Metrics = existing.Metrics
	if customer.SegmentIDs == nil {
		customer.SegmentIDs = existing.SegmentIDs
	}

	if err := s.store.Update(ctx, customer); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "customer.updated", customer.ID, actor, nil)
	return customer, nil
}

func (s *Service) Delete(ctx context.Context, id, actor string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "customer.deleted", id, actor, nil)
	return nil
}

// SetRole moves the customer onto a different role.
func (s *Service) SetRole(ctx context.Context, id string, role *models.Role, actor string) (*models.Customer, error) {
	customer, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.RoleID = role.ID
	customer.Role = models.UserRole(role.Name)
	if err := s.store.Update(ctx, customer); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "customer.role_changed", id, actor, map[string]any{
		"roleId": role.ID,
		"role":   role.Name,
	})
	return customer, nil
}

// SetActive toggles account access without deleting the record.
func (s *Service) SetActive(ctx context.Context, id string, active bool, actor string) (*models.Customer, error) {
	customer, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	customer.IsActive = active
	if err := s.store.Update(ctx, customer); err != nil {
		return nil, err
	}
	action := "customer.deactivated"
	if active {
		action = "customer.activated"
	}
	s.audit.Record(ctx, action, id, actor, nil)
	return customer, nil
}

func (s *Service) ListSegments(ctx context.Context) ([]models.CustomerSegment, error) {
	return s.segments.List(ctx)
}

func (s *Service) CreateSegment(ctx context.Context, segment *models.CustomerSegment, actor string) (*models.CustomerSegment, error) {
	if strings.TrimSpace(segment.Name) == "" {
		return nil, &orders.ValidationError{Field: "name", Reason: "required"}
	}
	segment.ID = uuid.NewString()
	if err := s.segments.Insert(ctx, segment); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "segment.created", segment.ID, actor, map[string]any{
		"name": segment.Name,
	})
	return segment, nil
}

func (s *Service) UpdateSegment(ctx context.Context, segment *models.CustomerSegment, actor string) error {
	if err := s.segments.Update(ctx, segment); err != nil {
		return err
	}
	s.audit.Record(ctx, "segment.updated", segment.ID, actor, nil)
	return nil
}

// DeleteSegment removes the segment and detaches it from every customer.
func (s *Service) DeleteSegment(ctx context.Context, id, actor string) error {
	if err := s.segments.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.store.DetachSegment(ctx, id); err != nil {
		return fmt.Errorf("segment %s deleted but detach failed: %w", id, err)
	}
	s.audit.Record(ctx, "segment.deleted", id, actor, nil)
	return nil
}

func (s *Service) Assign(ctx context.Context, customerID, segmentID, actor string) error {
	if _, err := s.segments.Get(ctx, segmentID); err != nil {
		return err
	}
	if err := s.store.AddToSegment(ctx, customerID, segmentID); err != nil {
		return err
	}
	s.audit.Record(ctx, "segment.assigned", customerID, actor, map[string]any{
		"segmentId": segmentID,
	})
	return nil
}

func (s *Service) Unassign(ctx context.Context, customerID, segmentID, actor string) error {
	if err := s.store.RemoveFromSegment(ctx, customerID, segmentID); err != nil {
		return err
	}
	s.audit.Record(ctx, "segment.unassigned", customerID, actor, map[string]any{
		"segmentId": segmentID,
	})
	return nil
}
