package analytics

import (
	"context"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"go.uber.org/zap"
)

// Service assembles the dashboard overview from the payment ledger and the
// order store. Revenue numbers come from the ledger journal, never from
// order document floats.
type Service struct {
	ledger    *repository.LedgerStore
	orders    *repository.OrderStore
	customers *repository.CustomerStore
	logger    *zap.Logger
}

func NewService(ledger *repository.LedgerStore, orders *repository.OrderStore, customers *repository.CustomerStore, logger *zap.Logger) *Service {
	return &Service{ledger: ledger, orders: orders, customers: customers, logger: logger}
}

type Summary struct {
	Since          time.Time                      `json:"since"`
	Revenue        *repository.RevenueSummary     `json:"revenue"`
	StatusCounts   map[models.OrderStatus]int64   `json:"statusCounts"`
	TotalOrders    int64                          `json:"totalOrders"`
	TotalCustomers int64                          `json:"totalCustomers"`
}

func (s *Service) Summary(ctx context.Context, since time.Time) (*Summary, error) {
	revenue, err := s.ledger.Revenue(ctx, since)
	if err != nil {
		return nil, err
	}

	counts, err := s.orders.StatusCounts(ctx)
	if err != nil {
		return nil, err
	}
	var totalOrders int64
	for _, n := range counts {
		totalOrders += n
	}

	totalCustomers, err := s.customers.Count(ctx)
	if err != nil {
		return nil, err
	}

	return &Summary{
		Since:          since,
		Revenue:        revenue,
		StatusCounts:   counts,
		TotalOrders:    totalOrders,
		TotalCustomers: totalCustomers,
	}, nil
}

func (s *Service) DailyRevenue(ctx context.Context, since time.Time) ([]repository.RevenueBucket, error) {
	return s.ledger.DailyRevenue(ctx, since)
}

func (s *Service) TopProducts(ctx context.Context, limit int64) ([]repository.ProductSales, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	return s.orders.TopProducts(ctx, limit)
}
