package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"go.uber.org/zap"
)

// Source is one place an order can live. The service composes two of them:
// the store this service owns and the hosted commerce API that still holds
// orders created before the migration.
type Source interface {
	Name() string
	Get(ctx context.Context, id string) (*models.Order, error)
	SetStatus(ctx context.Context, id string, to models.OrderStatus, note models.OrderNote, revision int64) (*models.Order, error)
	AppendNote(ctx context.Context, id string, note models.OrderNote) (*models.Order, error)
}

type storeSource struct {
	store *repository.OrderStore
}

// NewStoreSource serves orders from the service's own document store.
func NewStoreSource(store *repository.OrderStore) Source {
	return &storeSource{store: store}
}

func (s *storeSource) Name() string { return "store" }

func (s *storeSource) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.store.Get(ctx, id)
}

func (s *storeSource) SetStatus(ctx context.Context, id string, to models.OrderStatus, note models.OrderNote, revision int64) (*models.Order, error) {
	return s.store.UpdateStatus(ctx, id, to, note, revision)
}

func (s *storeSource) AppendNote(ctx context.Context, id string, note models.OrderNote) (*models.Order, error) {
	return s.store.AppendNote(ctx, id, note)
}

type upstreamSource struct {
	client *repository.UpstreamClient
}

// NewUpstreamSource serves orders from the hosted commerce API. Writes are
// last-write-wins there; the revision argument is ignored.
func NewUpstreamSource(client *repository.UpstreamClient) Source {
	return &upstreamSource{client: client}
}

func (s *upstreamSource) Name() string { return "upstream" }

func (s *upstreamSource) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.client.GetOrder(ctx, id)
}

func (s *upstreamSource) SetStatus(ctx context.Context, id string, to models.OrderStatus, note models.OrderNote, _ int64) (*models.Order, error) {
	return s.client.UpdateStatus(ctx, id, to, note.Message)
}

func (s *upstreamSource) AppendNote(ctx context.Context, id string, note models.OrderNote) (*models.Order, error) {
	return s.client.AddNote(ctx, id, note)
}

type fallbackSource struct {
	primary   Source
	secondary Source
	logger    *zap.Logger
}

// NewFallbackSource reads from primary and falls back to secondary on any
// primary failure. Writes only fall back when the primary does not hold the
// order at all; every other primary write failure is surfaced as is.
func NewFallbackSource(primary, secondary Source, logger *zap.Logger) Source {
	return &fallbackSource{primary: primary, secondary: secondary, logger: logger}
}

func (s *fallbackSource) Name() string { return "fallback" }

func (s *fallbackSource) Get(ctx context.Context, id string) (*models.Order, error) {
	order, primaryErr := s.primary.Get(ctx, id)
	if primaryErr == nil {
		return order, nil
	}

	s.logger.Debug("primary order read failed, trying fallback",
		zap.String("order_id", id),
		zap.String("primary", s.primary.Name()),
		zap.Error(primaryErr))

	order, secondaryErr := s.secondary.Get(ctx, id)
	if secondaryErr == nil {
		return order, nil
	}
	return nil, fmt.Errorf("%s also failed: %v: %w", s.secondary.Name(), secondaryErr, primaryErr)
}

func (s *fallbackSource) SetStatus(ctx context.Context, id string, to models.OrderStatus, note models.OrderNote, revision int64) (*models.Order, error) {
	order, err := s.primary.SetStatus(ctx, id, to, note, revision)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	s.logger.Info("order not held locally, writing status upstream",
		zap.String("order_id", id),
		zap.String("status", string(to)))
	return s.secondary.SetStatus(ctx, id, to, note, revision)
}

func (s *fallbackSource) AppendNote(ctx context.Context, id string, note models.OrderNote) (*models.Order, error) {
	order, err := s.primary.AppendNote(ctx, id, note)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	s.logger.Info("order not held locally, writing note upstream",
		zap.String("order_id", id))
	return s.secondary.AppendNote(ctx, id, note)
}
