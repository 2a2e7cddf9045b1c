package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/audit"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/config"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/orders"
	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductStore is the product collection surface the service writes through.
type ProductStore interface {
	Get(ctx context.Context, id string) (*models.Product, error)
	GetBySlug(ctx context.Context, slug string) (*models.Product, error)
	List(ctx context.Context, q repository.ProductQuery) ([]models.Product, int64, error)
	Insert(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, productID, variantID string, delta int) error
}

// SectionStore holds the homepage layout rows.
type SectionStore interface {
	Get(ctx context.Context, id string) (*models.HomepageSection, error)
	List(ctx context.Context, enabledOnly bool) ([]models.HomepageSection, error)
	Insert(ctx context.Context, section *models.HomepageSection) error
	Update(ctx context.Context, section *models.HomepageSection) error
	Delete(ctx context.Context, id string) error
	Reorder(ctx context.Context, ids []string) error
}

type Service struct {
	products ProductStore
	sections SectionStore
	media    config.MediaConfig
	audit    audit.Recorder
	logger   *zap.Logger
}

func NewService(products ProductStore, sections SectionStore, media config.MediaConfig, audit audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		products: products,
		sections: sections,
		media:    media,
		audit:    audit,
		logger:   logger,
	}
}

func (s *Service) List(ctx context.Context, q repository.ProductQuery) ([]models.Product, int64, error) {
	return s.products.List(ctx, q)
}

func (s *Service) Get(ctx context.Context, id string) (*models.Product, error) {
	return s.products.Get(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.products.GetBySlug(ctx, slug)
}

func (s *Service) Create(ctx context.Context, product *models.Product, actor string) (*models.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		return nil, &orders.ValidationError{Field: "name", Reason: "required"}
	}
	if product.Price < 0 {
		return nil, &orders.ValidationError{Field: "price", Reason: "cannot be negative"}
	}

	product.ID = uuid.NewString()
	if product.Slug == "" {
		product.Slug = slugify(product.Name)
	}
	syncVariants(product)

	err := s.products.Insert(ctx, product)
	if errors.Is(err, repository.ErrConflict) {
		// Slug taken; retry once with a short suffix.
		product.Slug = fmt.Sprintf("%s-%s", product.Slug, uuid.NewString()[:4])
		err = s.products.Insert(ctx, product)
	}
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "product.created", product.ID, actor, map[string]any{
		"name": product.Name,
		"slug": product.Slug,
	})
	return product, nil
}

// Update persists edits and reconciles the variant list against the current
// options. Variants whose option signature survives keep their identity,
// stock and pricing.
func (s *Service) Update(ctx context.Context, product *models.Product, actor string) (*models.Product, error) {
	existing, err := s.products.Get(ctx, product.ID)
	if err != nil {
		return nil, err
	}
	if product.Price < 0 {
		return nil, &orders.ValidationError{Field: "price", Reason: "cannot be negative"}
	}

	product.CreatedAt = existing.CreatedAt
	if product.Slug == "" {
		product.Slug = existing.Slug
	}
	if product.Images == nil {
		product.Images = existing.Images
	}
	syncVariants(product)

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "product.updated", product.ID, actor, map[string]any{
		"variants": len(product.Variants),
	})
	return product, nil
}

func (s *Service) Delete(ctx context.Context, id, actor string) error {
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "product.deleted", id, actor, nil)
	return nil
}

// CommitOrderStock decrements variant stock for every line of a captured
// order. Inventory is advisory here: a level that raced to zero logs a
// warning instead of clawing back the charge.
func (s *Service) CommitOrderStock(ctx context.Context, order *models.Order) error {
	var errs []error
	for _, item := range order.Items {
		if item.VariantID == "" || item.Quantity <= 0 {
			continue
		}
		err := s.products.AdjustStock(ctx, item.ProductID, item.VariantID, -item.Quantity)
		if err != nil {
			s.logger.Warn("stock decrement failed",
				zap.String("order_id", order.ID),
				zap.String("product_id", item.ProductID),
				zap.String("variant_id", item.VariantID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var knownSectionTypes = map[string]bool{
	"hero":         true,
	"featured":     true,
	"new-arrivals": true,
	"banner":       true,
	"grid":         true,
}

func (s *Service) ListSections(ctx context.Context, enabledOnly bool) ([]models.HomepageSection, error) {
	return s.sections.List(ctx, enabledOnly)
}

func (s *Service) CreateSection(ctx context.Context, section *models.HomepageSection, actor string) (*models.HomepageSection, error) {
	if !knownSectionTypes[section.Type] {
		return nil, &orders.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown section type %q", section.Type)}
	}
	section.ID = uuid.NewString()
	if err := s.sections.Insert(ctx, section); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, "section.created", section.ID, actor, map[string]any{
		"type": section.Type,
	})
	return section, nil
}

func (s *Service) UpdateSection(ctx context.Context, section *models.HomepageSection, actor string) error {
	if !knownSectionTypes[section.Type] {
		return &orders.ValidationError{Field: "type", Reason: fmt.Sprintf("unknown section type %q", section.Type)}
	}
	existing, err := s.sections.Get(ctx, section.ID)
	if err != nil {
		return err
	}
	section.CreatedAt = existing.CreatedAt
	if err := s.sections.Update(ctx, section); err != nil {
		return err
	}
	s.audit.Record(ctx, "section.updated", section.ID, actor, nil)
	return nil
}

func (s *Service) DeleteSection(ctx context.Context, id, actor string) error {
	if err := s.sections.Delete(ctx, id); err != nil {
		return err
	}
	s.audit.Record(ctx, "section.deleted", id, actor, nil)
	return nil
}

func (s *Service) ReorderSections(ctx context.Context, ids []string, actor string) error {
	if len(ids) == 0 {
		return &orders.ValidationError{Field: "ids", Reason: "required"}
	}
	if err := s.sections.Reorder(ctx, ids); err != nil {
		return err
	}
	s.audit.Record(ctx, "section.reordered", "", actor, map[string]any{
		"count": len(ids),
	})
	return nil
}

var slugStrip = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := slugStrip.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(slug, "-")
}
