package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ProductStore struct {
	coll *mongo.Collection
}

func NewProductStore(repo *MongoRepository) *ProductStore {
	return &ProductStore{coll: repo.Collection(collProducts)}
}

func (s *ProductStore) Get(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductStore) GetBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	err := s.coll.FindOne(ctx, bson.M{"slug": slug}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("product %s: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *ProductStore) Insert(ctx context.Context, product *models.Product) error {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, product)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("product slug %s: %w", product.Slug, ErrConflict)
	}
	return err
}

func (s *ProductStore) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product %s: %w", product.ID, ErrNotFound)
	}
	return nil
}

func (s *ProductStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return nil
}

type ProductQuery struct {
	Category string
	Featured *bool
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

func (s *ProductStore) List(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	filter := bson.M{}
	if q.Category != "" {
		filter["categories"] = q.Category
	}
	if q.Featured != nil {
		filter["isFeatured"] = *q.Featured
	}
	if q.Active != nil {
		filter["isActive"] = *q.Active
	}
	if q.Search != "" {
		filter["name"] = bson.M{"$regex": q.Search, "$options": "i"}
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	page := q.Page
	if page < 1 {
		page = 1
	}
	size := q.PageSize
	if size < 1 {
		size = 20
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64((page - 1) * size)).
		SetLimit(int64(size))

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err = cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// AdjustStock applies a stock delta to one variant. Decrements only match
// when enough stock remains, so stock never goes negative.
func (s *ProductStore) AdjustStock(ctx context.Context, productID, variantID string, delta int) error {
	match := bson.M{"id": variantID}
	if delta < 0 {
		match["stock"] = bson.M{"$gte": -delta}
	}
	filter := bson.M{"_id": productID, "variants": bson.M{"$elemMatch": match}}
	update := bson.M{
		"$inc": bson.M{"variants.$.stock": delta},
		"$set": bson.M{"updatedAt": time.Now()},
	}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product %s variant %s: %w", productID, variantID, ErrConflict)
	}
	return nil
}

type SectionStore struct {
	coll *mongo.Collection
}

func NewSectionStore(repo *MongoRepository) *SectionStore {
	return &SectionStore{coll: repo.Collection(collSections)}
}

func (s *SectionStore) List(ctx context.Context, enabledOnly bool) ([]models.HomepageSection, error) {
	filter := bson.M{}
	if enabledOnly {
		filter["enabled"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}})
	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sections []models.HomepageSection
	if err = cursor.All(ctx, &sections); err != nil {
		return nil, err
	}
	return sections, nil
}

func (s *SectionStore) Get(ctx context.Context, id string) (*models.HomepageSection, error) {
	var section models.HomepageSection
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&section)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("section %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &section, nil
}

func (s *SectionStore) Insert(ctx context.Context, section *models.HomepageSection) error {
	now := time.Now()
	section.CreatedAt = now
	section.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, section)
	return err
}

func (s *SectionStore) Update(ctx context.Context, section *models.HomepageSection) error {
	section.UpdatedAt = time.Now()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": section.ID}, section)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("section %s: %w", section.ID, ErrNotFound)
	}
	return nil
}

func (s *SectionStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("section %s: %w", id, ErrNotFound)
	}
	return nil
}

// Reorder applies new positions in one pass; ids index into their position.
func (s *SectionStore) Reorder(ctx context.Context, ids []string) error {
	for i, id := range ids {
		update := bson.M{"$set": bson.M{"position": i, "updatedAt": time.Now()}}
		if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
			return err
		}
	}
	return nil
}
