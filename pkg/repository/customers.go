package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bhadmusolaide/modern-ecom-with-admin-panel-sub001/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CustomerStore struct {
	coll *mongo.Collection
}

func NewCustomerStore(repo *MongoRepository) *CustomerStore {
	return &CustomerStore{coll: repo.Collection(collCustomers)}
}

func (s *CustomerStore) Get(ctx context.Context, id string) (*models.Customer, error) {
	var customer models.Customer
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&customer)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *CustomerStore) GetByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	err := s.coll.FindOne(ctx, bson.M{"email": email}).Decode(&customer)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("customer %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (s *CustomerStore) Insert(ctx context.Context, customer *models.Customer) error {
	now := time.Now()
	customer.CreatedAt = now
	customer.UpdatedAt = now
	if customer.SegmentIDs == nil {
		customer.SegmentIDs = []string{}
	}
	_, err := s.coll.InsertOne(ctx, customer)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("customer email %s: %w", customer.Email, ErrConflict)
	}
	return err
}

func (s *CustomerStore) Update(ctx context.Context, customer *models.Customer) error {
	customer.UpdatedAt = time.Now()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": customer.ID}, customer)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("customer %s: %w", customer.ID, ErrNotFound)
	}
	return nil
}

func (s *CustomerStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("customer %s: %w", id, ErrNotFound)
	}
	return nil
}

type CustomerQuery struct {
	SegmentID string
	Search    string
	Page      int
	PageSize  int
}

func (s *CustomerStore) List(ctx context.Context, q CustomerQuery) ([]models.Customer, int64, error) {
	filter := bson.M{}
	if q.SegmentID != "" {
		filter["segmentIds"] = q.SegmentID
	}
	if q.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"email": bson.M{"$regex": q.Search, "$options": "i"}},
			bson.M{"name": bson.M{"$regex": q.Search, "$options": "i"}},
		}
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

	var customers []models.Customer
	if err = cursor.All(ctx, &customers); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func (s *CustomerStore) AddToSegment(ctx context.Context, customerID, segmentID string) error {
	update := bson.M{
		"$addToSet": bson.M{"segmentIds": segmentID},
		"$set":      bson.M{"updatedAt": time.Now()},
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": customerID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	return nil
}

func (s *CustomerStore) RemoveFromSegment(ctx context.Context, customerID, segmentID string) error {
	update := bson.M{
		"$pull": bson.M{"segmentIds": segmentID},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": customerID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	return nil
}

// DetachSegment removes a deleted segment from every customer that carries it.
func (s *CustomerStore) DetachSegment(ctx context.Context, segmentID string) error {
	update := bson.M{
		"$pull": bson.M{"segmentIds": segmentID},
		"$set":  bson.M{"updatedAt": time.Now()},
	}
	_, err := s.coll.UpdateMany(ctx, bson.M{"segmentIds": segmentID}, update)
	return err
}

func (s *CustomerStore) SetMetrics(ctx context.Context, customerID string, metrics models.Metrics) error {
	update := bson.M{"$set": bson.M{"metrics": metrics, "updatedAt": time.Now()}}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": customerID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("customer %s: %w", customerID, ErrNotFound)
	}
	return nil
}

type SegmentStore struct {
	coll *mongo.Collection
}

func NewSegmentStore(repo *MongoRepository) *SegmentStore {
	return &SegmentStore{coll: repo.Collection(collSegments)}
}

func (s *SegmentStore) Get(ctx context.Context, id string) (*models.CustomerSegment, error) {
	var segment models.CustomerSegment
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&segment)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("segment %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &segment, nil
}

func (s *SegmentStore) List(ctx context.Context) ([]models.CustomerSegment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var segments []models.CustomerSegment
	if err = cursor.All(ctx, &segments); err != nil {
		return nil, err
	}
	return segments, nil
}

func (s *SegmentStore) Insert(ctx context.Context, segment *models.CustomerSegment) error {
	now := time.Now()
	segment.CreatedAt = now
	segment.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, segment)
	return err
}

func (s *SegmentStore) Update(ctx context.Context, segment *models.CustomerSegment) error {
	segment.UpdatedAt = time.Now()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": segment.ID}, segment)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("segment %s: %w", segment.ID, ErrNotFound)
	}
	return nil
}

func (s *SegmentStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("segment %s: %w", id, ErrNotFound)
	}
	return nil
}

type RoleStore struct {
	coll *mongo.Collection
}

func NewRoleStore(repo *MongoRepository) *RoleStore {
	return &RoleStore{coll: repo.Collection(collRoles)}
}

func (s *RoleStore) Get(ctx context.Context, id string) (*models.Role, error) {
	var role models.Role
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&role)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("role %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *RoleStore) GetByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := s.coll.FindOne(ctx, bson.M{"name": name}).Decode(&role)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("role %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &role, nil
}

func (s *RoleStore) List(ctx context.Context) ([]models.Role, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var roles []models.Role
	if err = cursor.All(ctx, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (s *RoleStore) Insert(ctx context.Context, role *models.Role) error {
	now := time.Now()
	role.CreatedAt = now
	role.UpdatedAt = now
	_, err := s.coll.InsertOne(ctx, role)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("role name %s: %w", role.Name, ErrConflict)
	}
	return err
}

func (s *RoleStore) Update(ctx context.Context, role *models.Role) error {
	role.UpdatedAt = time.Now()
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": role.ID}, role)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("role %s: %w", role.ID, ErrNotFound)
	}
	return nil
}

func (s *RoleStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("role %s: %w", id, ErrNotFound)
	}
	return nil
}

// CountAssigned reports how many customers reference the role.
func (s *CustomerStore) CountAssigned(ctx context.Context, roleID string) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"roleId": roleID})
}

func (s *CustomerStore) Count(ctx context.Context) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{})
}

var errSeed = errors.New("seed role")

// EnsureDefaults inserts the built-in system roles when missing.
func (s *RoleStore) EnsureDefaults(ctx context.Context) error {
	defaults := []models.Role{
		{
			ID:          "role-admin",
			Name:        "admin",
			Description: "Full access to the admin dashboard",
			Permissions: models.AllPermissions(),
			IsSystem:    true,
		},
		{
			ID:          "role-customer",
			Name:        "customer",
			Description: "Storefront customer",
			Permissions: []string{"orders:read", "profile:read", "profile:write"},
			IsSystem:    true,
		},
	}
	for i := range defaults {
		err := s.Insert(ctx, &defaults[i])
		if err != nil && !errors.Is(err, ErrConflict) {
			return fmt.Errorf("%w %s: %v", errSeed, defaults[i].Name, err)
		}
	}
	return nil
}
