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

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write's revision precondition does not
	// match the stored document.
	ErrConflict = errors.New("revision conflict")
	// ErrPermissionDenied is returned when a backend rejects the caller's
	// credentials.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrUnavailable is returned when a backend cannot be reached or times
	// out.
	ErrUnavailable = errors.New("backend unavailable")
	// ErrInvalid is returned when a backend rejects the request payload.
	ErrInvalid = errors.New("invalid request")
	// ErrParse is returned when a backend responds with data we cannot
	// decode.
	ErrParse = errors.New("malformed response")
)

type OrderStore struct {
	coll *mongo.Collection
}

func NewOrderStore(repo *MongoRepository) *OrderStore {
	return &OrderStore{coll: repo.Collection(collOrders)}
}

func (s *OrderStore) Get(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderStore) Insert(ctx context.Context, order *models.Order) error {
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Revision == 0 {
		order.Revision = 1
	}
	if order.Notes == nil {
		order.Notes = []models.OrderNote{}
	}
	_, err := s.coll.InsertOne(ctx, order)
	return err
}

type OrderQuery struct {
	Status     models.OrderStatus
	CustomerID string
	Page       int
	PageSize   int
}

func (s *OrderStore) List(ctx context.Context, q OrderQuery) ([]models.Order, int64, error) {
	filter := bson.M{}
	if q.Status != "" {
		filter["status"] = q.Status
	}
	if q.CustomerID != "" {
		filter["customerId"] = q.CustomerID
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

	var orders []models.Order
	if err = cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *OrderStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return nil
}

// UpdateStatus moves the order to a new status, appending the given note in
// the same write. The expectedRevision filter makes the write conditional;
// a concurrent writer bumps the revision and this call reports ErrConflict.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, to models.OrderStatus, note models.OrderNote, expectedRevision int64) (*models.Order, error) {
	filter := bson.M{"_id": id, "revision": expectedRevision}
	update := bson.M{
		"$set":  bson.M{"status": to, "updatedAt": time.Now()},
		"$push": bson.M{"notes": note},
		"$inc":  bson.M{"revision": 1},
	}

	updated, err := s.findOneAndApply(ctx, filter, update)
	if err == nil {
		return updated, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// The filter missed: either the order is gone or the revision moved.
	if _, getErr := s.Get(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("order %s: %w", id, ErrConflict)
}

// AppendNote pushes a note onto the order's note list. Existing notes are
// never touched; $push preserves order.
func (s *OrderStore) AppendNote(ctx context.Context, id string, note models.OrderNote) (*models.Order, error) {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set":  bson.M{"updatedAt": time.Now()},
		"$push": bson.M{"notes": note},
		"$inc":  bson.M{"revision": 1},
	}
	updated, err := s.findOneAndApply(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return updated, err
}

// MarkPaid records a successful capture: payment goes to paid with the
// charged amount and the order advances to processing.
func (s *OrderStore) MarkPaid(ctx context.Context, id, transactionID string, amount float64, currency string, paidAt time.Time, note models.OrderNote) (*models.Order, error) {
	filter := bson.M{"_id": id}
	update := bson.M{
		"$set": bson.M{
			"payment.status":        models.PaymentPaid,
			"payment.transactionId": transactionID,
			"payment.amount":        amount,
			"payment.currency":      currency,
			"payment.paidAt":        paidAt,
			"status":                models.StatusProcessing,
			"updatedAt":             time.Now(),
		},
		"$push": bson.M{"notes": note},
		"$inc":  bson.M{"revision": 1},
	}
	updated, err := s.findOneAndApply(ctx, filter, update)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return updated, err
}

// SetPaymentMethod records the method the shopper picked at checkout. Refund
// routing later reads it back off the order.
func (s *OrderStore) SetPaymentMethod(ctx context.Context, id string, method models.PaymentMethod) error {
	update := bson.M{"$set": bson.M{"payment.method": method, "updatedAt": time.Now()}}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to set payment method: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return nil
}

// ApplyRefund records a settled refund. Full refunds also move the order to
// its terminal refunded status; partial refunds leave the order status alone.
func (s *OrderStore) ApplyRefund(ctx context.Context, id string, full bool, settledAt time.Time, note models.OrderNote) (*models.Order, error) {
	set := bson.M{
		"payment.refundedAt": settledAt,
		"updatedAt":          time.Now(),
	}
	if full {
		set["payment.status"] = models.PaymentRefunded
		set["status"] = models.StatusRefunded
	} else {
		set["payment.status"] = models.PaymentPartiallyRefunded
	}
	update := bson.M{
		"$set":  set,
		"$push": bson.M{"notes": note},
		"$inc":  bson.M{"revision": 1},
	}
	updated, err := s.findOneAndApply(ctx, bson.M{"_id": id}, update)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return updated, err
}

func (s *OrderStore) findOneAndApply(ctx context.Context, filter, update bson.M) (*models.Order, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var order models.Order
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CustomerStats aggregates order count and lifetime spend for one customer.
func (s *OrderStore) CustomerStats(ctx context.Context, customerID string) (int, float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"customerId": customerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"orders": bson.M{"$sum": 1},
			"spent":  bson.M{"$sum": "$total"},
		}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Orders int     `bson:"orders"`
		Spent  float64 `bson:"spent"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return 0, 0, err
	}
	if len(results) == 0 {
		return 0, 0, nil
	}
	return results[0].Orders, results[0].Spent, nil
}

// StatusCounts groups orders by status for the analytics summary.
func (s *OrderStore) StatusCounts(ctx context.Context) (map[models.OrderStatus]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.OrderStatus `bson:"_id"`
		Count  int64              `bson:"count"`
	}
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[models.OrderStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

type ProductSales struct {
	ProductID string  `bson:"_id" json:"productId"`
	Name      string  `bson:"name" json:"name"`
	Units     int64   `bson:"units" json:"units"`
	Revenue   float64 `bson:"revenue" json:"revenue"`
}

// TopProducts ranks products by units sold across all orders.
func (s *OrderStore) TopProducts(ctx context.Context, limit int64) ([]ProductSales, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$unwind", Value: "$items"}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$items.productId",
			"name":    bson.M{"$last": "$items.name"},
			"units":   bson.M{"$sum": "$items.quantity"},
			"revenue": bson.M{"$sum": "$items.subtotal"},
		}}},
		{{Key: "$sort", Value: bson.M{"units": -1}}},
		{{Key: "$limit", Value: limit}},
	}
	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sales []ProductSales
	if err = cursor.All(ctx, &sales); err != nil {
		return nil, err
	}
	return sales, nil
}
