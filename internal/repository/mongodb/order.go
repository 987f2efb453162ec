package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

// OrderRepository implements repository.OrderRepository using MongoDB.
type OrderRepository struct {
	coll *mongo.Collection
}

// NewOrderRepository creates a new MongoDB-backed order repository.
func NewOrderRepository(db *mongo.Database) *OrderRepository {
	return &OrderRepository{coll: db.Collection(OrdersCollection)}
}

var _ repository.OrderRepository = (*OrderRepository)(nil)

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := trace(ctx, "orders.insert")
	defer func() { end(err) }()

	if _, err = r.coll.InsertOne(ctx, o); err != nil {
		if dup := duplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	ctx, end := trace(ctx, "orders.find_one")
	defer func() { end(err) }()

	var o domain.Order
	if err = r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound(repository.ResourceOrder, id)
		}
		return nil, fmt.Errorf("find order: %w", err)
	}
	return &o, nil
}

// ListByUser returns a user's orders, oldest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) (_ []domain.Order, err error) {
	ctx, end := trace(ctx, "orders.find_by_user")
	defer func() { end(err) }()
	return r.find(ctx, bson.M{"user_id": userID})
}

// ListAll returns every order, oldest first.
func (r *OrderRepository) ListAll(ctx context.Context) (_ []domain.Order, err error) {
	ctx, end := trace(ctx, "orders.find_all")
	defer func() { end(err) }()
	return r.find(ctx, bson.M{})
}

func (r *OrderRepository) find(ctx context.Context, filter bson.M) ([]domain.Order, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(listSort))
	if err != nil {
		return nil, fmt.Errorf("find orders: %w", err)
	}
	orders := make([]domain.Order, 0)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return orders, nil
}

// UpdateStatus sets the status only while the stored status equals from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, deliveredAt *time.Time) (err error) {
	ctx, end := trace(ctx, "orders.update_status")
	defer func() { end(err) }()

	set := bson.M{"order_status": to}
	if deliveredAt != nil {
		set["delivered_at"] = *deliveredAt
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id, "order_status": from}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check order existence: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(repository.ResourceOrder, id)
	}
	return apperrors.Conflict("order status changed concurrently, retry")
}

// Delete removes an order by its ID.
func (r *OrderRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := trace(ctx, "orders.delete")
	defer func() { end(err) }()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound(repository.ResourceOrder, id)
	}
	return nil
}
