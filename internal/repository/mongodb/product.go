// Package mongodb implements the repositories on MongoDB. Products embed
// their reviews and images in a single document.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/query"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository"
	"github.com/N1kunj1998/ECOMMERCE/pkg/database"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

// Collection names.
const (
	ProductsCollection = "products"
	OrdersCollection   = "orders"
)

var listSort = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// ProductRepository implements repository.ProductRepository using MongoDB.
type ProductRepository struct {
	coll *mongo.Collection
}

// NewProductRepository creates a new MongoDB-backed product repository.
func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{coll: db.Collection(ProductsCollection)}
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

func trace(ctx context.Context, op string) (context.Context, func(error)) {
	return database.TraceQuery(ctx, database.SystemMongoDB, op, "")
}

// Create inserts a new product with version 1.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := trace(ctx, "products.insert")
	defer func() { end(err) }()

	p.Version = 1
	if p.Images == nil {
		p.Images = []domain.Image{}
	}
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}
	if _, err = r.coll.InsertOne(ctx, p); err != nil {
		if dup := duplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	ctx, end := trace(ctx, "products.find_one")
	defer func() { end(err) }()

	var p domain.Product
	if err = r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound(repository.ResourceProduct, id)
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return &p, nil
}

// Update replaces the catalog fields when the stored version matches and
// refreshes p from the updated document.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := trace(ctx, "products.update")
	defer func() { end(err) }()

	filter := bson.M{"_id": p.ID, "version": p.Version}
	update := bson.M{
		"$set": bson.M{
			"name":        p.Name,
			"description": p.Description,
			"price":       p.Price,
			"category":    p.Category,
			"stock":       p.Stock,
			"images":      p.Images,
		},
		"$inc": bson.M{"version": 1},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated domain.Product
	err = r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return r.missOrConflict(ctx, p.ID)
		}
		if dup := duplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("update product: %w", err)
	}
	*p = updated
	return nil
}

// Delete removes a product by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := trace(ctx, "products.delete")
	defer func() { end(err) }()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound(repository.ResourceProduct, id)
	}
	return nil
}

// List compiles q into one bson filter used for both the count and the
// paged find.
func (r *ProductRepository) List(ctx context.Context, q query.ProductQuery) (_ []domain.Product, _ int, err error) {
	ctx, end := trace(ctx, "products.list")
	defer func() { end(err) }()

	filter := compileFilter(q)

	filtered, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count filtered products: %w", err)
	}

	w := q.Window()
	opts := options.Find().
		SetSort(listSort).
		SetSkip(int64(w.Offset)).
		SetLimit(int64(w.Size))

	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find products: %w", err)
	}
	products := make([]domain.Product, 0, w.Size)
	if err = cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("decode products: %w", err)
	}
	return products, int(filtered), nil
}

// Count returns the number of products in the collection.
func (r *ProductRepository) Count(ctx context.Context) (_ int, err error) {
	ctx, end := trace(ctx, "products.count")
	defer func() { end(err) }()

	n, err := r.coll.EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return int(n), nil
}

// ListAll returns every product.
func (r *ProductRepository) ListAll(ctx context.Context) (_ []domain.Product, err error) {
	ctx, end := trace(ctx, "products.find_all")
	defer func() { end(err) }()

	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(listSort))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	products := make([]domain.Product, 0)
	if err = cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}

// SaveReviews writes the review list and aggregates guarded by version.
func (r *ProductRepository) SaveReviews(ctx context.Context, id string, reviews []domain.Review, ratings float64, count int, expectedVersion int64) (_ int64, err error) {
	ctx, end := trace(ctx, "products.save_reviews")
	defer func() { end(err) }()

	if reviews == nil {
		reviews = []domain.Review{}
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": id, "version": expectedVersion},
		bson.M{
			"$set": bson.M{"reviews": reviews, "ratings": ratings, "num_of_reviews": count},
			"$inc": bson.M{"version": 1},
		},
	)
	if err != nil {
		return 0, fmt.Errorf("save reviews: %w", err)
	}
	if res.MatchedCount == 0 {
		return 0, r.missOrConflict(ctx, id)
	}
	return expectedVersion + 1, nil
}

// DecrementStock lowers stock by qty in a single pipeline update that clamps
// at zero, returning the stock observed before the write.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) (_ repository.StockChange, err error) {
	ctx, end := trace(ctx, "products.decrement_stock")
	defer func() { end(err) }()

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "stock", Value: bson.D{{Key: "$max", Value: bson.A{0, bson.D{{Key: "$subtract", Value: bson.A{"$stock", qty}}}}}}},
			{Key: "version", Value: bson.D{{Key: "$add", Value: bson.A{"$version", 1}}}},
		}}},
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.Before).
		SetProjection(bson.M{"stock": 1})

	var before struct {
		Stock int `bson:"stock"`
	}
	if err = r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, opts).Decode(&before); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.StockChange{}, apperrors.NotFound(repository.ResourceProduct, id)
		}
		return repository.StockChange{}, fmt.Errorf("decrement stock: %w", err)
	}

	change := repository.StockChange{Before: before.Stock, After: before.Stock - qty}
	if change.After < 0 {
		change.After = 0
		change.Clamped = true
	}
	return change, nil
}

// missOrConflict distinguishes a missing product from a stale version after
// a guarded write matched nothing.
func (r *ProductRepository) missOrConflict(ctx context.Context, id string) error {
	n, err := r.coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("check product existence: %w", err)
	}
	if n == 0 {
		return apperrors.NotFound(repository.ResourceProduct, id)
	}
	return apperrors.Conflict("product was modified concurrently, retry")
}
