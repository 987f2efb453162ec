package repository

import (
	"context"
	"time"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/query"
)

// Resource names used in NotFound errors.
const (
	ResourceProduct = "Product"
	ResourceOrder   = "Order"
)

// StockChange describes the outcome of a stock decrement.
type StockChange struct {
	Before  int
	After   int
	Clamped bool
}

// ProductRepository defines the interface for product persistence operations.
// Writes are guarded by the product's Version: a write whose expected version
// does not match the stored one fails with a Conflict error.
type ProductRepository interface {
	// Create inserts a new product. The store sets Version to 1.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// Update replaces the mutable catalog fields of a product when its stored
	// version equals product.Version, then bumps product.Version.
	Update(ctx context.Context, product *domain.Product) error

	// Delete removes a product by its identifier.
	Delete(ctx context.Context, id string) error

	// List returns the page of products matching q together with the number
	// of products matching q across all pages.
	List(ctx context.Context, q query.ProductQuery) ([]domain.Product, int, error)

	// Count returns the total number of products, ignoring any filter.
	Count(ctx context.Context) (int, error)

	// ListAll returns every product.
	ListAll(ctx context.Context) ([]domain.Product, error)

	// SaveReviews writes the embedded review list and its aggregates when the
	// stored version equals expectedVersion. It returns the new version.
	SaveReviews(ctx context.Context, id string, reviews []domain.Review, ratings float64, count int, expectedVersion int64) (int64, error)

	// DecrementStock lowers stock by qty, clamping at zero.
	DecrementStock(ctx context.Context, id string, qty int) (StockChange, error)
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts a new order.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// ListByUser returns the orders placed by a user.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)

	// ListAll returns every order.
	ListAll(ctx context.Context) ([]domain.Order, error)

	// UpdateStatus moves an order from one status to another. It fails with a
	// Conflict error when the stored status is no longer from.
	UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, deliveredAt *time.Time) error

	// Delete removes an order by its identifier.
	Delete(ctx context.Context, id string) error
}
