// Package memory provides in-process implementations of the repositories,
// used by tests and by STORE_DRIVER=memory for local development.
package memory

import (
	"context"
	"sync"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/query"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

// ProductRepository implements repository.ProductRepository in memory.
// Listing order is insertion order.
type ProductRepository struct {
	mu       sync.RWMutex
	order    []string
	products map[string]domain.Product
}

// NewProductRepository creates an empty in-memory product repository.
func NewProductRepository() *ProductRepository {
	return &ProductRepository{products: make(map[string]domain.Product)}
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// Create stores a copy of p with Version 1.
func (r *ProductRepository) Create(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.products[p.ID]; exists {
		return apperrors.DuplicateKey("id")
	}
	p.Version = 1
	r.products[p.ID] = cloneProduct(*p)
	r.order = append(r.order, p.ID)
	return nil
}

// GetByID returns a copy of the stored product.
func (r *ProductRepository) GetByID(_ context.Context, id string) (*domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, apperrors.NotFound(repository.ResourceProduct, id)
	}
	out := cloneProduct(p)
	return &out, nil
}

// Update replaces the catalog fields of the stored product. Reviews and
// their aggregates are left as stored.
func (r *ProductRepository) Update(_ context.Context, p *domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.products[p.ID]
	if !ok {
		return apperrors.NotFound(repository.ResourceProduct, p.ID)
	}
	if cur.Version != p.Version {
		return apperrors.Conflict("product was modified concurrently, retry")
	}

	cur.Name = p.Name
	cur.Description = p.Description
	cur.Price = p.Price
	cur.Category = p.Category
	cur.Stock = p.Stock
	cur.Images = append([]domain.Image(nil), p.Images...)
	cur.Version++
	r.products[p.ID] = cur

	p.Version = cur.Version
	p.Reviews = append([]domain.Review(nil), cur.Reviews...)
	p.Ratings = cur.Ratings
	p.NumOfReviews = cur.NumOfReviews
	return nil
}

// Delete removes a product.
func (r *ProductRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return apperrors.NotFound(repository.ResourceProduct, id)
	}
	delete(r.products, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// List evaluates q against every product and returns the requested window.
func (r *ProductRepository) List(_ context.Context, q query.ProductQuery) ([]domain.Product, int, error) {
	match := q.Compile()

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Product, 0)
	for _, id := range r.order {
		p := r.products[id]
		if match(&p) {
			matched = append(matched, p)
		}
	}

	start, end := q.Window().Bounds(len(matched))
	page := make([]domain.Product, 0, end-start)
	for _, p := range matched[start:end] {
		page = append(page, cloneProduct(p))
	}
	return page, len(matched), nil
}

// Count returns the number of stored products.
func (r *ProductRepository) Count(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.products), nil
}

// ListAll returns every product in insertion order.
func (r *ProductRepository) ListAll(_ context.Context) ([]domain.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Product, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneProduct(r.products[id]))
	}
	return out, nil
}

// SaveReviews replaces the embedded reviews when the version matches.
func (r *ProductRepository) SaveReviews(_ context.Context, id string, reviews []domain.Review, ratings float64, count int, expectedVersion int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.products[id]
	if !ok {
		return 0, apperrors.NotFound(repository.ResourceProduct, id)
	}
	if cur.Version != expectedVersion {
		return 0, apperrors.Conflict("product was modified concurrently, retry")
	}

	cur.Reviews = append([]domain.Review(nil), reviews...)
	cur.Ratings = ratings
	cur.NumOfReviews = count
	cur.Version++
	r.products[id] = cur
	return cur.Version, nil
}

// DecrementStock lowers stock by qty, never below zero.
func (r *ProductRepository) DecrementStock(_ context.Context, id string, qty int) (repository.StockChange, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.products[id]
	if !ok {
		return repository.StockChange{}, apperrors.NotFound(repository.ResourceProduct, id)
	}

	change := repository.StockChange{Before: cur.Stock, After: cur.Stock - qty}
	if change.After < 0 {
		change.After = 0
		change.Clamped = true
	}
	cur.Stock = change.After
	cur.Version++
	r.products[id] = cur
	return change, nil
}

func cloneProduct(p domain.Product) domain.Product {
	p.Images = append(make([]domain.Image, 0, len(p.Images)), p.Images...)
	p.Reviews = append(make([]domain.Review, 0, len(p.Reviews)), p.Reviews...)
	return p
}
