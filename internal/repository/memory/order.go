package memory

import (
	"context"
	"sync"
	"time"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

// OrderRepository implements repository.OrderRepository in memory.
type OrderRepository struct {
	mu     sync.RWMutex
	order  []string
	orders map[string]domain.Order
}

// NewOrderRepository creates an empty in-memory order repository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{orders: make(map[string]domain.Order)}
}

var _ repository.OrderRepository = (*OrderRepository)(nil)

// Create stores a copy of o.
func (r *OrderRepository) Create(_ context.Context, o *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[o.ID]; exists {
		return apperrors.DuplicateKey("id")
	}
	r.orders[o.ID] = cloneOrder(*o)
	r.order = append(r.order, o.ID)
	return nil
}

// GetByID returns a copy of the stored order.
func (r *OrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NotFound(repository.ResourceOrder, id)
	}
	out := cloneOrder(o)
	return &out, nil
}

// ListByUser returns the user's orders in placement order.
func (r *OrderRepository) ListByUser(_ context.Context, userID string) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Order, 0)
	for _, id := range r.order {
		if o := r.orders[id]; o.UserID == userID {
			out = append(out, cloneOrder(o))
		}
	}
	return out, nil
}

// ListAll returns every order in placement order.
func (r *OrderRepository) ListAll(_ context.Context) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Order, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, cloneOrder(r.orders[id]))
	}
	return out, nil
}

// UpdateStatus sets the status when the stored status still equals from.
func (r *OrderRepository) UpdateStatus(_ context.Context, id string, from, to domain.OrderStatus, deliveredAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return apperrors.NotFound(repository.ResourceOrder, id)
	}
	if o.OrderStatus != from {
		return apperrors.Conflict("order status changed concurrently, retry")
	}
	o.OrderStatus = to
	if deliveredAt != nil {
		t := *deliveredAt
		o.DeliveredAt = &t
	}
	r.orders[id] = o
	return nil
}

// Delete removes an order.
func (r *OrderRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.orders[id]; !ok {
		return apperrors.NotFound(repository.ResourceOrder, id)
	}
	delete(r.orders, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.OrderItems = append([]domain.LineItem(nil), o.OrderItems...)
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	return o
}
