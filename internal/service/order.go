package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/event"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

// PlaceOrderInput holds the parameters for placing an order.
type PlaceOrderInput struct {
	UserID       string
	ShippingInfo domain.ShippingInfo
	Items        []domain.LineItem
	PaymentInfo  domain.PaymentInfo
}

// OrderSummary is the admin view of every order.
type OrderSummary struct {
	Orders      []domain.Order `json:"orders"`
	TotalAmount float64        `json:"total_amount"`
}

// OrderService implements the order ledger.
type OrderService struct {
	orders   repository.OrderRepository
	products repository.ProductRepository
	pricing  domain.PricingPolicy
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	products repository.ProductRepository,
	pricing domain.PricingPolicy,
	producer *event.Producer,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		pricing:  pricing,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// PlaceOrder prices the items and records a paid order in Processing.
func (s *OrderService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*domain.Order, error) {
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}
	if len(input.Items) == 0 {
		return nil, apperrors.InvalidInput("order must contain at least one item")
	}
	for i, item := range input.Items {
		if item.ProductID == "" {
			return nil, apperrors.InvalidInput(fmt.Sprintf("item %d: product_id is required", i))
		}
		if item.Quantity < 1 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("item %d: quantity must be at least 1", i))
		}
		if item.Price < 0 {
			return nil, apperrors.InvalidInput(fmt.Sprintf("item %d: price must not be negative", i))
		}
	}

	now := s.now().UTC()
	totals := s.pricing.Price(input.Items)
	order := &domain.Order{
		ID:            uuid.NewString(),
		ShippingInfo:  input.ShippingInfo,
		OrderItems:    append([]domain.LineItem(nil), input.Items...),
		UserID:        input.UserID,
		PaymentInfo:   input.PaymentInfo,
		PaidAt:        now,
		ItemsPrice:    totals.ItemsPrice,
		TaxPrice:      totals.TaxPrice,
		ShippingPrice: totals.ShippingPrice,
		TotalPrice:    totals.TotalPrice,
		OrderStatus:   domain.OrderStatusProcessing,
		CreatedAt:     now,
	}

	if err := s.orders.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}
	ordersPlacedTotal.Inc()

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", order.ID),
		slog.String("user_id", order.UserID),
		slog.Int("items", len(order.OrderItems)),
		slog.Float64("total_price", order.TotalPrice),
	)
	if err := s.producer.OrderPlaced(ctx, order); err != nil {
		logPublishFailure(ctx, s.logger, event.TopicOrderPlaced, order.ID, err)
	}
	return order, nil
}

// AdvanceStatus moves an order one step along Processing, Shipped,
// Delivered. The write only succeeds if the order is still in the status it
// was read in. Reaching Delivered decrements the stock of every ordered
// product.
func (s *OrderService) AdvanceStatus(ctx context.Context, id string, target domain.OrderStatus) (*domain.Order, error) {
	if !target.IsValid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown order status %q", target))
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for status change: %w", err)
	}

	from := order.OrderStatus
	if err := order.Advance(target, s.now()); err != nil {
		orderTransitionsTotal.WithLabelValues(string(from), string(target), "rejected").Inc()
		return nil, err
	}
	if err := s.orders.UpdateStatus(ctx, id, from, target, order.DeliveredAt); err != nil {
		orderTransitionsTotal.WithLabelValues(string(from), string(target), "error").Inc()
		return nil, fmt.Errorf("update order status: %w", err)
	}
	orderTransitionsTotal.WithLabelValues(string(from), string(target), "ok").Inc()

	if target == domain.OrderStatusDelivered {
		s.releaseStock(ctx, order)
	}

	s.logger.InfoContext(ctx, "order status changed",
		slog.String("order_id", id),
		slog.String("from", string(from)),
		slog.String("to", string(target)),
	)
	if err := s.producer.OrderStatusChanged(ctx, order, from); err != nil {
		logPublishFailure(ctx, s.logger, event.TopicOrderStatusChanged, id, err)
	}
	return order, nil
}

// releaseStock decrements stock for each line item. The status change is
// already committed, so failures are logged rather than returned.
func (s *OrderService) releaseStock(ctx context.Context, order *domain.Order) {
	for _, item := range order.OrderItems {
		change, err := s.products.DecrementStock(ctx, item.ProductID, item.Quantity)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
			s.logger.WarnContext(ctx, "ordered product no longer exists, stock not decremented",
				slog.String("order_id", order.ID),
				slog.String("product_id", item.ProductID),
			)
		case err != nil:
			s.logger.ErrorContext(ctx, "failed to decrement stock",
				slog.String("order_id", order.ID),
				slog.String("product_id", item.ProductID),
				slog.String("error", err.Error()),
			)
		case change.Clamped:
			stockClampsTotal.Inc()
			s.logger.WarnContext(ctx, "stock clamped at zero",
				slog.String("order_id", order.ID),
				slog.String("product_id", item.ProductID),
				slog.Int("stock_before", change.Before),
				slog.Int("quantity", item.Quantity),
			)
		}
	}
}

// ListOrders returns the orders placed by userID.
func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	orders, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// ListAllOrders returns every order and the sum of their total prices.
func (s *OrderService) ListAllOrders(ctx context.Context) (*OrderSummary, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	var total float64
	for _, o := range orders {
		total += o.TotalPrice
	}
	return &OrderSummary{Orders: orders, TotalAmount: math.Round(total*100) / 100}, nil
}

// GetOrder returns an order to its owner or to an admin.
func (s *OrderService) GetOrder(ctx context.Context, id, userID string, admin bool) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !admin && order.UserID != userID {
		return nil, apperrors.Forbidden("not allowed to access this order")
	}
	return order, nil
}

// DeleteOrder removes an order.
func (s *OrderService) DeleteOrder(ctx context.Context, id string) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}

	s.logger.InfoContext(ctx, "order deleted", slog.String("order_id", id))
	if err := s.producer.OrderDeleted(ctx, id); err != nil {
		logPublishFailure(ctx, s.logger, event.TopicOrderDeleted, id, err)
	}
	return nil
}
