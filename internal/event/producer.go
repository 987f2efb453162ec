// Package event publishes catalog, review and order domain events.
package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	pkgkafka "github.com/N1kunj1998/ECOMMERCE/pkg/kafka"
)

const (
	TopicProductCreated     = "storefront.product.created"
	TopicProductUpdated     = "storefront.product.updated"
	TopicProductDeleted     = "storefront.product.deleted"
	TopicReviewUpserted     = "storefront.review.upserted"
	TopicReviewDeleted      = "storefront.review.deleted"
	TopicOrderPlaced        = "storefront.order.placed"
	TopicOrderStatusChanged = "storefront.order.status_changed"
	TopicOrderDeleted       = "storefront.order.deleted"
)

const (
	AggregateProduct = "product"
	AggregateOrder   = "order"
)

// Source identifies this service in the event envelope.
const Source = "storefront"

// Publisher is the transport the producer writes envelopes to.
// *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// ProductData is the payload of product.created and product.updated.
type ProductData struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Version  int64   `json:"version"`
}

// DeletedData is the payload of every *.deleted event.
type DeletedData struct {
	ID string `json:"id"`
}

// ReviewData is the payload of review events. Ratings and NumOfReviews are
// the product aggregates after the change.
type ReviewData struct {
	ProductID    string  `json:"product_id"`
	ReviewID     string  `json:"review_id"`
	UserID       string  `json:"user_id,omitempty"`
	Rating       int     `json:"rating,omitempty"`
	Ratings      float64 `json:"ratings"`
	NumOfReviews int     `json:"num_of_reviews"`
}

// OrderPlacedData is the payload of order.placed.
type OrderPlacedData struct {
	ID         string            `json:"id"`
	UserID     string            `json:"user_id"`
	Items      []domain.LineItem `json:"items"`
	TotalPrice float64           `json:"total_price"`
}

// OrderStatusData is the payload of order.status_changed.
type OrderStatusData struct {
	ID          string             `json:"id"`
	From        domain.OrderStatus `json:"from"`
	To          domain.OrderStatus `json:"to"`
	DeliveredAt *time.Time         `json:"delivered_at,omitempty"`
}

// Producer turns domain changes into envelopes on their topics.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a producer over publisher. A nil publisher drops every
// event.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	if publisher == nil {
		publisher = Noop{}
	}
	return &Producer{publisher: publisher, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateType, aggregateID string, data any) error {
	evt, err := pkgkafka.NewEvent(ctx, topic, aggregateType, aggregateID, Source, data)
	if err != nil {
		return err
	}
	if err := p.publisher.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
		slog.String("event_id", evt.EventID),
	)
	return nil
}

func productData(product *domain.Product) ProductData {
	return ProductData{
		ID:       product.ID,
		Name:     product.Name,
		Category: product.Category,
		Price:    product.Price,
		Stock:    product.Stock,
		Version:  product.Version,
	}
}

func (p *Producer) ProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductCreated, AggregateProduct, product.ID, productData(product))
}

func (p *Producer) ProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publish(ctx, TopicProductUpdated, AggregateProduct, product.ID, productData(product))
}

func (p *Producer) ProductDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicProductDeleted, AggregateProduct, id, DeletedData{ID: id})
}

// ReviewUpserted is emitted after a review is added or replaced.
func (p *Producer) ReviewUpserted(ctx context.Context, product *domain.Product, review domain.Review) error {
	return p.publish(ctx, TopicReviewUpserted, AggregateProduct, product.ID, ReviewData{
		ProductID:    product.ID,
		ReviewID:     review.ID,
		UserID:       review.UserID,
		Rating:       review.Rating,
		Ratings:      product.Ratings,
		NumOfReviews: product.NumOfReviews,
	})
}

func (p *Producer) ReviewDeleted(ctx context.Context, product *domain.Product, reviewID string) error {
	return p.publish(ctx, TopicReviewDeleted, AggregateProduct, product.ID, ReviewData{
		ProductID:    product.ID,
		ReviewID:     reviewID,
		Ratings:      product.Ratings,
		NumOfReviews: product.NumOfReviews,
	})
}

func (p *Producer) OrderPlaced(ctx context.Context, order *domain.Order) error {
	return p.publish(ctx, TopicOrderPlaced, AggregateOrder, order.ID, OrderPlacedData{
		ID:         order.ID,
		UserID:     order.UserID,
		Items:      order.OrderItems,
		TotalPrice: order.TotalPrice,
	})
}

func (p *Producer) OrderStatusChanged(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	return p.publish(ctx, TopicOrderStatusChanged, AggregateOrder, order.ID, OrderStatusData{
		ID:          order.ID,
		From:        from,
		To:          order.OrderStatus,
		DeliveredAt: order.DeliveredAt,
	})
}

func (p *Producer) OrderDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicOrderDeleted, AggregateOrder, id, DeletedData{ID: id})
}

// Noop discards events. It backs the producer when no brokers are
// configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, *pkgkafka.Event) error { return nil }
