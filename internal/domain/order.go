package domain

import (
	"time"

	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

// OrderStatus is the fulfilment state of an order.
type OrderStatus string

// Order statuses, in lifecycle order.
const (
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusDelivered  OrderStatus = "Delivered"
)

// allowedTransitions maps each status to the single status it may advance
// to. Delivered is terminal.
var allowedTransitions = map[OrderStatus]OrderStatus{
	OrderStatusProcessing: OrderStatusShipped,
	OrderStatusShipped:    OrderStatusDelivered,
}

// IsValid reports whether s is a known status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to target.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	next, ok := allowedTransitions[s]
	return ok && next == target
}

// ShippingInfo is the delivery address captured at checkout.
type ShippingInfo struct {
	Address string `json:"address" bson:"address"`
	City    string `json:"city" bson:"city"`
	State   string `json:"state" bson:"state"`
	Country string `json:"country" bson:"country"`
	PinCode string `json:"pin_code" bson:"pin_code"`
	PhoneNo string `json:"phone_no" bson:"phone_no"`
}

// LineItem is a snapshot of a product at the time it was ordered.
type LineItem struct {
	ProductID string  `json:"product_id" bson:"product_id"`
	Name      string  `json:"name" bson:"name"`
	Price     float64 `json:"price" bson:"price"`
	Quantity  int     `json:"quantity" bson:"quantity"`
	Image     string  `json:"image" bson:"image"`
}

// LineTotal returns price times quantity.
func (li LineItem) LineTotal() float64 {
	return li.Price * float64(li.Quantity)
}

// PaymentInfo is the opaque payment gateway reference.
type PaymentInfo struct {
	ID     string `json:"id" bson:"id"`
	Status string `json:"status" bson:"status"`
}

// Order is a placed order. Only OrderStatus and DeliveredAt change after
// creation.
type Order struct {
	ID            string       `json:"id" bson:"_id"`
	ShippingInfo  ShippingInfo `json:"shipping_info" bson:"shipping_info"`
	OrderItems    []LineItem   `json:"order_items" bson:"order_items"`
	UserID        string       `json:"user_id" bson:"user_id"`
	PaymentInfo   PaymentInfo  `json:"payment_info" bson:"payment_info"`
	PaidAt        time.Time    `json:"paid_at" bson:"paid_at"`
	ItemsPrice    float64      `json:"items_price" bson:"items_price"`
	TaxPrice      float64      `json:"tax_price" bson:"tax_price"`
	ShippingPrice float64      `json:"shipping_price" bson:"shipping_price"`
	TotalPrice    float64      `json:"total_price" bson:"total_price"`
	OrderStatus   OrderStatus  `json:"order_status" bson:"order_status"`
	DeliveredAt   *time.Time   `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	CreatedAt     time.Time    `json:"created_at" bson:"created_at"`
}

// Advance moves the order to target, stamping DeliveredAt when target is
// Delivered. Any other move is rejected and the order is left unchanged.
func (o *Order) Advance(target OrderStatus, now time.Time) error {
	if !o.OrderStatus.CanTransitionTo(target) {
		return apperrors.IllegalTransition(string(o.OrderStatus), string(target))
	}
	o.OrderStatus = target
	if target == OrderStatusDelivered {
		delivered := now.UTC()
		o.DeliveredAt = &delivered
	}
	return nil
}
