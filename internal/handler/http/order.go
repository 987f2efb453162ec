package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/service"
	"github.com/N1kunj1998/ECOMMERCE/pkg/httputil"
	"github.com/N1kunj1998/ECOMMERCE/pkg/middleware"
	"github.com/N1kunj1998/ECOMMERCE/pkg/validator"
)

// OrderHandler handles HTTP requests for order endpoints.
type OrderHandler struct {
	orders *service.OrderService
	logger *slog.Logger
}

// NewOrderHandler creates a new order HTTP handler.
func NewOrderHandler(orders *service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, logger: logger}
}

// --- Request DTOs ---

type ShippingInfoRequest struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	Country string `json:"country" validate:"required"`
	PinCode string `json:"pin_code" validate:"required,numeric"`
	PhoneNo string `json:"phone_no" validate:"required,numeric,min=10,max=15"`
}

type LineItemRequest struct {
	ProductID string  `json:"product_id" validate:"required,uuid"`
	Name      string  `json:"name" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"required,gte=1"`
	Image     string  `json:"image"`
}

type PaymentInfoRequest struct {
	ID     string `json:"id" validate:"required"`
	Status string `json:"status" validate:"required"`
}

// PlaceOrderRequest is the JSON request body for placing an order.
type PlaceOrderRequest struct {
	ShippingInfo ShippingInfoRequest `json:"shipping_info" validate:"required"`
	OrderItems   []LineItemRequest   `json:"order_items" validate:"required,min=1,dive"`
	PaymentInfo  PaymentInfoRequest  `json:"payment_info" validate:"required"`
}

// AdvanceStatusRequest is the JSON request body for moving an order along.
type AdvanceStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Processing Shipped Delivered"`
}

// --- Responses ---

type orderResponse struct {
	Success bool          `json:"success"`
	Order   *domain.Order `json:"order"`
}

type ordersResponse struct {
	Success bool           `json:"success"`
	Orders  []domain.Order `json:"orders"`
}

type orderSummaryResponse struct {
	Success bool `json:"success"`
	*service.OrderSummary
}

// --- Handlers ---

// PlaceOrder handles POST /api/v1/orders
func (h *OrderHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r, defaultBodyLimit)
	var req PlaceOrderRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	items := make([]domain.LineItem, len(req.OrderItems))
	for i, item := range req.OrderItems {
		items[i] = domain.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Image:     item.Image,
		}
	}

	order, err := h.orders.PlaceOrder(r.Context(), service.PlaceOrderInput{
		UserID:       middleware.IdentityFromContext(r.Context()).UserID,
		ShippingInfo: domain.ShippingInfo(req.ShippingInfo),
		Items:        items,
		PaymentInfo:  domain.PaymentInfo(req.PaymentInfo),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, orderResponse{Success: true, Order: order})
}

// ListMyOrders handles GET /api/v1/orders/me
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.ListOrders(r.Context(), middleware.IdentityFromContext(r.Context()).UserID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ordersResponse{Success: true, Orders: orders})
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	caller := middleware.IdentityFromContext(r.Context())
	order, err := h.orders.GetOrder(r.Context(), id, caller.UserID, caller.IsAdmin())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orderResponse{Success: true, Order: order})
}

// ListAllOrders handles GET /api/v1/admin/orders
func (h *OrderHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	summary, err := h.orders.ListAllOrders(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orderSummaryResponse{Success: true, OrderSummary: summary})
}

// AdvanceStatus handles PUT /api/v1/admin/orders/{id}
func (h *OrderHandler) AdvanceStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	limitBody(w, r, defaultBodyLimit)
	var req AdvanceStatusRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	order, err := h.orders.AdvanceStatus(r.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, orderResponse{Success: true, Order: order})
}

// DeleteOrder handles DELETE /api/v1/admin/orders/{id}
func (h *OrderHandler) DeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParseUUID(w, r, "id", chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.orders.DeleteOrder(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Success: true, Message: "Order deleted successfully"})
}
