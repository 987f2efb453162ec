package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/event"
	memmedia "github.com/N1kunj1998/ECOMMERCE/internal/media/memory"
	memrepo "github.com/N1kunj1998/ECOMMERCE/internal/repository/memory"
	"github.com/N1kunj1998/ECOMMERCE/internal/service"
	"github.com/N1kunj1998/ECOMMERCE/pkg/health"
	"github.com/N1kunj1998/ECOMMERCE/pkg/httputil"
	"github.com/N1kunj1998/ECOMMERCE/pkg/middleware"
)

const testSecret = "handler-test-secret"

type testServer struct {
	handler  http.Handler
	products *memrepo.ProductRepository
	verifier *middleware.JWTVerifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	products := memrepo.NewProductRepository()
	orders := memrepo.NewOrderRepository()
	producer := event.NewProducer(nil, logger)
	verifier := middleware.NewJWTVerifier(testSecret, "storefront")

	svcs := Services{
		Catalog: service.NewCatalogService(products, memmedia.New("http://media.test"), producer, logger),
		Reviews: service.NewReviewService(products, producer, logger),
		Orders:  service.NewOrderService(orders, products, domain.DefaultPricing(), producer, logger),
	}
	cfg := RouterConfig{ServiceName: "storefront-test", CORS: middleware.DefaultCORSConfig(), CatalogMaxAge: 60}

	return &testServer{
		handler:  NewRouter(svcs, verifier, health.NewHandler(), cfg, logger),
		products: products,
		verifier: verifier,
	}
}

func (s *testServer) token(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := s.verifier.Issue(middleware.Identity{UserID: userID, Name: "Test " + userID, Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) seed(t *testing.T, name, category string, price float64, stock int) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, s.products.Create(context.Background(), &domain.Product{
		ID:          id,
		Name:        name,
		Description: name,
		Price:       price,
		Category:    category,
		Stock:       stock,
	}))
	return id
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestListProducts(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 20; i++ {
		category := "Phone"
		if i < 5 {
			category = "Laptop"
		}
		s.seed(t, fmt.Sprintf("Item %d", i), category, 100, 1)
	}

	rec := s.do(t, http.MethodGet, "/api/v1/products?category=Laptop&color=red", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=60", rec.Header().Get("Cache-Control"))
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(20), body["products_count"])
	assert.Equal(t, float64(5), body["filtered_products_count"])
	assert.Equal(t, float64(8), body["result_per_page"])
	assert.Len(t, body["products"], 5)
}

func TestGetProduct(t *testing.T) {
	s := newTestServer(t)
	id := s.seed(t, "Tablet", "Tablet", 300, 2)

	rec := s.do(t, http.MethodGet, "/api/v1/products/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[productResponse](t, rec)
	assert.Equal(t, "Tablet", body.Product.Name)

	rec = s.do(t, http.MethodGet, "/api/v1/products/not-an-id", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode[httputil.ErrorEnvelope](t, rec)
	assert.Equal(t, "Resource not found, Invalid: id", env.Error.Message)

	rec = s.do(t, http.MethodGet, "/api/v1/products/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "NOT_FOUND", decode[httputil.ErrorEnvelope](t, rec).Error.Code)
}

func TestAdminProducts_Authorization(t *testing.T) {
	s := newTestServer(t)
	body := CreateProductRequest{Name: "Phone", Description: "5G", Price: 500, Category: "Phone", Stock: 3}

	rec := s.do(t, http.MethodPost, "/api/v1/admin/products", "", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/products", s.token(t, "u-1", "user"), body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "role: user is not allowed to access this resource", decode[httputil.ErrorEnvelope](t, rec).Error.Message)

	rec = s.do(t, http.MethodPost, "/api/v1/admin/products", s.token(t, "admin-1", middleware.RoleAdmin), body)
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[productResponse](t, rec)
	assert.Equal(t, "admin-1", created.Product.UserID)
}

func TestAdminProducts_Lifecycle(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin-1", middleware.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/v1/admin/products", admin, CreateProductRequest{
		Name:        "Camera",
		Description: "Mirrorless",
		Price:       900,
		Category:    "Camera",
		Stock:       2,
		Images:      []string{"data:image/png;base64,aGVsbG8="},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[productResponse](t, rec).Product
	require.Len(t, created.Images, 1)

	rec = s.do(t, http.MethodPut, "/api/v1/admin/products/"+created.ID, admin, map[string]any{"price": 850})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 850.0, decode[productResponse](t, rec).Product.Price)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/products", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[productsResponse](t, rec).Products, 1)

	rec = s.do(t, http.MethodDelete, "/api/v1/admin/products/"+created.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/api/v1/admin/products/"+created.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateProduct_Validation(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, "admin-1", middleware.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/v1/admin/products", admin, map[string]any{"price": -1})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode[httputil.ErrorEnvelope](t, rec)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Equal(t, "is required", env.Error.Fields["name"])
	assert.Contains(t, env.Error.Fields, "price")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewBufferString(`name=x`))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestReviews(t *testing.T) {
	s := newTestServer(t)
	productID := s.seed(t, "Speaker", "Audio", 80, 4)
	user := s.token(t, "u-1", "user")
	admin := s.token(t, "admin-1", middleware.RoleAdmin)

	rec := s.do(t, http.MethodPut, "/api/v1/reviews", user, UpsertReviewRequest{ProductID: productID, Rating: 9, Comment: "loud"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "must be less than or equal to 5", decode[httputil.ErrorEnvelope](t, rec).Error.Fields["rating"])

	rec = s.do(t, http.MethodPut, "/api/v1/reviews", user, UpsertReviewRequest{ProductID: productID, Rating: 4, Comment: "loud"})
	require.Equal(t, http.StatusOK, rec.Code)
	product := decode[productResponse](t, rec).Product
	assert.Equal(t, 1, product.NumOfReviews)
	assert.Equal(t, "Test u-1", product.Reviews[0].Name)

	rec = s.do(t, http.MethodGet, "/api/v1/reviews?id="+productID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	reviews := decode[reviewsResponse](t, rec).Reviews
	require.Len(t, reviews, 1)

	path := fmt.Sprintf("/api/v1/reviews?productId=%s&id=%s", productID, reviews[0].ID)
	rec = s.do(t, http.MethodDelete, path, user, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	product = decode[productResponse](t, rec).Product
	assert.Zero(t, product.NumOfReviews)
	assert.Zero(t, product.Ratings)
}

func validOrder(productIDs ...string) PlaceOrderRequest {
	req := PlaceOrderRequest{
		ShippingInfo: ShippingInfoRequest{Address: "1 Main St", City: "Pune", State: "MH", Country: "IN", PinCode: "411001", PhoneNo: "9876543210"},
		PaymentInfo:  PaymentInfoRequest{ID: "pi_1", Status: "succeeded"},
	}
	prices := []float64{100, 50}
	qtys := []int{2, 1}
	for i, id := range productIDs {
		req.OrderItems = append(req.OrderItems, LineItemRequest{ProductID: id, Name: fmt.Sprintf("item %d", i), Price: prices[i], Quantity: qtys[i]})
	}
	return req
}

func TestOrders(t *testing.T) {
	s := newTestServer(t)
	p1 := s.seed(t, "Mouse", "Accessories", 100, 5)
	p2 := s.seed(t, "Pad", "Accessories", 50, 5)
	user := s.token(t, "u-1", "user")
	other := s.token(t, "u-2", "user")
	admin := s.token(t, "admin-1", middleware.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/api/v1/orders", user, validOrder(p1, p2))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	order := decode[orderResponse](t, rec).Order
	assert.Equal(t, 250.0, order.ItemsPrice)
	assert.Equal(t, 45.0, order.TaxPrice)
	assert.Equal(t, 200.0, order.ShippingPrice)
	assert.Equal(t, 495.0, order.TotalPrice)
	assert.Equal(t, domain.OrderStatusProcessing, order.OrderStatus)

	rec = s.do(t, http.MethodGet, "/api/v1/orders/me", user, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[ordersResponse](t, rec).Orders, 1)

	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, other, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, admin, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPut, "/api/v1/admin/orders/"+order.ID, admin, AdvanceStatusRequest{Status: "Delivered"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decode[httputil.ErrorEnvelope](t, rec)
	assert.Equal(t, "ILLEGAL_TRANSITION", env.Error.Code)
	assert.Equal(t, "cannot transition from Processing to Delivered", env.Error.Message)

	rec = s.do(t, http.MethodPut, "/api/v1/admin/orders/"+order.ID, admin, AdvanceStatusRequest{Status: "Shipped"})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodPut, "/api/v1/admin/orders/"+order.ID, admin, AdvanceStatusRequest{Status: "Delivered"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[orderResponse](t, rec).Order.DeliveredAt)

	stock, err := s.products.GetByID(context.Background(), p1)
	require.NoError(t, err)
	assert.Equal(t, 3, stock.Stock)

	rec = s.do(t, http.MethodGet, "/api/v1/admin/orders", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := decode[map[string]any](t, rec)
	assert.Equal(t, 495.0, summary["total_amount"])

	rec = s.do(t, http.MethodDelete, "/api/v1/admin/orders/"+order.ID, admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/api/v1/orders/"+order.ID, admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlaceOrder_Validation(t *testing.T) {
	s := newTestServer(t)
	user := s.token(t, "u-1", "user")

	req := validOrder(uuid.NewString())
	req.OrderItems[0].Quantity = 0
	req.ShippingInfo.PhoneNo = "12"

	rec := s.do(t, http.MethodPost, "/api/v1/orders", user, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode[httputil.ErrorEnvelope](t, rec).Error.Fields
	assert.Contains(t, fields, "order_items[0].quantity")
	assert.Contains(t, fields, "shipping_info.phone_no")

	rec = s.do(t, http.MethodPost, "/api/v1/orders", user, PlaceOrderRequest{ShippingInfo: req.ShippingInfo, PaymentInfo: req.PaymentInfo})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.CorrelationHeader))

	rec = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	s.do(t, http.MethodGet, "/api/v1/products", "", nil)
	rec = s.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
