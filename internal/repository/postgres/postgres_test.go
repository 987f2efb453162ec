package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/query"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

var now = time.Date(2026, 2, 10, 9, 30, 0, 0, time.UTC)

var productCols = []string{
	"id", "name", "description", "price", "ratings", "images", "category",
	"stock", "num_of_reviews", "reviews", "user_id", "created_at", "version",
}

func sampleProduct() domain.Product {
	return domain.Product{
		ID:           "8f14e45f-ceea-467f-a0e6-000000000001",
		Name:         "Laptop Pro",
		Description:  "14 inch",
		Price:        1499,
		Ratings:      4,
		Images:       []domain.Image{{PublicID: "products/abc", URL: "https://cdn/abc"}},
		Category:     "Laptop",
		Stock:        3,
		NumOfReviews: 1,
		Reviews:      []domain.Review{{ID: "r1", UserID: "u1", Name: "Ann", Rating: 4, Comment: "good"}},
		UserID:       "admin-1",
		CreatedAt:    now,
		Version:      2,
	}
}

func productRow(t *testing.T, p domain.Product) []any {
	t.Helper()
	images, err := json.Marshal(p.Images)
	require.NoError(t, err)
	reviews, err := json.Marshal(p.Reviews)
	require.NoError(t, err)
	return []any{
		p.ID, p.Name, p.Description, p.Price, p.Ratings, images, p.Category,
		p.Stock, p.NumOfReviews, reviews, p.UserID, p.CreatedAt, p.Version,
	}
}

func TestCompileWhere(t *testing.T) {
	q := query.Parse(url.Values{
		"keyword":    {"50%_off"},
		"category":   {"Laptop"},
		"price[gte]": {"100"},
	})

	where, args := compileWhere(q)

	assert.Equal(t, "WHERE name ILIKE $1 AND category = $2 AND price >= $3", where)
	assert.Equal(t, []any{`%50\%\_off%`, "Laptop", 100.0}, args)
}

func TestCompileWhere_Empty(t *testing.T) {
	where, args := compileWhere(query.ProductQuery{})
	assert.Empty(t, where)
	assert.Empty(t, args)
}

func TestProductRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	p := sampleProduct()
	p.Version = 0

	mock.ExpectExec("INSERT INTO products").
		WithArgs(p.ID, p.Name, p.Description, p.Price, p.Ratings, pgxmock.AnyArg(),
			p.Category, p.Stock, p.NumOfReviews, pgxmock.AnyArg(), p.UserID, p.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Create(context.Background(), &p))
	assert.Equal(t, int64(1), p.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_UniqueViolation(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	p := sampleProduct()

	mock.ExpectExec("INSERT INTO products").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", TableName: "products", ConstraintName: "products_name_key"})

	err := repo.Create(context.Background(), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "Duplicate name entered")
}

func TestProductRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	p := sampleProduct()

	mock.ExpectQuery("SELECT .+ FROM products WHERE id = \\$1").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(t, p)...))

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, *got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_List(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	p := sampleProduct()

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM products WHERE category = \\$1").
		WithArgs("Laptop").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(9))
	mock.ExpectQuery("SELECT .+ FROM products WHERE category = \\$1 ORDER BY created_at, id LIMIT \\$2 OFFSET \\$3").
		WithArgs("Laptop", 8, 8).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(t, p)...))

	products, filtered, err := repo.List(context.Background(), query.Parse(url.Values{"category": {"Laptop"}, "page": {"2"}}))
	require.NoError(t, err)
	assert.Equal(t, 9, filtered)
	require.Len(t, products, 1)
	assert.Equal(t, p.Reviews, products[0].Reviews)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Count(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM products").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(20))

	n, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 20, n)
}

func TestProductRepository_SaveReviews(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("UPDATE products").
		WithArgs(pgxmock.AnyArg(), 4.5, 2, "p1", int64(3)).
		WillReturnRows(pgxmock.NewRows([]string{"version"}).AddRow(int64(4)))

	v, err := repo.SaveReviews(context.Background(), "p1", []domain.Review{{Rating: 4}, {Rating: 5}}, 4.5, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(4), v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_SaveReviews_Conflict(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("UPDATE products").
		WithArgs(pgxmock.AnyArg(), 0.0, 0, "p1", int64(3)).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("p1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.SaveReviews(context.Background(), "p1", nil, 0, 0, 3)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_Missing(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)
	p := sampleProduct()

	mock.ExpectQuery("UPDATE products").
		WithArgs(p.Name, p.Description, p.Price, p.Category, p.Stock, pgxmock.AnyArg(), p.ID, p.Version).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.Update(context.Background(), &p)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTranslateUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", TableName: "products", ConstraintName: "products_pkey"}
	err := translateUniqueViolation(pgErr)
	assert.ErrorIs(t, err, apperrors.ErrDuplicateKey)
	assert.Contains(t, err.Error(), "Duplicate id entered")

	other := &pgconn.PgError{Code: "23503"}
	assert.Same(t, other, translateUniqueViolation(other))

	// Only a *pgconn.PgError carries a SQLSTATE.
	plain := errors.New("driver said 23505")
	assert.Same(t, plain, translateUniqueViolation(plain))
	assert.NoError(t, translateUniqueViolation(nil))
}

func TestProductRepository_DecrementStock(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectQuery("UPDATE products p").
		WithArgs("p1", 5).
		WillReturnRows(pgxmock.NewRows([]string{"stock"}).AddRow(3))

	change, err := repo.DecrementStock(context.Background(), "p1", 5)
	require.NoError(t, err)
	assert.Equal(t, 3, change.Before)
	assert.Equal(t, 0, change.After)
	assert.True(t, change.Clamped)
}

func TestProductRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewProductRepository(mock)

	mock.ExpectExec("DELETE FROM products").
		WithArgs("p1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "p1"), apperrors.ErrNotFound)
}

var orderCols = []string{
	"id", "user_id", "shipping_info", "order_items", "payment_info", "paid_at",
	"items_price", "tax_price", "shipping_price", "total_price", "order_status",
	"delivered_at", "created_at",
}

func TestOrderRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	shipping := []byte(`{"address":"1 Main St","city":"Pune","state":"MH","country":"IN","pin_code":"411001","phone_no":"9999999999"}`)
	items := []byte(`[{"product_id":"p1","name":"Laptop Pro","price":125,"quantity":2,"image":"https://cdn/abc"}]`)
	payment := []byte(`{"id":"pay_1","status":"succeeded"}`)

	mock.ExpectQuery("SELECT .+ FROM orders WHERE id = \\$1").
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows(orderCols).AddRow(
			"o1", "u1", shipping, items, payment, now,
			250.0, 45.0, 200.0, 495.0, "Processing", nil, now,
		))

	o, err := repo.GetByID(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, o.OrderStatus)
	assert.Equal(t, "411001", o.ShippingInfo.PinCode)
	require.Len(t, o.OrderItems, 1)
	assert.Equal(t, 2, o.OrderItems[0].Quantity)
	assert.Equal(t, "pay_1", o.PaymentInfo.ID)
	assert.Nil(t, o.DeliveredAt)
	assert.Equal(t, 495.0, o.TotalPrice)
}

func TestOrderRepository_UpdateStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders").
		WithArgs("Shipped", pgxmock.AnyArg(), "o1", "Processing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.UpdateStatus(context.Background(), "o1", domain.OrderStatusProcessing, domain.OrderStatusShipped, nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_UpdateStatus_LostRace(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	delivered := now

	mock.ExpectExec("UPDATE orders").
		WithArgs("Delivered", pgxmock.AnyArg(), "o1", "Shipped").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("o1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.UpdateStatus(context.Background(), "o1", domain.OrderStatusShipped, domain.OrderStatusDelivered, &delivered)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestOrderRepository_Delete_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("DELETE FROM orders").
		WithArgs("o1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), "o1"), apperrors.ErrNotFound)
}

func TestMigrate_SkipsApplied(t *testing.T) {
	mock := newMock(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))
	for _, name := range []string{"001_create_products.up.sql", "002_create_orders.up.sql"} {
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(name).
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	require.NoError(t, Migrate(context.Background(), mock, logger))
	assert.NoError(t, mock.ExpectationsWereMet())
}
