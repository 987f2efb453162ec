package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository"
	"github.com/N1kunj1998/ECOMMERCE/pkg/database"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

const orderColumns = `id, user_id, shipping_info, order_items, payment_info, paid_at, items_price, tax_price, shipping_price, total_price, order_status, delivered_at, created_at`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool database.DBTX
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool database.DBTX) *OrderRepository {
	return &OrderRepository{pool: pool}
}

var _ repository.OrderRepository = (*OrderRepository)(nil)

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) (err error) {
	ctx, end := trace(ctx, "orders.insert", "INSERT INTO orders")
	defer func() { end(err) }()

	shippingJSON, err := json.Marshal(o.ShippingInfo)
	if err != nil {
		return fmt.Errorf("marshal shipping info: %w", err)
	}
	itemsJSON, err := json.Marshal(o.OrderItems)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}
	paymentJSON, err := json.Marshal(o.PaymentInfo)
	if err != nil {
		return fmt.Errorf("marshal payment info: %w", err)
	}

	stmt := `
		INSERT INTO orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.pool.Exec(ctx, stmt,
		o.ID, o.UserID, shippingJSON, itemsJSON, paymentJSON, o.PaidAt,
		o.ItemsPrice, o.TaxPrice, o.ShippingPrice, o.TotalPrice,
		string(o.OrderStatus), o.DeliveredAt, o.CreatedAt,
	)
	if err != nil {
		if dup := translateUniqueViolation(err); dup != err {
			return dup
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (_ *domain.Order, err error) {
	ctx, end := trace(ctx, "orders.get", "SELECT FROM orders WHERE id")
	defer func() { end(err) }()

	o, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(repository.ResourceOrder, id)
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// ListByUser returns a user's orders, oldest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) (_ []domain.Order, err error) {
	ctx, end := trace(ctx, "orders.list_by_user", "SELECT FROM orders WHERE user_id")
	defer func() { end(err) }()

	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at, id`, userID)
}

// ListAll returns every order, oldest first.
func (r *OrderRepository) ListAll(ctx context.Context) (_ []domain.Order, err error) {
	ctx, end := trace(ctx, "orders.list_all", "SELECT FROM orders")
	defer func() { end(err) }()

	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at, id`)
}

// UpdateStatus sets the status only while the stored status equals from.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, from, to domain.OrderStatus, deliveredAt *time.Time) (err error) {
	ctx, end := trace(ctx, "orders.update_status", "UPDATE orders SET order_status")
	defer func() { end(err) }()

	stmt := `
		UPDATE orders
		SET order_status = $1, delivered_at = COALESCE($2, delivered_at)
		WHERE id = $3 AND order_status = $4`

	ct, err := r.pool.Exec(ctx, stmt, string(to), deliveredAt, id, string(from))
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if ct.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err = r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check order existence: %w", err)
	}
	if !exists {
		return apperrors.NotFound(repository.ResourceOrder, id)
	}
	return apperrors.Conflict("order status changed concurrently, retry")
}

// Delete removes an order by its ID.
func (r *OrderRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := trace(ctx, "orders.delete", "DELETE FROM orders")
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound(repository.ResourceOrder, id)
	}
	return nil
}

func (r *OrderRepository) queryOrders(ctx context.Context, sql string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order rows: %w", err)
	}
	return orders, nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                                    domain.Order
		status                               string
		shippingJSON, itemsJSON, paymentJSON []byte
	)
	if err := row.Scan(
		&o.ID, &o.UserID, &shippingJSON, &itemsJSON, &paymentJSON, &o.PaidAt,
		&o.ItemsPrice, &o.TaxPrice, &o.ShippingPrice, &o.TotalPrice,
		&status, &o.DeliveredAt, &o.CreatedAt,
	); err != nil {
		return nil, err
	}
	o.OrderStatus = domain.OrderStatus(status)

	if err := unmarshalList(shippingJSON, &o.ShippingInfo); err != nil {
		return nil, fmt.Errorf("unmarshal shipping info: %w", err)
	}
	if err := unmarshalList(itemsJSON, &o.OrderItems); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}
	if err := unmarshalList(paymentJSON, &o.PaymentInfo); err != nil {
		return nil, fmt.Errorf("unmarshal payment info: %w", err)
	}
	if o.OrderItems == nil {
		o.OrderItems = []domain.LineItem{}
	}
	return &o, nil
}
