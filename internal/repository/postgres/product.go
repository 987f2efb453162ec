package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/query"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository"
	"github.com/N1kunj1998/ECOMMERCE/pkg/database"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

const productColumns = `id, name, description, price, ratings, images, category, stock, num_of_reviews, reviews, user_id, created_at, version`

// Filterable columns. Keys match query field names.
var filterColumns = map[string]string{
	"category":       "category",
	"price":          "price",
	"ratings":        "ratings",
	"stock":          "stock",
	"num_of_reviews": "num_of_reviews",
}

var sqlOps = map[query.Op]string{
	query.OpEq:  "=",
	query.OpGt:  ">",
	query.OpGte: ">=",
	query.OpLt:  "<",
	query.OpLte: "<=",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

var _ repository.ProductRepository = (*ProductRepository)(nil)

// compileWhere builds the WHERE clause and its positional arguments.
func compileWhere(q query.ProductQuery) (string, []any) {
	var (
		conditions []string
		args       []any
	)
	if q.Keyword != "" {
		args = append(args, "%"+likeEscaper.Replace(q.Keyword)+"%")
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", len(args)))
	}
	for _, p := range q.Predicates {
		col, ok := filterColumns[p.Field]
		if !ok {
			continue
		}
		op, ok := sqlOps[p.Op]
		if !ok {
			continue
		}
		args = append(args, p.Value)
		conditions = append(conditions, fmt.Sprintf("%s %s $%d", col, op, len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// Create inserts a new product with version 1.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := trace(ctx, "products.insert", "INSERT INTO products")
	defer func() { end(err) }()

	imagesJSON, reviewsJSON, err := marshalLists(p.Images, p.Reviews)
	if err != nil {
		return err
	}

	stmt := `
		INSERT INTO products (id, name, description, price, ratings, images, category, stock, num_of_reviews, reviews, user_id, created_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)`

	_, err = r.pool.Exec(ctx, stmt,
		p.ID, p.Name, p.Description, p.Price, p.Ratings, imagesJSON,
		p.Category, p.Stock, p.NumOfReviews, reviewsJSON, p.UserID, p.CreatedAt,
	)
	if err != nil {
		if dup := translateUniqueViolation(err); dup != err {
			return dup
		}
		return fmt.Errorf("insert product: %w", err)
	}
	p.Version = 1
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (_ *domain.Product, err error) {
	ctx, end := trace(ctx, "products.get", "SELECT FROM products WHERE id")
	defer func() { end(err) }()

	p, err := scanProduct(r.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound(repository.ResourceProduct, id)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// Update replaces the catalog fields when the stored version matches.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	ctx, end := trace(ctx, "products.update", "UPDATE products")
	defer func() { end(err) }()

	imagesJSON, err := json.Marshal(nonNilImages(p.Images))
	if err != nil {
		return fmt.Errorf("marshal images: %w", err)
	}

	stmt := `
		UPDATE products
		SET name = $1, description = $2, price = $3, category = $4, stock = $5, images = $6, version = version + 1
		WHERE id = $7 AND version = $8
		RETURNING ` + productColumns

	updated, err := scanProduct(r.pool.QueryRow(ctx, stmt,
		p.Name, p.Description, p.Price, p.Category, p.Stock, imagesJSON, p.ID, p.Version,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missOrConflict(ctx, p.ID)
		}
		if dup := translateUniqueViolation(err); dup != err {
			return dup
		}
		return fmt.Errorf("update product: %w", err)
	}
	*p = *updated
	return nil
}

// Delete removes a product by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, end := trace(ctx, "products.delete", "DELETE FROM products")
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound(repository.ResourceProduct, id)
	}
	return nil
}

// List runs the compiled WHERE clause twice: once for the filtered count and
// once for the requested page.
func (r *ProductRepository) List(ctx context.Context, q query.ProductQuery) (_ []domain.Product, _ int, err error) {
	ctx, end := trace(ctx, "products.list", "SELECT FROM products")
	defer func() { end(err) }()

	where, args := compileWhere(q)

	var filtered int
	if err = r.pool.QueryRow(ctx, `SELECT count(*) FROM products `+where, args...).Scan(&filtered); err != nil {
		return nil, 0, fmt.Errorf("count filtered products: %w", err)
	}

	w := q.Window()
	pageArgs := append(append([]any(nil), args...), w.Size, w.Offset)
	sql := fmt.Sprintf(`SELECT %s FROM products %s ORDER BY created_at, id LIMIT $%d OFFSET $%d`,
		productColumns, where, len(args)+1, len(args)+2)

	products, err := r.queryProducts(ctx, sql, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return products, filtered, nil
}

// Count returns the number of products.
func (r *ProductRepository) Count(ctx context.Context) (_ int, err error) {
	ctx, end := trace(ctx, "products.count", "SELECT count(*) FROM products")
	defer func() { end(err) }()

	var n int
	if err = r.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return n, nil
}

// ListAll returns every product.
func (r *ProductRepository) ListAll(ctx context.Context) (_ []domain.Product, err error) {
	ctx, end := trace(ctx, "products.list_all", "SELECT FROM products")
	defer func() { end(err) }()

	return r.queryProducts(ctx, `SELECT `+productColumns+` FROM products ORDER BY created_at, id`)
}

// SaveReviews writes the review list and aggregates guarded by version.
func (r *ProductRepository) SaveReviews(ctx context.Context, id string, reviews []domain.Review, ratings float64, count int, expectedVersion int64) (_ int64, err error) {
	ctx, end := trace(ctx, "products.save_reviews", "UPDATE products SET reviews")
	defer func() { end(err) }()

	reviewsJSON, err := json.Marshal(nonNilReviews(reviews))
	if err != nil {
		return 0, fmt.Errorf("marshal reviews: %w", err)
	}

	stmt := `
		UPDATE products
		SET reviews = $1, ratings = $2, num_of_reviews = $3, version = version + 1
		WHERE id = $4 AND version = $5
		RETURNING version`

	var version int64
	err = r.pool.QueryRow(ctx, stmt, reviewsJSON, ratings, count, id, expectedVersion).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, r.missOrConflict(ctx, id)
		}
		return 0, fmt.Errorf("save reviews: %w", err)
	}
	return version, nil
}

// DecrementStock lowers stock by qty, clamping at zero, and reports the
// stock observed under the row lock.
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, qty int) (_ repository.StockChange, err error) {
	ctx, end := trace(ctx, "products.decrement_stock", "UPDATE products SET stock")
	defer func() { end(err) }()

	stmt := `
		UPDATE products p
		SET stock = GREATEST(p.stock - $2, 0), version = p.version + 1
		FROM (SELECT id, stock FROM products WHERE id = $1 FOR UPDATE) old
		WHERE p.id = old.id
		RETURNING old.stock`

	var before int
	if err = r.pool.QueryRow(ctx, stmt, id, qty).Scan(&before); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.StockChange{}, apperrors.NotFound(repository.ResourceProduct, id)
		}
		return repository.StockChange{}, fmt.Errorf("decrement stock: %w", err)
	}

	change := repository.StockChange{Before: before, After: before - qty}
	if change.After < 0 {
		change.After = 0
		change.Clamped = true
	}
	return change, nil
}

func (r *ProductRepository) missOrConflict(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check product existence: %w", err)
	}
	if !exists {
		return apperrors.NotFound(repository.ResourceProduct, id)
	}
	return apperrors.Conflict("product was modified concurrently, retry")
}

func (r *ProductRepository) queryProducts(ctx context.Context, sql string, args ...any) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var (
		p                       domain.Product
		imagesJSON, reviewsJSON []byte
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Ratings, &imagesJSON,
		&p.Category, &p.Stock, &p.NumOfReviews, &reviewsJSON, &p.UserID, &p.CreatedAt, &p.Version,
	); err != nil {
		return nil, err
	}
	if err := unmarshalList(imagesJSON, &p.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}
	if err := unmarshalList(reviewsJSON, &p.Reviews); err != nil {
		return nil, fmt.Errorf("unmarshal reviews: %w", err)
	}
	p.Images = nonNilImages(p.Images)
	p.Reviews = nonNilReviews(p.Reviews)
	return &p, nil
}

func marshalLists(images []domain.Image, reviews []domain.Review) ([]byte, []byte, error) {
	imagesJSON, err := json.Marshal(nonNilImages(images))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal images: %w", err)
	}
	reviewsJSON, err := json.Marshal(nonNilReviews(reviews))
	if err != nil {
		return nil, nil, fmt.Errorf("marshal reviews: %w", err)
	}
	return imagesJSON, reviewsJSON, nil
}

func unmarshalList(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

func nonNilImages(v []domain.Image) []domain.Image {
	if v == nil {
		return []domain.Image{}
	}
	return v
}

func nonNilReviews(v []domain.Review) []domain.Review {
	if v == nil {
		return []domain.Review{}
	}
	return v
}
