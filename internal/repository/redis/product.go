// Package redis provides a read-through product cache in front of any
// repository.ProductRepository.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/query"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository"
	"github.com/N1kunj1998/ECOMMERCE/pkg/database"
)

const (
	keyPrefix  = "product:"
	fillPrefix = "product-fill:"

	// fillClaimTTL bounds how long a miss may take to fill its entry.
	fillClaimTTL = 10 * time.Second
)

var errFillSuperseded = errors.New("product cache fill superseded")

// CachedProductRepository caches single-product reads. Every write through
// it evicts the product's entry and cancels any fill in flight, so a read
// that raced a write never caches the older version. Cache failures are
// logged and never fail the call.
type CachedProductRepository struct {
	repository.ProductRepository

	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedProductRepository wraps next with a cache whose entries live for
// ttl.
func NewCachedProductRepository(next repository.ProductRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedProductRepository {
	return &CachedProductRepository{
		ProductRepository: next,
		client:            client,
		ttl:               ttl,
		logger:            logger,
	}
}

var _ repository.ProductRepository = (*CachedProductRepository)(nil)

func key(id string) string { return keyPrefix + id }

func fillKey(id string) string { return fillPrefix + id }

// GetByID serves from the cache when possible and fills it on a miss.
func (r *CachedProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if p, ok := r.lookup(ctx, id); ok {
		return p, nil
	}

	token := r.claimFill(ctx, id)
	p, err := r.ProductRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if token != "" {
		r.store(ctx, p, token)
	}
	return p, nil
}

// Update writes through and evicts the cached entry.
func (r *CachedProductRepository) Update(ctx context.Context, p *domain.Product) error {
	defer r.evict(ctx, p.ID)
	return r.ProductRepository.Update(ctx, p)
}

// Delete writes through and evicts the cached entry.
func (r *CachedProductRepository) Delete(ctx context.Context, id string) error {
	defer r.evict(ctx, id)
	return r.ProductRepository.Delete(ctx, id)
}

// SaveReviews writes through and evicts the cached entry.
func (r *CachedProductRepository) SaveReviews(ctx context.Context, id string, reviews []domain.Review, ratings float64, count int, expectedVersion int64) (int64, error) {
	defer r.evict(ctx, id)
	return r.ProductRepository.SaveReviews(ctx, id, reviews, ratings, count, expectedVersion)
}

// DecrementStock writes through and evicts the cached entry.
func (r *CachedProductRepository) DecrementStock(ctx context.Context, id string, qty int) (repository.StockChange, error) {
	defer r.evict(ctx, id)
	return r.ProductRepository.DecrementStock(ctx, id, qty)
}

// List is never cached.
func (r *CachedProductRepository) List(ctx context.Context, q query.ProductQuery) ([]domain.Product, int, error) {
	return r.ProductRepository.List(ctx, q)
}

func (r *CachedProductRepository) lookup(ctx context.Context, id string) (*domain.Product, bool) {
	ctx, end := database.TraceQuery(ctx, database.SystemRedis, "product_cache.get", "")
	data, err := r.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		end(nil)
		return nil, false
	}
	end(err)
	if err != nil {
		r.logger.WarnContext(ctx, "product cache read failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		r.logger.WarnContext(ctx, "discarding corrupt product cache entry",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		r.evict(ctx, id)
		return nil, false
	}
	return &p, true
}

// claimFill registers a pending fill for id before the backing read. Writes
// delete the claim, which makes the later store a no-op.
func (r *CachedProductRepository) claimFill(ctx context.Context, id string) string {
	token := uuid.NewString()
	if err := r.client.Set(ctx, fillKey(id), token, fillClaimTTL).Err(); err != nil {
		r.logger.WarnContext(ctx, "product cache fill claim failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
		return ""
	}
	return token
}

// store caches p only while token still holds the fill claim.
func (r *CachedProductRepository) store(ctx context.Context, p *domain.Product, token string) {
	data, err := json.Marshal(p)
	if err == nil {
		claim := fillKey(p.ID)
		err = r.client.Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, claim).Result()
			if errors.Is(err, redis.Nil) || (err == nil && current != token) {
				return errFillSuperseded
			}
			if err != nil {
				return err
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key(p.ID), data, r.ttl)
				pipe.Del(ctx, claim)
				return nil
			})
			return err
		}, claim)
	}
	switch {
	case err == nil:
	case errors.Is(err, errFillSuperseded), errors.Is(err, redis.TxFailedErr):
		r.logger.DebugContext(ctx, "product cache fill skipped after concurrent write",
			slog.String("product_id", p.ID),
		)
	default:
		r.logger.WarnContext(ctx, "product cache write failed",
			slog.String("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (r *CachedProductRepository) evict(ctx context.Context, id string) {
	if err := r.client.Del(ctx, key(id), fillKey(id)).Err(); err != nil {
		r.logger.WarnContext(ctx, "product cache eviction failed",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}
}
