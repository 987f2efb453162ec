package mongodb

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/query"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

func TestCompileFilter(t *testing.T) {
	q := query.Parse(url.Values{
		"keyword":     {"a.b"},
		"category":    {"Laptop"},
		"price[gte]":  {"10"},
		"price[lte]":  {"20"},
		"ratings[gt]": {"3"},
	})

	got := compileFilter(q)

	want := bson.D{
		{Key: "name", Value: bson.D{{Key: "$regex", Value: `a\.b`}, {Key: "$options", Value: "i"}}},
		{Key: "category", Value: bson.D{{Key: "$eq", Value: "Laptop"}}},
		{Key: "price", Value: bson.D{{Key: "$gte", Value: 10.0}, {Key: "$lte", Value: 20.0}}},
		{Key: "ratings", Value: bson.D{{Key: "$gt", Value: 3.0}}},
	}
	assert.Equal(t, want, got)
}

func TestCompileFilter_Empty(t *testing.T) {
	assert.Equal(t, bson.D{}, compileFilter(query.Parse(url.Values{"page": {"2"}})))
}

func toDoc(t *testing.T, v any) bson.D {
	t.Helper()
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func sampleProduct() domain.Product {
	return domain.Product{
		ID:          "8f14e45f-ceea-467f-a0e6-000000000001",
		Name:        "Trail Shoe",
		Description: "Lightweight",
		Price:       120,
		Category:    "Footwear",
		Stock:       3,
		Images:      []domain.Image{},
		Reviews:     []domain.Review{},
		CreatedAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Version:     1,
	}
}

const productsNS = "test.products"

func TestProductRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("create sets version", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		p := sampleProduct()
		p.Version = 0
		require.NoError(mt, repo.Create(ctx, &p))
		assert.Equal(mt, int64(1), p.Version)
	})

	mt.Run("create duplicate key", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: `E11000 duplicate key error collection: test.products index: name_1 dup key: { name: "Trail Shoe" }`,
		}))

		p := sampleProduct()
		err := repo.Create(ctx, &p)
		require.Error(mt, err)
		assert.True(mt, errors.Is(err, apperrors.ErrDuplicateKey))
		assert.Contains(mt, err.Error(), "Duplicate name entered")
	})

	mt.Run("get by id", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		want := sampleProduct()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, productsNS, mtest.FirstBatch, toDoc(mt.T, want)))

		got, err := repo.GetByID(ctx, want.ID)
		require.NoError(mt, err)
		assert.Equal(mt, want.Name, got.Name)
		assert.Equal(mt, want.CreatedAt, got.CreatedAt.UTC())
	})

	mt.Run("get by id not found", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, productsNS, mtest.FirstBatch))

		_, err := repo.GetByID(ctx, "missing")
		assert.True(mt, errors.Is(err, apperrors.ErrNotFound))
	})

	mt.Run("list counts then pages", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		a, b := sampleProduct(), sampleProduct()
		b.ID, b.Name = "8f14e45f-ceea-467f-a0e6-000000000002", "Road Shoe"
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, productsNS, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(10)}}),
			mtest.CreateCursorResponse(0, productsNS, mtest.FirstBatch, toDoc(mt.T, a), toDoc(mt.T, b)),
		)

		page, filtered, err := repo.List(ctx, query.Parse(url.Values{"category": {"Footwear"}, "page": {"2"}}))
		require.NoError(mt, err)
		assert.Equal(mt, 10, filtered)
		require.Len(mt, page, 2)
		assert.Equal(mt, "Road Shoe", page[1].Name)

		find := mt.GetAllStartedEvents()
		require.Len(mt, find, 2)
		assert.Equal(mt, "find", find[1].CommandName)
		assert.Equal(mt, int64(8), find[1].Command.Lookup("skip").AsInt64())
	})

	mt.Run("save reviews stale version", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, productsNS, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)

		_, err := repo.SaveReviews(ctx, "p1", nil, 0, 0, 3)
		assert.True(mt, errors.Is(err, apperrors.ErrConflict))
	})

	mt.Run("save reviews bumps version", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		v, err := repo.SaveReviews(ctx, "p1", []domain.Review{{ID: "r1", Rating: 5}}, 5, 1, 3)
		require.NoError(mt, err)
		assert.Equal(mt, int64(4), v)
	})

	mt.Run("update missing product", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}),
			mtest.CreateCursorResponse(0, productsNS, mtest.FirstBatch),
		)

		p := sampleProduct()
		err := repo.Update(ctx, &p)
		assert.True(mt, errors.Is(err, apperrors.ErrNotFound))
	})

	mt.Run("decrement stock clamps", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{{Key: "_id", Value: "p1"}, {Key: "stock", Value: 2}}}))

		change, err := repo.DecrementStock(ctx, "p1", 5)
		require.NoError(mt, err)
		assert.Equal(mt, 2, change.Before)
		assert.Equal(mt, 0, change.After)
		assert.True(mt, change.Clamped)
	})

	mt.Run("delete not found", func(mt *mtest.T) {
		repo := NewProductRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}))

		err := repo.Delete(ctx, "missing")
		assert.True(mt, errors.Is(err, apperrors.ErrNotFound))
	})
}

func TestOrderRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ctx := context.Background()

	mt.Run("update status compare and set", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))

		require.NoError(mt, repo.UpdateStatus(ctx, "o1", domain.OrderStatusProcessing, domain.OrderStatusShipped, nil))

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
	})

	mt.Run("update status lost race", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			mtest.CreateCursorResponse(0, "test.orders", mtest.FirstBatch, bson.D{{Key: "n", Value: int32(1)}}),
		)

		err := repo.UpdateStatus(ctx, "o1", domain.OrderStatusProcessing, domain.OrderStatusShipped, nil)
		assert.True(mt, errors.Is(err, apperrors.ErrConflict))
	})

	mt.Run("list by user", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		o := domain.Order{ID: "o1", UserID: "u1", OrderStatus: domain.OrderStatusProcessing, TotalPrice: 495}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.orders", mtest.FirstBatch, toDoc(mt.T, o)))

		orders, err := repo.ListByUser(ctx, "u1")
		require.NoError(mt, err)
		require.Len(mt, orders, 1)
		assert.Equal(mt, 495.0, orders[0].TotalPrice)
	})

	mt.Run("get missing", func(mt *mtest.T) {
		repo := NewOrderRepository(mt.DB)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test.orders", mtest.FirstBatch))

		_, err := repo.GetByID(ctx, "o404")
		assert.True(mt, errors.Is(err, apperrors.ErrNotFound))
	})
}
