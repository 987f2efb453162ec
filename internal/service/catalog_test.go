package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/event"
	"github.com/N1kunj1998/ECOMMERCE/internal/query"
	memrepo "github.com/N1kunj1998/ECOMMERCE/internal/repository/memory"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

func TestListProducts_FilteredAgainstTotal(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 20; i++ {
		category := "Phone"
		if i%4 == 0 {
			category = "Laptop"
		}
		f.seedProduct(t, fmt.Sprintf("p-%02d", i), fmt.Sprintf("Item %d", i), category, 100, 5)
	}

	page, err := f.catalog.ListProducts(context.Background(), query.Parse(url.Values{"category": {"Laptop"}}))
	require.NoError(t, err)

	assert.Len(t, page.Products, 5)
	assert.Equal(t, 5, page.FilteredProductsCount)
	assert.Equal(t, 20, page.ProductsCount)
	assert.Equal(t, query.PageSize, page.ResultPerPage)
}

func TestListProducts_Pagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 10; i++ {
		f.seedProduct(t, fmt.Sprintf("p-%02d", i), fmt.Sprintf("Shoe %d", i), "Footwear", 50, 1)
	}
	f.seedProduct(t, "other", "Hat", "Apparel", 10, 1)

	second, err := f.catalog.ListProducts(context.Background(), query.Parse(url.Values{"keyword": {"shoe"}, "page": {"2"}}))
	require.NoError(t, err)
	assert.Len(t, second.Products, 2)
	assert.Equal(t, 10, second.FilteredProductsCount)
	assert.Equal(t, 11, second.ProductsCount)

	third, err := f.catalog.ListProducts(context.Background(), query.Parse(url.Values{"keyword": {"shoe"}, "page": {"3"}}))
	require.NoError(t, err)
	assert.NotNil(t, third.Products)
	assert.Empty(t, third.Products)

	far, err := f.catalog.ListProducts(context.Background(), query.Parse(url.Values{"page": {"2305843009213693952"}}))
	require.NoError(t, err)
	assert.Empty(t, far.Products)
	assert.Equal(t, 11, far.FilteredProductsCount)
}

func TestListAllProducts_IgnoresPagination(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 12; i++ {
		f.seedProduct(t, fmt.Sprintf("p-%02d", i), "Mug", "Kitchen", 5, 1)
	}

	all, err := f.catalog.ListAllProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 12)
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.GetProduct(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Contains(t, err.Error(), "Product not found with id missing")
}

func TestCreateProduct_UploadsImages(t *testing.T) {
	f := newFixture(t)

	product, err := f.catalog.CreateProduct(context.Background(), "admin-1", CreateProductInput{
		Name:        "  Laptop Pro ",
		Description: "14 inch",
		Price:       1499,
		Category:    "Laptop",
		Stock:       4,
		Images:      []string{dataURI("image/png", "front"), dataURI("image/jpeg", "back")},
	})
	require.NoError(t, err)

	assert.Equal(t, "Laptop Pro", product.Name)
	assert.Equal(t, "admin-1", product.UserID)
	assert.Equal(t, int64(1), product.Version)
	require.Len(t, product.Images, 2)
	for _, img := range product.Images {
		assert.True(t, f.media.Has(img.PublicID))
		assert.Contains(t, img.URL, "http://media.test/media/products/")
	}

	stored, err := f.products.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Images, stored.Images)
	assert.Equal(t, []string{event.TopicProductCreated}, f.events.topics())
}

func TestCreateProduct_InvalidInputUploadsNothing(t *testing.T) {
	f := newFixture(t)

	_, err := f.catalog.CreateProduct(context.Background(), "admin-1", CreateProductInput{
		Name:        "Lamp",
		Description: "Desk lamp",
		Price:       20,
		Category:    "Home",
		Stock:       domain.MaxStock + 1,
		Images:      []string{dataURI("image/png", "x")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Zero(t, f.media.Len())

	_, err = f.catalog.CreateProduct(context.Background(), "admin-1", CreateProductInput{
		Name:        "Lamp",
		Description: "Desk lamp",
		Price:       20,
		Category:    "Home",
		Stock:       1,
		Images:      []string{dataURI("image/png", "x"), "not-a-data-uri"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	assert.Zero(t, f.media.Len())
}

func TestCreateProduct_FailedUploadRollsBack(t *testing.T) {
	storage := new(mockStorage)
	repo := memrepo.NewProductRepository()
	logger := newTestLogger()
	svc := NewCatalogService(repo, storage, event.NewProducer(nil, logger), logger)

	storage.On("Upload", mock.Anything, "products", []byte("one"), "image/png").
		Return(domain.Image{PublicID: "products/one.png", URL: "u1"}, nil).Once()
	storage.On("Upload", mock.Anything, "products", []byte("two"), "image/png").
		Return(domain.Image{}, apperrors.ServiceUnavailable("media service unavailable", errors.New("503"))).Once()
	storage.On("Delete", mock.Anything, "products/one.png").Return(nil).Once()

	_, err := svc.CreateProduct(context.Background(), "admin-1", CreateProductInput{
		Name:        "Camera",
		Description: "Mirrorless",
		Price:       900,
		Category:    "Camera",
		Stock:       2,
		Images:      []string{dataURI("image/png", "one"), dataURI("image/png", "two")},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrServiceUnavail))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	storage.AssertExpectations(t)
}

func TestUpdateProduct_PartialAndImageReplacement(t *testing.T) {
	f := newFixture(t)
	created, err := f.catalog.CreateProduct(context.Background(), "admin-1", CreateProductInput{
		Name:        "Desk",
		Description: "Oak desk",
		Price:       300,
		Category:    "Furniture",
		Stock:       3,
		Images:      []string{dataURI("image/png", "old")},
	})
	require.NoError(t, err)
	oldID := created.Images[0].PublicID

	price := 275.0
	updated, err := f.catalog.UpdateProduct(context.Background(), created.ID, UpdateProductInput{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, 275.0, updated.Price)
	assert.Equal(t, "Desk", updated.Name)
	assert.Equal(t, int64(2), updated.Version)
	assert.True(t, f.media.Has(oldID))

	images := []string{dataURI("image/webp", "new")}
	updated, err = f.catalog.UpdateProduct(context.Background(), created.ID, UpdateProductInput{Images: &images})
	require.NoError(t, err)
	require.Len(t, updated.Images, 1)
	assert.NotEqual(t, oldID, updated.Images[0].PublicID)
	assert.False(t, f.media.Has(oldID))
	assert.True(t, f.media.Has(updated.Images[0].PublicID))
	assert.Equal(t, 1, f.media.Len())

	assert.Equal(t, []string{event.TopicProductCreated, event.TopicProductUpdated, event.TopicProductUpdated}, f.events.topics())
}

func TestUpdateProduct_KeepsReviews(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p-1", "Chair", "Furniture", 80, 2)
	_, err := f.reviews.UpsertReview(context.Background(), UpsertReviewInput{ProductID: "p-1", UserID: "u-1", Name: "Ann", Rating: 4, Comment: "comfy"})
	require.NoError(t, err)

	name := "Office Chair"
	updated, err := f.catalog.UpdateProduct(context.Background(), "p-1", UpdateProductInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Office Chair", updated.Name)
	assert.Equal(t, 1, updated.NumOfReviews)
	assert.Equal(t, 4.0, updated.Ratings)
}

func TestUpdateProduct_Invalid(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p-1", "Chair", "Furniture", 80, 2)

	blank := "   "
	_, err := f.catalog.UpdateProduct(context.Background(), "p-1", UpdateProductInput{Name: &blank})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	_, err = f.catalog.UpdateProduct(context.Background(), "missing", UpdateProductInput{Name: &blank})
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteProduct_RemovesImages(t *testing.T) {
	f := newFixture(t)
	created, err := f.catalog.CreateProduct(context.Background(), "admin-1", CreateProductInput{
		Name:        "Lamp",
		Description: "Floor lamp",
		Price:       60,
		Category:    "Home",
		Stock:       1,
		Images:      []string{dataURI("image/gif", "a"), dataURI("image/gif", "b")},
	})
	require.NoError(t, err)
	require.Equal(t, 2, f.media.Len())

	require.NoError(t, f.catalog.DeleteProduct(context.Background(), created.ID))
	assert.Zero(t, f.media.Len())

	_, err = f.catalog.GetProduct(context.Background(), created.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Contains(t, f.events.topics(), event.TopicProductDeleted)

	err = f.catalog.DeleteProduct(context.Background(), created.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteProduct_MediaFailureKeepsProduct(t *testing.T) {
	storage := new(mockStorage)
	repo := memrepo.NewProductRepository()
	logger := newTestLogger()
	svc := NewCatalogService(repo, storage, event.NewProducer(nil, logger), logger)

	p := &domain.Product{ID: "p-1", Name: "Rug", Description: "Wool", Category: "Home", Images: []domain.Image{{PublicID: "products/rug.png"}}}
	require.NoError(t, repo.Create(context.Background(), p))
	storage.On("Delete", mock.Anything, "products/rug.png").Return(errors.New("timeout")).Once()

	err := svc.DeleteProduct(context.Background(), "p-1")
	require.Error(t, err)

	_, err = repo.GetByID(context.Background(), "p-1")
	assert.NoError(t, err)
	storage.AssertExpectations(t)
}

func TestCatalog_PublishFailureDoesNotFailWrite(t *testing.T) {
	repo := memrepo.NewProductRepository()
	logger := newTestLogger()
	svc := NewCatalogService(repo, nil, event.NewProducer(&eventRecorder{err: errors.New("broker down")}, logger), logger)

	product, err := svc.CreateProduct(context.Background(), "admin-1", CreateProductInput{
		Name:        "Pen",
		Description: "Ballpoint",
		Price:       1,
		Category:    "Office",
		Stock:       10,
	})
	require.NoError(t, err)
	assert.Empty(t, product.Images)
}
