package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/event"
	"github.com/N1kunj1998/ECOMMERCE/internal/media"
	"github.com/N1kunj1998/ECOMMERCE/internal/query"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository"
)

// ProductPage is one page of the public catalog listing.
type ProductPage struct {
	Products              []domain.Product `json:"products"`
	ProductsCount         int              `json:"products_count"`
	FilteredProductsCount int              `json:"filtered_products_count"`
	ResultPerPage         int              `json:"result_per_page"`
}

// CreateProductInput holds the parameters for creating a product. Images are
// base64 data URIs.
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	Category    string
	Stock       int
	Images      []string
}

// UpdateProductInput holds a partial product update. Nil fields are left
// unchanged; a non-nil Images replaces every stored image.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	Stock       *int
	Images      *[]string
}

// CatalogService implements catalog browsing and admin product management.
type CatalogService struct {
	repo     repository.ProductRepository
	media    media.Storage
	producer *event.Producer
	logger   *slog.Logger
	now      func() time.Time
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.ProductRepository, storage media.Storage, producer *event.Producer, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:     repo,
		media:    storage,
		producer: producer,
		logger:   logger,
		now:      time.Now,
	}
}

// ListProducts returns the page of products matching q, the number of
// products matching q and the size of the whole catalog.
func (s *CatalogService) ListProducts(ctx context.Context, q query.ProductQuery) (*ProductPage, error) {
	if len(q.Ignored) > 0 {
		s.logger.DebugContext(ctx, "ignored query parameters",
			slog.String("params", strings.Join(q.Ignored, ",")),
		)
	}

	products, filtered, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}

	return &ProductPage{
		Products:              products,
		ProductsCount:         total,
		FilteredProductsCount: filtered,
		ResultPerPage:         query.PageSize,
	}, nil
}

// ListAllProducts returns the full catalog without search, filters or
// pagination.
func (s *CatalogService) ListAllProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// GetProduct retrieves a product by its ID.
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}

// CreateProduct validates input, uploads its images and stores the product
// on behalf of the acting admin.
func (s *CatalogService) CreateProduct(ctx context.Context, userID string, input CreateProductInput) (*domain.Product, error) {
	product := &domain.Product{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Stock:       input.Stock,
		Images:      []domain.Image{},
		Reviews:     []domain.Review{},
		UserID:      userID,
		CreatedAt:   s.now().UTC(),
	}
	if err := product.Validate(); err != nil {
		return nil, err
	}

	images, err := s.uploadImages(ctx, input.Images)
	if err != nil {
		return nil, err
	}
	product.Images = images

	if err := s.repo.Create(ctx, product); err != nil {
		s.discardImages(ctx, images)
		return nil, fmt.Errorf("create product: %w", err)
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("user_id", userID),
		slog.Int("images", len(images)),
	)
	if err := s.producer.ProductCreated(ctx, product); err != nil {
		logPublishFailure(ctx, s.logger, event.TopicProductCreated, product.ID, err)
	}
	return product, nil
}

// UpdateProduct applies a partial update. When new images are supplied they
// are uploaded first and the old ones are removed from media storage once
// the product has been saved.
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, input UpdateProductInput) (*domain.Product, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	next := *current
	if input.Name != nil {
		next.Name = *input.Name
	}
	if input.Description != nil {
		next.Description = *input.Description
	}
	if input.Price != nil {
		next.Price = *input.Price
	}
	if input.Category != nil {
		next.Category = *input.Category
	}
	if input.Stock != nil {
		next.Stock = *input.Stock
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	var replaced []domain.Image
	if input.Images != nil {
		images, err := s.uploadImages(ctx, *input.Images)
		if err != nil {
			return nil, err
		}
		replaced = current.Images
		next.Images = images
	}

	if err := s.repo.Update(ctx, &next); err != nil {
		if input.Images != nil {
			s.discardImages(ctx, next.Images)
		}
		return nil, fmt.Errorf("update product: %w", err)
	}
	s.discardImages(ctx, replaced)

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", next.ID),
		slog.Int64("version", next.Version),
	)
	if err := s.producer.ProductUpdated(ctx, &next); err != nil {
		logPublishFailure(ctx, s.logger, event.TopicProductUpdated, next.ID, err)
	}
	return &next, nil
}

// DeleteProduct removes every image of the product from media storage and
// then the product itself.
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	for _, publicID := range product.PublicIDs() {
		if err := s.media.Delete(ctx, publicID); err != nil {
			return fmt.Errorf("delete product image %s: %w", publicID, err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))
	if err := s.producer.ProductDeleted(ctx, id); err != nil {
		logPublishFailure(ctx, s.logger, event.TopicProductDeleted, id, err)
	}
	return nil
}

// uploadImages decodes every data URI before uploading any of them. A failed
// upload removes the images already stored.
func (s *CatalogService) uploadImages(ctx context.Context, uris []string) ([]domain.Image, error) {
	type decoded struct {
		data        []byte
		contentType string
	}
	blobs := make([]decoded, 0, len(uris))
	for _, uri := range uris {
		data, contentType, err := media.DecodeDataURI(uri)
		if err != nil {
			return nil, err
		}
		blobs = append(blobs, decoded{data: data, contentType: contentType})
	}

	images := make([]domain.Image, 0, len(blobs))
	for _, b := range blobs {
		img, err := s.media.Upload(ctx, media.ProductsFolder, b.data, b.contentType)
		if err != nil {
			s.discardImages(ctx, images)
			return nil, fmt.Errorf("upload product image: %w", err)
		}
		images = append(images, img)
	}
	return images, nil
}

// discardImages deletes images best-effort; failures leave orphans in media
// storage and are only logged.
func (s *CatalogService) discardImages(ctx context.Context, images []domain.Image) {
	for _, img := range images {
		if err := s.media.Delete(ctx, img.PublicID); err != nil {
			s.logger.WarnContext(ctx, "failed to delete product image",
				slog.String("public_id", img.PublicID),
				slog.String("error", err.Error()),
			)
		}
	}
}
