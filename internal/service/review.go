package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/event"
	"github.com/N1kunj1998/ECOMMERCE/internal/repository"
	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

// UpsertReviewInput holds the parameters for adding or replacing a review.
type UpsertReviewInput struct {
	ProductID string
	UserID    string
	Name      string
	Rating    int
	Comment   string
}

// ReviewService maintains the reviews embedded in products and the rating
// aggregates derived from them.
type ReviewService struct {
	repo     repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// UpsertReview adds the user's review to the product, or replaces the rating
// and comment of the review the user already wrote. The saved product is
// returned with its recomputed aggregates.
func (s *ReviewService) UpsertReview(ctx context.Context, input UpsertReviewInput) (*domain.Product, error) {
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}
	if err := domain.ValidateRating(input.Rating); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Comment) == "" {
		return nil, apperrors.InvalidInput("please enter a review comment")
	}

	product, err := s.repo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for review: %w", err)
	}

	reviews, replaced := domain.UpsertReview(product.Reviews, domain.Review{
		ID:      uuid.NewString(),
		UserID:  input.UserID,
		Name:    input.Name,
		Rating:  input.Rating,
		Comment: input.Comment,
	})
	next, err := s.save(ctx, product, reviews)
	reviewWritesTotal.WithLabelValues("upsert", resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	var saved domain.Review
	for _, r := range next.Reviews {
		if r.UserID == input.UserID {
			saved = r
			break
		}
	}

	s.logger.InfoContext(ctx, "review saved",
		slog.String("product_id", next.ID),
		slog.String("review_id", saved.ID),
		slog.String("user_id", input.UserID),
		slog.Bool("replaced", replaced),
		slog.Int("num_of_reviews", next.NumOfReviews),
	)
	if err := s.producer.ReviewUpserted(ctx, next, saved); err != nil {
		logPublishFailure(ctx, s.logger, event.TopicReviewUpserted, next.ID, err)
	}
	return next, nil
}

// DeleteReview removes the review with reviewID from the product. Deleting a
// review that does not exist leaves the product untouched.
func (s *ReviewService) DeleteReview(ctx context.Context, productID, reviewID string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for review delete: %w", err)
	}

	reviews, removed := domain.RemoveReview(product.Reviews, reviewID)
	if !removed {
		return product, nil
	}

	next, err := s.save(ctx, product, reviews)
	reviewWritesTotal.WithLabelValues("delete", resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("product_id", next.ID),
		slog.String("review_id", reviewID),
		slog.Int("num_of_reviews", next.NumOfReviews),
	)
	if err := s.producer.ReviewDeleted(ctx, next, reviewID); err != nil {
		logPublishFailure(ctx, s.logger, event.TopicReviewDeleted, next.ID, err)
	}
	return next, nil
}

// ListReviews returns every review of the product.
func (s *ReviewService) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product reviews: %w", err)
	}
	if product.Reviews == nil {
		return []domain.Review{}, nil
	}
	return product.Reviews, nil
}

// save persists reviews and their aggregates against the version product was
// read at. A concurrent write in between surfaces as a Conflict.
func (s *ReviewService) save(ctx context.Context, product *domain.Product, reviews []domain.Review) (*domain.Product, error) {
	next := product.WithReviews(reviews)
	if err := next.ValidateAggregates(); err != nil {
		return nil, err
	}

	version, err := s.repo.SaveReviews(ctx, next.ID, next.Reviews, next.Ratings, next.NumOfReviews, product.Version)
	if err != nil {
		return nil, fmt.Errorf("save reviews: %w", err)
	}
	next.Version = version
	return &next, nil
}
