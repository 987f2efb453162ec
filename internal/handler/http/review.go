package http

import (
	"log/slog"
	"net/http"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
	"github.com/N1kunj1998/ECOMMERCE/internal/service"
	"github.com/N1kunj1998/ECOMMERCE/pkg/httputil"
	"github.com/N1kunj1998/ECOMMERCE/pkg/middleware"
	"github.com/N1kunj1998/ECOMMERCE/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	reviews *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(reviews *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviews: reviews, logger: logger}
}

// UpsertReviewRequest is the JSON request body for writing a review.
type UpsertReviewRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Rating    int    `json:"rating" validate:"required,gte=1,lte=5"`
	Comment   string `json:"comment" validate:"required,max=2000"`
}

type reviewsResponse struct {
	Success bool            `json:"success"`
	Reviews []domain.Review `json:"reviews"`
}

// UpsertReview handles PUT /api/v1/reviews
func (h *ReviewHandler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r, defaultBodyLimit)
	var req UpsertReviewRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	caller := middleware.IdentityFromContext(r.Context())
	product, err := h.reviews.UpsertReview(r.Context(), service.UpsertReviewInput{
		ProductID: req.ProductID,
		UserID:    caller.UserID,
		Name:      caller.Name,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, productResponse{Success: true, Product: product})
}

// ListReviews handles GET /api/v1/reviews?id={productId}
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, r, "id", r.URL.Query().Get("id"))
	if !ok {
		return
	}

	reviews, err := h.reviews.ListReviews(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reviewsResponse{Success: true, Reviews: reviews})
}

// DeleteReview handles DELETE /api/v1/reviews?productId={productId}&id={reviewId}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	productID, ok := httputil.ParseUUID(w, r, "productId", q.Get("productId"))
	if !ok {
		return
	}
	reviewID, ok := httputil.ParseUUID(w, r, "id", q.Get("id"))
	if !ok {
		return
	}

	product, err := h.reviews.DeleteReview(r.Context(), productID, reviewID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, productResponse{Success: true, Product: product})
}
