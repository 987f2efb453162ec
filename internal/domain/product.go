package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

// Catalog field limits.
const (
	MaxNameLength = 200
	MaxPrice      = 99_999_999
	MaxStock      = 9_999
)

// Image is a product picture held by the media storage service.
type Image struct {
	PublicID string `json:"public_id" bson:"public_id"`
	URL      string `json:"url" bson:"url"`
}

// Product is a catalog entry. Reviews are embedded; Ratings and NumOfReviews
// are derived from them and must never be written independently.
type Product struct {
	ID           string    `json:"id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Description  string    `json:"description" bson:"description"`
	Price        float64   `json:"price" bson:"price"`
	Ratings      float64   `json:"ratings" bson:"ratings"`
	Images       []Image   `json:"images" bson:"images"`
	Category     string    `json:"category" bson:"category"`
	Stock        int       `json:"stock" bson:"stock"`
	NumOfReviews int       `json:"num_of_reviews" bson:"num_of_reviews"`
	Reviews      []Review  `json:"reviews" bson:"reviews"`
	UserID       string    `json:"user_id" bson:"user_id"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	Version      int64     `json:"version" bson:"version"`
}

// Validate checks the field constraints an admin write must satisfy.
func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return apperrors.InvalidInput("please enter product name")
	case len(p.Name) > MaxNameLength:
		return apperrors.InvalidInput(fmt.Sprintf("product name cannot exceed %d characters", MaxNameLength))
	case strings.TrimSpace(p.Description) == "":
		return apperrors.InvalidInput("please enter product description")
	case p.Price < 0 || p.Price > MaxPrice:
		return apperrors.InvalidInput(fmt.Sprintf("price must be between 0 and %d", MaxPrice))
	case strings.TrimSpace(p.Category) == "":
		return apperrors.InvalidInput("please enter product category")
	case p.Stock < 0 || p.Stock > MaxStock:
		return apperrors.InvalidInput(fmt.Sprintf("stock must be between 0 and %d", MaxStock))
	}
	return p.ValidateAggregates()
}

// ValidateAggregates checks that the derived review fields agree with the
// embedded review list.
func (p *Product) ValidateAggregates() error {
	if p.NumOfReviews != len(p.Reviews) {
		return apperrors.InvalidInput(fmt.Sprintf("num_of_reviews %d does not match %d reviews", p.NumOfReviews, len(p.Reviews)))
	}
	if p.Ratings < 0 || p.Ratings > MaxRating {
		return apperrors.InvalidInput(fmt.Sprintf("ratings %.2f out of range", p.Ratings))
	}
	for _, r := range p.Reviews {
		if err := ValidateRating(r.Rating); err != nil {
			return err
		}
	}
	return nil
}

// WithReviews returns a copy of p carrying reviews and the aggregates
// recomputed from them. p itself is not modified.
func (p Product) WithReviews(reviews []Review) Product {
	p.Reviews = reviews
	p.NumOfReviews = len(reviews)
	p.Ratings = AverageRating(reviews)
	return p
}

// PublicIDs lists the media identifiers of the product's images.
func (p *Product) PublicIDs() []string {
	ids := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		ids = append(ids, img.PublicID)
	}
	return ids
}
