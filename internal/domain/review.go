package domain

import (
	"fmt"

	apperrors "github.com/N1kunj1998/ECOMMERCE/pkg/errors"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// Review is one customer's rating of a product. A user holds at most one
// review per product.
type Review struct {
	ID      string `json:"id" bson:"id"`
	UserID  string `json:"user_id" bson:"user_id"`
	Name    string `json:"name" bson:"name"`
	Rating  int    `json:"rating" bson:"rating"`
	Comment string `json:"comment" bson:"comment"`
}

// ValidateRating rejects ratings outside [MinRating, MaxRating].
func ValidateRating(rating int) error {
	if rating < MinRating || rating > MaxRating {
		return apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", MinRating, MaxRating))
	}
	return nil
}

// AverageRating is the arithmetic mean of the ratings, or 0 for no reviews.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

// UpsertReview returns a new list in which the review by r.UserID has its
// rating and comment replaced in place, or r appended when the user has not
// reviewed yet. The second result reports whether an existing review was
// replaced. The input slice is never modified.
func UpsertReview(reviews []Review, r Review) ([]Review, bool) {
	out := make([]Review, len(reviews), len(reviews)+1)
	copy(out, reviews)

	for i := range out {
		if out[i].UserID == r.UserID {
			out[i].Rating = r.Rating
			out[i].Comment = r.Comment
			return out, true
		}
	}
	return append(out, r), false
}

// RemoveReview returns a new list without the review whose ID is reviewID.
// The second result reports whether anything was removed.
func RemoveReview(reviews []Review, reviewID string) ([]Review, bool) {
	out := make([]Review, 0, len(reviews))
	removed := false
	for _, r := range reviews {
		if r.ID == reviewID {
			removed = true
			continue
		}
		out = append(out, r)
	}
	return out, removed
}
