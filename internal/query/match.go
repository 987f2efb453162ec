package query

import (
	"strings"

	"github.com/N1kunj1998/ECOMMERCE/internal/domain"
)

// Matcher is a ProductQuery compiled for in-process evaluation.
type Matcher func(p *domain.Product) bool

// Compile builds a Matcher for the keyword and predicates of q. Pagination
// is not part of the match.
func (q ProductQuery) Compile() Matcher {
	keyword := strings.ToLower(q.Keyword)
	preds := append([]Predicate(nil), q.Predicates...)

	return func(p *domain.Product) bool {
		if keyword != "" && !strings.Contains(strings.ToLower(p.Name), keyword) {
			return false
		}
		for _, pred := range preds {
			if !pred.holds(p) {
				return false
			}
		}
		return true
	}
}

func (p Predicate) holds(prod *domain.Product) bool {
	switch p.Field {
	case "category":
		s, ok := p.Value.(string)
		return ok && prod.Category == s
	case "price":
		return compare(prod.Price, p.Op, toFloat(p.Value))
	case "ratings":
		return compare(prod.Ratings, p.Op, toFloat(p.Value))
	case "stock":
		return compare(float64(prod.Stock), p.Op, toFloat(p.Value))
	case "num_of_reviews":
		return compare(float64(prod.NumOfReviews), p.Op, toFloat(p.Value))
	}
	return false
}

func compare(actual float64, op Op, want float64) bool {
	switch op {
	case OpEq:
		return actual == want
	case OpGt:
		return actual > want
	case OpGte:
		return actual >= want
	case OpLt:
		return actual < want
	case OpLte:
		return actual <= want
	}
	return false
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	}
	return 0
}
