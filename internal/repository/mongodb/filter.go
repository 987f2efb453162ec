package mongodb

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/N1kunj1998/ECOMMERCE/internal/query"
)

// compileFilter translates a product query into a bson filter. Predicates on
// the same field are merged into one operator document.
func compileFilter(q query.ProductQuery) bson.D {
	filter := bson.D{}
	if q.Keyword != "" {
		filter = append(filter, bson.E{Key: "name", Value: bson.D{
			{Key: "$regex", Value: regexp.QuoteMeta(q.Keyword)},
			{Key: "$options", Value: "i"},
		}})
	}

	var order []string
	ops := make(map[string]bson.D)
	for _, p := range q.Predicates {
		if _, seen := ops[p.Field]; !seen {
			order = append(order, p.Field)
		}
		ops[p.Field] = append(ops[p.Field], bson.E{Key: "$" + string(p.Op), Value: p.Value})
	}
	for _, field := range order {
		filter = append(filter, bson.E{Key: field, Value: ops[field]})
	}
	return filter
}
