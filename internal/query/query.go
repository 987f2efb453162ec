// Package query turns raw listing parameters into a backend-neutral product
// query: a keyword search, a list of field predicates and a page number.
// Storage adapters compile a ProductQuery into their native filter.
package query

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/N1kunj1998/ECOMMERCE/pkg/pagination"
)

// PageSize is the fixed number of products per listing page.
const PageSize = 8

// Reserved parameters are never turned into predicates.
const (
	ParamKeyword = "keyword"
	ParamPage    = "page"
	ParamLimit   = "limit"
)

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
)

// Kind is the value type of a filterable field.
type Kind int

const (
	KindString Kind = iota
	KindFloat
	KindInt
)

// Filterable product fields and their value kinds. String fields only
// support equality.
var fields = map[string]Kind{
	"category":       KindString,
	"price":          KindFloat,
	"ratings":        KindFloat,
	"stock":          KindInt,
	"num_of_reviews": KindInt,
}

// FieldKind reports the kind of a filterable field.
func FieldKind(field string) (Kind, bool) {
	k, ok := fields[field]
	return k, ok
}

// Predicate is a single field comparison. Value is a string, float64 or int
// according to the field's Kind.
type Predicate struct {
	Field string
	Op    Op
	Value any
}

func (p Predicate) String() string {
	return fmt.Sprintf("%s %s %v", p.Field, p.Op, p.Value)
}

// ProductQuery is the parsed form of a product listing request.
type ProductQuery struct {
	Keyword    string
	Predicates []Predicate
	Page       int

	// Ignored lists the parameters that were dropped because the field is
	// unknown, the operator unsupported or the value unparsable.
	Ignored []string
}

// Window returns the page window for the query.
func (q ProductQuery) Window() pagination.Window {
	return pagination.NewWindow(q.Page, PageSize)
}

// Parse builds a ProductQuery from request parameters. It never fails:
// anything it cannot interpret is recorded in Ignored.
func Parse(values url.Values) ProductQuery {
	q := ProductQuery{
		Keyword: strings.TrimSpace(values.Get(ParamKeyword)),
		Page:    pagination.ParseWindow(values.Get(ParamPage), PageSize).Page,
	}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		switch key {
		case ParamKeyword, ParamPage, ParamLimit:
			continue
		}
		field, op, ok := splitKey(key)
		if !ok {
			q.Ignored = append(q.Ignored, key)
			continue
		}
		kind, known := fields[field]
		if !known || (kind == KindString && op != OpEq) {
			q.Ignored = append(q.Ignored, key)
			continue
		}
		for _, raw := range values[key] {
			v, err := parseValue(kind, raw)
			if err != nil {
				q.Ignored = append(q.Ignored, key)
				continue
			}
			q.Predicates = append(q.Predicates, Predicate{Field: field, Op: op, Value: v})
		}
	}
	return q
}

// splitKey splits "price[gte]" into ("price", OpGte). A bare key is
// equality.
func splitKey(key string) (string, Op, bool) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		return key, OpEq, key != ""
	}
	if open == 0 || !strings.HasSuffix(key, "]") {
		return "", "", false
	}
	op := Op(key[open+1 : len(key)-1])
	switch op {
	case OpEq, OpGt, OpGte, OpLt, OpLte:
		return key[:open], op, true
	}
	return "", "", false
}

func parseValue(kind Kind, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	switch kind {
	case KindFloat:
		return strconv.ParseFloat(raw, 64)
	case KindInt:
		return strconv.Atoi(raw)
	default:
		if raw == "" {
			return nil, fmt.Errorf("empty value")
		}
		return raw, nil
	}
}
