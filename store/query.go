package store

import (
	"time"

	"github.com/aluiziolira/go-scrape-products/models"
)

// Cond is one query constraint on a field: exact equality, a lower bound,
// an upper bound, or both bounds. A Cond with no clause set matches nothing.
type Cond struct {
	Eq  any
	Gte any
	Lte any
}

// Eq builds an equality condition.
func Eq(value any) Cond { return Cond{Eq: value} }

// Gte builds a greater-or-equal condition.
func Gte(value any) Cond { return Cond{Gte: value} }

// Lte builds a less-or-equal condition.
func Lte(value any) Cond { return Cond{Lte: value} }

// Range builds an inclusive range condition.
func Range(min, max any) Cond { return Cond{Gte: min, Lte: max} }

// Query matches a record when every field condition holds. Unknown field
// names and unsupported value shapes fail closed: they match nothing.
type Query map[string]Cond

// Matches evaluates the query against one product.
func (q Query) Matches(p models.Product) bool {
	for field, cond := range q {
		value, known := fieldValue(p, field)
		if !known {
			return false
		}
		if !cond.matches(value) {
			return false
		}
	}
	return true
}

func (c Cond) matches(value any) bool {
	matched := false
	if c.Eq != nil {
		if !equalValues(value, c.Eq) {
			return false
		}
		matched = true
	}
	if c.Gte != nil {
		got, a := asFloat(value)
		want, b := asFloat(c.Gte)
		if !a || !b || got < want {
			return false
		}
		matched = true
	}
	if c.Lte != nil {
		got, a := asFloat(value)
		want, b := asFloat(c.Lte)
		if !a || !b || got > want {
			return false
		}
		matched = true
	}
	return matched
}

// fieldValue exposes the queryable fields, including the dotted source paths
// the scraper uses for identity lookups.
func fieldValue(p models.Product, field string) (any, bool) {
	switch field {
	case "_id":
		return p.ID, true
	case "name":
		return p.Name, true
	case "price":
		return p.Price, true
	case "description":
		return p.Description, true
	case "rating":
		return p.Rating, true
	case "category":
		return p.Category, true
	case "source.website":
		return p.Source.Website, true
	case "source.url":
		return p.Source.URL, true
	case "source.category":
		return p.Source.Category, true
	case "createdAt":
		return p.CreatedAt, true
	case "updatedAt":
		return p.UpdatedAt, true
	default:
		return nil, false
	}
}

func equalValues(a, b any) bool {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	default:
		return false
	}
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
