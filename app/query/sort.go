package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// DefaultSortField is used when no sort field is requested.
const DefaultSortField = "createdAt"

// ParseOrder accepts "asc" or "desc" in any case; anything else is desc.
func ParseOrder(s string) Order {
	if strings.EqualFold(s, string(Asc)) {
		return Asc
	}
	return Desc
}

// Sort returns a copy of items ordered by field. The sort is stable so equal
// keys keep their relative order, which keeps paging deterministic over
// unchanged data. Strings use root-locale collation; time.Time and numbers
// compare naturally; mixed or unsupported types compare equal.
func Sort[T Fielder](items []T, field string, order Order) []T {
	if field == "" {
		field = DefaultSortField
	}
	out := append(make([]T, 0, len(items)), items...)
	coll := collate.New(language.Und)
	slices.SortStableFunc(out, func(a, b T) int {
		av, _ := a.Field(field)
		bv, _ := b.Field(field)
		c := compareValues(coll, av, bv)
		if order == Desc {
			return -c
		}
		return c
	})
	return out
}

func compareValues(coll *collate.Collator, a, b any) int {
	switch av := a.(type) {
	case string:
		if bv, ok := b.(string); ok {
			return coll.CompareString(av, bv)
		}
	case time.Time:
		if bv, ok := b.(time.Time); ok {
			return av.Compare(bv)
		}
	case int:
		if bv, ok := b.(int); ok {
			return cmp.Compare(av, bv)
		}
	case int64:
		if bv, ok := b.(int64); ok {
			return cmp.Compare(av, bv)
		}
	case float64:
		if bv, ok := b.(float64); ok {
			return cmp.Compare(av, bv)
		}
	case bool:
		if bv, ok := b.(bool); ok {
			switch {
			case av == bv:
				return 0
			case !av:
				return -1
			default:
				return 1
			}
		}
	}
	return 0
}

// Query combines filtering, search and sorting. Conditions and search are
// ANDed together.
type Query struct {
	Conditions   []Condition
	Search       string
	SearchFields []string
	SortBy       string
	Order        Order
}

// Apply runs q over items: conditions, then search, then a stable sort.
// An empty Order sorts descending.
func Apply[T Fielder](items []T, q Query) []T {
	out := Where(items, q.Conditions...)
	if q.Search != "" {
		out = Search(out, q.Search, q.SearchFields...)
	}
	order := q.Order
	if order == "" {
		order = Desc
	}
	return Sort(out, q.SortBy, order)
}
