package store

import (
	"cmp"
	"slices"

	"github.com/knowyournotes/catalog-server/internal/normalize"
)

// Matches reports whether r satisfies every filter in q.
// Adapters without a query engine (kv) filter with it, and the remote
// adapter uses it to enforce literal-token substring semantics.
func (q Query) Matches(r Record) bool {
	for _, f := range q.Filters {
		if !f.Matches(r) {
			return false
		}
	}
	return true
}

// Matches reports whether r satisfies f.
func (f Filter) Matches(r Record) bool {
	switch f.Op {
	case OpEq:
		return equalValues(r[f.Field], f.Value)
	case OpIn:
		values, _ := f.Value.([]string)
		got := r.String(f.Field)
		return r[f.Field] != nil && slices.Contains(values, got)
	case OpContains:
		token, _ := f.Value.(string)
		return r[f.Field] != nil && normalize.ContainsFold(r.String(f.Field), token)
	default:
		return false
	}
}

// Apply filters, sorts and limits records in memory. The input is not modified.
func Apply(records []Record, q Query) []Record {
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	SortRecords(out, q.Orders)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

// SortRecords stably sorts records by orders. Null values sort before
// everything else in ascending order.
func SortRecords(records []Record, orders []Order) {
	if len(orders) == 0 {
		return
	}
	slices.SortStableFunc(records, func(a, b Record) int {
		for _, o := range orders {
			c := compareValues(a[o.Field], b[o.Field])
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, ok := toFloat(a); ok && isNumeric(a) {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if ab, ok := a.(bool); ok {
		return ab == boolOf(b)
	}
	if bb, ok := b.(bool); ok {
		return bb == boolOf(a)
	}
	return stringOf(a) == stringOf(b)
}

func compareValues(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	if isNumeric(a) && isNumeric(b) {
		af, _ := toFloat(a)
		bf, _ := toFloat(b)
		return cmp.Compare(af, bf)
	}
	if ab, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}
	return cmp.Compare(stringOf(a), stringOf(b))
}

func isNumeric(v any) bool {
	switch v.(type) {
	case float64, float32, int, int32, int64:
		return true
	default:
		return false
	}
}
