package postgrest

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/knowyournotes/catalog-server/internal/store"
)

// encodeFilters renders q's filters as PostgREST query parameters.
// empty reports a filter that can match nothing (an empty In list).
func encodeFilters(q store.Query) (params url.Values, empty bool) {
	params = url.Values{}
	for _, f := range q.Filters {
		switch f.Op {
		case store.OpEq:
			if f.Value == nil {
				params.Add(f.Field, "is.null")
				continue
			}
			params.Add(f.Field, "eq."+formatValue(f.Value))
		case store.OpIn:
			values, _ := f.Value.([]string)
			if len(values) == 0 {
				return nil, true
			}
			quoted := make([]string, len(values))
			for i, v := range values {
				quoted[i] = quote(v)
			}
			params.Add(f.Field, "in.("+strings.Join(quoted, ",")+")")
		case store.OpContains:
			token, _ := f.Value.(string)
			params.Add(f.Field, "ilike.*"+likePattern(token)+"*")
		}
	}
	return params, false
}

func encodeOrder(orders []store.Order) string {
	parts := make([]string, 0, len(orders))
	for _, o := range orders {
		if o.Desc {
			parts = append(parts, o.Field+".desc.nullslast")
		} else {
			parts = append(parts, o.Field+".asc.nullsfirst")
		}
	}
	return strings.Join(parts, ",")
}

func hasContains(q store.Query) bool {
	for _, f := range q.Filters {
		if f.Op == store.OpContains {
			return true
		}
	}
	return false
}

// likePattern escapes LIKE metacharacters so the token matches literally.
// PostgREST rewrites every '*' to '%' and offers no escape for it, so a
// literal '*' becomes the single-character wildcard '_'; callers re-check
// matches locally.
func likePattern(token string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`, `*`, `_`)
	return r.Replace(token)
}

// quote renders an In list element so reserved characters (commas,
// parentheses, quotes) stay literal.
func quote(v string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(v) + `"`
}

func formatValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
