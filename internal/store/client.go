// Package store defines the generic record client the catalog core talks to.
//
// The client knows nothing about fragrances or collections: it
// fetches, filters, inserts, updates and deletes records of a named kind. The
// sqlite, kv and postgrest subpackages provide concrete adapters.
package store

import "context"

// Client is the capability surface consumed by the catalog services.
type Client interface {
	// Fetch returns the records of kind matching q.
	Fetch(ctx context.Context, kind Kind, q Query) ([]Record, error)

	// FetchOne returns the record with the given id, or ErrNotFound.
	FetchOne(ctx context.Context, kind Kind, id string) (Record, error)

	// Insert stores a new record and returns it as stored, including the
	// assigned id. Returns ErrConflict when a uniqueness constraint fails.
	Insert(ctx context.Context, kind Kind, fields Record) (Record, error)

	// Update merges fields into the record with the given id and returns
	// the updated record, or ErrNotFound.
	Update(ctx context.Context, kind Kind, id string, fields Record) (Record, error)

	// Delete removes the record with the given id, or returns ErrNotFound.
	Delete(ctx context.Context, kind Kind, id string) error

	// DeleteWhere removes every record of kind matching q and returns the count.
	DeleteWhere(ctx context.Context, kind Kind, q Query) (int, error)

	// Close releases adapter resources.
	Close() error
}

// Op is a filter operator.
type Op string

// Filter operators.
const (
	// OpEq is exact, case-sensitive equality.
	OpEq Op = "eq"
	// OpIn matches any of a list of values.
	OpIn Op = "in"
	// OpContains is a case-insensitive substring match. The value is a
	// literal token: wildcard and filter-syntax characters match themselves.
	OpContains Op = "contains"
)

// Filter is a single predicate on a field.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Order sorts results by a field.
type Order struct {
	Field string
	Desc  bool
}

// Query selects records. All filters must match.
type Query struct {
	Filters []Filter
	Orders  []Order
	Limit   int // 0 means no limit
}

// All returns a query matching every record.
func All() Query {
	return Query{}
}

// Where starts a query with an equality filter.
func Where(field string, value any) Query {
	return Query{}.Eq(field, value)
}

// Eq adds an equality filter.
func (q Query) Eq(field string, value any) Query {
	q.Filters = append(cloneFilters(q.Filters), Filter{Field: field, Op: OpEq, Value: value})
	return q
}

// In adds a membership filter.
func (q Query) In(field string, values []string) Query {
	vs := make([]string, len(values))
	copy(vs, values)
	q.Filters = append(cloneFilters(q.Filters), Filter{Field: field, Op: OpIn, Value: vs})
	return q
}

// Contains adds a case-insensitive substring filter.
func (q Query) Contains(field, token string) Query {
	q.Filters = append(cloneFilters(q.Filters), Filter{Field: field, Op: OpContains, Value: token})
	return q
}

// OrderBy adds a sort key.
func (q Query) OrderBy(field string, desc bool) Query {
	orders := make([]Order, len(q.Orders), len(q.Orders)+1)
	copy(orders, q.Orders)
	q.Orders = append(orders, Order{Field: field, Desc: desc})
	return q
}

// WithLimit caps the number of results.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// cloneFilters copies fs so builder calls never share a backing array.
func cloneFilters(fs []Filter) []Filter {
	out := make([]Filter, len(fs), len(fs)+1)
	copy(out, fs)
	return out
}
