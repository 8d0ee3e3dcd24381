package domain

import (
	"context"
	"errors"
)

// ErrNoData signals that a query succeeded but matched no rows.
var ErrNoData = errors.New("no vessel data found")

// RecordStore is the backing store of raw vessel records.
type RecordStore interface {
	Select(ctx context.Context, q Query) ([]RawRecord, error)
}

// FilterOp is a comparison supported by the backing store.
type FilterOp string

const (
	OpEq  FilterOp = "eq"
	OpGte FilterOp = "gte"
	OpLte FilterOp = "lte"
)

// Filter compares one column against a literal value.
type Filter struct {
	Column string
	Op     FilterOp
	Value  string
}

// Query describes a single-table read. The zero value selects every column
// of every row in store order. Methods return modified copies so a base
// query can be shared.
type Query struct {
	Columns    []string
	Filters    []Filter
	Order      string
	Descending bool
	Max        int
}

// NewQuery returns a query selecting all columns.
func NewQuery() Query {
	return Query{}
}

// Select restricts the returned columns.
func (q Query) Select(columns ...string) Query {
	q.Columns = append([]string(nil), columns...)
	return q
}

// Eq keeps rows whose column equals value.
func (q Query) Eq(column, value string) Query {
	return q.where(column, OpEq, value)
}

// Gte keeps rows whose column is at or after value.
func (q Query) Gte(column, value string) Query {
	return q.where(column, OpGte, value)
}

// Lte keeps rows whose column is at or before value.
func (q Query) Lte(column, value string) Query {
	return q.where(column, OpLte, value)
}

// OrderBy sorts rows by column.
func (q Query) OrderBy(column string, descending bool) Query {
	q.Order = column
	q.Descending = descending
	return q
}

// Limit caps the number of rows returned. Zero means no limit.
func (q Query) Limit(n int) Query {
	q.Max = n
	return q
}

func (q Query) where(column string, op FilterOp, value string) Query {
	filters := make([]Filter, len(q.Filters), len(q.Filters)+1)
	copy(filters, q.Filters)
	q.Filters = append(filters, Filter{Column: column, Op: op, Value: value})
	return q
}

// SelectsAll reports whether the query returns every column.
func (q Query) SelectsAll() bool {
	return len(q.Columns) == 0
}
