package supabase

import (
	"context"
	"slices"
	"strings"

	"github.com/couchcryptid/vessel-data-service/internal/domain"
)

// The DATE column holds day-first text, which PostgREST compares and sorts
// lexically ("31-01-2024" > "15-02-2024"). Queries touching it run in two
// steps: the matching days are picked client-side from the DATE column, then
// the rows of those days are fetched with an in.() filter and ordered by
// calendar day.

func usesDateColumn(q domain.Query) bool {
	if q.Order == domain.DateColumn {
		return true
	}
	return slices.ContainsFunc(q.Filters, func(f domain.Filter) bool {
		return f.Column == domain.DateColumn
	})
}

func (c *Client) selectByCalendar(ctx context.Context, q domain.Query) ([]domain.RawRecord, error) {
	var dateFilters []domain.Filter
	base := domain.Query{Columns: q.Columns}
	for _, f := range q.Filters {
		if f.Column == domain.DateColumn {
			dateFilters = append(dateFilters, f)
		} else {
			base.Filters = append(base.Filters, f)
		}
	}

	dayRows, err := c.get(ctx, queryParams(base.Select(domain.DateColumn)))
	if err != nil {
		return nil, err
	}
	dayRows = slices.DeleteFunc(dayRows, func(r domain.RawRecord) bool {
		return !matchesDay(r.Text("", domain.DateColumn), dateFilters)
	})

	if slices.Equal(q.Columns, []string{domain.DateColumn}) {
		return orderAndLimit(dayRows, q), nil
	}

	days := wantedDays(dayRows, q)
	if len(days) == 0 {
		return []domain.RawRecord{}, nil
	}
	params := queryParams(base)
	params.Set(domain.DateColumn, "in.("+strings.Join(days, ",")+")")
	rows, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	return orderAndLimit(rows, q), nil
}

func matchesDay(day string, filters []domain.Filter) bool {
	for _, f := range filters {
		c := domain.CompareStorageDates(day, f.Value)
		switch f.Op {
		case domain.OpEq:
			if c != 0 {
				return false
			}
		case domain.OpGte:
			if c < 0 {
				return false
			}
		case domain.OpLte:
			if c > 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// wantedDays returns the distinct days of rows. When q is ordered by date
// with a limit, only the first Max days can contribute rows.
func wantedDays(rows []domain.RawRecord, q domain.Query) []string {
	days := make([]string, 0, len(rows))
	for _, r := range rows {
		if d := r.Text("", domain.DateColumn); d != "" && !slices.Contains(days, d) {
			days = append(days, d)
		}
	}
	if q.Order == domain.DateColumn && q.Max > 0 {
		slices.SortStableFunc(days, func(a, b string) int {
			if q.Descending {
				return domain.CompareStorageDates(b, a)
			}
			return domain.CompareStorageDates(a, b)
		})
		if len(days) > q.Max {
			days = days[:q.Max]
		}
	}
	return days
}

func orderAndLimit(rows []domain.RawRecord, q domain.Query) []domain.RawRecord {
	if q.Order != "" {
		slices.SortStableFunc(rows, func(a, b domain.RawRecord) int {
			av, bv := a.Text("", q.Order), b.Text("", q.Order)
			c := strings.Compare(av, bv)
			if q.Order == domain.DateColumn {
				c = domain.CompareStorageDates(av, bv)
			}
			if q.Descending {
				return -c
			}
			return c
		})
	}
	if q.Max > 0 && len(rows) > q.Max {
		rows = rows[:q.Max]
	}
	return rows
}
