// Package postgres reads vessel records straight from the Postgres database
// behind the hosted PostgREST API.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"

	"github.com/couchcryptid/vessel-data-service/internal/domain"
)

// storageDateFormat is the to_date pattern matching domain.StorageDateLayout.
const storageDateFormat = "DD-MM-YYYY"

// Store implements domain.RecordStore with database/sql and lib/pq.
type Store struct {
	db     *sql.DB
	table  string
	logger *slog.Logger
}

// NewStore wraps an open database handle.
func NewStore(db *sql.DB, table string, logger *slog.Logger) *Store {
	return &Store{db: db, table: table, logger: logger}
}

// Open connects to dsn and pings it with exponential backoff until it
// answers, maxRetries is exhausted, or ctx ends.
func Open(ctx context.Context, dsn, table string, maxRetries uint64, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 200 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	ping := func() error {
		if err := db.PingContext(ctx); err != nil {
			logger.Warn("postgres not reachable, retrying", "error", err)
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return NewStore(db, table, logger), nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Select implements domain.RecordStore. Every value is returned as text or
// nil, as PostgREST would render it in JSON strings; numeric parsing is
// left to the normalizer.
func (s *Store) Select(ctx context.Context, q domain.Query) ([]domain.RawRecord, error) {
	query, args := buildQuery(s.table, q)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	out := []domain.RawRecord{}
	for rows.Next() {
		values := make([]sql.NullString, len(cols))
		dest := make([]any, len(cols))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec := make(domain.RawRecord, len(cols))
		for i, col := range cols {
			if values[i].Valid {
				rec[col] = values[i].String
			} else {
				rec[col] = nil
			}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	s.logger.Debug("postgres select", "table", s.table, "rows", len(out))
	return out, nil
}

// buildQuery renders q as SQL. The date column is stored as day-first text,
// so comparisons and ordering on it go through to_date to follow calendar
// order rather than string order.
func buildQuery(table string, q domain.Query) (string, []any) {
	var b strings.Builder
	var args []any

	b.WriteString("SELECT ")
	if q.SelectsAll() {
		b.WriteString("*")
	} else {
		quoted := make([]string, len(q.Columns))
		for i, c := range q.Columns {
			quoted[i] = pq.QuoteIdentifier(c)
		}
		b.WriteString(strings.Join(quoted, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(pq.QuoteIdentifier(table))

	for i, f := range q.Filters {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, f.Value)
		placeholder := "$" + strconv.Itoa(len(args))
		col := pq.QuoteIdentifier(f.Column)
		if f.Column == domain.DateColumn && f.Op != domain.OpEq {
			col = dateExpr(f.Column)
			placeholder = fmt.Sprintf("to_date(%s, '%s')", placeholder, storageDateFormat)
		}
		b.WriteString(col)
		b.WriteString(" ")
		b.WriteString(sqlOp(f.Op))
		b.WriteString(" ")
		b.WriteString(placeholder)
	}

	if q.Order != "" {
		b.WriteString(" ORDER BY ")
		if q.Order == domain.DateColumn {
			b.WriteString(dateExpr(q.Order))
		} else {
			b.WriteString(pq.QuoteIdentifier(q.Order))
		}
		if q.Descending {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
	}
	if q.Max > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Max))
	}
	return b.String(), args
}

func dateExpr(column string) string {
	return fmt.Sprintf("to_date(%s, '%s')", pq.QuoteIdentifier(column), storageDateFormat)
}

func sqlOp(op domain.FilterOp) string {
	switch op {
	case domain.OpGte:
		return ">="
	case domain.OpLte:
		return "<="
	default:
		return "="
	}
}
