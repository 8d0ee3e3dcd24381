// Package memstore is an in-memory domain.RecordStore backed by a fixed set
// of raw rows, used for local development and tests.
package memstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/couchcryptid/vessel-data-service/internal/domain"
)

// Store holds raw records in insertion order. Date columns are compared as
// calendar dates, the way the SQL adapter compares them.
type Store struct {
	mu          sync.RWMutex
	rows        []domain.RawRecord
	dateColumns map[string]bool
}

// New returns a store holding rows. The domain date column is treated as a date.
func New(rows ...domain.RawRecord) *Store {
	return &Store{
		rows:        rows,
		dateColumns: map[string]bool{domain.DateColumn: true},
	}
}

// LoadFile reads a JSON array of raw rows, such as a PostgREST export.
func LoadFile(path string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var rows []domain.RawRecord
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return New(rows...), nil
}

// Insert appends rows.
func (s *Store) Insert(rows ...domain.RawRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
}

// Len returns the number of stored rows.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Select implements domain.RecordStore.
func (s *Store) Select(ctx context.Context, q domain.Query) ([]domain.RawRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	matched := make([]domain.RawRecord, 0, len(s.rows))
	for _, row := range s.rows {
		if s.matches(row, q.Filters) {
			matched = append(matched, row)
		}
	}
	s.mu.RUnlock()

	if q.Order != "" {
		sort.SliceStable(matched, func(i, j int) bool {
			c := s.compare(q.Order, matched[i][q.Order], matched[j][q.Order])
			if q.Descending {
				return c > 0
			}
			return c < 0
		})
	}
	if q.Max > 0 && len(matched) > q.Max {
		matched = matched[:q.Max]
	}

	out := make([]domain.RawRecord, len(matched))
	for i, row := range matched {
		out[i] = project(row, q)
	}
	return out, nil
}

func (s *Store) matches(row domain.RawRecord, filters []domain.Filter) bool {
	for _, f := range filters {
		v, ok := row[f.Column]
		if !ok {
			return false
		}
		c := s.compare(f.Column, v, f.Value)
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

// compare orders two column values: dates by calendar day, everything else
// as text.
func (s *Store) compare(column string, a, b any) int {
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	if s.dateColumns[column] {
		return domain.CompareStorageDates(as, bs)
	}
	return strings.Compare(as, bs)
}

func project(row domain.RawRecord, q domain.Query) domain.RawRecord {
	out := make(domain.RawRecord, len(row))
	if q.SelectsAll() {
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	for _, col := range q.Columns {
		if v, ok := row[col]; ok {
			out[col] = v
		}
	}
	return out
}
