// Package breaker guards a record store with a circuit breaker so a failing
// backend is not hammered by refreshes and user requests alike.
package breaker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"github.com/couchcryptid/vessel-data-service/internal/domain"
	"github.com/couchcryptid/vessel-data-service/internal/observability"
)

// Store wraps a domain.RecordStore with a gobreaker circuit breaker.
type Store struct {
	inner domain.RecordStore
	cb    *gobreaker.CircuitBreaker
}

// Settings configures when the breaker opens and how long it stays open.
type Settings struct {
	Name        string
	MaxFailures uint32
	OpenTimeout time.Duration
}

// New wraps inner. The breaker opens after MaxFailures consecutive failures
// and lets one trial request through after OpenTimeout.
func New(inner domain.RecordStore, s Settings, logger *slog.Logger, metrics *observability.Metrics) *Store {
	if s.MaxFailures == 0 {
		s.MaxFailures = 5
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			// A caller giving up is not a backend failure.
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.Set(float64(to))
		},
	})
	return &Store{inner: inner, cb: cb}
}

// Select forwards q to the wrapped store unless the breaker is open, in
// which case gobreaker.ErrOpenState is returned without calling it.
func (s *Store) Select(ctx context.Context, q domain.Query) ([]domain.RawRecord, error) {
	res, err := s.cb.Execute(func() (any, error) {
		return s.inner.Select(ctx, q)
	})
	if err != nil {
		return nil, err
	}
	return res.([]domain.RawRecord), nil
}

// State reports the breaker's current state.
func (s *Store) State() gobreaker.State {
	return s.cb.State()
}
