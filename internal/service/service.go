// Package service is the vessel data facade used by the presentation layer.
//
// Every store access goes through the request queue and every result passes
// through the normalizer before it is cached and returned. Failures are
// logged, recorded in Status, and returned as ErrFetchFailed with an empty
// result; "no data" outcomes are reported separately so callers can tell a
// quiet day from a broken backend.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/couchcryptid/vessel-data-service/internal/cache"
	"github.com/couchcryptid/vessel-data-service/internal/domain"
	"github.com/couchcryptid/vessel-data-service/internal/observability"
	"github.com/couchcryptid/vessel-data-service/internal/queue"
)

// ErrFetchFailed wraps every store, timeout, or normalization failure.
var ErrFetchFailed = errors.New("vessel data fetch failed")

// SnapshotPublisher receives every freshly fetched latest state.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, state domain.VesselState) error
}

// Timeouts bounds each store operation. Expiry cancels the store call.
type Timeouts struct {
	Latest     time.Duration
	ByDate     time.Duration
	Range      time.Duration
	RecentDate time.Duration
	History    time.Duration
	Dates      time.Duration
	LatestDate time.Duration
	Publish    time.Duration
}

// DefaultTimeouts scales each limit to the weight of its query.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Latest:     10 * time.Second,
		ByDate:     8 * time.Second,
		Range:      15 * time.Second,
		RecentDate: 5 * time.Second,
		History:    15 * time.Second,
		Dates:      10 * time.Second,
		LatestDate: 5 * time.Second,
		Publish:    5 * time.Second,
	}
}

// Options configures a Service. Zero values take defaults.
type Options struct {
	Queue           queue.Options
	LatestTTL       time.Duration
	RefreshInterval time.Duration
	HistoryDays     int
	Timeouts        Timeouts
	Clock           clockwork.Clock
	Publisher       SnapshotPublisher
}

// DefaultRefreshInterval is how often Run force-refreshes the latest state.
const DefaultRefreshInterval = 10 * time.Minute

// DefaultHistoryDays is the size of the historical window loaded at startup.
const DefaultHistoryDays = 30

func (o Options) withDefaults() Options {
	if o.Queue.MaxConcurrent <= 0 {
		o.Queue.MaxConcurrent = queue.DefaultOptions().MaxConcurrent
	}
	if o.LatestTTL <= 0 {
		o.LatestTTL = cache.DefaultLatestTTL
	}
	if o.RefreshInterval <= 0 {
		o.RefreshInterval = DefaultRefreshInterval
	}
	if o.HistoryDays <= 0 {
		o.HistoryDays = DefaultHistoryDays
	}
	def := DefaultTimeouts()
	for _, p := range []struct {
		dst *time.Duration
		def time.Duration
	}{
		{&o.Timeouts.Latest, def.Latest},
		{&o.Timeouts.ByDate, def.ByDate},
		{&o.Timeouts.Range, def.Range},
		{&o.Timeouts.RecentDate, def.RecentDate},
		{&o.Timeouts.History, def.History},
		{&o.Timeouts.Dates, def.Dates},
		{&o.Timeouts.LatestDate, def.LatestDate},
		{&o.Timeouts.Publish, def.Publish},
	} {
		if *p.dst <= 0 {
			*p.dst = p.def
		}
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Status is the loading/error pair shown by the presentation layer.
type Status struct {
	Loading bool   `json:"loading"`
	Error   string `json:"error"`
}

// Service owns the request queue and result cache for one vessel.
type Service struct {
	store      domain.RecordStore
	normalizer *domain.Normalizer
	queue      *queue.Queue
	cache      *cache.Cache
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
	opts       Options

	flight singleflight.Group
	active atomic.Int64
	ready  atomic.Bool

	mu       sync.RWMutex
	lastErr  string
	dates    []string
	dateSet  map[string]struct{}
	datesSet bool
}

// New creates a Service reading from store.
func New(store domain.RecordStore, normalizer *domain.Normalizer, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Service {
	opts = opts.withDefaults()
	return &Service{
		store:      store,
		normalizer: normalizer,
		queue:      queue.New(opts.Queue, logger, metrics),
		cache:      cache.New(opts.Clock, opts.LatestTTL, metrics),
		clock:      opts.Clock,
		logger:     logger,
		metrics:    metrics,
		opts:       opts,
		dateSet:    map[string]struct{}{},
	}
}

// Status reports whether any fetch is in progress and the last failure message.
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{Loading: s.active.Load() > 0, Error: s.lastErr}
}

// CheckReadiness returns nil once the latest state has been fetched at least once.
func (s *Service) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("latest vessel state has not been fetched yet")
	}
	return nil
}

// Close stops the request queue. Pending fetches resolve with queue.ErrClosed.
func (s *Service) Close() {
	s.queue.Close()
}

// begin marks a fetch as in progress and returns the matching end func.
func (s *Service) begin() func() {
	s.active.Add(1)
	return func() { s.active.Add(-1) }
}

// fail logs err, records message as the user-facing status, and returns err
// wrapped in ErrFetchFailed.
func (s *Service) fail(op, message string, err error) error {
	s.logger.Error("vessel data fetch failed", "operation", op, "error", err)
	s.mu.Lock()
	s.lastErr = fmt.Sprintf("%s: %v", message, err)
	s.mu.Unlock()
	return fmt.Errorf("%w: %s: %w", ErrFetchFailed, op, err)
}

func (s *Service) succeed() {
	s.mu.Lock()
	s.lastErr = ""
	s.mu.Unlock()
}

// shared collapses concurrent calls for the same key into one queued
// operation. The caller may stop waiting when ctx ends; the operation itself
// runs to completion or timeout.
func (s *Service) shared(ctx context.Context, key string, op queue.Operation) (any, error) {
	ch := s.flight.DoChan(key, func() (any, error) {
		return s.queue.Enqueue(key, op).Wait(context.Background())
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// callerGone reports whether err only means the caller stopped waiting. The
// shared operation may still complete, so this is not a store failure.
func callerGone(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err())
}

// query runs q with its own timeout and records store metrics.
func (s *Service) query(ctx context.Context, op string, timeout time.Duration, q domain.Query) ([]domain.RawRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	rows, err := s.store.Select(ctx, q)
	s.metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		s.metrics.StoreRequests.WithLabelValues(op, "error").Inc()
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%s timed out after %s: %w", op, timeout, err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	case len(rows) == 0:
		s.metrics.StoreRequests.WithLabelValues(op, "empty").Inc()
	default:
		s.metrics.StoreRequests.WithLabelValues(op, "success").Inc()
	}
	return rows, nil
}

func (s *Service) normalize(raw domain.RawRecord) (domain.VesselState, error) {
	state, err := s.normalizer.Normalize(raw)
	if err != nil {
		s.metrics.NormalizeErrors.Inc()
		return domain.VesselState{}, err
	}
	return state, nil
}

func (s *Service) normalizeAll(raws []domain.RawRecord) []domain.VesselState {
	states := s.normalizer.NormalizeAll(raws)
	if dropped := len(raws) - len(states); dropped > 0 {
		s.metrics.NormalizeErrors.Add(float64(dropped))
	}
	return states
}

// publish hands state to the snapshot publisher without holding a queue slot.
func (s *Service) publish(state domain.VesselState) {
	if s.opts.Publisher == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeouts.Publish)
		defer cancel()
		if err := s.opts.Publisher.PublishSnapshot(ctx, state); err != nil {
			s.metrics.SnapshotsPublished.WithLabelValues("error").Inc()
			s.logger.Warn("snapshot publish failed", "vessel_id", state.ID, "error", err)
			return
		}
		s.metrics.SnapshotsPublished.WithLabelValues("success").Inc()
	}()
}

// internalKey turns a caller-supplied yyyy-mm-dd date into a canonical key.
// Unreadable input degrades to today.
func (s *Service) internalKey(date string) (string, time.Time) {
	p := domain.ParseInternalDate(date)
	if p.Fallback {
		s.logger.Warn("unreadable date, using today", "date", date)
	}
	return domain.FormatInternalDate(p.Date), p.Date
}
