package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/couchcryptid/vessel-data-service/internal/domain"
)

// FetchLatest returns the most recent vessel state. A snapshot younger than
// the latest TTL is served from cache; otherwise the store is queried.
// An empty store yields domain.ErrNoData.
func (s *Service) FetchLatest(ctx context.Context) (*domain.VesselState, error) {
	if state, ok := s.cache.FreshLatest(); ok {
		return &state, nil
	}
	return s.refreshLatest(ctx)
}

// refreshLatest queries the latest record regardless of cache freshness.
func (s *Service) refreshLatest(ctx context.Context) (*domain.VesselState, error) {
	const op = "fetch_latest"
	defer s.begin()()

	v, err := s.shared(ctx, op, func(ctx context.Context) (any, error) {
		rows, err := s.query(ctx, op, s.opts.Timeouts.Latest,
			domain.NewQuery().OrderBy(domain.DateColumn, true).Limit(1))
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, domain.ErrNoData
		}
		state, err := s.normalize(rows[0])
		if err != nil {
			return nil, fmt.Errorf("failed to format vessel data: %w", err)
		}
		s.cache.SetLatest(state)
		s.ready.Store(true)
		s.publish(state)
		return state, nil
	})
	if callerGone(ctx, err) {
		return nil, err
	}
	if errors.Is(err, domain.ErrNoData) {
		s.logger.Warn("no vessel data in store")
		s.mu.Lock()
		s.lastErr = "No vessel data found in the database"
		s.mu.Unlock()
		return nil, domain.ErrNoData
	}
	if err != nil {
		return nil, s.fail(op, "Failed to fetch vessel data", err)
	}
	s.succeed()
	state := v.(domain.VesselState)
	return &state, nil
}

// FetchByDate returns the state recorded for date (yyyy-mm-dd). A nil state
// with a nil error means the store has no record for that day. Found
// states are cached per day and never refetched.
func (s *Service) FetchByDate(ctx context.Context, date string) (*domain.VesselState, error) {
	const op = "fetch_by_date"
	key, day := s.internalKey(date)
	if state, ok := s.cache.ByDate(key); ok {
		return &state, nil
	}
	defer s.begin()()

	v, err := s.shared(ctx, op+":"+key, func(ctx context.Context) (any, error) {
		rows, err := s.query(ctx, op, s.opts.Timeouts.ByDate,
			domain.NewQuery().Eq(domain.DateColumn, domain.FormatStorageDate(day)))
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, nil
		}
		state, err := s.normalize(rows[0])
		if err != nil {
			return nil, err
		}
		s.cache.SetByDate(key, state)
		return state, nil
	})
	if callerGone(ctx, err) {
		return nil, err
	}
	if err != nil {
		return nil, s.fail(op, "Failed to fetch data for "+key, err)
	}
	s.succeed()
	if v == nil {
		s.logger.Info("no vessel data for date", "date", key)
		return nil, nil
	}
	state := v.(domain.VesselState)
	return &state, nil
}

// FetchByDateRange returns the states between start and end inclusive, in
// ascending date order. The result is never nil; an empty slice with a nil
// error means no records fall in the range. Malformed records are dropped.
func (s *Service) FetchByDateRange(ctx context.Context, start, end string) ([]domain.VesselState, error) {
	const op = "fetch_by_range"
	startKey, startDay := s.internalKey(start)
	endKey, endDay := s.internalKey(end)
	if states, ok := s.cache.ByRange(startKey, endKey); ok {
		return states, nil
	}
	defer s.begin()()

	v, err := s.shared(ctx, op+":"+startKey+"_"+endKey, func(ctx context.Context) (any, error) {
		rows, err := s.query(ctx, op, s.opts.Timeouts.Range,
			domain.NewQuery().
				Gte(domain.DateColumn, domain.FormatStorageDate(startDay)).
				Lte(domain.DateColumn, domain.FormatStorageDate(endDay)).
				OrderBy(domain.DateColumn, false))
		if err != nil {
			return nil, err
		}
		states := s.normalizeAll(rows)
		s.cache.SetByRange(startKey, endKey, states)
		return states, nil
	})
	if callerGone(ctx, err) {
		return []domain.VesselState{}, err
	}
	if err != nil {
		return []domain.VesselState{}, s.fail(op, fmt.Sprintf("Failed to fetch data for range %s to %s", startKey, endKey), err)
	}
	s.succeed()
	states := v.([]domain.VesselState)
	if len(states) == 0 {
		s.logger.Info("no vessel data for range", "start", startKey, "end", endKey)
	}
	return slices.Clone(states), nil
}

// FetchHistoricalWindow returns the states of the days-long window ending at
// the most recent date present in the store, so it still returns data when
// the store lags behind real time. The first non-empty window is cached and
// served for every later call. A non-positive days uses the configured
// default. An empty window yields domain.ErrNoData.
func (s *Service) FetchHistoricalWindow(ctx context.Context, days int) ([]domain.VesselState, error) {
	const op = "fetch_historical"
	if states, ok := s.cache.Historical(); ok {
		return states, nil
	}
	if days <= 0 {
		days = s.opts.HistoryDays
	}
	defer s.begin()()

	v, err := s.shared(ctx, op, func(ctx context.Context) (any, error) {
		recent, err := s.query(ctx, op+"_anchor", s.opts.Timeouts.RecentDate,
			domain.NewQuery().Select(domain.DateColumn).OrderBy(domain.DateColumn, true).Limit(1))
		if err != nil {
			return nil, err
		}
		if len(recent) == 0 {
			return nil, domain.ErrNoData
		}
		anchor := domain.ParseStorageDate(recent[0].Text("", domain.DateColumn))
		if anchor.Fallback {
			s.logger.Warn("unreadable most recent date, anchoring window at today")
		}
		from := anchor.Date.AddDate(0, 0, -days)

		rows, err := s.query(ctx, op, s.opts.Timeouts.History,
			domain.NewQuery().
				Gte(domain.DateColumn, domain.FormatStorageDate(from)).
				Lte(domain.DateColumn, domain.FormatStorageDate(anchor.Date)).
				OrderBy(domain.DateColumn, false))
		if err != nil {
			return nil, err
		}
		states := s.normalizeAll(rows)
		if len(states) == 0 {
			return nil, domain.ErrNoData
		}
		s.cache.SetHistorical(states)
		s.logger.Info("historical window loaded", "days", days,
			"from", domain.FormatInternalDate(from), "to", domain.FormatInternalDate(anchor.Date), "records", len(states))
		return states, nil
	})
	if callerGone(ctx, err) {
		return []domain.VesselState{}, err
	}
	if errors.Is(err, domain.ErrNoData) {
		s.logger.Info("no historical vessel data")
		return []domain.VesselState{}, domain.ErrNoData
	}
	if err != nil {
		return []domain.VesselState{}, s.fail(op, "Failed to fetch historical data", err)
	}
	s.succeed()
	return slices.Clone(v.([]domain.VesselState)), nil
}

// ListAvailableDates returns every distinct date present in the store in
// internal format, newest first. Rows with unreadable dates are skipped.
// The result also backs IsDateAvailable.
func (s *Service) ListAvailableDates(ctx context.Context) ([]string, error) {
	const op = "list_dates"
	defer s.begin()()

	v, err := s.shared(ctx, op, func(ctx context.Context) (any, error) {
		rows, err := s.query(ctx, op, s.opts.Timeouts.Dates,
			domain.NewQuery().Select(domain.DateColumn).OrderBy(domain.DateColumn, true))
		if err != nil {
			return nil, err
		}
		return distinctDates(rows), nil
	})
	if callerGone(ctx, err) {
		return []string{}, err
	}
	if err != nil {
		return []string{}, s.fail(op, "Failed to fetch available dates", err)
	}
	s.succeed()

	dates := v.([]string)
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	s.mu.Lock()
	s.dates, s.dateSet, s.datesSet = dates, set, true
	s.mu.Unlock()
	return slices.Clone(dates), nil
}

// GetLatestAvailableDate returns the most recent date in the store, in
// internal format. When the store is empty or unreachable it returns today
// together with the error, so callers always have a usable default.
func (s *Service) GetLatestAvailableDate(ctx context.Context) (string, error) {
	const op = "latest_date"
	defer s.begin()()

	v, err := s.shared(ctx, op, func(ctx context.Context) (any, error) {
		rows, err := s.query(ctx, op, s.opts.Timeouts.LatestDate,
			domain.NewQuery().Select(domain.DateColumn).OrderBy(domain.DateColumn, true).Limit(1))
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, domain.ErrNoData
		}
		date, ok := domain.StorageToInternal(rows[0].Text("", domain.DateColumn))
		if !ok {
			s.logger.Warn("unreadable latest date, using today")
		}
		return date, nil
	})
	today := domain.FormatInternalDate(domain.Today())
	if callerGone(ctx, err) {
		return today, err
	}
	if errors.Is(err, domain.ErrNoData) {
		return today, domain.ErrNoData
	}
	if err != nil {
		s.logger.Error("latest date lookup failed, using today", "error", err)
		return today, fmt.Errorf("%w: %s: %w", ErrFetchFailed, op, err)
	}
	return v.(string), nil
}

// IsDateAvailable reports whether date (yyyy-mm-dd) was present in the last
// ListAvailableDates result. It never touches the store.
func (s *Service) IsDateAvailable(date string) bool {
	p := domain.ParseInternalDate(date)
	if p.Fallback {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.dateSet[domain.FormatInternalDate(p.Date)]
	return ok
}

// AvailableDatesLoaded reports whether ListAvailableDates has succeeded at least once.
func (s *Service) AvailableDatesLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.datesSet
}

func distinctDates(rows []domain.RawRecord) []string {
	seen := make(map[string]struct{}, len(rows))
	dates := make([]string, 0, len(rows))
	for _, row := range rows {
		date, ok := domain.StorageToInternal(row.Text("", domain.DateColumn))
		if !ok {
			continue
		}
		if _, dup := seen[date]; dup {
			continue
		}
		seen[date] = struct{}{}
		dates = append(dates, date)
	}
	slices.Sort(dates)
	slices.Reverse(dates)
	return dates
}
