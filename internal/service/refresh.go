package service

import (
	"context"
	"errors"

	"github.com/couchcryptid/vessel-data-service/internal/domain"
)

// Run loads the initial data set and then force-refreshes the latest state
// every refresh interval until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("vessel data refresh started", "interval", s.opts.RefreshInterval, "history_days", s.opts.HistoryDays)
	s.metrics.RefreshRunning.Set(1)
	defer s.metrics.RefreshRunning.Set(0)

	s.warmUp(ctx)

	ticker := s.clock.NewTicker(s.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("vessel data refresh stopping", "reason", ctx.Err())
			return nil
		case <-ticker.Chan():
			if _, err := s.refreshLatest(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("scheduled refresh failed", "error", err)
			}
		}
	}
}

// warmUp mirrors what the dashboard needs on first paint: the date picker,
// the current state, and the default historical window. Failures are logged
// and left to the next refresh.
func (s *Service) warmUp(ctx context.Context) {
	dates, err := s.ListAvailableDates(ctx)
	if err != nil {
		s.logger.Warn("warm-up: available dates failed", "error", err)
	} else {
		s.logger.Info("warm-up: available dates loaded", "count", len(dates))
	}
	if ctx.Err() != nil {
		return
	}

	if _, err := s.refreshLatest(ctx); err != nil && !errors.Is(err, domain.ErrNoData) {
		s.logger.Warn("warm-up: latest state failed", "error", err)
	}
	if ctx.Err() != nil {
		return
	}

	if _, err := s.FetchHistoricalWindow(ctx, s.opts.HistoryDays); err != nil && !errors.Is(err, domain.ErrNoData) {
		s.logger.Warn("warm-up: historical window failed", "error", err)
	}
}
