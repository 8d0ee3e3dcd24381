package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/vessel-data-service/internal/domain"
	"github.com/couchcryptid/vessel-data-service/internal/observability"
)

func state(date string) domain.VesselState {
	return domain.VesselState{ID: "V1000", Date: date}
}

func TestCache_LatestStaleness(t *testing.T) {
	clk := clockwork.NewFakeClock()
	metrics := observability.NewMetricsForTesting()
	c := New(clk, 5*time.Minute, metrics)

	_, ok := c.FreshLatest()
	assert.False(t, ok)
	_, ok = c.Latest()
	assert.False(t, ok)
	assert.True(t, c.LatestFetchedAt().IsZero())

	c.SetLatest(state("2024-01-15"))
	assert.Equal(t, clk.Now(), c.LatestFetchedAt())

	clk.Advance(4*time.Minute + 59*time.Second)
	got, ok := c.FreshLatest()
	require.True(t, ok)
	assert.Equal(t, "2024-01-15", got.Date)

	clk.Advance(time.Second)
	_, ok = c.FreshLatest()
	assert.False(t, ok, "latest must be stale at the TTL")

	got, ok = c.Latest()
	require.True(t, ok, "a stale latest is still readable")
	assert.Equal(t, "2024-01-15", got.Date)

	c.SetLatest(state("2024-01-16"))
	got, ok = c.FreshLatest()
	require.True(t, ok)
	assert.Equal(t, "2024-01-16", got.Date)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues(RegionLatest, "hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.CacheLookups.WithLabelValues(RegionLatest, "miss")))
}

func TestCache_RegionsAreIndependent(t *testing.T) {
	c := New(nil, 0, observability.NewMetricsForTesting())

	c.SetByDate("2024-01-15", state("2024-01-15"))

	_, ok := c.ByDate("2024-01-15")
	assert.True(t, ok)
	_, ok = c.ByDate("2024-01-16")
	assert.False(t, ok)
	_, ok = c.ByRange("2024-01-15", "2024-01-15")
	assert.False(t, ok)
	_, ok = c.Historical()
	assert.False(t, ok)
	_, ok = c.Latest()
	assert.False(t, ok)

	c.SetByRange("2024-01-01", "2024-01-02", []domain.VesselState{state("2024-01-01"), state("2024-01-02")})
	got, ok := c.ByRange("2024-01-01", "2024-01-02")
	require.True(t, ok)
	assert.Len(t, got, 2)
	_, ok = c.ByRange("2024-01-02", "2024-01-01")
	assert.False(t, ok, "range keys are ordered")
}

func TestCache_EmptyResultsAreNotCached(t *testing.T) {
	c := New(nil, 0, observability.NewMetricsForTesting())

	c.SetByRange("2024-01-01", "2024-01-02", nil)
	c.SetByRange("2024-01-01", "2024-01-03", []domain.VesselState{})
	c.SetHistorical([]domain.VesselState{})

	_, ok := c.ByRange("2024-01-01", "2024-01-02")
	assert.False(t, ok)
	_, ok = c.ByRange("2024-01-01", "2024-01-03")
	assert.False(t, ok)
	_, ok = c.Historical()
	assert.False(t, ok)
}

func TestCache_ReturnsCopies(t *testing.T) {
	c := New(nil, 0, observability.NewMetricsForTesting())

	input := []domain.VesselState{state("2024-01-01"), state("2024-01-02")}
	c.SetByRange("2024-01-01", "2024-01-02", input)
	c.SetHistorical(input)
	input[0].Date = "mutated"

	got, _ := c.ByRange("2024-01-01", "2024-01-02")
	assert.Equal(t, "2024-01-01", got[0].Date)
	got[1].Date = "mutated"

	again, _ := c.ByRange("2024-01-01", "2024-01-02")
	assert.Equal(t, "2024-01-02", again[1].Date)

	hist, ok := c.Historical()
	require.True(t, ok)
	assert.Equal(t, "2024-01-01", hist[0].Date)
}

func TestCache_HistoricalIsReplaced(t *testing.T) {
	c := New(nil, 0, observability.NewMetricsForTesting())

	c.SetHistorical([]domain.VesselState{state("2024-01-01")})
	c.SetHistorical([]domain.VesselState{state("2024-01-01"), state("2024-01-02")})

	got, ok := c.Historical()
	require.True(t, ok)
	assert.Len(t, got, 2)
}

func TestRangeKey(t *testing.T) {
	assert.Equal(t, "2024-01-01_2024-01-31", RangeKey("2024-01-01", "2024-01-31"))
}

func TestNew_Defaults(t *testing.T) {
	c := New(nil, -time.Second, observability.NewMetricsForTesting())
	assert.Equal(t, DefaultLatestTTL, c.latestTTL)
	assert.NotNil(t, c.clock)
}
