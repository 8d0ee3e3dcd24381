// Command normalize reads a JSON export of raw vessel rows (for example a
// PostgREST dump of the vessel table) and writes the normalized states as a
// fixture. It uses the same domain package as the service so the output
// matches what the API would return.
//
// Usage:
//
//	go run ./cmd/normalize \
//	  -in data/pacific_garnet_export.json \
//	  -out data/fixtures/vessel_states.json \
//	  -today 2024-02-01
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/vessel-data-service/internal/adapter/memstore"
	"github.com/couchcryptid/vessel-data-service/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	in := flag.String("in", "", "path to a JSON array of raw vessel rows")
	out := flag.String("out", "", "output path for the normalized fixture")
	today := flag.String("today", "", "fixed yyyy-mm-dd used for unreadable dates (default: real today)")
	capacity := flag.Float64("capacity", domain.DefaultProfile().Capacity, "vessel cargo capacity in m3")
	flag.Parse()

	if *in == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -in, -out")
	}

	if *today != "" {
		t, err := time.Parse(domain.InternalDateLayout, *today)
		if err != nil {
			return fmt.Errorf("invalid -today: %w", err)
		}
		// Fixed clock for reproducible fallback dates.
		domain.SetClock(clockwork.NewFakeClockAt(t))
		defer domain.SetClock(nil)
	}

	store, err := memstore.LoadFile(*in)
	if err != nil {
		return err
	}
	rows, err := store.Select(context.Background(), domain.NewQuery().OrderBy(domain.DateColumn, false))
	if err != nil {
		return fmt.Errorf("read rows: %w", err)
	}
	log.Printf("read %d raw rows from %s", len(rows), *in)

	profile := domain.DefaultProfile()
	profile.Capacity = *capacity

	fallbacks := 0
	normalizer := domain.NewNormalizer(profile, domain.FallbackToToday,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		domain.WithDateFallbackHook(func() { fallbacks++ }))
	states := normalizer.NormalizeAll(rows)

	if err := writeJSON(*out, states); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(states, len(rows), fallbacks)
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

// statsResult holds aggregated values for printStats reporting.
type statsResult struct {
	first, last   string
	cpCompliant   int
	inPort        int
	laden         int
	ballast       int
	totalLNG      float64
	totalLSMGO    float64
	maxLevel      float64
	minLevel      float64
	nbogRateCount map[int]int
}

func collectStats(states []domain.VesselState) statsResult {
	s := statsResult{nbogRateCount: map[int]int{}, minLevel: 100}
	for i := range states {
		st := &states[i]
		if s.first == "" || st.Date < s.first {
			s.first = st.Date
		}
		if st.Date > s.last {
			s.last = st.Date
		}
		if st.CPCompliant {
			s.cpCompliant++
		}
		if st.Port.InPort != "NO" {
			s.inPort++
		}
		switch st.Status {
		case "Laden", "LADEN":
			s.laden++
		case "Ballast", "BALLAST":
			s.ballast++
		}
		s.totalLNG += st.Consumption.Total.LNG
		s.totalLSMGO += st.Consumption.Total.LSMGO
		if level, err := strconv.ParseFloat(st.CargoLevel.Percentage, 64); err == nil {
			s.maxLevel = max(s.maxLevel, level)
			s.minLevel = min(s.minLevel, level)
		}
		s.nbogRateCount[st.NBOGRate]++
	}
	return s
}

func printStats(states []domain.VesselState, rawCount, fallbacks int) {
	stats := collectStats(states)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Raw rows: %d, normalized: %d, dropped: %d\n", rawCount, len(states), rawCount-len(states))
	fmt.Printf("Unreadable dates (stamped with today): %d\n", fallbacks)
	if len(states) == 0 {
		return
	}
	fmt.Printf("Date span: %s .. %s\n", stats.first, stats.last)
	fmt.Printf("CP compliant days: %d\n", stats.cpCompliant)
	fmt.Printf("Status: laden=%d, ballast=%d, in port=%d\n", stats.laden, stats.ballast, stats.inPort)
	fmt.Printf("Total consumption: LNG=%.2f t, LSMGO=%.2f t\n", stats.totalLNG, stats.totalLSMGO)
	fmt.Printf("Cargo level range: %.1f%% .. %.1f%%\n", stats.minLevel, stats.maxLevel)
	fmt.Printf("NBOG rates: %v\n", stats.nbogRateCount)
}
