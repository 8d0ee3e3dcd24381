package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	// StorageDateLayout is the day-first format of the backing store's DATE column.
	StorageDateLayout = "02-01-2006"
	// InternalDateLayout is the sortable format used for cache keys and API payloads.
	InternalDateLayout = "2006-01-02"

	storageParseLayout = "2-1-2006"
)

// ParsedDate is the tagged result of a date parse. When Fallback is true the
// input could not be read and Date holds today's date as a sentinel for
// "date unknown", not a real observation.
type ParsedDate struct {
	Date     time.Time
	Fallback bool
}

// FormatStorageDate renders t as dd-mm-yyyy. A zero time renders today.
func FormatStorageDate(t time.Time) string {
	if t.IsZero() {
		t = Today()
	}
	return t.UTC().Format(StorageDateLayout)
}

// ParseStorageDate reads a dd-mm-yyyy date. Single-digit day and month are
// accepted. Malformed or empty input yields today with Fallback set.
func ParseStorageDate(s string) ParsedDate {
	return parseDate(s, storageParseLayout)
}

// FormatInternalDate renders t as yyyy-mm-dd. A zero time renders today.
func FormatInternalDate(t time.Time) string {
	if t.IsZero() {
		t = Today()
	}
	return t.UTC().Format(InternalDateLayout)
}

// ParseInternalDate reads a yyyy-mm-dd date with the same fallback rules as
// ParseStorageDate.
func ParseInternalDate(s string) ParsedDate {
	return parseDate(s, InternalDateLayout)
}

// StorageToInternal converts a storage date string straight to internal format.
func StorageToInternal(s string) (string, bool) {
	p := ParseStorageDate(s)
	return FormatInternalDate(p.Date), !p.Fallback
}

// InternalToStorage converts an internal date string straight to storage format.
func InternalToStorage(s string) (string, bool) {
	p := ParseInternalDate(s)
	return FormatStorageDate(p.Date), !p.Fallback
}

// CompareStorageDates orders two dd-mm-yyyy values by calendar day. When
// either side is unreadable they are compared as text.
func CompareStorageDates(a, b string) int {
	pa, pb := ParseStorageDate(a), ParseStorageDate(b)
	if pa.Fallback || pb.Fallback {
		return strings.Compare(a, b)
	}
	return pa.Date.Compare(pb.Date)
}

func parseDate(s, layout string) ParsedDate {
	s = strings.TrimSpace(s)
	if s == "" {
		return ParsedDate{Date: Today(), Fallback: true}
	}
	t, err := time.ParseInLocation(layout, s, time.UTC)
	if err != nil {
		return ParsedDate{Date: Today(), Fallback: true}
	}
	return ParsedDate{Date: t}
}

// DateFallbackPolicy decides what happens to a record whose date could not
// be parsed.
type DateFallbackPolicy int

const (
	// FallbackToToday keeps the record and stamps it with today's date.
	FallbackToToday DateFallbackPolicy = iota
	// RejectMalformed drops the record as malformed.
	RejectMalformed
)

// ParseDateFallbackPolicy maps a configuration value to a policy.
func ParseDateFallbackPolicy(s string) (DateFallbackPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return FallbackToToday, nil
	case "reject":
		return RejectMalformed, nil
	default:
		return 0, fmt.Errorf("unknown date fallback policy %q", s)
	}
}

func (p DateFallbackPolicy) String() string {
	if p == RejectMalformed {
		return "reject"
	}
	return "today"
}
