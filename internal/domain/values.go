package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// RawRecord is one backing-store row keyed by its upstream column names.
type RawRecord map[string]any

// leadingNumberRe matches the numeric prefix of values such as "12.5 MT".
var leadingNumberRe = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// Number returns the first usable numeric value among keys. A value is
// unusable when it is absent, nil, empty, zero, or not numeric; in that case
// the next key is tried and finally fallback is returned.
func (r RawRecord) Number(fallback float64, keys ...string) float64 {
	for _, k := range keys {
		if v, ok := toFloat64(r[k]); ok && v != 0 {
			return v
		}
	}
	return fallback
}

// Text returns the first non-empty textual value among keys, or fallback.
func (r RawRecord) Text(fallback string, keys ...string) string {
	for _, k := range keys {
		if s := toText(r[k]); s != "" {
			return s
		}
	}
	return fallback
}

// Has reports whether any of keys carries a non-nil value.
func (r RawRecord) Has(keys ...string) bool {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != nil {
			return true
		}
	}
	return false
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return parseNumericText(n.String())
		}
		return finite(f)
	case string:
		return parseNumericText(n)
	case []byte:
		return parseNumericText(string(n))
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// parseNumericText parses a float, falling back to the leading numeric prefix.
func parseNumericText(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return finite(f)
	}
	m := leadingNumberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func toText(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case []byte:
		return strings.TrimSpace(string(s))
	case json.Number:
		if f, err := s.Float64(); err == nil && f == 0 {
			return ""
		}
		return s.String()
	case float64:
		if s == 0 {
			return ""
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		if !s {
			return ""
		}
		return "true"
	case int, int32, int64, float32:
		// Numeric zero is missing, as for float64.
		if f, _ := toFloat64(s); f == 0 {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(s))
	default:
		return strings.TrimSpace(fmt.Sprint(s))
	}
}

// roundTo rounds f to the given number of decimal places.
func roundTo(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}

// fixed renders f with exactly places decimals.
func fixed(f float64, places int) string {
	return strconv.FormatFloat(f, 'f', places, 64)
}
