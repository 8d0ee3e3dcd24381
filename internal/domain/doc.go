// Package domain models the daily noon-report records of a single LNG
// carrier and their normalization into a canonical vessel state.
//
// # Data Source
//
// Records live in one table of a hosted Postgres/PostgREST backend, one row
// per reporting day. Columns are named after the vessel's paper report
// forms, so names carry units, tank identifiers and spelling quirks:
//
//	"No.1_LNG_tank(Stb'd)_Pressure(Mpa)"   starboard tank pressure, MPa
//	"No.2_LNG_tank(Port)_level_mm"          port tank cargo quantity, m3
//	"M/E_CONS_LNG"                          main engine gas consumption, t
//	"SWELL(M)" or "Swell_ht"                swell height, metres
//
// All column names are kept in fields.go.
//
// # Date Conventions
//
// The DATE column is day-first text: "15-01-2024". Internally dates are
// rendered year-first ("2024-01-15") so they sort lexically and can be used
// as cache keys. A date that cannot be read is replaced with today's date and
// tagged as a fallback (see [ParsedDate]); [DateFallbackPolicy] decides
// whether such records are kept.
//
// # Defaults
//
// Every field of [VesselState] has a default, so any row, however sparse,
// normalizes to a complete state. A raw value that is missing, null, empty,
// zero or not numeric takes the default. Numeric text with a unit suffix
// ("12.5 MT") is read by its leading number.
//
//	Tank pressure:      0.080 MPa per tank
//	Cargo temperature:  -160.0 C per tank (LNG at atmospheric pressure)
//	Text fields:        "N/A", except inPort "NO", time "00:00", timeZone "UTC"
//	Numbers:            0
//
// # Derived Values
//
//	cargo level %     = onboard quantity / capacity * 100          (1 dp)
//	tank level %      = tank quantity / (capacity / tanks) * 100   (1 dp)
//	average pressure  = mean of the two tank pressures              (3 dp)
//	average temp      = mean of the two tank temperatures           (1 dp)
//	boil-off rate     = 0.08 + min(avg pressure * 0.1, 0.02)        (3 dp)
//	NBOG rate         = round(boil-off rate * 800)
//	CP compliant      = Beaufort < 5 and swell < 3 m
//
// Upstream level percentages are ignored; levels are always recomputed from
// quantities and the vessel profile's capacity.
package domain
