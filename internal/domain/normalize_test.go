package domain

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNormalizer(policy DateFallbackPolicy, opts ...NormalizerOption) *Normalizer {
	return NewNormalizer(DefaultProfile(), policy, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func TestNormalize_EmptyRecordDefaults(t *testing.T) {
	freezeClock(t)
	n := testNormalizer(FallbackToToday)

	got, err := n.Normalize(RawRecord{})
	require.NoError(t, err)

	assert.Equal(t, "V1000", got.ID)
	assert.Equal(t, "MV CryoMaster", got.Name)
	assert.Equal(t, "MEGI", got.Type)
	assert.Equal(t, 170000.0, got.Capacity)
	assert.Equal(t, "N/A", got.Status)
	assert.Equal(t, "N/A", got.VoyageNo)
	assert.Equal(t, TankReading{Tank1: "0.080", Tank2: "0.080", Avg: "0.080"}, got.TankPressure)
	assert.Equal(t, TankReading{Tank1: "-160.0", Tank2: "-160.0", Avg: "-160.0"}, got.CargoTemp)
	assert.Equal(t, CargoLevel{Percentage: "0.0", Tank1Level: "0.0", Tank2Level: "0.0"}, got.CargoLevel)
	assert.Equal(t, 0.088, got.BOGRate)
	assert.Equal(t, 70, got.NBOGRate)
	assert.True(t, got.CPCompliant)
	assert.Equal(t, "NO", got.Port.InPort)
	assert.Equal(t, "N/A", got.Port.NextPort)
	assert.Equal(t, "00:00", got.Time)
	assert.Equal(t, "UTC", got.TimeZone)
	assert.Equal(t, "2024-02-01", got.Date)
	assert.Equal(t, ModeFlags{Gas: "N/A", LSMGO: "N/A"}, got.OperationMode.BLR)
}

// TestNormalize_Totality checks that no field of the serialized state is
// ever null, whatever the input carries.
func TestNormalize_Totality(t *testing.T) {
	freezeClock(t)
	n := testNormalizer(FallbackToToday)

	inputs := map[string]RawRecord{
		"empty":       {},
		"all nulls":   allColumns(nil),
		"all strings": allColumns("garbage"),
		"all zero":    allColumns(0),
		"sparse":      {"DATE": "15-01-2024", "BF": "3", "Event": "Noon"},
	}

	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			state, err := n.Normalize(raw)
			require.NoError(t, err)

			data, err := json.Marshal(state)
			require.NoError(t, err)
			var tree map[string]any
			require.NoError(t, json.Unmarshal(data, &tree))
			assertNoNulls(t, "", tree)
		})
	}
}

func allColumns(v any) RawRecord {
	raw := RawRecord{}
	for _, f := range numberFields {
		for _, k := range f.keys {
			raw[k] = v
		}
	}
	for _, f := range textFields {
		for _, k := range f.keys {
			raw[k] = v
		}
	}
	return raw
}

func assertNoNulls(t *testing.T, path string, v any) {
	t.Helper()
	switch node := v.(type) {
	case nil:
		t.Errorf("field %s is null", path)
	case map[string]any:
		for k, child := range node {
			assertNoNulls(t, path+"."+k, child)
		}
	case []any:
		for _, child := range node {
			assertNoNulls(t, path+"[]", child)
		}
	}
}

// TestNormalize_EveryMappedColumnIsRead sets each mapped column in turn and
// checks that it changes the normalized state.
func TestNormalize_EveryMappedColumnIsRead(t *testing.T) {
	freezeClock(t)
	n := testNormalizer(FallbackToToday)
	base, err := n.Normalize(RawRecord{})
	require.NoError(t, err)

	for _, f := range numberFields {
		for _, key := range f.keys {
			t.Run(f.path+"/"+key, func(t *testing.T) {
				got, err := n.Normalize(RawRecord{key: 7})
				require.NoError(t, err)
				assert.NotEmpty(t, cmp.Diff(base, got), "column %q had no effect", key)
			})
		}
	}
	for _, f := range textFields {
		for _, key := range f.keys {
			t.Run(f.path+"/"+key, func(t *testing.T) {
				got, err := n.Normalize(RawRecord{key: "X"})
				require.NoError(t, err)
				assert.NotEmpty(t, cmp.Diff(base, got), "column %q had no effect", key)
			})
		}
	}
}

func TestNormalize_DerivedValues(t *testing.T) {
	freezeClock(t)
	n := testNormalizer(FallbackToToday)

	raw := RawRecord{
		"DATE":                                     "15-01-2024",
		"id":                                       "PG-01",
		"No.1_LNG_tank(Stb'd)_Pressure(Mpa)":       0.1,
		"No.2_LNG_tank(Port)_level_mmPressure(Mpa)": "0.12",
		"No.1_LNG_tank(Stb'd)_AvgTemp":             -158.5,
		"No.2_LNG_tank(Port)_level_mmAvg_Temp":     "-159.5",
		"No.1_LNG_tank(Stb'd)":                     42500,
		"No.2_LNG_tank(Port)_level_mm":             json.Number("42500"),
		"CARGO_ONBOARDQUANTITY":                    json.Number("85000"),
		"BF":                                       4,
		"SWELL(M)":                                 "2.9",
		"M/E_CONS_LNG":                             "12.5 MT",
		"COMP_BLR_CONS_LNG":                        1.5,
		"AUX_BLR_CONS_LNG":                         2,
		"TOTAL_BUNKER_CONS_LNG":                    16,
		"Laden_condition":                          "Laden",
		"IN_PORT_(ONLY_IN_PORT)":                   "YES",
	}

	got, err := n.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "2024-01-15", got.Date)
	assert.Equal(t, "PG-01", got.ID)
	assert.Equal(t, TankReading{Tank1: "0.100", Tank2: "0.120", Avg: "0.110"}, got.TankPressure)
	assert.Equal(t, TankReading{Tank1: "-158.5", Tank2: "-159.5", Avg: "-159.0"}, got.CargoTemp)
	assert.Equal(t, CargoQty{Tank1: 42500, Tank2: 42500, Total: 85000}, got.CargoQty)
	assert.Equal(t, CargoLevel{Percentage: "50.0", Tank1Level: "50.0", Tank2Level: "50.0"}, got.CargoLevel)
	assert.Equal(t, 0.091, got.BOGRate)
	assert.Equal(t, got.BOGRate, got.BoilOffRate)
	assert.Equal(t, 73, got.NBOGRate)
	assert.True(t, got.CPCompliant)
	assert.Equal(t, 2.9, got.SwellHeight)
	assert.Equal(t, 12.5, got.Consumption.ME.LNG)
	assert.Equal(t, 12.5, got.MEConsumption)
	assert.Equal(t, 3.5, got.Consumption.Boiler.LNG)
	assert.Equal(t, 3.5, got.BoilerConsumption)
	assert.Equal(t, 16.0, got.Consumption.Total.LNG)
	assert.Equal(t, 16.0, got.FuelConsumption.Gas)
	assert.Equal(t, 16.0, got.TotalConsumption)
	assert.Equal(t, "Laden", got.Status)
	assert.Equal(t, "YES", got.Port.InPort)
}

func TestNormalize_BoilOffRateIsCapped(t *testing.T) {
	n := testNormalizer(FallbackToToday)

	got, err := n.Normalize(RawRecord{
		"DATE":                                     "15-01-2024",
		"No.1_LNG_tank(Stb'd)_Pressure(Mpa)":       0.5,
		"No.2_LNG_tank(Port)_level_mmPressure(Mpa)": 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 0.1, got.BOGRate)
	assert.Equal(t, 80, got.NBOGRate)
}

func TestNormalize_CPCompliance(t *testing.T) {
	n := testNormalizer(FallbackToToday)

	tests := []struct {
		name string
		raw  RawRecord
		want bool
	}{
		{"calm", RawRecord{"BF": 4, "SWELL(M)": 2.5}, true},
		{"beaufort five", RawRecord{"BF": 5, "SWELL(M)": 1}, false},
		{"swell three", RawRecord{"BF": 2, "SWELL(M)": 3}, false},
		{"legacy swell column ignored", RawRecord{"BF": 2, "Swell_ht": 4}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.raw["DATE"] = "15-01-2024"
			got, err := n.Normalize(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.CPCompliant)
		})
	}
}

func TestNormalize_NumericZeroTextUsesDefault(t *testing.T) {
	freezeClock(t)
	n := testNormalizer(FallbackToToday)

	got, err := n.Normalize(RawRecord{
		"DATE":                   "15-01-2024",
		"id":                     json.Number("0"),
		"VOYAGE_NO.":             json.Number("0"),
		"IN_PORT_(ONLY_IN_PORT)": 0,
	})
	require.NoError(t, err)
	assert.Equal(t, "V1000", got.ID)
	assert.Equal(t, "N/A", got.VoyageNo)
	assert.Equal(t, "NO", got.Port.InPort)
}

func TestNormalize_SwellFallsBackToLegacyColumn(t *testing.T) {
	n := testNormalizer(FallbackToToday)

	got, err := n.Normalize(RawRecord{"DATE": "15-01-2024", "Swell_ht": 1.2})
	require.NoError(t, err)
	assert.Equal(t, 1.2, got.SwellHeight)
}

func TestNormalize_CustomProfile(t *testing.T) {
	profile := VesselProfile{DefaultID: "V2", Name: "MV Test", Type: "XDF", Capacity: 100000, TankCount: 4}
	n := NewNormalizer(profile, FallbackToToday, slog.New(slog.NewTextHandler(io.Discard, nil)))

	got, err := n.Normalize(RawRecord{
		"DATE":                  "15-01-2024",
		"CARGO_ONBOARDQUANTITY": 50000,
		"No.1_LNG_tank(Stb'd)":  12500,
	})
	require.NoError(t, err)
	assert.Equal(t, "V2", got.ID)
	assert.Equal(t, "MV Test", got.Name)
	assert.Equal(t, "50.0", got.CargoLevel.Percentage)
	assert.Equal(t, "50.0", got.CargoLevel.Tank1Level)
	assert.Equal(t, profile, n.Profile())

	t.Run("tank count defaults to two", func(t *testing.T) {
		n := NewNormalizer(VesselProfile{Capacity: 1000}, FallbackToToday, slog.New(slog.NewTextHandler(io.Discard, nil)))
		assert.Equal(t, 2, n.Profile().TankCount)
	})
}

func TestNormalize_DateFallback(t *testing.T) {
	freezeClock(t)

	t.Run("today policy keeps the record", func(t *testing.T) {
		calls := 0
		n := testNormalizer(FallbackToToday, WithDateFallbackHook(func() { calls++ }))

		got, err := n.Normalize(RawRecord{"DATE": "2024/01/15", "BF": 2})
		require.NoError(t, err)
		assert.Equal(t, "2024-02-01", got.Date)
		assert.Equal(t, 1, calls)
	})

	t.Run("reject policy drops the record", func(t *testing.T) {
		calls := 0
		n := testNormalizer(RejectMalformed, WithDateFallbackHook(func() { calls++ }))

		got, err := n.Normalize(RawRecord{"DATE": "2024/01/15"})
		require.ErrorIs(t, err, ErrMalformedRecord)
		assert.Contains(t, err.Error(), "2024/01/15")
		assert.Equal(t, VesselState{}, got)
		assert.Equal(t, 1, calls)
	})

	t.Run("valid date does not call the hook", func(t *testing.T) {
		calls := 0
		n := testNormalizer(RejectMalformed, WithDateFallbackHook(func() { calls++ }))

		_, err := n.Normalize(RawRecord{"DATE": "15-01-2024"})
		require.NoError(t, err)
		assert.Zero(t, calls)
	})
}

func TestNormalize_NilRecord(t *testing.T) {
	n := testNormalizer(FallbackToToday)

	_, err := n.Normalize(nil)
	require.ErrorIs(t, err, ErrNilRecord)
}

func TestFieldValues_UnmappedPathPanics(t *testing.T) {
	v := readFields(RawRecord{})
	assert.Panics(t, func() { v.n("no.such.path") })
	assert.Panics(t, func() { v.t("no.such.path") })
	assert.NotPanics(t, func() { v.n(pSpeed) })
}

func TestNormalizeAll(t *testing.T) {
	n := testNormalizer(RejectMalformed)

	got := n.NormalizeAll([]RawRecord{
		{"DATE": "01-01-2024"},
		nil,
		{"DATE": "bad"},
		{"DATE": "02-01-2024"},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "2024-01-01", got[0].Date)
	assert.Equal(t, "2024-01-02", got[1].Date)

	empty := n.NormalizeAll(nil)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}
