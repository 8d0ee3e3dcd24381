package domain

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"
)

var (
	// ErrNilRecord is returned when there is no raw record to normalize.
	ErrNilRecord = errors.New("nil raw record")
	// ErrMalformedRecord is returned when a record cannot be turned into a
	// complete VesselState.
	ErrMalformedRecord = errors.New("malformed vessel record")
)

const (
	baseBOGRate     = 0.08
	bogPressureGain = 0.1
	bogPressureCap  = 0.02
	nbogScale       = 100 * 8
)

// NormalizerOption customizes a Normalizer.
type NormalizerOption func(*Normalizer)

// WithDateFallbackHook registers fn to be called whenever a record's date
// could not be parsed, whatever the policy.
func WithDateFallbackHook(fn func()) NormalizerOption {
	return func(n *Normalizer) { n.onDateFallback = fn }
}

// Normalizer converts raw backing-store rows into VesselState values.
// It is safe for concurrent use.
type Normalizer struct {
	profile        VesselProfile
	policy         DateFallbackPolicy
	logger         *slog.Logger
	onDateFallback func()
}

// NewNormalizer returns a Normalizer for the given vessel.
func NewNormalizer(profile VesselProfile, policy DateFallbackPolicy, logger *slog.Logger, opts ...NormalizerOption) *Normalizer {
	if profile.TankCount <= 0 {
		profile.TankCount = 2
	}
	n := &Normalizer{profile: profile, policy: policy, logger: logger}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Profile returns the vessel profile applied to every record.
func (n *Normalizer) Profile() VesselProfile {
	return n.profile
}

// Normalize builds a VesselState from raw. Missing fields take their
// defaults, so only a nil record, a date rejected by policy, or an internal
// fault produce an error. No partial state is ever returned.
func (n *Normalizer) Normalize(raw RawRecord) (state VesselState, err error) {
	if raw == nil {
		return VesselState{}, ErrNilRecord
	}

	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("vessel record normalization panicked", "panic", r, "date", raw.Text("", colDate))
			state, err = VesselState{}, fmt.Errorf("%w: %v", ErrMalformedRecord, r)
		}
	}()

	rawDate := raw.Text("", colDate)
	parsed := ParseStorageDate(rawDate)
	if parsed.Fallback {
		if n.onDateFallback != nil {
			n.onDateFallback()
		}
		if n.policy == RejectMalformed {
			return VesselState{}, fmt.Errorf("%w: unreadable date %q", ErrMalformedRecord, rawDate)
		}
		n.logger.Warn("unreadable record date, using today", "raw_date", rawDate)
	}

	return n.assemble(readFields(raw), parsed.Date), nil
}

// NormalizeAll normalizes a batch, dropping and logging records that fail.
// The result is never nil.
func (n *Normalizer) NormalizeAll(raws []RawRecord) []VesselState {
	out := make([]VesselState, 0, len(raws))
	for i, raw := range raws {
		state, err := n.Normalize(raw)
		if err != nil {
			n.logger.Warn("skipping malformed vessel record", "index", i, "error", err)
			continue
		}
		out = append(out, state)
	}
	return out
}

func (n *Normalizer) assemble(v fieldValues, date time.Time) VesselState {
	p := n.profile

	tank1Pressure := roundTo(v.n(pTank1Pressure), 3)
	tank2Pressure := roundTo(v.n(pTank2Pressure), 3)
	avgPressure := (tank1Pressure + tank2Pressure) / 2
	tank1Temp := roundTo(v.n(pTank1Temp), 1)
	tank2Temp := roundTo(v.n(pTank2Temp), 1)
	avgTemp := (tank1Temp + tank2Temp) / 2

	bogRate := roundTo(baseBOGRate+math.Min(avgPressure*bogPressureGain, bogPressureCap), 3)

	tank1Qty, tank2Qty, total := v.n(pTank1Qty), v.n(pTank2Qty), v.n(pCargoTotal)
	perTankCapacity := p.Capacity / float64(p.TankCount)

	boilerLNG := v.n(pCompBoilerLNG) + v.n(pAuxBoilerLNG)
	boilerLSMGO := v.n(pCompBoilerLSMGO) + v.n(pAuxBoilerLSMGO)
	totalLNG, totalLSMGO := v.n(pTotalLNG), v.n(pTotalLSMGO)

	id := v.t(pID)
	if id == "" {
		id = p.DefaultID
	}

	return VesselState{
		ID:       id,
		Name:     p.Name,
		Type:     p.Type,
		Capacity: p.Capacity,
		VoyageNo: v.t(pVoyageNo),
		Status:   v.t(pStatus),
		Event:    v.t(pEvent),

		BOGRate:  bogRate,
		NBOGRate: int(math.Round(bogRate * nbogScale)),

		Speed:        v.n(pSpeed),
		OrderedSpeed: v.n(pOrderedSpeed),
		Course:       v.n(pCourse),
		Weather:      v.t(pWeather),
		BFScale:      v.n(pBFScale),
		SwellHeight:  v.n(pSwellHeight),
		Slip:         v.n(pSlip),
		CPCompliant:  v.n(pBFScale) < 5 && v.n(pCPSwell) < 3,

		TankPressure: TankReading{
			Tank1: fixed(tank1Pressure, 3),
			Tank2: fixed(tank2Pressure, 3),
			Avg:   fixed(avgPressure, 3),
		},
		CargoTemp: TankReading{
			Tank1: fixed(tank1Temp, 1),
			Tank2: fixed(tank2Temp, 1),
			Avg:   fixed(avgTemp, 1),
		},
		CargoQty: CargoQty{Tank1: tank1Qty, Tank2: tank2Qty, Total: total},
		CargoLevel: CargoLevel{
			Percentage: percentOf(total, p.Capacity),
			Tank1Level: percentOf(tank1Qty, perTankCapacity),
			Tank2Level: percentOf(tank2Qty, perTankCapacity),
		},
		Draft: Draft{Forward: v.n(pDraftFwd), Aft: v.n(pDraftAft)},

		FuelConsumption: FuelConsumption{Gas: totalLNG, Liquid: totalLSMGO},
		EngineData:      EngineData{Load: v.n(pMELoad), RPM: v.n(pMERPM)},
		Consumption: Consumption{
			ME:     FuelSplit{LNG: v.n(pMELNG), LSMGO: v.n(pMELSMGO)},
			AE:     FuelSplit{LNG: v.n(pAELNG), LSMGO: v.n(pAELSMGO)},
			Boiler: FuelSplit{LNG: boilerLNG, LSMGO: boilerLSMGO},
			Total:  FuelSplit{LNG: totalLNG, LSMGO: totalLSMGO},
		},
		BunkerROB: FuelSplit{LNG: v.n(pROBLNG), LSMGO: v.n(pROBLSMGO)},
		OperationMode: OperationMode{
			ME:  ModeFlags{Gas: v.t(pModeMEGas), LSMGO: v.t(pModeMELiq)},
			AE:  ModeFlags{Gas: v.t(pModeAEGas), LSMGO: v.t(pModeAELiq)},
			BLR: ModeFlags{Gas: v.t(pModeBLRGas), LSMGO: v.t(pModeBLRLiq)},
		},
		RunHours: RunHours{
			MainEngine: v.n(pRunME),
			AuxEngine1: v.n(pRunAE1),
			AuxEngine2: v.n(pRunAE2),
			AuxEngine3: v.n(pRunAE3),
			Reliq:      v.n(pRunReliq),
			GCU:        v.n(pRunGCU),
		},
		AELoad: AELoad{AE1: v.n(pAELoad1), AE2: v.n(pAELoad2), AE3: v.n(pAELoad3)},
		Voyage: Voyage{
			SteamHours:   v.n(pSteamHours),
			SteamedMiles: v.n(pSteamedMiles),
			EngineMiles:  v.n(pEngineMiles),
			DTG:          v.n(pDTG),
		},
		Temperatures: Temperatures{Ambient: v.n(pAmbient), SeaWater: v.n(pSeaWater)},
		Position:     Position{Lat: v.n(pLat), Long: v.n(pLong)},
		Port: Port{
			InPort:      v.t(pInPort),
			CurrentPort: v.t(pCurrentPort),
			ETB:         v.t(pETB),
			ETBTime:     v.t(pETBTime),
			ETD:         v.t(pETD),
			ETDTime:     v.t(pETDTime),
			NextPort:    v.t(pNextPort),
			ETA:         v.t(pETA),
			ETATime:     v.t(pETATime),
		},

		BoilOffRate:       bogRate,
		MEConsumption:     v.n(pMELNG),
		AEConsumption:     v.n(pAELNG),
		BoilerConsumption: boilerLNG,
		TotalConsumption:  totalLNG,
		BOGConsumption:    totalLNG,

		Date:     FormatInternalDate(date),
		Time:     v.t(pTime),
		TimeZone: v.t(pTimeZone),
		Alerts:   int(v.n(pAlerts)),
	}
}

// n returns the numeric value read for path. Unknown paths are a programming
// error and abort the record.
func (v fieldValues) n(path string) float64 {
	f, ok := v.num[path]
	if !ok {
		panic("unmapped numeric field " + path)
	}
	return f
}

func (v fieldValues) t(path string) string {
	s, ok := v.text[path]
	if !ok {
		panic("unmapped text field " + path)
	}
	return s
}

// percentOf renders part/whole*100 with one decimal. A non-positive whole renders 0.0.
func percentOf(part, whole float64) string {
	if whole <= 0 {
		return fixed(0, 1)
	}
	return fixed(roundTo(part/whole*100, 1), 1)
}
