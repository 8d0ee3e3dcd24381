package domain

// Upstream column names. The backing store mixes casing, embeds units and
// tank identifiers in names, and carries a few misspellings; they are kept
// verbatim here and nowhere else.
const (
	colDate = "DATE"

	colTank1Pressure = "No.1_LNG_tank(Stb'd)_Pressure(Mpa)"
	colTank2Pressure = "No.2_LNG_tank(Port)_level_mmPressure(Mpa)"
	colTank1Temp     = "No.1_LNG_tank(Stb'd)_AvgTemp"
	colTank2Temp     = "No.2_LNG_tank(Port)_level_mmAvg_Temp"
	colTank1Qty      = "No.1_LNG_tank(Stb'd)"
	colTank2Qty      = "No.2_LNG_tank(Port)_level_mm"
	colCargoOnboard  = "CARGO_ONBOARDQUANTITY"
	colSwellMeters   = "SWELL(M)"
)

// DateColumn is the backing-store column holding the storage-format date.
const DateColumn = colDate

// Canonical paths of values read from a raw record. Some paths name
// intermediate inputs of derived fields rather than output fields.
const (
	pTank1Pressure   = "tankPressure.tank1"
	pTank2Pressure   = "tankPressure.tank2"
	pTank1Temp       = "cargoTemp.tank1"
	pTank2Temp       = "cargoTemp.tank2"
	pTank1Qty        = "cargoQty.tank1"
	pTank2Qty        = "cargoQty.tank2"
	pCargoTotal      = "cargoQty.total"
	pSpeed           = "speed"
	pOrderedSpeed    = "orderedSpeed"
	pCourse          = "course"
	pBFScale         = "bfScale"
	pSwellHeight     = "swellHeight"
	pCPSwell         = "cpCompliant.swell"
	pSlip            = "slip"
	pDraftFwd        = "draft.forward"
	pDraftAft        = "draft.aft"
	pMELoad          = "engineData.load"
	pMERPM           = "engineData.rpm"
	pMELNG           = "consumption.me.lng"
	pMELSMGO         = "consumption.me.lsmgo"
	pAELNG           = "consumption.ae.lng"
	pAELSMGO         = "consumption.ae.lsmgo"
	pCompBoilerLNG   = "consumption.boiler.lng.composite"
	pAuxBoilerLNG    = "consumption.boiler.lng.auxiliary"
	pCompBoilerLSMGO = "consumption.boiler.lsmgo.composite"
	pAuxBoilerLSMGO  = "consumption.boiler.lsmgo.auxiliary"
	pTotalLNG        = "consumption.total.lng"
	pTotalLSMGO      = "consumption.total.lsmgo"
	pROBLNG          = "bunkerRob.lng"
	pROBLSMGO        = "bunkerRob.lsmgo"
	pRunME           = "runHours.mainEngine"
	pRunAE1          = "runHours.auxEngine1"
	pRunAE2          = "runHours.auxEngine2"
	pRunAE3          = "runHours.auxEngine3"
	pRunReliq        = "runHours.reliq"
	pRunGCU          = "runHours.gcu"
	pAELoad1         = "aeLoad.ae1"
	pAELoad2         = "aeLoad.ae2"
	pAELoad3         = "aeLoad.ae3"
	pSteamHours      = "voyage.steamHours"
	pSteamedMiles    = "voyage.steamedMiles"
	pEngineMiles     = "voyage.engineMiles"
	pDTG             = "voyage.dtg"
	pAmbient         = "temperatures.ambient"
	pSeaWater        = "temperatures.seaWater"
	pLat             = "position.lat"
	pLong            = "position.long"
	pAlerts          = "alerts"

	pID          = "id"
	pVoyageNo    = "voyageNo"
	pStatus      = "status"
	pEvent       = "event"
	pWeather     = "weather"
	pModeMEGas   = "operationMode.me.gas"
	pModeMELiq   = "operationMode.me.lsmgo"
	pModeAEGas   = "operationMode.ae.gas"
	pModeAELiq   = "operationMode.ae.lsmgo"
	pModeBLRGas  = "operationMode.blr.gas"
	pModeBLRLiq  = "operationMode.blr.lsmgo"
	pInPort      = "port.inPort"
	pCurrentPort = "port.currentPort"
	pETB         = "port.etb"
	pETBTime     = "port.etbTime"
	pETD         = "port.etd"
	pETDTime     = "port.etdTime"
	pNextPort    = "port.nextPort"
	pETA         = "port.eta"
	pETATime     = "port.etaTime"
	pTime        = "time"
	pTimeZone    = "timeZone"
)

const (
	notAvailable = "N/A"

	defaultTankPressure = 0.08
	defaultCargoTemp    = -160.0
)

// numberField maps raw columns, tried in order, to one numeric canonical value.
type numberField struct {
	path     string
	keys     []string
	fallback float64
}

// textField maps raw columns, tried in order, to one textual canonical value.
type textField struct {
	path     string
	keys     []string
	fallback string
}

var numberFields = []numberField{
	{pTank1Pressure, []string{colTank1Pressure}, defaultTankPressure},
	{pTank2Pressure, []string{colTank2Pressure}, defaultTankPressure},
	{pTank1Temp, []string{colTank1Temp}, defaultCargoTemp},
	{pTank2Temp, []string{colTank2Temp}, defaultCargoTemp},
	{pTank1Qty, []string{colTank1Qty}, 0},
	{pTank2Qty, []string{colTank2Qty}, 0},
	{pCargoTotal, []string{colCargoOnboard}, 0},

	{pSpeed, []string{"AVG_SPEED"}, 0},
	{pOrderedSpeed, []string{"ORDERED_SPEED"}, 0},
	{pCourse, []string{"COURSE"}, 0},
	{pBFScale, []string{"BF"}, 0},
	{pSwellHeight, []string{colSwellMeters, "Swell_ht"}, 0},
	{pCPSwell, []string{colSwellMeters}, 0},
	{pSlip, []string{"SLIP"}, 0},
	{pDraftFwd, []string{"DRAFT_fwd"}, 0},
	{pDraftAft, []string{"Draft_Aft"}, 0},

	{pMELoad, []string{"M/E_AVE._LOAD"}, 0},
	{pMERPM, []string{"M/ERPM"}, 0},
	{pMELNG, []string{"M/E_CONS_LNG"}, 0},
	{pMELSMGO, []string{"M/E_CONS_LSMGO"}, 0},
	{pAELNG, []string{"A/E_CONS_LNG"}, 0},
	{pAELSMGO, []string{"A/E_CONS_LSMGO"}, 0},
	{pCompBoilerLNG, []string{"COMP_BLR_CONS_LNG"}, 0},
	{pAuxBoilerLNG, []string{"AUX_BLR_CONS_LNG"}, 0},
	{pCompBoilerLSMGO, []string{"COMP_BLR_CONS_LSMGO"}, 0},
	{pAuxBoilerLSMGO, []string{"AUX_BLR_CONS_LSMGO"}, 0},
	{pTotalLNG, []string{"TOTAL_BUNKER_CONS_LNG"}, 0},
	{pTotalLSMGO, []string{"TOTAL_BUNKER_CONS_LSMGO"}, 0},
	{pROBLNG, []string{"BUNKER_ROB_LNG_t"}, 0},
	{pROBLSMGO, []string{"BUNKER_ROB_LSMGO"}, 0},

	{pRunME, []string{"MAIN_ENGINE_RUN_HOURS"}, 0},
	{pRunAE1, []string{"AUX_ENGINE_RUN_HOURS_1"}, 0},
	{pRunAE2, []string{"AUX_ENGINE_RUN_HOURS_2"}, 0},
	{pRunAE3, []string{"AUX_ENGINE_RUN_HOURS_3"}, 0},
	{pRunReliq, []string{"RELIQ_RUN_HOURS"}, 0},
	{pRunGCU, []string{"GCU_RUN_HOURS"}, 0},
	{pAELoad1, []string{"AUX._ENGINEAVE._LOAD_(KW)_1"}, 0},
	{pAELoad2, []string{"AUX._ENGINEAVE._LOAD_(KW)_2"}, 0},
	{pAELoad3, []string{"AUX._ENGINEAVE._LOAD_(KW)_3"}, 0},

	{pSteamHours, []string{"STEAM_HOUR"}, 0},
	{pSteamedMiles, []string{"STEAMED_MILE"}, 0},
	{pEngineMiles, []string{"ENGINE_MILE"}, 0},
	{pDTG, []string{"DTG"}, 0},
	{pAmbient, []string{"Ambient_Air"}, 0},
	{pSeaWater, []string{"Sea_Water"}, 0},
	{pLat, []string{"Lat"}, 0},
	{pLong, []string{"long"}, 0},
	{pAlerts, []string{"alerts"}, 0},
}

var textFields = []textField{
	{pID, []string{"id"}, ""},
	{pVoyageNo, []string{"VOYAGE_NO."}, notAvailable},
	{pStatus, []string{"Laden_condition"}, notAvailable},
	{pEvent, []string{"Event"}, notAvailable},
	{pWeather, []string{"WEATHER"}, notAvailable},

	{pModeMEGas, []string{"ME_operation_mode_Gas"}, notAvailable},
	{pModeMELiq, []string{"ME_operation_mode_LSMGO/LSFO"}, notAvailable},
	{pModeAEGas, []string{"AE_operation_mode_Gas"}, notAvailable},
	{pModeAELiq, []string{"AE_operation_mode_LSMGO/LSFO"}, notAvailable},
	{pModeBLRGas, []string{"BLR_operation_mode_Gas"}, notAvailable},
	{pModeBLRLiq, []string{"BLR_operation_mode_LSMGO/LSFO"}, notAvailable},

	{pInPort, []string{"IN_PORT_(ONLY_IN_PORT)"}, "NO"},
	{pCurrentPort, []string{"In_Port_name"}, notAvailable},
	{pETB, []string{"ETB_(Date_/_Time)(ONLY_AVAILABLE)"}, notAvailable},
	{pETBTime, []string{"ETB_time"}, notAvailable},
	{pETD, []string{"ETD_(Date_/_Time)(ONLY_AVAILABLE)"}, notAvailable},
	{pETDTime, []string{"ETD_time"}, notAvailable},
	{pNextPort, []string{"Next_portname"}, notAvailable},
	{pETA, []string{"ETA_(Date_/_Time)"}, notAvailable},
	{pETATime, []string{"ETA_time"}, notAvailable},

	{pTime, []string{"TIME"}, "00:00"},
	{pTimeZone, []string{"TIME_ZONE"}, "UTC"},
}

// fieldValues is the result of one pass over the mapping tables.
type fieldValues struct {
	num  map[string]float64
	text map[string]string
}

func readFields(raw RawRecord) fieldValues {
	v := fieldValues{
		num:  make(map[string]float64, len(numberFields)),
		text: make(map[string]string, len(textFields)),
	}
	for _, f := range numberFields {
		v.num[f.path] = raw.Number(f.fallback, f.keys...)
	}
	for _, f := range textFields {
		v.text[f.path] = raw.Text(f.fallback, f.keys...)
	}
	return v
}
