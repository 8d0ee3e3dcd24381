package domain

// VesselState is the canonical, fully defaulted snapshot of one vessel record.
// It is built only by Normalizer and holds value types exclusively, so copies
// never share state with the cached original.
type VesselState struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Capacity float64 `json:"capacity"`
	VoyageNo string  `json:"voyageNo"`
	Status   string  `json:"status"`
	Event    string  `json:"event"`

	BOGRate  float64 `json:"bogRate"`
	NBOGRate int     `json:"nbogRate"`

	Speed        float64 `json:"speed"`
	OrderedSpeed float64 `json:"orderedSpeed"`
	Course       float64 `json:"course"`
	Weather      string  `json:"weather"`
	BFScale      float64 `json:"bfScale"`
	SwellHeight  float64 `json:"swellHeight"`
	Slip         float64 `json:"slip"`
	CPCompliant  bool    `json:"cpCompliant"`

	TankPressure TankReading `json:"tankPressure"`
	CargoTemp    TankReading `json:"cargoTemp"`
	CargoQty     CargoQty    `json:"cargoQty"`
	CargoLevel   CargoLevel  `json:"cargoLevel"`
	Draft        Draft       `json:"draft"`

	FuelConsumption FuelConsumption `json:"fuelConsumption"`
	EngineData      EngineData      `json:"engineData"`
	Consumption     Consumption     `json:"consumption"`
	BunkerROB       FuelSplit       `json:"bunkerRob"`
	OperationMode   OperationMode   `json:"operationMode"`
	RunHours        RunHours        `json:"runHours"`
	AELoad          AELoad          `json:"aeLoad"`
	Voyage          Voyage          `json:"voyage"`
	Temperatures    Temperatures    `json:"temperatures"`
	Position        Position        `json:"position"`
	Port            Port            `json:"port"`

	// Convenience mirrors of fields above.
	BoilOffRate       float64 `json:"boilOffRate"`
	MEConsumption     float64 `json:"meConsumption"`
	AEConsumption     float64 `json:"aeConsumption"`
	BoilerConsumption float64 `json:"boilerConsumption"`
	TotalConsumption  float64 `json:"totalConsumption"`
	BOGConsumption    float64 `json:"bogConsumption"`

	Date     string `json:"date"`
	Time     string `json:"time"`
	TimeZone string `json:"timeZone"`
	Alerts   int    `json:"alerts"`
}

// TankReading carries per-tank values and their mean, pre-rendered with a
// fixed number of decimals.
type TankReading struct {
	Tank1 string `json:"tank1"`
	Tank2 string `json:"tank2"`
	Avg   string `json:"avg"`
}

type CargoQty struct {
	Tank1 float64 `json:"tank1"`
	Tank2 float64 `json:"tank2"`
	Total float64 `json:"total"`
}

// CargoLevel percentages are always derived from quantity and capacity.
type CargoLevel struct {
	Percentage string `json:"percentage"`
	Tank1Level string `json:"tank1Level"`
	Tank2Level string `json:"tank2Level"`
}

type Draft struct {
	Forward float64 `json:"forward"`
	Aft     float64 `json:"aft"`
}

type FuelConsumption struct {
	Gas    float64 `json:"gas"`
	Liquid float64 `json:"liquid"`
}

type EngineData struct {
	Load float64 `json:"load"`
	RPM  float64 `json:"rpm"`
}

// FuelSplit is a gas (LNG) versus liquid (LSMGO) pair.
type FuelSplit struct {
	LNG   float64 `json:"lng"`
	LSMGO float64 `json:"lsmgo"`
}

type Consumption struct {
	ME     FuelSplit `json:"me"`
	AE     FuelSplit `json:"ae"`
	Boiler FuelSplit `json:"boiler"`
	Total  FuelSplit `json:"total"`
}

// ModeFlags holds the raw operation-mode markers for one consumer group.
type ModeFlags struct {
	Gas   string `json:"gas"`
	LSMGO string `json:"lsmgo"`
}

type OperationMode struct {
	ME  ModeFlags `json:"me"`
	AE  ModeFlags `json:"ae"`
	BLR ModeFlags `json:"blr"`
}

type RunHours struct {
	MainEngine float64 `json:"mainEngine"`
	AuxEngine1 float64 `json:"auxEngine1"`
	AuxEngine2 float64 `json:"auxEngine2"`
	AuxEngine3 float64 `json:"auxEngine3"`
	Reliq      float64 `json:"reliq"`
	GCU        float64 `json:"gcu"`
}

type AELoad struct {
	AE1 float64 `json:"ae1"`
	AE2 float64 `json:"ae2"`
	AE3 float64 `json:"ae3"`
}

type Voyage struct {
	SteamHours   float64 `json:"steamHours"`
	SteamedMiles float64 `json:"steamedMiles"`
	EngineMiles  float64 `json:"engineMiles"`
	DTG          float64 `json:"dtg"`
}

type Temperatures struct {
	Ambient  float64 `json:"ambient"`
	SeaWater float64 `json:"seaWater"`
}

type Position struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
}

type Port struct {
	InPort      string `json:"inPort"`
	CurrentPort string `json:"currentPort"`
	ETB         string `json:"etb"`
	ETBTime     string `json:"etbTime"`
	ETD         string `json:"etd"`
	ETDTime     string `json:"etdTime"`
	NextPort    string `json:"nextPort"`
	ETA         string `json:"eta"`
	ETATime     string `json:"etaTime"`
}

// VesselProfile identifies the vessel whose records are being normalized.
// These values are never read from individual records.
type VesselProfile struct {
	DefaultID string
	Name      string
	Type      string
	Capacity  float64
	TankCount int
}

// DefaultProfile describes the MEGI carrier the dashboard was built for.
func DefaultProfile() VesselProfile {
	return VesselProfile{
		DefaultID: "V1000",
		Name:      "MV CryoMaster",
		Type:      "MEGI",
		Capacity:  170000,
		TankCount: 2,
	}
}
