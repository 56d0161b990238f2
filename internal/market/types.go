package market

import "fmt"

// Timeframe is the settlement period of a trade.
type Timeframe int

const (
	Yearly Timeframe = iota
	Monthly
	Daily
	Hourly
)

func (t Timeframe) String() string {
	switch t {
	case Yearly:
		return "yearly"
	case Monthly:
		return "monthly"
	case Daily:
		return "daily"
	case Hourly:
		return "hourly"
	default:
		return fmt.Sprintf("Timeframe(%d)", int(t))
	}
}

// Currency of a price.
type Currency int

const (
	USD Currency = iota
	EUR
	SGD
	THB
)

func (c Currency) String() string {
	switch c {
	case USD:
		return "USD"
	case EUR:
		return "EUR"
	case SGD:
		return "SGD"
	case THB:
		return "THB"
	default:
		return fmt.Sprintf("Currency(%d)", int(c))
	}
}

// AssetType is the generation technology a demand may ask for.
type AssetType int

const (
	Wind AssetType = iota
	Solar
	RunRiverHydro
	BiomassGas
)

func (a AssetType) String() string {
	switch a {
	case Wind:
		return "wind"
	case Solar:
		return "solar"
	case RunRiverHydro:
		return "run-river-hydro"
	case BiomassGas:
		return "biomass-gas"
	default:
		return fmt.Sprintf("AssetType(%d)", int(a))
	}
}

// Compliance is a certificate registry.
type Compliance int

const (
	ComplianceNone Compliance = iota
	IREC
	EEC
	TIGR
)

func (c Compliance) String() string {
	switch c {
	case ComplianceNone:
		return "none"
	case IREC:
		return "I-REC"
	case EEC:
		return "EEC"
	case TIGR:
		return "TIGR"
	default:
		return fmt.Sprintf("Compliance(%d)", int(c))
	}
}

// DemandProperties is the off-ledger payload of a Demand. Optional
// filters restrict which supplies may match.
type DemandProperties struct {
	Timeframe         Timeframe `json:"timeframe"`
	MaxPricePerMwh    float64   `json:"maxPricePerMwh"`
	Currency          Currency  `json:"currency"`
	TargetWhPerPeriod int64     `json:"targetWhPerPeriod"`

	ProducingAsset       *uint64     `json:"producingAsset,omitempty"`
	ConsumingAsset       *uint64     `json:"consumingAsset,omitempty"`
	LocationCountry      string      `json:"locationCountry,omitempty"`
	LocationRegion       string      `json:"locationRegion,omitempty"`
	AssetType            *AssetType  `json:"assettype,omitempty"`
	MinCO2Offset         *float64    `json:"minCO2Offset,omitempty"`
	OtherGreenAttributes string      `json:"otherGreenAttributes,omitempty"`
	TypeOfPublicSupport  string      `json:"typeOfPublicSupport,omitempty"`
	RegistryCompliance   *Compliance `json:"registryCompliance,omitempty"`
	StartTime            string      `json:"startTime,omitempty"`
	EndTime              string      `json:"endTime,omitempty"`
}

// SupplyProperties is the off-ledger payload of a Supply.
type SupplyProperties struct {
	Price       float64   `json:"price"`
	Currency    Currency  `json:"currency"`
	AvailableWh int64     `json:"availableWh"`
	Timeframe   Timeframe `json:"timeframe"`
}

// AgreementProperties are the agreed trade terms. Start and End are unix
// seconds.
type AgreementProperties struct {
	Start     int64     `json:"start"`
	End       int64     `json:"end"`
	Price     float64   `json:"price"`
	Currency  Currency  `json:"currency"`
	Period    int64     `json:"period"`
	Timeframe Timeframe `json:"timeframe"`
}

// MatcherProperties is the settlement telemetry a matcher maintains on an
// agreement.
type MatcherProperties struct {
	CurrentWh     int64 `json:"currentWh"`
	CurrentPeriod int64 `json:"currentPeriod"`
}
