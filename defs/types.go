package defs

import "time"

// Trend arrows reported alongside readings. Upstream reports a numeric
// direction which the client maps onto these.
const (
	TrendFlat       = "flat"
	TrendUp45       = "up45"
	TrendUp         = "up"
	TrendUpDouble   = "up-double"
	TrendDown45     = "down45"
	TrendDown       = "down"
	TrendDownDouble = "down-double"
)

type TimePoint interface {
	GetTime() time.Time
}

// Reading is a single glucose measurement in mg/dL. Readings are immutable
// once produced; the analytics engine borrows slices of them and never
// retains or mutates them.
type Reading struct {
	Time  time.Time `json:"timestamp" bson:"time"`
	Value float64   `json:"value" bson:"value"`
	Trend string    `json:"trendArrow" bson:"trend"`
	High  bool      `json:"isHigh" bson:"high"`
	Low   bool      `json:"isLow" bson:"low"`
}

func (r *Reading) GetTime() time.Time {
	return r.Time
}

// TargetRange is the configured target glucose interval, Low < High.
type TargetRange struct {
	Low  float64 `json:"low" yaml:"low"`
	High float64 `json:"high" yaml:"high"`
}

// GlucoseStats summarizes a reading window. The three time percentages sum
// to 100 within rounding for any non-empty window.
type GlucoseStats struct {
	Average                   float64 `json:"average"`
	GMI                       float64 `json:"gmi"`
	TimeInRangePct            float64 `json:"timeInRangePct"`
	TimeBelowRangePct         float64 `json:"timeBelowRangePct"`
	TimeAboveRangePct         float64 `json:"timeAboveRangePct"`
	StandardDeviation         float64 `json:"standardDeviation"`
	CoefficientOfVariationPct float64 `json:"coefficientOfVariationPct"`
}

// TrendReport describes recurring temporal patterns found in a reading window.
type TrendReport struct {
	Patterns                 []string `json:"patterns"`
	DawnPhenomenonDetected   bool     `json:"dawnPhenomenonDetected"`
	MealResponseAvgRise      float64  `json:"mealResponseAvgRise"`
	OvernightStabilityStdDev float64  `json:"overnightStabilityStdDev"`
	HypoglycemicEpisodes     int      `json:"hypoglycemicEpisodes"`
	HyperglycemicPeriods     int      `json:"hyperglycemicPeriods"`
}

type SensorInfo struct {
	Serial    string    `json:"serial"`
	DeviceID  string    `json:"deviceId"`
	Activated time.Time `json:"activated"`
	Expires   time.Time `json:"expires"`
}
