package model

import "time"

// Direction is the side of a zone, block or trend.
type Direction string

const (
	DirectionNone Direction = ""
	DirectionBull Direction = "BULL"
	DirectionBear Direction = "BEAR"
)

// ZoneState is the lifecycle of blocks and pivots: PENDING_CONFIRMATION -> ACTIVE -> INVALIDATED.
type ZoneState string

const (
	StatePending     ZoneState = "PENDING_CONFIRMATION"
	StateActive      ZoneState = "ACTIVE"
	StateInvalidated ZoneState = "INVALIDATED"
)

// OrderBlock is a volume order block zone.
type OrderBlock struct {
	StartIndex int       `json:"start_index"`
	StartTime  time.Time `json:"start_time"`
	CrossIndex int       `json:"cross_index"`
	Upper      float64   `json:"upper"`
	Mid        float64   `json:"mid"`
	Lower      float64   `json:"lower"`
	Direction  Direction `json:"direction"`
	State      ZoneState `json:"state"`
	Volume     float64   `json:"volume"`
	// InvalidatedIndex is -1 while the block is active.
	InvalidatedIndex int `json:"invalidated_index"`
}

// Active reports whether the block is still eligible for signal generation.
func (b OrderBlock) Active() bool { return b.State == StateActive }

// Pivot is a confirmed swing point.
type Pivot struct {
	Index int       `json:"index"`
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// HTFLevel holds the most recent pivots for one higher timeframe.
type HTFLevel struct {
	Timeframe string `json:"timeframe"`
	PivotHigh *Pivot `json:"pivot_high,omitempty"`
	PivotLow  *Pivot `json:"pivot_low,omitempty"`
	Style     string `json:"style,omitempty"`
	Color     string `json:"color,omitempty"`
}

// Support returns the pivot low price, or 0 with ok=false when absent.
func (l HTFLevel) Support() (float64, bool) {
	if l.PivotLow == nil || l.PivotLow.Price == 0 {
		return 0, false
	}
	return l.PivotLow.Price, true
}

// Resistance returns the pivot high price, or 0 with ok=false when absent.
func (l HTFLevel) Resistance() (float64, bool) {
	if l.PivotHigh == nil || l.PivotHigh.Price == 0 {
		return 0, false
	}
	return l.PivotHigh.Price, true
}

// FootprintBin is one price row of a footprint period.
type FootprintBin struct {
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
	Volume float64 `json:"volume"`
	IsPOC  bool    `json:"is_poc"`
}

// Contains reports whether price lies within [Lower, Upper].
func (b FootprintBin) Contains(price float64) bool {
	return price >= b.Lower && price <= b.Upper
}

// FootprintPeriod is the volume histogram of one higher-timeframe bucket.
type FootprintPeriod struct {
	Start         time.Time      `json:"start"`
	End           time.Time      `json:"end"`
	Bins          []FootprintBin `json:"bins"`
	POC           *float64       `json:"poc,omitempty"`
	POCIndex      int            `json:"poc_index"`
	ValueAreaHigh float64        `json:"value_area_high"`
	ValueAreaLow  float64        `json:"value_area_low"`
	TotalVolume   float64        `json:"total_volume"`
	Complete      bool           `json:"complete"`
}

// POCLine is a retained point of control for a completed bucket.
type POCLine struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Price float64   `json:"price"`
}

// PivotKind distinguishes swing highs from swing lows.
type PivotKind string

const (
	PivotHigh PivotKind = "HIGH"
	PivotLow  PivotKind = "LOW"
)

// HighVolumePivot is a pivot that printed on above-average volume.
type HighVolumePivot struct {
	Pivot
	Kind        PivotKind `json:"kind"`
	Volume      float64   `json:"volume"`
	VolumeRatio float64   `json:"volume_ratio"`
	State       ZoneState `json:"state"`
}

// ZoneKind says whether a zone is expected to act as support or resistance.
type ZoneKind string

const (
	ZoneSupport    ZoneKind = "SUPPORT"
	ZoneResistance ZoneKind = "RESISTANCE"
)

// Zone is a price band tracked for strength.
type Zone struct {
	Lower  float64  `json:"lower"`
	Upper  float64  `json:"upper"`
	Kind   ZoneKind `json:"kind"`
	Source string   `json:"source,omitempty"`
}

// StrengthTrend compares the two halves of a zone's lookback.
type StrengthTrend string

const (
	TrendStrengthening StrengthTrend = "STRENGTHENING"
	TrendWeakening     StrengthTrend = "WEAKENING"
	TrendStable        StrengthTrend = "STABLE"
)

// ZoneStrength is the output of the strength tracker.
type ZoneStrength struct {
	Zone        Zone          `json:"zone"`
	Score       float64       `json:"strength_score"`
	Trend       StrengthTrend `json:"trend"`
	TimesTested int           `json:"times_tested"`
	Holds       int           `json:"holds"`
	Breaks      int           `json:"breaks"`
	HoldRate    float64       `json:"hold_rate"`
}

// MarketCondition is the output of the range-bound detector.
type MarketCondition string

const (
	ConditionRangeBound   MarketCondition = "RANGE_BOUND"
	ConditionTrendingUp   MarketCondition = "TRENDING_UP"
	ConditionTrendingDown MarketCondition = "TRENDING_DOWN"
	ConditionTransition   MarketCondition = "TRANSITION"
)
