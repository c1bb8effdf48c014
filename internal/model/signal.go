package model

import "time"

// BiasLabel is a directional verdict.
type BiasLabel string

const (
	Bullish BiasLabel = "BULLISH"
	Bearish BiasLabel = "BEARISH"
	Neutral BiasLabel = "NEUTRAL"
)

// Tier groups indicators by reaction speed.
type Tier string

const (
	TierFast   Tier = "FAST"
	TierMedium Tier = "MEDIUM"
	TierSlow   Tier = "SLOW"
)

// BiasMode is the tier weight profile used for a run.
type BiasMode string

const (
	ModeNormal   BiasMode = "NORMAL"
	ModeReversal BiasMode = "REVERSAL"
)

// BiasResult is one indicator's contribution to the aggregate.
type BiasResult struct {
	Name         string    `json:"name"`
	Tier         Tier      `json:"tier"`
	RawValue     float64   `json:"raw_value"`
	Label        BiasLabel `json:"bias"`
	Score        float64   `json:"score"`
	Weight       float64   `json:"weight"`
	Note         string    `json:"note,omitempty"`
	Insufficient bool      `json:"insufficient,omitempty"`
}

// BiasCounts tallies per-indicator labels.
type BiasCounts struct {
	Bullish int `json:"bullish"`
	Bearish int `json:"bearish"`
	Neutral int `json:"neutral"`
	Total   int `json:"total"`
}

// TierStats holds the bullish and bearish share of one tier in percent.
type TierStats struct {
	BullPct float64 `json:"bull_pct"`
	BearPct float64 `json:"bear_pct"`
	Count   int     `json:"count"`
}

// OverallBias is the aggregate verdict of one run.
type OverallBias struct {
	Bias       BiasLabel          `json:"overall_bias"`
	Score      float64            `json:"overall_score"`
	Confidence float64            `json:"overall_confidence"`
	Counts     BiasCounts         `json:"counts"`
	Mode       BiasMode           `json:"mode"`
	Divergence BiasLabel          `json:"divergence,omitempty"`
	Tiers      map[Tier]TierStats `json:"tiers"`
	Condition  MarketCondition    `json:"condition,omitempty"`
}

// BiasReport bundles per-indicator results with the aggregate.
type BiasReport struct {
	PerIndicator []BiasResult `json:"per_indicator"`
	Overall      OverallBias  `json:"overall"`
}

// OptionSide is the option leg a signal buys.
type OptionSide string

const (
	Call OptionSide = "CALL"
	Put  OptionSide = "PUT"
)

// SignalStatus tracks a signal's lifecycle in the caller-side book.
type SignalStatus string

const (
	SignalActive  SignalStatus = "ACTIVE"
	SignalExpired SignalStatus = "EXPIRED"
)

// TradingSignal is a concrete entry/stop/target setup.
type TradingSignal struct {
	ID              string       `json:"id"`
	Index           string       `json:"index"`
	Direction       OptionSide   `json:"direction"`
	SignalType      string       `json:"signal_type"`
	EntryPrice      float64      `json:"entry_price"`
	StopLoss        float64      `json:"stop_loss"`
	Target          float64      `json:"target"`
	RiskReward      float64      `json:"risk_reward"`
	SourceLevel     float64      `json:"source_level"`
	Source          string       `json:"source"`
	Timeframe       string       `json:"timeframe,omitempty"`
	Distance        float64      `json:"distance_from_level"`
	MarketSentiment BiasLabel    `json:"market_sentiment"`
	Strike          float64      `json:"strike,omitempty"`
	OptionType      string       `json:"option_type,omitempty"`
	Timestamp       time.Time    `json:"timestamp"`
	Status          SignalStatus `json:"status"`
}

// AlertType is the zone family that produced a proximity alert.
type AlertType string

const (
	AlertVOB AlertType = "VOB"
	AlertHTF AlertType = "HTF"
)

// ProximityAlert fires when price trades near a tracked level.
type ProximityAlert struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Type      AlertType `json:"alert_type"`
	Level     float64   `json:"level"`
	LevelType string    `json:"level_type"`
	Price     float64   `json:"price"`
	Distance  float64   `json:"distance"`
	Timeframe string    `json:"timeframe,omitempty"`
	Volume    float64   `json:"volume,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
