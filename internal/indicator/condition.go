package indicator

import (
	"math"

	"IndexSentinel/internal/calculator"
	"IndexSentinel/internal/model"
)

// MovementQuality grades the EMA spread.
type MovementQuality string

const (
	QualityStrong   MovementQuality = "STRONG"
	QualityModerate MovementQuality = "MODERATE"
	QualityWeak     MovementQuality = "WEAK"
	QualityChoppy   MovementQuality = "CHOPPY"
)

// ConditionConfig configures the range-bound detector.
type ConditionConfig struct {
	RangeBars   int     `yaml:"range_bars"`
	RangePct    float64 `yaml:"range_pct"`
	EMASpread   float64 `yaml:"ema_spread_pct"`
	TrendSpread float64 `yaml:"trend_spread_pct"`
	ATRLength   int     `yaml:"atr_length"`
	ATRAverage  int     `yaml:"atr_average"`
	FastEMA     int     `yaml:"fast_ema"`
	SlowEMA     int     `yaml:"slow_ema"`
}

// DefaultConditionConfig returns a 20-bar / 2% range test and EMA(5)/EMA(18) spread.
func DefaultConditionConfig() ConditionConfig {
	return ConditionConfig{
		RangeBars:   20,
		RangePct:    2.0,
		EMASpread:   0.5,
		TrendSpread: 1.0,
		ATRLength:   14,
		ATRAverage:  50,
		FastEMA:     5,
		SlowEMA:     18,
	}
}

func (c ConditionConfig) Validate() error {
	for name, v := range map[string]int{
		"condition.range_bars":  c.RangeBars,
		"condition.atr_length":  c.ATRLength,
		"condition.atr_average": c.ATRAverage,
		"condition.fast_ema":    c.FastEMA,
		"condition.slow_ema":    c.SlowEMA,
	} {
		if err := positive(name, v); err != nil {
			return err
		}
	}
	for name, v := range map[string]float64{
		"condition.range_pct":        c.RangePct,
		"condition.ema_spread_pct":   c.EMASpread,
		"condition.trend_spread_pct": c.TrendSpread,
	} {
		if err := nonNegative(name, v); err != nil {
			return err
		}
	}
	return nil
}

// ConditionResult reports the detected market condition and its inputs. Position
// is the last close within [RangeLow, RangeHigh], from 0 to 1.
type ConditionResult struct {
	Condition  model.MarketCondition `json:"condition"`
	RangePct   float64               `json:"range_pct"`
	SpreadPct  float64               `json:"ema_spread_pct"`
	ATR        float64               `json:"atr"`
	ATRMean    float64               `json:"atr_mean"`
	Quality    MovementQuality       `json:"quality"`
	RangeHigh  float64               `json:"range_high"`
	RangeLow   float64               `json:"range_low"`
	Position   float64               `json:"range_position"`
	RangeBound bool                  `json:"range_bound"`
}

// DetectMarketCondition is RANGE_BOUND when the recent range is tight, the EMAs are
// converged and ATR is below its own mean. Otherwise a signed spread beyond
// TrendSpread reads as a trend and anything else is TRANSITION.
func DetectMarketCondition(bars []model.OHLCV, cfg ConditionConfig) (*ConditionResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	need := cfg.RangeBars
	if cfg.SlowEMA > need {
		need = cfg.SlowEMA
	}
	if len(bars) < need {
		return nil, insufficient("condition", need, len(bars))
	}

	res := &ConditionResult{}
	var err error
	if res.RangeHigh, res.RangeLow, err = calculator.RecentRange(bars, cfg.RangeBars); err != nil {
		return nil, err
	}
	last := bars[len(bars)-1].Close
	if last > 0 {
		res.RangePct = (res.RangeHigh - res.RangeLow) / last * 100
	}
	if res.Position, err = calculator.RangePosition(last, res.RangeHigh, res.RangeLow); err != nil {
		return nil, err
	}

	closes := calculator.Closes(bars)
	fast := calculator.Last(calculator.EMA(closes, cfg.FastEMA))
	slow := calculator.Last(calculator.EMA(closes, cfg.SlowEMA))
	signed := 0.0
	if slow != 0 {
		signed = (fast - slow) / slow * 100
	}
	res.SpreadPct = math.Abs(signed)

	atr := calculator.ATR(bars, cfg.ATRLength)
	res.ATR = calculator.Last(atr)
	res.ATRMean = trailingMean(atr, len(atr)-1, cfg.ATRAverage)

	res.RangeBound = res.RangePct < cfg.RangePct && res.SpreadPct < cfg.EMASpread && res.ATR <= res.ATRMean
	switch {
	case res.RangeBound:
		res.Condition = model.ConditionRangeBound
	case signed > cfg.TrendSpread:
		res.Condition = model.ConditionTrendingUp
	case signed < -cfg.TrendSpread:
		res.Condition = model.ConditionTrendingDown
	default:
		res.Condition = model.ConditionTransition
	}

	switch q := res.SpreadPct * 10; {
	case q > 5:
		res.Quality = QualityStrong
	case q > 2:
		res.Quality = QualityModerate
	case q > 0.5:
		res.Quality = QualityWeak
	default:
		res.Quality = QualityChoppy
	}
	return res, nil
}
