package indicator

import (
	"IndexSentinel/internal/calculator"
	"IndexSentinel/internal/model"
	"IndexSentinel/internal/resample"
)

// HTFConfig is one higher-timeframe level definition.
type HTFConfig struct {
	Timeframe   string `yaml:"timeframe"`
	PivotLength int    `yaml:"pivot_length"`
	Style       string `yaml:"style"`
	Color       string `yaml:"color"`
}

// DefaultHTFConfigs returns the intraday signal timeframes followed by the chart timeframes.
func DefaultHTFConfigs() []HTFConfig {
	return []HTFConfig{
		{Timeframe: "5T", PivotLength: 5, Style: "solid", Color: "#00bcd4"},
		{Timeframe: "10T", PivotLength: 5, Style: "solid", Color: "#8bc34a"},
		{Timeframe: "15T", PivotLength: 5, Style: "solid", Color: "#ffc107"},
		{Timeframe: "4H", PivotLength: 4, Style: "solid", Color: "#26a69a"},
		{Timeframe: "12H", PivotLength: 5, Style: "solid", Color: "#2196f3"},
		{Timeframe: "D", PivotLength: 5, Style: "solid", Color: "#9c27b0"},
		{Timeframe: "W", PivotLength: 5, Style: "solid", Color: "#ff9800"},
	}
}

// Validate checks the timeframe label and pivot length.
func (c HTFConfig) Validate() error {
	if _, err := resample.ParseTimeframe(c.Timeframe); err != nil {
		return err
	}
	return positive("htf.pivot_length", c.PivotLength)
}

// CalculateMultiTimeframe resamples bars per config and reports the most recent
// confirmed pivot high and low of each timeframe. A pivot is only reported once
// PivotLength resampled bars exist after it, so a reported pivot never repaints.
func CalculateMultiTimeframe(bars []model.OHLCV, configs []HTFConfig) ([]model.HTFLevel, error) {
	levels := make([]model.HTFLevel, 0, len(configs))
	for _, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		tf, _ := resample.ParseTimeframe(cfg.Timeframe)
		htf := resample.Resample(bars, tf)

		level := model.HTFLevel{Timeframe: tf.Label, Style: cfg.Style, Color: cfg.Color}
		if highs := PivotHighs(calculator.Highs(htf), cfg.PivotLength); len(highs) > 0 {
			i := highs[len(highs)-1]
			level.PivotHigh = &model.Pivot{Index: i, Time: htf[i].Time, Price: htf[i].High}
		}
		if lows := PivotLows(calculator.Lows(htf), cfg.PivotLength); len(lows) > 0 {
			i := lows[len(lows)-1]
			level.PivotLow = &model.Pivot{Index: i, Time: htf[i].Time, Price: htf[i].Low}
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// PivotHighs returns indices that are the strict maximum of the centered window
// of 2*length+1 values. Flat tops are not pivots.
func PivotHighs(values []float64, length int) []int {
	return pivots(values, length, func(other, center float64) bool { return other >= center })
}

// PivotLows returns indices that are the strict minimum of their centered window.
func PivotLows(values []float64, length int) []int {
	return pivots(values, length, func(other, center float64) bool { return other <= center })
}

func pivots(values []float64, length int, beats func(other, center float64) bool) []int {
	if length <= 0 {
		return nil
	}
	var out []int
	for i := length; i+length < len(values); i++ {
		if isPivot(values, i, i-length, i+length, beats) {
			out = append(out, i)
		}
	}
	return out
}

func isPivot(values []float64, i, from, to int, beats func(other, center float64) bool) bool {
	for j := from; j <= to; j++ {
		if j != i && beats(values[j], values[i]) {
			return false
		}
	}
	return true
}
