package indicator

import (
	"math"

	"IndexSentinel/internal/calculator"
	"IndexSentinel/internal/model"
)

// DeltaConfig configures the buy/sell pressure proxy.
type DeltaConfig struct {
	Smoothing       int     `yaml:"smoothing"`
	Lookback        int     `yaml:"lookback"`
	SpikeMultiplier float64 `yaml:"spike_multiplier"`
}

// DefaultDeltaConfig returns EMA(5) smoothing and a 2x spike over 20 bars.
func DefaultDeltaConfig() DeltaConfig {
	return DeltaConfig{Smoothing: 5, Lookback: 20, SpikeMultiplier: 2}
}

func (c DeltaConfig) Validate() error {
	if err := positive("delta.smoothing", c.Smoothing); err != nil {
		return err
	}
	if err := positive("delta.lookback", c.Lookback); err != nil {
		return err
	}
	return nonNegative("delta.spike_multiplier", c.SpikeMultiplier)
}

// DeltaResult is the per-bar delta series plus the state of the last bar.
type DeltaResult struct {
	Raw        []float64       `json:"raw"`
	Smoothed   []float64       `json:"smoothed"`
	Cumulative []float64       `json:"cumulative"`
	Spikes     []int           `json:"spikes"`
	Last       float64         `json:"last"`
	LastSpike  bool            `json:"last_spike"`
	Pressure   model.Direction `json:"pressure"`
}

// CalculateDelta signs each bar's volume by its body direction, smooths it with an EMA
// and flags a spike when |smoothed| exceeds SpikeMultiplier times its own rolling mean.
func CalculateDelta(bars []model.OHLCV, cfg DeltaConfig) (*DeltaResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) < cfg.Lookback {
		return nil, insufficient("delta", cfg.Lookback, len(bars))
	}

	n := len(bars)
	raw := make([]float64, n)
	cum := make([]float64, n)
	for i, b := range bars {
		raw[i] = sign(b.Close-b.Open) * b.Volume
		cum[i] = raw[i]
		if i > 0 {
			cum[i] += cum[i-1]
		}
	}
	smoothed := calculator.EMA(raw, cfg.Smoothing)
	abs := make([]float64, n)
	for i, v := range smoothed {
		abs[i] = math.Abs(v)
	}
	avg := calculator.SMA(abs, cfg.Lookback)

	res := &DeltaResult{Raw: raw, Smoothed: smoothed, Cumulative: cum}
	for i := range smoothed {
		if !math.IsNaN(avg[i]) && avg[i] > 0 && abs[i] > cfg.SpikeMultiplier*avg[i] {
			res.Spikes = append(res.Spikes, i)
		}
	}
	res.Last = smoothed[n-1]
	res.LastSpike = len(res.Spikes) > 0 && res.Spikes[len(res.Spikes)-1] == n-1
	switch sign(res.Last) {
	case 1:
		res.Pressure = model.DirectionBull
	case -1:
		res.Pressure = model.DirectionBear
	}
	return res, nil
}
