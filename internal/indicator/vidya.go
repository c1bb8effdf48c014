package indicator

import (
	"math"

	"IndexSentinel/internal/calculator"
	"IndexSentinel/internal/model"
)

// VIDYAConfig configures the volatility-adaptive average.
type VIDYAConfig struct {
	Length       int     `yaml:"length"`
	Momentum     int     `yaml:"momentum"`
	BandDistance float64 `yaml:"band_distance"`
	ATRLength    int     `yaml:"atr_length"`
	SmoothLength int     `yaml:"smooth_length"`
}

// DefaultVIDYAConfig returns length 10 over a 20-bar momentum window.
func DefaultVIDYAConfig() VIDYAConfig {
	return VIDYAConfig{Length: 10, Momentum: 20, BandDistance: 2, ATRLength: 200, SmoothLength: 15}
}

// Validate checks every length and the band distance.
func (c VIDYAConfig) Validate() error {
	for _, p := range []struct {
		name string
		v    int
	}{
		{"vidya.length", c.Length},
		{"vidya.momentum", c.Momentum},
		{"vidya.atr_length", c.ATRLength},
		{"vidya.smooth_length", c.SmoothLength},
	} {
		if err := positive(p.name, p.v); err != nil {
			return err
		}
	}
	return nonNegative("vidya.band_distance", c.BandDistance)
}

// VIDYAResult carries the smoothed line, its ATR envelope and trend flips.
type VIDYAResult struct {
	Line       []float64       `json:"vidya"`
	Upper      []float64       `json:"upper_band"`
	Lower      []float64       `json:"lower_band"`
	Trend      model.Direction `json:"trend"`
	TrendStart int             `json:"trend_start"`
	Trailing   float64         `json:"trailing"`
	BuyVolume  float64         `json:"buy_volume"`
	SellVolume float64         `json:"sell_volume"`
	DeltaPct   float64         `json:"delta_pct"`
	BullFlips  []int           `json:"bull_flips"`
	BearFlips  []int           `json:"bear_flips"`
}

// CalculateVIDYA scales the EMA constant by |CMO|/100 over Momentum bars, smooths the
// result with an SMA, and flips trend when the close leaves the ATR*BandDistance envelope.
func CalculateVIDYA(bars []model.OHLCV, cfg VIDYAConfig) (*VIDYAResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	need := cfg.Momentum + 1
	if cfg.SmoothLength > need {
		need = cfg.SmoothLength
	}
	if len(bars) < need {
		return nil, insufficient("vidya", need, len(bars))
	}

	closes := calculator.Closes(bars)
	change := calculator.Diff(closes)
	alpha := 2 / float64(cfg.Length+1)

	raw := make([]float64, len(closes))
	raw[0] = closes[0]
	for i := 1; i < len(closes); i++ {
		f := alpha * cmo(change, i, cfg.Momentum) / 100
		raw[i] = raw[i-1] + f*(closes[i]-raw[i-1])
	}
	line := calculator.SMA(raw, cfg.SmoothLength)
	atr := calculator.ATR(bars, cfg.ATRLength)

	res := &VIDYAResult{
		Line:       line,
		Upper:      nanSlice(len(bars)),
		Lower:      nanSlice(len(bars)),
		TrendStart: -1,
		Trailing:   math.NaN(),
	}
	for i := range bars {
		if math.IsNaN(line[i]) || math.IsNaN(atr[i]) {
			continue
		}
		res.Upper[i] = line[i] + atr[i]*cfg.BandDistance
		res.Lower[i] = line[i] - atr[i]*cfg.BandDistance

		switch c := closes[i]; {
		case c > res.Upper[i] && res.Trend != model.DirectionBull:
			res.Trend, res.TrendStart = model.DirectionBull, i
			res.BullFlips = append(res.BullFlips, i)
		case c < res.Lower[i] && res.Trend != model.DirectionBear:
			res.Trend, res.TrendStart = model.DirectionBear, i
			res.BearFlips = append(res.BearFlips, i)
		}
	}

	last := len(bars) - 1
	switch res.Trend {
	case model.DirectionBull:
		res.Trailing = res.Lower[last]
	case model.DirectionBear:
		res.Trailing = res.Upper[last]
	}
	if res.TrendStart >= 0 {
		for _, b := range bars[res.TrendStart:] {
			if b.Close > b.Open {
				res.BuyVolume += b.Volume
			} else if b.Close < b.Open {
				res.SellVolume += b.Volume
			}
		}
		if avg := (res.BuyVolume + res.SellVolume) / 2; avg > 0 {
			res.DeltaPct = (res.BuyVolume - res.SellVolume) / avg * 100
		}
	}
	return res, nil
}

// cmo is the absolute Chande momentum of change over the window ending at i. A
// window with no movement reads 0.
func cmo(change []float64, i, window int) float64 {
	start := i - window + 1
	if start < 1 {
		start = 1
	}
	var up, down float64
	for j := start; j <= i; j++ {
		if change[j] > 0 {
			up += change[j]
		} else {
			down -= change[j]
		}
	}
	if up+down == 0 {
		return 0
	}
	return math.Abs((up - down) / (up + down) * 100)
}
