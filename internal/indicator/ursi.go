package indicator

import (
	"math"

	"IndexSentinel/internal/calculator"
	"IndexSentinel/internal/model"
)

// URSIZone labels where the oscillator sits.
type URSIZone string

const (
	URSIOverbought URSIZone = "OVERBOUGHT"
	URSIOversold   URSIZone = "OVERSOLD"
	URSINeutral    URSIZone = "NEUTRAL"
)

// URSIConfig configures the Ultimate RSI.
type URSIConfig struct {
	Length       int                 `yaml:"length"`
	Smooth       int                 `yaml:"smooth"`
	Method       calculator.MAMethod `yaml:"method"`
	SignalMethod calculator.MAMethod `yaml:"signal_method"`
	Overbought   float64             `yaml:"overbought"`
	Oversold     float64             `yaml:"oversold"`
}

// DefaultURSIConfig returns length 14 with RMA smoothing and an EMA signal line.
func DefaultURSIConfig() URSIConfig {
	return URSIConfig{
		Length:       14,
		Smooth:       14,
		Method:       calculator.MethodRMA,
		SignalMethod: calculator.MethodEMA,
		Overbought:   80,
		Oversold:     20,
	}
}

// Validate checks lengths, methods and the threshold order.
func (c URSIConfig) Validate() error {
	if err := positive("ursi.length", c.Length); err != nil {
		return err
	}
	if err := positive("ursi.smooth", c.Smooth); err != nil {
		return err
	}
	if _, err := calculator.ParseMAMethod(string(c.Method)); err != nil {
		return model.NewConfigError("ursi.method", c.Method, "must be one of RMA, EMA, SMA, TMA")
	}
	if _, err := calculator.ParseMAMethod(string(c.SignalMethod)); err != nil {
		return model.NewConfigError("ursi.signal_method", c.SignalMethod, "must be one of RMA, EMA, SMA, TMA")
	}
	if !(c.Oversold >= 0 && c.Oversold < c.Overbought && c.Overbought <= 100) {
		return model.NewConfigError("ursi.overbought", c.Overbought, "thresholds must satisfy 0 <= oversold < overbought <= 100")
	}
	return nil
}

// URSIResult holds the oscillator and its signal line.
type URSIResult struct {
	Values     []float64 `json:"ursi"`
	Signal     []float64 `json:"signal"`
	Last       float64   `json:"last"`
	LastSignal float64   `json:"last_signal"`
	Zone       URSIZone  `json:"zone"`
}

// CalculateURSI measures momentum against the rolling range instead of raw close
// deltas: a new range high contributes the full range as a gain, a new range low
// the full range as a loss, otherwise the close change. Both legs are smoothed by
// Method and the ratio is mapped to [0, 100]. No movement reads 50.
func CalculateURSI(bars []model.OHLCV, cfg URSIConfig) (*URSIResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) < cfg.Length+1 {
		return nil, insufficient("ursi", cfg.Length+1, len(bars))
	}
	closes := calculator.Closes(bars)
	upper := calculator.Highest(closes, cfg.Length)
	lower := calculator.Lowest(closes, cfg.Length)

	diff := nanSlice(len(closes))
	for i := 1; i < len(closes); i++ {
		if math.IsNaN(upper[i]) || math.IsNaN(upper[i-1]) {
			continue
		}
		r := upper[i] - lower[i]
		switch {
		case upper[i] > upper[i-1]:
			diff[i] = r
		case lower[i] < lower[i-1]:
			diff[i] = -r
		default:
			diff[i] = closes[i] - closes[i-1]
		}
	}
	absDiff := make([]float64, len(diff))
	for i, d := range diff {
		absDiff[i] = math.Abs(d)
	}

	num, err := calculator.MovingAverage(diff, cfg.Length, cfg.Method)
	if err != nil {
		return nil, err
	}
	den, err := calculator.MovingAverage(absDiff, cfg.Length, cfg.Method)
	if err != nil {
		return nil, err
	}
	values := nanSlice(len(closes))
	for i := range values {
		if math.IsNaN(num[i]) || math.IsNaN(den[i]) {
			continue
		}
		if den[i] == 0 {
			values[i] = 50
			continue
		}
		values[i] = num[i]/den[i]*50 + 50
	}
	signal, err := calculator.MovingAverage(values, cfg.Smooth, cfg.SignalMethod)
	if err != nil {
		return nil, err
	}

	res := &URSIResult{Values: values, Signal: signal, Last: calculator.Last(values), LastSignal: calculator.Last(signal)}
	switch {
	case res.Last >= cfg.Overbought:
		res.Zone = URSIOverbought
	case res.Last <= cfg.Oversold:
		res.Zone = URSIOversold
	default:
		res.Zone = URSINeutral
	}
	return res, nil
}
