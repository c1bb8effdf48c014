package calculator

import (
	"math"
	"strings"

	"IndexSentinel/internal/model"
)

// MAMethod names a smoothing method.
type MAMethod string

const (
	MethodSMA MAMethod = "SMA"
	MethodEMA MAMethod = "EMA"
	MethodRMA MAMethod = "RMA"
	MethodTMA MAMethod = "TMA"
)

// ParseMAMethod accepts a method name case-insensitively.
func ParseMAMethod(s string) (MAMethod, error) {
	switch m := MAMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case MethodSMA, MethodEMA, MethodRMA, MethodTMA:
		return m, nil
	default:
		return "", model.NewConfigError("ma_method", s, "must be one of RMA, EMA, SMA, TMA")
	}
}

// SMA returns the rolling simple mean. Values are NaN until the window is full
// or while the window holds a NaN.
func SMA(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	for i := range values {
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += values[j]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// EMA returns the exponential mean with alpha = 2/(period+1), seeded at the first defined value.
func EMA(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	return ewm(values, 2/float64(period+1))
}

// RMA is Wilder's smoothing, alpha = 1/period.
func RMA(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	return ewm(values, 1/float64(period))
}

// TMA is the triangular mean: SMA of SMA.
func TMA(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	return SMA(SMA(values, period), period)
}

// MovingAverage dispatches on method.
func MovingAverage(values []float64, period int, method MAMethod) ([]float64, error) {
	if period <= 0 {
		return nil, model.NewConfigError("length", period, "must be positive")
	}
	switch method {
	case MethodSMA:
		return SMA(values, period), nil
	case MethodEMA:
		return EMA(values, period), nil
	case MethodRMA:
		return RMA(values, period), nil
	case MethodTMA:
		return TMA(values, period), nil
	default:
		return nil, model.NewConfigError("ma_method", method, "must be one of RMA, EMA, SMA, TMA")
	}
}

// ewm leaves leading NaNs in place and carries the previous value over interior NaNs.
func ewm(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	prev := math.NaN()
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = prev
		case math.IsNaN(prev):
			prev = v
			out[i] = v
		default:
			prev += alpha * (v - prev)
			out[i] = prev
		}
	}
	return out
}

// Closes extracts closing prices.
func Closes(bars []model.OHLCV) []float64 {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	return closes
}

// Highs extracts highs.
func Highs(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows extracts lows.
func Lows(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Volumes extracts volumes.
func Volumes(bars []model.OHLCV) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Volume
	}
	return out
}

// Diff returns values[i] - values[i-1], NaN at index 0.
func Diff(values []float64) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i == 0 {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-1]
	}
	return out
}

// Last returns the final element or NaN for an empty slice.
func Last(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return values[len(values)-1]
}

// Clamp bounds v to [lo, hi]. NaN maps to 0.
func Clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(lo, math.Min(hi, v))
}
