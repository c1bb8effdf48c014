package calculator

import (
	"math"

	"IndexSentinel/internal/model"
)

// MFI computes the money flow index over period bars. A window without
// positive or negative flow reads 50.
func MFI(bars []model.OHLCV, period int) []float64 {
	if period <= 0 {
		return nil
	}
	n := len(bars)
	out := make([]float64, n)
	pos := make([]float64, n)
	neg := make([]float64, n)
	for i := 1; i < n; i++ {
		tp, prev := bars[i].Typical(), bars[i-1].Typical()
		flow := tp * bars[i].Volume
		switch {
		case tp > prev:
			pos[i] = flow
		case tp < prev:
			neg[i] = flow
		}
	}
	for i := range out {
		if i < period {
			out[i] = math.NaN()
			continue
		}
		var p, m float64
		for j := i - period + 1; j <= i; j++ {
			p += pos[j]
			m += neg[j]
		}
		if p+m == 0 {
			out[i] = 50
			continue
		}
		out[i] = 100 * p / (p + m)
	}
	return out
}

// DMIResult holds the directional movement lines.
type DMIResult struct {
	PlusDI  []float64
	MinusDI []float64
	ADX     []float64
}

// DMI computes +DI, -DI over period and ADX smoothed over adxSmoothing.
func DMI(bars []model.OHLCV, period, adxSmoothing int) DMIResult {
	n := len(bars)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	for i := 1; i < n; i++ {
		up := bars[i].High - bars[i-1].High
		down := bars[i-1].Low - bars[i].Low
		if up > down && up > 0 {
			plusDM[i] = up
		}
		if down > up && down > 0 {
			minusDM[i] = down
		}
	}
	atr := ATR(bars, period)
	sp := RMA(plusDM, period)
	sm := RMA(minusDM, period)

	res := DMIResult{
		PlusDI:  make([]float64, n),
		MinusDI: make([]float64, n),
	}
	dx := make([]float64, n)
	for i := 0; i < n; i++ {
		if atr == nil || atr[i] == 0 || math.IsNaN(atr[i]) {
			continue
		}
		res.PlusDI[i] = 100 * sp[i] / atr[i]
		res.MinusDI[i] = 100 * sm[i] / atr[i]
		if sum := res.PlusDI[i] + res.MinusDI[i]; sum > 0 {
			dx[i] = 100 * math.Abs(res.PlusDI[i]-res.MinusDI[i]) / sum
		}
	}
	res.ADX = RMA(dx, adxSmoothing)
	return res
}
