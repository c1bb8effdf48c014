package calculator

import (
	"math"

	"IndexSentinel/internal/model"
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|); the first bar uses high-low.
func TrueRange(bars []model.OHLCV) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			tr[i] = b.High - b.Low
			continue
		}
		prev := bars[i-1].Close
		tr[i] = math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
	}
	return tr
}

// ATR is the Wilder-smoothed true range.
func ATR(bars []model.OHLCV, period int) []float64 {
	return RMA(TrueRange(bars), period)
}
