package indicator

import (
	"math"
	"time"

	"IndexSentinel/internal/model"
)

var ist = time.FixedZone("IST", 5*3600+1800)

var sessionStart = time.Date(2025, 1, 15, 9, 15, 0, 0, ist)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

// minuteBars stamps bars one minute apart from sessionStart.
func minuteBars(bars []model.OHLCV) []model.OHLCV {
	for i := range bars {
		bars[i].Time = sessionStart.Add(time.Duration(i) * time.Minute)
	}
	return bars
}

func flatSeries(n int, price, volume float64) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		bars[i] = model.OHLCV{Open: price, High: price, Low: price, Close: price, Volume: volume}
	}
	return minuteBars(bars)
}

// tentSeries is flat at 100/99 with a symmetric peak of 120 at bar 50 spanning bars 30-70.
func tentSeries(n int) []model.OHLCV {
	bars := make([]model.OHLCV, n)
	for i := range bars {
		high := 100.0
		if i >= 30 && i <= 70 {
			high = 100 + (20 - math.Abs(float64(i-50)))
		}
		low := high - 1
		mid := high - 0.5
		bars[i] = model.OHLCV{Open: mid, High: high, Low: low, Close: mid, Volume: 1000}
	}
	return minuteBars(bars)
}

// vShape falls for 40 bars and rallies for 20, on heavier volume in the rally.
func vShape() []model.OHLCV {
	var bars []model.OHLCV
	for i := 0; i < 40; i++ {
		c := 200 - float64(i)
		bars = append(bars, model.OHLCV{Open: c + 0.5, High: c + 1, Low: c - 0.5, Close: c, Volume: 1000})
	}
	for i := 40; i < 60; i++ {
		c := 161 + 2*float64(i-39)
		bars = append(bars, model.OHLCV{Open: c - 1, High: c + 0.5, Low: c - 1.5, Close: c, Volume: 3000})
	}
	return minuteBars(bars)
}
