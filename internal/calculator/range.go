package calculator

import (
	"errors"
	"math"

	"IndexSentinel/internal/model"
)

// Highest returns the rolling maximum over n values, NaN until the window is full.
func Highest(values []float64, n int) []float64 {
	return rolling(values, n, math.Max, math.Inf(-1))
}

// Lowest returns the rolling minimum over n values, NaN until the window is full.
func Lowest(values []float64, n int) []float64 {
	return rolling(values, n, math.Min, math.Inf(1))
}

func rolling(values []float64, n int, pick func(a, b float64) float64, seed float64) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	for i := range values {
		if i < n-1 {
			out[i] = math.NaN()
			continue
		}
		acc := seed
		for j := i - n + 1; j <= i; j++ {
			acc = pick(acc, values[j])
		}
		out[i] = acc
	}
	return out
}

// RecentRange scans the most recent lookback bars and returns the high and low.
func RecentRange(bars []model.OHLCV, lookback int) (high, low float64, err error) {
	if len(bars) == 0 {
		return 0, 0, errors.New("no bars provided")
	}
	if lookback <= 0 {
		return 0, 0, errors.New("lookback must be positive")
	}
	n := len(bars)
	start := n - lookback
	if start < 0 {
		start = 0
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for i := start; i < n; i++ {
		if bars[i].High > high {
			high = bars[i].High
		}
		if bars[i].Low < low {
			low = bars[i].Low
		}
	}
	return high, low, nil
}

// RangePosition returns where the current price sits within [low, high] (0.0~1.0).
func RangePosition(current, high, low float64) (float64, error) {
	if high == low {
		return 0.5, nil
	}
	if high < low {
		return 0, errors.New("high must be >= low")
	}
	pos := (current - low) / (high - low)
	if pos < 0 {
		pos = 0
	}
	if pos > 1 {
		pos = 1
	}
	return pos, nil
}
