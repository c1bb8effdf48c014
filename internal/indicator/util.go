package indicator

import (
	"fmt"
	"math"

	"IndexSentinel/internal/model"
)

// trailingMean averages values[i-lookback+1..i], shrinking the window near the start.
func trailingMean(values []float64, i, lookback int) float64 {
	start := i - lookback + 1
	if start < 0 {
		start = 0
	}
	sum := 0.0
	for j := start; j <= i; j++ {
		sum += values[j]
	}
	return sum / float64(i-start+1)
}

func insufficient(name string, need, have int) error {
	return fmt.Errorf("%s needs %d bars, have %d: %w", name, need, have, model.ErrInsufficientData)
}

func positive(param string, v int) error {
	if v <= 0 {
		return model.NewConfigError(param, v, "must be positive")
	}
	return nil
}

func nonNegative(param string, v float64) error {
	if v < 0 || math.IsNaN(v) {
		return model.NewConfigError(param, v, "must be non-negative")
	}
	return nil
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
