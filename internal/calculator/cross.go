package calculator

import "math"

// CrossesAbove is true when a moves from at-or-below b to strictly above it.
func CrossesAbove(prevA, prevB, currA, currB float64) bool {
	return prevA <= prevB && currA > currB
}

// CrossesBelow is true when a moves from at-or-above b to strictly below it.
func CrossesBelow(prevA, prevB, currA, currB float64) bool {
	return prevA >= prevB && currA < currB
}

// CrossOver reports CrossesAbove at index i of two aligned series.
func CrossOver(a, b []float64, i int) bool {
	if i <= 0 || i >= len(a) || i >= len(b) || anyNaN(a[i-1], b[i-1], a[i], b[i]) {
		return false
	}
	return CrossesAbove(a[i-1], b[i-1], a[i], b[i])
}

// CrossUnder reports CrossesBelow at index i of two aligned series.
func CrossUnder(a, b []float64, i int) bool {
	if i <= 0 || i >= len(a) || i >= len(b) || anyNaN(a[i-1], b[i-1], a[i], b[i]) {
		return false
	}
	return CrossesBelow(a[i-1], b[i-1], a[i], b[i])
}

func anyNaN(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}
