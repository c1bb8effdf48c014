// Package strength rates how well a support or resistance zone has held.
package strength

import (
	"fmt"
	"math"

	"IndexSentinel/internal/calculator"
	"IndexSentinel/internal/model"
)

const (
	// DefaultScore is reported for a zone that was never tested.
	DefaultScore = 50.0
	// trendBand is the half-to-half score change that counts as a trend.
	trendBand = 10.0
)

// episode is one run of consecutive bars touching the zone.
type episode struct {
	start  int
	volume float64
	held   bool
}

// CalculateStrength scores zone over the last lookback bars (all bars when lookback is 0).
// Each run of bars touching the zone is one test; it holds unless a bar in the run
// closes through the far edge. The score is the hold share weighted by recency
// (0.5 for the oldest bar up to 1 for the newest) and by the test's peak volume
// relative to the window average, clamped to [0.5, 2].
func CalculateStrength(zone model.Zone, bars []model.OHLCV, lookback int) (*model.ZoneStrength, error) {
	if zone.Lower > zone.Upper {
		return nil, model.NewConfigError("zone.lower", zone.Lower, fmt.Sprintf("must not exceed upper %.2f", zone.Upper))
	}
	if zone.Kind != model.ZoneSupport && zone.Kind != model.ZoneResistance {
		return nil, model.NewConfigError("zone.kind", zone.Kind, "must be SUPPORT or RESISTANCE")
	}
	if lookback < 0 {
		return nil, model.NewConfigError("strength.lookback", lookback, "must be non-negative")
	}
	if err := model.ValidateBars(bars); err != nil {
		return nil, err
	}
	if lookback > 0 && lookback < len(bars) {
		bars = bars[len(bars)-lookback:]
	}

	out := &model.ZoneStrength{Zone: zone, Score: DefaultScore, Trend: model.TrendStable}
	tests := episodes(zone, bars)
	if len(tests) == 0 {
		return out, nil
	}
	for _, e := range tests {
		if e.held {
			out.Holds++
		} else {
			out.Breaks++
		}
	}
	out.TimesTested = len(tests)
	out.HoldRate = float64(out.Holds) / float64(out.TimesTested) * 100

	n := len(bars)
	var avgVol float64
	for _, v := range calculator.Volumes(bars) {
		avgVol += v
	}
	avgVol /= float64(n)
	out.Score = score(tests, n, avgVol)

	// Step a: compare the two halves of the window
	var first, second []episode
	for _, e := range tests {
		if e.start < n/2 {
			first = append(first, e)
		} else {
			second = append(second, e)
		}
	}
	diff := score(second, n, avgVol) - score(first, n, avgVol)
	switch {
	case diff > trendBand:
		out.Trend = model.TrendStrengthening
	case diff < -trendBand:
		out.Trend = model.TrendWeakening
	}
	return out, nil
}

func episodes(zone model.Zone, bars []model.OHLCV) []episode {
	var out []episode
	var cur *episode
	for i, b := range bars {
		if b.Low > zone.Upper || b.High < zone.Lower {
			cur = nil
			continue
		}
		if cur == nil {
			out = append(out, episode{start: i, held: true})
			cur = &out[len(out)-1]
		}
		cur.volume = math.Max(cur.volume, b.Volume)
		if zone.Kind == model.ZoneSupport && b.Close < zone.Lower ||
			zone.Kind == model.ZoneResistance && b.Close > zone.Upper {
			cur.held = false
		}
	}
	return out
}

func score(tests []episode, n int, avgVol float64) float64 {
	var held, total float64
	for _, e := range tests {
		w := 0.5 + 0.5*float64(e.start+1)/float64(n)
		if avgVol > 0 {
			w *= calculator.Clamp(e.volume/avgVol, 0.5, 2)
		}
		total += w
		if e.held {
			held += w
		}
	}
	if total == 0 {
		return DefaultScore
	}
	return held / total * 100
}
