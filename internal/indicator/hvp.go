package indicator

import (
	"IndexSentinel/internal/calculator"
	"IndexSentinel/internal/model"
)

// HVPConfig configures high-volume pivots.
type HVPConfig struct {
	PivotLength      int     `yaml:"pivot_length"`
	VolumeLookback   int     `yaml:"volume_lookback"`
	VolumeMultiplier float64 `yaml:"volume_multiplier"`
}

// DefaultHVPConfig returns L=5 pivots on 1.5x average volume.
func DefaultHVPConfig() HVPConfig {
	return HVPConfig{PivotLength: 5, VolumeLookback: 20, VolumeMultiplier: 1.5}
}

func (c HVPConfig) Validate() error {
	if err := positive("hvp.pivot_length", c.PivotLength); err != nil {
		return err
	}
	if err := positive("hvp.volume_lookback", c.VolumeLookback); err != nil {
		return err
	}
	return nonNegative("hvp.volume_multiplier", c.VolumeMultiplier)
}

// HVPResult lists the filtered pivots, oldest first.
type HVPResult struct {
	Highs []model.HighVolumePivot `json:"pivot_highs"`
	Lows  []model.HighVolumePivot `json:"pivot_lows"`
}

// LastActive returns the most recent confirmed, live pivot of kind, or nil.
func (r *HVPResult) LastActive(kind model.PivotKind) *model.HighVolumePivot {
	return r.last(kind, model.StateActive)
}

// LastPending returns the most recent pivot of kind still inside its
// confirmation window, or nil.
func (r *HVPResult) LastPending(kind model.PivotKind) *model.HighVolumePivot {
	return r.last(kind, model.StatePending)
}

func (r *HVPResult) last(kind model.PivotKind, state model.ZoneState) *model.HighVolumePivot {
	list := r.Highs
	if kind == model.PivotLow {
		list = r.Lows
	}
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].State == state {
			return &list[i]
		}
	}
	return nil
}

// CalculateHVP finds pivots on the base series whose bar volume exceeds
// VolumeMultiplier times the trailing mean. Pivots with a full window on both sides
// are ACTIVE; a candidate inside the last PivotLength bars that is the strict
// extreme of the bars seen so far is PENDING_CONFIRMATION. A later close beyond
// the pivot price invalidates it.
func CalculateHVP(bars []model.OHLCV, cfg HVPConfig) (*HVPResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := cfg.PivotLength
	if len(bars) < 2*l+1 {
		return nil, insufficient("hvp", 2*l+1, len(bars))
	}
	highs := calculator.Highs(bars)
	lows := calculator.Lows(bars)
	volumes := calculator.Volumes(bars)

	collect := func(values []float64, kind model.PivotKind, beats func(other, center float64) bool) []model.HighVolumePivot {
		var out []model.HighVolumePivot
		for i := l; i < len(values); i++ {
			to := i + l
			state := model.StateActive
			if to >= len(values) {
				to = len(values) - 1
				state = model.StatePending
			}
			if !isPivot(values, i, i-l, to, beats) {
				continue
			}
			avg := trailingMean(volumes, i, cfg.VolumeLookback)
			if avg <= 0 || volumes[i] <= cfg.VolumeMultiplier*avg {
				continue
			}
			p := model.HighVolumePivot{
				Pivot:       model.Pivot{Index: i, Time: bars[i].Time, Price: values[i]},
				Kind:        kind,
				Volume:      volumes[i],
				VolumeRatio: volumes[i] / avg,
				State:       state,
			}
			for j := i + 1; j < len(bars); j++ {
				c := bars[j].Close
				if (kind == model.PivotHigh && c > p.Price) || (kind == model.PivotLow && c < p.Price) {
					p.State = model.StateInvalidated
					break
				}
			}
			out = append(out, p)
		}
		return out
	}

	return &HVPResult{
		Highs: collect(highs, model.PivotHigh, func(o, c float64) bool { return o >= c }),
		Lows:  collect(lows, model.PivotLow, func(o, c float64) bool { return o <= c }),
	}, nil
}
