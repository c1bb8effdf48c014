package indicator

import (
	"math"
	"sort"
	"time"

	"IndexSentinel/internal/calculator"
	"IndexSentinel/internal/model"
)

// slowOffset is the gap between the fast and slow EMA lengths.
const slowOffset = 13

// VOBConfig configures Volume Order Blocks.
type VOBConfig struct {
	Sensitivity      int     `yaml:"sensitivity"`
	MidLine          bool    `yaml:"mid_line"`
	TrendShadow      bool    `yaml:"trend_shadow"`
	VolumeLookback   int     `yaml:"volume_lookback"`
	VolumeMultiplier float64 `yaml:"volume_multiplier"`
	ATRLength        int     `yaml:"atr_length"`
	MinHeightATR     float64 `yaml:"min_height_atr"`
	OverlapATR       float64 `yaml:"overlap_atr"`
	MaxBlocks        int     `yaml:"max_blocks"`
}

// DefaultVOBConfig returns the dashboard defaults.
func DefaultVOBConfig() VOBConfig {
	return VOBConfig{
		Sensitivity:      5,
		MidLine:          true,
		TrendShadow:      true,
		VolumeLookback:   20,
		VolumeMultiplier: 1.0,
		ATRLength:        200,
		OverlapATR:       3,
		MaxBlocks:        15,
	}
}

// Validate checks every parameter except Sensitivity; a non-positive sensitivity yields an empty result.
func (c VOBConfig) Validate() error {
	if err := positive("vob.volume_lookback", c.VolumeLookback); err != nil {
		return err
	}
	if err := positive("vob.atr_length", c.ATRLength); err != nil {
		return err
	}
	if err := nonNegative("vob.volume_multiplier", c.VolumeMultiplier); err != nil {
		return err
	}
	if err := nonNegative("vob.min_height_atr", c.MinHeightATR); err != nil {
		return err
	}
	if err := nonNegative("vob.overlap_atr", c.OverlapATR); err != nil {
		return err
	}
	if c.MaxBlocks < 0 {
		return model.NewConfigError("vob.max_blocks", c.MaxBlocks, "must be non-negative")
	}
	return nil
}

// VOBResult holds the EMA lines and detected blocks. Through is the time of the
// last bar the blocks were checked against.
type VOBResult struct {
	EMAFast     []float64          `json:"ema_fast"`
	EMASlow     []float64          `json:"ema_slow"`
	Bullish     []model.OrderBlock `json:"bullish_blocks"`
	Bearish     []model.OrderBlock `json:"bearish_blocks"`
	MidLine     bool               `json:"mid_line"`
	TrendShadow bool               `json:"trend_shadow"`
	Through     time.Time          `json:"through"`
}

// Active returns the still-valid blocks of both sides, oldest first.
func (r *VOBResult) Active() []model.OrderBlock {
	var out []model.OrderBlock
	for _, b := range append(append([]model.OrderBlock{}, r.Bullish...), r.Bearish...) {
		if b.Active() {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CrossIndex < out[j].CrossIndex })
	return out
}

// Revalidate applies the closes of bars newer than Through to the active blocks
// of a result computed on an older series, then advances Through.
func (r *VOBResult) Revalidate(bars []model.OHLCV) {
	for j, bar := range bars {
		if !bar.Time.After(r.Through) {
			continue
		}
		for _, list := range [][]model.OrderBlock{r.Bullish, r.Bearish} {
			for i := range list {
				b := &list[i]
				if !b.Active() {
					continue
				}
				if (b.Direction == model.DirectionBull && bar.Close < b.Lower) ||
					(b.Direction == model.DirectionBear && bar.Close > b.Upper) {
					b.State = model.StateInvalidated
					b.InvalidatedIndex = j
				}
			}
		}
		r.Through = bar.Time
	}
}

// CalculateVOB detects order blocks on EMA(sensitivity)/EMA(sensitivity+13) crosses
// confirmed by above-average volume. A bullish block spans the lowest low of the
// slow window up to that candle's body bottom and is invalidated by a later close
// below its lower bound; bearish blocks mirror this.
func CalculateVOB(bars []model.OHLCV, cfg VOBConfig) (*VOBResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	res := &VOBResult{MidLine: cfg.MidLine, TrendShadow: cfg.TrendShadow}
	if n := len(bars); n > 0 {
		res.Through = bars[n-1].Time
	}
	slowLen := cfg.Sensitivity + slowOffset
	if cfg.Sensitivity <= 0 || len(bars) < slowLen {
		return res, nil
	}

	closes := calculator.Closes(bars)
	volumes := calculator.Volumes(bars)
	res.EMAFast = calculator.EMA(closes, cfg.Sensitivity)
	res.EMASlow = calculator.EMA(closes, slowLen)
	atr := calculator.ATR(bars, cfg.ATRLength)

	for i := slowLen; i < len(bars); i++ {
		up := calculator.CrossOver(res.EMAFast, res.EMASlow, i)
		down := calculator.CrossUnder(res.EMAFast, res.EMASlow, i)
		if !up && !down {
			continue
		}
		if volumes[i] <= cfg.VolumeMultiplier*trailingMean(volumes, i, cfg.VolumeLookback) {
			continue
		}
		var blk model.OrderBlock
		var ok bool
		if up {
			blk, ok = bullishBlock(bars, i-slowLen, i)
		} else {
			blk, ok = bearishBlock(bars, i-slowLen, i)
		}
		if !ok {
			continue
		}
		if cfg.MinHeightATR > 0 && blk.Upper-blk.Lower < cfg.MinHeightATR*atr[i] {
			continue
		}
		invalidate(&blk, bars)
		if up {
			res.Bullish = append(res.Bullish, blk)
		} else {
			res.Bearish = append(res.Bearish, blk)
		}
	}

	lastATR := atr[len(atr)-1]
	res.Bullish = trimBlocks(res.Bullish, cfg.OverlapATR*lastATR, cfg.MaxBlocks)
	res.Bearish = trimBlocks(res.Bearish, cfg.OverlapATR*lastATR, cfg.MaxBlocks)
	return res, nil
}

func bullishBlock(bars []model.OHLCV, from, cross int) (model.OrderBlock, bool) {
	idx := from
	for j := from; j <= cross; j++ {
		if bars[j].Low < bars[idx].Low {
			idx = j
		}
	}
	src := bars[idx]
	lower := src.Low
	upper := math.Min(src.Open, src.Close)
	if upper <= lower {
		upper = src.High
	}
	if upper <= lower {
		return model.OrderBlock{}, false
	}
	return newBlock(bars, idx, cross, upper, lower, model.DirectionBull), true
}

func bearishBlock(bars []model.OHLCV, from, cross int) (model.OrderBlock, bool) {
	idx := from
	for j := from; j <= cross; j++ {
		if bars[j].High > bars[idx].High {
			idx = j
		}
	}
	src := bars[idx]
	upper := src.High
	lower := math.Max(src.Open, src.Close)
	if lower >= upper {
		lower = src.Low
	}
	if lower >= upper {
		return model.OrderBlock{}, false
	}
	return newBlock(bars, idx, cross, upper, lower, model.DirectionBear), true
}

func newBlock(bars []model.OHLCV, start, cross int, upper, lower float64, dir model.Direction) model.OrderBlock {
	var vol float64
	for j := start; j <= cross; j++ {
		vol += bars[j].Volume
	}
	return model.OrderBlock{
		StartIndex:       start,
		StartTime:        bars[start].Time,
		CrossIndex:       cross,
		Upper:            upper,
		Lower:            lower,
		Mid:              (upper + lower) / 2,
		Direction:        dir,
		State:            model.StateActive,
		Volume:           vol,
		InvalidatedIndex: -1,
	}
}

// invalidate marks the first close through the block. INVALIDATED is terminal.
func invalidate(b *model.OrderBlock, bars []model.OHLCV) {
	for j := b.CrossIndex + 1; j < len(bars); j++ {
		c := bars[j].Close
		if (b.Direction == model.DirectionBull && c < b.Lower) ||
			(b.Direction == model.DirectionBear && c > b.Upper) {
			b.State = model.StateInvalidated
			b.InvalidatedIndex = j
			return
		}
	}
}

// trimBlocks keeps the newest block of any cluster whose mids sit within minGap, then the last limit.
func trimBlocks(blocks []model.OrderBlock, minGap float64, limit int) []model.OrderBlock {
	if minGap > 0 && len(blocks) > 1 {
		var kept []model.OrderBlock
		for i := len(blocks) - 1; i >= 0; i-- {
			overlap := false
			for _, k := range kept {
				if math.Abs(blocks[i].Mid-k.Mid) < minGap {
					overlap = true
					break
				}
			}
			if !overlap {
				kept = append(kept, blocks[i])
			}
		}
		for l, r := 0, len(kept)-1; l < r; l, r = l+1, r-1 {
			kept[l], kept[r] = kept[r], kept[l]
		}
		blocks = kept
	}
	if limit > 0 && len(blocks) > limit {
		blocks = blocks[len(blocks)-limit:]
	}
	return blocks
}
