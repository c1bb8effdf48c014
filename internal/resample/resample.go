package resample

import (
	"time"

	"IndexSentinel/internal/model"
)

// Group is one bucket of consecutive base bars. From/To index the base series, To exclusive.
type Group struct {
	Start time.Time
	End   time.Time
	From  int
	To    int
}

// Bars returns the group's slice of the base series.
func (g Group) Bars(base []model.OHLCV) []model.OHLCV {
	return base[g.From:g.To]
}

// Buckets partitions a time-ordered series by timeframe. Buckets without bars are not emitted.
// The trailing bucket is kept even if its period has not elapsed yet.
func Buckets(bars []model.OHLCV, tf Timeframe) []Group {
	var groups []Group
	for i, b := range bars {
		start := tf.Floor(b.Time)
		if n := len(groups); n > 0 && groups[n-1].Start.Equal(start) {
			groups[n-1].To = i + 1
			continue
		}
		groups = append(groups, Group{Start: start, End: tf.End(start), From: i, To: i + 1})
	}
	return groups
}

// Resample aggregates bars into tf: open=first, high=max, low=min, close=last, volume=sum.
// Each output bar is stamped with its bucket start.
func Resample(bars []model.OHLCV, tf Timeframe) []model.OHLCV {
	groups := Buckets(bars, tf)
	out := make([]model.OHLCV, 0, len(groups))
	for _, g := range groups {
		out = append(out, aggregateGroup(g.Start, g.Bars(bars)))
	}
	return out
}

// ResampleLabel parses label and resamples.
func ResampleLabel(bars []model.OHLCV, label string) ([]model.OHLCV, error) {
	tf, err := ParseTimeframe(label)
	if err != nil {
		return nil, err
	}
	return Resample(bars, tf), nil
}

// aggregateGroup builds one aggregated bar from a group of base bars.
func aggregateGroup(periodStart time.Time, bars []model.OHLCV) model.OHLCV {
	first := bars[0]
	last := bars[len(bars)-1]

	high := first.High
	low := first.Low
	var totalVolume float64

	for _, b := range bars {
		if b.High > high {
			high = b.High
		}
		if b.Low < low {
			low = b.Low
		}
		totalVolume += b.Volume
	}

	return model.OHLCV{
		Time:   periodStart,
		Open:   first.Open,
		High:   high,
		Low:    low,
		Close:  last.Close,
		Volume: totalVolume,
	}
}
